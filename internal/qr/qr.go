// Package qr encodes and decodes the rental QR payload. Rendering the
// payload as an actual QR image is the frontend's job; the backend only
// deals with the embedded URL of the form <base>/game/{branchId}/{gameId}.
package qr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid QR payload")

var payloadPattern = regexp.MustCompile(`game/([^/]+)/([^/]+)`)

// Payload is the decoded (branch, game) pair carried by a scanned code.
type Payload struct {
	BranchID string `json:"branch_id"`
	GameID   string `json:"game_id"`
}

// Parse extracts the branch and game IDs from a scanned payload.
func Parse(raw string) (Payload, error) {
	m := payloadPattern.FindStringSubmatch(raw)
	if m == nil {
		return Payload{}, ErrInvalidPayload
	}
	return Payload{BranchID: m[1], GameID: m[2]}, nil
}

// Encode builds the payload URL printed on a game's QR code.
func Encode(baseURL, branchID, gameID string) string {
	return fmt.Sprintf("%s/game/%s/%s", strings.TrimRight(baseURL, "/"), branchID, gameID)
}
