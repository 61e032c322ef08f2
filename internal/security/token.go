package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gamerental-backend/internal/domain"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeSession TokenType = "session"
)

// Claims defines the token claims for this application. Access tokens carry
// the staff identity; session tokens are scoped to one live rental and carry
// only its document key.
type Claims struct {
	UID      string      `json:"uid,omitempty"`
	Email    string      `json:"email,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
	BranchID string      `json:"branch_id,omitempty"`
	RentalID string      `json:"rental_id,omitempty"`
	Type     TokenType   `json:"type"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	GenerateAccessToken(user *domain.User) (string, error)
	GenerateSessionToken(rentalID string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type tokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	sessionTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, sessionTTL time.Duration) TokenManager {
	return &tokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		sessionTTL: sessionTTL,
	}
}

func (m *tokenManager) GenerateAccessToken(user *domain.User) (string, error) {
	claims := Claims{
		UID:      user.UID,
		Email:    user.Email,
		Role:     user.Role,
		BranchID: user.BranchID,
		Type:     TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gamerental-backend",
			Audience:  jwt.ClaimStrings{"api-access"},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateSessionToken issues a token that lets the public customer page
// drive exactly one rental (pause, resume, end, rescan).
func (m *tokenManager) GenerateSessionToken(rentalID string) (string, error) {
	claims := Claims{
		RentalID: rentalID,
		Type:     TokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rentalID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gamerental-backend",
			Audience:  jwt.ClaimStrings{"rental-session"},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
