package security

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"gamerental-backend/internal/logger"
)

// IDTokenVerifier verifies identity-provider ID tokens and yields the UID.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (uid string, err error)
}

// AccountCreator provisions identity-provider accounts for new staff.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (uid string, err error)
}

// FirebaseAuth adapts the Firebase Auth client to the verifier and account
// creator contracts.
type FirebaseAuth struct {
	client *auth.Client
}

func NewFirebaseAuth(ctx context.Context, app *firebase.App) (*FirebaseAuth, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}
	return &FirebaseAuth{client: client}, nil
}

func (f *FirebaseAuth) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	logger.ExternalServiceCall("firebase-auth", "VerifyIDToken")
	token, err := f.client.VerifyIDToken(ctx, idToken)
	logger.ExternalServiceResult("firebase-auth", "VerifyIDToken", err)
	if err != nil {
		return "", ErrInvalidToken
	}
	return token.UID, nil
}

func (f *FirebaseAuth) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	logger.ExternalServiceCall("firebase-auth", "CreateUser", "email", email)
	record, err := f.client.CreateUser(ctx, params)
	logger.ExternalServiceResult("firebase-auth", "CreateUser", err, "email", email)
	if err != nil {
		return "", fmt.Errorf("failed to create auth account: %w", err)
	}
	return record.UID, nil
}
