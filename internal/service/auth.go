package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
	"gamerental-backend/internal/security"
)

type authService struct {
	users    repository.UserRepository
	tokens   security.TokenManager
	verifier security.IDTokenVerifier
}

// NewAuthService builds the authentication service. verifier may be nil when
// identity-provider tokens are not accepted (local mode).
func NewAuthService(
	users repository.UserRepository,
	tokens security.TokenManager,
	verifier security.IDTokenVerifier,
) AuthService {
	return &authService{users: users, tokens: tokens, verifier: verifier}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if user.PasswordHash == "" {
		// Provider-managed account; it cannot log in with a local password.
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return "", nil, err
	}
	logger.Info("Staff login", "uid", user.UID, "role", user.Role)
	return token, user, nil
}

// ResolvePrincipal authenticates a bearer token. Locally issued tokens are
// tried first; in firebase mode an identity-provider ID token is accepted as
// a fallback and the role and branch are read from the users collection.
func (s *authService) ResolvePrincipal(ctx context.Context, bearer string) (*security.Principal, error) {
	if bearer == "" {
		return nil, security.ErrInvalidToken
	}

	if claims, err := s.tokens.ValidateToken(bearer); err == nil {
		return principalFromClaims(claims), nil
	} else if errors.Is(err, security.ErrExpiredToken) {
		return nil, err
	}

	if s.verifier == nil {
		return nil, security.ErrInvalidToken
	}
	uid, err := s.verifier.VerifyIDToken(ctx, bearer)
	if err != nil {
		return nil, security.ErrInvalidToken
	}
	user, err := s.users.GetByUID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		// Authenticated with the provider but not provisioned as staff.
		return nil, security.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &security.Principal{
		UID:      user.UID,
		Email:    user.Email,
		Role:     user.Role,
		BranchID: user.BranchID,
	}, nil
}

func principalFromClaims(claims *security.Claims) *security.Principal {
	return &security.Principal{
		UID:      claims.UID,
		Email:    claims.Email,
		Role:     claims.Role,
		BranchID: claims.BranchID,
		RentalID: claims.RentalID,
	}
}
