package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/qr"
	"gamerental-backend/internal/repository"
	"gamerental-backend/internal/security"
)

type adminService struct {
	games     repository.GameRepository
	users     repository.UserRepository
	accounts  security.AccountCreator
	email     EmailService
	qrBaseURL string
}

// NewAdminService builds the back-office service. accounts may be nil, in
// which case staff accounts are provisioned locally with a bcrypt password
// hash. email may be nil to skip welcome mail.
func NewAdminService(
	games repository.GameRepository,
	users repository.UserRepository,
	accounts security.AccountCreator,
	email EmailService,
	qrBaseURL string,
) AdminService {
	return &adminService{
		games:     games,
		users:     users,
		accounts:  accounts,
		email:     email,
		qrBaseURL: qrBaseURL,
	}
}

func (s *adminService) AddGame(ctx context.Context, name, branchID string) (*domain.Game, error) {
	name = strings.TrimSpace(name)
	branchID = strings.TrimSpace(branchID)
	if name == "" || branchID == "" {
		return nil, fmt.Errorf("%w: game name and branch are required", ErrInvalidInput)
	}

	game := &domain.Game{
		Name:      name,
		BranchID:  branchID,
		Available: true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.games.Create(ctx, game); err != nil {
		return nil, err
	}

	// The QR payload embeds the generated document ID, so it is written in
	// a second pass after creation.
	game.QRPayload = qr.Encode(s.qrBaseURL, branchID, game.ID)
	if err := s.games.Update(ctx, game); err != nil {
		return nil, err
	}

	logger.Info("Game added to catalog", "game", game.ID, "name", name, "branch", branchID)
	return game, nil
}

func (s *adminService) ListGames(ctx context.Context, branchID string) ([]domain.Game, error) {
	if branchID == "" {
		return s.games.List(ctx)
	}
	return s.games.ListByBranch(ctx, branchID)
}

func (s *adminService) AddEmployee(ctx context.Context, email, password, name, branchID string, role domain.Role) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	branchID = strings.TrimSpace(branchID)

	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	case len(password) < 6:
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case branchID == "":
		return nil, fmt.Errorf("%w: branch is required", ErrInvalidInput)
	case role != domain.RoleAdmin && role != domain.RoleEmployee:
		return nil, fmt.Errorf("%w: role must be admin or employee", ErrInvalidInput)
	}

	user := &domain.User{
		Email:     email,
		Name:      name,
		Role:      role,
		BranchID:  branchID,
		CreatedAt: time.Now().UTC(),
	}

	if s.accounts != nil {
		uid, err := s.accounts.CreateAccount(ctx, email, password, name)
		if err != nil {
			return nil, err
		}
		user.UID = uid
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.UID = uuid.NewString()
		user.PasswordHash = string(hash)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.email != nil {
		if err := s.email.SendEmployeeWelcome(ctx, email, name, branchID); err != nil {
			logger.Warn("Failed to send welcome email", "email", email, "error", err)
		}
	}

	logger.Info("Staff account created", "uid", user.UID, "role", role, "branch", branchID)
	return user, nil
}
