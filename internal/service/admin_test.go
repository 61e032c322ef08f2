package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/repository/memory"
)

func newTestAdminService(t *testing.T) (AdminService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewAdminService(store.GameRepository, store.UserRepository, nil, nil, "http://localhost:3000")
	return svc, store
}

func TestAddGame(t *testing.T) {
	svc, store := newTestAdminService(t)

	game, err := svc.AddGame(context.Background(), "Chess", "b1")
	require.NoError(t, err)
	assert.NotEmpty(t, game.ID)
	assert.True(t, game.Available, "a new game is rentable immediately")
	assert.Equal(t, "http://localhost:3000/game/b1/"+game.ID, game.QRPayload)

	stored, err := store.GameRepository.GetByID(context.Background(), game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.QRPayload, stored.QRPayload, "payload is written back after creation")
}

func TestAddGameValidation(t *testing.T) {
	svc, _ := newTestAdminService(t)

	_, err := svc.AddGame(context.Background(), "", "b1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.AddGame(context.Background(), "Chess", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListGames(t *testing.T) {
	svc, _ := newTestAdminService(t)
	_, err := svc.AddGame(context.Background(), "Chess", "b1")
	require.NoError(t, err)
	_, err = svc.AddGame(context.Background(), "Darts", "b2")
	require.NoError(t, err)

	all, err := svc.ListGames(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	b1, err := svc.ListGames(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, b1, 1)
	assert.Equal(t, "Chess", b1[0].Name)
}

func TestAddEmployeeLocalProvisioning(t *testing.T) {
	svc, store := newTestAdminService(t)

	user, err := svc.AddEmployee(context.Background(), "Ana@Example.com", "secret1", "Ana", "b1", domain.RoleEmployee)
	require.NoError(t, err)

	assert.NotEmpty(t, user.UID)
	assert.Equal(t, "ana@example.com", user.Email, "email is normalized")
	assert.Equal(t, domain.RoleEmployee, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	stored, err := store.UserRepository.GetByUID(context.Background(), user.UID)
	require.NoError(t, err)
	assert.Equal(t, "b1", stored.BranchID)
}

func TestAddEmployeeWithAccountCreator(t *testing.T) {
	store := memory.NewStore()
	creator := &fakeAccountCreator{uid: "fb-uid-1"}
	svc := NewAdminService(store.GameRepository, store.UserRepository, creator, nil, "http://localhost:3000")

	user, err := svc.AddEmployee(context.Background(), "bo@example.com", "secret1", "Bo", "b1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "fb-uid-1", user.UID, "UID comes from the identity provider")
	assert.Empty(t, user.PasswordHash, "provider-managed accounts hold no local hash")
	assert.Equal(t, "bo@example.com", creator.lastEmail)
}

func TestAddEmployeeValidation(t *testing.T) {
	svc, _ := newTestAdminService(t)
	ctx := context.Background()

	cases := []struct {
		name                                    string
		email, password, userName, branch, role string
	}{
		{"missing email", "", "secret1", "Ana", "b1", "employee"},
		{"malformed email", "not-an-email", "secret1", "Ana", "b1", "employee"},
		{"short password", "a@b.com", "12345", "Ana", "b1", "employee"},
		{"missing name", "a@b.com", "secret1", "", "b1", "employee"},
		{"missing branch", "a@b.com", "secret1", "Ana", "", "employee"},
		{"bad role", "a@b.com", "secret1", "Ana", "b1", "owner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddEmployee(ctx, tc.email, tc.password, tc.userName, tc.branch, domain.Role(tc.role))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

type fakeAccountCreator struct {
	uid       string
	lastEmail string
	fail      error
}

func (f *fakeAccountCreator) CreateAccount(_ context.Context, email, _, _ string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.lastEmail = email
	return f.uid, nil
}

func TestAddEmployeeAccountCreatorFailure(t *testing.T) {
	store := memory.NewStore()
	creator := &fakeAccountCreator{fail: errors.New("provider down")}
	svc := NewAdminService(store.GameRepository, store.UserRepository, creator, nil, "http://localhost:3000")

	_, err := svc.AddEmployee(context.Background(), "a@b.com", "secret1", "Ana", "b1", domain.RoleEmployee)
	require.Error(t, err)

	_, err = store.UserRepository.GetByEmail(context.Background(), "a@b.com")
	assert.Error(t, err, "no user document is written when provisioning fails")
}
