// Package firestore implements the repositories on Cloud Firestore, the
// hosted document store all state lives in.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gamerental-backend/internal/repository"
)

const (
	rentalsCollection = "rentals"
	historyCollection = "rentalHistory"
	gamesCollection   = "games"
	usersCollection   = "users"
	reportsCollection = "revenueReports"
)

// Store bundles the Firestore-backed repositories.
type Store struct {
	Client *firestore.Client

	RentalRepository  repository.RentalRepository
	HistoryRepository repository.HistoryRepository
	GameRepository    repository.GameRepository
	UserRepository    repository.UserRepository
	ReportRepository  repository.ReportRepository
}

// NewStore creates a Store backed by the given Firestore client.
func NewStore(client *firestore.Client) *Store {
	return &Store{
		Client:            client,
		RentalRepository:  &rentalRepo{client: client},
		HistoryRepository: &historyRepo{client: client},
		GameRepository:    &gameRepo{client: client},
		UserRepository:    &userRepo{client: client},
		ReportRepository:  &reportRepo{client: client},
	}
}

// NewApp initializes the Firebase app used for both Firestore and identity
// provider access.
func NewApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	conf := &firebase.Config{ProjectID: projectID}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// mapErr translates Firestore errors into repository errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return repository.ErrNotFound
	}
	return err
}
