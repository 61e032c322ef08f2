package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
)

type userRepo struct {
	client *firestore.Client
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	logger.StoreCall("Create", usersCollection, "uid", user.UID)
	_, err := r.client.Collection(usersCollection).Doc(user.UID).Set(ctx, user)
	logger.StoreResult("Create", usersCollection, err, "uid", user.UID)
	return mapErr(err)
}

func (r *userRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	snap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var user domain.User
	if err := snap.DataTo(&user); err != nil {
		return nil, err
	}
	user.UID = snap.Ref.ID
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	it := r.client.Collection(usersCollection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	var user domain.User
	if err := snap.DataTo(&user); err != nil {
		return nil, err
	}
	user.UID = snap.Ref.ID
	return &user, nil
}
