package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
)

type gameRepo struct {
	client *firestore.Client
}

func (r *gameRepo) Create(ctx context.Context, game *domain.Game) error {
	ref := r.client.Collection(gamesCollection).NewDoc()
	logger.StoreCall("Create", gamesCollection, "doc", ref.ID, "name", game.Name)
	_, err := ref.Set(ctx, game)
	logger.StoreResult("Create", gamesCollection, err, "doc", ref.ID)
	if err != nil {
		return mapErr(err)
	}
	game.ID = ref.ID
	return nil
}

func (r *gameRepo) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	snap, err := r.client.Collection(gamesCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var game domain.Game
	if err := snap.DataTo(&game); err != nil {
		return nil, err
	}
	game.ID = snap.Ref.ID
	return &game, nil
}

func (r *gameRepo) Update(ctx context.Context, game *domain.Game) error {
	logger.StoreCall("Update", gamesCollection, "doc", game.ID)
	_, err := r.client.Collection(gamesCollection).Doc(game.ID).Set(ctx, game)
	logger.StoreResult("Update", gamesCollection, err, "doc", game.ID)
	return mapErr(err)
}

func (r *gameRepo) List(ctx context.Context) ([]domain.Game, error) {
	return r.queryGames(ctx, r.client.Collection(gamesCollection).Query)
}

func (r *gameRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Game, error) {
	q := r.client.Collection(gamesCollection).Where("branchId", "==", branchID)
	return r.queryGames(ctx, q)
}

func (r *gameRepo) queryGames(ctx context.Context, q firestore.Query) ([]domain.Game, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	var games []domain.Game
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr(err)
		}
		var game domain.Game
		if err := snap.DataTo(&game); err != nil {
			logger.Warn("Skipping malformed game document", "doc", snap.Ref.ID, "error", err)
			continue
		}
		game.ID = snap.Ref.ID
		games = append(games, game)
	}
	return games, nil
}
