package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
)

type rentalRepo struct {
	client *firestore.Client
}

func (r *rentalRepo) docRef(key domain.RentalKey) *firestore.DocumentRef {
	return r.client.Collection(rentalsCollection).Doc(key.DocID())
}

func (r *rentalRepo) Get(ctx context.Context, key domain.RentalKey) (*domain.Rental, error) {
	logger.StoreCall("Get", rentalsCollection, "doc", key.DocID())
	snap, err := r.docRef(key).Get(ctx)
	if err != nil {
		err = mapErr(err)
		logger.StoreResult("Get", rentalsCollection, err, "doc", key.DocID())
		return nil, err
	}
	var rental domain.Rental
	if err := snap.DataTo(&rental); err != nil {
		return nil, err
	}
	rental.ID = snap.Ref.ID
	return &rental, nil
}

func (r *rentalRepo) Set(ctx context.Context, rental *domain.Rental) error {
	key := rental.Key()
	rental.ID = key.DocID()
	logger.StoreCall("Set", rentalsCollection, "doc", rental.ID)
	_, err := r.docRef(key).Set(ctx, rental)
	logger.StoreResult("Set", rentalsCollection, err, "doc", rental.ID)
	return mapErr(err)
}

// UpdateTotalTime writes the minute count inside a transaction guarded on
// status, so a ticker racing a completion cannot touch the frozen document.
func (r *rentalRepo) UpdateTotalTime(ctx context.Context, key domain.RentalKey, minutes int64) error {
	ref := r.docRef(key)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		status, err := snap.DataAt("status")
		if err != nil {
			return err
		}
		if status != string(domain.RentalStatusActive) {
			return repository.ErrNotActive
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "totalTime", Value: minutes},
		})
	})
	if err != nil && err != repository.ErrNotActive {
		logger.StoreResult("UpdateTotalTime", rentalsCollection, err, "doc", key.DocID())
	}
	if err == repository.ErrNotActive {
		return err
	}
	return mapErr(err)
}

// CompleteIfActive runs the active → completed transition inside a
// transaction so that only one writer can complete a session.
func (r *rentalRepo) CompleteIfActive(ctx context.Context, key domain.RentalKey, finalize func(*domain.Rental)) (*domain.Rental, bool, error) {
	ref := r.docRef(key)
	var result domain.Rental
	var completed bool

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var rental domain.Rental
		if err := snap.DataTo(&rental); err != nil {
			return err
		}
		rental.ID = snap.Ref.ID
		if rental.Status != domain.RentalStatusActive {
			result = rental
			completed = false
			return nil
		}
		finalize(&rental)
		if err := tx.Set(ref, &rental); err != nil {
			return err
		}
		result = rental
		completed = true
		return nil
	})
	if err != nil {
		return nil, false, mapErr(err)
	}
	return &result, completed, nil
}

func (r *rentalRepo) List(ctx context.Context) ([]domain.Rental, error) {
	return r.queryRentals(ctx, r.client.Collection(rentalsCollection).Query)
}

func (r *rentalRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.Rental, error) {
	q := r.client.Collection(rentalsCollection).Where("branchId", "==", branchID)
	return r.queryRentals(ctx, q)
}

func (r *rentalRepo) ListActive(ctx context.Context) ([]domain.Rental, error) {
	q := r.client.Collection(rentalsCollection).Where("status", "==", string(domain.RentalStatusActive))
	return r.queryRentals(ctx, q)
}

func (r *rentalRepo) queryRentals(ctx context.Context, q firestore.Query) ([]domain.Rental, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	var rentals []domain.Rental
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr(err)
		}
		var rental domain.Rental
		if err := snap.DataTo(&rental); err != nil {
			logger.Warn("Skipping malformed rental document", "doc", snap.Ref.ID, "error", err)
			continue
		}
		rental.ID = snap.Ref.ID
		rentals = append(rentals, rental)
	}
	return rentals, nil
}

// Watch streams full snapshots of the rental set. The newest snapshot
// replaces any undelivered one (last snapshot wins).
func (r *rentalRepo) Watch(ctx context.Context) (<-chan []domain.Rental, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := r.client.Collection(rentalsCollection).Snapshots(ctx)
	ch := make(chan []domain.Rental, 1)

	go func() {
		defer close(ch)
		defer it.Stop()
		for {
			qsnap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("Rental watch terminated", "error", err)
				}
				return
			}
			docs, err := qsnap.Documents.GetAll()
			if err != nil {
				logger.Error("Failed to read rental snapshot", "error", err)
				continue
			}
			rentals := make([]domain.Rental, 0, len(docs))
			for _, snap := range docs {
				var rental domain.Rental
				if err := snap.DataTo(&rental); err != nil {
					continue
				}
				rental.ID = snap.Ref.ID
				rentals = append(rentals, rental)
			}
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rentals:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, cancel, nil
}
