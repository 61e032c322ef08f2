package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
)

type historyRepo struct {
	client *firestore.Client
}

func (r *historyRepo) Add(ctx context.Context, entry *domain.HistoryEntry) error {
	logger.StoreCall("Add", historyCollection, "rental", entry.RentalID, "session", entry.SessionID)
	ref, _, err := r.client.Collection(historyCollection).Add(ctx, entry)
	logger.StoreResult("Add", historyCollection, err, "rental", entry.RentalID)
	if err != nil {
		return mapErr(err)
	}
	entry.ID = ref.ID
	return nil
}

func (r *historyRepo) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	return r.queryEntries(ctx, r.client.Collection(historyCollection).Query)
}

func (r *historyRepo) ListByBranch(ctx context.Context, branchID string) ([]domain.HistoryEntry, error) {
	q := r.client.Collection(historyCollection).Where("branchId", "==", branchID)
	return r.queryEntries(ctx, q)
}

func (r *historyRepo) queryEntries(ctx context.Context, q firestore.Query) ([]domain.HistoryEntry, error) {
	it := q.Documents(ctx)
	defer it.Stop()

	var entries []domain.HistoryEntry
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr(err)
		}
		var entry domain.HistoryEntry
		if err := snap.DataTo(&entry); err != nil {
			logger.Warn("Skipping malformed history document", "doc", snap.Ref.ID, "error", err)
			continue
		}
		entry.ID = snap.Ref.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *historyRepo) Watch(ctx context.Context) (<-chan []domain.HistoryEntry, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := r.client.Collection(historyCollection).Snapshots(ctx)
	ch := make(chan []domain.HistoryEntry, 1)

	go func() {
		defer close(ch)
		defer it.Stop()
		for {
			qsnap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("History watch terminated", "error", err)
				}
				return
			}
			docs, err := qsnap.Documents.GetAll()
			if err != nil {
				logger.Error("Failed to read history snapshot", "error", err)
				continue
			}
			entries := make([]domain.HistoryEntry, 0, len(docs))
			for _, snap := range docs {
				var entry domain.HistoryEntry
				if err := snap.DataTo(&entry); err != nil {
					continue
				}
				entry.ID = snap.Ref.ID
				entries = append(entries, entry)
			}
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- entries:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, cancel, nil
}
