package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"gamerental-backend/internal/domain"
	"gamerental-backend/internal/logger"
)

type reportRepo struct {
	client *firestore.Client
}

func (r *reportRepo) Save(ctx context.Context, report *domain.RevenueReport) error {
	logger.StoreCall("Save", reportsCollection, "date", report.Date)
	_, err := r.client.Collection(reportsCollection).Doc(report.Date).Set(ctx, report)
	logger.StoreResult("Save", reportsCollection, err, "date", report.Date)
	return mapErr(err)
}

func (r *reportRepo) GetByDate(ctx context.Context, date string) (*domain.RevenueReport, error) {
	snap, err := r.client.Collection(reportsCollection).Doc(date).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var report domain.RevenueReport
	if err := snap.DataTo(&report); err != nil {
		return nil, err
	}
	report.Date = snap.Ref.ID
	return &report, nil
}
