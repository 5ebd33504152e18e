// Package mongo provides the MongoDB-backed audit trail for sync runs.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qonto-ledger-sync/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the sync run log collection
	AuditCollectionName = "sync_run_records"
)

// AuditRepository implements the audit.Recorder interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Recorder {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one audit record
func (r *AuditRepository) Record(ctx context.Context, record *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to write audit record",
			"message", record.Message,
			"error", err)
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return nil
}

// ListRecent returns the newest records first, capped at limit
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "run_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records", "error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
