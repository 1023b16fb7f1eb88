package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

const (
	collectionAudit = "audit_log"
	ttlIndexName    = "audit_ttl"

	codeNamespaceNotFound    = 26
	codeIndexNotFound        = 27
	codeIndexOptionsConflict = 85
)

// AuditRepository implements ports.AuditLog using MongoDB.
type AuditRepository struct {
	col       *mongo.Collection
	retention time.Duration
}

// AuditOption configures an AuditRepository.
type AuditOption func(*AuditRepository)

// WithRetention makes MongoDB expire entries older than d. Zero disables it.
func WithRetention(d time.Duration) AuditOption {
	return func(r *AuditRepository) { r.retention = d }
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database, opts ...AuditOption) *AuditRepository {
	r := &AuditRepository{col: db.Collection(collectionAudit)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends entry to the audit collection.
func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	entry.OccurredAt = entry.OccurredAt.UTC()

	if _, err := r.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns the most recent entries for one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, action domain.AuditAction, entityID int64, limit int64) ([]domain.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"action": string(action), "entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: -1}}).SetLimit(limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit entries: %w", err)
	}
	var entries []domain.AuditEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return entries, nil
}

// EnsureIndexes creates the indexes used by entity and actor lookups.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
	}

	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return r.ensureTTL(ctx)
}

// ensureTTL keeps the expiry index in line with the configured retention,
// adjusting it in place when the retention changed between deployments.
func (r *AuditRepository) ensureTTL(ctx context.Context) error {
	if r.retention <= 0 {
		_, err := r.col.Indexes().DropOne(ctx, ttlIndexName)
		var cmdErr mongo.CommandError
		if err != nil && errors.As(err, &cmdErr) && (cmdErr.Code == codeIndexNotFound || cmdErr.Code == codeNamespaceNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("drop audit ttl index: %w", err)
		}
		return nil
	}

	seconds := int32(r.retention / time.Second)
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "occurred_at", Value: 1}},
		Options: options.Index().SetName(ttlIndexName).SetExpireAfterSeconds(seconds),
	}
	_, err := r.col.Indexes().CreateOne(ctx, model)
	var cmdErr mongo.CommandError
	if err == nil || !errors.As(err, &cmdErr) || cmdErr.Code != codeIndexOptionsConflict {
		return err
	}
	return r.col.Database().RunCommand(ctx, bson.D{
		{Key: "collMod", Value: collectionAudit},
		{Key: "index", Value: bson.D{{Key: "name", Value: ttlIndexName}, {Key: "expireAfterSeconds", Value: seconds}}},
	}).Err()
}

var _ ports.AuditLog = (*AuditRepository)(nil)
