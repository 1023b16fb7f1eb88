// Package mongo stores the audit trail. Relational state lives in Postgres;
// MongoDB only receives append-only audit documents.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	defaultTimeout = 10 * time.Second
	appName        = "library-audit"
)

// Config holds the audit store settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	// Retention expires audit entries after this long. Zero keeps them.
	Retention time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. Audit writes are
// acknowledged by the primary only: they are best-effort and must not stall
// the request that produced them.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetTimeout(timeout).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.W1())

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// OpenAudit connects and returns an audit repository with its indexes in
// place. Index failures are returned together with a usable repository so
// the caller can decide whether they are fatal.
func OpenAudit(ctx context.Context, cfg Config) (*mongo.Client, *AuditRepository, error) {
	if cfg.Retention < 0 {
		return nil, nil, fmt.Errorf("mongo: negative audit retention %s", cfg.Retention)
	}
	client, db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	repo := NewAuditRepository(db, WithRetention(cfg.Retention))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return client, repo, fmt.Errorf("audit indexes: %w", err)
	}
	return client, repo, nil
}
