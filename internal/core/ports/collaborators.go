package ports

import (
	"context"
	"time"

	"github.com/bookbound/library/internal/core/domain"
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}

// TokenSigner issues access tokens for authenticated users.
type TokenSigner interface {
	Sign(user *domain.User) (string, error)
}

// TokenVerifier turns a presented access token back into an actor.
type TokenVerifier interface {
	Verify(token string) (domain.Actor, error)
}

// CatalogLookup queries the external book catalog.
type CatalogLookup interface {
	// SearchByISBN returns domain.ErrCatalogNoMatch when the catalog has no record.
	SearchByISBN(ctx context.Context, isbn string) (*domain.CatalogVolume, error)
	Search(ctx context.Context, query string, maxResults int) ([]domain.CatalogVolume, error)
}

// JobQueue schedules background jobs and lets callers wait for them.
type JobQueue interface {
	Enqueue(ctx context.Context, jobType domain.JobType, payload any) (domain.JobHandle, error)
	// WaitUntilFinished blocks until the job reaches a terminal state or
	// timeout elapses. On timeout it returns context.DeadlineExceeded.
	WaitUntilFinished(ctx context.Context, h domain.JobHandle, timeout time.Duration) (*domain.Job, error)
}

// JobProcessor executes one dequeued job and returns its encoded result.
type JobProcessor interface {
	Process(ctx context.Context, job *domain.Job) ([]byte, error)
}

// AuditLog stores an append-only trail of state changes.
type AuditLog interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}
