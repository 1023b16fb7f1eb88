package domain

import "time"

// JobType names a background job handler.
type JobType string

const (
	JobBookImport JobType = "book.import"
	JobBookEnrich JobType = "book.enrich"
)

// JobState tracks a queued job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

var (
	ErrImportTimeout      = newError(ErrNotFound, "catalog import did not finish")
	ErrCatalogNoMatch     = newError(ErrNotFound, "no catalog record found")
	ErrUnknownJobType     = newError(ErrInvalidInput, "unknown job type")
	ErrCatalogUnavailable = newError(ErrUnavailable, "catalog service unavailable")
)

// JobHandle identifies an enqueued job.
type JobHandle struct {
	ID   string  `json:"id"`
	Type JobType `json:"type"`
}

// Job is the stored form of a queued job.
type Job struct {
	ID         string     `json:"id"`
	Type       JobType    `json:"type"`
	Payload    []byte     `json:"payload"`
	State      JobState   `json:"state"`
	Result     []byte     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	return j.State == JobSucceeded || j.State == JobFailed
}

type ImportPayload struct {
	ISBN string `json:"isbn"`
}

type EnrichPayload struct {
	BookID int64 `json:"bookId"`
}

type ImportResult struct {
	BookID int64 `json:"bookId"`
}
