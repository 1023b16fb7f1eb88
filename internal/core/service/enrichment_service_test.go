package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type fakeCatalog struct {
	volumes  map[string]domain.CatalogVolume
	searches []string
	err      error
}

func (c *fakeCatalog) SearchByISBN(_ context.Context, isbn string) (*domain.CatalogVolume, error) {
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.volumes[isbn]
	if !ok {
		return nil, domain.ErrCatalogNoMatch
	}
	return &v, nil
}

func (c *fakeCatalog) Search(_ context.Context, query string, max int) ([]domain.CatalogVolume, error) {
	c.searches = append(c.searches, fmt.Sprintf("%s/%d", query, max))
	if c.err != nil {
		return nil, c.err
	}
	var out []domain.CatalogVolume
	for _, v := range c.volumes {
		if v.Title == query {
			out = append(out, v)
		}
	}
	return out, nil
}

// syncQueue runs jobs inline when waited on.
type syncQueue struct {
	proc    ports.JobProcessor
	jobs    map[string]*domain.Job
	timeout bool
}

func newSyncQueue() *syncQueue {
	return &syncQueue{jobs: make(map[string]*domain.Job)}
}

func (q *syncQueue) Enqueue(_ context.Context, t domain.JobType, payload any) (domain.JobHandle, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.JobHandle{}, err
	}
	job := &domain.Job{ID: fmt.Sprintf("job-%d", len(q.jobs)+1), Type: t, Payload: raw, State: domain.JobQueued}
	q.jobs[job.ID] = job
	return domain.JobHandle{ID: job.ID, Type: t}, nil
}

func (q *syncQueue) WaitUntilFinished(ctx context.Context, h domain.JobHandle, _ time.Duration) (*domain.Job, error) {
	if q.timeout {
		return nil, context.DeadlineExceeded
	}
	job := q.jobs[h.ID]
	q.run(ctx, job)
	return job, nil
}

func (q *syncQueue) run(ctx context.Context, job *domain.Job) {
	result, err := q.proc.Process(ctx, job)
	if err != nil {
		job.State = domain.JobFailed
		job.Error = err.Error()
		job.ErrorKind = domain.KindName(err)
		return
	}
	job.State = domain.JobSucceeded
	job.Result = result
}

func newTestEnrichment(store *memStore, catalog *fakeCatalog) (*EnrichmentService, *syncQueue) {
	q := newSyncQueue()
	svc := NewEnrichmentService(store, catalog, q, time.Second, zerolog.Nop())
	q.proc = svc
	return svc, q
}

func duneVolume() domain.CatalogVolume {
	return domain.CatalogVolume{
		ISBN:        "9780441013593",
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		Description: "Desert planet.",
		Publisher:   "Ace",
		PageCount:   896,
		Language:    "en",
	}
}

func TestEnrichmentService_ImportByISBN(t *testing.T) {
	store := newMemStore()
	catalog := &fakeCatalog{volumes: map[string]domain.CatalogVolume{"9780441013593": duneVolume()}}
	svc, _ := newTestEnrichment(store, catalog)
	ctx := context.Background()

	book, err := svc.ImportByISBN(ctx, testAdmin, "978-0-441-01359-3")
	if err != nil {
		t.Fatalf("ImportByISBN returned error: %v", err)
	}
	if book.Title != "Dune" || book.PageCount != 896 || *book.ISBN != "9780441013593" {
		t.Fatalf("unexpected book: %+v", book)
	}
	if len(book.Authors) != 1 || book.Authors[0].FirstName != "Frank" || book.Authors[0].LastName != "Herbert" {
		t.Fatalf("unexpected authors: %+v", book.Authors)
	}

	if _, err := svc.ImportByISBN(ctx, testAdmin, "9780441013593"); !errors.Is(err, domain.ErrISBNTaken) {
		t.Fatalf("expected ErrISBNTaken on re-import, got %v", err)
	}
}

func TestEnrichmentService_ImportByISBN_NoCatalogRecord(t *testing.T) {
	svc, _ := newTestEnrichment(newMemStore(), &fakeCatalog{})

	_, err := svc.ImportByISBN(context.Background(), testAdmin, "9780000000002")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnrichmentService_ImportByISBN_Timeout(t *testing.T) {
	svc, q := newTestEnrichment(newMemStore(), &fakeCatalog{})
	q.timeout = true

	_, err := svc.ImportByISBN(context.Background(), testAdmin, "9780441013593")
	if !errors.Is(err, domain.ErrImportTimeout) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrImportTimeout, got %v", err)
	}
}

func TestEnrichmentService_ImportByISBN_CatalogDown(t *testing.T) {
	svc, _ := newTestEnrichment(newMemStore(), &fakeCatalog{err: errors.New("dial tcp: connection refused")})

	_, err := svc.ImportByISBN(context.Background(), testAdmin, "9780441013593")
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestEnrichmentService_EnrichFillsOnlyEmptyFields(t *testing.T) {
	store := newMemStore()
	id := store.seedBook("Dune", "9780441013593")
	store.mu.Lock()
	b := store.state.books[id]
	b.Publisher = "Chilton"
	store.state.books[id] = b
	store.mu.Unlock()

	catalog := &fakeCatalog{volumes: map[string]domain.CatalogVolume{"9780441013593": duneVolume()}}
	svc, q := newTestEnrichment(store, catalog)
	ctx := context.Background()

	handle, err := svc.RequestEnrichment(ctx, testAdmin, id)
	if err != nil {
		t.Fatalf("RequestEnrichment returned error: %v", err)
	}
	job := q.jobs[handle.ID]
	if job.State != domain.JobQueued {
		t.Fatalf("enrichment must not run inline, state %s", job.State)
	}
	q.run(ctx, job)
	if job.State != domain.JobSucceeded {
		t.Fatalf("job failed: %s", job.Error)
	}

	books := NewBookService(store, zerolog.Nop())
	got, _ := books.Get(ctx, testAdmin, id)
	if got.Publisher != "Chilton" {
		t.Fatalf("existing publisher overwritten: %s", got.Publisher)
	}
	if got.Description != "Desert planet." || got.PageCount != 896 || got.Language != "en" {
		t.Fatalf("empty fields not filled: %+v", got)
	}
}

func TestEnrichmentService_RequestEnrichment_UnknownBook(t *testing.T) {
	svc, q := newTestEnrichment(newMemStore(), &fakeCatalog{})

	if _, err := svc.RequestEnrichment(context.Background(), testAdmin, 404); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
	if len(q.jobs) != 0 {
		t.Fatalf("no job should be enqueued")
	}
}

func TestEnrichmentService_SearchCatalog_ClampsResults(t *testing.T) {
	catalog := &fakeCatalog{}
	svc, _ := newTestEnrichment(newMemStore(), catalog)

	if _, err := svc.SearchCatalog(context.Background(), "dune", 500); err != nil {
		t.Fatalf("SearchCatalog returned error: %v", err)
	}
	if catalog.searches[0] != "dune/40" {
		t.Fatalf("expected max results clamped to 40, got %s", catalog.searches[0])
	}
	if _, err := svc.SearchCatalog(context.Background(), "  ", 5); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnrichmentService_Process_UnknownType(t *testing.T) {
	svc, _ := newTestEnrichment(newMemStore(), &fakeCatalog{})

	_, err := svc.Process(context.Background(), &domain.Job{Type: "book.burn"})
	if !errors.Is(err, domain.ErrUnknownJobType) {
		t.Fatalf("expected ErrUnknownJobType, got %v", err)
	}
}
