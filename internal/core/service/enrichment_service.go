package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

const (
	DefaultImportWait     = 60 * time.Second
	defaultCatalogResults = 10
	maxCatalogResults     = 40
)

// EnrichmentService fills the catalog from the external book service. Imports
// and enrichments run on the job queue; Process is the worker side.
type EnrichmentService struct {
	store      ports.Store
	catalog    ports.CatalogLookup
	queue      ports.JobQueue
	log        zerolog.Logger
	importWait time.Duration
}

func NewEnrichmentService(store ports.Store, catalog ports.CatalogLookup, queue ports.JobQueue, importWait time.Duration, log zerolog.Logger) *EnrichmentService {
	if importWait <= 0 {
		importWait = DefaultImportWait
	}
	return &EnrichmentService{
		store:      store,
		catalog:    catalog,
		queue:      queue,
		log:        log.With().Str("service", "enrichment").Logger(),
		importWait: importWait,
	}
}

// ImportByISBN enqueues a catalog import and blocks until the worker is done
// or the wait times out.
func (s *EnrichmentService) ImportByISBN(ctx context.Context, actor domain.Actor, isbn string) (*domain.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	isbn, err := domain.NormalizeISBN(isbn)
	if err != nil {
		return nil, err
	}
	err = s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		return ensureISBNFree(ctx, tx, isbn)
	})
	if err != nil {
		return nil, fail(s.log, "ImportByISBN", err)
	}

	handle, err := s.queue.Enqueue(ctx, domain.JobBookImport, domain.ImportPayload{ISBN: isbn})
	if err != nil {
		return nil, fail(s.log, "ImportByISBN", err)
	}
	job, err := s.queue.WaitUntilFinished(ctx, handle, s.importWait)
	if errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn().Str("job_id", handle.ID).Str("isbn", isbn).Dur("waited", s.importWait).Msg("import wait timed out")
		return nil, domain.ErrImportTimeout
	}
	if err != nil {
		return nil, fail(s.log, "ImportByISBN", err)
	}
	if job.State == domain.JobFailed {
		return nil, domain.Restore(job.ErrorKind, job.Error)
	}

	var result domain.ImportResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fail(s.log, "ImportByISBN", err)
	}
	var book *domain.Book
	err = s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		b, err := tx.Books().FindByID(ctx, result.BookID)
		book = b
		return err
	})
	if err != nil {
		return nil, fail(s.log, "ImportByISBN", err)
	}
	return book, nil
}

func (s *EnrichmentService) RequestEnrichment(ctx context.Context, actor domain.Actor, bookID int64) (domain.JobHandle, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.JobHandle{}, err
	}
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Books().FindByID(ctx, bookID)
		return err
	})
	if err != nil {
		return domain.JobHandle{}, fail(s.log, "RequestEnrichment", err)
	}
	handle, err := s.queue.Enqueue(ctx, domain.JobBookEnrich, domain.EnrichPayload{BookID: bookID})
	if err != nil {
		return domain.JobHandle{}, fail(s.log, "RequestEnrichment", err)
	}
	s.log.Info().Str("job_id", handle.ID).Int64("book_id", bookID).Msg("enrichment requested")
	return handle, nil
}

func (s *EnrichmentService) SearchCatalog(ctx context.Context, query string, maxResults int) ([]domain.CatalogVolume, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Invalid("query is required")
	}
	if maxResults <= 0 {
		maxResults = defaultCatalogResults
	}
	if maxResults > maxCatalogResults {
		maxResults = maxCatalogResults
	}
	vols, err := s.catalog.Search(ctx, query, maxResults)
	if err != nil {
		return nil, s.catalogFailure("SearchCatalog", err)
	}
	return vols, nil
}

// Process runs one queued job on behalf of the system actor.
func (s *EnrichmentService) Process(ctx context.Context, job *domain.Job) ([]byte, error) {
	switch job.Type {
	case domain.JobBookImport:
		var p domain.ImportPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, domain.Invalid("malformed import payload")
		}
		bookID, err := s.importBook(ctx, p.ISBN)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.ImportResult{BookID: bookID})
	case domain.JobBookEnrich:
		var p domain.EnrichPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, domain.Invalid("malformed enrich payload")
		}
		return nil, s.enrichBook(ctx, p.BookID)
	default:
		return nil, domain.ErrUnknownJobType
	}
}

func (s *EnrichmentService) importBook(ctx context.Context, isbn string) (int64, error) {
	vol, err := s.catalog.SearchByISBN(ctx, isbn)
	if err != nil {
		return 0, s.catalogFailure("importBook", err)
	}

	book := &domain.Book{
		ISBN:          &isbn,
		Title:         vol.Title,
		Description:   vol.Description,
		Publisher:     vol.Publisher,
		PublishedDate: vol.PublishedDate,
		PageCount:     vol.PageCount,
		CoverURL:      vol.CoverURL,
		Language:      vol.Language,
	}
	if book.Title == "" {
		book.Title = isbn
	}
	err = s.store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		if err := ensureISBNFree(ctx, tx, isbn); err != nil {
			return err
		}
		if err := tx.Books().Create(ctx, book); err != nil {
			return err
		}
		for _, name := range vol.Authors {
			author, err := findOrCreateAuthor(ctx, tx, name)
			if err != nil {
				return err
			}
			if author == nil {
				continue
			}
			if err := tx.Books().AttachAuthor(ctx, book.ID, author.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fail(s.log, "importBook", err)
	}
	s.log.Info().Int64("book_id", book.ID).Str("isbn", isbn).Msg("book imported")
	return book.ID, nil
}

// enrichBook fills empty metadata fields. The catalog is queried outside of
// any transaction.
func (s *EnrichmentService) enrichBook(ctx context.Context, bookID int64) error {
	var book *domain.Book
	err := s.store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		b, err := tx.Books().FindByID(ctx, bookID)
		book = b
		return err
	})
	if err != nil {
		return fail(s.log, "enrichBook", err)
	}

	var vol *domain.CatalogVolume
	if book.ISBN != nil {
		vol, err = s.catalog.SearchByISBN(ctx, *book.ISBN)
	} else {
		var vols []domain.CatalogVolume
		vols, err = s.catalog.Search(ctx, book.Title, 1)
		if err == nil && len(vols) == 0 {
			err = domain.ErrCatalogNoMatch
		}
		if err == nil {
			vol = &vols[0]
		}
	}
	if err != nil {
		return s.catalogFailure("enrichBook", err)
	}

	patch := book.FillFrom(*vol)
	if patch.Empty() {
		s.log.Debug().Int64("book_id", bookID).Msg("nothing to enrich")
		return nil
	}
	err = s.store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Books().Update(ctx, bookID, patch)
		return err
	})
	if err != nil {
		return fail(s.log, "enrichBook", err)
	}
	s.log.Info().Int64("book_id", bookID).Msg("book enriched")
	return nil
}

// catalogFailure keeps domain errors and reports transport problems as
// ErrCatalogUnavailable.
func (s *EnrichmentService) catalogFailure(method string, err error) error {
	if domain.IsDomain(err) {
		return err
	}
	s.log.Error().Err(err).Str("method", method).Msg("catalog lookup failed")
	return domain.ErrCatalogUnavailable
}

func findOrCreateAuthor(ctx context.Context, tx ports.Tx, name string) (*domain.Author, error) {
	first, last := domain.SplitAuthorName(name)
	if last == "" {
		return nil, nil
	}
	author, err := tx.Authors().FindByName(ctx, first, last)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, domain.ErrAuthorNotFound) {
		return nil, err
	}
	author = &domain.Author{FirstName: first, LastName: last}
	if err := tx.Authors().Create(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}
