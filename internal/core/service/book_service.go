package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type BookService struct {
	store ports.Store
	log   zerolog.Logger
}

func NewBookService(store ports.Store, log zerolog.Logger) *BookService {
	return &BookService{store: store, log: log.With().Str("service", "book").Logger()}
}

func (s *BookService) Create(ctx context.Context, actor domain.Actor, in ports.BookInput) (*domain.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Invalid("title is required")
	}
	if in.PageCount < 0 {
		return nil, domain.Invalid("page count cannot be negative")
	}
	book := &domain.Book{
		Title:         title,
		Description:   in.Description,
		Publisher:     in.Publisher,
		PublishedDate: in.PublishedDate,
		PageCount:     in.PageCount,
		CoverURL:      in.CoverURL,
		Language:      in.Language,
	}
	if in.ISBN != nil && strings.TrimSpace(*in.ISBN) != "" {
		isbn, err := domain.NormalizeISBN(*in.ISBN)
		if err != nil {
			return nil, err
		}
		book.ISBN = &isbn
	}

	var created *domain.Book
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if book.ISBN != nil {
			if err := ensureISBNFree(ctx, tx, *book.ISBN); err != nil {
				return err
			}
		}
		if err := tx.Books().Create(ctx, book); err != nil {
			return err
		}
		for _, authorID := range in.AuthorIDs {
			if _, err := tx.Authors().FindByID(ctx, authorID); err != nil {
				return err
			}
			if err := tx.Books().AttachAuthor(ctx, book.ID, authorID); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.Books().FindByID(ctx, book.ID)
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Create", err)
	}
	s.log.Info().Int64("book_id", created.ID).Str("title", created.Title).Msg("book created")
	return created, nil
}

func (s *BookService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Book, error) {
	var book *domain.Book
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		b, err := tx.Books().FindByID(ctx, id)
		book = b
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Get", err)
	}
	return book, nil
}

func (s *BookService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.BookPatch) (*domain.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, domain.Invalid("title cannot be empty")
	}
	if patch.PageCount != nil && *patch.PageCount < 0 {
		return nil, domain.Invalid("page count cannot be negative")
	}
	if patch.ISBN != nil {
		isbn, err := domain.NormalizeISBN(*patch.ISBN)
		if err != nil {
			return nil, err
		}
		patch.ISBN = &isbn
	}

	var book *domain.Book
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		current, err := tx.Books().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Empty() {
			book = current
			return nil
		}
		if patch.ISBN != nil && (current.ISBN == nil || *current.ISBN != *patch.ISBN) {
			if err := ensureISBNFree(ctx, tx, *patch.ISBN); err != nil {
				return err
			}
		}
		book, err = tx.Books().Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Update", err)
	}
	return book, nil
}

// Delete removes a book that is not currently lent out.
func (s *BookService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Books().LockByID(ctx, id); err != nil {
			return err
		}
		_, err := tx.Loans().FindActiveByBookID(ctx, id)
		switch {
		case err == nil:
			return domain.ErrBookHasOpenLoan
		case !errors.Is(err, domain.ErrLoanNotFound):
			return err
		}
		return tx.Books().Delete(ctx, id)
	})
	if err != nil {
		return fail(s.log, "Delete", err)
	}
	s.log.Info().Int64("book_id", id).Msg("book deleted")
	return nil
}

func (s *BookService) Search(ctx context.Context, actor domain.Actor, q domain.BookQuery) ([]*domain.Book, int64, error) {
	q.Q = strings.TrimSpace(q.Q)
	q.Page = q.Page.Normalize()

	var (
		books []*domain.Book
		total int64
	)
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		var err error
		books, total, err = tx.Books().Search(ctx, q)
		return err
	})
	if err != nil {
		return nil, 0, fail(s.log, "Search", err)
	}
	return books, total, nil
}

func (s *BookService) AttachAuthor(ctx context.Context, actor domain.Actor, bookID, authorID int64) (*domain.Book, error) {
	return s.linkAuthor(ctx, actor, "AttachAuthor", bookID, authorID, true)
}

func (s *BookService) DetachAuthor(ctx context.Context, actor domain.Actor, bookID, authorID int64) (*domain.Book, error) {
	return s.linkAuthor(ctx, actor, "DetachAuthor", bookID, authorID, false)
}

func (s *BookService) linkAuthor(ctx context.Context, actor domain.Actor, method string, bookID, authorID int64, attach bool) (*domain.Book, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var book *domain.Book
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Books().FindByID(ctx, bookID); err != nil {
			return err
		}
		if _, err := tx.Authors().FindByID(ctx, authorID); err != nil {
			return err
		}
		var err error
		if attach {
			err = tx.Books().AttachAuthor(ctx, bookID, authorID)
		} else {
			err = tx.Books().DetachAuthor(ctx, bookID, authorID)
		}
		if err != nil {
			return err
		}
		book, err = tx.Books().FindByID(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, fail(s.log, method, err)
	}
	return book, nil
}

func ensureISBNFree(ctx context.Context, tx ports.Tx, isbn string) error {
	_, err := tx.Books().FindByISBN(ctx, isbn)
	switch {
	case err == nil:
		return domain.ErrISBNTaken
	case errors.Is(err, domain.ErrBookNotFound):
		return nil
	default:
		return err
	}
}
