package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

type AuthorService struct {
	store ports.Store
	log   zerolog.Logger
}

func NewAuthorService(store ports.Store, log zerolog.Logger) *AuthorService {
	return &AuthorService{store: store, log: log.With().Str("service", "author").Logger()}
}

func (s *AuthorService) Create(ctx context.Context, actor domain.Actor, in ports.AuthorInput) (*domain.Author, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	author := &domain.Author{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Bio:       strings.TrimSpace(in.Bio),
	}
	if author.LastName == "" {
		return nil, domain.Invalid("last name is required")
	}
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		return tx.Authors().Create(ctx, author)
	})
	if err != nil {
		return nil, fail(s.log, "Create", err)
	}
	return author, nil
}

func (s *AuthorService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Author, error) {
	var author *domain.Author
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		a, err := tx.Authors().FindByID(ctx, id)
		author = a
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Get", err)
	}
	return author, nil
}

func (s *AuthorService) List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.Author, int64, error) {
	var (
		authors []*domain.Author
		total   int64
	)
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		var err error
		authors, total, err = tx.Authors().List(ctx, page.Normalize())
		return err
	})
	if err != nil {
		return nil, 0, fail(s.log, "List", err)
	}
	return authors, total, nil
}

func (s *AuthorService) Update(ctx context.Context, actor domain.Actor, id int64, patch domain.AuthorPatch) (*domain.Author, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.LastName != nil && strings.TrimSpace(*patch.LastName) == "" {
		return nil, domain.Invalid("last name cannot be empty")
	}
	var author *domain.Author
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		a, err := tx.Authors().Update(ctx, id, patch)
		author = a
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Update", err)
	}
	return author, nil
}

// Delete removes the author and unlinks it from its books.
func (s *AuthorService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		return tx.Authors().Delete(ctx, id)
	})
	return fail(s.log, "Delete", err)
}
