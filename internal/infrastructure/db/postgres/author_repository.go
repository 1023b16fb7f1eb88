package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/bookbound/library/internal/core/domain"
)

var authorColumns = []any{"id", "first_name", "last_name", "bio", "created_at", "updated_at"}

const authorSelect = `SELECT id, first_name, last_name, bio, created_at, updated_at FROM authors`

type authorRepo struct {
	q Querier
}

func scanAuthor(row pgx.Row) (*domain.Author, error) {
	var a domain.Author
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Bio, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *authorRepo) Create(ctx context.Context, a *domain.Author) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO authors (first_name, last_name, bio) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		a.FirstName, a.LastName, a.Bio,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert author: %w", err)
	}
	return nil
}

func (r *authorRepo) FindByID(ctx context.Context, id int64) (*domain.Author, error) {
	a, err := scanAuthor(r.q.QueryRow(ctx, authorSelect+` WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, domain.ErrAuthorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find author: %w", err)
	}
	return a, nil
}

func (r *authorRepo) FindByName(ctx context.Context, firstName, lastName string) (*domain.Author, error) {
	a, err := scanAuthor(r.q.QueryRow(ctx, authorSelect+`
		WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)
		ORDER BY id LIMIT 1`, firstName, lastName))
	if isNoRows(err) {
		return nil, domain.ErrAuthorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find author by name: %w", err)
	}
	return a, nil
}

func (r *authorRepo) List(ctx context.Context, page domain.Page) ([]*domain.Author, int64, error) {
	page = page.Normalize()
	base := dialect.From("authors").Prepared(true)

	total, err := count(ctx, r.q, base)
	if err != nil {
		return nil, 0, fmt.Errorf("count authors: %w", err)
	}
	query, args, err := base.Select(authorColumns...).
		Order(goqu.I("last_name").Asc(), goqu.I("first_name").Asc(), goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build author list query: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]*domain.Author, 0, page.Limit)
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, total, rows.Err()
}

func (r *authorRepo) Update(ctx context.Context, id int64, p domain.AuthorPatch) (*domain.Author, error) {
	rec := goqu.Record{"updated_at": goqu.L("now()")}
	if p.FirstName != nil {
		rec["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		rec["last_name"] = *p.LastName
	}
	if p.Bio != nil {
		rec["bio"] = *p.Bio
	}
	query, args, err := dialect.Update("authors").Prepared(true).
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Returning(authorColumns...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build author update: %w", err)
	}
	a, err := scanAuthor(r.q.QueryRow(ctx, query, args...))
	if isNoRows(err) {
		return nil, domain.ErrAuthorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update author: %w", err)
	}
	return a, nil
}

func (r *authorRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuthorNotFound
	}
	return nil
}
