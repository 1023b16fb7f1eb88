package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/bookbound/library/internal/core/domain"
)

var bookColumns = []any{
	"id", "isbn", "title", "description", "publisher", "published_date",
	"page_count", "cover_url", "language", "created_at", "updated_at",
}

const (
	bookReturning = `id, isbn, title, description, publisher, published_date, page_count, cover_url, language, created_at, updated_at`
	bookSelect    = `SELECT ` + bookReturning + ` FROM books`
)

type bookRepo struct {
	q Querier
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Description, &b.Publisher, &b.PublishedDate,
		&b.PageCount, &b.CoverURL, &b.Language, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Authors = []domain.Author{}
	return &b, nil
}

func (r *bookRepo) Create(ctx context.Context, b *domain.Book) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO books (isbn, title, description, publisher, published_date, page_count, cover_url, language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		b.ISBN, b.Title, b.Description, b.Publisher, b.PublishedDate, b.PageCount, b.CoverURL, b.Language,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrISBNTaken
	}
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *bookRepo) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	return r.findOne(ctx, bookSelect+` WHERE id = $1`, id)
}

func (r *bookRepo) FindByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.findOne(ctx, bookSelect+` WHERE isbn = $1`, isbn)
}

func (r *bookRepo) findOne(ctx context.Context, query string, arg any) (*domain.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, query, arg))
	if isNoRows(err) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	if err := r.loadAuthors(ctx, []*domain.Book{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// LockByID serializes loan creation per book.
func (r *bookRepo) LockByID(ctx context.Context, id int64) (*domain.Book, error) {
	b, err := scanBook(r.q.QueryRow(ctx, bookSelect+` WHERE id = $1 FOR UPDATE`, id))
	if isNoRows(err) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock book: %w", err)
	}
	return b, nil
}

func (r *bookRepo) Update(ctx context.Context, id int64, p domain.BookPatch) (*domain.Book, error) {
	rec := goqu.Record{"updated_at": goqu.L("now()")}
	if p.ISBN != nil {
		rec["isbn"] = *p.ISBN
	}
	if p.Title != nil {
		rec["title"] = *p.Title
	}
	if p.Description != nil {
		rec["description"] = *p.Description
	}
	if p.Publisher != nil {
		rec["publisher"] = *p.Publisher
	}
	if p.PublishedDate != nil {
		rec["published_date"] = *p.PublishedDate
	}
	if p.PageCount != nil {
		rec["page_count"] = *p.PageCount
	}
	if p.CoverURL != nil {
		rec["cover_url"] = *p.CoverURL
	}
	if p.Language != nil {
		rec["language"] = *p.Language
	}

	query, args, err := dialect.Update("books").Prepared(true).
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Returning(bookColumns...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build book update: %w", err)
	}
	b, err := scanBook(r.q.QueryRow(ctx, query, args...))
	switch {
	case isNoRows(err):
		return nil, domain.ErrBookNotFound
	case isUniqueViolation(err):
		return nil, domain.ErrISBNTaken
	case err != nil:
		return nil, fmt.Errorf("update book: %w", err)
	}
	if err := r.loadAuthors(ctx, []*domain.Book{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

// Search matches the full-text vector or an exact ISBN, optionally narrowed
// to one author. Text matches are ranked, everything else is ordered by id.
func (r *bookRepo) Search(ctx context.Context, q domain.BookQuery) ([]*domain.Book, int64, error) {
	page := q.Page.Normalize()
	base := dialect.From("books").Prepared(true)

	var order []exp.OrderedExpression
	if q.Q != "" {
		tsq := goqu.L("plainto_tsquery('simple', ?)", q.Q)
		conds := []exp.Expression{goqu.L("search_vector @@ ?", tsq)}
		if isbn, err := domain.NormalizeISBN(q.Q); err == nil {
			conds = append(conds, goqu.C("isbn").Eq(isbn))
		}
		base = base.Where(goqu.Or(conds...))
		order = append(order, goqu.L("ts_rank(search_vector, ?)", tsq).Desc())
	}
	if q.AuthorID != 0 {
		base = base.Where(goqu.C("id").In(
			dialect.From("book_authors").Select("book_id").Where(goqu.C("author_id").Eq(q.AuthorID)),
		))
	}
	order = append(order, goqu.I("id").Asc())

	total, err := count(ctx, r.q, base)
	if err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	query, args, err := base.Select(bookColumns...).
		Order(order...).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build book search query: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search books: %w", err)
	}
	books := make([]*domain.Book, 0, page.Limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search books: %w", err)
	}

	if err := r.loadAuthors(ctx, books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// loadAuthors fills Authors for all books with a single query.
func (r *bookRepo) loadAuthors(ctx context.Context, books []*domain.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]int64, len(books))
	byID := make(map[int64]*domain.Book, len(books))
	for i, b := range books {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	rows, err := r.q.Query(ctx, `
		SELECT ba.book_id, a.id, a.first_name, a.last_name, a.bio, a.created_at, a.updated_at
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ANY($1)
		ORDER BY a.last_name, a.first_name, a.id`, ids)
	if err != nil {
		return fmt.Errorf("load book authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var a domain.Author
		if err := rows.Scan(&bookID, &a.ID, &a.FirstName, &a.LastName, &a.Bio, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return fmt.Errorf("scan book author: %w", err)
		}
		if b, ok := byID[bookID]; ok {
			b.Authors = append(b.Authors, a)
		}
	}
	return rows.Err()
}

func (r *bookRepo) AttachAuthor(ctx context.Context, bookID, authorID int64) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		bookID, authorID)
	if err == nil {
		return nil
	}
	if code, constraint := violation(err); code == codeForeignKeyViolation {
		if constraint == "book_authors_author_id_fkey" {
			return domain.ErrAuthorNotFound
		}
		return domain.ErrBookNotFound
	}
	return fmt.Errorf("attach author: %w", err)
}

func (r *bookRepo) DetachAuthor(ctx context.Context, bookID, authorID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM book_authors WHERE book_id = $1 AND author_id = $2`, bookID, authorID); err != nil {
		return fmt.Errorf("detach author: %w", err)
	}
	return nil
}
