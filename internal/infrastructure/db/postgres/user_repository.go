package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/bookbound/library/internal/core/domain"
)

var userColumns = []any{"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at"}

const userSelect = `SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at FROM users`

type userRepo struct {
	q Querier
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.CreatedAt,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, userSelect+` WHERE lower(email) = lower($1)`, email))
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error) {
	page = page.Normalize()
	base := dialect.From("users").Prepared(true)

	total, err := count(ctx, r.q, base)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query, args, err := base.Select(userColumns...).
		Order(goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build user list query: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, page.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, id int64, p domain.UserPatch) (*domain.User, error) {
	rec := goqu.Record{"updated_at": goqu.L("now()")}
	if p.Email != nil {
		rec["email"] = *p.Email
	}
	if p.FirstName != nil {
		rec["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		rec["last_name"] = *p.LastName
	}
	if p.PasswordHash != nil {
		rec["password_hash"] = *p.PasswordHash
	}
	if p.Role != nil {
		rec["role"] = string(*p.Role)
	}

	query, args, err := dialect.Update("users").Prepared(true).
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Returning(userColumns...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build user update: %w", err)
	}
	u, err := scanUser(r.q.QueryRow(ctx, query, args...))
	switch {
	case isNoRows(err):
		return nil, domain.ErrUserNotFound
	case isUniqueViolation(err):
		return nil, domain.ErrEmailTaken
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// count runs SELECT COUNT(*) over the dataset's FROM and WHERE clauses.
func count(ctx context.Context, q Querier, ds *goqu.SelectDataset) (int64, error) {
	query, args, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
