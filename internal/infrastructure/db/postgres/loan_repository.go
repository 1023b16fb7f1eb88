package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/bookbound/library/internal/core/domain"
)

var loanColumns = []any{"id", "user_id", "book_id", "status", "borrowed_at", "due_at", "returned_at", "created_at", "updated_at"}

const loanSelect = `SELECT id, user_id, book_id, status, borrowed_at, due_at, returned_at, created_at, updated_at FROM loans`

type loanRepo struct {
	q Querier
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	var status string
	if err := row.Scan(&l.ID, &l.UserID, &l.BookID, &status, &l.BorrowedAt, &l.DueAt, &l.ReturnedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)
	return &l, nil
}

// Create relies on loans_one_active_per_book: an active loan hidden from the
// actor by row-level security still blocks the insert.
func (r *loanRepo) Create(ctx context.Context, l *domain.Loan) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO loans (user_id, book_id, status, borrowed_at, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at`,
		l.UserID, l.BookID, string(l.Status), l.BorrowedAt, l.DueAt, l.CreatedAt,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return domain.ErrBookAlreadyLoaned
	}
	if code, constraint := violation(err); code == codeForeignKeyViolation {
		if constraint == "loans_user_id_fkey" {
			return domain.ErrUserNotFound
		}
		return domain.ErrBookNotFound
	}
	return fmt.Errorf("insert loan: %w", err)
}

func (r *loanRepo) FindByID(ctx context.Context, id int64) (*domain.Loan, error) {
	return r.findOne(ctx, loanSelect+` WHERE id = $1`, id)
}

func (r *loanRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Loan, error) {
	return r.findOne(ctx, loanSelect+` WHERE id = $1 FOR UPDATE`, id)
}

// BorrowerOf switches the transaction to the system role for a single read so
// a foreign loan can be told apart from a missing one, then restores the
// actor's role. Only the user id leaves this function.
func (r *loanRepo) BorrowerOf(ctx context.Context, id int64) (int64, error) {
	var role string
	if err := r.q.QueryRow(ctx, `SELECT coalesce(current_setting('app.current_role', true), '')`).Scan(&role); err != nil {
		return 0, fmt.Errorf("read actor role: %w", err)
	}
	if _, err := r.q.Exec(ctx, `SELECT set_config('app.current_role', $1, true)`, string(domain.RoleSystem)); err != nil {
		return 0, fmt.Errorf("elevate role: %w", err)
	}

	var userID int64
	err := r.q.QueryRow(ctx, `SELECT user_id FROM loans WHERE id = $1`, id).Scan(&userID)
	if err != nil && !isNoRows(err) {
		// The transaction is aborted and rolls back with the elevated role.
		return 0, fmt.Errorf("find loan borrower: %w", err)
	}
	if _, rerr := r.q.Exec(ctx, `SELECT set_config('app.current_role', $1, true)`, role); rerr != nil {
		return 0, fmt.Errorf("restore role: %w", rerr)
	}
	if err != nil {
		return 0, domain.ErrLoanNotFound
	}
	return userID, nil
}

func (r *loanRepo) FindActiveByBookID(ctx context.Context, bookID int64) (*domain.Loan, error) {
	return r.findOne(ctx, loanSelect+` WHERE book_id = $1 AND returned_at IS NULL`, bookID)
}

func (r *loanRepo) findOne(ctx context.Context, query string, arg any) (*domain.Loan, error) {
	l, err := scanLoan(r.q.QueryRow(ctx, query, arg))
	if isNoRows(err) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return l, nil
}

func (r *loanRepo) List(ctx context.Context, f domain.LoanFilter) ([]*domain.Loan, error) {
	page := f.Page.Normalize()
	ds := dialect.From("loans").Prepared(true).Select(loanColumns...)
	if f.UserID != 0 {
		ds = ds.Where(goqu.C("user_id").Eq(f.UserID))
	}
	if f.BookID != 0 {
		ds = ds.Where(goqu.C("book_id").Eq(f.BookID))
	}
	if f.OngoingOnly {
		ds = ds.Where(goqu.C("returned_at").IsNull())
	}
	query, args, err := ds.
		Order(goqu.I("borrowed_at").Desc(), goqu.I("id").Desc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan list query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *loanRepo) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM loans WHERE user_id = $1 AND returned_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return n, nil
}

func (r *loanRepo) SaveReturn(ctx context.Context, l *domain.Loan) error {
	err := r.q.QueryRow(ctx, `
		UPDATE loans SET status = $2, returned_at = $3, updated_at = $3
		WHERE id = $1 AND returned_at IS NULL
		RETURNING updated_at`,
		l.ID, string(l.Status), l.ReturnedAt,
	).Scan(&l.UpdatedAt)
	if isNoRows(err) {
		return domain.ErrLoanAlreadyReturned
	}
	if err != nil {
		return fmt.Errorf("save loan return: %w", err)
	}
	return nil
}
