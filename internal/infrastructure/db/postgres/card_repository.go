package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/bookbound/library/internal/core/domain"
)

var cardColumns = []any{"id", "serial_number", "status", "user_id", "assigned_at", "archived_at", "created_at", "updated_at"}

const (
	cardReturning = `id, serial_number, status, user_id, assigned_at, archived_at, created_at, updated_at`
	cardSelect    = `SELECT ` + cardReturning + ` FROM membership_cards`
)

type cardRepo struct {
	q Querier
}

func scanCard(row pgx.Row) (*domain.MembershipCard, error) {
	var c domain.MembershipCard
	var status string
	if err := row.Scan(&c.ID, &c.SerialNumber, &status, &c.UserID, &c.AssignedAt, &c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.CardStatus(status)
	return &c, nil
}

// FindFirstFree locks the lowest free card. SKIP LOCKED lets concurrent
// registrations each take a different card instead of queueing on one row.
func (r *cardRepo) FindFirstFree(ctx context.Context) (*domain.MembershipCard, error) {
	c, err := scanCard(r.q.QueryRow(ctx, cardSelect+`
		WHERE status = 'FREE' AND archived_at IS NULL
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED`))
	if isNoRows(err) {
		return nil, domain.ErrNoFreeCard
	}
	if err != nil {
		return nil, fmt.Errorf("find free card: %w", err)
	}
	return c, nil
}

func (r *cardRepo) Assign(ctx context.Context, cardID, userID int64, at time.Time) (*domain.MembershipCard, error) {
	c, err := scanCard(r.q.QueryRow(ctx, `
		UPDATE membership_cards
		SET status = 'IN_USE', user_id = $2, assigned_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'FREE' AND archived_at IS NULL
		RETURNING `+cardReturning, cardID, userID, at))
	switch {
	case err == nil:
		return c, nil
	case isUniqueViolation(err):
		return nil, domain.ErrUserAlreadyCard
	case isForeignKeyViolation(err):
		return nil, domain.ErrUserNotFound
	case !isNoRows(err):
		return nil, fmt.Errorf("assign card: %w", err)
	}

	// Nothing matched: tell a missing card apart from one that is taken.
	current, err := r.FindByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if current.ArchivedAt != nil {
		return nil, domain.ErrCardArchived
	}
	return nil, domain.ErrCardInUse
}

func (r *cardRepo) Create(ctx context.Context, serial string) (*domain.MembershipCard, error) {
	c, err := scanCard(r.q.QueryRow(ctx,
		`INSERT INTO membership_cards (serial_number) VALUES ($1) RETURNING `+cardReturning, serial))
	if isUniqueViolation(err) {
		return nil, domain.ErrSerialTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}
	return c, nil
}

func (r *cardRepo) CreateMany(ctx context.Context, serials []string) ([]*domain.MembershipCard, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	rows := make([]any, len(serials))
	for i, s := range serials {
		rows[i] = goqu.Record{"serial_number": s}
	}
	query, args, err := dialect.Insert("membership_cards").Prepared(true).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		Returning(cardColumns...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build card insert: %w", err)
	}

	res, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert cards: %w", err)
	}
	defer res.Close()

	cards := make([]*domain.MembershipCard, 0, len(serials))
	for res.Next() {
		c, err := scanCard(res)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, res.Err()
}

func (r *cardRepo) MaxSerialNumber(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT coalesce(max(substr(serial_number, length($1) + 1)::bigint), 0)
		FROM membership_cards
		WHERE starts_with(serial_number, $1)
		  AND substr(serial_number, length($1) + 1) ~ '^[0-9]{1,9}$'`, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max card serial: %w", err)
	}
	return n, nil
}

func (r *cardRepo) FindByID(ctx context.Context, id int64) (*domain.MembershipCard, error) {
	c, err := scanCard(r.q.QueryRow(ctx, cardSelect+` WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find card: %w", err)
	}
	return c, nil
}

func (r *cardRepo) FindByUserID(ctx context.Context, userID int64) (*domain.MembershipCard, error) {
	c, err := scanCard(r.q.QueryRow(ctx, cardSelect+` WHERE user_id = $1 AND archived_at IS NULL`, userID))
	if isNoRows(err) {
		return nil, domain.ErrUserHasNoCard
	}
	if err != nil {
		return nil, fmt.Errorf("find card by user: %w", err)
	}
	return c, nil
}

func (r *cardRepo) List(ctx context.Context, f domain.CardFilter) ([]*domain.MembershipCard, int64, error) {
	page := f.Page.Normalize()
	base := dialect.From("membership_cards").Prepared(true)
	if f.Status != "" {
		base = base.Where(goqu.C("status").Eq(string(f.Status)))
	}

	total, err := count(ctx, r.q, base)
	if err != nil {
		return nil, 0, fmt.Errorf("count cards: %w", err)
	}

	query, args, err := base.Select(cardColumns...).
		Order(goqu.I("id").Asc()).
		Limit(uint(page.Limit)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build card list query: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*domain.MembershipCard, 0, page.Limit)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, total, rows.Err()
}

func (r *cardRepo) Archive(ctx context.Context, id int64, at time.Time) (*domain.MembershipCard, error) {
	c, err := scanCard(r.q.QueryRow(ctx, `
		UPDATE membership_cards SET archived_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING `+cardReturning, id, at))
	if isNoRows(err) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive card: %w", err)
	}
	return c, nil
}
