package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

// LoanService runs the borrow and return workflow.
type LoanService struct {
	store      ports.Store
	audit      ports.AuditLog
	log        zerolog.Logger
	now        func() time.Time
	loanPeriod time.Duration
}

func NewLoanService(store ports.Store, audit ports.AuditLog, loanPeriod time.Duration, log zerolog.Logger) *LoanService {
	if loanPeriod <= 0 {
		loanPeriod = domain.DefaultLoanPeriod
	}
	return &LoanService{
		store:      store,
		audit:      audit,
		log:        log.With().Str("service", "loan").Logger(),
		now:        utcNow,
		loanPeriod: loanPeriod,
	}
}

// Create lends a book. Users borrow for themselves; admins may borrow on
// behalf of another user. The book row stays locked until commit, and the
// active-loan unique index rejects any loan that slipped past the check.
func (s *LoanService) Create(ctx context.Context, actor domain.Actor, in ports.CreateLoanInput) (*domain.Loan, error) {
	borrower := actor.UserID
	if in.UserID != 0 && in.UserID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, domain.ErrAccessDenied
		}
		borrower = in.UserID
	}
	if borrower == 0 {
		return nil, domain.Invalid("user_id is required")
	}
	if in.BookID == 0 {
		return nil, domain.Invalid("book_id is required")
	}

	now := s.now()
	due := now.Add(s.loanPeriod)
	if in.DueAt != nil {
		due = in.DueAt.UTC()
	}
	if !due.After(now) {
		return nil, domain.ErrDueDateInPast
	}

	loan := &domain.Loan{
		UserID:     borrower,
		BookID:     in.BookID,
		Status:     domain.LoanOngoing,
		BorrowedAt: now,
		DueAt:      &due,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if borrower != actor.UserID {
			if _, err := tx.Users().FindByID(ctx, borrower); err != nil {
				return err
			}
		}
		if _, err := tx.Books().LockByID(ctx, in.BookID); err != nil {
			return err
		}
		_, err := tx.Loans().FindActiveByBookID(ctx, in.BookID)
		switch {
		case err == nil:
			return domain.ErrBookAlreadyLoaned
		case !errors.Is(err, domain.ErrLoanNotFound):
			return err
		}
		return tx.Loans().Create(ctx, loan)
	})
	if err != nil {
		return nil, fail(s.log, "Create", err)
	}

	record(ctx, s.log, s.audit, actor, domain.AuditEntry{
		Action:   domain.AuditLoanCreated,
		EntityID: loan.ID,
		Attributes: map[string]string{
			"book_id": strconv.FormatInt(loan.BookID, 10),
			"user_id": strconv.FormatInt(loan.UserID, 10),
		},
	})
	s.log.Info().Int64("loan_id", loan.ID).Int64("book_id", loan.BookID).Int64("user_id", loan.UserID).Msg("loan created")
	return loan, nil
}

// Return closes a loan. Only the borrower may return it, and a loan can be
// returned once.
func (s *LoanService) Return(ctx context.Context, actor domain.Actor, loanID int64) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		// Row-level security hides foreign loans, so ownership is settled
		// before the locked read.
		borrower, err := tx.Loans().BorrowerOf(ctx, loanID)
		if err != nil {
			return err
		}
		if borrower != actor.UserID {
			return domain.ErrNotBorrower
		}
		l, err := tx.Loans().FindByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !l.Active() {
			return domain.ErrLoanAlreadyReturned
		}
		if err := l.Return(s.now()); err != nil {
			return err
		}
		if err := tx.Loans().SaveReturn(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "Return", err)
	}

	record(ctx, s.log, s.audit, actor, domain.AuditEntry{
		Action:     domain.AuditLoanReturned,
		EntityID:   loan.ID,
		Attributes: map[string]string{"status": string(loan.Status), "book_id": strconv.FormatInt(loan.BookID, 10)},
	})
	s.log.Info().Int64("loan_id", loan.ID).Str("status", string(loan.Status)).Msg("loan returned")
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		l, err := tx.Loans().FindByID(ctx, id)
		if err != nil {
			return err
		}
		// Row-level security hides foreign loans in the database; this keeps
		// the same answer for stores without it.
		if !actor.Privileged() && l.UserID != actor.UserID {
			return domain.ErrLoanNotFound
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "Get", err)
	}
	return loan, nil
}

func (s *LoanService) FindOngoing(ctx context.Context, actor domain.Actor, userID int64) ([]*domain.Loan, error) {
	return s.list(ctx, actor, "FindOngoing", domain.LoanFilter{UserID: userID, OngoingOnly: true})
}

func (s *LoanService) List(ctx context.Context, actor domain.Actor, filter domain.LoanFilter) ([]*domain.Loan, error) {
	return s.list(ctx, actor, "List", filter)
}

func (s *LoanService) list(ctx context.Context, actor domain.Actor, method string, filter domain.LoanFilter) ([]*domain.Loan, error) {
	if !actor.Privileged() {
		filter.UserID = actor.UserID
	}
	filter.Page = filter.Page.Normalize()

	var loans []*domain.Loan
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		var err error
		loans, err = tx.Loans().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fail(s.log, method, err)
	}
	return loans, nil
}
