package domain

import "time"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanOngoing  LoanStatus = "ONGOING"
	LoanReturned LoanStatus = "RETURNED"
	LoanLate     LoanStatus = "LATE"
)

// DefaultLoanPeriod is how long a book may be kept when no due date is given.
const DefaultLoanPeriod = 21 * 24 * time.Hour

var (
	ErrLoanNotFound        = newError(ErrNotFound, "loan not found")
	ErrBookAlreadyLoaned   = newError(ErrInvalidState, "book already loaned")
	ErrLoanAlreadyReturned = newError(ErrInvalidState, "already returned")
	ErrNotBorrower         = newError(ErrForbidden, "only the borrower can return this loan")
	ErrDueDateInPast       = newError(ErrInvalidInput, "due date must be in the future")
)

// Loan records a single borrowing of a book by a user.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	Status     LoanStatus `json:"status"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Active reports whether the book is still out.
func (l *Loan) Active() bool {
	return l.ReturnedAt == nil
}

// LateAt reports whether returning at t misses the due date. Returning exactly
// at the due date is on time; a loan without a due date is never late.
func (l *Loan) LateAt(t time.Time) bool {
	if l.DueAt == nil {
		return false
	}
	return t.After(*l.DueAt)
}

// Return closes the loan at t. It fails if the loan was already closed.
func (l *Loan) Return(at time.Time) error {
	if !l.Active() || l.Status != LoanOngoing {
		return ErrLoanAlreadyReturned
	}
	l.ReturnedAt = &at
	l.UpdatedAt = at
	if l.LateAt(at) {
		l.Status = LoanLate
	} else {
		l.Status = LoanReturned
	}
	return nil
}

// LoanFilter narrows loan listings. Zero values mean no constraint.
type LoanFilter struct {
	UserID      int64
	BookID      int64
	OngoingOnly bool
	Page
}
