package ports

import (
	"context"
	"time"

	"github.com/bookbound/library/internal/core/domain"
)

// Store opens actor-scoped transactions. Every repository call made through
// the Tx handed to fn runs in the same transaction, with row-level security
// evaluated for actor. fn returning an error rolls everything back.
type Store interface {
	WithActor(ctx context.Context, actor domain.Actor, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Users() UserRepository
	Cards() CardRepository
	Loans() LoanRepository
	Books() BookRepository
	Authors() AuthorRepository
}

type UserRepository interface {
	// Create inserts u and fills in its ID and timestamps.
	// Returns domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error)
	Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// CardRepository is the storage side of the membership card allocator.
type CardRepository interface {
	// FindFirstFree returns the free card with the lowest id and keeps it
	// locked until the transaction ends. Cards locked by concurrent
	// transactions are skipped. Returns domain.ErrNoFreeCard when none is left.
	FindFirstFree(ctx context.Context) (*domain.MembershipCard, error)
	// Assign moves a FREE card to IN_USE for userID. It fails with
	// domain.ErrCardNotFound or domain.ErrCardInUse.
	Assign(ctx context.Context, cardID, userID int64, at time.Time) (*domain.MembershipCard, error)
	Create(ctx context.Context, serial string) (*domain.MembershipCard, error)
	// CreateMany inserts the given serials, skipping ones that already exist.
	CreateMany(ctx context.Context, serials []string) ([]*domain.MembershipCard, error)
	// MaxSerialNumber returns the highest numeric suffix among serials made
	// of prefix followed by digits only, or 0.
	MaxSerialNumber(ctx context.Context, prefix string) (int, error)
	FindByID(ctx context.Context, id int64) (*domain.MembershipCard, error)
	// FindByUserID returns the user's current (non archived) card.
	FindByUserID(ctx context.Context, userID int64) (*domain.MembershipCard, error)
	List(ctx context.Context, filter domain.CardFilter) ([]*domain.MembershipCard, int64, error)
	Archive(ctx context.Context, id int64, at time.Time) (*domain.MembershipCard, error)
}

type LoanRepository interface {
	// Create inserts an ongoing loan. A concurrent active loan on the same
	// book surfaces as domain.ErrBookAlreadyLoaned.
	Create(ctx context.Context, l *domain.Loan) error
	FindByID(ctx context.Context, id int64) (*domain.Loan, error)
	// FindByIDForUpdate locks the loan row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Loan, error)
	// BorrowerOf returns the loan's user id even when row-level security
	// hides the loan from the actor, or domain.ErrLoanNotFound.
	BorrowerOf(ctx context.Context, id int64) (int64, error)
	// FindActiveByBookID returns the book's unreturned loan visible to the
	// actor, or domain.ErrLoanNotFound.
	FindActiveByBookID(ctx context.Context, bookID int64) (*domain.Loan, error)
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
	CountActiveByUser(ctx context.Context, userID int64) (int, error)
	// SaveReturn persists the status and returned_at of a returned loan.
	SaveReturn(ctx context.Context, l *domain.Loan) error
}

type BookRepository interface {
	Create(ctx context.Context, b *domain.Book) error
	FindByID(ctx context.Context, id int64) (*domain.Book, error)
	FindByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	// LockByID reads the book with a row lock held until the transaction ends.
	LockByID(ctx context.Context, id int64) (*domain.Book, error)
	Update(ctx context.Context, id int64, patch domain.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, q domain.BookQuery) ([]*domain.Book, int64, error)
	AttachAuthor(ctx context.Context, bookID, authorID int64) error
	DetachAuthor(ctx context.Context, bookID, authorID int64) error
}

type AuthorRepository interface {
	Create(ctx context.Context, a *domain.Author) error
	FindByID(ctx context.Context, id int64) (*domain.Author, error)
	FindByName(ctx context.Context, firstName, lastName string) (*domain.Author, error)
	List(ctx context.Context, page domain.Page) ([]*domain.Author, int64, error)
	Update(ctx context.Context, id int64, patch domain.AuthorPatch) (*domain.Author, error)
	Delete(ctx context.Context, id int64) error
}
