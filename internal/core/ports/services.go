package ports

import (
	"context"
	"time"

	"github.com/bookbound/library/internal/core/domain"
)

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AuthResult is returned by both register and login.
type AuthResult struct {
	AccessToken string
	User        *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

// CreateAdminInput is used by the CLI to bootstrap administrators.
type CreateAdminInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// UpdateProfileInput carries self-service profile changes.
type UpdateProfileInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Password  *string
}

type UserService interface {
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
	UpdateMe(ctx context.Context, actor domain.Actor, in UpdateProfileInput) (*domain.User, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error)
	List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.User, int64, error)
	// SetRole changes a user's role. Admin only.
	SetRole(ctx context.Context, actor domain.Actor, id int64, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
	CreateAdmin(ctx context.Context, in CreateAdminInput) (*domain.User, error)
}

type CardService interface {
	Create(ctx context.Context, actor domain.Actor, serial string) (*domain.MembershipCard, error)
	Seed(ctx context.Context, actor domain.Actor, count int, prefix string) ([]*domain.MembershipCard, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.MembershipCard, error)
	List(ctx context.Context, actor domain.Actor, filter domain.CardFilter) ([]*domain.MembershipCard, int64, error)
	Assign(ctx context.Context, actor domain.Actor, cardID, userID int64) (*domain.MembershipCard, error)
	Archive(ctx context.Context, actor domain.Actor, id int64) (*domain.MembershipCard, error)
	// MyCard returns the actor's own card.
	MyCard(ctx context.Context, actor domain.Actor) (*domain.MembershipCard, error)
}

// CreateLoanInput asks to lend a book. UserID is only honored for admins;
// a nil DueAt means the default loan period.
type CreateLoanInput struct {
	BookID int64
	UserID int64
	DueAt  *time.Time
}

type LoanService interface {
	Create(ctx context.Context, actor domain.Actor, in CreateLoanInput) (*domain.Loan, error)
	Return(ctx context.Context, actor domain.Actor, loanID int64) (*domain.Loan, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Loan, error)
	// FindOngoing lists unreturned loans. userID 0 means all loans the actor may see.
	FindOngoing(ctx context.Context, actor domain.Actor, userID int64) ([]*domain.Loan, error)
	List(ctx context.Context, actor domain.Actor, filter domain.LoanFilter) ([]*domain.Loan, error)
}

// BookInput carries book fields for create. AuthorIDs are linked on creation.
type BookInput struct {
	ISBN          *string
	Title         string
	Description   string
	Publisher     string
	PublishedDate string
	PageCount     int
	CoverURL      string
	Language      string
	AuthorIDs     []int64
}

type BookService interface {
	Create(ctx context.Context, actor domain.Actor, in BookInput) (*domain.Book, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Book, error)
	Update(ctx context.Context, actor domain.Actor, id int64, patch domain.BookPatch) (*domain.Book, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
	Search(ctx context.Context, actor domain.Actor, q domain.BookQuery) ([]*domain.Book, int64, error)
	AttachAuthor(ctx context.Context, actor domain.Actor, bookID, authorID int64) (*domain.Book, error)
	DetachAuthor(ctx context.Context, actor domain.Actor, bookID, authorID int64) (*domain.Book, error)
}

type AuthorInput struct {
	FirstName string
	LastName  string
	Bio       string
}

type AuthorService interface {
	Create(ctx context.Context, actor domain.Actor, in AuthorInput) (*domain.Author, error)
	Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Author, error)
	List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.Author, int64, error)
	Update(ctx context.Context, actor domain.Actor, id int64, patch domain.AuthorPatch) (*domain.Author, error)
	Delete(ctx context.Context, actor domain.Actor, id int64) error
}

type EnrichmentService interface {
	// ImportByISBN creates a book from the catalog and waits for the job.
	ImportByISBN(ctx context.Context, actor domain.Actor, isbn string) (*domain.Book, error)
	// RequestEnrichment schedules a metadata refresh and returns immediately.
	RequestEnrichment(ctx context.Context, actor domain.Actor, bookID int64) (domain.JobHandle, error)
	SearchCatalog(ctx context.Context, query string, maxResults int) ([]domain.CatalogVolume, error)
}
