package handler

import (
	"time"

	"github.com/bookbound/library/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// listResponse wraps one page of results.
type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func newList[T any](items []T, total int64, p domain.Page) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}

// --- Auth ---

type registerRequest struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	Password  string `json:"password"   validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

// --- Users ---

type updateMeRequest struct {
	Email     *string `json:"email"      validate:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=1,max=100"`
	Password  *string `json:"password"   validate:"omitempty,min=8,max=72"`
}

type updateUserRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN USER"`
}

// --- Cards ---

type createCardRequest struct {
	SerialNumber string `json:"serial_number" validate:"required,max=64"`
}

type seedCardsRequest struct {
	Count  int    `json:"count"  validate:"required,min=1,max=1000"`
	Prefix string `json:"prefix" validate:"omitempty,alphanum,max=16"`
}

type assignCardRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// --- Loans ---

type createLoanRequest struct {
	BookID int64      `json:"book_id" validate:"required,gt=0"`
	UserID int64      `json:"user_id" validate:"omitempty,gt=0"`
	DueAt  *time.Time `json:"due_at"`
}

// --- Books ---

type createBookRequest struct {
	ISBN          *string `json:"isbn"           validate:"omitempty,max=17"`
	Title         string  `json:"title"          validate:"required,max=500"`
	Description   string  `json:"description"    validate:"max=10000"`
	Publisher     string  `json:"publisher"      validate:"max=255"`
	PublishedDate string  `json:"published_date" validate:"max=32"`
	PageCount     int     `json:"page_count"     validate:"min=0"`
	CoverURL      string  `json:"cover_url"      validate:"omitempty,url"`
	Language      string  `json:"language"       validate:"max=16"`
	AuthorIDs     []int64 `json:"author_ids"     validate:"dive,gt=0"`
}

type updateBookRequest struct {
	ISBN          *string `json:"isbn"           validate:"omitempty,max=17"`
	Title         *string `json:"title"          validate:"omitempty,min=1,max=500"`
	Description   *string `json:"description"    validate:"omitempty,max=10000"`
	Publisher     *string `json:"publisher"      validate:"omitempty,max=255"`
	PublishedDate *string `json:"published_date" validate:"omitempty,max=32"`
	PageCount     *int    `json:"page_count"     validate:"omitempty,min=0"`
	CoverURL      *string `json:"cover_url"      validate:"omitempty,url"`
	Language      *string `json:"language"       validate:"omitempty,max=16"`
}

type importBookRequest struct {
	ISBN string `json:"isbn" validate:"required"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
	Type  string `json:"type"`
}

// --- Authors ---

type createAuthorRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
	Bio       string `json:"bio"        validate:"max=10000"`
}

type updateAuthorRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio"        validate:"omitempty,max=10000"`
}
