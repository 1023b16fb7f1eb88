package domain

import (
	"strings"
	"time"
)

var (
	ErrBookNotFound    = newError(ErrNotFound, "book not found")
	ErrISBNTaken       = newError(ErrConflict, "a book with this isbn already exists")
	ErrBookHasOpenLoan = newError(ErrInvalidState, "book has an ongoing loan")
	ErrInvalidISBN     = newError(ErrInvalidInput, "isbn must have 10 or 13 digits")
)

// NormalizeISBN strips separators and validates the digit count. The final
// character of an ISBN-10 may be an X check digit.
func NormalizeISBN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r == '-' || r == ' ':
			continue
		case r >= '0' && r <= '9', r == 'X':
			b.WriteRune(r)
		default:
			return "", ErrInvalidISBN
		}
	}
	isbn := b.String()
	switch len(isbn) {
	case 10:
		if strings.Contains(isbn[:9], "X") {
			return "", ErrInvalidISBN
		}
	case 13:
		if strings.Contains(isbn, "X") {
			return "", ErrInvalidISBN
		}
	default:
		return "", ErrInvalidISBN
	}
	return isbn, nil
}

// Book is a catalog entry. Metadata fields may be filled in later by enrichment.
type Book struct {
	ID            int64     `json:"id"`
	ISBN          *string   `json:"isbn,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	Language      string    `json:"language,omitempty"`
	Authors       []Author  `json:"authors"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BookPatch carries optional book changes. Nil fields are left untouched.
type BookPatch struct {
	ISBN          *string
	Title         *string
	Description   *string
	Publisher     *string
	PublishedDate *string
	PageCount     *int
	CoverURL      *string
	Language      *string
}

// FillFrom returns a patch setting every field of b that is empty and
// present in the catalog volume. ISBN and title are left alone.
func (b *Book) FillFrom(v CatalogVolume) BookPatch {
	var p BookPatch
	if b.Description == "" && v.Description != "" {
		p.Description = &v.Description
	}
	if b.Publisher == "" && v.Publisher != "" {
		p.Publisher = &v.Publisher
	}
	if b.PublishedDate == "" && v.PublishedDate != "" {
		p.PublishedDate = &v.PublishedDate
	}
	if b.PageCount == 0 && v.PageCount > 0 {
		p.PageCount = &v.PageCount
	}
	if b.CoverURL == "" && v.CoverURL != "" {
		p.CoverURL = &v.CoverURL
	}
	if b.Language == "" && v.Language != "" {
		p.Language = &v.Language
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.ISBN == nil && p.Title == nil && p.Description == nil && p.Publisher == nil &&
		p.PublishedDate == nil && p.PageCount == nil && p.CoverURL == nil && p.Language == nil
}

// BookQuery drives book search. Q matches the full-text vector or an exact ISBN.
type BookQuery struct {
	Q        string
	AuthorID int64
	Page
}

// CatalogVolume is a book record as returned by the external catalog.
type CatalogVolume struct {
	ISBN          string   `json:"isbn,omitempty"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Description   string   `json:"description,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Language      string   `json:"language,omitempty"`
}
