package domain

import (
	"strings"
	"time"
)

var ErrAuthorNotFound = newError(ErrNotFound, "author not found")

type Author struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorPatch carries optional author changes.
type AuthorPatch struct {
	FirstName *string
	LastName  *string
	Bio       *string
}

// SplitAuthorName turns a catalog display name into first and last name.
// The last whitespace-separated word is the last name.
func SplitAuthorName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
