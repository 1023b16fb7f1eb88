package domain

import "time"

var (
	ErrUserNotFound     = newError(ErrNotFound, "user not found")
	ErrEmailTaken       = newError(ErrConflict, "email already registered")
	ErrUserHasOpenLoans = newError(ErrInvalidState, "user has ongoing loans")
)

// User models a library member or administrator.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries optional profile changes. Nil fields are left untouched.
type UserPatch struct {
	Email        *string
	FirstName    *string
	LastName     *string
	PasswordHash *string
	Role         *Role
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.PasswordHash == nil && p.Role == nil
}
