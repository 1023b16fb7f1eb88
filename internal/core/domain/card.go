package domain

import "time"

// CardStatus is the availability state of a membership card.
type CardStatus string

const (
	CardFree  CardStatus = "FREE"
	CardInUse CardStatus = "IN_USE"
)

var (
	ErrNoFreeCard      = newError(ErrResourceExhausted, "no free membership cards available")
	ErrCardNotFound    = newError(ErrNotFound, "membership card not found")
	ErrCardInUse       = newError(ErrInvalidState, "membership card already in use")
	ErrCardArchived    = newError(ErrInvalidState, "membership card is archived")
	ErrSerialTaken     = newError(ErrConflict, "serial number already exists")
	ErrUserAlreadyCard = newError(ErrConflict, "user already holds a membership card")
	ErrUserHasNoCard   = newError(ErrNotFound, "user has no membership card")
)

// MembershipCard is a physical library card. Cards are seeded FREE and move
// to IN_USE once, when assigned to a user.
type MembershipCard struct {
	ID           int64      `json:"id"`
	SerialNumber string     `json:"serial_number"`
	Status       CardStatus `json:"status"`
	UserID       *int64     `json:"user_id,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Assignable reports whether the card can be handed to a user.
func (c *MembershipCard) Assignable() error {
	if c.ArchivedAt != nil {
		return ErrCardArchived
	}
	if c.Status != CardFree {
		return ErrCardInUse
	}
	return nil
}

// CardFilter narrows card listings.
type CardFilter struct {
	Status CardStatus // empty = any
	Page
}
