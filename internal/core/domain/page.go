package domain

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a 1-based pagination window.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows to skip for this page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}
