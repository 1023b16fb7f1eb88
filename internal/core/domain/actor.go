package domain

// Role is the authorization role of a user or of the acting principal.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	// RoleSystem is never stored on a user. It identifies work the
	// application does on its own behalf: registration, login, background jobs.
	RoleSystem Role = "SYSTEM"
)

// Assignable reports whether r may be stored on a user record.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleUser
}

// Actor is the identity a transaction runs as. It drives both the service
// level role checks and the row-level security session of the store.
type Actor struct {
	UserID int64
	Role   Role
}

// SystemActor is used for anonymous workflows and background jobs.
var SystemActor = Actor{Role: RoleSystem}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// Privileged reports whether the actor may act on rows it does not own.
func (a Actor) Privileged() bool { return a.IsAdmin() || a.IsSystem() }

// Owns reports whether the actor is the given user.
func (a Actor) Owns(userID int64) bool {
	return a.UserID != 0 && a.UserID == userID
}
