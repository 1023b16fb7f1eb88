package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

const minPasswordLength = 8

type UserService struct {
	store  ports.Store
	hasher ports.PasswordHasher
	audit  ports.AuditLog
	log    zerolog.Logger
	now    func() time.Time
}

func NewUserService(store ports.Store, hasher ports.PasswordHasher, audit ports.AuditLog, log zerolog.Logger) *UserService {
	return &UserService{
		store:  store,
		hasher: hasher,
		audit:  audit,
		log:    log.With().Str("service", "user").Logger(),
		now:    utcNow,
	}
}

func (s *UserService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return s.find(ctx, actor, "Me", actor.UserID)
}

func (s *UserService) UpdateMe(ctx context.Context, actor domain.Actor, in ports.UpdateProfileInput) (*domain.User, error) {
	var patch domain.UserPatch
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, domain.Invalid("email cannot be empty")
		}
		patch.Email = &email
	}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, domain.Invalid("first name cannot be empty")
		}
		patch.FirstName = &v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, domain.Invalid("last name cannot be empty")
		}
		patch.LastName = &v
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, domain.Invalid("password must be at least 8 characters")
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fail(s.log, "UpdateMe", err)
		}
		patch.PasswordHash = &hash
	}
	if patch.Empty() {
		return s.Me(ctx, actor)
	}

	var user *domain.User
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if patch.Email != nil {
			existing, err := tx.Users().FindByEmail(ctx, *patch.Email)
			switch {
			case err == nil && existing.ID != actor.UserID:
				return domain.ErrEmailTaken
			case err != nil && !errors.Is(err, domain.ErrUserNotFound):
				return err
			}
		}
		u, err := tx.Users().Update(ctx, actor.UserID, patch)
		user = u
		return err
	})
	if err != nil {
		return nil, fail(s.log, "UpdateMe", err)
	}
	return user, nil
}

// Get returns any user for admins and only the caller otherwise.
func (s *UserService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error) {
	if !actor.IsAdmin() && !actor.Owns(id) {
		return nil, domain.ErrAccessDenied
	}
	return s.find(ctx, actor, "Get", id)
}

func (s *UserService) find(ctx context.Context, actor domain.Actor, method string, id int64) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		u, err := tx.Users().FindByID(ctx, id)
		user = u
		return err
	})
	if err != nil {
		return nil, fail(s.log, method, err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.User, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	var (
		users []*domain.User
		total int64
	)
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		var err error
		users, total, err = tx.Users().List(ctx, page.Normalize())
		return err
	})
	if err != nil {
		return nil, 0, fail(s.log, "List", err)
	}
	return users, total, nil
}

func (s *UserService) SetRole(ctx context.Context, actor domain.Actor, id int64, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Assignable() {
		return nil, domain.Invalid("role must be ADMIN or USER")
	}
	if actor.Owns(id) {
		return nil, domain.Invalid("cannot change your own role")
	}
	var user *domain.User
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		u, err := tx.Users().Update(ctx, id, domain.UserPatch{Role: &role})
		user = u
		return err
	})
	if err != nil {
		return nil, fail(s.log, "SetRole", err)
	}
	s.log.Info().Int64("user_id", id).Str("role", string(role)).Msg("role changed")
	return user, nil
}

// Delete removes a user without ongoing loans. The user's card is archived,
// not returned to the free pool.
func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.Owns(id) {
		return domain.Invalid("cannot delete your own account")
	}

	var archived *domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Users().FindByID(ctx, id); err != nil {
			return err
		}
		open, err := tx.Loans().CountActiveByUser(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrUserHasOpenLoans
		}

		card, err := tx.Cards().FindByUserID(ctx, id)
		switch {
		case err == nil:
			if archived, err = tx.Cards().Archive(ctx, card.ID, s.now()); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrUserHasNoCard):
			return err
		}
		return tx.Users().Delete(ctx, id)
	})
	if err != nil {
		return fail(s.log, "Delete", err)
	}

	record(ctx, s.log, s.audit, actor, domain.AuditEntry{Action: domain.AuditUserDeleted, EntityID: id})
	if archived != nil {
		record(ctx, s.log, s.audit, actor, domain.AuditEntry{
			Action:     domain.AuditCardArchived,
			EntityID:   archived.ID,
			Attributes: map[string]string{"serial_number": archived.SerialNumber},
		})
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// CreateAdmin bootstraps an administrator. Admins do not consume a card.
func (s *UserService) CreateAdmin(ctx context.Context, in ports.CreateAdminInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if email == "" || first == "" || last == "" {
		return nil, domain.Invalid("email, first name and last name are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Invalid("password must be at least 8 characters")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fail(s.log, "CreateAdmin", err)
	}

	now := s.now()
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    first,
		LastName:     last,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, fail(s.log, "CreateAdmin", err)
	}
	s.log.Info().Int64("user_id", user.ID).Str("email", email).Msg("admin created")
	return user, nil
}
