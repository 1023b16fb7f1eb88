package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	store     ports.Store
	hasher    ports.PasswordHasher
	tokens    ports.TokenSigner
	audit     ports.AuditLog
	log       zerolog.Logger
	now       func() time.Time
	dummyHash string
}

func NewAuthService(store ports.Store, hasher ports.PasswordHasher, tokens ports.TokenSigner, audit ports.AuditLog, log zerolog.Logger) *AuthService {
	// Compared against for unknown emails so both login failures cost a hash.
	dummy, err := hasher.Hash("library-login-timing-guard")
	if err != nil {
		log.Warn().Err(err).Msg("failed to prepare dummy password hash")
	}
	return &AuthService{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		audit:     audit,
		log:       log.With().Str("service", "auth").Logger(),
		now:       utcNow,
		dummyHash: dummy,
	}
}

// Register creates a USER account and hands it the first free membership
// card. Card reservation, user insert and card assignment share a single
// transaction so a failed step leaves no user and no consumed card.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if email == "" || first == "" || last == "" || in.Password == "" {
		return nil, domain.Invalid("email, first name, last name and password are required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fail(s.log, "Register", err)
	}

	var (
		user *domain.User
		card *domain.MembershipCard
	)
	err = s.store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		free, err := tx.Cards().FindFirstFree(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		u := &domain.User{
			Email:        email,
			PasswordHash: hash,
			FirstName:    first,
			LastName:     last,
			Role:         domain.RoleUser,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}

		assigned, err := tx.Cards().Assign(ctx, free.ID, u.ID, now)
		if err != nil {
			return err
		}
		user, card = u, assigned
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoFreeCard) {
			s.log.Warn().Str("email", email).Msg("registration rejected: card pool exhausted")
		}
		return nil, fail(s.log, "Register", err)
	}

	token, err := s.tokens.Sign(user)
	if err != nil {
		return nil, fail(s.log, "Register", err)
	}

	actor := domain.Actor{UserID: user.ID, Role: user.Role}
	record(ctx, s.log, s.audit, actor, domain.AuditEntry{Action: domain.AuditUserRegistered, EntityID: user.ID})
	record(ctx, s.log, s.audit, actor, domain.AuditEntry{
		Action:     domain.AuditCardAssigned,
		EntityID:   card.ID,
		Attributes: map[string]string{"serial_number": card.SerialNumber, "user_id": strconv.FormatInt(user.ID, 10)},
	})
	s.log.Info().Int64("user_id", user.ID).Str("card", card.SerialNumber).Msg("user registered")

	return &ports.AuthResult{AccessToken: token, User: user}, nil
}

// Login verifies credentials. An unknown email and a wrong password fail
// with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var user *domain.User
	err := s.store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		u, err := tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fail(s.log, "Login", err)
	}

	if s.hasher.Compare(user.PasswordHash, password) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user)
	if err != nil {
		return nil, fail(s.log, "Login", err)
	}
	return &ports.AuthResult{AccessToken: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
