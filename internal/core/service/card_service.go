package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

const (
	DefaultSerialPrefix = "BB"
	maxSeedBatch        = 1000
)

// CardService administers the membership card pool.
type CardService struct {
	store ports.Store
	audit ports.AuditLog
	log   zerolog.Logger
	now   func() time.Time
}

func NewCardService(store ports.Store, audit ports.AuditLog, log zerolog.Logger) *CardService {
	return &CardService{
		store: store,
		audit: audit,
		log:   log.With().Str("service", "card").Logger(),
		now:   utcNow,
	}
}

func (s *CardService) Create(ctx context.Context, actor domain.Actor, serial string) (*domain.MembershipCard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	serial = strings.ToUpper(strings.TrimSpace(serial))
	if serial == "" {
		return nil, domain.Invalid("serial number is required")
	}

	var card *domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		c, err := tx.Cards().Create(ctx, serial)
		card = c
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Create", err)
	}
	return card, nil
}

// Seed adds count FREE cards numbered after the highest existing serial with
// prefix, e.g. BB0001, BB0002. Either all count cards are created or none.
func (s *CardService) Seed(ctx context.Context, actor domain.Actor, count int, prefix string) ([]*domain.MembershipCard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if count < 1 || count > maxSeedBatch {
		return nil, domain.Invalid(fmt.Sprintf("count must be between 1 and %d", maxSeedBatch))
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultSerialPrefix
	}

	var cards []*domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		last, err := tx.Cards().MaxSerialNumber(ctx, prefix)
		if err != nil {
			return err
		}
		serials := make([]string, count)
		for i := range serials {
			serials[i] = fmt.Sprintf("%s%04d", prefix, last+i+1)
		}
		cards, err = tx.Cards().CreateMany(ctx, serials)
		if err != nil {
			return err
		}
		// A concurrent seed took some of the serials.
		if len(cards) != count {
			return domain.ErrSerialTaken
		}
		return nil
	})
	if err != nil {
		return nil, fail(s.log, "Seed", err)
	}
	s.log.Info().Str("prefix", prefix).Int("requested", count).Int("created", len(cards)).Msg("cards seeded")
	return cards, nil
}

func (s *CardService) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.MembershipCard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var card *domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		c, err := tx.Cards().FindByID(ctx, id)
		card = c
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Get", err)
	}
	return card, nil
}

func (s *CardService) List(ctx context.Context, actor domain.Actor, filter domain.CardFilter) ([]*domain.MembershipCard, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && filter.Status != domain.CardFree && filter.Status != domain.CardInUse {
		return nil, 0, domain.Invalid("status must be FREE or IN_USE")
	}
	filter.Page = filter.Page.Normalize()

	var (
		cards []*domain.MembershipCard
		total int64
	)
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		var err error
		cards, total, err = tx.Cards().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, fail(s.log, "List", err)
	}
	return cards, total, nil
}

// Assign hands a specific FREE card to a user who holds no card yet.
func (s *CardService) Assign(ctx context.Context, actor domain.Actor, cardID, userID int64) (*domain.MembershipCard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var card *domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			return err
		}
		_, err := tx.Cards().FindByUserID(ctx, userID)
		switch {
		case err == nil:
			return domain.ErrUserAlreadyCard
		case !errors.Is(err, domain.ErrUserHasNoCard):
			return err
		}

		current, err := tx.Cards().FindByID(ctx, cardID)
		if err != nil {
			return err
		}
		if err := current.Assignable(); err != nil {
			return err
		}
		card, err = tx.Cards().Assign(ctx, cardID, userID, s.now())
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Assign", err)
	}

	record(ctx, s.log, s.audit, actor, domain.AuditEntry{
		Action:     domain.AuditCardAssigned,
		EntityID:   card.ID,
		Attributes: map[string]string{"serial_number": card.SerialNumber, "user_id": strconv.FormatInt(userID, 10)},
	})
	s.log.Info().Int64("card_id", card.ID).Int64("user_id", userID).Msg("card assigned")
	return card, nil
}

// Archive retires a card. Archived cards are never handed out again.
func (s *CardService) Archive(ctx context.Context, actor domain.Actor, id int64) (*domain.MembershipCard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var card *domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		current, err := tx.Cards().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.ArchivedAt != nil {
			return domain.ErrCardArchived
		}
		card, err = tx.Cards().Archive(ctx, id, s.now())
		return err
	})
	if err != nil {
		return nil, fail(s.log, "Archive", err)
	}

	record(ctx, s.log, s.audit, actor, domain.AuditEntry{
		Action:     domain.AuditCardArchived,
		EntityID:   card.ID,
		Attributes: map[string]string{"serial_number": card.SerialNumber},
	})
	return card, nil
}

func (s *CardService) MyCard(ctx context.Context, actor domain.Actor) (*domain.MembershipCard, error) {
	var card *domain.MembershipCard
	err := s.store.WithActor(ctx, actor, func(ctx context.Context, tx ports.Tx) error {
		c, err := tx.Cards().FindByUserID(ctx, actor.UserID)
		card = c
		return err
	})
	if err != nil {
		return nil, fail(s.log, "MyCard", err)
	}
	return card, nil
}
