package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func utcNow() time.Time { return time.Now().UTC() }

// fail passes domain errors through unchanged. Anything else is logged with
// the failing method and reported as ErrInternal.
func fail(log zerolog.Logger, method string, err error) error {
	if err == nil || domain.IsDomain(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Str("method", method).Msg("request cancelled")
	} else {
		log.Error().Err(err).Str("method", method).Msg("unexpected failure")
	}
	return fmt.Errorf("%w: %w", domain.ErrInternal, err)
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return domain.ErrAccessDenied
	}
	return nil
}

// record writes an audit entry. Failures are logged and otherwise ignored.
func record(ctx context.Context, log zerolog.Logger, audit ports.AuditLog, actor domain.Actor, entry domain.AuditEntry) {
	if audit == nil {
		return
	}
	entry.ActorID = actor.UserID
	entry.ActorRole = actor.Role
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = utcNow()
	}
	if err := audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", string(entry.Action)).Int64("entity_id", entry.EntityID).Msg("failed to record audit entry")
	}
}
