// File: internal/usecase/admin_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
)

var _ AdminUseCase = (*adminUC)(nil)

// AdminUseCase covers operator interventions on instructor subscriptions.
type AdminUseCase interface {
	// CancelSubscription cancels the instructor's provider subscription and
	// marks the local record inactive. A provider-side failure (e.g. already
	// canceled) is logged but does not abort the local update.
	CancelSubscription(ctx context.Context, instructorID, reason, actor string) error
}

type adminUC struct {
	billing  repository.BillingRepository
	provider adapter.PaymentProvider
	audit    repository.AuditLogRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewAdminUseCase(
	billing repository.BillingRepository,
	provider adapter.PaymentProvider,
	audit repository.AuditLogRepository,
	logger *zerolog.Logger,
) *adminUC {
	l := logger.With().Str("component", "AdminUC").Logger()
	return &adminUC{billing: billing, provider: provider, audit: audit, log: &l, now: time.Now}
}

func (u *adminUC) CancelSubscription(ctx context.Context, instructorID, reason, actor string) error {
	if instructorID == "" {
		return domain.ErrInvalidArgument
	}
	rec, err := u.billing.Find(ctx, nil, instructorID)
	if err != nil {
		return err
	}
	if rec.StripeSubscriptionID == "" {
		return domain.ErrNoActiveSubscription
	}

	if err := u.provider.CancelSubscription(ctx, rec.StripeSubscriptionID); err != nil {
		// Keep going: the local record must reflect the cancellation even if
		// the provider already did it (or is unreachable).
		u.log.Warn().Err(err).Str("subscription_id", rec.StripeSubscriptionID).Msg("provider cancellation failed")
	}

	now := u.now()
	rec.IsActive = false
	rec.SubscriptionEndsAt = &now
	rec.UpdatedAt = now
	if err := u.billing.Upsert(ctx, nil, rec); err != nil {
		return err
	}

	if reason == "" {
		reason = "Cancelled by admin"
	}
	event := &model.AuditEvent{
		ID:                 ulid.Make().String(),
		Action:             "cancel_subscription",
		ActorUserID:        actor,
		TargetInstructorID: instructorID,
		Notes:              reason,
		CreatedAt:          now,
	}
	if err := u.audit.Save(ctx, nil, event); err != nil {
		u.log.Error().Err(err).Msg("audit log write failed")
	}
	u.log.Info().Str("instructor_id", instructorID).Str("actor", actor).Msg("subscription cancelled by admin")
	return nil
}
