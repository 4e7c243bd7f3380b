// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
	"instrutores-na-direcao/internal/infra/metrics"
)

var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookUseCase applies provider webhook events to the billing store so the
// local cache converges without waiting for the next entitlement resolution.
type WebhookUseCase interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type webhookUC struct {
	instructors repository.InstructorRepository
	billing     repository.BillingRepository
	provider    adapter.PaymentProvider
	prices      *model.PriceTable
	log         *zerolog.Logger
	now         func() time.Time
}

func NewWebhookUseCase(
	instructors repository.InstructorRepository,
	billing repository.BillingRepository,
	provider adapter.PaymentProvider,
	prices *model.PriceTable,
	logger *zerolog.Logger,
) *webhookUC {
	l := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{
		instructors: instructors,
		billing:     billing,
		provider:    provider,
		prices:      prices,
		log:         &l,
		now:         time.Now,
	}
}

func (u *webhookUC) Handle(ctx context.Context, payload []byte, signature string) error {
	ev, err := u.provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWebhookSignature, err)
	}
	metrics.IncWebhookEvents(string(ev.Type))

	switch ev.Type {
	case adapter.EventCheckoutCompleted:
		return u.activateFromCheckout(ctx, ev)
	case adapter.EventSubscriptionDeleted:
		return u.deactivate(ctx, ev.SubscriptionID)
	case adapter.EventInvoicePaid:
		return u.refreshPeriodEnd(ctx, ev.SubscriptionID)
	default:
		u.log.Debug().Str("type", string(ev.Type)).Msg("webhook event ignored")
		return nil
	}
}

func (u *webhookUC) activateFromCheckout(ctx context.Context, ev *adapter.PaymentEvent) error {
	if ev.UserID == "" || ev.Mode != "subscription" {
		// One-off payments (student access) are handled by another flow.
		u.log.Debug().Str("mode", ev.Mode).Msg("checkout event without subscription context")
		return nil
	}

	instr, err := u.instructors.FindByUserID(ctx, nil, ev.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Str("user_id", ev.UserID).Msg("checkout completed for unknown instructor")
		return nil
	}
	if err != nil {
		return err
	}

	plan := model.PlanType(ev.PlanType)
	if !plan.Paid() {
		// Metadata may be missing on sessions created before the plan field
		// existed; fall back to the lowest paid tier.
		plan = model.PlanEssencial
	}

	rec, err := u.billing.Find(ctx, nil, instr.ID)
	if errors.Is(err, domain.ErrNotFound) {
		rec = &model.BillingRecord{InstructorID: instr.ID}
	} else if err != nil {
		return err
	}

	now := u.now()
	started := now
	rec.PlanType = plan
	rec.IsActive = true
	rec.StripeCustomerID = ev.CustomerID
	rec.StripeSubscriptionID = ev.SubscriptionID
	rec.SubscriptionStartedAt = &started
	rec.UpdatedAt = now

	if ev.SubscriptionID != "" {
		// Fetch the full subscription to store the real period end.
		if sub, err := u.provider.GetSubscription(ctx, ev.SubscriptionID); err == nil && sub != nil {
			rec.SubscriptionStartedAt = &sub.StartedAt
			end := sub.CurrentPeriodEnd
			rec.SubscriptionEndsAt = &end
		} else if err != nil {
			u.log.Warn().Err(err).Str("subscription_id", ev.SubscriptionID).Msg("could not fetch subscription after checkout")
		}
	}

	u.log.Info().Str("instructor_id", instr.ID).Str("plan", string(plan)).Msg("subscription activated via webhook")
	return u.billing.Upsert(ctx, nil, rec)
}

func (u *webhookUC) deactivate(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	rec, err := u.billing.FindByStripeSubscription(ctx, nil, subscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Str("subscription_id", subscriptionID).Msg("deletion event for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}
	rec.IsActive = false
	rec.PlanType = model.PlanExpired
	rec.UpdatedAt = u.now()
	u.log.Info().Str("instructor_id", rec.InstructorID).Msg("subscription deactivated via webhook")
	return u.billing.Upsert(ctx, nil, rec)
}

func (u *webhookUC) refreshPeriodEnd(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	rec, err := u.billing.FindByStripeSubscription(ctx, nil, subscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	sub, err := u.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil || !sub.Live() {
		return nil
	}
	end := sub.CurrentPeriodEnd
	rec.SubscriptionEndsAt = &end
	rec.IsActive = true
	rec.UpdatedAt = u.now()
	return u.billing.Upsert(ctx, nil, rec)
}
