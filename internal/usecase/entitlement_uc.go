// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
	"instrutores-na-direcao/internal/infra/logging"
	"instrutores-na-direcao/internal/infra/metrics"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase resolves the authoritative plan for a caller by
// cross-referencing the local billing record against the payment provider's
// live subscription list.
type EntitlementUseCase interface {
	Resolve(ctx context.Context, identity adapter.Identity) (*model.Entitlement, error)
}

type entitlementUC struct {
	instructors repository.InstructorRepository
	billing     repository.BillingRepository
	provider    adapter.PaymentProvider
	prices      *model.PriceTable
	emailLimit  int
	log         *zerolog.Logger
	now         func() time.Time
}

func NewEntitlementUseCase(
	instructors repository.InstructorRepository,
	billing repository.BillingRepository,
	provider adapter.PaymentProvider,
	prices *model.PriceTable,
	emailSearchLimit int,
	logger *zerolog.Logger,
) *entitlementUC {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	if emailSearchLimit <= 0 {
		emailSearchLimit = 10
	}
	return &entitlementUC{
		instructors: instructors,
		billing:     billing,
		provider:    provider,
		prices:      prices,
		emailLimit:  emailSearchLimit,
		log:         &l,
		now:         time.Now,
	}
}

// subscriptionSearch is one step of the prioritized live-subscription lookup.
// Strategies run in declaration order; the first non-nil result wins, so a
// later strategy is never invoked once an earlier one matched.
type subscriptionSearch struct {
	name string
	run  func(ctx context.Context) (*model.ExternalSubscription, error)
}

// Resolve implements the priority-ordered source resolution:
//
//	stored customer id -> email fallback -> cached trial -> lapsed.
//
// A live provider subscription is folded back into the billing record
// (idempotent upsert, last write wins under concurrent calls). Provider
// errors propagate: the caller sees a request-level failure rather than
// stale cached data.
func (u *entitlementUC) Resolve(ctx context.Context, identity adapter.Identity) (*model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Resolve")()

	instr, err := u.instructors.FindByUserID(ctx, nil, identity.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.Entitlement{IsInstructor: false}, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := u.billing.Find(ctx, nil, instr.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// An instructor without a billing record cannot be resolved; report
		// the same empty result as a missing profile.
		return &model.Entitlement{IsInstructor: false}, nil
	}
	if err != nil {
		return nil, err
	}

	external, err := u.searchLiveSubscription(ctx, rec, identity.Email)
	if err != nil {
		return nil, err
	}

	ent, updated := model.Reconcile(rec, external, u.now(), u.prices)
	if updated != nil {
		if err := u.billing.Upsert(ctx, nil, updated); err != nil {
			return nil, err
		}
	}
	metrics.IncEntitlementResolved(string(ent.Subscription.PlanType), ent.Subscription.IsActive)
	return &ent, nil
}

func (u *entitlementUC) searchLiveSubscription(ctx context.Context, rec *model.BillingRecord, email string) (*model.ExternalSubscription, error) {
	for _, s := range u.searchStrategies(rec, email) {
		sub, err := s.run(ctx)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			metrics.IncEntitlementStrategyHit(s.name)
			u.log.Debug().Str("strategy", s.name).Str("subscription_id", sub.ID).Msg("live subscription found")
			return sub, nil
		}
	}
	return nil, nil
}

// searchStrategies builds the prioritized lookup list. The stored customer id
// is the most reliable source; the email search covers records that lost the
// id (or never had one) across historical re-signups.
func (u *entitlementUC) searchStrategies(rec *model.BillingRecord, email string) []subscriptionSearch {
	var out []subscriptionSearch

	if rec.StripeCustomerID != "" {
		customerID := rec.StripeCustomerID
		out = append(out, subscriptionSearch{
			name: "stored-customer",
			run: func(ctx context.Context) (*model.ExternalSubscription, error) {
				subs, err := u.provider.ListSubscriptionsByCustomer(ctx, customerID)
				if err != nil {
					return nil, err
				}
				return model.FirstLiveSubscription(subs), nil
			},
		})
	}

	out = append(out, subscriptionSearch{
		name: "email-fallback",
		run: func(ctx context.Context) (*model.ExternalSubscription, error) {
			customers, err := u.provider.ListCustomersByEmail(ctx, email, u.emailLimit)
			if err != nil {
				return nil, err
			}
			for _, c := range customers {
				subs, err := u.provider.ListSubscriptionsByCustomer(ctx, c.ID)
				if err != nil {
					return nil, err
				}
				if sub := model.FirstLiveSubscription(subs); sub != nil {
					// First customer with a live subscription wins; no
					// cross-customer ranking is applied.
					sub.CustomerID = c.ID
					return sub, nil
				}
			}
			return nil, nil
		},
	})

	return out
}
