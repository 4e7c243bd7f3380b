// File: internal/usecase/checkout_uc.go
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
	"instrutores-na-direcao/internal/infra/metrics"
)

var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase creates hosted checkout sessions for plan upgrades.
type CheckoutUseCase interface {
	// CreateSession returns the provider payment page URL for the given paid
	// plan. origin is the frontend base URL used for redirect targets.
	CreateSession(ctx context.Context, identity adapter.Identity, planType, origin string) (string, error)
}

type checkoutUC struct {
	instructors repository.InstructorRepository
	billing     repository.BillingRepository
	provider    adapter.PaymentProvider
	prices      *model.PriceTable
	log         *zerolog.Logger
	now         func() time.Time
}

func NewCheckoutUseCase(
	instructors repository.InstructorRepository,
	billing repository.BillingRepository,
	provider adapter.PaymentProvider,
	prices *model.PriceTable,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		instructors: instructors,
		billing:     billing,
		provider:    provider,
		prices:      prices,
		log:         &l,
		now:         time.Now,
	}
}

func (u *checkoutUC) CreateSession(ctx context.Context, identity adapter.Identity, planType, origin string) (string, error) {
	plan, ok := model.ParsePaidPlan(planType)
	if !ok {
		return "", domain.ErrUnknownPlan
	}
	priceID, ok := u.prices.PriceFor(plan)
	if !ok {
		return "", domain.ErrUnknownPlan
	}

	instr, err := u.instructors.FindByUserID(ctx, nil, identity.UserID)
	if err != nil {
		return "", err
	}

	rec, err := u.billing.Find(ctx, nil, instr.ID)
	if errors.Is(err, domain.ErrNotFound) {
		rec = &model.BillingRecord{InstructorID: instr.ID, PlanType: model.PlanTrial}
	} else if err != nil {
		return "", err
	}

	customerID := rec.StripeCustomerID
	if customerID == "" {
		customerID, err = u.findOrCreateCustomer(ctx, identity, instr.ID)
		if err != nil {
			return "", err
		}
		// Persist immediately so later resolutions take the primary path.
		rec.StripeCustomerID = customerID
		rec.UpdatedAt = u.now()
		if err := u.billing.Upsert(ctx, nil, rec); err != nil {
			return "", err
		}
	}

	url, err := u.provider.CreateCheckoutSession(ctx, adapter.CheckoutParams{
		CustomerID:    customerID,
		CustomerEmail: identity.Email,
		PriceID:       priceID,
		PlanType:      plan,
		UserID:        identity.UserID,
		SuccessURL:    origin + "/instrutor/planos?success=true",
		CancelURL:     origin + "/instrutor/planos?canceled=true",
	})
	if err != nil {
		return "", err
	}
	metrics.IncCheckoutSessions(string(plan))
	u.log.Info().Str("plan", string(plan)).Str("customer_id", customerID).Msg("checkout session created")
	return url, nil
}

func (u *checkoutUC) findOrCreateCustomer(ctx context.Context, identity adapter.Identity, instructorID string) (string, error) {
	customers, err := u.provider.ListCustomersByEmail(ctx, identity.Email, 1)
	if err != nil {
		return "", err
	}
	if len(customers) > 0 {
		return customers[0].ID, nil
	}
	c, err := u.provider.CreateCustomer(ctx, identity.Email, map[string]string{
		"user_id":       identity.UserID,
		"instructor_id": instructorID,
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}
