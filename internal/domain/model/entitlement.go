package model

import (
	"math"
	"time"
)

// SubscriptionState is the caller-facing view of the resolved plan.
type SubscriptionState struct {
	PlanType             PlanType   `json:"planType"`
	IsActive             bool       `json:"isActive"`
	SubscriptionEnd      *time.Time `json:"subscriptionEnd,omitempty"`
	TrialEndsAt          *time.Time `json:"trialEndsAt,omitempty"`
	DaysRemaining        int        `json:"daysRemaining,omitempty"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId,omitempty"`
}

// Entitlement is the resolved access-granting state for a caller. A caller
// with no instructor profile gets IsInstructor=false and a nil Subscription;
// that is a valid result, not an error.
type Entitlement struct {
	IsInstructor bool               `json:"isInstructor"`
	Subscription *SubscriptionState `json:"subscription"`
}

// Reconcile resolves the authoritative plan from the cached billing record
// and an optional live provider subscription. It returns the entitlement to
// report and, when the provider snapshot must be folded back into the cache,
// the updated record to persist (nil means no write-back).
//
// Resolution order:
//  1. A live provider subscription always wins; its price id is mapped to a
//     tier, defaulting to essencial for unrecognized prices.
//  2. Otherwise a trial record still inside its window stays active.
//  3. Otherwise the plan is inactive. A lapsed trial is relabeled "expired";
//     a lapsed paid tier keeps its former name with isActive=false.
//
// The function is pure: given the same inputs it returns the same outputs,
// which also makes the write-back idempotent for a fixed provider snapshot.
func Reconcile(cached *BillingRecord, external *ExternalSubscription, now time.Time, prices *PriceTable) (Entitlement, *BillingRecord) {
	if external != nil {
		plan := prices.PlanFor(external.PriceID)
		started := external.StartedAt
		ends := external.CurrentPeriodEnd

		updated := *cached
		updated.PlanType = plan
		updated.IsActive = true
		updated.StripeCustomerID = external.CustomerID
		updated.StripeSubscriptionID = external.ID
		updated.SubscriptionStartedAt = &started
		updated.SubscriptionEndsAt = &ends
		updated.UpdatedAt = now

		return Entitlement{
			IsInstructor: true,
			Subscription: &SubscriptionState{
				PlanType:             plan,
				IsActive:             true,
				SubscriptionEnd:      &ends,
				StripeSubscriptionID: external.ID,
			},
		}, &updated
	}

	if cached.PlanType == PlanTrial && cached.TrialEndsAt != nil && now.Before(*cached.TrialEndsAt) {
		return Entitlement{
			IsInstructor: true,
			Subscription: &SubscriptionState{
				PlanType:      PlanTrial,
				IsActive:      true,
				TrialEndsAt:   cached.TrialEndsAt,
				DaysRemaining: daysUntil(*cached.TrialEndsAt, now),
			},
		}, nil
	}

	// Lapsed trial becomes "expired"; a lapsed paid plan keeps its old label.
	plan := cached.PlanType
	if plan == PlanTrial || plan == "" {
		plan = PlanExpired
	}
	return Entitlement{
		IsInstructor: true,
		Subscription: &SubscriptionState{PlanType: plan, IsActive: false},
	}, nil
}

func daysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
