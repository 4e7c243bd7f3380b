package model

import "time"

// BillingRecord is the locally cached subscription state for one instructor.
// For paid tiers the payment provider is the authority and this record is
// only a cache kept in sync by the resolver and the webhook flow; for trials
// the record itself is authoritative (is_active is derived from trial_ends_at
// at read time, never trusted stale).
type BillingRecord struct {
	InstructorID          string
	PlanType              PlanType
	IsActive              bool
	TrialEndsAt           *time.Time
	StripeCustomerID      string
	StripeSubscriptionID  string
	SubscriptionStartedAt *time.Time
	SubscriptionEndsAt    *time.Time
	UpdatedAt             time.Time
}

// NewTrialBillingRecord creates the record written at instructor registration.
func NewTrialBillingRecord(instructorID string, now time.Time, trialDays int) *BillingRecord {
	ends := now.Add(time.Duration(trialDays) * 24 * time.Hour)
	return &BillingRecord{
		InstructorID: instructorID,
		PlanType:     PlanTrial,
		IsActive:     true,
		TrialEndsAt:  &ends,
		UpdatedAt:    now,
	}
}

// ExternalSubscriptionStatus is the provider-reported subscription status,
// collapsed to the three cases the resolver distinguishes.
type ExternalSubscriptionStatus string

const (
	ExternalStatusActive   ExternalSubscriptionStatus = "active"
	ExternalStatusTrialing ExternalSubscriptionStatus = "trialing"
	ExternalStatusOther    ExternalSubscriptionStatus = "other"
)

// ExternalSubscription is a transient snapshot of one provider subscription.
// It is never persisted; the resolver folds it into the BillingRecord.
type ExternalSubscription struct {
	ID               string
	CustomerID       string
	Status           ExternalSubscriptionStatus
	PriceID          string
	StartedAt        time.Time
	CurrentPeriodEnd time.Time
}

// Live reports whether the subscription currently grants access.
func (s *ExternalSubscription) Live() bool {
	return s.Status == ExternalStatusActive || s.Status == ExternalStatusTrialing
}

// FirstLiveSubscription returns the first active/trialing subscription in the
// provider's default ordering, or nil. No secondary ranking is applied when a
// customer carries several live subscriptions.
func FirstLiveSubscription(subs []*ExternalSubscription) *ExternalSubscription {
	for _, s := range subs {
		if s.Live() {
			return s
		}
	}
	return nil
}

// Customer is a provider customer record, as returned by email search.
type Customer struct {
	ID    string
	Email string
}
