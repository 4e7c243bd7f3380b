package adapter

import (
	"context"
	"time"

	"instrutores-na-direcao/internal/domain/model"
)

// CheckoutParams describes a subscription checkout session to create.
// CustomerID takes precedence; CustomerEmail is only used when the caller
// has no provider customer yet.
type CheckoutParams struct {
	CustomerID    string
	CustomerEmail string
	PriceID       string
	PlanType      model.PlanType
	UserID        string
	SuccessURL    string
	CancelURL     string
}

// PaymentEventType classifies provider webhook events into the cases the
// billing flow reacts to.
type PaymentEventType string

const (
	EventCheckoutCompleted   PaymentEventType = "checkout_completed"
	EventSubscriptionDeleted PaymentEventType = "subscription_deleted"
	EventInvoicePaid         PaymentEventType = "invoice_paid"
	EventIgnored             PaymentEventType = "ignored"
)

// PaymentEvent is a provider-agnostic view of a verified webhook event.
type PaymentEvent struct {
	Type           PaymentEventType
	Mode           string // provider checkout mode, e.g. "subscription"
	UserID         string // from session metadata
	PlanType       string // from session metadata
	CustomerID     string
	SubscriptionID string
	PeriodEnd      time.Time
}

// PaymentProvider is the hex port for the subscription billing provider.
// List operations are reads from the resolver's perspective; the provider
// remains the source of truth for paid-plan status.
type PaymentProvider interface {
	Name() string

	// ListSubscriptionsByCustomer returns the customer's subscriptions in the
	// provider's default ordering, all statuses (cancellations included so
	// callers can detect them).
	ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*model.ExternalSubscription, error)

	// ListCustomersByEmail may return multiple customers for one address
	// (historical re-signups).
	ListCustomersByEmail(ctx context.Context, email string, limit int) ([]*model.Customer, error)

	// GetSubscription fetches one subscription by provider id.
	GetSubscription(ctx context.Context, subscriptionID string) (*model.ExternalSubscription, error)

	CreateCustomer(ctx context.Context, email string, meta map[string]string) (*model.Customer, error)

	// CreateCheckoutSession returns the hosted payment page URL.
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)

	CancelSubscription(ctx context.Context, subscriptionID string) error

	// ParseWebhookEvent verifies the payload signature and normalizes the
	// event. Unrecognized event types yield Type=EventIgnored, not an error.
	ParseWebhookEvent(payload []byte, signature string) (*PaymentEvent, error)
}
