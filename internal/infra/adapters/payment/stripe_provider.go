package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/infra/metrics"
)

var _ adapter.PaymentProvider = (*StripeProvider)(nil)

// StripeProvider implements the payment port against the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}, nil
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*model.ExternalSubscription, error) {
	start := time.Now()
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	var out []*model.ExternalSubscription
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		out = append(out, toExternal(iter.Subscription()))
	}
	err := iter.Err()
	metrics.ObserveProviderCall("subscriptions.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", customerID, err)
	}
	return out, nil
}

func (p *StripeProvider) ListCustomersByEmail(ctx context.Context, email string, limit int) ([]*model.Customer, error) {
	start := time.Now()
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	if limit > 0 {
		params.Limit = stripe.Int64(int64(limit))
	}

	var out []*model.Customer
	iter := p.api.Customers.List(params)
	for iter.Next() {
		c := iter.Customer()
		out = append(out, &model.Customer{ID: c.ID, Email: c.Email})
	}
	err := iter.Err()
	metrics.ObserveProviderCall("customers.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("list customers by email: %w", err)
	}
	return out, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*model.ExternalSubscription, error) {
	start := time.Now()
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(subscriptionID, params)
	metrics.ObserveProviderCall("subscriptions.get", start, err)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	return toExternal(sub), nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email string, meta map[string]string) (*model.Customer, error) {
	start := time.Now()
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	c, err := p.api.Customers.New(params)
	metrics.ObserveProviderCall("customers.create", start, err)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &model.Customer{ID: c.ID, Email: c.Email}, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, cp adapter.CheckoutParams) (string, error) {
	start := time.Now()
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(cp.SuccessURL),
		CancelURL:  stripe.String(cp.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(cp.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if cp.CustomerID != "" {
		params.Customer = stripe.String(cp.CustomerID)
	} else if cp.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(cp.CustomerEmail)
	}
	params.AddMetadata("user_id", cp.UserID)
	params.AddMetadata("plan_type", string(cp.PlanType))

	sess, err := p.api.CheckoutSessions.New(params)
	metrics.ObserveProviderCall("checkout.sessions.create", start, err)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	start := time.Now()
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := p.api.Subscriptions.Cancel(subscriptionID, params)
	metrics.ObserveProviderCall("subscriptions.cancel", start, err)
	if err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (p *StripeProvider) ParseWebhookEvent(payload []byte, signature string) (*adapter.PaymentEvent, error) {
	var event stripe.Event
	if p.webhookSecret == "" {
		// Signature checks are skipped only in dev configs without a secret.
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWebhookSignature, err)
		}
	} else {
		var err error
		event, err = webhook.ConstructEvent(payload, signature, p.webhookSecret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrWebhookSignature, err)
		}
	}

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		ev := &adapter.PaymentEvent{
			Type:     adapter.EventCheckoutCompleted,
			Mode:     string(cs.Mode),
			UserID:   cs.Metadata["user_id"],
			PlanType: cs.Metadata["plan_type"],
		}
		if cs.Customer != nil {
			ev.CustomerID = cs.Customer.ID
		}
		if cs.Subscription != nil {
			ev.SubscriptionID = cs.Subscription.ID
		}
		return ev, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev := &adapter.PaymentEvent{
			Type:           adapter.EventSubscriptionDeleted,
			SubscriptionID: sub.ID,
			PeriodEnd:      time.Unix(sub.CurrentPeriodEnd, 0),
		}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		return ev, nil

	case "invoice.paid", "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		ev := &adapter.PaymentEvent{Type: adapter.EventInvoicePaid}
		if inv.Subscription != nil {
			ev.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		return ev, nil

	default:
		return &adapter.PaymentEvent{Type: adapter.EventIgnored}, nil
	}
}

func toExternal(sub *stripe.Subscription) *model.ExternalSubscription {
	ext := &model.ExternalSubscription{
		ID:               sub.ID,
		Status:           toExternalStatus(sub.Status),
		StartedAt:        time.Unix(sub.StartDate, 0),
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0),
	}
	if sub.Customer != nil {
		ext.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ext.PriceID = sub.Items.Data[0].Price.ID
	}
	return ext
}

func toExternalStatus(s stripe.SubscriptionStatus) model.ExternalSubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive:
		return model.ExternalStatusActive
	case stripe.SubscriptionStatusTrialing:
		return model.ExternalStatusTrialing
	default:
		return model.ExternalStatusOther
	}
}
