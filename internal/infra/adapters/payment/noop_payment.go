package payment

import (
	"context"
	"encoding/json"

	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*NoopProvider)(nil)

// NoopProvider is a stand-in for dev runs without provider credentials.
// Reads return empty results, writes succeed with placeholder values.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) ListSubscriptionsByCustomer(_ context.Context, _ string) ([]*model.ExternalSubscription, error) {
	return nil, nil
}

func (p *NoopProvider) ListCustomersByEmail(_ context.Context, _ string, _ int) ([]*model.Customer, error) {
	return nil, nil
}

func (p *NoopProvider) GetSubscription(_ context.Context, id string) (*model.ExternalSubscription, error) {
	return &model.ExternalSubscription{ID: id, Status: model.ExternalStatusOther}, nil
}

func (p *NoopProvider) CreateCustomer(_ context.Context, email string, _ map[string]string) (*model.Customer, error) {
	return &model.Customer{ID: "cus_noop", Email: email}, nil
}

func (p *NoopProvider) CreateCheckoutSession(_ context.Context, cp adapter.CheckoutParams) (string, error) {
	return cp.SuccessURL, nil
}

func (p *NoopProvider) CancelSubscription(_ context.Context, _ string) error { return nil }

func (p *NoopProvider) ParseWebhookEvent(payload []byte, _ string) (*adapter.PaymentEvent, error) {
	var ev adapter.PaymentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return &adapter.PaymentEvent{Type: adapter.EventIgnored}, nil
	}
	if ev.Type == "" {
		ev.Type = adapter.EventIgnored
	}
	return &ev, nil
}
