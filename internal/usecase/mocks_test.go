// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
)

// memInstructorRepo is a small in-memory implementation used by unit tests.
type memInstructorRepo struct {
	mu    sync.RWMutex
	byID  map[string]*model.Instructor
	byUID map[string]*model.Instructor
}

func newMemInstructorRepo() *memInstructorRepo {
	return &memInstructorRepo{
		byID:  make(map[string]*model.Instructor),
		byUID: make(map[string]*model.Instructor),
	}
}

func (m *memInstructorRepo) add(ins *model.Instructor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ins
	m.byID[ins.ID] = &cp
	m.byUID[ins.UserID] = &cp
}

func (m *memInstructorRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Instructor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ins, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ins
	return &cp, nil
}

func (m *memInstructorRepo) FindByUserID(_ context.Context, _ repository.Tx, userID string) (*model.Instructor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ins, ok := m.byUID[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ins
	return &cp, nil
}

// memBillingRepo stores billing records by instructor id. upsertErr lets
// tests simulate write failures.
type memBillingRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.BillingRecord
	upsertErr error

	UpsertCalls int
}

func newMemBillingRepo() *memBillingRepo {
	return &memBillingRepo{store: make(map[string]*model.BillingRecord)}
}

func (m *memBillingRepo) put(rec *model.BillingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.store[rec.InstructorID] = &cp
}

func (m *memBillingRepo) get(instructorID string) *model.BillingRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[instructorID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

func (m *memBillingRepo) Find(_ context.Context, _ repository.Tx, instructorID string) (*model.BillingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.store[instructorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memBillingRepo) Upsert(_ context.Context, _ repository.Tx, rec *model.BillingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *rec
	m.store[rec.InstructorID] = &cp
	return nil
}

func (m *memBillingRepo) FindByStripeSubscription(_ context.Context, _ repository.Tx, subscriptionID string) (*model.BillingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.store {
		if rec.StripeSubscriptionID == subscriptionID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memBillingRepo) ListLapsedActive(_ context.Context, _ repository.Tx, asOf time.Time, limit int) ([]*model.BillingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.BillingRecord
	for _, rec := range m.store {
		if !rec.IsActive || !rec.PlanType.Paid() {
			continue
		}
		if rec.SubscriptionEndsAt == nil || rec.SubscriptionEndsAt.After(asOf) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// memAuditRepo records audit events in memory.
type memAuditRepo struct {
	mu      sync.Mutex
	events  []*model.AuditEvent
	saveErr error
}

func newMemAuditRepo() *memAuditRepo { return &memAuditRepo{} }

func (m *memAuditRepo) Save(_ context.Context, _ repository.Tx, e *model.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

// mockProvider implements adapter.PaymentProvider with per-method overrides
// and call counters, so tests can assert which lookup path ran.
type mockProvider struct {
	ListSubscriptionsFunc func(ctx context.Context, customerID string) ([]*model.ExternalSubscription, error)
	ListCustomersFunc     func(ctx context.Context, email string, limit int) ([]*model.Customer, error)
	GetSubscriptionFunc   func(ctx context.Context, subscriptionID string) (*model.ExternalSubscription, error)
	CreateCustomerFunc    func(ctx context.Context, email string, meta map[string]string) (*model.Customer, error)
	CreateCheckoutFunc    func(ctx context.Context, p adapter.CheckoutParams) (string, error)
	CancelFunc            func(ctx context.Context, subscriptionID string) error
	ParseWebhookFunc      func(payload []byte, signature string) (*adapter.PaymentEvent, error)

	ListSubscriptionsCalls int
	ListCustomersCalls     int
	CancelCalls            int
}

var _ adapter.PaymentProvider = (*mockProvider)(nil)

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]*model.ExternalSubscription, error) {
	m.ListSubscriptionsCalls++
	if m.ListSubscriptionsFunc != nil {
		return m.ListSubscriptionsFunc(ctx, customerID)
	}
	return nil, nil
}

func (m *mockProvider) ListCustomersByEmail(ctx context.Context, email string, limit int) ([]*model.Customer, error) {
	m.ListCustomersCalls++
	if m.ListCustomersFunc != nil {
		return m.ListCustomersFunc(ctx, email, limit)
	}
	return nil, nil
}

func (m *mockProvider) GetSubscription(ctx context.Context, subscriptionID string) (*model.ExternalSubscription, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, subscriptionID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockProvider) CreateCustomer(ctx context.Context, email string, meta map[string]string) (*model.Customer, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, email, meta)
	}
	return &model.Customer{ID: "cus_new", Email: email}, nil
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, p adapter.CheckoutParams) (string, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, p)
	}
	return "https://pay.example/session", nil
}

func (m *mockProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	m.CancelCalls++
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, subscriptionID)
	}
	return nil
}

func (m *mockProvider) ParseWebhookEvent(payload []byte, signature string) (*adapter.PaymentEvent, error) {
	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, signature)
	}
	return &adapter.PaymentEvent{Type: adapter.EventIgnored}, nil
}
