//go:build !integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
	"instrutores-na-direcao/internal/infra/api"
	redisinfra "instrutores-na-direcao/internal/infra/redis"
)

//
// ---------------- stubs ----------------
//

type stubVerifier struct {
	identity *adapter.Identity
	err      error
}

func (s *stubVerifier) Verify(context.Context, string) (*adapter.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type stubEntitlementUC struct {
	ent *model.Entitlement
	err error
}

func (s *stubEntitlementUC) Resolve(context.Context, adapter.Identity) (*model.Entitlement, error) {
	return s.ent, s.err
}

type stubCheckoutUC struct {
	url string
	err error
}

func (s *stubCheckoutUC) CreateSession(context.Context, adapter.Identity, string, string) (string, error) {
	return s.url, s.err
}

type stubWebhookUC struct {
	err   error
	calls int
}

func (s *stubWebhookUC) Handle(context.Context, []byte, string) error {
	s.calls++
	return s.err
}

type stubAdminUC struct {
	err  error
	last string
}

func (s *stubAdminUC) CancelSubscription(_ context.Context, instructorID, _, _ string) error {
	s.last = instructorID
	return s.err
}

type stubAuditRepo struct {
	mu     sync.Mutex
	events []*model.AuditEvent
}

func (s *stubAuditRepo) Save(_ context.Context, _ repository.Tx, e *model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// fakeRedis backs the rate limiter with an in-memory counter map.
type fakeRedis struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRedis() *fakeRedis { return &fakeRedis{counts: make(map[string]int64)} }

func (f *fakeRedis) Ping(context.Context) error { return nil }
func (f *fakeRedis) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (f *fakeRedis) Get(context.Context, string) (string, error) { return "", domain.ErrNotFound }
func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}
func (f *fakeRedis) Expire(context.Context, string, time.Duration) error { return nil }
func (f *fakeRedis) Del(context.Context, ...string) error               { return nil }
func (f *fakeRedis) Close() error                                       { return nil }

//
// ---------------- helpers ----------------
//

type serverFixture struct {
	ent      *stubEntitlementUC
	checkout *stubCheckoutUC
	webhook  *stubWebhookUC
	admin    *stubAdminUC
	verifier *stubVerifier
	audit    *stubAuditRepo
	handler  http.Handler
}

func newServerFixture() *serverFixture {
	logger := zerolog.Nop()
	f := &serverFixture{
		ent:      &stubEntitlementUC{ent: &model.Entitlement{IsInstructor: false}},
		checkout: &stubCheckoutUC{url: "https://pay.example/s1"},
		webhook:  &stubWebhookUC{},
		admin:    &stubAdminUC{},
		verifier: &stubVerifier{identity: &adapter.Identity{UserID: "user-1", Email: "ana@example.com"}},
		audit:    &stubAuditRepo{},
	}
	srv := api.NewServer(
		f.ent, f.checkout, f.webhook, f.admin,
		f.verifier, redisinfra.NewRateLimiter(newFakeRedis()), f.audit,
		"admin-key", 5, &logger,
	)
	f.handler = srv.Routes(5 * time.Second)
	return f
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

//
// ---------------- tests ----------------
//

func TestCheckSubscriptionRequiresToken(t *testing.T) {
	f := newServerFixture()
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/check-instructor-subscription", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckSubscriptionInvalidToken(t *testing.T) {
	f := newServerFixture()
	f.verifier.err = domain.ErrUnauthorized
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/check-instructor-subscription", nil,
		map[string]string{"Authorization": "Bearer bad"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCheckSubscriptionOK(t *testing.T) {
	f := newServerFixture()
	end := time.Now().Add(20 * 24 * time.Hour).UTC()
	f.ent.ent = &model.Entitlement{
		IsInstructor: true,
		Subscription: &model.SubscriptionState{
			PlanType:        model.PlanDestaque,
			IsActive:        true,
			SubscriptionEnd: &end,
		},
	}

	rec := doJSON(t, f.handler, http.MethodPost, "/functions/check-instructor-subscription", nil,
		map[string]string{"Authorization": "Bearer good"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got model.Entitlement
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsInstructor || got.Subscription == nil || got.Subscription.PlanType != model.PlanDestaque {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCreateCheckoutReturnsURL(t *testing.T) {
	f := newServerFixture()
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/create-instructor-checkout",
		map[string]string{"planType": "destaque"},
		map[string]string{"Authorization": "Bearer good", "Origin": "https://app.example"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["url"] != "https://pay.example/s1" {
		t.Fatalf("url = %q", body["url"])
	}
}

func TestCreateCheckoutUnknownPlanIs400(t *testing.T) {
	f := newServerFixture()
	f.checkout.err = domain.ErrUnknownPlan
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/create-instructor-checkout",
		map[string]string{"planType": "gold"},
		map[string]string{"Authorization": "Bearer good"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateCheckoutRateLimited(t *testing.T) {
	f := newServerFixture()
	headers := map[string]string{"Authorization": "Bearer good", "X-Forwarded-For": "203.0.113.7"}
	body := map[string]string{"planType": "elite"}

	for i := 0; i < 5; i++ {
		rec := doJSON(t, f.handler, http.MethodPost, "/functions/create-instructor-checkout", body, headers)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/create-instructor-checkout", body, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Action != "rate_limit_exceeded" {
		t.Fatalf("audit events = %+v", f.audit.events)
	}
}

func TestWebhookRequiresSignature(t *testing.T) {
	f := newServerFixture()
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/stripe-webhook", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if f.webhook.calls != 0 {
		t.Fatal("handler must not run without a signature")
	}
}

func TestWebhookOK(t *testing.T) {
	f := newServerFixture()
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/stripe-webhook", map[string]string{},
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["received"] {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestWebhookBadSignatureIs400(t *testing.T) {
	f := newServerFixture()
	f.webhook.err = domain.ErrWebhookSignature
	rec := doJSON(t, f.handler, http.MethodPost, "/functions/stripe-webhook", map[string]string{},
		map[string]string{"Stripe-Signature": "t=1,v1=bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminGuard(t *testing.T) {
	f := newServerFixture()
	body := map[string]string{"instructorId": "ins-1"}

	rec := doJSON(t, f.handler, http.MethodPost, "/api/v1/admin/cancel-subscription", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, f.handler, http.MethodPost, "/api/v1/admin/cancel-subscription", body,
		map[string]string{"Authorization": "Bearer wrong-key"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, f.handler, http.MethodPost, "/api/v1/admin/cancel-subscription", body,
		map[string]string{"Authorization": "Bearer admin-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if f.admin.last != "ins-1" {
		t.Fatalf("cancel called with %q", f.admin.last)
	}
}

func TestHealth(t *testing.T) {
	f := newServerFixture()
	rec := doJSON(t, f.handler, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
