// File: internal/usecase/checkout_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
)

func newCheckoutFixture() (*memInstructorRepo, *memBillingRepo, *mockProvider, *checkoutUC) {
	instructors := newMemInstructorRepo()
	billing := newMemBillingRepo()
	provider := &mockProvider{}
	uc := NewCheckoutUseCase(instructors, billing, provider, testPrices(), testLogger())
	return instructors, billing, provider, uc
}

func TestCreateSessionRejectsUnknownPlan(t *testing.T) {
	_, _, _, uc := newCheckoutFixture()

	for _, plan := range []string{"", "trial", "expired", "premium"} {
		_, err := uc.CreateSession(context.Background(), adapter.Identity{UserID: "u"}, plan, "https://app.example")
		if !errors.Is(err, domain.ErrUnknownPlan) {
			t.Fatalf("plan %q: err = %v, want ErrUnknownPlan", plan, err)
		}
	}
}

func TestCreateSessionReusesStoredCustomer(t *testing.T) {
	instructors, billing, provider, uc := newCheckoutFixture()
	ins := seedInstructor(instructors)
	billing.put(&model.BillingRecord{InstructorID: ins.ID, PlanType: model.PlanTrial, StripeCustomerID: "cus_known"})

	var got adapter.CheckoutParams
	provider.CreateCheckoutFunc = func(_ context.Context, p adapter.CheckoutParams) (string, error) {
		got = p
		return "https://pay.example/s1", nil
	}

	url, err := uc.CreateSession(context.Background(), adapter.Identity{UserID: ins.UserID, Email: "ana@example.com"}, "destaque", "https://app.example")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if url != "https://pay.example/s1" {
		t.Fatalf("url = %q", url)
	}
	if got.CustomerID != "cus_known" {
		t.Fatalf("customer id = %q, want cus_known", got.CustomerID)
	}
	if got.PriceID != "price_destaque" {
		t.Fatalf("price id = %q", got.PriceID)
	}
	if got.SuccessURL != "https://app.example/instrutor/planos?success=true" {
		t.Fatalf("success url = %q", got.SuccessURL)
	}
	if got.CancelURL != "https://app.example/instrutor/planos?canceled=true" {
		t.Fatalf("cancel url = %q", got.CancelURL)
	}
	if provider.ListCustomersCalls != 0 {
		t.Fatal("customer lookup should not run when the id is stored")
	}
}

func TestCreateSessionCreatesAndPersistsCustomer(t *testing.T) {
	instructors, billing, provider, uc := newCheckoutFixture()
	ins := seedInstructor(instructors)

	provider.CreateCustomerFunc = func(_ context.Context, email string, meta map[string]string) (*model.Customer, error) {
		if meta["user_id"] != ins.UserID || meta["instructor_id"] != ins.ID {
			t.Fatalf("customer metadata = %v", meta)
		}
		return &model.Customer{ID: "cus_fresh", Email: email}, nil
	}

	_, err := uc.CreateSession(context.Background(), adapter.Identity{UserID: ins.UserID, Email: "ana@example.com"}, "essencial", "https://app.example")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	rec := billing.get(ins.ID)
	if rec == nil || rec.StripeCustomerID != "cus_fresh" {
		t.Fatalf("customer id not persisted: %+v", rec)
	}
}

func TestCreateSessionUnknownUser(t *testing.T) {
	_, _, _, uc := newCheckoutFixture()
	_, err := uc.CreateSession(context.Background(), adapter.Identity{UserID: "ghost", Email: "g@example.com"}, "elite", "https://app.example")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
