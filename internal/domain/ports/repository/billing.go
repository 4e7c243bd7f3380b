package repository

import (
	"context"
	"time"

	"instrutores-na-direcao/internal/domain/model"
)

// BillingRepository is the port for the instructor_subscriptions store.
// Upsert is keyed by instructor id and safe to repeat; no guarantee beyond
// single-row atomicity is assumed (concurrent resolutions race benignly,
// last write wins).
type BillingRepository interface {
	Find(ctx context.Context, tx Tx, instructorID string) (*model.BillingRecord, error)
	Upsert(ctx context.Context, tx Tx, rec *model.BillingRecord) error

	// FindByStripeSubscription locates the record owning a provider
	// subscription id (webhook cancellation path).
	FindByStripeSubscription(ctx context.Context, tx Tx, subscriptionID string) (*model.BillingRecord, error)

	// ListLapsedActive returns paid records still flagged active whose
	// subscription_ends_at has passed, for the background resync worker.
	ListLapsedActive(ctx context.Context, tx Tx, asOf time.Time, limit int) ([]*model.BillingRecord, error)
}
