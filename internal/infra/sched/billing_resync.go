package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/adapter"
	"instrutores-na-direcao/internal/domain/ports/repository"
	"instrutores-na-direcao/internal/infra/metrics"
)

const resyncBatchSize = 100

// BillingResyncWorker periodically sweeps paid records whose period end has
// passed and reconciles them against the provider. Records that renewed get
// their period refreshed; the rest are deactivated. This catches webhook
// deliveries that never arrived.
type BillingResyncWorker struct {
	interval time.Duration
	billing  repository.BillingRepository
	provider adapter.PaymentProvider
	prices   *model.PriceTable
	log      *zerolog.Logger
}

func NewBillingResyncWorker(
	interval time.Duration,
	billing repository.BillingRepository,
	provider adapter.PaymentProvider,
	prices *model.PriceTable,
	logger *zerolog.Logger,
) *BillingResyncWorker {
	wl := logger.With().Str("component", "BillingResyncWorker").Logger()
	return &BillingResyncWorker{
		interval: interval,
		billing:  billing,
		provider: provider,
		prices:   prices,
		log:      &wl,
	}
}

func (w *BillingResyncWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting billing resync worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping billing resync worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *BillingResyncWorker) sweep(ctx context.Context) {
	now := time.Now()
	lapsed, err := w.billing.ListLapsedActive(ctx, repository.NoTX, now, resyncBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list lapsed records failed")
		metrics.IncBillingResync("error")
		return
	}
	for _, rec := range lapsed {
		if err := w.resyncOne(ctx, rec, now); err != nil {
			w.log.Error().Err(err).Str("instructor_id", rec.InstructorID).Msg("resync failed")
			metrics.IncBillingResync("error")
		}
	}
	if len(lapsed) > 0 {
		w.log.Info().Int("count", len(lapsed)).Msg("billing resync sweep done")
	}
}

func (w *BillingResyncWorker) resyncOne(ctx context.Context, rec *model.BillingRecord, now time.Time) error {
	var live *model.ExternalSubscription
	if rec.StripeCustomerID != "" {
		subs, err := w.provider.ListSubscriptionsByCustomer(ctx, rec.StripeCustomerID)
		if err != nil {
			return err
		}
		live = model.FirstLiveSubscription(subs)
	}

	if live != nil {
		_, updated := model.Reconcile(rec, live, now, w.prices)
		if updated != nil {
			if err := w.billing.Upsert(ctx, repository.NoTX, updated); err != nil {
				return err
			}
		}
		metrics.IncBillingResync("renewed")
		return nil
	}

	rec.IsActive = false
	if rec.PlanType == model.PlanTrial {
		rec.PlanType = model.PlanExpired
	}
	rec.UpdatedAt = now
	if err := w.billing.Upsert(ctx, repository.NoTX, rec); err != nil {
		return err
	}
	metrics.IncBillingResync("lapsed")
	return nil
}
