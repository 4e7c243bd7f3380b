package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/repository"
)

// Ensure billingRepo implements repository.BillingRepository
var _ repository.BillingRepository = (*billingRepo)(nil)

type billingRepo struct {
	pool *pgxpool.Pool
}

func NewBillingRepo(pool *pgxpool.Pool) *billingRepo {
	return &billingRepo{pool: pool}
}

const billingColumns = `
instructor_id, plan_type, is_active, trial_ends_at,
COALESCE(stripe_customer_id,''), COALESCE(stripe_subscription_id,''),
subscription_started_at, subscription_ends_at, updated_at`

func (r *billingRepo) Find(ctx context.Context, tx repository.Tx, instructorID string) (*model.BillingRecord, error) {
	q := `SELECT ` + billingColumns + `
  FROM instructor_subscriptions
 WHERE instructor_id=$1;`
	return r.queryOne(ctx, tx, q, instructorID)
}

func (r *billingRepo) FindByStripeSubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.BillingRecord, error) {
	q := `SELECT ` + billingColumns + `
  FROM instructor_subscriptions
 WHERE stripe_subscription_id=$1
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, subscriptionID)
}

// Upsert is keyed by instructor_id; repeating the same snapshot is a no-op
// apart from updated_at (last write wins, no version column).
func (r *billingRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.BillingRecord) error {
	const q = `
INSERT INTO instructor_subscriptions (
  instructor_id, plan_type, is_active, trial_ends_at, stripe_customer_id,
  stripe_subscription_id, subscription_started_at, subscription_ends_at, updated_at
) VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),$7,$8,$9)
ON CONFLICT (instructor_id) DO UPDATE SET
  plan_type=$2, is_active=$3, trial_ends_at=$4, stripe_customer_id=NULLIF($5,''),
  stripe_subscription_id=NULLIF($6,''), subscription_started_at=$7,
  subscription_ends_at=$8, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q,
		rec.InstructorID, rec.PlanType, rec.IsActive, rec.TrialEndsAt,
		rec.StripeCustomerID, rec.StripeSubscriptionID,
		rec.SubscriptionStartedAt, rec.SubscriptionEndsAt, rec.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *billingRepo) ListLapsedActive(ctx context.Context, tx repository.Tx, asOf time.Time, limit int) ([]*model.BillingRecord, error) {
	q := `SELECT ` + billingColumns + `
  FROM instructor_subscriptions
 WHERE is_active
   AND plan_type NOT IN ('trial','expired')
   AND subscription_ends_at IS NOT NULL
   AND subscription_ends_at <= $1
 ORDER BY subscription_ends_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, asOf, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.BillingRecord
	for rows.Next() {
		rec, err := scanBilling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *billingRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.BillingRecord, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	rec, err := scanBilling(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBilling(row rowScanner) (*model.BillingRecord, error) {
	rec := &model.BillingRecord{}
	var plan string
	if err := row.Scan(
		&rec.InstructorID, &plan, &rec.IsActive, &rec.TrialEndsAt,
		&rec.StripeCustomerID, &rec.StripeSubscriptionID,
		&rec.SubscriptionStartedAt, &rec.SubscriptionEndsAt, &rec.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.PlanType = model.PlanType(plan)
	return rec, nil
}
