package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/repository"
)

var _ repository.AuditLogRepository = (*auditLogRepo)(nil)

type auditLogRepo struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepo(pool *pgxpool.Pool) *auditLogRepo {
	return &auditLogRepo{pool: pool}
}

func (r *auditLogRepo) Save(ctx context.Context, tx repository.Tx, ev *model.AuditEvent) error {
	const q = `
INSERT INTO audit_events (id, action, actor_user_id, target_instructor_id, ip_address, notes, created_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),$7);`
	_, err := execSQL(ctx, r.pool, tx, q,
		ev.ID, ev.Action, ev.ActorUserID, ev.TargetInstructorID, ev.IPAddress, ev.Notes, ev.CreatedAt)
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
