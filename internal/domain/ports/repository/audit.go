package repository

import (
	"context"

	"instrutores-na-direcao/internal/domain/model"
)

// AuditLogRepository is the port for the append-only audit trail.
type AuditLogRepository interface {
	Save(ctx context.Context, tx Tx, e *model.AuditEvent) error
}
