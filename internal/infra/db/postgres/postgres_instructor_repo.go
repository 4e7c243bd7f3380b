package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"instrutores-na-direcao/internal/domain"
	"instrutores-na-direcao/internal/domain/model"
	"instrutores-na-direcao/internal/domain/ports/repository"
)

var _ repository.InstructorRepository = (*instructorRepo)(nil)

type instructorRepo struct {
	pool *pgxpool.Pool
}

func NewInstructorRepo(pool *pgxpool.Pool) *instructorRepo {
	return &instructorRepo{pool: pool}
}

const instructorColumns = `id, user_id, full_name, COALESCE(city,''), created_at`

func (r *instructorRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Instructor, error) {
	q := `SELECT ` + instructorColumns + ` FROM instructors WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *instructorRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Instructor, error) {
	q := `SELECT ` + instructorColumns + ` FROM instructors WHERE user_id=$1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *instructorRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Instructor, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	ins := &model.Instructor{}
	if err := row.Scan(&ins.ID, &ins.UserID, &ins.FullName, &ins.City, &ins.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ins, nil
}
