package repository

import (
	"context"

	"instrutores-na-direcao/internal/domain/model"
)

// InstructorRepository is the port for instructor profiles. The billing
// flows only read; profile creation and editing live elsewhere.
type InstructorRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Instructor, error)
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Instructor, error)
}
