package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnauthorized         = errors.New("missing or invalid credentials")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrUnknownPlan          = errors.New("unknown plan type")
	ErrRateLimited          = errors.New("too many requests")
	ErrWebhookSignature     = errors.New("invalid webhook signature")

	// Storage-layer errors
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
