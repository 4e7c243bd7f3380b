package model

import "time"

// AuditEvent records security-relevant actions (rate-limit trips, admin
// interventions) for the admin dashboard.
type AuditEvent struct {
	ID                 string // ULID, lexicographically sortable by time
	Action             string // e.g. "rate_limit_exceeded", "cancel_subscription"
	ActorUserID        string
	TargetInstructorID string
	IPAddress          string
	Notes              string
	CreatedAt          time.Time
}
