package model

import "time"

// Instructor is a professional offering driving lessons. Display profile
// fields are managed elsewhere; the billing flows only need the identity link.
type Instructor struct {
	ID        string // UUID
	UserID    string // UUID of the auth user owning this profile
	FullName  string
	City      string
	CreatedAt time.Time
}
