package models

import (
	"time"

	"github.com/google/uuid"
)

// InsurerStatus tracks whether an insurer can receive new business.
type InsurerStatus string

const (
	InsurerActive   InsurerStatus = "ACTIVE"
	InsurerInactive InsurerStatus = "INACTIVE"
)

// Insurer is a carrier the brokerage places policies with.
type Insurer struct {
	ID        uuid.UUID
	Name      string
	Status    InsurerStatus
	CreatedAt time.Time
}

// LineOfBusiness is one entry of the shared product catalog.
type LineOfBusiness struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// AssignmentStatus is the state a sync applies to every assignment it
// inserts or keeps.
type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "ACTIVE"
	AssignmentInactive AssignmentStatus = "INACTIVE"
)

// Valid reports whether the status is one of the known values.
func (s AssignmentStatus) Valid() bool {
	return s == AssignmentActive || s == AssignmentInactive
}

// Assignment links an insurer to a line it is authorized to write. Status
// and AssignedAt are re-applied on every sync that keeps the line, not only
// on insert.
type Assignment struct {
	InsurerID  uuid.UUID
	LineID     int64
	Status     AssignmentStatus
	AssignedAt time.Time
}

// SyncResult summarizes what a lines sync changed.
type SyncResult struct {
	Added   int              `json:"added"`
	Updated int              `json:"updated"`
	Removed int              `json:"removed"`
	Status  AssignmentStatus `json:"status"`
}
