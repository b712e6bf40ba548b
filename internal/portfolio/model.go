// Package portfolio manages competency portfolios, the instance-scoped
// resource of the platform: access to one portfolio is decided per instance,
// through either role permissions or an instance grant.
package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// Portfolio is a user's collection of evidenced competencies.
type Portfolio struct {
	ID        uuid.UUID
	OwnerID   int64
	Title     string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
