// Package tpqi manages the TPQI career catalogue entries.
package tpqi

import "time"

// Career is one TPQI occupational career path within a professional sector.
type Career struct {
	ID        int64
	Sector    string
	Name      string
	Overview  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
