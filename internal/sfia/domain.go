// Package sfia manages the SFIA skill catalogue entries that competency
// records reference.
package sfia

import "time"

// Skill is one SFIA skill, placed in a category/subcategory and bounded by
// the responsibility levels it applies to.
type Skill struct {
	ID          int64
	Code        string
	Name        string
	Category    string
	Subcategory string
	LevelMin    int
	LevelMax    int
	Overview    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
