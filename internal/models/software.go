package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AccessLevel is a grant level a software entry can offer.
type AccessLevel string

const (
	AccessLevelRead  AccessLevel = "Read"
	AccessLevelWrite AccessLevel = "Write"
	AccessLevelAdmin AccessLevel = "Admin"
)

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelRead, AccessLevelWrite, AccessLevelAdmin:
		return true
	}
	return false
}

// ParseAccessLevel converts a wire value into an AccessLevel. Matching is case-sensitive.
func ParseAccessLevel(s string) (AccessLevel, error) {
	l := AccessLevel(s)
	if !l.Valid() {
		return "", NewValidationError(fmt.Sprintf("invalid access level %q: must be one of Read, Write, Admin", s))
	}
	return l, nil
}

// NormalizeAccessLevels validates a supported-levels set and drops duplicates,
// keeping the first occurrence order.
func NormalizeAccessLevels(levels []AccessLevel) ([]AccessLevel, error) {
	if len(levels) == 0 {
		return nil, NewValidationError("at least one access level is required")
	}
	seen := make(map[AccessLevel]bool, len(levels))
	out := make([]AccessLevel, 0, len(levels))
	for _, l := range levels {
		if !l.Valid() {
			return nil, NewValidationError(fmt.Sprintf("invalid access level %q: must be one of Read, Write, Admin", l))
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

// Software is a catalog entry that access can be requested for.
type Software struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	Name         string                           `gorm:"size:120;uniqueIndex;not null" json:"name"`
	Description  string                           `gorm:"type:text" json:"description"`
	AccessLevels datatypes.JSONSlice[AccessLevel] `gorm:"not null" json:"accessLevels"`
	CreatedAt    time.Time                        `json:"createdAt"`
	UpdatedAt    time.Time                        `json:"updatedAt"`
}

// TableName keeps the table singular to match the catalog's SQL schema.
func (Software) TableName() string {
	return "software"
}

// Supports reports whether level is one of the entry's access levels.
func (s *Software) Supports(level AccessLevel) bool {
	for _, l := range s.AccessLevels {
		if l == level {
			return true
		}
	}
	return false
}

// SoftwareSummary is the read-only projection of a catalog entry embedded in request responses.
type SoftwareSummary struct {
	ID           uint          `json:"id"`
	Name         string        `json:"name"`
	AccessLevels []AccessLevel `json:"accessLevels"`
}

func (s *Software) Summary() SoftwareSummary {
	levels := make([]AccessLevel, len(s.AccessLevels))
	copy(levels, s.AccessLevels)
	return SoftwareSummary{ID: s.ID, Name: s.Name, AccessLevels: levels}
}
