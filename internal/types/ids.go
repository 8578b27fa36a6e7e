package types

import (
	"github.com/google/uuid"
)

// NewAdvisoryID generates a UUIDv7 advisory identifier.
// Time-ordered IDs keep advisories from one pass sortable by creation.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewAdvisoryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseAdvisoryID validates an advisory identifier.
func ParseAdvisoryID(s string) (string, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return s, nil
}
