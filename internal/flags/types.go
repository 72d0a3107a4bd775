package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Flag is a runtime switch. Venue flags are keyed by venue name; a venue
// without a flag is enabled.
type Flag struct {
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
