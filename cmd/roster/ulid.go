package roster

import (
	"time"

	"usaffe/cmd/roster/ids"
)

// NewULID returns a new ULID (26-char string).
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
