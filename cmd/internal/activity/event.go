// Package activity fans roster activity out to connected admin
// consoles over WebSocket. Delivery is best-effort: a slow console
// drops events rather than stalling the publisher.
package activity

import "time"

// Event is one roster activity notification.
type Event struct {
	Type string         `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// Event types published by the API layer.
const (
	TypeMemberVerified  = "member.verified"
	TypeMemberPromoted  = "member.promoted"
	TypeCountersChanged = "member.counters_changed"
	TypeTrainingLogged  = "training.logged"
	TypeMedalAwarded    = "medal.awarded"
)
