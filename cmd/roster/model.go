package roster

import "time"

// DefaultRank is assigned to members created by upsert.
const DefaultRank = "Recruit"

// Member is one roster entry.
// ID is immutable once assigned; RobloxUserID is unique across all members.
type Member struct {
	ID           string
	RobloxUserID int64
	Username     string
	DisplayName  string
	Rank         string
	Points       int64
	Valor        int64
	CreatedAt    time.Time
}

// UpsertMemberInput describes a profile-driven member upsert.
// Only the mutable profile fields are overwritten on conflict; rank and
// counters are never touched by an upsert.
type UpsertMemberInput struct {
	RobloxUserID int64
	Username     string
	DisplayName  string
	Now          time.Time
}

// CounterDeltas carries signed adjustments for the numeric member counters.
// Both fields may be zero-valued individually; callers validate that at least
// one delta is present.
type CounterDeltas struct {
	Points int64
	Valor  int64
}

// TrainingEvent is an append-only training record hosted by a member.
type TrainingEvent struct {
	ID          string
	Type        string
	ScheduledAt time.Time
	HostID      string
	CreatedAt   time.Time
}

// MedalAward is an append-only award record referencing a member.
type MedalAward struct {
	ID        string
	MedalID   string
	MemberID  string
	AwardedBy *string
	Reason    string
	CreatedAt time.Time
}

// Profile aggregates a member with its award and attendance history.
type Profile struct {
	Member    Member
	Medals    []MedalAward
	Trainings []TrainingEvent
}

// Stats are the read-only aggregate counters for the admin dashboard.
type Stats struct {
	ActivePersonnel int64
	TrainingsToday  int64
	MedalsAwarded   int64
}

// AttendeeReport describes the outcome of a bulk attendee insert.
// Recording is partial-success: valid entries are inserted, failed entries are
// reported back with the identifier that did not resolve.
type AttendeeReport struct {
	Recorded int
	Failed   []string
}
