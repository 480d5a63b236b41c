package roster

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// CreateTraining inserts a new training event hosted by an existing member.
func (s *PostgresStore) CreateTraining(ctx context.Context, trainingType string, scheduledAt time.Time, hostID string) (TrainingEvent, error) {
	const op = "roster.CreateTraining"

	if s == nil || s.pool == nil {
		return TrainingEvent{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return TrainingEvent{}, err
	}
	trainingType = strings.TrimSpace(trainingType)
	if trainingType == "" {
		return TrainingEvent{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing type"}
	}
	hostID = strings.TrimSpace(hostID)
	if hostID == "" {
		return TrainingEvent{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing host id"}
	}
	if scheduledAt.IsZero() {
		return TrainingEvent{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing date"}
	}

	now := time.Now().UTC()
	trainingID, err := NewULID(now)
	if err != nil {
		return TrainingEvent{}, err
	}

	trainings := pgIdent(s.schema, "trainings")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+trainings+` (id, type, scheduled_at, host_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		trainingID, trainingType, scheduledAt.UTC(), hostID, now,
	)
	if err != nil {
		if pgIsForeignKeyViolation(err) {
			return TrainingEvent{}, NotFoundError{Op: op, Resource: "host"}
		}
		return TrainingEvent{}, err
	}

	return TrainingEvent{
		ID:          trainingID,
		Type:        trainingType,
		ScheduledAt: scheduledAt.UTC(),
		HostID:      hostID,
		CreatedAt:   now,
	}, nil
}

// AddAttendees records attendance for already-resolved member ids.
//
// Partial success by contract: every insertable entry is recorded, entries
// that fail (unknown member id) are reported back, and a single bad entry
// never aborts the batch. Duplicate attendance is idempotent.
func (s *PostgresStore) AddAttendees(ctx context.Context, trainingID string, memberIDs []string) (AttendeeReport, error) {
	const op = "roster.AddAttendees"

	if s == nil || s.pool == nil {
		return AttendeeReport{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return AttendeeReport{}, err
	}
	trainingID = strings.TrimSpace(trainingID)
	if trainingID == "" {
		return AttendeeReport{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing training id"}
	}
	if len(memberIDs) == 0 {
		return AttendeeReport{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty attendee list"}
	}

	trainings := pgIdent(s.schema, "trainings")
	attendees := pgIdent(s.schema, "training_attendees")

	// The training itself must exist; a miss here is a caller error, not a
	// partial-success case.
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM `+trainings+` WHERE id = $1`, trainingID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AttendeeReport{}, NotFoundError{Op: op, Resource: "training"}
		}
		return AttendeeReport{}, err
	}

	report := AttendeeReport{}
	for _, memberID := range memberIDs {
		memberID = strings.TrimSpace(memberID)
		if memberID == "" {
			report.Failed = append(report.Failed, memberID)
			continue
		}
		ct, err := s.pool.Exec(ctx,
			`INSERT INTO `+attendees+` (training_id, member_id, recorded_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (training_id, member_id) DO NOTHING`,
			trainingID, memberID, time.Now().UTC(),
		)
		if err != nil {
			if pgIsForeignKeyViolation(err) {
				report.Failed = append(report.Failed, memberID)
				continue
			}
			return report, err
		}
		if ct.RowsAffected() > 0 {
			report.Recorded++
		}
	}
	return report, nil
}

// AwardMedal inserts an append-only medal award.
func (s *PostgresStore) AwardMedal(ctx context.Context, medalID, memberID string, awardedBy *string, reason string) (MedalAward, error) {
	const op = "roster.AwardMedal"

	if s == nil || s.pool == nil {
		return MedalAward{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return MedalAward{}, err
	}
	medalID = strings.TrimSpace(medalID)
	if medalID == "" {
		return MedalAward{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing medal id"}
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return MedalAward{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing member id"}
	}

	now := time.Now().UTC()
	awardID, err := NewULID(now)
	if err != nil {
		return MedalAward{}, err
	}

	awards := pgIdent(s.schema, "medal_awards")

	var by *string
	if awardedBy != nil && strings.TrimSpace(*awardedBy) != "" {
		v := strings.TrimSpace(*awardedBy)
		by = &v
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+awards+` (id, medal_id, member_id, awarded_by, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		awardID, medalID, memberID, by, strings.TrimSpace(reason), now,
	)
	if err != nil {
		if pgIsForeignKeyViolation(err) {
			return MedalAward{}, NotFoundError{Op: op, Resource: "member"}
		}
		return MedalAward{}, err
	}

	return MedalAward{
		ID:        awardID,
		MedalID:   medalID,
		MemberID:  memberID,
		AwardedBy: by,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: now,
	}, nil
}

// GetProfile loads a member together with its medal and training history.
//
// The member row and the two history lists are independent queries; they run
// concurrently and the results are merged once all complete.
func (s *PostgresStore) GetProfile(ctx context.Context, memberID string) (Profile, error) {
	const op = "roster.GetProfile"

	if s == nil || s.pool == nil {
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return Profile{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing member id"}
	}

	var out Profile
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := s.MemberByID(gctx, memberID)
		if err != nil {
			return err
		}
		out.Member = m
		return nil
	})
	g.Go(func() error {
		medals, err := s.medalsByMember(gctx, memberID)
		if err != nil {
			return err
		}
		out.Medals = medals
		return nil
	})
	g.Go(func() error {
		trainings, err := s.trainingsByMember(gctx, memberID)
		if err != nil {
			return err
		}
		out.Trainings = trainings
		return nil
	})

	if err := g.Wait(); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// Stats computes the dashboard counters. The three counts have no ordering
// dependency and run concurrently.
func (s *PostgresStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	const op = "roster.Stats"

	if s == nil || s.pool == nil {
		return Stats{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	members := pgIdent(s.schema, "members")
	trainings := pgIdent(s.schema, "trainings")
	awards := pgIdent(s.schema, "medal_awards")

	var out Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.pool.QueryRow(gctx,
			`SELECT COUNT(*) FROM `+members,
		).Scan(&out.ActivePersonnel)
	})
	g.Go(func() error {
		return s.pool.QueryRow(gctx,
			`SELECT COUNT(*) FROM `+trainings+`
			  WHERE scheduled_at >= $1 AND scheduled_at < $2`,
			dayStart, dayEnd,
		).Scan(&out.TrainingsToday)
	})
	g.Go(func() error {
		return s.pool.QueryRow(gctx,
			`SELECT COUNT(*) FROM `+awards,
		).Scan(&out.MedalsAwarded)
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return out, nil
}

func (s *PostgresStore) medalsByMember(ctx context.Context, memberID string) ([]MedalAward, error) {
	awards := pgIdent(s.schema, "medal_awards")

	rows, err := s.pool.Query(ctx,
		`SELECT id, medal_id, member_id, awarded_by, reason, created_at
		   FROM `+awards+`
		  WHERE member_id = $1
		  ORDER BY created_at DESC, id DESC`,
		memberID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MedalAward{}
	for rows.Next() {
		var a MedalAward
		if err := rows.Scan(&a.ID, &a.MedalID, &a.MemberID, &a.AwardedBy, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) trainingsByMember(ctx context.Context, memberID string) ([]TrainingEvent, error) {
	trainings := pgIdent(s.schema, "trainings")
	attendees := pgIdent(s.schema, "training_attendees")

	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.type, t.scheduled_at, t.host_id, t.created_at
		   FROM `+trainings+` t
		   JOIN `+attendees+` a ON a.training_id = t.id
		  WHERE a.member_id = $1
		  ORDER BY t.scheduled_at DESC, t.id DESC`,
		memberID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TrainingEvent{}
	for rows.Next() {
		var t TrainingEvent
		if err := rows.Scan(&t.ID, &t.Type, &t.ScheduledAt, &t.HostID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
