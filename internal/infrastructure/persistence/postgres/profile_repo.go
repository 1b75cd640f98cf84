package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository persists engagement profiles with optimistic
// concurrency. Implements progression.ProfileRepository.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `
	student_id, total_xp, level, subject_xp,
	streak_current, streak_longest, last_active_date,
	daily_date, daily_earned,
	sessions_completed, perfect_sessions, flashcards_reviewed,
	outcomes_mastered, subject_sessions, unlocked,
	version, created_at, updated_at`

// GetByStudent loads a student's profile.
func (r *ProfileRepository) GetByStudent(ctx context.Context, studentID shared.StudentID) (*progression.EngagementProfile, error) {
	query := `SELECT` + profileColumns + `
		FROM engagement_profiles
		WHERE student_id = $1`

	row := r.conn.QueryRow(ctx, query, string(studentID))
	profile, err := scanProfile(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("postgres: get profile: %w", err)
	}
	return profile, nil
}

// Create inserts a fresh profile at version 0.
func (r *ProfileRepository) Create(ctx context.Context, profile *progression.EngagementProfile) error {
	fields, err := marshalProfile(profile)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO engagement_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = r.conn.Exec(ctx, query,
		string(profile.StudentID),
		int64(profile.TotalXP),
		int(profile.Level),
		fields.subjectXP,
		profile.Streak.Current,
		profile.Streak.Longest,
		nullableDate(profile.Streak.LastActiveDate),
		nullableDate(profile.Daily.Date),
		fields.dailyEarned,
		profile.Totals.SessionsCompleted,
		profile.Totals.PerfectSessions,
		profile.Totals.FlashcardsReviewed,
		fields.outcomes,
		fields.subjectSessions,
		fields.unlocked,
		profile.Version,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// Two concurrent first-activity events raced on the insert.
			return shared.ErrStaleProfile
		}
		return fmt.Errorf("postgres: create profile: %w", err)
	}
	return nil
}

// Update writes the profile guarded by its loaded version. Zero affected
// rows means either a lost version race or a missing row; both force the
// caller back to a fresh read. On success the in-memory version is
// advanced to match the stored one.
func (r *ProfileRepository) Update(ctx context.Context, profile *progression.EngagementProfile) error {
	fields, err := marshalProfile(profile)
	if err != nil {
		return err
	}

	query := `
		UPDATE engagement_profiles SET
			total_xp = $2,
			level = $3,
			subject_xp = $4,
			streak_current = $5,
			streak_longest = $6,
			last_active_date = $7,
			daily_date = $8,
			daily_earned = $9,
			sessions_completed = $10,
			perfect_sessions = $11,
			flashcards_reviewed = $12,
			outcomes_mastered = $13,
			subject_sessions = $14,
			unlocked = $15,
			version = version + 1,
			updated_at = $16
		WHERE student_id = $1 AND version = $17`

	tag, err := r.conn.Exec(ctx, query,
		string(profile.StudentID),
		int64(profile.TotalXP),
		int(profile.Level),
		fields.subjectXP,
		profile.Streak.Current,
		profile.Streak.Longest,
		nullableDate(profile.Streak.LastActiveDate),
		nullableDate(profile.Daily.Date),
		fields.dailyEarned,
		profile.Totals.SessionsCompleted,
		profile.Totals.PerfectSessions,
		profile.Totals.FlashcardsReviewed,
		fields.outcomes,
		fields.subjectSessions,
		fields.unlocked,
		profile.UpdatedAt,
		profile.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleProfile
	}

	profile.Version++
	return nil
}

// ListStreakAtRisk returns profiles whose last activity was exactly the
// day before the given day: their streak breaks unless they act today.
func (r *ProfileRepository) ListStreakAtRisk(ctx context.Context, day time.Time) ([]*progression.EngagementProfile, error) {
	previous := timeutil.PreviousDay(timeutil.DateOf(day))

	query := `SELECT` + profileColumns + `
		FROM engagement_profiles
		WHERE streak_current > 0 AND last_active_date = $1::date`

	rows, err := r.conn.Query(ctx, query, previous)
	if err != nil {
		return nil, fmt.Errorf("postgres: list streak at risk: %w", err)
	}
	defer rows.Close()

	var profiles []*progression.EngagementProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// ROW MAPPING
// ══════════════════════════════════════════════════════════════════════════════

type profileJSON struct {
	subjectXP       []byte
	dailyEarned     []byte
	outcomes        []byte
	subjectSessions []byte
	unlocked        []byte
}

func marshalProfile(profile *progression.EngagementProfile) (profileJSON, error) {
	var fields profileJSON
	var err error

	if fields.subjectXP, err = json.Marshal(profile.SubjectXP); err != nil {
		return fields, fmt.Errorf("postgres: marshal subject xp: %w", err)
	}
	if fields.dailyEarned, err = json.Marshal(profile.Daily.Earned); err != nil {
		return fields, fmt.Errorf("postgres: marshal daily earned: %w", err)
	}

	outcomes := make([]string, 0, len(profile.Totals.OutcomesMastered))
	for outcome := range profile.Totals.OutcomesMastered {
		outcomes = append(outcomes, string(outcome))
	}
	if fields.outcomes, err = json.Marshal(outcomes); err != nil {
		return fields, fmt.Errorf("postgres: marshal outcomes: %w", err)
	}
	if fields.subjectSessions, err = json.Marshal(profile.Totals.SubjectSessions); err != nil {
		return fields, fmt.Errorf("postgres: marshal subject sessions: %w", err)
	}
	if fields.unlocked, err = json.Marshal(profile.Unlocked); err != nil {
		return fields, fmt.Errorf("postgres: marshal unlocked: %w", err)
	}
	return fields, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*progression.EngagementProfile, error) {
	var (
		profile         progression.EngagementProfile
		studentID       string
		totalXP         int64
		level           int
		subjectXP       []byte
		lastActive      *time.Time
		dailyDate       *time.Time
		dailyEarned     []byte
		outcomes        []byte
		subjectSessions []byte
		unlocked        []byte
	)

	err := row.Scan(
		&studentID,
		&totalXP,
		&level,
		&subjectXP,
		&profile.Streak.Current,
		&profile.Streak.Longest,
		&lastActive,
		&dailyDate,
		&dailyEarned,
		&profile.Totals.SessionsCompleted,
		&profile.Totals.PerfectSessions,
		&profile.Totals.FlashcardsReviewed,
		&outcomes,
		&subjectSessions,
		&unlocked,
		&profile.Version,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.StudentID = shared.StudentID(studentID)
	profile.TotalXP = shared.XP(totalXP)
	profile.Level = shared.Level(level)
	if lastActive != nil {
		profile.Streak.LastActiveDate = timeutil.DateOf(*lastActive)
	}
	if dailyDate != nil {
		profile.Daily.Date = timeutil.DateOf(*dailyDate)
	}

	if err := json.Unmarshal(subjectXP, &profile.SubjectXP); err != nil {
		return nil, fmt.Errorf("unmarshal subject xp: %w", err)
	}
	if err := json.Unmarshal(dailyEarned, &profile.Daily.Earned); err != nil {
		return nil, fmt.Errorf("unmarshal daily earned: %w", err)
	}

	var outcomeList []string
	if err := json.Unmarshal(outcomes, &outcomeList); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	profile.Totals.OutcomesMastered = make(map[shared.OutcomeID]struct{}, len(outcomeList))
	for _, outcome := range outcomeList {
		profile.Totals.OutcomesMastered[shared.OutcomeID(outcome)] = struct{}{}
	}
	if err := json.Unmarshal(subjectSessions, &profile.Totals.SubjectSessions); err != nil {
		return nil, fmt.Errorf("unmarshal subject sessions: %w", err)
	}
	if err := json.Unmarshal(unlocked, &profile.Unlocked); err != nil {
		return nil, fmt.Errorf("unmarshal unlocked: %w", err)
	}

	if profile.SubjectXP == nil {
		profile.SubjectXP = make(map[shared.SubjectID]shared.XP)
	}
	if profile.Totals.SubjectSessions == nil {
		profile.Totals.SubjectSessions = make(map[shared.SubjectID]int)
	}
	if profile.Unlocked == nil {
		profile.Unlocked = make(map[progression.AchievementID]time.Time)
	}
	return &profile, nil
}

// nullableDate maps the zero time to NULL.
func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
