package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY XP SUMMARY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetDailyXPSummaryQuery requests today's earned XP per activity type.
type GetDailyXPSummaryQuery struct {
	StudentID string

	// Day defaults to the current reference-zone day if zero.
	Day time.Time
}

// DailyActivitySummary is one activity type's line in the summary.
type DailyActivitySummary struct {
	ActivityType progression.ActivityType
	Earned       int
	DailyCap     int
	Remaining    int
	CapReached   bool
}

// DailyXPSummary is the read model for one student day. Earned amounts
// are post-cap: a capped day reports exactly the cap, never the raw sum
// of what the activities would have earned.
type DailyXPSummary struct {
	StudentID   string
	Day         time.Time
	TotalEarned int
	Activities  []DailyActivitySummary
}

// GetDailyXPSummaryHandler handles the GetDailyXPSummaryQuery.
type GetDailyXPSummaryHandler struct {
	profileRepo progression.ProfileRepository
	rules       progression.RuleTable
	clock       shared.Clock
}

// NewGetDailyXPSummaryHandler creates a new GetDailyXPSummaryHandler.
func NewGetDailyXPSummaryHandler(
	profileRepo progression.ProfileRepository,
	rules progression.RuleTable,
	clock shared.Clock,
) *GetDailyXPSummaryHandler {
	if rules == nil {
		rules = progression.DefaultRules()
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &GetDailyXPSummaryHandler{profileRepo: profileRepo, rules: rules, clock: clock}
}

// Handle builds the summary from the profile's daily ledger. Days other
// than the ledger's current day report zero for every activity type, as
// does a student with no profile yet.
func (h *GetDailyXPSummaryHandler) Handle(ctx context.Context, q GetDailyXPSummaryQuery) (*DailyXPSummary, error) {
	studentID := shared.StudentID(q.StudentID)
	if err := studentID.Validate(); err != nil {
		return nil, fmt.Errorf("get_daily_xp_summary: %w", err)
	}

	day := q.Day
	if day.IsZero() {
		day = h.clock()
	}
	day = timeutil.DateOf(day)

	summary := &DailyXPSummary{StudentID: q.StudentID, Day: day}

	profile, err := h.profileRepo.GetByStudent(ctx, studentID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("get_daily_xp_summary: %w", err)
	}

	for activityType, rule := range h.rules {
		earned := 0
		if profile != nil {
			earned = profile.Daily.EarnedOn(day, activityType)
		}
		line := DailyActivitySummary{
			ActivityType: activityType,
			Earned:       earned,
			DailyCap:     rule.DailyCap,
		}
		if rule.DailyCap > 0 {
			line.Remaining = rule.DailyCap - earned
			if line.Remaining < 0 {
				line.Remaining = 0
			}
			line.CapReached = earned >= rule.DailyCap
		}
		summary.TotalEarned += earned
		summary.Activities = append(summary.Activities, line)
	}

	// Stable order despite map iteration.
	sort.Slice(summary.Activities, func(i, j int) bool {
		return summary.Activities[i].ActivityType < summary.Activities[j].ActivityType
	})
	return summary, nil
}
