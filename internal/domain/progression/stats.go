package progression

import (
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// StudentStats is a flat snapshot of a profile's counters, taken after an
// activity has been fully applied. Achievement requirements evaluate
// against this snapshot so that every requirement in a batch sees the
// same consistent state.
type StudentStats struct {
	SessionsCompleted  int
	PerfectSessions    int
	FlashcardsReviewed int
	OutcomesMastered   int
	StreakDays         int
	Level              int
	TotalXP            int
	SubjectSessions    map[shared.SubjectID]int
}

// SessionsIn reports the session count for one subject.
func (s StudentStats) SessionsIn(subject shared.SubjectID) int {
	if s.SubjectSessions == nil {
		return 0
	}
	return s.SubjectSessions[subject]
}
