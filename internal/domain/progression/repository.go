package progression

import (
	"context"
	"time"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ProfileRepository persists engagement profiles with optimistic
// concurrency. Update matches on the loaded Version and increments it;
// when the row moved underneath the transaction it returns
// shared.ErrStaleProfile and the caller retries the whole operation.
type ProfileRepository interface {
	GetByStudent(ctx context.Context, studentID shared.StudentID) (*EngagementProfile, error)
	Create(ctx context.Context, profile *EngagementProfile) error
	Update(ctx context.Context, profile *EngagementProfile) error

	// ListStreakAtRisk returns profiles whose streak breaks unless the
	// student is active on the given day.
	ListStreakAtRisk(ctx context.Context, day time.Time) ([]*EngagementProfile, error)
}

// DefinitionRepository serves the achievement catalog.
type DefinitionRepository interface {
	ListActive(ctx context.Context) ([]AchievementDefinition, error)
	GetByID(ctx context.Context, id AchievementID) (AchievementDefinition, error)
	Upsert(ctx context.Context, def AchievementDefinition) error
}
