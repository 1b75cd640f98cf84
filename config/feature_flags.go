package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual per-student rollout.
// Buckets are assigned by hashing the student ID, so a student stays in
// the same bucket across sessions.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Students are assigned based on a
	// hash of their ID.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// === Notification Features ===
	FeatureNotifyLevelUp         = "notify.level_up"          // "You reached level N"
	FeatureNotifyStreakMilestone = "notify.streak_milestone"  // "7 days in a row"
	FeatureNotifyStreakAtRisk    = "notify.streak_at_risk"    // evening reminder
	FeatureNotifyAchievement     = "notify.achievement"       // unlock messages

	// === Engagement Features ===
	FeatureStreakMultiplier = "engagement.streak_multiplier" // XP multiplier ladder
	FeatureAchievements     = "engagement.achievements"      // achievement evaluation

	// === Infrastructure Features ===
	FeatureRedisEventBus = "infra.redis_eventbus" // cross-instance event fanout
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	defaults := []Feature{
		{
			Name:           FeatureNotifyLevelUp,
			Description:    "Notify students when they level up",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureNotifyStreakMilestone,
			Description:    "Celebrate streak milestones",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureNotifyStreakAtRisk,
			Description:    "Remind students before a streak breaks",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureNotifyAchievement,
			Description:    "Announce unlocked achievements",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureStreakMultiplier,
			Description:    "Apply the streak XP multiplier ladder",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureAchievements,
			Description:    "Evaluate and unlock achievements",
			Enabled:        true,
			RolloutPercent: 100,
		},
		{
			Name:           FeatureRedisEventBus,
			Description:    "Publish events through Redis pub/sub",
			Enabled:        false,
			RolloutPercent: 0,
		},
	}

	for i := range defaults {
		f := defaults[i]
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment applies environment overrides.
// "notify.level_up" is controlled by FEATURE_NOTIFY_LEVEL_UP, whose value
// may be a boolean ("true"/"false") or a rollout percentage ("25").
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "notify.level_up" -> "FEATURE_NOTIFY_LEVEL_UP"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled globally (full rollout only).
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	return feature.Enabled && feature.RolloutPercent >= 100
}

// IsEnabledFor checks if a feature is enabled for the given student,
// honoring partial rollout.
func (ff *FeatureFlags) IsEnabledFor(featureName, studentID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent >= 100 {
		return true
	}
	if feature.RolloutPercent <= 0 || studentID == "" {
		return false
	}

	return isInRollout(studentID, featureName, feature.RolloutPercent)
}

// isInRollout determines if a student is in the rollout percentage.
// Uses consistent hashing so students stay in their bucket.
func isInRollout(studentID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(studentID))
	bucket := int(h.Sum32() % 100)

	return bucket < percent
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
