package postgres

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_engagement_profiles", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_review_items", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_achievement_definitions", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// 001: engagement profiles
// One row per student. The version column is the optimistic-concurrency
// guard; every orchestrator invocation writes the whole row at version+1.
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS engagement_profiles (
    student_id          UUID PRIMARY KEY,
    total_xp            BIGINT NOT NULL DEFAULT 0,
    level               INTEGER NOT NULL DEFAULT 1,
    subject_xp          JSONB NOT NULL DEFAULT '{}',

    streak_current      INTEGER NOT NULL DEFAULT 0,
    streak_longest      INTEGER NOT NULL DEFAULT 0,
    last_active_date    DATE,

    daily_date          DATE,
    daily_earned        JSONB NOT NULL DEFAULT '{}',

    sessions_completed  INTEGER NOT NULL DEFAULT 0,
    perfect_sessions    INTEGER NOT NULL DEFAULT 0,
    flashcards_reviewed INTEGER NOT NULL DEFAULT 0,
    outcomes_mastered   JSONB NOT NULL DEFAULT '[]',
    subject_sessions    JSONB NOT NULL DEFAULT '{}',

    unlocked            JSONB NOT NULL DEFAULT '{}',

    version             BIGINT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_total_xp_non_negative CHECK (total_xp >= 0),
    CONSTRAINT chk_level_floor CHECK (level >= 1),
    CONSTRAINT chk_streak_non_negative CHECK (streak_current >= 0 AND streak_longest >= 0)
);

CREATE INDEX IF NOT EXISTS idx_profiles_last_active
    ON engagement_profiles (last_active_date)
    WHERE streak_current > 0;
`

const migration001Down = `
DROP TABLE IF EXISTS engagement_profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// 002: review items and review history
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS review_items (
    id               UUID PRIMARY KEY,
    student_id       UUID NOT NULL,
    subject_id       TEXT NOT NULL,
    prompt           TEXT NOT NULL,
    answer           TEXT NOT NULL,

    interval_days    INTEGER NOT NULL DEFAULT 0,
    ease_factor      DOUBLE PRECISION NOT NULL DEFAULT 2.5,
    repetitions      INTEGER NOT NULL DEFAULT 0,
    next_review_date TIMESTAMPTZ,

    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_ease_floor CHECK (ease_factor >= 1.3),
    CONSTRAINT chk_repetitions_non_negative CHECK (repetitions >= 0)
);

CREATE INDEX IF NOT EXISTS idx_review_items_due
    ON review_items (student_id, next_review_date);

CREATE TABLE IF NOT EXISTS review_events (
    id               UUID PRIMARY KEY,
    item_id          UUID NOT NULL REFERENCES review_items (id) ON DELETE CASCADE,
    student_id       UUID NOT NULL,
    grade            INTEGER NOT NULL,

    before_interval  INTEGER NOT NULL,
    before_ease      DOUBLE PRECISION NOT NULL,
    before_reps      INTEGER NOT NULL,
    after_interval   INTEGER NOT NULL,
    after_ease       DOUBLE PRECISION NOT NULL,
    after_reps       INTEGER NOT NULL,
    next_review_date TIMESTAMPTZ,

    answered_at      TIMESTAMPTZ NOT NULL,

    CONSTRAINT chk_grade_range CHECK (grade BETWEEN 0 AND 5)
);

CREATE INDEX IF NOT EXISTS idx_review_events_item
    ON review_events (item_id, answered_at);
`

const migration002Down = `
DROP TABLE IF EXISTS review_events;
DROP TABLE IF EXISTS review_items;
`

// ══════════════════════════════════════════════════════════════════════════════
// 003: achievement definitions
// The requirement union is stored flat: kind + target + optional subject.
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS achievement_definitions (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    icon                TEXT NOT NULL DEFAULT '',
    requirement_kind    TEXT NOT NULL,
    requirement_target  INTEGER NOT NULL,
    requirement_subject TEXT,
    reward_xp           INTEGER NOT NULL DEFAULT 0,
    active              BOOLEAN NOT NULL DEFAULT TRUE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_target_positive CHECK (requirement_target > 0),
    CONSTRAINT chk_reward_non_negative CHECK (reward_xp >= 0)
);

CREATE INDEX IF NOT EXISTS idx_achievement_definitions_active
    ON achievement_definitions (active);
`

const migration003Down = `
DROP TABLE IF EXISTS achievement_definitions;
`
