package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT DEFINITION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AchievementDefinitionRepository serves the achievement catalog.
// Implements progression.DefinitionRepository. Requirements are stored
// flat (kind, target, optional subject) and rebuilt through the closed
// union's factory, so a row with an unknown kind fails loudly on read.
type AchievementDefinitionRepository struct {
	conn *Connection
}

// NewAchievementDefinitionRepository creates a new AchievementDefinitionRepository.
func NewAchievementDefinitionRepository(conn *Connection) *AchievementDefinitionRepository {
	return &AchievementDefinitionRepository{conn: conn}
}

const definitionColumns = `
	id, name, description, icon,
	requirement_kind, requirement_target, requirement_subject,
	reward_xp, active`

// ListActive returns the active definitions, stable by id.
func (r *AchievementDefinitionRepository) ListActive(ctx context.Context) ([]progression.AchievementDefinition, error) {
	query := `SELECT` + definitionColumns + `
		FROM achievement_definitions
		WHERE active
		ORDER BY id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list definitions: %w", err)
	}
	defer rows.Close()

	var defs []progression.AchievementDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// GetByID loads one definition, active or not.
func (r *AchievementDefinitionRepository) GetByID(ctx context.Context, id progression.AchievementID) (progression.AchievementDefinition, error) {
	query := `SELECT` + definitionColumns + `
		FROM achievement_definitions
		WHERE id = $1`

	def, err := scanDefinition(r.conn.QueryRow(ctx, query, string(id)))
	if err != nil {
		if IsNoRows(err) {
			return progression.AchievementDefinition{}, shared.NewDomainError(
				"progression", "GetDefinition", shared.ErrNotFound, "achievement definition not found")
		}
		return progression.AchievementDefinition{}, err
	}
	return def, nil
}

// Upsert inserts or replaces a definition.
func (r *AchievementDefinitionRepository) Upsert(ctx context.Context, def progression.AchievementDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	var subject *string
	if scoped, ok := def.Requirement.(progression.SubjectScoped); ok {
		s := string(scoped.Subject())
		subject = &s
	}

	query := `
		INSERT INTO achievement_definitions (` + definitionColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			requirement_kind = EXCLUDED.requirement_kind,
			requirement_target = EXCLUDED.requirement_target,
			requirement_subject = EXCLUDED.requirement_subject,
			reward_xp = EXCLUDED.reward_xp,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at`

	_, err := r.conn.Exec(ctx, query,
		string(def.ID),
		def.Name,
		def.Description,
		def.Icon,
		string(def.Requirement.Kind()),
		def.Requirement.Target(),
		subject,
		int(def.RewardXP),
		def.Active,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert definition: %w", err)
	}
	return nil
}

// Seed inserts the built-in catalog for definitions that don't exist
// yet, leaving operator-edited rows alone.
func (r *AchievementDefinitionRepository) Seed(ctx context.Context, defs []progression.AchievementDefinition) error {
	for _, def := range defs {
		var subject *string
		if scoped, ok := def.Requirement.(progression.SubjectScoped); ok {
			s := string(scoped.Subject())
			subject = &s
		}

		query := `
			INSERT INTO achievement_definitions (` + definitionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`

		_, err := r.conn.Exec(ctx, query,
			string(def.ID),
			def.Name,
			def.Description,
			def.Icon,
			string(def.Requirement.Kind()),
			def.Requirement.Target(),
			subject,
			int(def.RewardXP),
			def.Active,
		)
		if err != nil {
			return fmt.Errorf("postgres: seed definition %s: %w", def.ID, err)
		}
	}
	return nil
}

func scanDefinition(row rowScanner) (progression.AchievementDefinition, error) {
	var (
		def     progression.AchievementDefinition
		id      string
		kind    string
		target  int
		subject *string
		reward  int
	)

	err := row.Scan(&id, &def.Name, &def.Description, &def.Icon, &kind, &target, &subject, &reward, &def.Active)
	if err != nil {
		return def, err
	}

	subjectID := shared.SubjectID("")
	if subject != nil {
		subjectID = shared.SubjectID(*subject)
	}
	requirement, err := progression.NewRequirement(progression.RequirementKind(kind), target, subjectID)
	if err != nil {
		return def, fmt.Errorf("postgres: definition %s: %w", id, err)
	}

	def.ID = progression.AchievementID(id)
	def.Requirement = requirement
	def.RewardXP = shared.XP(reward)
	return def, nil
}
