package redis

import (
	"context"
	"errors"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/circuitbreaker"
	"github.com/studyhub/progression-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHED DEFINITION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// definitionListKey holds the full active-definition list under one key.
// The catalog is small (tens of rows) and always read as a whole.
const definitionListKey = PrefixDefinitions + "active"

// definitionDTO is the cache wire form of an AchievementDefinition.
// The requirement union is flattened to (kind, target, subject) and
// rebuilt through the factory on read, so an unknown kind fails loudly
// instead of deserializing into a hollow value.
type definitionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Kind        string `json:"kind"`
	Target      int    `json:"target"`
	Subject     string `json:"subject,omitempty"`
	RewardXP    int    `json:"reward_xp"`
	Active      bool   `json:"active"`
}

func toDefinitionDTO(def progression.AchievementDefinition) definitionDTO {
	dto := definitionDTO{
		ID:          string(def.ID),
		Name:        def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		Kind:        string(def.Requirement.Kind()),
		Target:      def.Requirement.Target(),
		RewardXP:    int(def.RewardXP),
		Active:      def.Active,
	}
	if scoped, ok := def.Requirement.(progression.SubjectScoped); ok {
		dto.Subject = string(scoped.Subject())
	}
	return dto
}

func fromDefinitionDTO(dto definitionDTO) (progression.AchievementDefinition, error) {
	req, err := progression.NewRequirement(
		progression.RequirementKind(dto.Kind),
		dto.Target,
		shared.SubjectID(dto.Subject),
	)
	if err != nil {
		return progression.AchievementDefinition{}, err
	}

	return progression.AchievementDefinition{
		ID:          progression.AchievementID(dto.ID),
		Name:        dto.Name,
		Description: dto.Description,
		Icon:        dto.Icon,
		Requirement: req,
		RewardXP:    shared.XP(dto.RewardXP),
		Active:      dto.Active,
	}, nil
}

// CachedDefinitionRepository is a read-through cache over a
// progression.DefinitionRepository. Reads of the active catalog hit
// Redis first; misses fall through to the inner repository and
// repopulate the cache. Redis access runs behind a circuit breaker so
// a degraded cache never takes the catalog down with it.
type CachedDefinitionRepository struct {
	inner   progression.DefinitionRepository
	cache   *Cache
	breaker *circuitbreaker.Breaker
	log     *logger.Logger
}

// NewCachedDefinitionRepository wraps inner with a Redis read-through cache.
func NewCachedDefinitionRepository(inner progression.DefinitionRepository, cache *Cache, log *logger.Logger) *CachedDefinitionRepository {
	if log == nil {
		log = logger.NewNop()
	}

	cfg := circuitbreaker.DefaultConfig("redis-definitions")
	cfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn("cache circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
	}

	return &CachedDefinitionRepository{
		inner:   inner,
		cache:   cache,
		breaker: circuitbreaker.New(cfg),
		log:     log.With("component", "definition_cache"),
	}
}

// ListActive returns the active achievement catalog, serving from Redis
// when possible.
func (r *CachedDefinitionRepository) ListActive(ctx context.Context) ([]progression.AchievementDefinition, error) {
	var dtos []definitionDTO

	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.cache.Get(ctx, definitionListKey, &dtos)
	})
	if err == nil {
		defs := make([]progression.AchievementDefinition, 0, len(dtos))
		for _, dto := range dtos {
			def, convErr := fromDefinitionDTO(dto)
			if convErr != nil {
				// A stale or corrupt entry poisons the whole list.
				// Drop it and rebuild from the source of truth.
				r.log.Warn("cached definition invalid, invalidating", "id", dto.ID, "error", convErr)
				r.invalidate(ctx)
				return r.listAndFill(ctx)
			}
			defs = append(defs, def)
		}
		return defs, nil
	}

	if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		r.log.Warn("definition cache read failed", "error", err)
	}

	return r.listAndFill(ctx)
}

// listAndFill reads from the inner repository and repopulates the cache
// on a best-effort basis.
func (r *CachedDefinitionRepository) listAndFill(ctx context.Context) ([]progression.AchievementDefinition, error) {
	defs, err := r.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]definitionDTO, 0, len(defs))
	for _, def := range defs {
		dtos = append(dtos, toDefinitionDTO(def))
	}

	fillErr := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.cache.Set(ctx, definitionListKey, dtos, TTLDefinitionCache)
	})
	if fillErr != nil && !errors.Is(fillErr, circuitbreaker.ErrCircuitOpen) {
		r.log.Warn("definition cache fill failed", "error", fillErr)
	}

	return defs, nil
}

// GetByID looks up a single definition. Single-definition reads are
// rare (admin tooling), so they go straight to the inner repository.
func (r *CachedDefinitionRepository) GetByID(ctx context.Context, id progression.AchievementID) (progression.AchievementDefinition, error) {
	return r.inner.GetByID(ctx, id)
}

// Upsert writes through to the inner repository and invalidates the
// cached catalog so the next read observes the change.
func (r *CachedDefinitionRepository) Upsert(ctx context.Context, def progression.AchievementDefinition) error {
	if err := r.inner.Upsert(ctx, def); err != nil {
		return err
	}

	r.invalidate(ctx)
	return nil
}

func (r *CachedDefinitionRepository) invalidate(ctx context.Context) {
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		return r.cache.Delete(ctx, definitionListKey)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		r.log.Warn("definition cache invalidation failed", "error", err)
	}
}
