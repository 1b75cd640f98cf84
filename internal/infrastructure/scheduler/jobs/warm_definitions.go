package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM DEFINITIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// WarmDefinitionsJob periodically reads the active achievement catalog
// through the cached repository so the cache never goes cold on the hot
// path. Every activity completion lists the catalog; keeping it warm
// moves the refill off the request path.
type WarmDefinitionsJob struct {
	definitions progression.DefinitionRepository
	log         *logger.Logger
	timeout     time.Duration
}

// NewWarmDefinitionsJob creates a new cache warming job.
func NewWarmDefinitionsJob(definitions progression.DefinitionRepository, log *logger.Logger) *WarmDefinitionsJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &WarmDefinitionsJob{
		definitions: definitions,
		log:         log.With("job", "warm_definitions"),
		timeout:     30 * time.Second,
	}
}

// Name implements scheduler.Job.
func (j *WarmDefinitionsJob) Name() string {
	return "warm_definitions"
}

// Description implements scheduler.Job.
func (j *WarmDefinitionsJob) Description() string {
	return "keeps the achievement definition cache warm"
}

// Run implements scheduler.Job.
func (j *WarmDefinitionsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	defs, err := j.definitions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("warm definitions: %w", err)
	}

	j.log.Debug("definition cache warmed", "active_definitions", len(defs))
	return nil
}
