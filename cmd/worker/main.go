// Package main is the entry point for the StudyHub progression worker.
//
// The worker owns the write side of the progression engine:
//   - consumes completed activities off the Redis intake queue and runs
//     them through the XP, streak, level and achievement pipeline
//   - consumes review answers and new flashcards for the scheduler
//   - publishes progression events and turns the student-visible ones
//     into notifications
//   - runs the evening streak-at-risk scan and keeps the achievement
//     catalog cache warm
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/studyhub/progression-core/config"
	"github.com/studyhub/progression-core/internal/application/command"
	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/internal/infrastructure/messaging"
	"github.com/studyhub/progression-core/internal/infrastructure/persistence/postgres"
	"github.com/studyhub/progression-core/internal/infrastructure/persistence/redis"
	"github.com/studyhub/progression-core/internal/infrastructure/queue"
	"github.com/studyhub/progression-core/internal/infrastructure/scheduler"
	"github.com/studyhub/progression-core/internal/infrastructure/scheduler/jobs"
	"github.com/studyhub/progression-core/pkg/logger"
	"github.com/studyhub/progression-core/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	logMode := "development"
	if cfg.Observability.LogFormat == "json" {
		logMode = "production"
	}
	log, err := logger.New(logger.Config{Mode: logMode, Level: cfg.Observability.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting progression worker",
		"app", cfg.App.Name,
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS AND SEED DATA
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations")
	if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	profileRepo := postgres.NewProfileRepository(dbConn)
	itemRepo := postgres.NewReviewItemRepository(dbConn)
	eventRepo := postgres.NewReviewEventRepository(dbConn)
	pgDefinitions := postgres.NewAchievementDefinitionRepository(dbConn)

	if err := pgDefinitions.Seed(ctx, progression.DefaultDefinitions()); err != nil {
		return fmt.Errorf("failed to seed achievement definitions: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional; caching, intake queues and cross-instance events)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}

		cache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, running without cache and queue intake", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var definitionRepo progression.DefinitionRepository = pgDefinitions
	if cache != nil {
		definitionRepo = redis.NewCachedDefinitionRepository(pgDefinitions, cache, log)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS AND NOTIFICATIONS
	// ─────────────────────────────────────────────────────────────────────────
	var bus shared.EventBus
	var closeBus func() error

	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log

	if cache != nil && cfg.Features.IsEnabled(config.FeatureRedisEventBus) {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         cache.Client(),
			LocalBusConfig: busCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		bus = redisBus
		closeBus = redisBus.Close
		log.Info("event bus: redis pub/sub")
	} else {
		localBus := messaging.NewInMemoryEventBus(busCfg)
		bus = localBus
		closeBus = localBus.Close
		log.Info("event bus: in-memory")
	}
	defer func() {
		log.Info("closing event bus")
		_ = closeBus()
	}()

	dispatcher := messaging.NewNotificationDispatcher(messaging.NewLogNotifier(log), log)
	dispatcher.SetGate(notificationGate(cfg.Features))
	if err := dispatcher.Attach(bus); err != nil {
		return fmt.Errorf("failed to attach notification dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. COMMAND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	ledger := progression.NewLedger(nil, nil)

	completeActivity := command.NewCompleteActivityHandler(
		profileRepo,
		definitionRepo,
		ledger,
		bus,
		command.CompleteActivityHandlerConfig{Milestones: cfg.Progression.StreakMilestones, Logger: log},
	)
	submitAnswer := command.NewSubmitReviewAnswerHandler(itemRepo, eventRepo, bus, nil, log)
	createItem := command.NewCreateReviewItemHandler(itemRepo, nil)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. QUEUE CONSUMERS
	// ─────────────────────────────────────────────────────────────────────────
	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	var consumers sync.WaitGroup

	if cache != nil {
		retryCfg := retry.DefaultConfig()
		if cfg.Progression.StaleRetries > 0 {
			// First attempt plus one retry per allowed conflict.
			retryCfg.MaxAttempts = cfg.Progression.StaleRetries + 1
		}

		activityConsumer := queue.NewActivityConsumer(
			queue.NewRedisQueue(cache.Client(), queue.DefaultActivityQueueKey),
			completeActivity,
			queue.ActivityConsumerConfig{Retry: retryCfg, Logger: log},
		)
		reviewConsumer := queue.NewReviewConsumer(
			queue.NewRedisQueue(cache.Client(), queue.DefaultReviewQueueKey),
			submitAnswer,
			createItem,
			queue.ReviewConsumerConfig{Logger: log},
		)

		consumers.Add(2)
		go func() {
			defer consumers.Done()
			_ = activityConsumer.Run(consumerCtx)
		}()
		go func() {
			defer consumers.Done()
			_ = reviewConsumer.Run(consumerCtx)
		}()
	} else {
		log.Warn("queue intake disabled: no Redis connection")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{Logger: log})

		var marker jobs.RiskMarker
		if cache != nil {
			marker = cache
		}
		streakRisk := jobs.NewStreakRiskJob(profileRepo, bus, marker, nil, log, jobs.StreakRiskConfig{
			MinStreak: cfg.Scheduler.StreakRiskMinStreak,
		})
		if err := sched.Register(streakRisk, scheduler.NewDailySchedule(cfg.Scheduler.StreakScanHour, cfg.Scheduler.StreakScanMinute)); err != nil {
			return fmt.Errorf("failed to register streak risk job: %w", err)
		}

		if cache != nil {
			warm := jobs.NewWarmDefinitionsJob(definitionRepo, log)
			if err := sched.Register(warm, scheduler.NewIntervalSchedule(cfg.Scheduler.DefinitionWarmInterval)); err != nil {
				return fmt.Errorf("failed to register definition warm job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started",
			"streak_scan", fmt.Sprintf("%02d:%02d UTC", cfg.Scheduler.StreakScanHour, cfg.Scheduler.StreakScanMinute),
		)
	} else {
		log.Info("scheduler disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("progression worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if sched != nil {
			if err := sched.Stop(); err != nil {
				log.Error("scheduler stop failed", "error", err)
			}
		}
		stopConsumers()
		consumers.Wait()
	}()

	select {
	case <-shutdownDone:
		log.Info("progression worker stopped")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timed out", "timeout", cfg.App.ShutdownTimeout)
	}

	return nil
}

// notificationGate maps notification kinds onto their feature flags so
// each kind can be rolled out to a percentage of students.
func notificationGate(flags *config.FeatureFlags) messaging.NotificationGate {
	kindToFlag := map[string]string{
		"level_up":             config.FeatureNotifyLevelUp,
		"streak_milestone":     config.FeatureNotifyStreakMilestone,
		"streak_at_risk":       config.FeatureNotifyStreakAtRisk,
		"achievement_unlocked": config.FeatureNotifyAchievement,
	}
	return func(kind, studentID string) bool {
		flag, ok := kindToFlag[kind]
		if !ok {
			return false
		}
		return flags.IsEnabledFor(flag, studentID)
	}
}
