package app

import (
	"context"
	"fmt"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/handlers"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/jobs"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/assembly"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/events"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/generation"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/modelparse"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/narrative"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/research"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/scheduler"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/services/template"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService

	// Pipeline services
	GenerationService interfaces.GenerationService
	ResearchService   interfaces.ResearchService
	ModelParser       interfaces.ModelParser
	TemplateService   interfaces.TemplateService
	NarrativeService  *narrative.Service
	Assembler         *assembly.Assembler
	Renderer          interfaces.ReportRenderer

	// Job execution
	Registry   *jobs.Registry
	JobService *jobs.Service

	// HTTP handlers
	APIHandler        *handlers.APIHandler
	ReportHandler     *handlers.ReportHandler
	EngagementHandler *handlers.EngagementHandler
	OutlookHandler    *handlers.OutlookHandler
	KVHandler         *handlers.KVHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Log initialization summary
	logger.Info().
		Str("provider", string(generation.DetectProvider(cfg))).
		Str("template_dir", cfg.Templates.Dir).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Load variables from files (e.g. API keys, secrets)
	// This must happen before config replacement so that loaded variables can be used
	if err := storageManager.LoadVariablesFromFiles(context.Background(), a.Config.Variables.Dir); err != nil {
		// Log warning but don't fail startup
		a.Logger.Warn().Err(err).Msg("Failed to load variables from files")
	}

	// Perform {key-name} replacement in config after variables are loaded.
	// This replaces any {key-name} references in config values with actual
	// KV store values and must happen before services are initialized.
	ctx := context.Background()
	kvMap, err := a.StorageManager.KeyValue().GetAll(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
	} else if len(kvMap) > 0 {
		applied, err := common.ReplaceInStruct(a.Config, kvMap, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
		} else if applied > 0 {
			a.Logger.Debug().Int("replacements", applied).Msg("Applied key/value replacements to config")
		}
	}

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	// Event service first; the pipeline and the job registry communicate
	// through it
	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	// Generation service (Claude or Gemini per config)
	generationService, err := generation.NewService(a.Config, a.StorageManager.KeyValue(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize generation service: %w", err)
	}
	a.GenerationService = generationService

	// Research service
	a.ResearchService = research.NewService(a.GenerationService, &a.Config.Research, a.Logger)

	// Model parser
	a.ModelParser = modelparse.NewExcelParser(a.Logger)

	// Template service (loads and validates template files at startup)
	templateService, err := template.NewService(a.Config.Templates.Dir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize template service: %w", err)
	}
	a.TemplateService = templateService

	// Narrative assembly and rendering
	a.NarrativeService = narrative.NewService(
		a.GenerationService,
		a.StorageManager.Outlooks(),
		a.Config.Generation.SectionConcurrency,
		a.Logger,
	)
	a.Assembler = assembly.NewAssembler(a.Logger)
	a.Renderer = assembly.NewPDFRenderer(a.Logger)

	// Job registry, pipeline orchestrator, and job service
	a.Registry = jobs.NewRegistry(a.Logger)
	orchestrator := jobs.NewOrchestrator(
		a.StorageManager,
		a.ModelParser,
		a.TemplateService,
		a.ResearchService,
		a.NarrativeService,
		a.Assembler,
		a.Renderer,
		a.EventService,
		a.Config,
		a.Logger,
	)
	jobService, err := jobs.NewService(a.Registry, orchestrator, a.EventService, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job service: %w", err)
	}
	a.JobService = jobService

	// Scheduler with the stale-job sweep
	if err := a.initScheduler(); err != nil {
		return err
	}

	return nil
}

// initScheduler validates the sweep schedule, registers the stale-job
// sweep, and starts the scheduler
func (a *App) initScheduler() error {
	if err := common.ValidateSweepSchedule(a.Config.Jobs.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", a.Config.Jobs.SweepSchedule, err)
	}

	retainFor := common.ParseDurationOr(a.Config.Jobs.RetainFor, 24*time.Hour)

	a.SchedulerService = scheduler.NewService(a.Logger)
	err := a.SchedulerService.RegisterTask("stale-job-sweep", a.Config.Jobs.SweepSchedule, func() error {
		removed := a.JobService.SweepStale(retainFor)
		if removed > 0 {
			a.Logger.Info().Int("removed", removed).Msg("Stale jobs swept")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register sweep task: %w", err)
	}

	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	a.Logger.Debug().
		Str("schedule", a.Config.Jobs.SweepSchedule).
		Dur("retain_for", retainFor).
		Msg("Stale-job sweep scheduled")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.JobService, a.Logger)
	a.EngagementHandler = handlers.NewEngagementHandler(
		a.StorageManager.Engagements(),
		a.StorageManager.Reports(),
		a.Logger,
	)
	a.OutlookHandler = handlers.NewOutlookHandler(a.StorageManager.Outlooks(), a.Logger)
	a.KVHandler = handlers.NewKVHandler(a.StorageManager.KeyValue(), a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")

	return nil
}

// Close gracefully shuts down all application components
func (a *App) Close() error {
	// Stop the scheduler first so no new sweeps fire during shutdown
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Drain running report jobs
	if a.JobService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.JobService.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Report jobs did not drain before timeout")
		}
	}

	// Close generation service after jobs have drained
	if a.GenerationService != nil {
		if err := a.GenerationService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation service")
		}
	}

	// Close event service
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage last; everything above may still read from it while
	// draining
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage manager")
			return err
		}
		a.Logger.Info().Msg("Storage manager closed")
	}

	return nil
}
