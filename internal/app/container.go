package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/doeshing/aicmd-go/internal/application/confidence"
	"github.com/doeshing/aicmd-go/internal/application/doctor"
	"github.com/doeshing/aicmd-go/internal/application/maintenance"
	"github.com/doeshing/aicmd-go/internal/application/matching"
	"github.com/doeshing/aicmd-go/internal/application/query"
	"github.com/doeshing/aicmd-go/internal/application/resolution"
	"github.com/doeshing/aicmd-go/internal/domain"
	"github.com/doeshing/aicmd-go/internal/infrastructure/ai"
	"github.com/doeshing/aicmd-go/internal/infrastructure/config"
	contextcollector "github.com/doeshing/aicmd-go/internal/infrastructure/context"
	"github.com/doeshing/aicmd-go/internal/infrastructure/security"
	"github.com/doeshing/aicmd-go/internal/infrastructure/store"
	"github.com/doeshing/aicmd-go/internal/pkg/logger"
	"github.com/doeshing/aicmd-go/internal/ports"
)

// Options carries the adapters owned by the CLI layer.
type Options struct {
	ConfigPath string
	Verbose    bool
	Prompter   ports.ConfirmationPrompter
	Presenter  ports.ResolutionPresenter
	Clipboard  ports.Clipboard

	// WrapGenerator decorates the model generator, e.g. with a progress spinner.
	WrapGenerator func(ports.Generator) ports.Generator
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config             domain.Config
	ConfigLoader       *config.FileLoader
	Logger             *logger.ZapLogger
	Store              *store.SQLiteStore
	Guardrail          *security.Guardrail
	Engine             *resolution.Engine
	QueryService       *query.Service
	MaintenanceService *maintenance.Service
	DoctorService      *doctor.Service
}

// BuildContainer constructs the dependency graph. A cache database that cannot
// be opened is replaced by an unavailable store so queries still reach the
// generator; an invalid confidence configuration is fatal.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New(opts.Verbose)

	model, err := confidence.NewModel(confidence.ParamsFromConfig(cfg.Confidence), confidence.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("confidence settings: %w", err)
	}

	strategy, err := matching.ParseHashStrategy(cfg.Cache.HashStrategy)
	if err != nil {
		return nil, fmt.Errorf("cache settings: %w", err)
	}
	hasher := matching.NewHasher(strategy, matching.DefaultVocabulary())
	matcher := matching.NewMatcher(matching.DefaultVocabulary())

	dbPath := config.DatabasePath(cfg)
	cacheStore, err := store.Open(ctx, dbPath)
	if err != nil {
		log.Warn("cache database unavailable, continuing without cache", map[string]interface{}{
			"path":  dbPath,
			"error": err.Error(),
		})
		cacheStore = store.Unavailable(dbPath)
	}

	guardrail, err := security.NewGuardrail(cfg.Security.RulesFile, security.WithPolicy(cfg.Security))
	if err != nil {
		log.Warn("guardrail rules invalid, using built-in rules", map[string]interface{}{
			"rules_file": cfg.Security.RulesFile,
			"error":      err.Error(),
		})
		guardrail, err = security.NewDefaultGuardrail(security.WithPolicy(cfg.Security))
		if err != nil {
			cacheStore.Close()
			return nil, err
		}
	}

	collector := contextcollector.NewBasicCollector()
	var generator ports.Generator = ai.NewGenerator(ai.NewFactory(), cfg, ai.WithContextCollector(collector), ai.WithLogger(log))
	if opts.WrapGenerator != nil {
		generator = opts.WrapGenerator(generator)
	}

	engine, err := resolution.NewEngine(resolution.Dependencies{
		Store:     cacheStore,
		Hasher:    hasher,
		Matcher:   matcher,
		Model:     model,
		Generator: generator,
		Security:  guardrail,
		Prompter:  opts.Prompter,
		Presenter: opts.Presenter,
		Collector: collector,
		Logger:    log,
	}, resolution.SettingsFromConfig(cfg))
	if err != nil {
		cacheStore.Close()
		return nil, err
	}

	queryService := &query.Service{
		Resolver:        engine,
		Clipboard:       opts.Clipboard,
		Logger:          log,
		CopyToClipboard: cfg.Interaction.CopyToClipboard,
	}

	maintenanceService := maintenance.NewService(cacheStore, model, hasher,
		maintenance.SettingsFromConfig(cfg), maintenance.WithLogger(log))

	doctorService := &doctor.Service{
		ConfigProvider:   cfgLoader,
		Store:            cacheStore,
		SecurityService:  guardrail,
		ContextCollector: collector,
		Clipboard:        opts.Clipboard,
	}

	return &Container{
		Config:             cfg,
		ConfigLoader:       cfgLoader,
		Logger:             log,
		Store:              cacheStore,
		Guardrail:          guardrail,
		Engine:             engine,
		QueryService:       queryService,
		MaintenanceService: maintenanceService,
		DoctorService:      doctorService,
	}, nil
}

// Close releases the database handle and flushes the logger.
func (c *Container) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.Logger != nil {
		// Sync on a terminal stderr returns EINVAL.
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}
