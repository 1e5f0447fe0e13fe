package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/svpecas/catalogd/config"
	"github.com/svpecas/catalogd/internal/blobstore"
	"github.com/svpecas/catalogd/internal/repository"
	"github.com/svpecas/catalogd/pkg/ids"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Application struct {
	appConfig *config.AppConfig
	store     blobstore.Store
	repo      *repository.CatalogRepository
	journal   *repository.WriteJournal
	sched     *cron.Cron
	bus       EventBus.Bus
}

// Ensure Application implements all interfaces
var _ AppContext = (*Application)(nil)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig { return a.appConfig }

func (a *Application) Store() blobstore.Store { return a.store }

func (a *Application) Repository() *repository.CatalogRepository { return a.repo }

func (a *Application) Journal() *repository.WriteJournal { return a.journal }

func (a *Application) Scheduler() *cron.Cron { return a.sched }

func (a *Application) Bus() EventBus.Bus { return a.bus }

// OverrideStore replaces the blob store and rebuilds the repository on top
// of it (used in tests).
func (a *Application) OverrideStore(store blobstore.Store) {
	a.store = store
	a.journal = repository.NewWriteJournal(store)
	a.repo = repository.NewCatalogRepository(store).WithJournal(a.journal)
	if a.bus == nil {
		a.bus = EventBus.New()
	}
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	if err := ids.Init(1); err != nil {
		return errors.Wrap(err, "init id generator")
	}

	store, err := a.openStore(cfg)
	if err != nil {
		return err
	}
	a.store = blobstore.WithRetry(store)
	a.journal = repository.NewWriteJournal(a.store)
	a.repo = repository.NewCatalogRepository(a.store).WithJournal(a.journal)

	a.bus = EventBus.New()
	a.initAudit()

	a.sched = cron.New()
	a.initJobs(cfg)
	a.sched.Start()

	zap.L().Info("application initialized",
		zap.String("storage", cfg.Storage.Type),
		zap.String("workdir", cfg.System.Workdir))
	return nil
}

// Release stops background work.
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
}

func (a *Application) openStore(cfg *config.AppConfig) (blobstore.Store, error) {
	switch cfg.Storage.Type {
	case "", "fs":
		return blobstore.NewFsStore(cfg.Storage.Dir)
	case "bbolt":
		return blobstore.NewBoltStore(cfg.Storage.Bolt)
	case "github":
		return blobstore.NewGithubStore(blobstore.GithubConfig{
			APIBase: cfg.Storage.Github.APIBase,
			Repo:    cfg.Storage.Github.Repo,
			Branch:  cfg.Storage.Github.Branch,
			Token:   cfg.Storage.Github.Token,
		})
	default:
		return nil, errors.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	var err error
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}
