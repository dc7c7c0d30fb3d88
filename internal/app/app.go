package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pajakoo/shoppApp/config"
	"github.com/pajakoo/shoppApp/internal/catalog"
	"github.com/pajakoo/shoppApp/internal/metrics"
)

// Event bus topics. Decode results are raw frames, scan events are
// debounced, device selection drives decode session restarts.
const (
	TopicDecodeResult   = "scanner:decode"
	TopicScanEvent      = "scanner:scan"
	TopicDeviceSelected = "device:selected"
)

// Application is the process-wide container: configuration, logger, event
// bus, catalog client, scheduler and the local preference store.
type Application struct {
	appConfig *config.AppConfig
	bus       EventBus.Bus
	sched     *cron.Cron
	node      *snowflake.Node
	prefs     *PrefStore
	catalog   *catalog.Client
}

var (
	_ ConfigProvider    = (*Application)(nil)
	_ BusProvider       = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ PrefsProvider     = (*Application)(nil)
	_ IDProvider        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Catalog() *catalog.Client {
	return a.catalog
}

func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Prefs() *PrefStore {
	return a.prefs
}

// NextID returns a process-unique id for session/scan log correlation.
func (a *Application) NextID() int64 {
	return a.node.Generate().Int64()
}

// Init brings up the logger, metrics store, preference store, event bus and
// scheduler. It never connects to the remote catalog; the first network call
// happens when the screen mounts.
func (a *Application) Init() error {
	cfg := a.appConfig

	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	// Initialize zap logger
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
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
		logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	} else {
		logger, err = zapConfig.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			return err
		}
	}
	zap.ReplaceGlobals(logger)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	prefs, err := OpenPrefStore(cfg.System.Workdir)
	if err != nil {
		zap.S().Warnf("preference store unavailable: %v", err)
	} else {
		a.prefs = prefs
	}

	a.node, err = snowflake.NewNode(1)
	if err != nil {
		return err
	}

	a.bus = EventBus.New()
	a.sched = cron.New()
	a.catalog = catalog.NewClient(cfg.Catalog)
	return nil
}

// StartBackgroundJobs starts the cron scheduler.
func (a *Application) StartBackgroundJobs() {
	a.sched.Start()
}

// Release releases application resources.
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.prefs != nil {
		_ = a.prefs.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
