package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"snake-arena/server"
	"snake-arena/server/internal/bots"
	servernet "snake-arena/server/internal/net"
	"snake-arena/server/internal/net/codec"
	"snake-arena/server/internal/net/session"
	"snake-arena/server/internal/sim"
	"snake-arena/server/internal/telemetry"
	"snake-arena/server/internal/world"
	"snake-arena/server/logging"
	loggingSinks "snake-arena/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// App is a fully wired server: logging router, world, engine, hub and HTTP
// surface. Run drives the loop and the listener until the context ends.
type App struct {
	cfg     Config
	logger  telemetry.Logger
	router  *logging.Router
	jsonOut io.Closer
	metrics *logging.Metrics

	engine  *sim.Engine
	loop    *sim.Loop
	hub     *server.Hub
	handler http.Handler
}

// New builds every component without starting any goroutine besides the
// logging router.
func New(cfg Config) (*App, error) {
	stdLogger := log.New(os.Stderr, "", log.LstdFlags)
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(stdLogger)
	}
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			stdLogger = candidate
		}
	}

	deadlock.Opts.DeadlockTimeout = cfg.DeadlockTimeout
	deadlock.Opts.Disable = cfg.DeadlockTimeout <= 0

	logConfig := logging.DefaultConfig()
	logConfig.MinimumSeverity = cfg.LogLevel
	if cfg.LogLevel == logging.SeverityDebug {
		logConfig.CategorySeverity[logging.CategoryNetwork] = logging.SeverityDebug
	}
	logConfig.Console.UseColor = cfg.LogColor
	logConfig.JSON.FilePath = cfg.LogJSONPath
	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	var jsonOut io.Closer
	if cfg.LogJSONPath != "" {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", cfg.LogJSONPath)
		}
		jsonOut = file
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logConfig.JSON)})
	}

	router, err := logging.NewRouter(logging.SystemClock, logConfig, sinks)
	if err != nil {
		if jsonOut != nil {
			jsonOut.Close()
		}
		return nil, errors.Wrap(err, "construct logging router")
	}

	metrics := &logging.Metrics{}

	worldCfg := world.DefaultConfig()
	if cfg.WorldRadius > 0 {
		worldCfg.WorldRadius = cfg.WorldRadius
	}
	w := world.New(worldCfg, world.Deps{Publisher: router, Clock: logging.SystemClock})

	engineCfg := sim.DefaultEngineConfig()
	if cfg.MinBots > 0 {
		engineCfg.Population.MinBots = cfg.MinBots
	}
	if cfg.TickRate > 0 {
		engineCfg.AntiCheat.TickInterval = time.Second / time.Duration(cfg.TickRate)
	}
	simLogger := telemetry.Tagged(logger, "sim")
	engine := sim.NewEngine(w, engineCfg, sim.Deps{
		Logger:    simLogger,
		Metrics:   telemetry.WrapMetrics(metrics),
		Publisher: router,
		Clock:     logging.SystemClock,
	}, sim.EngineHooks{
		OnQueueWarning: func(length int) {
			simLogger.Printf("command queue length=%d", length)
		},
	})
	engine.SetSteerer(bots.New(bots.DefaultConfig()))

	wireCodec, ok := codec.ForName(cfg.Codec)
	if !ok {
		logger.Printf("unknown codec %q, using %s", cfg.Codec, wireCodec.Name())
	}

	loopCfg := sim.DefaultLoopConfig()
	if cfg.TickRate > 0 {
		loopCfg.TickRate = cfg.TickRate
	}
	if cfg.NetworkRate > 0 {
		loopCfg.NetworkRate = cfg.NetworkRate
	}
	if cfg.ManagementInterval > 0 {
		loopCfg.ManagementInterval = cfg.ManagementInterval
	}

	hub := server.NewHub(engine, server.HubConfig{
		Session:        session.DefaultConfig(),
		Codec:          wireCodec,
		TickRate:       loopCfg.TickRate,
		NetworkRate:    loopCfg.NetworkRate,
		Logger:         logger,
		Publisher:      router,
		Clock:          logging.SystemClock,
		Metrics:        metrics,
		DebugTelemetry: cfg.DebugTelemetry,
	})

	loop := sim.NewLoop(engine, loopCfg, sim.LoopHooks{
		AfterStep: hub.AfterStep,
		Network: func(now time.Time) {
			hub.Broadcast(now)
		},
		AfterManage: func(world.PopulationReport) {
			hub.Maintain(logging.SystemClock.Now())
		},
		OnAlarm: func() {
			hub.ResyncAll(session.ResyncAlarm)
		},
	})

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     cfg.ClientDir,
		Logger:        stdLogger,
		Observability: cfg.Observability,
	})

	return &App{
		cfg:     cfg,
		logger:  logger,
		router:  router,
		jsonOut: jsonOut,
		metrics: metrics,
		engine:  engine,
		loop:    loop,
		hub:     hub,
		handler: handler,
	}, nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Hub() *server.Hub { return a.hub }

func (a *App) Loop() *sim.Loop { return a.loop }

// Run serves HTTP and drives the simulation until ctx is cancelled or the
// listener fails, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.loop.Run(ctx)
	}()

	srv := &http.Server{Addr: a.cfg.Addr, Handler: a.handler}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = errors.Wrap(err, "server failed")
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Printf("http shutdown: %v", err)
	}
	<-loopDone
	if err := a.Close(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close flushes the logging router and closes the JSON log file.
func (a *App) Close(ctx context.Context) error {
	err := a.router.Close(ctx)
	stats := a.router.Stats()
	a.logger.Printf("logging closed events=%d dropped=%d filtered=%d", stats.EventsTotal, stats.DroppedTotal, stats.FilteredTotal)
	if a.jsonOut != nil {
		if cerr := a.jsonOut.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return errors.Wrap(err, "close logging")
	}
	return nil
}

// Run loads configuration from the environment and serves until ctx ends.
func Run(ctx context.Context) error {
	cfg := LoadConfig(os.Getenv, telemetry.WrapLogger(log.Default()))
	app, err := New(cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
