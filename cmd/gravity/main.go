// Command gravity runs the orbit simulator with a console, an HTTP control
// server and a recording backend.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gravitysim/gravity/internal/api"
	"github.com/gravitysim/gravity/internal/cache"
	"github.com/gravitysim/gravity/internal/clock"
	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/internal/dispatcher"
	"github.com/gravitysim/gravity/internal/influx"
	"github.com/gravitysim/gravity/internal/logging"
	"github.com/gravitysim/gravity/internal/metrics"
	"github.com/gravitysim/gravity/internal/monitor"
	intOtel "github.com/gravitysim/gravity/internal/otel"
	"github.com/gravitysim/gravity/internal/server"
	"github.com/gravitysim/gravity/internal/session"
	"github.com/gravitysim/gravity/internal/simulation"
	"github.com/gravitysim/gravity/internal/storage"
	pgstorage "github.com/gravitysim/gravity/internal/storage/postgres"
	"github.com/gravitysim/gravity/internal/worker"
	"github.com/gravitysim/gravity/pkg/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"

	AppName = "gravity"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "export":
			if err := runExport(args[1:], os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "sessions":
			if err := runSessions(args[1:], os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Printf("%s %s (%s)\n", AppName, Version, BuildDate)
			return
		case "run":
			args = args[1:]
		}
	}

	configDir := "."
	if len(args) > 0 {
		configDir = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configDir, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the running services so shutdown can close them in order.
type app struct {
	started time.Time
	logs    *logging.SlogManager
	logger  *slog.Logger
	logFile *os.File
	graylog io.Closer
	otel    *intOtel.Provider

	clock      *clock.Clock
	session    *session.Context
	backend    storage.Backend
	influx     *influx.Manager
	sim        *simulation.Simulator
	dispatcher *dispatcher.Dispatcher
	workers    *worker.Manager
	monitor    *monitor.Service
	registry   *prometheus.Registry
}

func run(ctx context.Context, configDir string, in io.Reader, out io.Writer) error {
	a := &app{started: time.Now(), logs: logging.NewSlogManager()}
	a.logs.Setup(nil, "info", nil)
	a.logger = a.logs.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config")
	}

	defer a.shutdown()
	if err := a.setupLogging(); err != nil {
		return err
	}
	if err := a.setupSimulation(); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	if srvCfg := config.GetServerConfig(); srvCfg.Enabled {
		srv := server.New(srvCfg, server.Dependencies{
			Dispatcher: a.dispatcher,
			Simulation: a.sim,
			Metrics:    metrics.NewCollector(a.registry),
			Gatherer:   a.registry,
			Logger:     a.logger,
		})
		go func() { serverErr <- srv.Run(ctx) }()
	}

	if viper.GetString("api.apiKey") != "" {
		go a.checkServerStatus()
	}

	a.clock.Start()
	a.logger.Info("Simulation started", "speed", a.clock.Speed(), "interval", a.clock.Interval())

	consoleDone := make(chan struct{})
	if viper.GetBool("console.enabled") {
		go func() {
			defer close(consoleDone)
			a.console(ctx, in, out)
		}()
	}

	select {
	case <-ctx.Done():
	case <-consoleDone:
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}
	return nil
}

// setupLogging opens the log file and rebuilds the logger with file,
// Graylog and OTel outputs.
func (a *app) setupLogging() error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	logPath := logging.LogFilePath(logsDir, AppName, a.started)
	if _, err := os.Stat(logPath); err == nil {
		_ = os.Rename(logPath, logPath+".old")
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		a.logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
	} else {
		a.logFile = f
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var logWriter io.Writer
		if a.logFile != nil {
			logWriter = a.logFile
		}
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logWriter,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
			Registerer:   a.registry,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
			a.otel = nil
		} else {
			a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	cfg := logging.Config{
		Level: viper.GetString("logLevel"),
		Context: func() []slog.Attr {
			if a.clock == nil {
				return nil
			}
			return []slog.Attr{
				slog.Float64("simTime", a.clock.Time()),
				slog.Bool("running", a.clock.Running()),
			}
		},
	}
	if a.logFile != nil {
		cfg.File = a.logFile
	}
	if a.otel != nil {
		cfg.Provider = a.otel.LoggerProvider()
	}
	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(viper.GetString("graylog.address"))
		if err != nil {
			a.logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			cfg.Graylog = w
			a.graylog = w
		}
	}

	a.logs.SetupConfig(cfg)
	a.logger = a.logs.Logger()
	a.logger.Info("Logging to file", "path", logPath, "version", Version, "build", BuildDate)
	return nil
}

func (a *app) setupSimulation() error {
	simCfg := config.GetSimulationConfig()
	level := viper.GetString("logLevel")

	var zlogOut io.Writer = os.Stdout
	if a.logFile != nil {
		zlogOut = a.logFile
	}
	zlog := logging.NewZerolog(zlogOut, level)

	var err error
	a.clock, err = clock.New(
		clock.WithSpeed(simCfg.Speed),
		clock.WithInterval(simCfg.TickInterval),
		clock.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create clock: %w", err)
	}

	a.backend, err = createStorageBackend(config.GetStorageConfig(), cache.NewIDCache(), a.logger, zlog)
	if err != nil {
		return err
	}
	if a.backend != nil {
		if err := a.backend.Init(); err != nil {
			return fmt.Errorf("failed to initialize storage backend: %w", err)
		}
	}

	var telemetry simulation.Telemetry
	var metricWriter worker.MetricWriter
	a.influx = influx.NewManager(zlog, filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz"))
	if err := a.influx.Connect(); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			a.logger.Error("Failed to connect to InfluxDB", "error", err)
		}
		a.influx = nil
	} else {
		telemetry = a.influx
		metricWriter = a.influx
	}

	a.session = session.NewContext()
	deps := simulation.Dependencies{
		Clock:   a.clock,
		Session: a.session,
		Logger:  a.logger,
	}
	if a.backend != nil {
		deps.Storage = a.backend
	}
	if telemetry != nil {
		deps.Telemetry = telemetry
	}
	a.sim, err = simulation.New(simulation.Config{
		RecordEvery:     simCfg.RecordEvery,
		Tolerance:       simCfg.Tolerance,
		MaxEccentricity: simCfg.MaxEccentricity,
		Seed:            simCfg.Seed,
		Version:         Version,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}
	if err := a.sim.LoadDefaultScenario(); err != nil {
		return fmt.Errorf("failed to load default scenario: %w", err)
	}

	a.dispatcher, err = dispatcher.NewWithMeter(
		logging.NewDispatcherLogger(a.logger),
		a.otel.Meter("github.com/gravitysim/gravity/internal/dispatcher"),
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	wdeps := worker.Dependencies{
		Simulation:     a.sim,
		Logger:         a.logger,
		OnSessionStart: a.onSessionStart,
		OnSessionEnd:   a.onSessionEnd,
	}
	if metricWriter != nil {
		wdeps.Metrics = metricWriter
	}
	a.workers = worker.NewManager(wdeps, a.backend)
	a.workers.RegisterHandlers(a.dispatcher)

	a.registry.MustRegister(metrics.NewSimulationCollector(a.sim.Snapshot))

	a.monitor = monitor.NewService(a.monitorDeps())
	if pg, ok := a.backend.(*pgstorage.Backend); ok && viper.GetBool("db.timescale") && !pg.IsLocalFallback() {
		if err := a.monitor.ValidateHypertables(monitor.Hypertables); err != nil {
			a.logger.Error("Failed to validate hypertables", "error", err)
		}
	}
	if err := a.monitor.Start(); err != nil {
		a.logger.Error("Failed to start status monitor", "error", err)
	}

	if a.backend != nil {
		if _, err := a.sim.StartSession(simCfg.SessionName, simCfg.Tag); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		a.onSessionStart(a.session.GetSession())
	}
	return nil
}

// dbBackend is implemented by the GORM-backed storage backends.
type dbBackend interface {
	DB() *gorm.DB
}

func (a *app) monitorDeps() monitor.Dependencies {
	deps := monitor.Dependencies{
		Stats:      a.workers,
		Simulation: a.sim,
		Session:    a.session,
		Logger:     a.logger,
		StatusDir:  viper.GetString("logsDir"),
	}
	if b, ok := a.backend.(dbBackend); ok && b.DB() != nil {
		deps.DB = b.DB()
		deps.IsDatabaseValid = func() bool { return true }
	}
	return deps
}

func (a *app) onSessionStart(s *core.Session) {
	if a.influx != nil {
		a.influx.SetSession(s.Name)
	}
	a.logger.Info("Session started", "id", s.ID, "name", s.Name, "tag", s.Tag)
}

func (a *app) onSessionEnd() {
	if a.otel != nil {
		if err := a.otel.Flush(context.Background()); err != nil {
			a.logger.Warn("Failed to flush OTel", "error", err)
		}
	}
	a.logger.Info("Session ended")
	a.upload()
}

// upload sends the exported session to the session server when the
// backend produced a file and an API key is configured.
func (a *app) upload() {
	u, ok := a.backend.(storage.Uploadable)
	if !ok || viper.GetString("api.apiKey") == "" {
		return
	}
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.UploadExport(u); err != nil {
		a.logger.Error("Failed to upload session", "error", err)
		return
	}
	a.logger.Info("Uploaded session", "path", u.GetExportedFilePath())
}

func (a *app) checkServerStatus() {
	if err := api.New(viper.GetString("api.serverUrl"), "").Healthcheck(); err != nil {
		a.logger.Info("Session server is offline", "error", err)
		return
	}
	a.logger.Info("Session server is online")
}

// console executes one command per line until quit, EOF or ctx is done.
func (a *app) console(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		result, err := worker.Execute(a.dispatcher, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if result != nil {
			_ = enc.Encode(result)
		}
	}
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.sim != nil {
		if a.session.Active() {
			if err := a.sim.EndSession(); err != nil {
				a.logger.Error("Failed to end session", "error", err)
			} else {
				a.onSessionEnd()
			}
		}
		a.sim.Close()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	a.logger.Info("Shut down")
	if a.otel != nil {
		_ = a.otel.Shutdown(ctx)
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
