package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/meridianops/voyagesim/internal/api"
	"github.com/meridianops/voyagesim/internal/config"
	"github.com/meridianops/voyagesim/internal/deviation"
	"github.com/meridianops/voyagesim/internal/dispatcher"
	"github.com/meridianops/voyagesim/internal/engine"
	"github.com/meridianops/voyagesim/internal/influx"
	"github.com/meridianops/voyagesim/internal/journey"
	"github.com/meridianops/voyagesim/internal/logging"
	"github.com/meridianops/voyagesim/internal/monitor"
	intOtel "github.com/meridianops/voyagesim/internal/otel"
	"github.com/meridianops/voyagesim/internal/routes"
	"github.com/meridianops/voyagesim/internal/storage"
	"github.com/meridianops/voyagesim/internal/util"
	"github.com/meridianops/voyagesim/pkg/core"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// version info - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "voyagesim"
)

// file paths
var (
	LogFilePath string
	LogFile     *os.File

	// InfluxBackupFilePath is where line protocol goes when InfluxDB is unreachable
	InfluxBackupFilePath string
)

// global services
var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger is the zerolog logger used by the storage and telemetry layers
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	catalog        *routes.Catalog
	storageBackend storage.Backend
	sim            *engine.Engine
	commandBus     *dispatcher.Dispatcher
	influxManager  *influx.Manager
	monitorService *monitor.Service
)

func setup() error {
	var err error

	// .env values feed viper's automatic env binding
	_ = godotenv.Load()

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(os.Stderr, "info", nil)
	Logger = SlogManager.Logger()

	if err = config.Load("."); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to create/open log file %s: %w", LogFilePath, err)
	}

	// OTel before the final logging setup so the slog bridge can attach
	otelCfg := config.OTel()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    LogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	// every record carries the session it belongs to
	SlogManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", SessionStartTime.Format("20060102_150405")),
			slog.Duration("uptime", time.Since(SessionStartTime).Round(time.Second)),
		}
	})
	SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	setupZerolog(LogFile)

	catalog, err = routes.NewCatalogFromDir(viper.GetString("dataDir"))
	if err != nil {
		return fmt.Errorf("failed to load route catalog: %w", err)
	}
	Logger.Info("Route catalog loaded", "routes", len(catalog.Routes()))

	storageCfg := config.Storage()
	storageBackend, err = storage.NewBackend(storageCfg, ZLogger, SlogManager.Logger())
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err = storageBackend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	sim = engine.New(SlogManager.Logger(), catalog, engine.WithBackend(storageBackend))

	commandBus, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	sim.BindDispatcher(commandBus)

	var telemetry *influx.Manager
	if viper.GetBool("influx.enabled") {
		InfluxBackupFilePath = filepath.Join(logsDir, "influx_backup.gz")
		influxManager = influx.NewManager(ZLogger, InfluxBackupFilePath)
		if err = influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB connection failed", "error", err)
		} else {
			telemetry = influxManager
		}
	}

	monitorService = monitor.NewService(monitor.Dependencies{
		Engine:    sim,
		Influx:    telemetry,
		Logger:    SlogManager.Logger(),
		StatusDir: logsDir,
	})
	if err = monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}

	go checkServerStatus()
	return nil
}

func setupZerolog(file *os.File) {
	var level zerolog.Level
	switch strings.ToUpper(viper.GetString("logLevel")) {
	case "DEBUG":
		level = zerolog.DebugLevel
	case "INFO":
		level = zerolog.InfoLevel
	case "WARN":
		level = zerolog.WarnLevel
	case "ERROR":
		level = zerolog.ErrorLevel
	case "TRACE":
		level = zerolog.TraceLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
		zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	}

	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect GELF writer: %v\n", err)
		} else {
			writers = append(writers, gelfWriter)
		}
	}

	ZLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	ZLogger.Info().Str("loglevel", level.String()).Msg("Logging set up")
}

func checkServerStatus() {
	// the frontend being down is not an error, voyages still record locally
	_, err := http.Get(viper.GetString("api.serverUrl") + "/healthcheck")
	if err != nil {
		Logger.Info("Voyage frontend is offline")
	} else {
		Logger.Info("Voyage frontend is online")
	}
}

func shutdown() {
	if sim != nil {
		sim.Close()
	}
	if monitorService != nil {
		monitorService.Stop()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
}

// sendCommand drives the engine the same way an external transport would.
func sendCommand(name, sessionID string, args ...string) error {
	_, err := commandBus.Dispatch(dispatcher.Command{
		Name:      name,
		SessionID: sessionID,
		Args:      args,
		Timestamp: time.Now(),
	})
	return err
}

func voyageConfig(routeID string) engine.VoyageConfig {
	return engine.VoyageConfig{
		RouteID:            routeID,
		TotalSteps:         uint64(viper.GetInt("sim.totalSteps")),
		Period:             config.TickPeriod(),
		DeviationThreshold: viper.GetFloat64("sim.deviation.threshold"),
		DeviationOffset: deviation.Offset{
			Lat: viper.GetFloat64("sim.deviation.offsetLat"),
			Lon: viper.GetFloat64("sim.deviation.offsetLon"),
		},
		ApproachPct: viper.GetFloat64("sim.approachPct"),
		StepsPerDay: uint64(viper.GetInt("sim.stepsPerDay")),
	}
}

// runVoyage configures one voyage and walks it through a full scripted
// lifecycle: deviation analysis, same-route resume, port assessment, one
// docking delay, then docking acceptance. stepsArg optionally overrides the
// configured step count; float-formatted integers from the schedule tables
// ("200.0") are accepted.
func runVoyage(routeID, stepsArg string) error {
	cfg := voyageConfig(routeID)
	if stepsArg != "" {
		steps, err := util.ParseUintFromFloat(stepsArg)
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", stepsArg, err)
		}
		cfg.TotalSteps = steps
	}

	v, err := sim.Configure(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure voyage: %w", err)
	}
	id := v.ID()
	Logger.Info("Voyage configured", "session", id, "route", v.RouteID())

	start := time.Now()
	if err := sendCommand(engine.CmdStart, id); err != nil {
		return fmt.Errorf("failed to start voyage: %w", err)
	}

	var analyzed, signaled, resumed, assessed, delayed bool
	ticker := time.NewTicker(config.TickPeriod())
	defer ticker.Stop()

	for range ticker.C {
		st := v.State()
		if st.Phase.Terminal() {
			break
		}

		switch st.Phase {
		case core.PhaseDeviationPause:
			if !analyzed {
				analyzed = true
				Logger.Info("Deviation pause, requesting analysis", "session", id, "step", st.Step)
				if err := sendCommand(engine.CmdDecide, id, string(core.DecisionAnalyze)); err != nil {
					Logger.Error("Decision rejected", "error", err)
				}
			}
		case core.PhaseAnalysisPending:
			if !signaled {
				signaled = true
				if err := sendCommand(engine.CmdSignal, id, string(core.SignalAnalysisComplete)); err != nil {
					Logger.Error("Signal rejected", "error", err)
				}
			}
		case core.PhaseAnalysisComplete:
			if !resumed {
				resumed = true
				Logger.Info("Analysis complete, resuming original route", "session", id, "step", st.Step)
				if err := sendCommand(engine.CmdDecide, id, string(core.DecisionContinueSameRoute)); err != nil {
					Logger.Error("Decision rejected", "error", err)
				}
			}
		case core.PhasePortApproach:
			if !assessed {
				assessed = true
				Logger.Info("Port approach pause, running assessment", "session", id, "progressPct", st.ProgressPct)
				if err := sendCommand(engine.CmdSignal, id, string(core.SignalAssessmentComplete)); err != nil {
					Logger.Error("Signal rejected", "error", err)
				}
			}
		case core.PhaseDockingPending:
			decision := core.DecisionAcceptDocking
			if !delayed {
				delayed = true
				decision = core.DecisionDelayDocking
			}
			if err := sendCommand(engine.CmdDecide, id, string(decision)); err != nil {
				Logger.Error("Decision rejected", "error", err)
			}
		}
	}

	final := v.State()
	Logger.Info("Voyage finished",
		"session", id,
		"phase", final.Phase,
		"position", util.FormatPosition(final.Lat, final.Lon),
		"steps", final.Step,
		"voyageDays", final.VoyageDay,
		"dockingDelays", final.DockingDelays,
		"duration", time.Since(start))

	uploadReplay(v, final)

	if err := sim.Remove(id); err != nil {
		Logger.Warn("Failed to remove session", "session", id, "error", err)
	}
	return nil
}

// uploadReplay pushes the exported replay file to the web frontend when the
// backend produced one and an API secret is configured.
func uploadReplay(v *engine.Voyage, final journey.State) {
	secret := viper.GetString("api.secret")
	if secret == "" {
		return
	}
	exportable, ok := storageBackend.(storage.Exportable)
	if !ok {
		return
	}
	path := exportable.ExportedFilePath()
	if path == "" {
		return
	}

	route, err := catalog.Get(v.RouteID())
	if err != nil {
		Logger.Error("Route lookup failed for upload", "route", v.RouteID(), "error", err)
		return
	}

	client := api.New(viper.GetString("api.serverUrl"), secret)
	err = client.Upload(path, core.UploadMetadata{
		SessionID:     v.ID(),
		RouteName:     route.Name(),
		RiskTier:      string(route.RiskTier()),
		DurationHours: float64(final.Step),
		Tag:           viper.GetString("api.tag"),
	})
	if err != nil {
		Logger.Error("Replay upload failed", "path", path, "error", err)
		return
	}
	Logger.Info("Replay uploaded", "path", path)
}

func listRoutes() {
	fmt.Println("Available routes:")
	for _, r := range catalog.Routes() {
		fmt.Printf("  %-24s %-40s risk=%-8s waypoints=%d\n",
			r.ID(), r.Name(), r.RiskTier(), r.WaypointCount())
	}
	fmt.Println()
	fmt.Println("Carriers:")
	for _, c := range catalog.Carriers() {
		fmt.Printf("  %-8s %-32s %-16s %.1f kn\n", c.ID, c.Name, c.ServiceType, c.AvgSpeedKnots)
	}
}

func estimateRoute(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: estimate <routeID> <speedKnots> [windKnots] [congestion]")
	}
	route, err := catalog.Get(args[0])
	if err != nil {
		return err
	}
	speed, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid speed %q: %w", args[1], err)
	}

	cond := routes.Conditions{}
	if len(args) > 2 {
		cond.AvgWindSpeedKnots, err = strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid wind speed %q: %w", args[2], err)
		}
	}
	if len(args) > 3 {
		cond.CongestionLevel = args[3]
	}

	est, err := routes.EstimateTransit(route, speed, cond)
	if err != nil {
		return err
	}

	fmt.Printf("Route:           %s (%s)\n", route.Name(), route.ID())
	fmt.Printf("Distance:        %.1f nm\n", est.DistanceNM)
	fmt.Printf("Base time:       %.1f h\n", est.BaseTimeHours)
	fmt.Printf("Weather delay:   %.1f h\n", est.WeatherDelayHours)
	fmt.Printf("Traffic delay:   %.1f h\n", est.TrafficDelayHours)
	fmt.Printf("Total:           %.1f h (%.1f days)\n", est.TotalTimeHours, est.TotalTimeDays)
	fmt.Printf("Effective speed: %.1f kn\n", est.EffectiveSpeedKnots)
	return nil
}

func usage() {
	fmt.Printf("%s %s (built %s)\n\n", AppName, Version, BuildDate)
	fmt.Println("Commands:")
	fmt.Println("  run [routeID] [totalSteps]                 simulate a full voyage (default route: first in catalog)")
	fmt.Println("  routes                                     list routes and carriers")
	fmt.Println("  estimate <routeID> <speed> [wind] [cong]   transit time estimate")
	fmt.Println("  healthcheck                                probe the web frontend")
}

func main() {
	if err := setup(); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer shutdown()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "run":
		routeID := ""
		if len(args) > 1 {
			routeID = args[1]
		} else if rts := catalog.Routes(); len(rts) > 0 {
			routeID = rts[0].ID()
		}
		stepsArg := ""
		if len(args) > 2 {
			stepsArg = args[2]
		}
		err = runVoyage(routeID, stepsArg)
	case "routes":
		listRoutes()
	case "estimate":
		err = estimateRoute(args[1:])
	case "healthcheck":
		client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.secret"))
		if err = client.Healthcheck(); err == nil {
			fmt.Println("Frontend is reachable.")
		}
	default:
		usage()
	}

	if err != nil {
		Logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
