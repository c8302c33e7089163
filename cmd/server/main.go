package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/log-grapher/backend/internal/api"
	"github.com/log-grapher/backend/internal/config"
	"github.com/log-grapher/backend/internal/logging"
	"github.com/log-grapher/backend/internal/patterns"
	"github.com/log-grapher/backend/internal/session"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := "log-grapher.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level)
	log.Info().Str("version", Version).Str("buildTime", BuildTime).Msg("starting log-grapher server")

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directories")
	}

	datasetMgr := session.NewManager(log, session.Options{
		TempDir:        cfg.TempDir(),
		SpillThreshold: cfg.Processing.SpillThreshold,
		MaxRecords:     cfg.Processing.MaxRecords,
		ChunkSize:      cfg.Processing.ChunkSize,
	})

	// Background cleanup of aged datasets.
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			datasetMgr.CleanupOldDatasets(time.Duration(cfg.Processing.DatasetTimeoutMinutes) * time.Minute)
		}
	}()

	h := api.NewHandler(datasetMgr)

	// Load the default pattern library, if configured.
	if cfg.Storage.PatternLibrary != "" {
		lib, err := patterns.Load(cfg.Storage.PatternLibrary)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Storage.PatternLibrary).Msg("failed to load pattern library")
		} else {
			h.SetPatternLibrary(lib.Patterns)
			log.Info().Int("patterns", len(lib.Patterns)).Msg("pattern library loaded")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler(log)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Logging.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				strings.HasSuffix(path, "/keepalive") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Accept") == "text/event-stream" ||
				strings.HasSuffix(c.Request().URL.Path, "/msgpack")
		},
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	h.RegisterRoutes(e.Group("/api"))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info().Str("addr", cfg.GetServerAddr()).Msg("listening")
	if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
