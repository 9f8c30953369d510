package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/file-loader/backend/internal/api"
	"github.com/file-loader/backend/internal/catalog"
	"github.com/file-loader/backend/internal/config"
	"github.com/file-loader/backend/internal/journal"
	"github.com/file-loader/backend/internal/logging"
	"github.com/file-loader/backend/internal/metrics"
	"github.com/file-loader/backend/internal/resilience"
	"github.com/file-loader/backend/internal/session"
	"github.com/file-loader/backend/internal/storage"
	"github.com/file-loader/backend/internal/web"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "FileLoader.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("file-loader", cfg.Advanced.LogLevel)

	fileStore, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	var transitions *journal.DuckJournal
	if cfg.Advanced.EnableJournal {
		transitions, err = journal.Open(cfg.Storage.JournalPath)
		if err != nil {
			logger.Fatalf("Failed to open journal: %v", err)
		}
		defer transitions.Close()
	}

	var promMetrics *metrics.Metrics
	if cfg.Advanced.EnableMetrics {
		promMetrics = metrics.New()
	}

	loader := newCatalogLoader(cfg, logger)
	cat := loadCatalog(loader, cfg)
	if promMetrics != nil {
		promMetrics.RecordCatalogLoad(cat.Len(), cat.TotalSlots())
	}

	opts := session.Options{
		MaxSessions: cfg.Session.MaxSessions,
		Logger:      logger,
		OnRelease:   api.ReleaseToStore(fileStore, logger),
	}
	if transitions != nil {
		opts.Journal = transitions
	}
	if promMetrics != nil {
		opts.Metrics = promMetrics
	}
	sessionMgr := session.NewManager(cat, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go loader.Watch(ctx, cfg.RefreshInterval(), func(next *catalog.Catalog) {
		sessionMgr.SetCatalog(next)
		if promMetrics != nil {
			promMetrics.RecordCatalogLoad(next.Len(), next.TotalSlots())
		}
	})

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessionMgr.CleanupOldSessions(cfg.SessionTimeout()); n > 0 {
					logger.Infof("[Manager] removed %d expired sessions", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics" || strings.HasSuffix(path, "/ws")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
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
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	if promMetrics != nil {
		e.Use(promMetrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(promMetrics.Handler()))
	}

	deps := &api.Dependencies{
		Store:         fileStore,
		Sessions:      sessionMgr,
		CatalogStatus: loader,
		Logger:        logger,
		Version:       Version,
	}
	if transitions != nil {
		deps.Journal = transitions
	}
	api.RegisterRoutes(e, api.NewHandlers(deps))

	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warnf("failed to register static routes: %v", err)
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           File Loader Server                              ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Categories: %-45d║\n", cat.Len())
	fmt.Printf("║  Slots:      %-45d║\n", cat.TotalSlots())
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// newCatalogLoader builds the catalog loader. A configured URL is the only
// source and is fetched through a retrying, breaker-guarded client; without
// one the configured file and then the embedded catalog are used.
func newCatalogLoader(cfg *config.AppConfig, logger *log.Logger) *catalog.Loader {
	var remote catalog.Source
	if cfg.Catalog.URL != "" {
		policy := resilience.DefaultPolicy()
		policy.Attempts = cfg.Catalog.MaxRetries + 1
		guard := resilience.NewGuard("catalog_fetch", policy, catalog.IsRetryable, logger)
		remote = catalog.NewHTTPSource(cfg.Catalog.URL, cfg.FetchTimeout(), guard)
	}

	var local []catalog.Source
	if cfg.Catalog.File != "" {
		local = append(local, catalog.NewFileSource(cfg.Catalog.File))
	}
	if fsys, err := web.GetFileSystem(); err == nil {
		local = append(local, catalog.NewFSSource(fsys, web.DefaultCatalogPath))
	} else {
		logger.Warnf("embedded catalog unavailable: %v", err)
	}

	return catalog.NewLoader(logger, remote, local...)
}

// loadCatalog performs the startup load within the fetch budget.
func loadCatalog(loader *catalog.Loader, cfg *config.AppConfig) *catalog.Catalog {
	budget := cfg.FetchTimeout() * time.Duration(cfg.Catalog.MaxRetries+1)
	if budget <= 0 {
		budget = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), budget+5*time.Second)
	defer cancel()
	return loader.Load(ctx)
}
