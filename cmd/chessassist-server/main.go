// FILE: lixenwraith/chessassist/cmd/chessassist-server/main.go
// Package main runs the position editor API with user authentication, the
// analysis worker pool and, optionally, the web UI.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessassist/cmd/chessassist-server/cli"
	"chessassist/internal/server/analysis"
	"chessassist/internal/server/config"
	"chessassist/internal/server/http"
	"chessassist/internal/server/processor"
	"chessassist/internal/server/service"
	"chessassist/internal/server/storage"
	"chessassist/internal/server/webserver"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	// Check for CLI database commands
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	var (
		configPath  = flag.String("config", "", "Optional YAML configuration file")
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits, fixed JWT secret)")
		storagePath = flag.String("storage-path", "", "Path to SQLite database file (disables accounts and audit log if empty)")
		pidPath     = flag.String("pid", "", "Optional path to write PID file")
		pidLock     = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")

		// Overrides for the config file
		provider    = flag.String("provider", "", "Analysis provider: llm or engine")
		workers     = flag.Int("workers", 0, "Analysis worker count")
		enginePath  = flag.String("engine", "", "Path to UCI engine binary")
		maxSessions = flag.Int("max-sessions", 0, "Maximum concurrent editing sessions")

		// Web UI server flags
		serve   = flag.Bool("serve", false, "Enable web UI server")
		webHost = flag.String("web-host", "localhost", "Web UI server host")
		webPort = flag.Int("web-port", 9090, "Web UI server port")
	)
	flag.Parse()

	if *pidLock && *pidPath == "" {
		log.Fatal("Error: -pid-lock flag requires the -pid flag to be set")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlagOverrides(&cfg, *provider, *workers, *enginePath, *maxSessions)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *pidPath != "" {
		pid, err := writePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatalf("Failed to manage PID file: %v", err)
		}
		defer pid.Release()
		log.Printf("PID file created at: %s (lock: %v)", *pidPath, *pidLock)
	}

	// 1. Storage (optional)
	var store *storage.Store
	if *storagePath != "" {
		log.Printf("Initializing persistent storage at: %s", *storagePath)
		store, err = storage.NewStore(*storagePath, *dev)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		if err := store.InitDB(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		// Closed by svc.Shutdown
	} else {
		log.Printf("Persistent storage disabled (use -storage-path to enable)")
	}

	// JWT secret management
	var jwtSecret []byte
	if *dev {
		// Fixed secret in dev mode for testing consistency
		jwtSecret = []byte("dev-secret-minimum-32-characters-long")
		log.Printf("Using fixed JWT secret (dev mode)")
	} else {
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			log.Fatalf("Failed to generate JWT secret: %v", err)
		}
		log.Printf("JWT secret generated (logins valid until restart)")
	}

	// 2. Service
	svc := service.New(store, jwtSecret)
	svc.SetMaxSessions(cfg.Server.MaxSessions)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go svc.RunCleanupJob(cleanupCtx, service.CleanupJobInterval)

	// 3. Analysis queue and processor
	queue := processor.NewAnalysisQueue(analystFactory(cfg.Analysis), processor.QueueConfig{
		Workers: cfg.Analysis.Workers,
		Timeout: cfg.Analysis.Timeout,
		Count:   cfg.Analysis.Count,
	})
	proc := processor.New(svc, queue, cfg.Analysis.Provider)

	// 4. Servers
	app := http.NewFiberApp(proc, svc, *dev)
	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)

	var webApp *fiber.App
	if *serve {
		webApp, err = webserver.New(fmt.Sprintf("http://%s", apiAddr))
		if err != nil {
			log.Fatalf("Failed to initialize web UI: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logStartup(apiAddr, *dev, *storagePath, cfg.Analysis)
		if err := app.Listen(apiAddr); err != nil {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	if webApp != nil {
		webAddr := fmt.Sprintf("%s:%d", *webHost, *webPort)
		g.Go(func() error {
			log.Printf("Web UI Listening on: http://%s", webAddr)
			log.Printf("Web UI API target: http://%s", apiAddr)
			if err := webApp.Listen(webAddr); err != nil {
				return fmt.Errorf("web UI server: %w", err)
			}
			return nil
		})
	}

	// Either a signal or a failed listener ends the run
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		var errs []error
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server forced to shutdown: %w", err))
		}
		if webApp != nil {
			if err := webApp.ShutdownWithContext(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("web UI server forced to shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server error: %v", err)
	}

	if err := proc.Close(); err != nil {
		log.Printf("Processor close error: %v", err)
	}

	cleanupCancel()

	if err := svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Printf("Service shutdown error: %v", err)
	}

	log.Println("Servers exited")
}

func applyFlagOverrides(cfg *config.Config, provider string, workers int, enginePath string, maxSessions int) {
	if provider != "" {
		cfg.Analysis.Provider = provider
	}
	if workers > 0 {
		cfg.Analysis.Workers = workers
	}
	if enginePath != "" {
		cfg.Analysis.Engine.Path = enginePath
	}
	if maxSessions > 0 {
		cfg.Server.MaxSessions = maxSessions
	}
}

// analystFactory builds the collaborator each worker uses. Engine workers
// get their own process; the HTTP client is shared.
func analystFactory(cfg config.AnalysisConfig) processor.AnalystFactory {
	if cfg.Provider == config.ProviderEngine {
		return func() (analysis.Analyst, error) {
			return analysis.NewEngine(analysis.EngineConfig{
				Path:       cfg.Engine.Path,
				SearchTime: cfg.Engine.SearchTime,
				SkillLevel: cfg.Engine.Skill(),
			})
		}
	}

	apiKey := cfg.LLM.APIKey()
	if apiKey == "" {
		log.Printf("Warning: %s is not set, analysis requests will likely be rejected", cfg.LLM.APIKeyEnv)
	}
	llm := analysis.NewLLM(analysis.LLMConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  apiKey,
	})
	return func() (analysis.Analyst, error) {
		return llm, nil
	}
}

func logStartup(apiAddr string, dev bool, storagePath string, cfg config.AnalysisConfig) {
	log.Printf("Chess Assist API Server starting...")
	log.Printf("API Listening on: http://%s", apiAddr)
	if dev {
		log.Printf("Rate Limit: 20 requests/second per IP (DEV MODE)")
	} else {
		log.Printf("Rate Limit: 10 requests/second per IP")
	}
	if storagePath != "" {
		log.Printf("Storage: Enabled (%s)", storagePath)
	} else {
		log.Printf("Storage: Disabled (accounts and analysis history unavailable)")
	}
	switch cfg.Provider {
	case config.ProviderEngine:
		log.Printf("Analysis: UCI engine %s, %v per search, %d worker(s)", cfg.Engine.Path, cfg.Engine.SearchTime, cfg.Workers)
	default:
		log.Printf("Analysis: %s at %s, %d worker(s)", cfg.LLM.Model, cfg.LLM.BaseURL, cfg.Workers)
	}
	log.Printf("Editor Endpoints: http://%s/api/v1/sessions", apiAddr)
	log.Printf("Codec Endpoints: http://%s/api/v1/fen/[decode|encode]", apiAddr)
	log.Printf("Auth Endpoints: http://%s/api/v1/auth/[register|login|me]", apiAddr)
	log.Printf("Health: http://%s/health", apiAddr)
}
