package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/avashisht/tandem/internal/agent"
	"github.com/avashisht/tandem/internal/api"
	"github.com/avashisht/tandem/internal/config"
	"github.com/avashisht/tandem/internal/executor"
	"github.com/avashisht/tandem/internal/logging"
	"github.com/avashisht/tandem/internal/orchestrator"
	"github.com/avashisht/tandem/internal/planner"
	"github.com/avashisht/tandem/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestration server",
	Long: `Start the HTTP server: the SSE conversation stream, the
conversation inspection endpoints, and the recurring-task resume
supervisor. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger, err := logging.NewDebugLogger(cfg.Logging.DebugLogPath)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer logger.Close()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = store.DefaultDBPath()
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var apiKey string
	if !cfg.Anthropic.UseBedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("anthropic api key: %w (set ANTHROPIC_API_KEY or run 'tandem init')", err)
		}
	}

	client, model, err := agent.NewClient(agent.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.Region,
	})
	if err != nil {
		return fmt.Errorf("anthropic client: %w", err)
	}

	registry := agent.NewRegistry()
	for _, a := range agent.BuiltinAgents(client, model) {
		if err := registry.Register(a); err != nil {
			return fmt.Errorf("register agent: %w", err)
		}
	}

	// runtime outlives individual requests; recurring cycles and the
	// resume supervisor hang off it.
	runtime, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := executor.New(runtime, registry, db,
		executor.WithLogger(logger),
		executor.WithRetryConfig(executor.RetryConfig{
			InitialInterval:     cfg.Executor.RetryInitialInterval,
			MaxInterval:         cfg.Executor.RetryMaxInterval,
			MaxElapsedTime:      cfg.Executor.RetryMaxElapsedTime,
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
		}),
	)

	orch, err := orchestrator.New(orchestrator.RequiredConfig{
		Registry:      registry,
		Executor:      exec,
		Tasks:         db,
		Conversations: db,
		Triage:        planner.NewLLMTriage(client, model),
		Planner:       planner.NewLLMPlanner(client, model, registry.Names()),
	}, orchestrator.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	orch.ResumeRecurringTasks(runtime, orchestrator.NewLifecycle())

	// Hot-reload is logged but takes effect on restart; the running
	// executor and server keep their construction-time settings.
	if path := config.UserConfigPath(); fileExists(path) {
		if err := config.Watch(path,
			func(c *config.Config) { logger.Log("config changed on disk; restart to apply") },
			func(err error) { logger.Log("config reload: %v", err) },
		); err != nil {
			logger.Log("config watch: %v", err)
		}
	}

	server := api.NewServer(cfg.Server.Addr, orch, db, db, logger)

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()
	fmt.Printf("tandem listening on %s\n", cfg.Server.Addr)

	select {
	case err := <-errc:
		return err
	case <-runtime.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
