// Command server is the scheduler process: it wires the Job Queue,
// Dependency Resolver, Worker Pool, Job Dispatcher, Tool-Call Dispatcher,
// and Client Router into one long-lived loop, grounded on the teacher's
// cmd/main.go app.New/Start/Run bootstrap sequence.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/relaycore/agentcore/internal/clientrouter"
	"github.com/relaycore/agentcore/internal/clients/twilio"
	"github.com/relaycore/agentcore/internal/config"
	"github.com/relaycore/agentcore/internal/db"
	"github.com/relaycore/agentcore/internal/dispatcher"
	"github.com/relaycore/agentcore/internal/events"
	"github.com/relaycore/agentcore/internal/generator"
	"github.com/relaycore/agentcore/internal/jobtypes"
	"github.com/relaycore/agentcore/internal/platform/logger"
	"github.com/relaycore/agentcore/internal/platform/otelx"
	"github.com/relaycore/agentcore/internal/platform/shutdown"
	"github.com/relaycore/agentcore/internal/pool"
	"github.com/relaycore/agentcore/internal/queue"
	"github.com/relaycore/agentcore/internal/repos"
	"github.com/relaycore/agentcore/internal/resolver"
	"github.com/relaycore/agentcore/internal/retrieval"
	"github.com/relaycore/agentcore/internal/toolcall"
	"github.com/relaycore/agentcore/internal/toolcall/tools"
	"github.com/relaycore/agentcore/internal/workspace"
)

func main() {
	cfg := config.FromEnv()

	baseLog, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer baseLog.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	otelShutdown := otelx.Init(ctx, baseLog, otelx.Config{
		ServiceName: "agentcore",
		Environment: cfg.Env,
		Version:     "dev",
	})
	defer func() { _ = otelShutdown(context.Background()) }()

	gdb, err := db.Open(cfg, baseLog)
	if err != nil {
		baseLog.Warn("failed to open database", "error", err)
		os.Exit(1)
	}

	bus, err := newBus(cfg, baseLog)
	if err != nil {
		baseLog.Warn("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	jobRepo := repos.NewJobRepo(gdb, baseLog)
	jobResultRepo := repos.NewJobResultRepo(gdb, baseLog)
	jobEventRepo := repos.NewJobEventRepo(gdb, baseLog)
	workerRepo := repos.NewWorkerRepo(gdb, baseLog)
	toolTaskRepo := repos.NewToolTaskRepo(gdb, baseLog)

	res := resolver.New(jobRepo, baseLog)
	q := queue.New(jobRepo, jobResultRepo, jobEventRepo, res, bus, baseLog, cfg.JobExpireSeconds*1000)

	gen := generator.NewRecorder(newGenerator(cfg))

	workers := pool.New(pool.Config{
		MinWorkers:             cfg.JobWorkersMin,
		MaxWorkers:             cfg.JobWorkersMax,
		HeartbeatInterval:      cfg.HeartbeatInterval,
		HealthCheckInterval:    cfg.JobHealthCheckInterval,
		UnhealthyThreshold:     cfg.UnhealthyThreshold,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFails,
	}, workerRepo, jobRepo, gen, bus, baseLog)

	disp := dispatcher.New(dispatcher.Config{
		DispatchInterval:   cfg.DispatchInterval,
		StaleMaxAttempts:   cfg.JobRetryLimit,
		StaleRunning:       cfg.UnhealthyThreshold,
		RetryDelay:         cfg.JobRetryDelay,
		LowBandDrainEveryN: cfg.LowBandDrainEveryN,
	}, q, res, workers, baseLog)

	router := clientrouter.New(baseLog, cfg.ClientCommandTimeout)

	store, err := newWorkspaceStore(ctx, cfg)
	if err != nil {
		baseLog.Warn("failed to initialize workspace store", "error", err)
		os.Exit(1)
	}
	terminal := workspace.NewTerminal(cfg.WorkspaceDir, cfg.TerminalTimeout)

	registry := toolcall.NewRegistry()
	toolDispatcher := toolcall.New(registry, toolTaskRepo, baseLog)

	if err := registerTools(registry, cfg, baseLog, store, terminal, router, q, disp, gen); err != nil {
		baseLog.Warn("failed to register tools", "error", err)
		os.Exit(1)
	}

	jobtypes.Register(q, gen, toolDispatcher, jobRepo)

	if err := bus.StartForwarder(ctx, func(evt events.Event) {
		baseLog.Debug("event", "kind", evt.Kind, "job_id", evt.JobID)
	}); err != nil {
		baseLog.Warn("failed to start event forwarder", "error", err)
	}

	go func() {
		if err := workers.Start(ctx); err != nil && ctx.Err() == nil {
			baseLog.Warn("worker pool stopped", "error", err)
		}
	}()

	baseLog.Info("agentcore scheduler starting",
		"min_workers", cfg.JobWorkersMin, "max_workers", cfg.JobWorkersMax,
		"dispatch_interval", cfg.DispatchInterval)

	if err := disp.Run(ctx); err != nil {
		baseLog.Warn("dispatcher stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ClientCommandTimeout)
	defer cancel()
	if err := workers.Shutdown(shutdownCtx); err != nil {
		baseLog.Warn("worker pool shutdown failed", "error", err)
	}
}

func newBus(cfg *config.Config, baseLog *logger.Logger) (events.Bus, error) {
	if cfg.RedisAddr == "" {
		return events.NewInProcBus(), nil
	}
	return events.NewRedisBus(cfg.RedisAddr, cfg.RedisChannel, baseLog)
}

func newGenerator(cfg *config.Config) generator.Generator {
	if cfg.AnthropicAPIKey == "" {
		return generator.NewMock("mock")
	}
	return generator.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, 0)
}

func newWorkspaceStore(ctx context.Context, cfg *config.Config) (workspace.Store, error) {
	if cfg.GCSBucket != "" {
		return workspace.NewGCSStore(ctx, cfg.GCSBucket)
	}
	return workspace.NewLocalStore(cfg.WorkspaceDir)
}

// registerTools binds the full catalog of spec.md §4.5 into registry.
func registerTools(
	registry *toolcall.Registry,
	cfg *config.Config,
	baseLog *logger.Logger,
	store workspace.Store,
	terminal *workspace.Terminal,
	router *clientrouter.Router,
	q *queue.Queue,
	disp *dispatcher.Dispatcher,
	gen *generator.Recorder,
) error {
	ingester := retrieval.NoopIngester{}

	twilioClient, err := twilio.New(baseLog, twilio.Config{
		AccountSID:                 cfg.TwilioAccountSID,
		AuthToken:                  cfg.TwilioAuthToken,
		APIKey:                     cfg.TwilioAPIKey,
		APIKeySecret:               cfg.TwilioAPIKeySecret,
		BaseURL:                    cfg.TwilioBaseURL,
		DefaultFrom:                cfg.TwilioFromNumber,
		DefaultMessagingServiceSID: cfg.TwilioMessagingServiceSID,
		Timeout:                    time.Duration(cfg.TwilioTimeoutSeconds) * time.Second,
		MaxRetries:                 cfg.TwilioMaxRetries,
	})
	if err != nil {
		return fmt.Errorf("twilio client: %w", err)
	}

	editorBuffers := tools.NewInMemoryEditorBuffers()
	fileGet := tools.NewFileGetTool(store, router, editorBuffers)

	catalog := []toolcall.Tool{
		tools.NewChatTool(),
		fileGet,
		tools.NewFilePutTool(store, router, ingester, editorBuffers),
		tools.NewFileIngestTool(store, ingester),
		tools.NewTerminalTool(terminal, router),
		tools.NewEditorLoadTool(editorBuffers, fileGet),
		tools.NewAPICallTool(cfg.ClientCommandTimeout),

		tools.NewSearchTool(cfg.ProviderRateLimitPerSecond),
		tools.NewWebSearchTool(cfg.ProviderRateLimitPerSecond),
		tools.NewDuckDuckGoSearchTool(cfg.ProviderRateLimitPerSecond),
		tools.NewGoogleSearchTool(cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX, cfg.ProviderRateLimitPerSecond),
		tools.NewTavilySearchTool(cfg.TavilyAPIKey, cfg.ProviderRateLimitPerSecond),
		tools.NewPerplexitySearchTool(cfg.PerplexityAPIKey, cfg.ProviderRateLimitPerSecond),
		tools.NewBrowserScrapeTool(cfg.ProviderRateLimitPerSecond),

		tools.NewGitHubRepoTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),
		tools.NewGitHubFileReadTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),
		tools.NewGitHubCodeSearchTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),
		tools.NewGitHubIssuesTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),
		tools.NewGitHubPullsTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),
		tools.NewGitHubCommitsTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),
		tools.NewGitHubUserTool(cfg.GitHubToken, cfg.ProviderRateLimitPerSecond),

		tools.NewSMSSendTool(twilioClient),
		tools.NewSMSListTool(twilioClient),
		tools.NewCallMakeTool(twilioClient),
		tools.NewCallListTool(twilioClient),

		tools.NewBrowserbaseLoadTool(cfg.BrowserbaseAPIKey, cfg.BrowserbaseProjectID, cfg.ProviderRateLimitPerSecond),
		tools.NewBrowserbaseScreenshotTool(cfg.BrowserbaseAPIKey, cfg.BrowserbaseProjectID, cfg.ProviderRateLimitPerSecond),
		tools.NewBrowserbaseActionTool(cfg.BrowserbaseAPIKey, cfg.BrowserbaseProjectID, cfg.ProviderRateLimitPerSecond),

		tools.NewGmailListTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewGmailSendTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewDriveListTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewDocsReadTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewSheetsReadTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewCalendarListTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewTasksListTool(cfg.GoogleWorkspaceCredentialsJSON),
		tools.NewContactsListTool(cfg.GoogleWorkspaceCredentialsJSON),

		tools.NewQueueCreateTool(q),
		tools.NewQueueBatchTool(q),
		tools.NewQueueListTool(q),
		tools.NewQueueStartTool(disp),

		tools.NewDebugEchoTool(gen),
	}

	for _, t := range catalog {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register tool %q: %w", t.Name(), err)
		}
	}
	return nil
}
