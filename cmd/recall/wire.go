package main

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/entrhq/recall/pkg/agent"
	agentcontext "github.com/entrhq/recall/pkg/agent/context"
	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/capture"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/retrieval"
	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/attachments"
	appconfig "github.com/entrhq/recall/pkg/config"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/llm/openai"
	"github.com/entrhq/recall/pkg/logging"
	"github.com/entrhq/recall/pkg/threads"
	"github.com/entrhq/recall/pkg/tools/math"
	"github.com/entrhq/recall/pkg/tools/mcp"
	"github.com/entrhq/recall/pkg/tools/memories"
	"github.com/entrhq/recall/pkg/tools/web"
)

// hashDimensions sizes the offline embedder used when no embedding model is
// reachable.
const hashDimensions = 256

// App holds the wired components shared by every executor.
type App struct {
	Agent    *agent.ChatAgent
	Provider *openai.Provider
	Memory   *capture.Controller // nil when memory is disabled

	closers []func() error
}

// Close releases the browser session and store connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("cleanup: %v", err)
		}
	}
}

// buildApp resolves configuration into a ready, not yet started, agent.
func buildApp(ctx context.Context, config *Config) (*App, error) {
	if ui := appconfig.GetUI(); ui != nil && !logging.LevelFromEnv() {
		logging.SetLevel(ui.GetLogLevel())
	}

	provider, err := appconfig.BuildProvider(appconfig.ProviderFlags{
		Model:   config.Model,
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	app := &App{Provider: provider}
	settings := appconfig.GetMemory().Snapshot()
	summaryModel := appconfig.SummaryModel()

	opts := []agent.AgentOption{
		agent.WithCustomInstructions(config.SystemPrompt),
		agent.WithContextManager(buildContextManager(provider, settings, summaryModel)),
	}

	agentTools := []tools.Tool{math.NewLongDivisionTool()}

	if settings.Enabled && !config.NoMemory {
		controller, err := buildMemory(ctx, config, provider, settings, summaryModel)
		if err != nil {
			return nil, err
		}
		app.Memory = controller
		opts = append(opts, agent.WithMemory(controller))
		agentTools = append(agentTools,
			memories.NewSearchMemoriesTool(controller),
			memories.NewListMemoriesTool(controller),
		)
	}

	toolSettings := appconfig.GetTools()
	if toolSettings.IsWebEnabled() {
		session := web.NewSession()
		app.closers = append(app.closers, session.Close)
		agentTools = append(agentTools,
			web.NewSearchTool(session, toolSettings.GetWebMaxResults()),
			web.NewExtractTool(session, web.DefaultMaxLength),
		)
	}
	agentTools = append(agentTools, connectMCPServers(ctx, app, toolSettings.GetMCPServers())...)
	opts = append(opts, agent.WithTools(agentTools...))

	loader, err := attachments.NewLoader(toolSettings.GetAttachmentPatterns(), int64(toolSettings.GetAttachmentMaxBytes()))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("invalid attachment settings: %w", err)
	}
	opts = append(opts, agent.WithAttachmentLoader(loader))

	store, err := buildThreadStore(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	opts = append(opts, agent.WithThreadStore(store))

	app.Agent = agent.NewChatAgent(provider, opts...)
	return app, nil
}

// buildContextManager applies the recency window and, past the threshold,
// the rolling summarizer.
func buildContextManager(provider llm.Provider, settings appconfig.MemorySettings, summaryModel string) *agentcontext.Manager {
	window := provider.GetModelInfo().MaxTokens
	if s := appconfig.GetLLM(); s != nil && s.GetContextWindow() > 0 {
		window = s.GetContextWindow()
	}

	manager := agentcontext.NewManager(provider, window, agentcontext.NewStrategies(
		settings.KeepRecentMessages,
		float64(settings.SummaryThresholdPercent),
		settings.ThresholdMinRecent,
		settings.CumulativeSummary,
	)...)
	manager.SetSummarizationModel(summaryModel)
	return manager
}

// buildMemory opens the fact store and indexes every live fact. The hash
// embedder stands in when the embeddings endpoint is not configured.
func buildMemory(ctx context.Context, config *Config, provider llm.Provider, settings appconfig.MemorySettings, summaryModel string) (*capture.Controller, error) {
	var embedder llm.Embedder
	remote, err := appconfig.BuildEmbedder(appconfig.ProviderFlags{
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
	})
	if err != nil {
		log.Printf("embeddings unavailable, using offline hashing: %v", err)
		embedder = retrieval.NewHashEmbedder(hashDimensions)
	} else {
		embedder = remote
	}

	dir := settings.StoreDir
	if dir == "" {
		if dir, err = longtermmemory.DefaultDir(); err != nil {
			return nil, err
		}
	}
	store, err := longtermmemory.NewFileStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	controller := capture.NewController(llm.ForModel(provider, summaryModel), store, retrieval.NewIndex(embedder), capture.Options{
		TopK:     settings.TopK,
		MinScore: settings.MinScore,
	})
	if err := controller.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}
	return controller, nil
}

// connectMCPServers starts each configured MCP server and collects its
// tools. A server that fails to start is logged and skipped.
func connectMCPServers(ctx context.Context, app *App, servers map[string]string) []tools.Tool {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []tools.Tool
	for _, name := range names {
		server, err := mcp.Connect(ctx, name, servers[name], nil)
		if err != nil {
			log.Printf("skipping mcp server: %v", err)
			continue
		}
		app.closers = append(app.closers, server.Close)
		out = append(out, server.Tools()...)
	}
	return out
}

// buildThreadStore opens the configured thread backend.
func buildThreadStore(ctx context.Context, app *App) (threads.Store, error) {
	storage := appconfig.GetStorage()
	if storage.GetThreadsBackend() == appconfig.ThreadsBackendRedis {
		store, err := threads.NewRedisStore(ctx, storage.GetRedisURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		return store, nil
	}

	store, err := threads.NewFileStore(storage.GetThreadsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open thread store: %w", err)
	}
	return store, nil
}
