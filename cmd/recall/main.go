// Package main provides recall, a terminal chat assistant with a long-term
// memory. It runs as a full-screen TUI by default, as a line REPL with -cli,
// or runs a YAML script with -headless.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/entrhq/recall/pkg/config"
	"github.com/entrhq/recall/pkg/executor/cli"
	"github.com/entrhq/recall/pkg/executor/tui"
	"github.com/entrhq/recall/pkg/metrics"
)

const version = "0.1.0" // Version of recall

// Config holds the application configuration
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	ConfigPath    string
	SystemPrompt  string
	MetricsAddr   string
	ImportLegacy  string
	HeadlessFile  string
	CLI           bool
	NoMemory      bool
	ShowVersion   bool
	ShowToolCalls bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("recall v%s\n", version)
		return
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Run the application
	if runErr := run(ctx, config); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
}

// parseFlags parses command line flags. Empty LLM flags fall back to the
// environment and then the config file.
func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.APIKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	flag.StringVar(&config.BaseURL, "base-url", "", "OpenAI API base URL (or set OPENAI_BASE_URL env var)")
	flag.StringVar(&config.Model, "model", "", "LLM model to use (or set RECALL_MODEL env var)")
	flag.StringVar(&config.ConfigPath, "config", "", "Path to config.json (default: ~/.recall/config.json)")
	flag.StringVar(&config.SystemPrompt, "prompt", "", "Custom instructions for the assistant (optional)")
	flag.StringVar(&config.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flag.StringVar(&config.ImportLegacy, "import-legacy", "", "Import settings from a legacy config.json and exit")
	flag.StringVar(&config.HeadlessFile, "headless", "", "Run the YAML script at this path without a terminal UI")
	flag.BoolVar(&config.CLI, "cli", false, "Use the line-based interface instead of the full-screen TUI")
	flag.BoolVar(&config.NoMemory, "no-memory", false, "Disable long-term memory for this session")
	flag.BoolVar(&config.ShowToolCalls, "show-tools", false, "Show tool calls and results")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "recall - a chat assistant that remembers\n\n")
		fmt.Fprintf(os.Stderr, "Usage: recall [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     OpenAI API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL    OpenAI API base URL (for compatible APIs)\n")
		fmt.Fprintf(os.Stderr, "  RECALL_MODEL       Chat model\n")
		fmt.Fprintf(os.Stderr, "  REDIS_URL          Redis URL for the redis thread backend\n")
		fmt.Fprintf(os.Stderr, "  RECALL_LOG_LEVEL   debug, info, warn or error\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  recall                                   # Full-screen chat\n")
		fmt.Fprintf(os.Stderr, "  recall -cli -model gpt-4o-mini\n")
		fmt.Fprintf(os.Stderr, "  recall -headless trip.yaml > report.json\n")
		fmt.Fprintf(os.Stderr, "  recall -import-legacy ./config.json\n")
	}

	flag.Parse()
	return config
}

// run executes the main application logic
func run(ctx context.Context, config *Config) error {
	if err := appconfig.LoadEnv(); err != nil {
		return err
	}
	if err := appconfig.Initialize(config.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	if config.ImportLegacy != "" {
		return importLegacy(config.ImportLegacy)
	}

	if config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, config.MetricsAddr); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	app, err := buildApp(ctx, config)
	if err != nil {
		return err
	}
	defer app.Close()

	switch {
	case config.HeadlessFile != "":
		return runHeadless(ctx, config, app)
	case config.CLI:
		return runCLI(ctx, config, app)
	default:
		return runTUI(ctx, config, app)
	}
}

// importLegacy copies settings from a prototype config.json into the config
// file.
func importLegacy(path string) error {
	data, err := appconfig.ReadLegacyFile(path)
	if err != nil {
		return err
	}
	if err := appconfig.Global().Import(data); err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	if err := appconfig.Global().SaveAll(); err != nil {
		return fmt.Errorf("failed to save imported settings: %w", err)
	}
	fmt.Printf("Imported settings from %s\n", path)
	return nil
}

// runTUI executes the TUI mode
func runTUI(ctx context.Context, config *Config, app *App) error {
	ui := appconfig.GetUI()
	executor := tui.NewExecutor(app.Agent, tui.Options{
		RenderMarkdown: ui == nil || ui.ShouldRenderMarkdown(),
		ShowToolCalls:  config.ShowToolCalls || (ui != nil && ui.ShouldShowToolCalls()),
	})

	if err := executor.Run(ctx); err != nil {
		return fmt.Errorf("executor error: %w", err)
	}
	return nil
}

// runCLI executes the line-based mode
func runCLI(ctx context.Context, config *Config, app *App) error {
	ui := appconfig.GetUI()
	executor := cli.NewExecutor(app.Agent,
		cli.WithMarkdown(ui != nil && ui.ShouldRenderMarkdown()),
		cli.WithShowToolCalls(config.ShowToolCalls || (ui != nil && ui.ShouldShowToolCalls())),
	)

	fmt.Printf("recall v%s (model %s)\n", version, app.Provider.GetModel())
	if err := executor.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("executor error: %w", err)
	}
	return nil
}
