package main

import (
	"context"
	"fmt"

	"github.com/entrhq/recall/pkg/executor/headless"
)

// runHeadless executes a YAML script and exits non-zero when any turn failed.
// The JSON report is written to stdout by the executor.
func runHeadless(ctx context.Context, config *Config, app *App) error {
	script, err := headless.LoadScript(config.HeadlessFile)
	if err != nil {
		return err
	}

	var opts []headless.Option
	if app.Memory != nil {
		opts = append(opts, headless.WithRememberer(app.Memory))
	}

	executor, err := headless.NewExecutor(app.Agent, script, opts...)
	if err != nil {
		return fmt.Errorf("failed to create headless executor: %w", err)
	}

	if _, err := executor.Run(ctx); err != nil {
		return fmt.Errorf("headless run %q failed: %w", script.Name, err)
	}
	return nil
}
