// Package metrics exposes Prometheus collectors for the chat agent and its
// memory subsystem.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Turns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_turns_total",
			Help: "Total number of chat turns by outcome",
		},
		[]string{"status"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recall_turn_duration_seconds",
			Help:    "Chat turn latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_tool_calls_total",
			Help: "Total number of tool calls",
		},
		[]string{"tool", "status"},
	)

	MemoryOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_memory_operations_total",
			Help: "Total number of applied memory operations",
		},
		[]string{"event"},
	)

	Summarizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_summarizations_total",
			Help: "Total number of history summarization passes",
		},
		[]string{"strategy", "status"},
	)

	SummarizedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_summarized_messages_total",
			Help: "Total number of history messages folded into the summary",
		},
	)

	LLMErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_llm_errors_total",
			Help: "Total number of failed LLM calls",
		},
		[]string{"operation"},
	)
)

const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Status maps an error to a status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	default:
		return StatusError
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
