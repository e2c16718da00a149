package headless

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Report is the complete record of a headless run.
type Report struct {
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  time.Duration  `json:"duration"`
	Turns     []TurnRecord   `json:"turns"`
	Thread    *ThreadRecord  `json:"thread,omitempty"`
	Summary   SummaryRecord  `json:"summary"`
	Memories  []MemoryRecord `json:"memories"`
	Metrics   RunMetrics     `json:"metrics"`
}

// TurnRecord is one scripted message and what the agent did with it.
type TurnRecord struct {
	Message     string           `json:"message"`
	Attachments []string         `json:"attachments,omitempty"`
	Loaded      []string         `json:"loaded_attachments,omitempty"`
	Skipped     []string         `json:"skipped_attachments,omitempty"`
	ToolCalls   []ToolCallRecord `json:"tool_calls,omitempty"`
	Reply       string           `json:"reply"`
	Recalled    []string         `json:"recalled,omitempty"`
	Error       string           `json:"error,omitempty"`
	Duration    time.Duration    `json:"duration"`
}

// ToolCallRecord is a tool invocation within a turn.
type ToolCallRecord struct {
	Name   string                 `json:"name"`
	Input  map[string]interface{} `json:"input,omitempty"`
	Output string                 `json:"output,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ThreadRecord describes the thread saved at the end of the run.
type ThreadRecord struct {
	Name     string `json:"name"`
	Messages int    `json:"messages"`
}

// SummaryRecord is the rolling summary as it stood after the last turn.
type SummaryRecord struct {
	Content string `json:"content,omitempty"`
	Covered int    `json:"covered"`
	Count   int    `json:"count"`
}

// MemoryRecord is a live long-term memory fact.
type MemoryRecord struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Version  int    `json:"version"`
}

// RunMetrics contains run totals
type RunMetrics struct {
	Turns        int `json:"turns"`
	FailedTurns  int `json:"failed_turns"`
	ToolCalls    int `json:"tool_calls"`
	TokensUsed   int `json:"tokens_used"`
	MemoryAdds   int `json:"memory_adds"`
	MemoryEdits  int `json:"memory_edits"`
	Summarized   int `json:"summarized_messages"`
	SeededFacts  int `json:"seeded_facts"`
	MemoryErrors int `json:"memory_errors"`
}

// WriteReport writes the report as indented JSON.
func WriteReport(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// WriteAll writes report.json and transcript.md
func (w *ArtifactWriter) WriteAll(report *Report) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteReportJSON(report); err != nil {
		return fmt.Errorf("failed to write report JSON: %w", err)
	}

	if err := w.WriteTranscriptMarkdown(report); err != nil {
		return fmt.Errorf("failed to write transcript markdown: %w", err)
	}

	return nil
}

// WriteReportJSON writes the full report as JSON
func (w *ArtifactWriter) WriteReportJSON(report *Report) error {
	path := filepath.Join(w.outputDir, "report.json")

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write report JSON: %w", writeErr)
	}

	return nil
}

// WriteTranscriptMarkdown writes a human-readable transcript
func (w *ArtifactWriter) WriteTranscriptMarkdown(report *Report) error {
	path := filepath.Join(w.outputDir, "transcript.md")

	var md strings.Builder

	// Header
	md.WriteString(fmt.Sprintf("# %s\n\n", report.Name))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", report.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", report.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", report.Duration.Round(time.Millisecond)))
	if report.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", report.Error))
	}

	// Conversation
	md.WriteString("## Conversation\n\n")
	for i, turn := range report.Turns {
		md.WriteString(fmt.Sprintf("### Turn %d\n\n", i+1))
		md.WriteString(fmt.Sprintf("**You:** %s\n\n", turn.Message))
		for _, name := range turn.Loaded {
			md.WriteString(fmt.Sprintf("- 📎 `%s`\n", name))
		}
		for _, skipped := range turn.Skipped {
			md.WriteString(fmt.Sprintf("- 📎 skipped %s\n", skipped))
		}
		for _, call := range turn.ToolCalls {
			md.WriteString(fmt.Sprintf("- 🔧 `%s`", call.Name))
			if call.Error != "" {
				md.WriteString(fmt.Sprintf(" failed: %s", call.Error))
			}
			md.WriteString("\n")
		}
		if len(turn.Loaded)+len(turn.Skipped)+len(turn.ToolCalls) > 0 {
			md.WriteString("\n")
		}
		if turn.Error != "" {
			md.WriteString(fmt.Sprintf("❌ %s\n\n", turn.Error))
			continue
		}
		md.WriteString(fmt.Sprintf("**Recall:** %s\n\n", turn.Reply))
	}

	if report.Thread != nil {
		md.WriteString(fmt.Sprintf("Saved as thread `%s` (%d messages).\n\n", report.Thread.Name, report.Thread.Messages))
	}

	// Summary
	if report.Summary.Content != "" {
		md.WriteString("## Summary\n\n")
		md.WriteString(fmt.Sprintf("Covers the first %d messages.\n\n", report.Summary.Covered))
		md.WriteString(report.Summary.Content)
		md.WriteString("\n\n")
	}

	// Memories
	md.WriteString("## Memories\n\n")
	if len(report.Memories) == 0 {
		md.WriteString("None.\n")
	}
	for _, m := range report.Memories {
		md.WriteString(fmt.Sprintf("- %s _(%s, v%d)_\n", m.Content, m.Category, m.Version))
	}

	// Write file
	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write transcript markdown: %w", writeErr)
	}

	return nil
}
