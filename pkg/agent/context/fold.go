package context

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/types"
)

// fold summarizes batch into summary. In cumulative mode the previous summary
// and the batch are rewritten into one text; otherwise the batch is
// summarized alone and appended as a new paragraph.
func fold(ctx context.Context, provider llm.Provider, summary *Summary, batch []*types.Message, cumulative bool) error {
	if len(batch) == 0 {
		return nil
	}

	var b strings.Builder
	if cumulative && summary.Content != "" {
		b.WriteString(cumulativeInstruction)
		b.WriteString("\n\nExisting summary:\n")
		b.WriteString(summary.Content)
		b.WriteString("\n\nNew messages:\n")
	} else {
		b.WriteString(batchInstruction)
		b.WriteString("\n\nMessages:\n")
	}
	writeTranscript(&b, batch)

	resp, err := provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(summarizerSystemPrompt),
		types.NewUserMessage(b.String()),
	})
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return fmt.Errorf("failed to generate summary: empty response")
	}

	switch {
	case cumulative || summary.Content == "":
		summary.Content = text
	default:
		summary.Content += "\n\n" + text
	}
	summary.Covered += len(batch)
	summary.Count++
	summary.UpdatedAt = time.Now()
	return nil
}

func writeTranscript(b *strings.Builder, msgs []*types.Message) {
	for i, m := range msgs {
		fmt.Fprintf(b, "%d. %s: %s\n", i+1, roleLabel(m.Role), m.Content)
	}
}

func roleLabel(r types.MessageRole) string {
	switch r {
	case types.RoleUser:
		return "User"
	case types.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}
