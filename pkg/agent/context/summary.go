package context

import (
	"time"

	"github.com/entrhq/recall/pkg/types"
)

// Summary is the rolling summary of evicted history. It represents exactly
// the first Covered messages of the transcript.
type Summary struct {
	UpdatedAt time.Time `json:"updated_at"`
	Content   string    `json:"content"`

	// Covered is the watermark: history[:Covered] lives only in Content.
	Covered int `json:"covered"`

	// Count is the number of folds that produced Content.
	Count int `json:"count"`
}

// IsEmpty reports whether nothing has been summarized yet.
func (s Summary) IsEmpty() bool {
	return s.Covered == 0
}

// Message renders the summary as the system message placed ahead of the
// recent history, or nil when the summary is empty.
func (s Summary) Message() *types.Message {
	if s.IsEmpty() {
		return nil
	}
	return types.NewSystemMessage(summaryHeader+s.Content).
		WithMetadata(types.MetaSummarized, true).
		WithMetadata(types.MetaSummaryCount, s.Count).
		WithMetadata(types.MetaSummaryCovered, s.Covered)
}
