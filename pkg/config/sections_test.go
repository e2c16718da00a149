package config

import (
	"testing"

	"github.com/entrhq/recall/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMSection(t *testing.T) {
	s := NewLLMSection()
	assert.Equal(t, defaultTemperature, s.GetTemperature())
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]interface{}{
		"default_model": "gpt-4o",
		"temperature":   float64(0.2),
		"max_tokens":    float64(512),
		"summary_model": "gpt-4o-mini",
	}))
	assert.Equal(t, "gpt-4o", s.GetModel())
	assert.Equal(t, 0.2, s.GetTemperature())
	assert.Equal(t, 512, s.GetMaxTokens())
	assert.Equal(t, "gpt-4o-mini", s.GetSummaryModel())

	assert.Error(t, s.SetData(map[string]interface{}{"model": 42}))

	require.NoError(t, s.SetData(map[string]interface{}{"temperature": 3.5}))
	assert.Error(t, s.Validate())

	s.Reset()
	assert.Empty(t, s.GetModel())
	assert.NoError(t, s.Validate())
}

func TestMemorySection(t *testing.T) {
	s := NewMemorySection()
	snap := s.Snapshot()
	assert.True(t, snap.Enabled)
	assert.Equal(t, 5, snap.KeepRecentMessages)
	assert.True(t, snap.CumulativeSummary)
	assert.Equal(t, 80, snap.SummaryThresholdPercent)
	assert.Equal(t, 1, snap.ThresholdMinRecent)
	assert.Equal(t, 5, snap.TopK)
	assert.Equal(t, 0.3, snap.MinScore)

	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"keep recent zero", map[string]interface{}{"keep_recent_messages": 0}},
		{"threshold too low", map[string]interface{}{"summary_threshold_percent": 5}},
		{"threshold too high", map[string]interface{}{"summary_threshold_percent": 120}},
		{"threshold min recent zero", map[string]interface{}{"threshold_min_recent": 0}},
		{"top k zero", map[string]interface{}{"top_k": 0}},
		{"min score out of range", map[string]interface{}{"min_score": 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemorySection()
			require.NoError(t, s.SetData(tt.data))
			assert.Error(t, s.Validate())
		})
	}
}

func TestStorageSection(t *testing.T) {
	s := NewStorageSection()
	assert.Equal(t, ThreadsBackendFile, s.GetThreadsBackend())
	assert.Equal(t, "saved_threads", s.GetThreadsDir())
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]interface{}{"threads_backend": "redis"}))
	assert.Error(t, s.Validate(), "redis backend needs a url")

	s.SetRedisURL("redis://localhost:6379/0")
	assert.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]interface{}{"threads_backend": "s3"}))
	assert.Error(t, s.Validate())
}

func TestToolsSection(t *testing.T) {
	s := NewToolsSection()
	assert.True(t, s.IsWebEnabled())
	assert.Equal(t, DefaultAttachmentPatterns, s.GetAttachmentPatterns())
	require.NoError(t, s.Validate())

	require.NoError(t, s.SetData(map[string]interface{}{
		"attachment_patterns": []interface{}{"*.txt", "notes/**"},
		"web_enabled":         "false",
	}))
	assert.Equal(t, []string{"*.txt", "notes/**"}, s.GetAttachmentPatterns())
	assert.False(t, s.IsWebEnabled())

	require.NoError(t, s.SetData(map[string]interface{}{"attachment_patterns": []string{"[unclosed"}}))
	assert.Error(t, s.Validate())
}

func TestToolsSection_MCPServers(t *testing.T) {
	s := NewToolsSection()
	assert.Empty(t, s.GetMCPServers())

	require.NoError(t, s.SetData(map[string]interface{}{
		"mcp_servers": map[string]interface{}{
			"sequential_thinking": "npx -y @modelcontextprotocol/server-sequential-thinking",
		},
	}))
	require.NoError(t, s.Validate())
	servers := s.GetMCPServers()
	assert.Equal(t, "npx -y @modelcontextprotocol/server-sequential-thinking", servers["sequential_thinking"])

	servers["other"] = "x"
	assert.Len(t, s.GetMCPServers(), 1, "getter returns a copy")

	require.NoError(t, s.SetData(map[string]interface{}{"mcp_servers": map[string]interface{}{"blank": "  "}}))
	assert.Error(t, s.Validate())

	assert.Error(t, s.SetData(map[string]interface{}{"mcp_servers": map[string]interface{}{"bad": 3}}))
	assert.Error(t, s.SetData(map[string]interface{}{"mcp_servers": "npx"}))

	s.Reset()
	assert.Empty(t, s.GetMCPServers())
}

func TestUISection(t *testing.T) {
	s := NewUISection()
	assert.Equal(t, logging.LevelInfo, s.GetLogLevel())
	assert.True(t, s.ShouldRenderMarkdown())

	require.NoError(t, s.SetData(map[string]interface{}{"log_level": "debug"}))
	assert.Equal(t, logging.LevelDebug, s.GetLogLevel())

	require.NoError(t, s.SetData(map[string]interface{}{"log_level": "loud"}))
	assert.Error(t, s.Validate())
}
