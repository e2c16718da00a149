package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/recall/pkg/agent/memory"
	appconfig "github.com/entrhq/recall/pkg/config"
	"github.com/entrhq/recall/pkg/llm/llmtest"
	"github.com/entrhq/recall/pkg/types"
)

// initConfig points the global configuration at a fresh file in a temp dir.
func initConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, appconfig.Initialize(path))
	return path
}

func mockProvider(maxTokens int) *llmtest.MockProvider {
	m := new(llmtest.MockProvider)
	m.On("GetModelInfo").Return(&types.ModelInfo{Name: "gpt-4o", MaxTokens: maxTokens})
	m.On("GetModel").Return("gpt-4o").Maybe()
	m.On("Complete", mock.Anything, mock.Anything).Return(types.NewAssistantMessage("summary"), nil)
	return m
}

func TestBuildContextManager_DefaultsFoldPastThreshold(t *testing.T) {
	initConfig(t)
	provider := mockProvider(1000)
	settings := appconfig.GetMemory().Snapshot()

	manager := buildContextManager(provider, settings, "")
	require.Len(t, manager.GetStrategies(), 2)
	assert.Equal(t, 1000, manager.GetMaxTokens())

	conv := memory.NewConversationMemory()
	big := strings.Repeat("word ", 2000)
	for i := 0; i < settings.KeepRecentMessages+2; i++ {
		conv.Add(types.NewUserMessage(big))
	}

	_, err := manager.EvaluateAndSummarize(context.Background(), conv, manager.CountWindowTokens(conv))
	require.NoError(t, err)
	assert.Equal(t, conv.Len()-settings.ThresholdMinRecent, manager.Summary().Covered)
	provider.AssertNumberOfCalls(t, "Complete", 2)
}

func TestBuildContextManager_MinRecentNotBelowKeep(t *testing.T) {
	initConfig(t)
	provider := mockProvider(1000)
	settings := appconfig.GetMemory().Snapshot()
	settings.ThresholdMinRecent = settings.KeepRecentMessages

	manager := buildContextManager(provider, settings, "")

	conv := memory.NewConversationMemory()
	big := strings.Repeat("word ", 2000)
	for i := 0; i < settings.KeepRecentMessages+2; i++ {
		conv.Add(types.NewUserMessage(big))
	}

	_, err := manager.EvaluateAndSummarize(context.Background(), conv, manager.CountWindowTokens(conv))
	require.NoError(t, err)
	assert.Equal(t, conv.Len()-settings.KeepRecentMessages+1, manager.Summary().Covered)
}

func TestBuildContextManager_ConfiguredWindow(t *testing.T) {
	initConfig(t)
	require.NoError(t, appconfig.GetLLM().SetData(map[string]interface{}{"context_window": 4096}))

	manager := buildContextManager(mockProvider(128000), appconfig.GetMemory().Snapshot(), "")
	assert.Equal(t, 4096, manager.GetMaxTokens())
}

func TestBuildThreadStore_File(t *testing.T) {
	initConfig(t)
	dir := filepath.Join(t.TempDir(), "threads")
	require.NoError(t, appconfig.GetStorage().SetData(map[string]interface{}{"threads_dir": dir}))

	app := &App{}
	store, err := buildThreadStore(context.Background(), app)
	require.NoError(t, err)
	assert.Empty(t, app.closers)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "trip", []*types.Message{types.NewUserMessage("hi")}, false))
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"trip"}, names)
}

func TestBuildThreadStore_RedisUnreachable(t *testing.T) {
	initConfig(t)
	require.NoError(t, appconfig.GetStorage().SetData(map[string]interface{}{
		"threads_backend": appconfig.ThreadsBackendRedis,
		"redis_url":       "not a url",
	}))

	app := &App{}
	_, err := buildThreadStore(context.Background(), app)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
	assert.Empty(t, app.closers)
}

func TestConnectMCPServers_SkipsBrokenServers(t *testing.T) {
	app := &App{}
	got := connectMCPServers(context.Background(), app, map[string]string{
		"blank":   " ",
		"missing": filepath.Join(t.TempDir(), "no-such-server"),
	})
	assert.Empty(t, got)
	assert.Empty(t, app.closers)
}

func TestImportLegacy_Persists(t *testing.T) {
	configPath := initConfig(t)
	legacy := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{
		"openai": {"api_key": "sk-legacy", "default_model": "gpt-4o-mini"},
		"redis": {"url": "redis://cache:6379/1"}
	}`), 0600))

	require.NoError(t, importLegacy(legacy))

	require.NoError(t, appconfig.Initialize(configPath))
	assert.Equal(t, appconfig.ThreadsBackendRedis, appconfig.GetStorage().GetThreadsBackend())
	assert.Equal(t, "redis://cache:6379/1", appconfig.GetStorage().GetRedisURL())
}
