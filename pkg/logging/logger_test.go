package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetState points the package at a temp dir and restores globals afterwards.
func resetState(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("RECALL_LOG_DIR", dir)

	origLevel := CurrentLevel()
	logDir, initErr = "", nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		SetLevel(origLevel)
		logDir, initErr = "", nil
		initOnce = sync.Once{}
	})
	return dir
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	return string(data)
}

func TestNewLogger(t *testing.T) {
	dir := resetState(t)

	logger, err := NewLogger("agent")
	require.NoError(t, err)
	defer logger.Close()

	assert.Equal(t, "agent", logger.component)
	assert.Equal(t, filepath.Join(dir, logger.SessionID()+"-recall.log"), logger.LogPath())
	assert.Equal(t, GetSessionID(), logger.SessionID())

	got, err := GetLogDirectory()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestLoggersShareSessionFile(t *testing.T) {
	resetState(t)

	a, err := NewLogger("agent")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewLogger("memory")
	require.NoError(t, err)
	defer b.Close()

	a.Infof("turn %d", 1)
	b.Warnf("dropped %s", "fact")

	assert.Equal(t, a.LogPath(), b.LogPath())
	content := readLog(t, a)
	assert.Contains(t, content, "[agent] [INFO] turn 1")
	assert.Contains(t, content, "[memory] [WARN] dropped fact")
}

func TestLevelFiltering(t *testing.T) {
	resetState(t)

	logger, err := NewLogger("threads")
	require.NoError(t, err)
	defer logger.Close()

	SetLevel(LevelWarn)
	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("shown warn")
	logger.Errorf("shown error")

	content := readLog(t, logger)
	assert.NotContains(t, content, "hidden")
	assert.Equal(t, 2, strings.Count(content, "shown"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warning ", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv(levelEnv, "")
	assert.False(t, LevelFromEnv())
	t.Setenv(levelEnv, "warn")
	assert.True(t, LevelFromEnv())
}

func TestCloseIsIdempotent(t *testing.T) {
	resetState(t)

	logger, err := NewLogger("close")
	require.NoError(t, err)
	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestFallbackLogger(t *testing.T) {
	resetState(t)

	l := newFallbackLogger("fallback", os.ErrPermission)
	assert.Empty(t, l.LogPath())
	assert.Equal(t, os.Stderr, l.Writer())
	assert.NoError(t, l.Close())
}
