package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ethermirror/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(dir string) config.LogConfig {
	return config.LogConfig{
		Level:     "debug",
		Dir:       dir,
		QueueSize: 4,
		Rotation:  config.RotationConfig{MaxSizeMB: 1},
	}
}

var start = time.Date(2024, 3, 9, 17, 4, 5, 123456789, time.FixedZone("CET", 3600))

func readJSONLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		lines = append(lines, m)
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestNewCreatesDirectoryAndTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	console := &syncBuffer{}

	root, err := New(testConfig(dir), WithConsole(console), WithClock(func() time.Time { return start }))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "2024-03-09T16-04-05.123456789Z.log"), root.Path)

	root.WithField("len", 60).Info("Link")
	require.NoError(t, root.Close())

	lines := readJSONLines(t, root.Path)
	require.Len(t, lines, 2)
	assert.Equal(t, "Created logging directory", lines[0]["msg"])
	assert.Equal(t, "Link", lines[1]["msg"])
	assert.Equal(t, "info", lines[1]["level"])
	assert.EqualValues(t, 60, lines[1]["len"])

	assert.Contains(t, console.String(), "Created logging directory")
	assert.Contains(t, console.String(), "Link")
}

func TestNewExistingDirectory(t *testing.T) {
	dir := t.TempDir()

	root, err := New(testConfig(dir), WithConsole(&syncBuffer{}))
	require.NoError(t, err)
	require.NoError(t, root.Close())

	lines := readJSONLines(t, root.Path)
	require.NotEmpty(t, lines)
	assert.Equal(t, "Logging directory already exists, skipping", lines[0]["msg"])
}

func TestNewUnopenableFile(t *testing.T) {
	// a regular file where the directory should be
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(dir, nil, 0o644))

	_, err := New(testConfig(dir), WithConsole(&syncBuffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Level = "loud"
	_, err := New(cfg, WithConsole(&syncBuffer{}))
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Level = "warn"

	root, err := New(cfg, WithConsole(&syncBuffer{}))
	require.NoError(t, err)
	assert.False(t, root.IsDebugEnabled())

	root.Info("dropped")
	root.Warn("kept")
	require.NoError(t, root.Close())

	lines := readJSONLines(t, root.Path)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestQueuePreservesOrderUnderBackpressure(t *testing.T) {
	root, err := New(testConfig(t.TempDir()), WithConsole(&syncBuffer{}))
	require.NoError(t, err)

	const n = 500
	for i := 0; i < n; i++ {
		root.WithField("seq", i).Debug("frame")
	}
	require.NoError(t, root.Close())

	lines := readJSONLines(t, root.Path)
	require.Len(t, lines, n+1)
	for i, line := range lines[1:] {
		assert.EqualValues(t, i, line["seq"])
	}
}

func TestWriteAfterClose(t *testing.T) {
	console := &syncBuffer{}
	root, err := New(testConfig(t.TempDir()), WithConsole(console))
	require.NoError(t, err)
	require.NoError(t, root.Close())

	assert.NotPanics(t, func() { root.Error("late") })
	assert.Contains(t, console.String(), "late")
	// idempotent
	assert.NoError(t, root.Close())
}

func TestFatalFlushesBeforeExit(t *testing.T) {
	var code int
	root, err := New(testConfig(t.TempDir()), WithConsole(&syncBuffer{}), WithExit(func(c int) { code = c }))
	require.NoError(t, err)

	root.WithError(assert.AnError).Fatal("Could not open channel")
	assert.Equal(t, 1, code)

	lines := readJSONLines(t, root.Path)
	last := lines[len(lines)-1]
	assert.Equal(t, "Could not open channel", last["msg"])
	assert.Equal(t, "fatal", last["level"])
	assert.Equal(t, assert.AnError.Error(), last[logrus.ErrorKey])
}

func TestFromLogrus(t *testing.T) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)

	logger := FromLogrus(l)
	logger.WithFields(Fields{"a": 1}).WithField("b", 2).Warnf("x=%d", 3)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "x=3", entry.Message)
	assert.Equal(t, 1, entry.Data["a"])
	assert.Equal(t, 2, entry.Data["b"])
	assert.True(t, logger.IsDebugEnabled())
}
