package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const editScript = `name: cli
records:
  - {id: a, type: paragraph, data: {text: hello}}
  - {id: b, type: paragraph, data: {text: world}}
steps:
  - op: merge
    target: a
    source: b
  - op: insert
    block: {id: c, type: paragraph, data: {text: "   "}}
  - op: transaction
    label: rewrite
    steps:
      - op: update
        id: a
        data: {text: hi}
`

// syncBuffer is a bytes.Buffer safe for concurrent writes and reads.
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

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })

	root := NewRootCommand(VersionInfo{Version: "1.2.3", Commit: "abc", Date: "today"})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "replay")
}

func TestRootRejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Blockstorm 1.2.3\nCommit: abc\nBuilt: today\n", out)

	out, _, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit: abc, built: today)")
}

func TestReplayJSON(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)

	out, errOut, err := execute(t, "replay", path, "--history")
	require.NoError(t, err)

	blocks := gjson.Get(out, "blocks")
	require.True(t, blocks.IsArray())
	require.Len(t, blocks.Array(), 1)
	assert.Equal(t, "a", gjson.Get(out, "blocks.0.id").String())
	assert.Equal(t, "hi", gjson.Get(out, "blocks.0.data.text").String())
	assert.Equal(t, "dev", gjson.Get(out, "version").String())

	assert.Contains(t, errOut, "skipped block c (paragraph)")
	assert.Contains(t, errOut, "merge")
	assert.Contains(t, errOut, "rewrite")
	assert.Contains(t, errOut, "✓ replayed 4 steps of edit.yaml")
}

func TestReplayYAML(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)

	out, _, err := execute(t, "replay", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "blocks:\n")
	assert.Contains(t, out, "text: hi\n")
}

func TestReplayQuery(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)

	out, _, err := execute(t, "replay", path, "--query", "blocks.0.data.text")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)

	out, _, err = execute(t, "replay", path, "-q", "blocks.0.data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, out)

	_, errOut, err := execute(t, "replay", path, "-q", "blocks.9")
	require.Error(t, err)
	assert.Contains(t, errOut, "matched nothing")
}

func TestReplayVerbose(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)

	_, errOut, err := execute(t, "replay", path, "-v")
	require.NoError(t, err)
	assert.Contains(t, errOut, "→ 1 merge a\n")
	assert.Contains(t, errOut, "→ 3.1 update a\n")
}

func TestReplayConfig(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)
	cfg := writeTemp(t, "blockstorm.toml", "[document]\nkeepEmpty = true\n")

	out, errOut, err := execute(t, "replay", path, "--config", cfg)
	require.NoError(t, err)
	assert.Len(t, gjson.Get(out, "blocks").Array(), 2)
	assert.NotContains(t, errOut, "skipped")
}

func TestReplayMaxUndo(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)

	_, errOut, err := execute(t, "replay", path, "--max-undo", "1", "--history")
	require.NoError(t, err)
	assert.Contains(t, errOut, "rewrite")
	assert.NotContains(t, errOut, "merge\n")

	_, _, err = execute(t, "replay", path, "--max-undo", "0")
	require.Error(t, err)
}

func TestReplayErrors(t *testing.T) {
	t.Run("missing argument", func(t *testing.T) {
		_, _, err := execute(t, "replay")
		require.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		path := writeTemp(t, "edit.yaml", editScript)
		_, errOut, err := execute(t, "replay", path, "--format", "xml")
		require.EqualError(t, err, "invalid output format")
		assert.Contains(t, errOut, "Valid formats: json, yaml")
	})

	t.Run("missing script", func(t *testing.T) {
		_, _, err := execute(t, "replay", filepath.Join(t.TempDir(), "none.yaml"))
		require.EqualError(t, err, "Failed to load script")
	})

	t.Run("failing step", func(t *testing.T) {
		path := writeTemp(t, "bad.yaml", "steps:\n  - op: delete\n    id: ghost\n")
		_, errOut, err := execute(t, "replay", path)
		require.EqualError(t, err, "Replay failed")
		assert.Contains(t, errOut, "Step: 1")
		assert.Contains(t, errOut, "Op: delete")
	})

	t.Run("bad config", func(t *testing.T) {
		path := writeTemp(t, "edit.yaml", editScript)
		cfg := writeTemp(t, "blockstorm.toml", "[history]\nmaxEntries = -3\n")
		_, _, err := execute(t, "replay", path, "--config", cfg)
		require.EqualError(t, err, "Failed to load configuration")
	})
}

func TestReplayWatch(t *testing.T) {
	path := writeTemp(t, "edit.yaml", editScript)

	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })

	root := NewRootCommand(VersionInfo{Version: "dev"})
	var out, errOut syncBuffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"replay", path, "--watch", "-q", "blocks.0.data.text"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "hi\n")
	}, 3*time.Second, 20*time.Millisecond)

	// Rewrite now and then until the watcher, which starts after the first
	// run, sees a change that stays quiet for the debounce period.
	changed := strings.Replace(editScript, "text: hi", "text: again", 1)
	polls := 0
	require.Eventually(t, func() bool {
		if polls%10 == 0 {
			_ = os.WriteFile(path, []byte(changed), 0o644)
		}
		polls++
		return strings.Contains(out.String(), "again\n")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("replay --watch did not stop")
	}
}
