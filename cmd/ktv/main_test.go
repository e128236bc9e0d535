package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraitsura/ktree_viewer/pkg/journal"
)

const physicsYAML = `node: Physics
children:
  - node: Mechanics
    weight: 80
    children:
      - node: Kinematics
  - node: Optics
    widgets:
      - https://youtu.be/abc123
`

type fixture struct {
	dir    string
	tree   string
	config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		tree:   filepath.Join(dir, "physics.yaml"),
		config: filepath.Join(dir, "config.yaml"),
	}
	require.NoError(t, os.WriteFile(f.tree, []byte(physicsYAML), 0o644))
	cfg := "log:\n  level: error\njournal:\n  path: " + filepath.Join(dir, "journal.db") + "\n"
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	return f
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{stderr: io.Discard}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", f.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrderCommandPrintsTraversal(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "order", f.tree)
	require.NoError(t, err)
	assert.Contains(t, out, "Physics (BFS, 4 nodes)")

	lines := strings.Split(strings.TrimSpace(out), "\n")[1:]
	var labels []string
	for _, l := range lines {
		fields := strings.Fields(l)
		labels = append(labels, fields[len(fields)-1])
	}
	assert.Equal(t, []string{"Physics", "Mechanics", "Optics", "Kinematics"}, labels)
}

func TestOrderCommandDFSAsJSON(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "order", f.tree, "--order", "DFS", "--json")
	require.NoError(t, err)

	var entries []orderEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "Kinematics", entries[2].Label)
	assert.Equal(t, 2, entries[2].Depth)
	assert.Equal(t, "0.0.0", entries[2].ID)
	assert.Equal(t, 1, entries[0].Index)
}

func TestOrderCommandRejectsUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "order", f.tree, "--order", "random")
	assert.Error(t, err)
}

func TestExportCommandWritesFormats(t *testing.T) {
	f := newFixture(t)
	base := filepath.Join(f.dir, "out", "physics")
	require.NoError(t, os.MkdirAll(filepath.Dir(base), 0o755))

	out, err := f.run(t, "export", f.tree, "-o", base, "--format", "svg,png", "--focus", "Optics")
	require.NoError(t, err)
	assert.Contains(t, out, base+".svg")
	assert.Contains(t, out, base+".png")

	svg, err := os.ReadFile(base + ".svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg), "Optics")

	png, err := os.ReadFile(base + ".png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestExportCommandInfersFormatFromPath(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(f.dir, "diagram.svg")

	_, err := f.run(t, "export", f.tree, "-o", target)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestJournalListAndShow(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded yet.")

	j, err := journal.Open(filepath.Join(f.dir, "journal.db"), journal.DriverPure)
	require.NoError(t, err)
	s, err := j.StartSession("Physics", "bfs", 4)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err = f.run(t, "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Physics")
	assert.Contains(t, out, "0/4")

	out, err = f.run(t, "journal", "show", "--json", strconv.FormatInt(s.ID, 10))
	require.NoError(t, err)
	assert.Contains(t, out, `"tree_name": "Physics"`)

	_, err = f.run(t, "journal", "show", "nope")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "config.yaml")
	f := fixture{dir: dir, config: target}

	out, err := f.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, target)
	assert.FileExists(t, target)

	_, err = f.run(t, "config", "init")
	assert.Error(t, err, "second init should refuse to overwrite")

	_, err = f.run(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = f.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "order: bfs")
}

func TestMissingExplicitConfigFails(t *testing.T) {
	f := fixture{config: filepath.Join(t.TempDir(), "absent.yaml")}
	_, err := f.run(t, "version")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ktv version dev\n", out)
}

func TestBackgroundLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	a := &app{logger: log.New(&buf)}

	<-a.background("watcher", func() error { return errors.New("inotify limit reached") })
	assert.Contains(t, buf.String(), "watcher stopped")
	assert.Contains(t, buf.String(), "inotify limit reached")

	buf.Reset()
	<-a.background("watcher", func() error { return context.Canceled })
	<-a.background("watcher", func() error { return nil })
	assert.Empty(t, buf.String())
}
