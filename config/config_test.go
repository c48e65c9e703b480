package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concurrentkit/interleave"
)

const yamlDoc = `
max_iterations: 500
strategy: dfs
seed: 42
cycle_detection: false
fail_fast: false
log_level: debug
trace_path: /tmp/trace.txt
`

const tomlDoc = `
max_iterations = 500
strategy = "dfs"
seed = 42
cycle_detection = false
fail_fast = false
log_level = "debug"
trace_path = "/tmp/trace.txt"
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeTemp(t, "cfg.yaml", yamlDoc)
	f, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 500, f.MaxIterations)
	assert.Equal(t, "dfs", f.Strategy)
	assert.Equal(t, uint64(42), f.Seed)
	require.NotNil(t, f.CycleDetection)
	assert.False(t, *f.CycleDetection)
	require.NotNil(t, f.FailFast)
	assert.False(t, *f.FailFast)
	assert.Equal(t, "debug", f.LogLevel)
}

func TestLoadFileTOML(t *testing.T) {
	path := writeTemp(t, "cfg.toml", tomlDoc)
	f, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 500, f.MaxIterations)
	assert.Equal(t, "dfs", f.Strategy)
	assert.Equal(t, uint64(42), f.Seed)
	require.NotNil(t, f.CycleDetection)
	assert.False(t, *f.CycleDetection)
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	path := writeTemp(t, "cfg.ini", yamlDoc)
	_, err := LoadFile(path)
	var usage *interleave.UsageError
	require.ErrorAs(t, err, &usage)
}

func TestFileOptionsProduceAValidRuntime(t *testing.T) {
	path := writeTemp(t, "cfg.yaml", yamlDoc)
	f, err := LoadFile(path)
	require.NoError(t, err)

	opts := f.Options()
	assert.NotEmpty(t, opts)

	_, err = interleave.NewRuntime(opts...)
	require.NoError(t, err)
}

func TestFileOptionsSkipZeroValues(t *testing.T) {
	f := &File{}
	opts := f.Options()
	assert.Empty(t, opts)
}
