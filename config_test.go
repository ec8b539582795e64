package colseg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/colseg/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "colseg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
readMode: heap
padByte: 32
nullToken: "<null>"
indexRemoval: false
limits:
  memoryBytes: 1048576
  ioBytesPerSec: 4194304
  concurrentTransfers: 2
log:
  level: debug
  format: json
deepStore:
  compression: lz4
  blockSize: 65536
  concurrency: 8
  codec: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "heap", cfg.ReadMode)
	assert.Equal(t, 32, cfg.PadByte)
	require.NotNil(t, cfg.IndexRemoval)
	assert.False(t, *cfg.IndexRemoval)
	assert.Equal(t, int64(2), cfg.Limits.ConcurrentTransfer)
	assert.Equal(t, "lz4", cfg.DeepStore.Compression)

	opts := defaultOptions()
	for _, fn := range cfg.Options() {
		fn(&opts)
	}
	assert.Equal(t, buffer.ReadModeHeap, opts.readMode)
	assert.Equal(t, byte(' '), opts.padByte)
	assert.Equal(t, "<null>", opts.nullToken)
	assert.False(t, opts.removeSupported)
	assert.Equal(t, int64(1<<20), opts.memoryLimit)
	assert.Equal(t, int64(4<<20), opts.ioLimit)
	assert.NotNil(t, opts.resourceController())
	assert.Len(t, opts.deepStore, 4)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	opts := defaultOptions()
	for _, fn := range cfg.Options() {
		fn(&opts)
	}
	assert.Equal(t, buffer.ReadModeMmap, opts.readMode)
	assert.True(t, opts.removeSupported)
	assert.Nil(t, opts.resourceController())
	assert.Empty(t, opts.deepStore)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"read mode", "readMode: tape\n"},
		{"pad byte", "padByte: 300\n"},
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"compression", "deepStore:\n  compression: brotli\n"},
		{"codec", "deepStore:\n  codec: gob\n"},
		{"yaml", "readMode: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandUserPath("~/colseg.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "colseg.yaml"), got)

	got, err = expandUserPath("/etc/colseg.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/colseg.yaml", got)
}
