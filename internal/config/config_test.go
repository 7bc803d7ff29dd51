package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/collapse/internal/core/collapse"
	"github.com/zeusync/collapse/internal/core/observability/log"
)

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, collapse.DefaultDebrisCount, cfg.DebrisCount)
	assert.Equal(t, log.LevelInfo, cfg.Level())
	assert.NotZero(t, cfg.ResolvedSeed())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
listen_addr: 0.0.0.0:9000
frame_interval: 20ms
seed: 42
initial_material: concrete
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, uint64(42), cfg.ResolvedSeed())
	assert.Equal(t, "concrete", cfg.InitialMaterial)
	assert.Equal(t, log.LevelDebug, cfg.Level())
	assert.Equal(t, collapse.DefaultDebrisCount, cfg.DebrisCount)
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":    "frames_per_second: 60\n",
		"bad material":     "initial_material: glass\n",
		"bad level":        "log_level: loud\n",
		"negative debris":  "debris_count: -1\n",
		"zero interval":    "frame_interval: 0s\n",
		"empty listen":     "listen_addr: \"\"\n",
		"malformed yaml":   "listen_addr: [\n",
		"zero buffer size": "stream_buffer: 0\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debris_count: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DebrisCount)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
