package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, Default.DaemonPort, cfg.DaemonPort)
	assert.Equal(t, filepath.Join(dir, "scriptpack.db"), cfg.DBPath)
	assert.Equal(t, ".ts4ignore", cfg.IgnoreFile)
	assert.Equal(t, Default.DefaultIgnore, cfg.DefaultIgnore)
	assert.Equal(t, 2*time.Second, cfg.Watch.Interval)
	assert.Equal(t, 3, cfg.Watch.DebounceTicks)
	assert.True(t, cfg.Watch.InitialPack)
	assert.False(t, cfg.Archive.PreserveEmptyDirs)
	assert.Equal(t, CompressionDeflate, cfg.Archive.Compression)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `daemon_port: 9100
watch:
  interval: 500ms
  debounce_ticks: 5
archive:
  preserve_empty_dirs: true
  compression: store
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.DaemonPort)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Interval)
	assert.Equal(t, 5, cfg.Watch.DebounceTicks)
	assert.True(t, cfg.Archive.PreserveEmptyDirs)
	assert.Equal(t, CompressionStore, cfg.Archive.Compression)
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	yaml := `archive:
  compression: lzma
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	_, err := LoadFrom(viper.New(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCRIPTPACK_WATCH_DEBOUNCE_TICKS", "7")

	cfg, err := LoadFrom(viper.New(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Watch.DebounceTicks)
}
