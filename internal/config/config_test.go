package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.GetConfigPath())
	assert.FileExists(t, path)

	cfg := m.Get()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Len(t, cfg.Apps, 8)
	assert.Equal(t, int64(1000), cfg.Desktop.ZBase)
	assert.Equal(t, 500, cfg.Desktop.WindowWidth)
	assert.Equal(t, 550, cfg.Desktop.WindowHeight)
}

func TestNewManager_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, m.SetKey("server_port", "9090"))
	require.NoError(t, m.SetKey("desktop.icon_columns", "4"))
	require.NoError(t, m.SetKey("session.idle_timeout", "5m"))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	cfg := reloaded.Get()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 4, cfg.Desktop.IconColumns)

	idle, err := cfg.IdleTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, idle)
}

func TestNewManager_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: 7000\nlog_level: debug\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)
	cfg := m.Get()
	assert.Equal(t, 7000, cfg.ServerPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Len(t, cfg.Apps, 8)
	assert.Len(t, cfg.Playlist, 5)
}

func TestNewManager_RejectsDuplicateApps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `apps:
  - id: 1
    name: One
  - id: 1
    name: Again
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := NewManager(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetKey_Errors(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.ErrorIs(t, m.SetKey("nope", "1"), ErrUnknownKey)
	assert.Error(t, m.SetKey("server_port", "abc"))
	assert.Error(t, m.SetKey("log_level", "loud"))
	assert.ErrorIs(t, m.SetKey("desktop.window_width", "0"), ErrInvalidConfig)
	assert.ErrorIs(t, m.SetKey("session.reap_interval", "-1s"), ErrInvalidConfig)

	assert.Equal(t, 8080, m.Get().ServerPort)
}

func TestGetKey(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	for _, key := range Keys {
		_, err := m.GetKey(key)
		assert.NoError(t, err, key)
	}

	v, err := m.GetKey("log_level")
	require.NoError(t, err)
	assert.Equal(t, "info", v)

	_, err = m.GetKey("missing")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestGet_ReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg := m.Get()
	cfg.Apps[0].Name = "changed"
	cfg.ServerPort = 1

	fresh := m.Get()
	assert.Equal(t, "My Diary", fresh.Apps[0].Name)
	assert.Equal(t, 8080, fresh.ServerPort)
}

func TestLayout(t *testing.T) {
	l := Defaults().Layout()
	assert.Equal(t, 500.0, l.WindowWidth)
	assert.Equal(t, 550.0, l.WindowHeight)
	assert.Equal(t, 3, l.IconColumns)
}
