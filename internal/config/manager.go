package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/bryanchriswhite/webdesk/internal/media"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/webdesk/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "webdesk", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when empty. A missing
// file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("apps", len(m.config.Apps)).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk. Sections absent from the file keep
// their default values.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	cfg.Apps = append([]desktop.Descriptor(nil), m.config.Apps...)
	cfg.Links = append([]desktop.Link(nil), m.config.Links...)
	cfg.Playlist = append([]media.Track(nil), m.config.Playlist...)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := m.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", tmp).
			Msg("Failed to write config")
		return err
	}

	return os.Rename(tmp, m.configPath)
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetPort sets the server port in memory
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ServerPort = port
}

// SetLogLevel sets the log level in memory
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Keys lists the scalar keys accepted by GetKey and SetKey
var Keys = []string{
	"server_port",
	"log_level",
	"log_pretty",
	"desktop.z_base",
	"desktop.window_width",
	"desktop.window_height",
	"desktop.spawn_range",
	"desktop.icon_columns",
	"desktop.viewport_width",
	"desktop.viewport_height",
	"session.idle_timeout",
	"session.reap_interval",
}

// GetKey returns one scalar value
func (m *Manager) GetKey(key string) (any, error) {
	cfg := m.Get()
	switch key {
	case "server_port":
		return cfg.ServerPort, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "log_pretty":
		return cfg.LogPretty, nil
	case "desktop.z_base":
		return cfg.Desktop.ZBase, nil
	case "desktop.window_width":
		return cfg.Desktop.WindowWidth, nil
	case "desktop.window_height":
		return cfg.Desktop.WindowHeight, nil
	case "desktop.spawn_range":
		return cfg.Desktop.SpawnRange, nil
	case "desktop.icon_columns":
		return cfg.Desktop.IconColumns, nil
	case "desktop.viewport_width":
		return cfg.Desktop.ViewportWidth, nil
	case "desktop.viewport_height":
		return cfg.Desktop.ViewportHeight, nil
	case "session.idle_timeout":
		return cfg.Session.IdleTimeout, nil
	case "session.reap_interval":
		return cfg.Session.ReapInterval, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// SetKey parses value for key, validates the result and saves it
func (m *Manager) SetKey(key, value string) error {
	cfg := m.Get()

	var err error
	switch key {
	case "server_port":
		cfg.ServerPort, err = strconv.Atoi(value)
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = value
		default:
			err = fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
	case "log_pretty":
		cfg.LogPretty, err = strconv.ParseBool(value)
	case "desktop.z_base":
		cfg.Desktop.ZBase, err = strconv.ParseInt(value, 10, 64)
	case "desktop.window_width":
		cfg.Desktop.WindowWidth, err = strconv.Atoi(value)
	case "desktop.window_height":
		cfg.Desktop.WindowHeight, err = strconv.Atoi(value)
	case "desktop.spawn_range":
		cfg.Desktop.SpawnRange, err = strconv.ParseFloat(value, 64)
	case "desktop.icon_columns":
		cfg.Desktop.IconColumns, err = strconv.Atoi(value)
	case "desktop.viewport_width":
		cfg.Desktop.ViewportWidth, err = strconv.Atoi(value)
	case "desktop.viewport_height":
		cfg.Desktop.ViewportHeight, err = strconv.Atoi(value)
	case "session.idle_timeout":
		cfg.Session.IdleTimeout = value
	case "session.reap_interval":
		cfg.Session.ReapInterval = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	return m.Update(cfg)
}

// SetLogPretty switches console log formatting in memory
func (m *Manager) SetLogPretty(pretty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogPretty = pretty
}
