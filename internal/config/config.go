package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bryanchriswhite/webdesk/internal/desktop"
	"github.com/bryanchriswhite/webdesk/internal/media"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrUnknownKey    = errors.New("unknown config key")
)

// DesktopConfig holds the shell geometry
type DesktopConfig struct {
	ZBase          int64   `json:"z_base" yaml:"z_base"`
	WindowWidth    int     `json:"window_width" yaml:"window_width"`
	WindowHeight   int     `json:"window_height" yaml:"window_height"`
	SpawnRange     float64 `json:"spawn_range" yaml:"spawn_range"`
	IconColumns    int     `json:"icon_columns" yaml:"icon_columns"`
	ViewportWidth  int     `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int     `json:"viewport_height" yaml:"viewport_height"`
}

// SessionConfig controls how long an idle desktop is kept mounted
type SessionConfig struct {
	IdleTimeout  string `json:"idle_timeout" yaml:"idle_timeout"`
	ReapInterval string `json:"reap_interval" yaml:"reap_interval"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int                  `json:"server_port" yaml:"server_port"`
	LogLevel   string               `json:"log_level" yaml:"log_level"`
	LogPretty  bool                 `json:"log_pretty" yaml:"log_pretty"`
	Desktop    DesktopConfig        `json:"desktop" yaml:"desktop"`
	Session    SessionConfig        `json:"session" yaml:"session"`
	Apps       []desktop.Descriptor `json:"apps" yaml:"apps"`
	Links      []desktop.Link       `json:"links" yaml:"links"`
	Playlist   []media.Track        `json:"playlist" yaml:"playlist"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Desktop: DesktopConfig{
			ZBase:          desktop.DefaultZBase,
			WindowWidth:    desktop.DefaultWindowWidth,
			WindowHeight:   desktop.DefaultWindowHeight,
			SpawnRange:     desktop.DefaultSpawnRange,
			IconColumns:    desktop.DefaultIconColumns,
			ViewportWidth:  1280,
			ViewportHeight: 800,
		},
		Session: SessionConfig{
			IdleTimeout:  "30m",
			ReapInterval: "1m",
		},
		Apps: []desktop.Descriptor{
			{ID: 1, Name: "My Diary", Icon: "/icons/diary.png", Surface: "diary"},
			{ID: 2, Name: "Family", Icon: "/icons/family.png", Surface: "family-photos"},
			{ID: 3, Name: "Mini Game", Icon: "/icons/mini_game.png", Surface: "snack-catcher"},
			{ID: 4, Name: "Memories", Icon: "/icons/memories.png", Surface: "memories"},
			{ID: 5, Name: "Home", Icon: "/icons/home.png", Surface: "home"},
			{ID: 6, Name: "Coloring Page", Icon: "/icons/coloring.png", Surface: "coloring"},
			{ID: 7, Name: "Meme Editor", Icon: "/icons/meme.png", Surface: "meme-editor"},
			{ID: 8, Name: "Music Player", Icon: "/music/music.jpeg", Surface: media.SurfaceName},
		},
		Links: []desktop.Link{
			{Name: "Telegram", Icon: "/assets/tele.png", URL: "https://t.me/"},
			{Name: "Twitter", Icon: "/assets/x.png", URL: "https://x.com/"},
			{Name: "Charts", Icon: "/assets/dex.png", URL: "https://dexscreener.com/"},
		},
		Playlist: []media.Track{
			{Title: "Opening theme song", Src: "/music/1.m4a"},
			{Title: "Iconic", Src: "/music/2.m4a"},
			{Title: "Famous Ost", Src: "/music/3.m4a"},
			{Title: "Chaotic", Src: "/music/5.m4a"},
			{Title: "Tasuketekesuta", Src: "/music/6.m4a"},
		},
	}
}

// Validate checks the configuration for values the shell cannot run with
func (c *Config) Validate() error {
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: server_port %d out of range", ErrInvalidConfig, c.ServerPort)
	}
	if c.Desktop.WindowWidth <= 0 || c.Desktop.WindowHeight <= 0 {
		return fmt.Errorf("%w: window size must be positive", ErrInvalidConfig)
	}
	if c.Desktop.ViewportWidth <= 0 || c.Desktop.ViewportHeight <= 0 {
		return fmt.Errorf("%w: viewport size must be positive", ErrInvalidConfig)
	}
	if c.Desktop.SpawnRange < 0 {
		return fmt.Errorf("%w: spawn_range must not be negative", ErrInvalidConfig)
	}
	if _, err := desktop.NewCatalog(c.Apps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.IdleTimeout(); err != nil {
		return fmt.Errorf("%w: idle_timeout: %w", ErrInvalidConfig, err)
	}
	if _, err := c.ReapInterval(); err != nil {
		return fmt.Errorf("%w: reap_interval: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Catalog builds the application catalog from Apps
func (c *Config) Catalog() (*desktop.Catalog, error) {
	return desktop.NewCatalog(c.Apps)
}

// IdleTimeout parses session.idle_timeout
func (c *Config) IdleTimeout() (time.Duration, error) {
	return parsePositiveDuration(c.Session.IdleTimeout)
}

// ReapInterval parses session.reap_interval
func (c *Config) ReapInterval() (time.Duration, error) {
	return parsePositiveDuration(c.Session.ReapInterval)
}

// Layout converts the desktop section into the shell layout
func (c *Config) Layout() desktop.Layout {
	return desktop.Layout{
		WindowWidth:  float64(c.Desktop.WindowWidth),
		WindowHeight: float64(c.Desktop.WindowHeight),
		IconColumns:  c.Desktop.IconColumns,
	}
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
