package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/webdesk/internal/config"
	"github.com/bryanchriswhite/webdesk/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "webdesk",
		Short: "webdesk - a retro desktop served to the browser",
		Long: `webdesk serves a desktop simulation to the browser: icons, draggable
windows, a taskbar with a start menu and a small set of mini-apps.

Every browser tab gets its own desktop session. Window state lives on the
server; clients send pointer and click events and receive scene updates.

Features:
  • Draggable, stackable windows with a taskbar
  • Start menu and desktop icon grid
  • Music player with now-playing indicator
  • Live scene stream over WebSocket
  • PNG previews of any session
  • Prometheus metrics
  • Persistent YAML configuration`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/webdesk/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human readable console logs")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("pretty"))
}

// initConfig lets WEBDESK_* environment variables stand in for flags,
// e.g. WEBDESK_SERVER_PORT=9090.
func initConfig() {
	viper.SetEnvPrefix("webdesk")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file and applies flag and environment overrides
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}
	if viper.IsSet("log_pretty") && viper.GetBool("log_pretty") {
		configMgr.SetLogPretty(true)
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, nil
}
