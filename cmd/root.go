package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/log"
)

// defaultConfigPath is where a config file is created when none is found.
const defaultConfigPath = ".nsresolve/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config

	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "nsresolve",
	Short: "Resolve namespace URIs to registered handlers",
	Long: `nsresolve maps namespace URIs to handler types declared in
META-INF/nsresolve.handlers resources found across a search path of roots,
and resolves each mapping lazily into a single initialized handler.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/nsresolve/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also NSRESOLVE_DEBUG=1, path from NSRESOLVE_LOG)")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("resource_path", defaults.ResourcePath)
	viper.SetDefault("builtin", defaults.Builtin)
	viper.SetDefault("roots", defaults.Roots)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("journal.enabled", defaults.Journal.Enabled)
	viper.SetDefault("journal.path", defaults.Journal.Path)
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)

	viper.SetEnvPrefix("NSRESOLVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .nsresolve/config.yaml (current directory)
		// 2. ~/.config/nsresolve/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			viper.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "nsresolve"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .nsresolve/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
				viper.SetConfigFile(defaultConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// setup initializes logging and validates the loaded configuration.
func setup(_ *cobra.Command, _ []string) error {
	if os.Getenv("NSRESOLVE_DEBUG") != "" || debugFlag {
		logPath := os.Getenv("NSRESOLVE_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		closeLog = cleanup
		log.Info(log.CatConfig, "nsresolve starting", "version", version, "config", viper.ConfigFileUsed())
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// configFilePath returns the config file scope edits are saved to.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return defaultConfigPath
}

// Execute runs the root command
func Execute() error {
	defer func() { closeLog() }()
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
