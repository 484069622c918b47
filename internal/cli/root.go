// internal/cli/root.go
package toolflow

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/logging"
)

// Version is reported by the MCP transport and --version.
var Version = "0.1.0"

var (
	cfgFile       string
	envFile       string
	currentConfig *appconfig.Config
)

// stdioAnnotation marks commands whose stdout carries protocol frames.
const stdioAnnotation = "stdio"

var rootCmd = &cobra.Command{
	Use:           "toolflow",
	Short:         "toolflow: schema-validated AI tools and a local RAG store",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1) Environment from .env, without overriding variables already set.
		if err := loadEnvFile(); err != nil {
			return err
		}

		// 2) Load config (file or defaults)
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		// 3) Copy config values into unchanged flags so pflags and viper agree.
		for _, name := range []string{"debug", "metrics"} {
			if !cmd.Flags().Changed(name) {
				_ = cmd.Flags().Set(name, strconv.FormatBool(viper.GetBool(name)))
			}
		}

		// 4) Materialize the merged configuration (flags > config > defaults).
		cfg, err := materializeConfig()
		if err != nil {
			return err
		}
		currentConfig = cfg

		console := os.Stdout
		if cmd.Annotations[stdioAnnotation] == "true" {
			console = os.Stderr
		}
		if err := logging.InitWriter(console, cfg.LogFilePath()); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with provider credentials")

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging of provider payloads")
	rootCmd.PersistentFlags().Bool("metrics", false, "collect Prometheus metrics")
	rootCmd.PersistentFlags().String("provider", "", "default provider name")
	rootCmd.PersistentFlags().String("store", "", "vector store path")
	rootCmd.PersistentFlags().String("store-backend", "", "vector store backend (json|sqlite)")

	// Flags override config.
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("metrics", rootCmd.PersistentFlags().Lookup("metrics"))
	_ = viper.BindPFlag("defaultProvider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("storePath", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("storeBackend", rootCmd.PersistentFlags().Lookup("store-backend"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config and sets safe defaults.
func ensureConfigLoaded() error {
	viper.SetDefault("debug", false)
	viper.SetDefault("metrics", false)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// No file: fine, we'll use defaults/flags
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

func materializeConfig() (*appconfig.Config, error) {
	var cfg appconfig.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Providers) == 0 {
		defaults := appconfig.Default()
		cfg.Providers = defaults.Providers
		if cfg.DefaultProvider == "" {
			cfg.DefaultProvider = defaults.DefaultProvider
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.ConfigPath = viper.ConfigFileUsed()
	return &cfg, nil
}

func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

// GetConfig returns the merged application configuration.
func GetConfig() *appconfig.Config {
	return currentConfig
}
