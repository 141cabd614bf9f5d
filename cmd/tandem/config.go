package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/avashisht/tandem/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify tandem configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/tandem/config.yaml
Project-specific overrides can be placed in .tandem.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

func displayAllConfig(cfg *config.Config) {
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("server.shutdown_timeout: %s\n", cfg.Server.ShutdownTimeout)
	fmt.Printf("database.path: %s\n", orDefault(cfg.Database.Path, "(default)"))
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", orDefault(cfg.Anthropic.Model, "(sdk default)"))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.region: %s\n", orDefault(cfg.Anthropic.Region, "(not set)"))
	fmt.Printf("executor.retry_initial_interval: %s\n", cfg.Executor.RetryInitialInterval)
	fmt.Printf("executor.retry_max_interval: %s\n", cfg.Executor.RetryMaxInterval)
	fmt.Printf("executor.retry_max_elapsed_time: %s\n", cfg.Executor.RetryMaxElapsedTime)
	fmt.Printf("logging.debug_log_path: %s\n", orDefault(cfg.Logging.DebugLogPath, "(disabled)"))
}

func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "server.addr":
		return cfg.Server.Addr, nil
	case "server.shutdown_timeout":
		return cfg.Server.ShutdownTimeout.String(), nil
	case "database.path":
		return cfg.Database.Path, nil
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.region":
		return cfg.Anthropic.Region, nil
	case "executor.retry_initial_interval":
		return cfg.Executor.RetryInitialInterval.String(), nil
	case "executor.retry_max_interval":
		return cfg.Executor.RetryMaxInterval.String(), nil
	case "executor.retry_max_elapsed_time":
		return cfg.Executor.RetryMaxElapsedTime.String(), nil
	case "logging.debug_log_path":
		return cfg.Logging.DebugLogPath, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "server.addr":
		cfg.Server.Addr = value
	case "server.shutdown_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		cfg.Server.ShutdownTimeout = d
	case "database.path":
		cfg.Database.Path = value
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.region":
		cfg.Anthropic.Region = value
	case "executor.retry_initial_interval", "executor.retry_max_interval", "executor.retry_max_elapsed_time":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		switch key {
		case "executor.retry_initial_interval":
			cfg.Executor.RetryInitialInterval = d
		case "executor.retry_max_interval":
			cfg.Executor.RetryMaxInterval = d
		case "executor.retry_max_elapsed_time":
			cfg.Executor.RetryMaxElapsedTime = d
		}
	case "logging.debug_log_path":
		cfg.Logging.DebugLogPath = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
