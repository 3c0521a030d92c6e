package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/mediapull/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediapull")
		v.AddConfigPath("/etc/mediapull")
	}

	v.SetEnvPrefix("MEDIAPULL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers every scalar key so AutomaticEnv applies without a config file
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port",
		"download.output_dir", "download.sink_url", "download.write_queue_depth",
		"download.max_packet_bytes", "download.max_file_name_length",
		"download.stall_timeout", "download.check_interval",
		"storage.database_path",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path", "logging.logs_dir",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Storage.DatabasePath = expandPath(config.Storage.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" && config.Download.SinkURL == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if len(config.Download.Positions) == 0 {
		return fmt.Errorf("at least one mount position must be configured")
	}
	for _, p := range config.Download.Positions {
		if p < 0 || p > 255 || !domain.ValidateMountPosition(domain.MountPosition(p)) {
			return fmt.Errorf("invalid mount position: %d", p)
		}
	}

	if config.Download.WriteQueueDepth < 0 {
		return fmt.Errorf("write queue depth cannot be negative")
	}

	if config.Download.MaxPacketBytes < 1 {
		return fmt.Errorf("max packet bytes must be at least 1")
	}

	if config.Download.MaxFileNameLength < 16 {
		return fmt.Errorf("max file name length must be at least 16")
	}

	if config.Download.StallTimeout < 0 {
		return fmt.Errorf("stall timeout cannot be negative")
	}

	if config.Storage.DatabasePath == "" {
		return fmt.Errorf("database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// MountPositions converts the configured positions to domain values
func MountPositions(config *domain.DownloadConfig) []domain.MountPosition {
	positions := make([]domain.MountPosition, 0, len(config.Positions))
	for _, p := range config.Positions {
		positions = append(positions, domain.MountPosition(p))
	}
	return positions
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server.host", config.Server.Host)
	v.Set("server.port", config.Server.Port)
	v.Set("download.output_dir", config.Download.OutputDir)
	v.Set("download.sink_url", config.Download.SinkURL)
	v.Set("download.positions", config.Download.Positions)
	v.Set("download.write_queue_depth", config.Download.WriteQueueDepth)
	v.Set("download.max_packet_bytes", config.Download.MaxPacketBytes)
	v.Set("download.max_file_name_length", config.Download.MaxFileNameLength)
	v.Set("download.stall_timeout", config.Download.StallTimeout.String())
	v.Set("download.check_interval", config.Download.CheckInterval.String())
	v.Set("storage.database_path", config.Storage.DatabasePath)
	v.Set("notification.enabled", config.Notification.Enabled)
	v.Set("notification.sound", config.Notification.Sound)
	v.Set("notification.method", config.Notification.Method)
	v.Set("logging.level", config.Logging.Level)
	v.Set("logging.format", config.Logging.Format)
	v.Set("logging.output_path", config.Logging.OutputPath)
	v.Set("logging.logs_dir", config.Logging.LogsDir)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
