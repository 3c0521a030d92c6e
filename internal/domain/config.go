package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download session configuration
type DownloadConfig struct {
	OutputDir         string        `mapstructure:"output_dir"`          // local sink directory
	SinkURL           string        `mapstructure:"sink_url"`            // blob bucket URL, empty for local files
	Positions         []int         `mapstructure:"positions"`           // mount positions registered at startup
	WriteQueueDepth   int           `mapstructure:"write_queue_depth"`   // 0 writes synchronously
	MaxPacketBytes    int           `mapstructure:"max_packet_bytes"`
	MaxFileNameLength int           `mapstructure:"max_file_name_length"`
	StallTimeout      time.Duration `mapstructure:"stall_timeout"`       // 0 disables the watchdog
	CheckInterval     time.Duration `mapstructure:"check_interval"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // category log files
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Download: DownloadConfig{
			OutputDir:         ".",
			SinkURL:           "",
			Positions:         []int{int(MountPositionPayloadPort1)},
			WriteQueueDepth:   0,
			MaxPacketBytes:    DefaultMaxPacketBytes,
			MaxFileNameLength: DefaultMaxFileNameLength,
			StallTimeout:      30 * time.Second,
			CheckInterval:     5 * time.Second,
		},
		Storage: StorageConfig{
			DatabasePath: "$HOME/.mediapull/mediapull.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.mediapull/logs",
		},
	}
}
