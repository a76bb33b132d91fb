package app

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/monitor"
	"go.uber.org/zap/zapcore"
)

const (
	defaultRAMThreshold = 85
	defaultCPUThreshold = 3.0
)

// Config is the configuration needed in order to boot an App.
type Config struct {
	// ServeAddr is the address the web server listens on.
	ServeAddr string `json:"serve_addr"`
	// WebhookSecret authenticates inbound webhooks.
	WebhookSecret string `json:"webhook_secret"`
	// TelegramBotToken is the bot API token.
	TelegramBotToken string `json:"telegram_bot_token"`
	// TelegramChatID is the chat that receives notifications.
	TelegramChatID string `json:"telegram_chat_id"`
	// MQTTAddr is the optional address of an MQTT server for event ingestion.
	MQTTAddr nulls.String `json:"mqtt_addr"`
	// MQTTBaseTopic is the base topic for MQTT event ingestion.
	MQTTBaseTopic string `json:"mqtt_base_topic"`
	// RAMThreshold is the RAM usage percentage reported as threshold.
	RAMThreshold float64 `json:"ram_threshold"`
	// CPUThreshold is the CPU load reported as threshold.
	CPUThreshold float64 `json:"cpu_threshold"`
	// Monitor configures the device connectivity engine.
	Monitor MonitorConfig `json:"monitor"`
	// Devices is the fixed set of monitored devices.
	Devices []monitor.DeviceConfig `json:"devices"`
	// Log is the logging configuration.
	Log LogConfig `json:"log"`
}

// MonitorConfig configures the device connectivity engine. Zero values fall
// back to the engine defaults.
type MonitorConfig struct {
	// MaxEvents is the journal cap per device.
	MaxEvents int `json:"max_events"`
	// DisconnectThreshold is the number of disconnects within the window that
	// triggers an alert.
	DisconnectThreshold int `json:"disconnect_threshold"`
	// DisconnectWindowMinutes is the rolling window for the frequency check.
	DisconnectWindowMinutes int `json:"disconnect_window_minutes"`
	// LongOfflineThresholdSeconds is the offline duration that must be exceeded
	// on reconnect for a long-offline alert.
	LongOfflineThresholdSeconds int `json:"long_offline_threshold_seconds"`
}

func (config MonitorConfig) toEngineConfig() monitor.Config {
	return monitor.Config{
		MaxEvents:            config.MaxEvents,
		DisconnectThreshold:  config.DisconnectThreshold,
		DisconnectWindow:     time.Duration(config.DisconnectWindowMinutes) * time.Minute,
		LongOfflineThreshold: time.Duration(config.LongOfflineThresholdSeconds) * time.Second,
	}
}

// LogConfig is the logging configuration used in Config.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for stdout logging.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// HighPriorityOutput is an optional file that receives warnings and errors.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is an optional file that receives all log entries.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size of log files in megabytes.
	MaxSize int `json:"max_size"`
	// KeepDays is how many days log files are kept.
	KeepDays int `json:"keep_days"`
}

// LoadConfig reads the JSON config from the given path and applies
// environment overrides.
func LoadConfig(path string) (Config, error) {
	config := Config{
		ServeAddr:    ":8080",
		RAMThreshold: defaultRAMThreshold,
		CPUThreshold: defaultCPUThreshold,
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.NewInternalErrorFromErr(err, "read config file", errors.Details{"path": path})
		}
		if err := json.Unmarshal(raw, &config); err != nil {
			return Config{}, errors.NewInternalErrorFromErr(err, "parse config file", errors.Details{"path": path})
		}
	}
	applyEnvOverrides(&config)
	return config, nil
}

// applyEnvOverrides lets the deployment environment override secrets and
// thresholds without touching the config file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		config.TelegramChatID = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		config.WebhookSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.ServeAddr = ":" + v
	}
	if v := os.Getenv("RAM_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			config.RAMThreshold = parsed
		}
	}
	if v := os.Getenv("CPU_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			config.CPUThreshold = parsed
		}
	}
}

// ValidateConfig assures that the given Config is valid for booting an App.
func ValidateConfig(config Config) error {
	if config.ServeAddr == "" {
		return errors.NewInternalError("missing serve addr", nil)
	}
	if config.TelegramBotToken == "" {
		return errors.NewInternalError("missing telegram bot token", nil)
	}
	if config.TelegramChatID == "" {
		return errors.NewInternalError("missing telegram chat id", nil)
	}
	if config.WebhookSecret == "" {
		return errors.NewInternalError("missing webhook secret", nil)
	}
	seen := make(map[string]struct{}, len(config.Devices))
	for _, device := range config.Devices {
		if device.Key == "" {
			return errors.NewInternalError("device without key", nil)
		}
		if _, ok := seen[device.Key]; ok {
			return errors.NewInternalError("duplicate device key", errors.Details{"device_key": device.Key})
		}
		seen[device.Key] = struct{}{}
	}
	return nil
}
