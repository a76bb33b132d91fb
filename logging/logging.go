package logging

import "go.uber.org/zap"

// Loggers.
var (
	// AppLogger is the main app.App logger.
	AppLogger *zap.Logger
	// MonitorLogger is the logger for the device connectivity monitor.
	MonitorLogger *zap.Logger
	// MetricsLogger is used for the router metrics history.
	MetricsLogger *zap.Logger
	// NotifyLogger is used for outbound notifications.
	NotifyLogger *zap.Logger
	// WebServerLogger is used for all stuff regarding web servers.
	WebServerLogger *zap.Logger
	// WSLogger is used for all stuff regarding websocket connections.
	WSLogger *zap.Logger
	// MQTTLogger is the logger for all MQTT stuff.
	MQTTLogger *zap.Logger
)

func init() {
	ApplyToGlobalLoggers(zap.NewNop())
}

// ApplyToGlobalLoggers sets all global loggers based on the given root logger.
func ApplyToGlobalLoggers(logger *zap.Logger) {
	AppLogger = logger.Named("app")
	MonitorLogger = logger.Named("monitor")
	MetricsLogger = logger.Named("metrics")
	NotifyLogger = logger.Named("notify")
	WebServerLogger = logger.Named("web-server")
	WSLogger = logger.Named("ws")
	MQTTLogger = logger.Named("mqtt")
}
