// Package app composes and boots the whole service.
package app

import (
	"context"
	"os"

	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
	"github.com/susaninz/geosite-manager/metrics"
	"github.com/susaninz/geosite-manager/monitor"
	"github.com/susaninz/geosite-manager/mqttbridge"
	"github.com/susaninz/geosite-manager/notify"
	"github.com/susaninz/geosite-manager/web_server"
	"github.com/susaninz/geosite-manager/ws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// App is a complete service instance.
type App struct {
	// config is the main config used for the App.
	config Config
	// engine is the device connectivity monitor.
	engine *monitor.Engine
	// history keeps router metrics and threshold alerts.
	history *metrics.History
	// notifier delivers operator notifications.
	notifier *notify.Service
	// wsHub is the hub for websocket connections.
	wsHub *ws.Hub
	// webServer is used for http requests and websocket connections.
	webServer *web_server.WebServer
	// mqttBridge ingests events via MQTT if configured.
	mqttBridge *mqttbridge.Bridge
}

func NewApp(config Config) *App {
	return &App{
		config: config,
	}
}

// Boot sets everything up based on the set config and boots.
func (app *App) Boot(ctx context.Context) error {
	// Validate config.
	if err := ValidateConfig(app.config); err != nil {
		return errors.NewFatalErrorFromErr(err, "invalid config", nil)
	}
	// Setup logger.
	logger := setupLogging(app.config.Log)
	logging.ApplyToGlobalLoggers(logger)
	defer func() {
		_ = logger.Sync()
	}()
	err := app.boot(ctx)
	if err != nil {
		err = errors.Wrap(err, "boot", nil)
		errors.Log(logging.AppLogger, err)
		return err
	}
	return nil
}

func (app *App) boot(ctx context.Context) error {
	logging.AppLogger.Warn("booting up")
	// Create device monitor.
	app.engine = monitor.NewEngine(app.config.Monitor.toEngineConfig(), app.config.Devices)
	// Create metrics history.
	app.history = metrics.NewHistory(0, 0)
	// Create notifier.
	app.notifier = notify.NewService(notify.NewTelegram(notify.TelegramConfig{
		BotToken: app.config.TelegramBotToken,
		ChatID:   app.config.TelegramChatID,
	}))
	// Create websocket hub.
	app.wsHub = ws.NewHub()
	// Create MQTT bridge if an address is provided.
	if app.config.MQTTAddr.Valid {
		app.mqttBridge = mqttbridge.NewBridge(mqttbridge.Config{
			MQTTAddr:  app.config.MQTTAddr.String,
			BaseTopic: app.config.MQTTBaseTopic,
		}, app.engine, app.notifier, app.wsHub)
	}
	// Create web server.
	webServer, err := web_server.NewWebServer(web_server.Config{
		ServeAddr:    app.config.ServeAddr,
		WriteTimeout: web_server.DefaultWriteTimeout,
		ReadTimeout:  web_server.DefaultReadTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "create web server", nil)
	}
	app.webServer = webServer
	logging.AppLogger.Debug("setup completed. booting...")
	wg, lifetime := errgroup.WithContext(ctx)
	wg.Go(func() error {
		app.wsHub.Run(lifetime)
		return nil
	})
	app.webServer.PopulateRoutes(web_server.NewHandlers(web_server.HandlersConfig{
		WebhookSecret:  app.config.WebhookSecret,
		TelegramChatID: app.config.TelegramChatID,
		RAMThreshold:   app.config.RAMThreshold,
		CPUThreshold:   app.config.CPUThreshold,
	}, app.engine, app.history, app.notifier, app.wsHub), lifetime)
	wg.Go(func() error {
		if err := app.webServer.Run(lifetime); err != nil {
			return errors.Wrap(err, "run web server", nil)
		}
		return nil
	})
	if app.mqttBridge != nil {
		wg.Go(func() error {
			if err := app.mqttBridge.Run(lifetime); err != nil {
				return errors.Wrap(err, "run mqtt bridge", nil)
			}
			return nil
		})
	}
	logging.AppLogger.Warn("completed issuing boot commands")
	err = wg.Wait()
	logging.AppLogger.Warn("shutting down")
	return err
}

// setupLogging builds the tee of log cores: colored stdout, stderr for
// errors, and optional rotated files for high priority and debug output.
func setupLogging(config LogConfig) *zap.Logger {
	encConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	cores := make([]zapcore.Core, 0)
	// Setup stdout logger with colorful level output.
	stdOutEncConfig := encConfig
	stdOutEncConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(stdOutEncConfig),
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= config.StdoutLogLevel
		})))
	// Setup error logger.
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(encConfig),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(level zapcore.Level) bool {
			return level >= zap.ErrorLevel
		})))
	// Setup high priority logger.
	if config.HighPriorityOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.HighPriorityOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.WarnLevel
			})))
	}
	// Setup debug logger.
	if config.DebugOutput.Valid {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename: config.DebugOutput.String,
				MaxSize:  config.MaxSize,
				MaxAge:   config.KeepDays,
			}),
			zap.LevelEnablerFunc(func(level zapcore.Level) bool {
				return level >= zap.DebugLevel
			})))
	}
	// Combine.
	return zap.New(zapcore.NewTee(cores...))
}
