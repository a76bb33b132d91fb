package web_server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
	"github.com/susaninz/geosite-manager/metrics"
	"github.com/susaninz/geosite-manager/monitor"
	"github.com/susaninz/geosite-manager/notify"
	"github.com/susaninz/geosite-manager/ws"
	"go.uber.org/zap"
)

const serviceVersion = "1.1.0-iot-monitoring"

// HandlersConfig is the configuration for Handlers.
type HandlersConfig struct {
	// WebhookSecret authenticates inbound webhooks.
	WebhookSecret string
	// TelegramChatID is the only chat whose bot updates are accepted.
	TelegramChatID string
	// RAMThreshold is reported in the status endpoint.
	RAMThreshold float64
	// CPUThreshold is reported in the status endpoint.
	CPUThreshold float64
}

// Handlers holds all HTTP handlers of the service.
type Handlers struct {
	config   HandlersConfig
	engine   *monitor.Engine
	history  *metrics.History
	notifier *notify.Service
	hub      *ws.Hub
	// now is the clock used for defaulted event timestamps. Overridable in
	// tests.
	now func() time.Time
}

// NewHandlers creates the Handlers. Register them with
// WebServer.PopulateRoutes.
func NewHandlers(config HandlersConfig, engine *monitor.Engine, history *metrics.History,
	notifier *notify.Service, hub *ws.Hub) *Handlers {
	return &Handlers{
		config:   config,
		engine:   engine,
		history:  history,
		notifier: notifier,
		hub:      hub,
		now:      time.Now,
	}
}

func (h *Handlers) populateRoutes(router *mux.Router, ctx context.Context) {
	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/metrics/latest", h.handleLatestMetrics).Methods(http.MethodGet)
	router.HandleFunc("/devices", h.handleDevices).Methods(http.MethodGet)
	router.HandleFunc("/devices/{deviceKey}/events", h.handleDeviceEvents).Methods(http.MethodGet)
	router.HandleFunc("/devices/{deviceKey}/mute", h.handleMute(ctx)).Methods(http.MethodPost)
	router.HandleFunc("/notifications", h.handleNotifications).Methods(http.MethodGet)
	router.HandleFunc("/telegram/webhook", h.handleTelegramWebhook(ctx)).Methods(http.MethodPost)
	router.Handle("/ws", ws.HandleWS(h.hub)).Methods(http.MethodGet)

	webhooks := router.PathPrefix("/webhook").Subrouter()
	webhooks.Use(secretMiddleware(h.config.WebhookSecret))
	webhooks.HandleFunc("/device-event", h.handleDeviceEvent(ctx)).Methods(http.MethodPost)
	webhooks.HandleFunc("/monitoring", h.handleMonitoring).Methods(http.MethodPost)
	webhooks.HandleFunc("/alert", h.handleAlert(ctx)).Methods(http.MethodPost)
	webhooks.HandleFunc("/geosite-update", h.handleGeositeUpdate(ctx)).Methods(http.MethodPost)
	webhooks.HandleFunc("/build-complete", h.handleBuildComplete(ctx)).Methods(http.MethodPost)
	webhooks.HandleFunc("/router-event", h.handleRouterEvent(ctx)).Methods(http.MethodPost)
}

func (h *Handlers) handleIndex(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "online",
		"service": "Geosite Manager Bot",
		"version": serviceVersion,
		"endpoints": map[string]string{
			"health":             "/health",
			"status":             "/status",
			"device_webhook":     "/webhook/device-event",
			"monitoring_webhook": "/webhook/monitoring",
			"alert_webhook":      "/webhook/alert",
		},
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"version":       serviceVersion,
		"timestamp":     h.now().UTC().Format(time.RFC3339),
		"metrics_count": h.history.SampleCount(),
	})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bot_configured":     h.config.TelegramChatID != "",
		"webhook_configured": h.config.WebhookSecret != "",
		"metrics_stored":     h.history.SampleCount(),
		"alerts_stored":      h.history.AlertCount(),
		"iot_devices":        h.engine.SnapshotAll(),
		"config": map[string]interface{}{
			"ram_threshold": h.config.RAMThreshold,
			"cpu_threshold": h.config.CPUThreshold,
		},
	})
}

func (h *Handlers) handleLatestMetrics(w http.ResponseWriter, _ *http.Request) {
	latest, ok := h.history.Latest()
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no data"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":        latest.Timestamp,
		"ram_percent":      latest.RAMPercent,
		"cpu_load1":        latest.CPULoad1,
		"clients":          latest.Clients,
		"openclash_memory": latest.OpenClashMemory,
		"recent_alerts":    h.history.RecentAlerts(5),
	})
}

func (h *Handlers) handleDevices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.SnapshotAll())
}

func (h *Handlers) handleDeviceEvents(w http.ResponseWriter, r *http.Request) {
	deviceKey := mux.Vars(r)["deviceKey"]
	n := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, errors.NewBadRequestError("invalid event count", errors.KindDecodeJSON,
				errors.Details{"was": raw}))
			return
		}
		n = parsed
	}
	events, err := h.engine.RecentEvents(deviceKey, n)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *Handlers) handleNotifications(w http.ResponseWriter, r *http.Request) {
	n := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, errors.NewBadRequestError("invalid notification count", errors.KindDecodeJSON,
				errors.Details{"was": raw}))
			return
		}
		n = parsed
	}
	respondJSON(w, http.StatusOK, h.notifier.Recent(n))
}

// deviceEventRequest is the payload the router sends for device connectivity
// events.
type deviceEventRequest struct {
	Event      string `json:"event"`
	Room       string `json:"room"`
	DeviceName string `json:"device_name"`
	MAC        string `json:"mac"`
	IP         string `json:"ip"`
	Timestamp  string `json:"timestamp"`
	Signal     string `json:"signal"`
	Uptime     string `json:"uptime"`
	Reason     string `json:"reason"`
}

func (h *Handlers) handleDeviceEvent(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deviceEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
			return
		}
		occurredAt := h.now()
		if req.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, req.Timestamp)
			if err != nil {
				respondError(w, errors.NewBadRequestError("parse event timestamp", errors.KindInvalidEvent,
					errors.Details{"was": req.Timestamp}))
				return
			}
			occurredAt = parsed
		}
		logging.WebServerLogger.Info("device event received",
			zap.String("device_key", req.Room),
			zap.String("event", req.Event))
		out, err := h.engine.Ingest(req.Room, monitor.Event{
			OccurredAt:     occurredAt,
			Kind:           monitor.ParseEventKind(req.Event),
			Signal:         req.Signal,
			UptimeReport:   req.Uptime,
			Reason:         req.Reason,
			NetworkAddress: req.IP,
		})
		if err != nil {
			if e, _ := errors.Cast(err); e.Code == errors.ErrNotFound {
				// The router may report devices that are not monitored.
				respondJSON(w, http.StatusBadRequest, map[string]string{"status": "unknown_device"})
				return
			}
			respondError(w, err)
			return
		}
		h.hub.BroadcastDeviceUpdate(ctx, out.Device)
		// Delivery happens on the immutable outcome, outside the device lock.
		if message, ok := notify.OutcomeMessage(out); ok && !out.Suppressed {
			h.notifier.Notify(ctx, message)
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "processed",
			"device":         out.Device.Key,
			"classification": out.Classification,
			"suppressed":     out.Suppressed,
		})
	}
}

// monitoringRequest is the payload of the periodic router metrics report.
type monitoringRequest struct {
	Timestamp string `json:"timestamp"`
	RAM       struct {
		Percent float64 `json:"percent"`
	} `json:"ram"`
	CPU struct {
		Load1 float64 `json:"load1"`
	} `json:"cpu"`
	Clients   int `json:"clients"`
	OpenClash struct {
		Memory float64 `json:"memory"`
	} `json:"openclash"`
}

func (h *Handlers) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	var req monitoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
		return
	}
	timestamp := h.now()
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			timestamp = parsed
		}
	}
	h.history.AddSample(metrics.Sample{
		Timestamp:       timestamp,
		RAMPercent:      req.RAM.Percent,
		CPULoad1:        req.CPU.Load1,
		Clients:         req.Clients,
		OpenClashMemory: req.OpenClash.Memory,
	})
	logging.MetricsLogger.Info("monitoring data stored",
		zap.Float64("ram_percent", req.RAM.Percent),
		zap.Float64("cpu_load1", req.CPU.Load1),
		zap.Int("clients", req.Clients))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "stored",
		"records": h.history.SampleCount(),
	})
}

// alertRequest is the payload of a router threshold alert.
type alertRequest struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

func (h *Handlers) handleAlert(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req alertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
			return
		}
		timestamp := h.now()
		if req.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
				timestamp = parsed
			}
		}
		alert := h.history.RecordAlert(metrics.Alert{
			Timestamp: timestamp,
			Type:      req.Type,
			Value:     req.Value,
			Threshold: req.Threshold,
		})
		logging.MetricsLogger.Warn("threshold alert received",
			zap.String("alert_type", alert.Type),
			zap.Float64("value", alert.Value),
			zap.Float64("threshold", alert.Threshold))
		h.notifier.Notify(ctx, notify.ThresholdAlertMessage(alert))
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "alert_received",
			"severity": alert.Severity,
		})
	}
}

func (h *Handlers) handleGeositeUpdate(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Commit    string `json:"commit"`
			OldCommit string `json:"old_commit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
			return
		}
		h.notifier.Notify(ctx, notify.GeositeUpdateMessage(req.Commit, req.OldCommit))
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "received",
			"message": "Update notification processed",
		})
	}
}

func (h *Handlers) handleBuildComplete(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status  string `json:"status"`
			Version string `json:"version"`
			Commit  string `json:"commit"`
			Size    string `json:"size"`
			URL     string `json:"url"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
			return
		}
		h.notifier.Notify(ctx, notify.BuildCompleteMessage(req.Status == "success",
			req.Version, req.Size, req.Commit, req.URL, req.Error))
		respondJSON(w, http.StatusOK, map[string]string{"status": "notification_sent"})
	}
}

func (h *Handlers) handleRouterEvent(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Event   string `json:"event"`
			Status  string `json:"status"`
			Message string `json:"message"`
			Version string `json:"version"`
			Router  string `json:"router"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
			return
		}
		h.notifier.Notify(ctx, notify.RouterEventMessage(req.Event, req.Status,
			req.Message, req.Version, req.Router))
		respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	}
}

func (h *Handlers) handleMute(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceKey := mux.Vars(r)["deviceKey"]
		req := struct {
			Minutes int `json:"minutes"`
		}{Minutes: 60}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
				return
			}
		}
		if req.Minutes <= 0 {
			respondError(w, errors.NewBadRequestError("mute duration must be positive", errors.KindDecodeJSON,
				errors.Details{"minutes": req.Minutes}))
			return
		}
		snapshot, err := h.engine.Mute(deviceKey, time.Duration(req.Minutes)*time.Minute)
		if err != nil {
			respondError(w, err)
			return
		}
		h.hub.BroadcastDeviceUpdate(ctx, snapshot)
		respondJSON(w, http.StatusOK, snapshot)
	}
}

// telegramUpdate is the subset of the Telegram update payload the service
// cares about.
type telegramUpdate struct {
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID json.Number `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
	Message *struct {
		Chat struct {
			ID json.Number `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

func (h *Handlers) handleTelegramWebhook(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update telegramUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			respondError(w, errors.NewBadRequestError("parse request body", errors.KindDecodeJSON, nil))
			return
		}
		if update.CallbackQuery != nil {
			h.handleTelegramCallback(ctx, w, update)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *Handlers) handleTelegramCallback(ctx context.Context, w http.ResponseWriter, update telegramUpdate) {
	callback := update.CallbackQuery
	if callback.ID == "" || callback.Message == nil {
		respondError(w, errors.NewBadRequestError("missing callback data", errors.KindDecodeJSON, nil))
		return
	}
	chatID := callback.Message.Chat.ID.String()
	if chatID != h.config.TelegramChatID {
		logging.WebServerLogger.Warn("unauthorized callback", zap.String("chat_id", chatID))
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	adapter := h.notifier.Adapter()
	messageID := callback.Message.MessageID
	answer := func(text string) {
		if err := adapter.AnswerCallback(ctx, callback.ID, text); err != nil {
			errors.Log(logging.WebServerLogger, errors.Wrap(err, "answer callback",
				errors.Details{"callback_data": callback.Data}))
		}
	}
	edit := func(message notify.Message) {
		if err := adapter.EditMessage(ctx, chatID, messageID, message); err != nil {
			errors.Log(logging.WebServerLogger, errors.Wrap(err, "edit message",
				errors.Details{"callback_data": callback.Data}))
		}
	}
	switch {
	case callback.Data == notify.CallbackMenu || callback.Data == notify.CallbackRefresh:
		answer("")
		edit(notify.MainMenuMessage())
	case callback.Data == notify.CallbackStatus:
		answer("")
		edit(notify.SystemStatusMessage(h.history.SampleCount(), h.history.AlertCount(),
			h.config.RAMThreshold, h.config.CPUThreshold))
	case callback.Data == notify.CallbackDashboard:
		answer("")
		latest, ok := h.history.Latest()
		edit(notify.DashboardMessage(latest, ok, h.history.SampleCount()))
	case callback.Data == notify.CallbackAlerts:
		answer("")
		edit(notify.AlertsMessage(h.history.RecentAlerts(5)))
	case callback.Data == notify.CallbackStats:
		answer("")
		stats, ok := h.history.Stats()
		edit(notify.StatsMessage(stats, ok, h.history.SampleCount(), h.history.AlertCount()))
	case callback.Data == notify.CallbackDeviceMenu:
		answer("")
		edit(notify.DeviceMenuMessage(h.engine.SnapshotAll(), h.now()))
	case strings.HasPrefix(callback.Data, notify.CallbackDevicePrefix),
		strings.HasPrefix(callback.Data, notify.CallbackDeviceRefreshPrefix):
		deviceKey := strings.TrimPrefix(callback.Data, notify.CallbackDevicePrefix)
		deviceKey = strings.TrimPrefix(deviceKey, notify.CallbackDeviceRefreshPrefix)
		snapshot, err := h.engine.Snapshot(deviceKey)
		if err != nil {
			respondError(w, err)
			return
		}
		events, err := h.engine.RecentEvents(deviceKey, 1)
		if err != nil {
			respondError(w, err)
			return
		}
		answer("")
		edit(notify.DeviceDetailMessage(snapshot, events, h.now()))
	case callback.Data == notify.CallbackAllHistory:
		answer("")
		edit(notify.CombinedHistoryMessage(h.combinedHistory(10, 20)))
	case strings.HasPrefix(callback.Data, notify.CallbackMuteHourPrefix):
		deviceKey := strings.TrimPrefix(callback.Data, notify.CallbackMuteHourPrefix)
		snapshot, err := h.engine.Mute(deviceKey, time.Hour)
		if err != nil {
			respondError(w, err)
			return
		}
		h.hub.BroadcastDeviceUpdate(ctx, snapshot)
		answer("🔇 Notifications muted for 1 hour")
		edit(notify.MutedMessage(snapshot))
	case strings.HasPrefix(callback.Data, notify.CallbackHistoryPrefix):
		deviceKey := strings.TrimPrefix(callback.Data, notify.CallbackHistoryPrefix)
		snapshot, err := h.engine.Snapshot(deviceKey)
		if err != nil {
			respondError(w, err)
			return
		}
		events, err := h.engine.RecentEvents(deviceKey, 10)
		if err != nil {
			respondError(w, err)
			return
		}
		answer("")
		edit(notify.DeviceHistoryMessage(snapshot, events))
	case strings.HasPrefix(callback.Data, notify.CallbackBuildPrefix):
		answer("")
		edit(notify.BuildResponseMessage(strings.TrimPrefix(callback.Data, notify.CallbackBuildPrefix)))
	case callback.Data == notify.CallbackAlertAck:
		answer("✅ Alert acknowledged")
		if err := adapter.EditReplyMarkup(ctx, chatID, messageID, notify.AckedKeyboard()); err != nil {
			errors.Log(logging.WebServerLogger, errors.Wrap(err, "mark alert as read", nil))
		}
	default:
		answer("")
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// combinedHistory merges the journals of all devices into one most-recent-
// first list, taking up to perDevice events per device and limit overall.
func (h *Handlers) combinedHistory(perDevice int, limit int) []notify.DeviceEvent {
	var merged []notify.DeviceEvent
	for _, snapshot := range h.engine.SnapshotAll() {
		events, err := h.engine.RecentEvents(snapshot.Key, perDevice)
		if err != nil {
			continue
		}
		for _, event := range events {
			merged = append(merged, notify.DeviceEvent{
				DeviceName: snapshot.Identity.Name,
				DeviceIcon: snapshot.Identity.Icon,
				Event:      event,
			})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Event.OccurredAt.After(merged[j].Event.OccurredAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		errors.Log(logging.WebServerLogger, errors.NewInternalErrorFromErr(err, "encode response", nil))
	}
}

func respondError(w http.ResponseWriter, err error) {
	e, _ := errors.Cast(err)
	status := http.StatusInternalServerError
	switch e.Code {
	case errors.ErrNotFound:
		status = http.StatusNotFound
	case errors.ErrBadRequest:
		status = http.StatusBadRequest
	}
	if !errors.BlameUser(err) {
		errors.Log(logging.WebServerLogger, err)
		respondJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	respondJSON(w, status, map[string]string{"error": e.Message})
}
