package web_server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/susaninz/geosite-manager/metrics"
	"github.com/susaninz/geosite-manager/monitor"
	"github.com/susaninz/geosite-manager/notify"
	"github.com/susaninz/geosite-manager/ws"
)

const testSecret = "sesame"

// recordingAdapter captures chat platform calls for assertions.
type recordingAdapter struct {
	sent      []notify.Message
	edited    []notify.Message
	markups   [][][]notify.Button
	callbacks []string
}

func (a *recordingAdapter) SendMessage(_ context.Context, message notify.Message) error {
	a.sent = append(a.sent, message)
	return nil
}

func (a *recordingAdapter) EditMessage(_ context.Context, _ string, _ int64, message notify.Message) error {
	a.edited = append(a.edited, message)
	return nil
}

func (a *recordingAdapter) EditReplyMarkup(_ context.Context, _ string, _ int64, keyboard [][]notify.Button) error {
	a.markups = append(a.markups, keyboard)
	return nil
}

func (a *recordingAdapter) AnswerCallback(_ context.Context, callbackID string, _ string) error {
	a.callbacks = append(a.callbacks, callbackID)
	return nil
}

type handlersSuite struct {
	suite.Suite
	engine   *monitor.Engine
	history  *metrics.History
	adapter  *recordingAdapter
	handlers *Handlers
	router   http.Handler
	cancel   context.CancelFunc
	now      time.Time
}

func (suite *handlersSuite) SetupTest() {
	suite.engine = monitor.NewEngine(monitor.Config{}, []monitor.DeviceConfig{
		{Key: "kitchen", Name: "Kitchen station", Hostname: "yandex-kitchen", MAC: "aa:bb:cc:dd:ee:01", Icon: "🔊"},
	})
	suite.history = metrics.NewHistory(0, 0)
	suite.adapter = &recordingAdapter{}
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	go hub.Run(ctx)
	suite.handlers = NewHandlers(HandlersConfig{
		WebhookSecret:  testSecret,
		TelegramChatID: "4242",
		RAMThreshold:   80,
		CPUThreshold:   1.5,
	}, suite.engine, suite.history, notify.NewService(suite.adapter), hub)
	suite.now = time.Date(2025, 10, 2, 9, 30, 0, 0, time.UTC)
	suite.handlers.now = func() time.Time { return suite.now }
	server, err := NewWebServer(Config{
		ServeAddr:    DefaultServeAddr,
		WriteTimeout: DefaultWriteTimeout,
		ReadTimeout:  DefaultReadTimeout,
	})
	suite.Require().Nil(err)
	server.PopulateRoutes(suite.handlers, ctx)
	suite.router = server.router
}

func (suite *handlersSuite) TearDownTest() {
	suite.cancel()
}

func (suite *handlersSuite) request(method string, target string, payload interface{}, authorized bool) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		err := json.NewEncoder(&body).Encode(payload)
		suite.Require().Nil(err)
	}
	req := httptest.NewRequest(method, target, &body)
	if authorized {
		req.Header.Set("X-Webhook-Secret", testSecret)
	}
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	return rec
}

func (suite *handlersSuite) decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var decoded map[string]interface{}
	err := json.NewDecoder(rec.Body).Decode(&decoded)
	suite.Require().Nil(err)
	return decoded
}

func (suite *handlersSuite) TestHealth() {
	rec := suite.request(http.MethodGet, "/health", nil, false)
	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal("healthy", suite.decode(rec)["status"])
}

func (suite *handlersSuite) TestWebhookRequiresSecret() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event": "disconnect",
		"room":  "kitchen",
	}, false)
	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *handlersSuite) TestWebhookBearerToken() {
	var body bytes.Buffer
	err := json.NewEncoder(&body).Encode(map[string]string{"event": "connect", "room": "kitchen"})
	suite.Require().Nil(err)
	req := httptest.NewRequest(http.MethodPost, "/webhook/device-event", &body)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	suite.Equal(http.StatusOK, rec.Code)
}

func (suite *handlersSuite) TestDeviceEvent() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event":  "disconnect",
		"room":   "kitchen",
		"signal": "-61 dBm",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	decoded := suite.decode(rec)
	suite.Equal("processed", decoded["status"])
	suite.Equal("kitchen", decoded["device"])
	suite.Equal(string(monitor.ClassificationNoAction), decoded["classification"])
	snapshot, err := suite.engine.Snapshot("kitchen")
	suite.Require().Nil(err)
	suite.Equal(monitor.StatusDisconnected, snapshot.Status)
	suite.Equal(1, snapshot.Counters24h.Disconnects)
}

func (suite *handlersSuite) TestDeviceEventUnknownDevice() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event": "disconnect",
		"room":  "garage",
	}, true)
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Equal("unknown_device", suite.decode(rec)["status"])
}

func (suite *handlersSuite) TestDeviceEventBadTimestamp() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event":     "disconnect",
		"room":      "kitchen",
		"timestamp": "yesterday",
	}, true)
	suite.Equal(http.StatusBadRequest, rec.Code)
	snapshot, err := suite.engine.Snapshot("kitchen")
	suite.Require().Nil(err)
	suite.Equal(monitor.StatusUnknown, snapshot.Status)
}

func (suite *handlersSuite) TestDeviceEventTimestampProvided() {
	occurredAt := suite.now.Add(-10 * time.Minute)
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event":     "connect",
		"room":      "kitchen",
		"timestamp": occurredAt.Format(time.RFC3339),
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	events, err := suite.engine.RecentEvents("kitchen", 1)
	suite.Require().Nil(err)
	suite.Require().Len(events, 1)
	suite.True(events[0].OccurredAt.Equal(occurredAt))
}

func (suite *handlersSuite) TestDeviceEventAlertNotifies() {
	for i := 0; i < 3; i++ {
		suite.now = suite.now.Add(time.Minute)
		rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
			"event": "disconnect",
			"room":  "kitchen",
		}, true)
		suite.Require().Equal(http.StatusOK, rec.Code)
	}
	// The third disconnect within the hour crosses the threshold.
	suite.Require().Len(suite.adapter.sent, 1)
	suite.Contains(suite.adapter.sent[0].Text, "Kitchen station")
}

func (suite *handlersSuite) TestDeviceEventMutedSuppressesNotification() {
	_, err := suite.engine.Mute("kitchen", time.Hour)
	suite.Require().Nil(err)
	for i := 0; i < 3; i++ {
		suite.now = suite.now.Add(time.Minute)
		rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
			"event": "disconnect",
			"room":  "kitchen",
		}, true)
		suite.Require().Equal(http.StatusOK, rec.Code)
		suite.Equal(i == 2, suite.decode(rec)["suppressed"])
	}
	suite.Empty(suite.adapter.sent)
}

func (suite *handlersSuite) TestMonitoringAndLatestMetrics() {
	rec := suite.request(http.MethodGet, "/metrics/latest", nil, false)
	suite.Equal(http.StatusNotFound, rec.Code)
	rec = suite.request(http.MethodPost, "/webhook/monitoring", map[string]interface{}{
		"ram":       map[string]interface{}{"percent": 63.5},
		"cpu":       map[string]interface{}{"load1": 0.8},
		"clients":   12,
		"openclash": map[string]interface{}{"memory": 41.0},
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Equal(1, suite.history.SampleCount())
	rec = suite.request(http.MethodGet, "/metrics/latest", nil, false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	decoded := suite.decode(rec)
	suite.InDelta(63.5, decoded["ram_percent"], 0.001)
	suite.InDelta(12, decoded["clients"], 0.001)
}

func (suite *handlersSuite) TestAlertWebhook() {
	rec := suite.request(http.MethodPost, "/webhook/alert", map[string]interface{}{
		"type":      "ram",
		"value":     95.0,
		"threshold": 80.0,
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Equal(string(metrics.SeverityCritical), suite.decode(rec)["severity"])
	suite.Require().Len(suite.adapter.sent, 1)
	suite.Contains(suite.adapter.sent[0].Text, "RAM")
}

func (suite *handlersSuite) TestDevicesEndpoint() {
	rec := suite.request(http.MethodGet, "/devices", nil, false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var snapshots []monitor.Snapshot
	err := json.NewDecoder(rec.Body).Decode(&snapshots)
	suite.Require().Nil(err)
	suite.Require().Len(snapshots, 1)
	suite.Equal("kitchen", snapshots[0].Key)
}

func (suite *handlersSuite) TestDeviceEventsEndpoint() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event": "connect",
		"room":  "kitchen",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodGet, "/devices/kitchen/events?n=5", nil, false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var events []monitor.Event
	err := json.NewDecoder(rec.Body).Decode(&events)
	suite.Require().Nil(err)
	suite.Len(events, 1)
}

func (suite *handlersSuite) TestDeviceEventsUnknownDevice() {
	rec := suite.request(http.MethodGet, "/devices/garage/events", nil, false)
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *handlersSuite) TestMuteEndpoint() {
	rec := suite.request(http.MethodPost, "/devices/kitchen/mute", map[string]int{"minutes": 30}, false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	snapshot, err := suite.engine.Snapshot("kitchen")
	suite.Require().Nil(err)
	suite.Require().True(snapshot.MutedUntil.Valid)
	suite.True(snapshot.MutedUntil.Time.Equal(suite.now.Add(30 * time.Minute)))
}

func (suite *handlersSuite) TestMuteEndpointDefaultsToHour() {
	rec := suite.request(http.MethodPost, "/devices/kitchen/mute", nil, false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	snapshot, err := suite.engine.Snapshot("kitchen")
	suite.Require().Nil(err)
	suite.Require().True(snapshot.MutedUntil.Valid)
	suite.True(snapshot.MutedUntil.Time.Equal(suite.now.Add(time.Hour)))
}

func (suite *handlersSuite) TestMuteEndpointRejectsNegative() {
	rec := suite.request(http.MethodPost, "/devices/kitchen/mute", map[string]int{"minutes": -5}, false)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func telegramCallback(chatID string, data string) map[string]interface{} {
	return map[string]interface{}{
		"callback_query": map[string]interface{}{
			"id":   "cb-1",
			"data": data,
			"message": map[string]interface{}{
				"message_id": 77,
				"chat":       map[string]interface{}{"id": json.Number(chatID)},
			},
		},
	}
}

func (suite *handlersSuite) TestTelegramMuteCallback() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackMuteHourPrefix+"kitchen"), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	snapshot, err := suite.engine.Snapshot("kitchen")
	suite.Require().Nil(err)
	suite.True(snapshot.MutedUntil.Valid)
	suite.Require().Len(suite.adapter.callbacks, 1)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Kitchen station")
}

func (suite *handlersSuite) TestTelegramHistoryCallback() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event":  "connect",
		"room":   "kitchen",
		"signal": "-55 dBm",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackHistoryPrefix+"kitchen"), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "History")
	suite.Contains(suite.adapter.edited[0].Text, "-55 dBm")
}

func (suite *handlersSuite) TestTelegramAckCallback() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackAlertAck), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Len(suite.adapter.callbacks, 1)
	suite.Empty(suite.adapter.edited)
	// Acknowledging swaps the alert keyboard for a read marker.
	suite.Require().Len(suite.adapter.markups, 1)
	suite.Require().Len(suite.adapter.markups[0], 1)
	suite.Require().Len(suite.adapter.markups[0][0], 1)
	suite.Equal("✅ Read", suite.adapter.markups[0][0][0].Text)
}

func (suite *handlersSuite) TestTelegramMenuCallback() {
	for _, data := range []string{notify.CallbackMenu, notify.CallbackRefresh} {
		suite.adapter.edited = nil
		rec := suite.request(http.MethodPost, "/telegram/webhook",
			telegramCallback("4242", data), false)
		suite.Require().Equal(http.StatusOK, rec.Code)
		suite.Require().Len(suite.adapter.edited, 1)
		suite.Contains(suite.adapter.edited[0].Text, "Geosite Manager")
		suite.NotEmpty(suite.adapter.edited[0].Keyboard)
	}
}

func (suite *handlersSuite) TestTelegramStatusCallback() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackStatus), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "System status")
	suite.Contains(suite.adapter.edited[0].Text, "RAM limit: 80%")
}

func (suite *handlersSuite) TestTelegramDashboardCallbackWithoutData() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackDashboard), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "No metrics collected yet")
}

func (suite *handlersSuite) TestTelegramDashboardCallback() {
	rec := suite.request(http.MethodPost, "/webhook/monitoring", map[string]interface{}{
		"ram":       map[string]interface{}{"percent": 63.5},
		"cpu":       map[string]interface{}{"load1": 0.8},
		"clients":   12,
		"openclash": map[string]interface{}{"memory": 41.0},
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackDashboard), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Router Dashboard")
	suite.Contains(suite.adapter.edited[0].Text, "63.5%")
	suite.Contains(suite.adapter.edited[0].Text, "12 clients")
}

func (suite *handlersSuite) TestTelegramStatsCallback() {
	for _, ram := range []float64{60, 80} {
		rec := suite.request(http.MethodPost, "/webhook/monitoring", map[string]interface{}{
			"ram": map[string]interface{}{"percent": ram},
			"cpu": map[string]interface{}{"load1": 1.0},
		}, true)
		suite.Require().Equal(http.StatusOK, rec.Code)
	}
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackStats), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "24h statistics")
	suite.Contains(suite.adapter.edited[0].Text, "Average: 70.0%")
	suite.Contains(suite.adapter.edited[0].Text, "Maximum: 80.0%")
	suite.Contains(suite.adapter.edited[0].Text, "Samples: 2")
}

func (suite *handlersSuite) TestTelegramStatsCallbackWithoutData() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackStats), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Not enough data")
}

func (suite *handlersSuite) TestTelegramAlertsCallback() {
	rec := suite.request(http.MethodPost, "/webhook/alert", map[string]interface{}{
		"type":      "ram",
		"value":     95.0,
		"threshold": 80.0,
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.adapter.sent = nil
	rec = suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackAlerts), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Recent alerts")
	suite.Contains(suite.adapter.edited[0].Text, "RAM")
}

func (suite *handlersSuite) TestTelegramDeviceMenuCallback() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event": "connect",
		"room":  "kitchen",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackDeviceMenu), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Online: 1")
	suite.Require().NotEmpty(suite.adapter.edited[0].Keyboard)
	suite.Equal(notify.CallbackDevicePrefix+"kitchen", suite.adapter.edited[0].Keyboard[0][0].CallbackData)
}

func (suite *handlersSuite) TestTelegramDeviceDetailCallback() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event":  "connect",
		"room":   "kitchen",
		"signal": "-55 dBm",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackDevicePrefix+"kitchen"), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Kitchen station")
	suite.Contains(suite.adapter.edited[0].Text, "✅ Connected")
	suite.Contains(suite.adapter.edited[0].Text, "-55 dBm")
}

func (suite *handlersSuite) TestTelegramDeviceDetailUnknownDevice() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackDevicePrefix+"garage"), false)
	suite.Equal(http.StatusNotFound, rec.Code)
	suite.Empty(suite.adapter.edited)
}

func (suite *handlersSuite) TestTelegramAllHistoryCallback() {
	rec := suite.request(http.MethodPost, "/webhook/device-event", map[string]string{
		"event": "disconnect",
		"room":  "kitchen",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("4242", notify.CallbackAllHistory), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.edited, 1)
	suite.Contains(suite.adapter.edited[0].Text, "Device history")
	suite.Contains(suite.adapter.edited[0].Text, "Kitchen station")
}

func (suite *handlersSuite) TestTelegramBuildCallbacks() {
	cases := map[string]string{
		notify.CallbackBuildPrefix + "later":            "remind you later",
		notify.CallbackBuildPrefix + "skip":             "Update skipped",
		notify.CallbackBuildPrefix + "0123456789abcdef": "01234567",
	}
	for data, want := range cases {
		suite.adapter.edited = nil
		rec := suite.request(http.MethodPost, "/telegram/webhook",
			telegramCallback("4242", data), false)
		suite.Require().Equal(http.StatusOK, rec.Code)
		suite.Require().Len(suite.adapter.edited, 1)
		suite.Contains(suite.adapter.edited[0].Text, want)
	}
}

func (suite *handlersSuite) TestNotificationsEndpoint() {
	rec := suite.request(http.MethodPost, "/webhook/alert", map[string]interface{}{
		"type":      "cpu",
		"value":     4.0,
		"threshold": 3.0,
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	rec = suite.request(http.MethodGet, "/notifications?n=5", nil, false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var records []notify.Record
	err := json.NewDecoder(rec.Body).Decode(&records)
	suite.Require().Nil(err)
	suite.Require().Len(records, 1)
	suite.True(records[0].Delivered)
	suite.Contains(records[0].Text, "CPU")
}

func (suite *handlersSuite) TestNotificationsEndpointRejectsBadCount() {
	rec := suite.request(http.MethodGet, "/notifications?n=zero", nil, false)
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *handlersSuite) TestTelegramForeignChatIgnored() {
	rec := suite.request(http.MethodPost, "/telegram/webhook",
		telegramCallback("666", notify.CallbackMuteHourPrefix+"kitchen"), false)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Equal("ignored", suite.decode(rec)["status"])
	snapshot, err := suite.engine.Snapshot("kitchen")
	suite.Require().Nil(err)
	suite.False(snapshot.MutedUntil.Valid)
	suite.Empty(suite.adapter.callbacks)
}

func (suite *handlersSuite) TestGeositeUpdateWebhook() {
	rec := suite.request(http.MethodPost, "/webhook/geosite-update", map[string]string{
		"commit":     "0123456789abcdef",
		"old_commit": "fedcba9876543210",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.sent, 1)
	suite.Contains(suite.adapter.sent[0].Text, "01234567")
}

func (suite *handlersSuite) TestBuildCompleteWebhook() {
	rec := suite.request(http.MethodPost, "/webhook/build-complete", map[string]string{
		"status":  "success",
		"version": "20251002",
		"commit":  "0123456789abcdef",
		"size":    "1.2 MB",
		"url":     "https://example.com/geosite.dat",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.sent, 1)
	suite.Contains(suite.adapter.sent[0].Text, "20251002")
}

func (suite *handlersSuite) TestRouterEventWebhook() {
	rec := suite.request(http.MethodPost, "/webhook/router-event", map[string]string{
		"event":   "geosite_update",
		"status":  "success",
		"version": "20251002",
		"router":  "keenetic",
	}, true)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Require().Len(suite.adapter.sent, 1)
	suite.Contains(suite.adapter.sent[0].Text, "keenetic")
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(handlersSuite))
}
