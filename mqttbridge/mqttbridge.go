// Package mqttbridge ingests device connectivity events from an MQTT broker
// as an alternative to the HTTP webhook. Routers that cannot POST webhooks
// publish the same JSON payload to <base-topic>/event/<device-key> instead.
package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
	"github.com/susaninz/geosite-manager/monitor"
	"github.com/susaninz/geosite-manager/notify"
	"github.com/susaninz/geosite-manager/ws"
)

const mqttClientID = "geosite-manager"
const mqttKeepAlive = 8

// DefaultBaseTopic is the base topic events are expected under.
const DefaultBaseTopic = "susaninz/geosite-manager"

// Config is the config for the Bridge.
type Config struct {
	// MQTTAddr is the address where the MQTT-server is found.
	MQTTAddr string
	// BaseTopic is the base topic to subscribe under. Defaults to
	// DefaultBaseTopic.
	BaseTopic string
}

// Bridge subscribes to device event topics and feeds them into the monitor
// engine the same way the HTTP webhook does.
type Bridge struct {
	config   Config
	engine   *monitor.Engine
	notifier *notify.Service
	hub      *ws.Hub
	// now is the clock for events without a timestamp. Overridable in tests.
	now func() time.Time
}

// NewBridge creates a Bridge. Run it with Bridge.Run.
func NewBridge(config Config, engine *monitor.Engine, notifier *notify.Service, hub *ws.Hub) *Bridge {
	if config.BaseTopic == "" {
		config.BaseTopic = DefaultBaseTopic
	}
	return &Bridge{
		config:   config,
		engine:   engine,
		notifier: notifier,
		hub:      hub,
		now:      time.Now,
	}
}

// eventTopic returns the subscription filter for device events.
func (b *Bridge) eventTopic() string {
	return b.config.BaseTopic + "/event/+"
}

// Run connects to the MQTT server and keeps the connection until the given
// context.Context is done.
func (b *Bridge) Run(ctx context.Context) error {
	brokerURL, err := url.Parse(b.config.MQTTAddr)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "invalid mqtt addr", errors.Details{"was": b.config.MQTTAddr})
	}
	router := paho.NewStandardRouter()
	router.RegisterHandler(b.eventTopic(), func(publish *paho.Publish) {
		b.handleMessage(ctx, publish)
	})
	conn, err := autopaho.NewConnection(ctx, b.genClientConfig(ctx, brokerURL, router))
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "create mqtt server connection failed", nil)
	}
	// Wait until we are done.
	<-ctx.Done()
	// Shutdown MQTT connection.
	disconnectTimeout, cancelDisconnectTimeout := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelDisconnectTimeout()
	if err := conn.Disconnect(disconnectTimeout); err != nil {
		return errors.NewInternalErrorFromErr(err, "disconnect from mqtt server failed", nil)
	}
	return nil
}

// genClientConfig generates the autopaho.ClientConfig that is ready to launch
// and will use the given paho.Router.
func (b *Bridge) genClientConfig(ctx context.Context, brokerURL *url.URL, router paho.Router) autopaho.ClientConfig {
	return autopaho.ClientConfig{
		BrokerUrls: []*url.URL{brokerURL},
		KeepAlive:  mqttKeepAlive,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			logging.MQTTLogger.Info("mqtt server connection established")
			_, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: map[string]paho.SubscribeOptions{
					b.eventTopic(): {QoS: 0},
				},
			})
			if err != nil {
				errors.Log(logging.MQTTLogger, errors.NewCommunicationError(err, "subscribe to event topic",
					errors.Details{"topic": b.eventTopic()}))
			}
		},
		OnConnectError: func(err error) {
			errors.Log(logging.MQTTLogger, errors.Error{
				Code:    errors.ErrCommunication,
				Err:     err,
				Message: "mqtt server connection failed",
			})
		},
		ClientConfig: paho.ClientConfig{
			ClientID: mqttClientID,
			Router:   router,
			OnServerDisconnect: func(disconnect *paho.Disconnect) {
				reason := string(disconnect.ReasonCode)
				if disconnect.Properties != nil {
					reason = disconnect.Properties.ReasonString
				}
				errors.Log(logging.MQTTLogger, errors.Error{
					Code:    errors.ErrCommunication,
					Message: fmt.Sprintf("mqtt server requested disconnect: %s", reason),
				})
			},
			OnClientError: func(err error) {
				errors.Log(logging.MQTTLogger, errors.Error{
					Code:    errors.ErrCommunication,
					Err:     err,
					Message: "mqtt server connection client error",
				})
			},
		},
	}
}

// eventPayload is the published device event. It matches the webhook payload
// so routers can switch transports without reformatting.
type eventPayload struct {
	Event     string `json:"event"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
	Signal    string `json:"signal"`
	Uptime    string `json:"uptime"`
	Reason    string `json:"reason"`
}

func (b *Bridge) handleMessage(ctx context.Context, publish *paho.Publish) {
	deviceKey := strings.TrimPrefix(publish.Topic, b.config.BaseTopic+"/event/")
	if deviceKey == "" || deviceKey == publish.Topic || strings.Contains(deviceKey, "/") {
		errors.Log(logging.MQTTLogger, errors.NewBadRequestError("malformed event topic", errors.KindInvalidEvent,
			errors.Details{"topic": publish.Topic}))
		return
	}
	var payload eventPayload
	if err := json.Unmarshal(publish.Payload, &payload); err != nil {
		errors.Log(logging.MQTTLogger, errors.NewBadRequestError("parse event payload", errors.KindDecodeJSON,
			errors.Details{"topic": publish.Topic, "payload": string(publish.Payload)}))
		return
	}
	occurredAt := b.now()
	if payload.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, payload.Timestamp)
		if err != nil {
			errors.Log(logging.MQTTLogger, errors.NewBadRequestError("parse event timestamp", errors.KindInvalidEvent,
				errors.Details{"topic": publish.Topic, "was": payload.Timestamp}))
			return
		}
		occurredAt = parsed
	}
	out, err := b.engine.Ingest(deviceKey, monitor.Event{
		OccurredAt:     occurredAt,
		Kind:           monitor.ParseEventKind(payload.Event),
		Signal:         payload.Signal,
		UptimeReport:   payload.Uptime,
		Reason:         payload.Reason,
		NetworkAddress: payload.IP,
	})
	if err != nil {
		errors.Log(logging.MQTTLogger, errors.Wrap(err, "ingest mqtt event",
			errors.Details{"device_key": deviceKey}))
		return
	}
	b.hub.BroadcastDeviceUpdate(ctx, out.Device)
	if message, ok := notify.OutcomeMessage(out); ok && !out.Suppressed {
		b.notifier.Notify(ctx, message)
	}
}
