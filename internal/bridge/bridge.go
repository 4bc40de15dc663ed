package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/skylight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/skylight-core/internal/skylight"
)

// Bridge operation constants.
const (
	// commandTimeout bounds one lamp command triggered over MQTT.
	commandTimeout = 15 * time.Second

	// availabilityInterval is how often cached snapshots are checked
	// for staleness transitions.
	availabilityInterval = 5 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Bridge connects the lamp engine to an MQTT broker. It publishes a
// retained state document per lamp on every cache refresh, tracks
// availability from cache staleness, and accepts a small command
// vocabulary on per-lamp command topics, acknowledging each command.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt    MQTTClient
	resolve Resolver
	sources []StatusSource
	qos     byte
	logger  Logger

	// lastAvailability tracks the last published online/offline state
	// per lamp so transitions publish exactly once.
	availMu          sync.Mutex
	lastAvailability map[string]bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// MQTTClient is the broker surface the bridge needs. Satisfied by the
// infrastructure mqtt.Client; narrowed for mocking in tests.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Controller is the per-lamp command surface the bridge drives.
// Satisfied by *skylight.Session.
type Controller interface {
	SetChannel(ctx context.Context, channel int, value float64) (skylight.CommandResult, error)
	SetAllChannels(ctx context.Context, values [4]float64, colorCode int, intensity float64) (skylight.CommandResult, error)
	SetMode(ctx context.Context, mode string) (skylight.CommandResult, error)
	SetNightMode(ctx context.Context, enabled bool) (skylight.CommandResult, error)
	ApplyPreset(ctx context.Context, preset string, power int) (skylight.CommandResult, error)
}

// Resolver looks up the controller for a lamp id.
// ErrUnknownLamp is reported back on the ack topic.
type Resolver func(id string) (Controller, error)

// StatusSource exposes a lamp's cached snapshot for availability
// tracking. Satisfied by *skylight.Session.
type StatusSource interface {
	Endpoint() skylight.Endpoint
	Current() (skylight.Snapshot, bool)
}

// Logger is the minimal logging surface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// New creates a bridge over the given broker client.
//
// Parameters:
//   - client: Connected MQTT client
//   - resolve: Lamp id to controller lookup
//   - sources: Sessions to track for availability
//   - qos: QoS level for all bridge publishes
//   - logger: Optional logger (nil for silent operation)
func New(client MQTTClient, resolve Resolver, sources []StatusSource, qos byte, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		mqtt:             client,
		resolve:          resolve,
		sources:          sources,
		qos:              qos,
		logger:           logger,
		lastAvailability: make(map[string]bool),
		done:             make(chan struct{}),
	}
}

// Start subscribes to the command topics and launches the
// availability watcher.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.AllLampCommands()
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("bridge: subscribing to %s: %w", topic, err)
	}

	b.wg.Add(1)
	go b.watchAvailability()

	b.logger.Info("mqtt bridge started", "command_topic", topic)
	return nil
}

// Stop halts the availability watcher. Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}

// HandleUpdate publishes a lamp's refreshed snapshot as a retained
// state message. Wire it as a session OnUpdate callback.
func (b *Bridge) HandleUpdate(endpoint skylight.Endpoint, snap skylight.Snapshot) {
	payload, err := json.Marshal(stateMessage{
		LampID:    endpoint.ID,
		Name:      endpoint.Name,
		Seq:       snap.Seq,
		UpdatedAt: snap.UpdatedAt,
		Status:    snap.Status,
	})
	if err != nil {
		b.logger.Error("marshalling state message", "lamp_id", endpoint.ID, "error", err)
		return
	}

	topic := mqtt.Topics{}.LampState(endpoint.ID)
	if err := b.mqtt.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("publishing lamp state", "lamp_id", endpoint.ID, "error", err)
		return
	}

	// A fresh snapshot always means online.
	b.publishAvailability(endpoint.ID, true)
}

// stateMessage is the retained per-lamp state document.
type stateMessage struct {
	LampID    string                `json:"lamp_id"`
	Name      string                `json:"name,omitempty"`
	Seq       uint64                `json:"seq"`
	UpdatedAt time.Time             `json:"updated_at"`
	Status    skylight.DeviceStatus `json:"status"`
}

// commandMessage is the inbound command vocabulary.
type commandMessage struct {
	Op        string      `json:"op"`
	Channel   *int        `json:"channel,omitempty"`
	Value     *float64    `json:"value,omitempty"`
	Values    *[4]float64 `json:"values,omitempty"`
	ColorCode int         `json:"color_code,omitempty"`
	Intensity *float64    `json:"intensity,omitempty"`
	Mode      string      `json:"mode,omitempty"`
	Enabled   *bool       `json:"enabled,omitempty"`
	Preset    string      `json:"preset,omitempty"`
	Power     *int        `json:"power,omitempty"`
}

// ackMessage reports the outcome of one MQTT-triggered command.
type ackMessage struct {
	CommandID string `json:"command_id,omitempty"`
	Op        string `json:"op"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// handleCommand processes one message from a per-lamp command topic.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	lampID := lampIDFromTopic(topic)
	if lampID == "" {
		b.logger.Warn("command on unparseable topic", "topic", topic)
		return nil
	}

	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.publishAck(lampID, ackMessage{Op: "unknown", Error: "invalid JSON: " + err.Error()})
		return nil
	}

	controller, err := b.resolve(lampID)
	if err != nil {
		b.publishAck(lampID, ackMessage{Op: msg.Op, Error: err.Error()})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := b.dispatch(ctx, controller, msg)
	if err != nil {
		b.logger.Warn("mqtt command failed", "lamp_id", lampID, "op", msg.Op, "error", err)
		b.publishAck(lampID, ackMessage{Op: msg.Op, Error: err.Error()})
		return nil
	}

	b.publishAck(lampID, ackMessage{CommandID: result.ID, Op: msg.Op, Success: true})
	return nil
}

func (b *Bridge) dispatch(ctx context.Context, controller Controller, msg commandMessage) (skylight.CommandResult, error) {
	switch msg.Op {
	case "set_channel":
		if msg.Channel == nil || msg.Value == nil {
			return skylight.CommandResult{}, fmt.Errorf("%w: set_channel needs channel and value", skylight.ErrValidation)
		}
		return controller.SetChannel(ctx, *msg.Channel, *msg.Value)
	case "set_all_channels":
		if msg.Values == nil {
			return skylight.CommandResult{}, fmt.Errorf("%w: set_all_channels needs values", skylight.ErrValidation)
		}
		intensity := 100.0
		if msg.Intensity != nil {
			intensity = *msg.Intensity
		}
		return controller.SetAllChannels(ctx, *msg.Values, msg.ColorCode, intensity)
	case "set_mode":
		return controller.SetMode(ctx, msg.Mode)
	case "set_night_mode":
		if msg.Enabled == nil {
			return skylight.CommandResult{}, fmt.Errorf("%w: set_night_mode needs enabled", skylight.ErrValidation)
		}
		return controller.SetNightMode(ctx, *msg.Enabled)
	case "apply_preset":
		power := -1
		if msg.Power != nil {
			power = *msg.Power
		}
		return controller.ApplyPreset(ctx, msg.Preset, power)
	default:
		return skylight.CommandResult{}, fmt.Errorf("%w: unsupported op %q", skylight.ErrValidation, msg.Op)
	}
}

func (b *Bridge) publishAck(lampID string, ack ackMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.LampAck(lampID), payload, b.qos, false); err != nil {
		b.logger.Warn("publishing ack", "lamp_id", lampID, "error", err)
	}
}

// watchAvailability publishes online/offline transitions as cached
// snapshots cross the staleness threshold.
func (b *Bridge) watchAvailability() {
	defer b.wg.Done()

	ticker := time.NewTicker(availabilityInterval)
	defer ticker.Stop()

	b.checkAvailability()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.checkAvailability()
		}
	}
}

func (b *Bridge) checkAvailability() {
	for _, source := range b.sources {
		_, fresh := source.Current()
		b.publishAvailability(source.Endpoint().ID, fresh)
	}
}

// publishAvailability publishes a retained availability flag when the
// state differs from the last published one.
func (b *Bridge) publishAvailability(lampID string, online bool) {
	b.availMu.Lock()
	last, seen := b.lastAvailability[lampID]
	if seen && last == online {
		b.availMu.Unlock()
		return
	}
	b.lastAvailability[lampID] = online
	b.availMu.Unlock()

	payload := payloadOffline
	if online {
		payload = payloadOnline
	}
	topic := mqtt.Topics{}.LampAvailability(lampID)
	if err := b.mqtt.Publish(topic, []byte(payload), b.qos, true); err != nil {
		b.logger.Warn("publishing availability", "lamp_id", lampID, "error", err)

		// Forget the state so the next check retries the publish.
		b.availMu.Lock()
		delete(b.lastAvailability, lampID)
		b.availMu.Unlock()
	}
}

// lampIDFromTopic extracts the lamp id from skylight/command/{id}.
func lampIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != mqtt.TopicPrefix || parts[1] != "command" {
		return ""
	}
	return parts[2]
}
