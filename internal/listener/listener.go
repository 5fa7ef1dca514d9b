// Package listener implements the MQTT side of the agent. It subscribes to the
// brightness topic, converts incoming percentages through the monitor profile,
// applies them to the displays, and persists the last applied level. Reconnects
// are automatic with bounded backoff; a periodic resync re-requests the current
// value to recover updates missed while offline.
package listener

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/monitormqtt/agent/internal/config"
	"github.com/monitormqtt/agent/internal/monitor"
	"github.com/monitormqtt/agent/internal/state"
)

const (
	// connectRetryInterval is the initial delay between connection attempts;
	// paho doubles it up to maxReconnectInterval.
	connectRetryInterval = 1 * time.Second

	// maxReconnectInterval caps the reconnect backoff.
	maxReconnectInterval = 60 * time.Second

	// disconnectDrain is how long Disconnect waits for in-flight work.
	disconnectDrain = 250 * time.Millisecond
)

// Applier applies a percentage level to the attached displays.
// *monitor.Controller is the production implementation.
type Applier interface {
	Apply(ctx context.Context, profile monitor.Profile, pct int) error
}

// Listener is the long-running MQTT client.
type Listener struct {
	logger  *zap.Logger
	applier Applier
	store   *state.Store

	broker   string
	clientID string
	username string
	password string

	// Reloadable settings, guarded by mu. Broker and topic changes require
	// a restart and are not covered here.
	mu              sync.RWMutex
	brightnessTopic string
	refreshTopic    string
	profile         monitor.Profile
	applyTimeout    time.Duration
	resyncInterval  time.Duration

	// reloaded wakes the resync loop after a config update.
	reloaded chan struct{}

	client mqtt.Client
}

// New creates a Listener from the configuration.
func New(cfg *config.Config, logger *zap.Logger, applier Applier, store *state.Store) *Listener {
	return &Listener{
		logger:          logger,
		applier:         applier,
		store:           store,
		broker:          cfg.Broker.URL,
		clientID:        cfg.Broker.ClientID,
		username:        cfg.Broker.Username,
		password:        cfg.Broker.Password,
		brightnessTopic: cfg.Topics.Brightness,
		refreshTopic:    cfg.Topics.Refresh,
		profile:         profileFromConfig(cfg),
		applyTimeout:    cfg.Listener.ApplyTimeout.Duration,
		resyncInterval:  cfg.Listener.ResyncInterval.Duration,
		reloaded:        make(chan struct{}, 1),
	}
}

// profileFromConfig maps the config ranges onto a monitor profile.
func profileFromConfig(cfg *config.Config) monitor.Profile {
	return monitor.Profile{
		Brightness: monitor.ValueRange{
			Min:    cfg.Monitor.Brightness.Min,
			Max:    cfg.Monitor.Brightness.Max,
			Offset: cfg.Monitor.Brightness.Offset,
		},
		Contrast: monitor.ValueRange{
			Min:    cfg.Monitor.Contrast.Min,
			Max:    cfg.Monitor.Contrast.Max,
			Offset: cfg.Monitor.Contrast.Offset,
		},
	}
}

// Start connects to the broker and blocks until the context is cancelled.
// Before connecting it restores the last persisted level so displays come up
// at the remembered setting even while the broker is unreachable.
func (l *Listener) Start(ctx context.Context) error {
	l.restoreLastLevel()

	opts := mqtt.NewClientOptions().
		AddBroker(l.broker).
		SetClientID(l.clientID).
		SetUsername(l.username).
		SetPassword(l.password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetOnConnectHandler(l.onConnect).
		SetConnectionLostHandler(l.onConnectionLost)

	l.client = mqtt.NewClient(opts)
	l.logger.Info("Connecting to MQTT broker", zap.String("broker", l.broker))

	// With connect-retry enabled the token resolves only on success; wait for
	// it in the background so cancellation still works during the first dial.
	token := l.client.Connect()
	connected := make(chan struct{})
	go func() {
		token.Wait()
		close(connected)
	}()

	select {
	case <-ctx.Done():
		l.client.Disconnect(uint(disconnectDrain.Milliseconds()))
		return nil
	case <-connected:
		if err := token.Error(); err != nil {
			return fmt.Errorf("connecting to %s: %w", l.broker, err)
		}
	}

	l.runResyncLoop(ctx)

	l.logger.Info("Shutting down, disconnecting from broker")
	l.client.Disconnect(uint(disconnectDrain.Milliseconds()))
	return nil
}

// runResyncLoop periodically re-publishes the refresh request. The timer is
// rebuilt after config reloads so interval changes take effect immediately.
func (l *Listener) runResyncLoop(ctx context.Context) {
	for {
		interval := l.currentResyncInterval()

		var tick <-chan time.Time
		var timer *time.Timer
		if interval > 0 {
			timer = time.NewTimer(interval)
			tick = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-tick:
			l.requestRefresh()
		case <-l.reloaded:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}

// onConnect subscribes and immediately asks for the current value, which
// matters right after boot or wake when the retained state may have moved on.
func (l *Listener) onConnect(c mqtt.Client) {
	topic := l.currentBrightnessTopic()

	token := c.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		l.handleMessage(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		l.logger.Error("Subscribe failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	l.logger.Info("Connected and subscribed", zap.String("topic", topic))

	l.requestRefresh()
}

// onConnectionLost logs the drop; paho handles the reconnect.
func (l *Listener) onConnectionLost(_ mqtt.Client, err error) {
	l.logger.Warn("Connection lost, reconnecting", zap.Error(err))
}

// handleMessage parses and routes one incoming message. Invalid payloads are
// logged and dropped. A brightness message drives both controls, matching how
// the paired light entity behaves.
func (l *Listener) handleMessage(topic string, payload []byte) {
	pct, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		l.logger.Warn("Invalid payload",
			zap.String("topic", topic),
			zap.ByteString("payload", payload))
		return
	}

	if topic != l.currentBrightnessTopic() {
		l.logger.Debug("Ignored topic", zap.String("topic", topic))
		return
	}

	l.applyLevel(pct)
}

// applyLevel maps the percentage through the profile and writes it to the
// displays, then persists it as the last known level.
func (l *Listener) applyLevel(pct int) {
	l.mu.RLock()
	profile := l.profile
	timeout := l.applyTimeout
	l.mu.RUnlock()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := l.applier.Apply(ctx, profile, pct); err != nil {
		l.logger.Error("Failed to apply level", zap.Int("percent", pct), zap.Error(err))
		return
	}

	if l.store != nil {
		if err := l.store.Save(pct); err != nil {
			l.logger.Warn("Failed to persist level", zap.Error(err))
		}
	}
}

// restoreLastLevel re-applies the persisted level from the previous run.
func (l *Listener) restoreLastLevel() {
	if l.store == nil {
		return
	}
	pct, ok := l.store.Last()
	if !ok {
		return
	}
	l.logger.Info("Restoring last applied level", zap.Int("percent", pct))
	l.applyLevel(pct)
}

// requestRefresh publishes an empty message on the refresh topic, asking the
// producer to re-send the current value.
func (l *Listener) requestRefresh() {
	if l.client == nil || !l.client.IsConnected() {
		return
	}
	topic := l.currentRefreshTopic()
	if topic == "" {
		return
	}
	l.client.Publish(topic, 0, false, []byte{})
	l.logger.Debug("Refresh request sent", zap.String("topic", topic))
}

// UpdateConfig applies a reloaded configuration. Only the value ranges,
// timeouts, and resync interval are live-reloadable; broker and topic changes
// are logged and require a restart.
func (l *Listener) UpdateConfig(cfg *config.Config) {
	if cfg.Broker.URL != l.broker ||
		cfg.Topics.Brightness != l.currentBrightnessTopic() {
		l.logger.Warn("Broker or topic changed in config; restart required to apply")
	}

	l.mu.Lock()
	l.profile = profileFromConfig(cfg)
	l.applyTimeout = cfg.Listener.ApplyTimeout.Duration
	l.resyncInterval = cfg.Listener.ResyncInterval.Duration
	l.refreshTopic = cfg.Topics.Refresh
	l.mu.Unlock()

	select {
	case l.reloaded <- struct{}{}:
	default:
	}
	l.logger.Info("Listener settings updated")
}

func (l *Listener) currentBrightnessTopic() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.brightnessTopic
}

func (l *Listener) currentRefreshTopic() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.refreshTopic
}

func (l *Listener) currentResyncInterval() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resyncInterval
}
