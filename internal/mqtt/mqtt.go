package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"tncparking/internal/config"
	"tncparking/internal/session"
)

const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
)

type CommandMetrics interface {
	MQTTCommandInc(result string)
}

// Subscriber receives dashboard control commands from the configured topic.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	metrics   CommandMetrics
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	handler   func(cmd session.Command) error
}

// CommandSubscriber is what feature modules need to attach their handler.
type CommandSubscriber interface {
	SetCommandHandler(handler func(cmd session.Command) error)
}

// SetCommandHandler must be called before Connect so retained and queued
// messages delivered right after CONNACK are not dropped.
func (s *Subscriber) SetCommandHandler(handler func(cmd session.Command) error) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger, metrics CommandMetrics) (*Subscriber, error) {
	if cfg.MQTTBroker == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		stopCh:  make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		// Resubscribe after automatic reconnects; clean sessions drop subscriptions.
		go func() {
			if err := s.subscribe(); err != nil {
				logger.Error("mqtt subscribe failed", "topic", cfg.MQTTTopic, "error", err)
			}
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Connect waits for the broker connection; the subscription itself is made
// from the connect handler.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}
}

func (s *Subscriber) subscribe() error {
	topic := s.cfg.MQTTTopic
	qos := byte(1)

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) string {
	result := s.dispatch(topic, payload)
	if s.metrics != nil {
		s.metrics.MQTTCommandInc(result)
	}
	return result
}

func (s *Subscriber) dispatch(topic string, payload []byte) string {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var cmd session.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		s.logger.Warn("failed to parse command message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return ResultInvalid
	}
	if err := validateCommand(cmd); err != nil {
		s.logger.Warn("invalid command message",
			"topic", topic,
			"session_id", cmd.SessionID,
			"op", cmd.Op,
			"error", err,
		)
		return ResultInvalid
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		s.logger.Warn("no command handler registered", "topic", topic)
		return ResultRejected
	}

	if err := handler(cmd); err != nil {
		s.logger.Error("command handler failed",
			"topic", topic,
			"session_id", cmd.SessionID,
			"op", cmd.Op,
			"error", err,
		)
		return ResultRejected
	}
	s.logger.Debug("applied command", "session_id", cmd.SessionID, "op", cmd.Op)
	return ResultApplied
}

func validateCommand(cmd session.Command) error {
	if cmd.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return cmd.Validate()
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the connection. Safe to call
// more than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
