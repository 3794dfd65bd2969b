package companion

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rook-computer/watchface/internal/config"
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// ClientFactory builds the MQTT client; tests substitute a mock.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

func DefaultClientFactory(opts *mqtt.ClientOptions) mqtt.Client {
	return mqtt.NewClient(opts)
}

// MQTTChannel subscribes to one data item path on an MQTT broker. It makes a
// single connection attempt and does not reconnect.
type MQTTChannel struct {
	Config        config.SyncConfig
	Logger        Logger
	ClientFactory ClientFactory

	mu     sync.Mutex
	client mqtt.Client
}

func NewMQTTChannel(cfg config.SyncConfig, logger Logger) *MQTTChannel {
	return &MQTTChannel{Config: cfg, Logger: logger, ClientFactory: DefaultClientFactory}
}

func (c *MQTTChannel) Topic() string { return Topic(c.Config.TopicPrefix, c.Config.Path) }

func (c *MQTTChannel) Connect(ctx context.Context, listener Listener) error {
	if !c.Config.Enabled() {
		return errors.New("sync broker not configured")
	}
	if listener == nil {
		return errors.New("no listener")
	}

	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		return errors.New("sync channel already connected")
	}
	c.mu.Unlock()

	topic := c.Topic()
	opts := NewClientOptions(c.Config)
	opts.OnConnect = func(client mqtt.Client) {
		c.infof("connected to %s", c.Config.Broker)
		token := client.Subscribe(topic, 1, c.messageHandler(listener))
		if token.Wait() && token.Error() != nil {
			c.errorf("subscribe %s failed: %v", topic, token.Error())
			return
		}
		c.infof("subscribed to %s", topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.errorf("connection suspended: %v", err)
	}

	factory := c.ClientFactory
	if factory == nil {
		factory = DefaultClientFactory
	}
	client := factory(opts)

	timeout := c.Config.Timeout()
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("connect %s: timed out after %s", c.Config.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect %s: %w", c.Config.Broker, err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

func (c *MQTTChannel) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
	return nil
}

func (c *MQTTChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnected()
}

func (c *MQTTChannel) messageHandler(listener Listener) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		path := PathFromTopic(c.Config.TopicPrefix, msg.Topic())
		event, err := ParseEvent(path, msg.Payload())
		if err != nil {
			c.errorf("ignoring message on %s: %v", msg.Topic(), err)
			return
		}
		listener(event)
	}
}

func (c *MQTTChannel) infof(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Infof("sync", format, args...)
	}
}

func (c *MQTTChannel) errorf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Errorf("sync", format, args...)
	}
}

// NewClientOptions maps the sync config onto paho options. mqtts:// and ssl://
// brokers use TLS; reconnects and connect retries are disabled.
func NewClientOptions(cfg config.SyncConfig) *mqtt.ClientOptions {
	scheme, rest := "tcp", cfg.Broker
	useTLS := false
	if parts := strings.SplitN(cfg.Broker, "://", 2); len(parts) == 2 {
		rest = parts[1]
		switch parts[0] {
		case "mqtts", "ssl", "tls":
			scheme, useTLS = "ssl", true
		case "ws", "wss":
			scheme = parts[0]
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(scheme + "://" + rest)
	opts.SetClientID(cfg.ClientIDPrefix + uuid.New().String()[:8])
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(cfg.Timeout())
	opts.SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if useTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}
