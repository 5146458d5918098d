// Package events publishes append events to an MQTT broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/mutation"
	"github.com/ecovision/mantaview/internal/privacy"
)

// Config holds the broker settings.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

const (
	defaultConnectTimeout = 30 * time.Second
	defaultPublishTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
)

// Publisher sends append events as JSON messages.
type Publisher struct {
	config    Config
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	client mqtt.Client
	log    logger.Logger
}

// NewPublisher returns a disconnected publisher.
func NewPublisher(cfg Config) *Publisher {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return &Publisher{
		config:    cfg,
		newClient: mqtt.NewClient,
		log:       GetLogger(),
	}
}

// Connect resolves the broker host and opens the connection. The paho
// client reconnects on its own afterwards.
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := url.Parse(p.config.Broker)
	if err != nil || u.Host == "" {
		return errors.Newf("invalid broker URL %q", privacy.RedactURL(p.config.Broker)).
			Component("events").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if host := u.Hostname(); net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return p.integrationError(fmt.Errorf("resolve broker host %s: %w", host, err), "resolve_broker")
		}
	}

	broker := privacy.RedactURL(p.config.Broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	opts.SetUsername(p.config.Username)
	opts.SetPassword(p.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.log.Info("connected to broker", logger.String("broker", broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn("broker connection lost",
			logger.String("broker", broker),
			logger.Error(err))
	})

	client := p.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(p.config.ConnectTimeout) {
		// Stops the background connect retries.
		client.Disconnect(0)
		return p.integrationError(fmt.Errorf("connect to %s: timeout", broker), "connect")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return p.integrationError(fmt.Errorf("connect to %s: %w", broker, err), "connect")
	}

	p.client = client
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil && p.client.IsConnected()
}

// PublishAppend implements mutation.Publisher.
func (p *Publisher) PublishAppend(ctx context.Context, ev mutation.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode append event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || !p.client.IsConnected() {
		return p.integrationError(errors.NewStd("not connected to MQTT broker"), "publish")
	}

	token := p.client.Publish(p.config.Topic, p.config.QoS, p.config.Retain, payload)
	select {
	case <-token.Done():
	case <-time.After(p.config.PublishTimeout):
		return p.integrationError(fmt.Errorf("publish to %s: timeout", p.config.Topic), "publish")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return p.integrationError(fmt.Errorf("publish to %s: %w", p.config.Topic, err), "publish")
	}

	p.log.Debug("append event published",
		logger.String("topic", p.config.Topic),
		logger.Int("bytes", len(payload)))
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesceMs)
	}
	p.client = nil
}

func (p *Publisher) integrationError(err error, operation string) error {
	return errors.New(privacy.WrapError(err)).
		Component("events").
		Category(errors.CategoryIntegration).
		Context("operation", operation).
		Context("broker", privacy.RedactURL(p.config.Broker)).
		Build()
}
