// Package mqtt publishes optimization results to an MQTT broker so downstream
// energy-management systems can act on the dispatch plan.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremetrics "github.com/fader2077/EcoGrid-AuditPredict/core/metrics"
	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
	"github.com/fader2077/EcoGrid-AuditPredict/infra/logger"
	"github.com/fader2077/EcoGrid-AuditPredict/internal/eventbus"
)

// Config holds broker connection settings.
type Config struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseTLS   bool   `json:"use_tls"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "ecogrid-optimizer"
	}
	if c.Topic == "" {
		c.Topic = "ecogrid/dispatch/result"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos %d out of range", c.QoS)
	}
	return nil
}

type client interface {
	IsConnected() bool
	Disconnect(uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher sends optimization results over MQTT.
type Publisher struct {
	client client
	cfg    Config
	log    logger.Logger
}

// NewPublisher connects to the broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	c := paho.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{client: c, cfg: cfg, log: logger.New("mqtt-publisher")}, nil
}

// resultMessage is the wire payload for one optimization run.
type resultMessage struct {
	RequestID string                   `json:"request_id"`
	Time      time.Time                `json:"time"`
	Result    model.OptimizationResult `json:"result"`
}

// PublishResult sends the optimization result on the configured topic.
func (p *Publisher) PublishResult(requestID string, res model.OptimizationResult) error {
	payload, err := json.Marshal(resultMessage{RequestID: requestID, Time: time.Now().UTC(), Result: res})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
	token.Wait()
	return token.Error()
}

// Watch publishes a summary for every event on the bus until the context-free
// bus channel closes. Failures are logged, not fatal.
func (p *Publisher) Watch(bus *eventbus.Bus[coremetrics.OptimizationEvent]) {
	ch := bus.Subscribe()
	go func() {
		for ev := range ch {
			payload, err := json.Marshal(ev)
			if err != nil {
				p.log.Errorf("marshal event %s: %v", ev.RequestID, err)
				continue
			}
			token := p.client.Publish(p.cfg.Topic+"/events", p.cfg.QoS, false, payload)
			token.Wait()
			if token.Error() != nil {
				p.log.Errorf("publish event %s: %v", ev.RequestID, token.Error())
			}
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
