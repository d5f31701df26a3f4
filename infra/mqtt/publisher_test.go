package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/fader2077/EcoGrid-AuditPredict/core/model"
	"github.com/fader2077/EcoGrid-AuditPredict/infra/logger"
)

type mockClient struct {
	Disconnected bool
	Topics       []string
	Payloads     [][]byte
}

func (m *mockClient) IsConnected() bool       { return true }
func (m *mockClient) Disconnect(quiesce uint) { m.Disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.Topics = append(m.Topics, topic)
	m.Payloads = append(m.Payloads, payload.([]byte))
	return &mockToken{}
}

type mockToken struct{}

func (t *mockToken) Wait() bool                       { return true }
func (t *mockToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *mockToken) Error() error                     { return nil }
func (t *mockToken) Done() <-chan struct{}            { return make(chan struct{}) }

func TestPublishResult(t *testing.T) {
	mc := &mockClient{}
	cfg := Config{Broker: "tcp://broker:1883"}
	cfg.SetDefaults()
	p := &Publisher{client: mc, cfg: cfg, log: logger.NopLogger{}}

	res := model.OptimizationResult{Status: model.StatusOptimal, Savings: 12.5}
	if err := p.PublishResult("req-1", res); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.Topics) != 1 || mc.Topics[0] != "ecogrid/dispatch/result" {
		t.Fatalf("topics = %v", mc.Topics)
	}
	var msg resultMessage
	if err := json.Unmarshal(mc.Payloads[0], &msg); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if msg.RequestID != "req-1" || msg.Result.Status != model.StatusOptimal {
		t.Fatalf("message = %+v", msg)
	}
}

func TestCloseDisconnects(t *testing.T) {
	mc := &mockClient{}
	p := &Publisher{client: mc, cfg: Config{}, log: logger.NopLogger{}}
	p.Close()
	if !mc.Disconnected {
		t.Error("expected Disconnect() to be called")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("missing broker accepted")
	}
	if err := (Config{Broker: "tcp://b:1883", QoS: 3}).Validate(); err == nil {
		t.Error("qos 3 accepted")
	}
}
