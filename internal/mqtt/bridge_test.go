//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/controller/controllertest"
	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/event"
	"matter-go-home/internal/filter"
	"matter-go-home/internal/schema/clusters"
	"matter-go-home/internal/store"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// fakeClient records publishes and keeps subscription handlers.
type fakeClient struct {
	mu       sync.Mutex
	pubs     []published
	handlers map[string]pahomqtt.MessageHandler
	notify   chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]pahomqtt.MessageHandler), notify: make(chan struct{}, 256)}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	data, _ := payload.([]byte)
	c.mu.Lock()
	c.pubs = append(c.pubs, published{topic, data, retained})
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	c.handlers[topic] = cb
	c.mu.Unlock()
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {}

func (c *fakeClient) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.pubs...)
}

// waitFor returns the first publish on topic.
func (c *fakeClient) waitFor(t *testing.T, topic string) published {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		for _, p := range c.published() {
			if p.Topic == topic {
				return p
			}
		}
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("no publish on %s; got %v", topic, topicsOf(c.published()))
		}
	}
}

// deliver sends a message to the handler subscribed with pattern.
func (c *fakeClient) deliver(t *testing.T, pattern, topic string, payload []byte) {
	t.Helper()
	c.mu.Lock()
	h := c.handlers[pattern]
	c.mu.Unlock()
	if h == nil {
		t.Fatalf("no subscription for %s", pattern)
	}
	h(nil, &fakeMessage{topic: topic, payload: payload})
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func topicsOf(ps []published) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Topic
	}
	return out
}

func newTestBridge(t *testing.T, cfg Config) (*Bridge, *fakeClient, *controllertest.Link) {
	t.Helper()
	ctrl, link := controllertest.New(t, controller.Config{})
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "matter"
	}
	fc := newFakeClient()
	b := newBridge(ctrl, fc, cfg, filter.MustCompile(cfg.Filter), controllertest.Logger())
	b.Start()
	b.onConnect()
	t.Cleanup(b.Stop)
	return b, fc, link
}

func TestBridgeOnConnect(t *testing.T) {
	_, fc, _ := newTestBridge(t, Config{})

	state := fc.waitFor(t, "matter/bridge/state")
	if string(state.Payload) != "online" || !state.Retained {
		t.Errorf("bridge state = %q retained=%v, want retained online", state.Payload, state.Retained)
	}
	link := fc.waitFor(t, "matter/bridge/link")
	if string(link.Payload) != "connected" {
		t.Errorf("link state = %q, want connected", link.Payload)
	}
	if _, ok := fc.handlers["matter/+/+/+/+/set"]; !ok {
		t.Error("set topic not subscribed")
	}
}

func TestBridgePublishesEvents(t *testing.T) {
	_, fc, link := newTestBridge(t, Config{})

	link.Report(controllertest.StateChange(0x42, 1, true))

	p := fc.waitFor(t, "matter/0000000000000042/1/BooleanState/event/StateChange")
	if p.Retained {
		t.Error("events should not be retained")
	}
	var got struct {
		Seq   uint64 `json:"seq"`
		Event struct {
			Node   uint64         `json:"node"`
			Fields map[string]any `json:"fields"`
		} `json:"event"`
	}
	if err := json.Unmarshal(p.Payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Event.Node != 0x42 || got.Event.Fields["stateValue"] != true {
		t.Errorf("payload = %s", p.Payload)
	}

	node := fc.waitFor(t, "matter/0000000000000042")
	if !node.Retained {
		t.Error("node record should be retained")
	}
}

func TestBridgeFilter(t *testing.T) {
	_, fc, link := newTestBridge(t, Config{Filter: "Node == 67"})

	link.Report(controllertest.StateChange(66, 1, true))
	link.Report(controllertest.StateChange(67, 1, true))

	fc.waitFor(t, "matter/0000000000000043/1/BooleanState/event/StateChange")
	for _, p := range fc.published() {
		if strings.HasPrefix(p.Topic, "matter/0000000000000042/") {
			t.Errorf("filtered event published on %s", p.Topic)
		}
	}
}

func TestBridgeSetWritesAttribute(t *testing.T) {
	_, fc, link := newTestBridge(t, Config{})

	fc.deliver(t, "matter/+/+/+/+/set", "matter/0000000000000042/1/OnOff/OnTime/set", []byte("300"))

	ws := link.Written(t, 1)
	if ws[0].Node != 0x42 || ws[0].Endpoint != 1 || ws[0].Req.Value.Data != uint16(300) {
		t.Errorf("write = %d/%d %#v, want 0x42/1 uint16(300)", ws[0].Node, ws[0].Endpoint, ws[0].Req.Value.Data)
	}

	link.Complete(0, dispatch.Result{Status: dispatch.StatusSuccess})
	p := fc.waitFor(t, "matter/0000000000000042/1/OnOff/OnTime/result")
	var res setResult
	if err := json.Unmarshal(p.Payload, &res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || res.Status != "SUCCESS" || res.RequestID == "" {
		t.Errorf("result = %+v, want SUCCESS with request id", res)
	}
}

func TestBridgeSetTimedArgs(t *testing.T) {
	_, fc, link := newTestBridge(t, Config{})

	fc.deliver(t, "matter/+/+/+/+/set", "matter/7/2/UnitTesting/TimedWriteBoolean/set",
		[]byte(`{"value": true, "timed_ms": 800}`))

	ws := link.Written(t, 1)
	if ws[0].Node != 7 || ws[0].Endpoint != 2 {
		t.Errorf("target = %d/%d, want 7/2", ws[0].Node, ws[0].Endpoint)
	}
	if ws[0].Req.TimedTimeout != 800*time.Millisecond {
		t.Errorf("timed timeout = %v, want 800ms", ws[0].Req.TimedTimeout)
	}
}

func TestBridgeSetRejected(t *testing.T) {
	_, fc, link := newTestBridge(t, Config{})

	fc.deliver(t, "matter/+/+/+/+/set", "matter/1/1/OnOff/OnOff/set", []byte("true"))

	p := fc.waitFor(t, "matter/1/1/OnOff/OnOff/result")
	var res setResult
	if err := json.Unmarshal(p.Payload, &res); err != nil {
		t.Fatal(err)
	}
	if res.OK || !strings.Contains(res.Error, "not writable") {
		t.Errorf("result = %+v, want not writable error", res)
	}
	if len(link.Writes()) != 0 {
		t.Error("rejected write reached the link")
	}
}

func TestParseSetTopic(t *testing.T) {
	b := &Bridge{prefix: "home/matter"}

	tests := []struct {
		topic   string
		want    setTarget
		wantErr bool
	}{
		{"home/matter/0000000000000042/1/OnOff/OnTime/set", setTarget{0x42, 1, "OnOff", "OnTime"}, false},
		{"home/matter/0x10/0/LevelControl/OnLevel/set", setTarget{0x10, 0, "LevelControl", "OnLevel"}, false},
		{"home/matter/1/70000/OnOff/OnTime/set", setTarget{}, true},
		{"home/matter/zz/1/OnOff/OnTime/set", setTarget{}, true},
		{"home/matter/1/1/OnOff/OnTime/get", setTarget{}, true},
		{"other/1/1/OnOff/OnTime/set", setTarget{}, true},
		{"home/matter/1/1/OnOff/set", setTarget{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, err := b.parseSetTopic(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSetPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    any
		timed   bool
		wantErr bool
	}{
		{"number", "42", json.Number("42"), false, false},
		{"bool", "true", true, false, false},
		{"null", "null", nil, false, false},
		{"bare string", "kitchen", "kitchen", false, false},
		{"json string", `"kitchen"`, "kitchen", false, false},
		{"object", `{"value": 5}`, json.Number("5"), false, false},
		{"timed", `{"value": true, "timed_ms": 500}`, true, true, false},
		{"bad timed", `{"value": true, "timed_ms": "soon"}`, nil, false, true},
		{"empty", "  ", nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, opts, err := parseSetPayload([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := args[dispatch.ValueParam]; got != tt.want {
				t.Errorf("value = %#v, want %#v", got, tt.want)
			}
			if _, ok := args["timed_ms"]; ok {
				t.Error("timed_ms left in args")
			}
			if (len(opts) > 0) != tt.timed {
				t.Errorf("opts = %d, timed %v", len(opts), tt.timed)
			}
		})
	}
}

func TestBridgeDiscovery(t *testing.T) {
	_, fc, link := newTestBridge(t, Config{Discovery: true})

	link.Report(controllertest.StateChange(0x42, 1, true))
	link.Report(controllertest.StateChange(0x42, 2, false))

	p := fc.waitFor(t, "homeassistant/binary_sensor/matter_0000000000000042/ep1_boolean_state/config")
	var payload haDiscovery
	if err := json.Unmarshal(p.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.StateTopic != "matter/0000000000000042/1/BooleanState/event/StateChange" {
		t.Errorf("state_topic = %q", payload.StateTopic)
	}
	fc.waitFor(t, "homeassistant/sensor/matter_0000000000000042/events/config")

	count := 0
	for _, p := range fc.published() {
		if strings.HasSuffix(p.Topic, "/ep1_boolean_state/config") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("discovery published %d times, want once", count)
	}
}

func TestBridgeNodeRemoved(t *testing.T) {
	b, fc, link := newTestBridge(t, Config{Discovery: true})

	link.Report(controllertest.StateChange(0x42, 1, true))
	fc.waitFor(t, "homeassistant/binary_sensor/matter_0000000000000042/ep1_boolean_state/config")

	if err := b.ctrl.ForgetNode(0x42); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var cleared bool
		for _, p := range fc.published() {
			if strings.HasSuffix(p.Topic, "/ep1_boolean_state/config") && len(p.Payload) == 0 {
				cleared = true
			}
		}
		if cleared {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("discovery not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventDiscoveryGeneric(t *testing.T) {
	rec := event.New(&clusters.Switch, &clusters.Switch.Events[0])
	rec.Node = 5
	rec.Endpoint = 3

	msgs := buildEventDiscovery("Hall switch", rec, "matter")
	if len(msgs) != 1 {
		t.Fatalf("msgs = %d, want 1", len(msgs))
	}
	want := "homeassistant/event/matter_0000000000000005/ep3_switch_" + objectName(clusters.Switch.Events[0].Name) + "/config"
	if msgs[0].Topic != want {
		t.Errorf("topic = %q, want %q", msgs[0].Topic, want)
	}
	var payload haDiscovery
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.EventTypes) != 1 || payload.EventTypes[0] != clusters.Switch.Events[0].Name {
		t.Errorf("event_types = %v", payload.EventTypes)
	}
	if payload.Device.Name != "Hall switch" {
		t.Errorf("device name = %q", payload.Device.Name)
	}
}

func TestNodeDiscovery(t *testing.T) {
	msgs := buildNodeDiscovery(&store.Node{ID: 0x42}, "matter")
	topics := make(map[string]bool)
	for _, m := range msgs {
		topics[m.Topic] = true
		var payload haDiscovery
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.StateTopic != "matter/0000000000000042" {
			t.Errorf("state_topic = %q", payload.StateTopic)
		}
		if payload.Device.Name != "Matter 0000000000000042" {
			t.Errorf("device name = %q", payload.Device.Name)
		}
	}
	if !topics["homeassistant/sensor/matter_0000000000000042/events/config"] ||
		!topics["homeassistant/sensor/matter_0000000000000042/last_seen/config"] {
		t.Errorf("topics = %v", topics)
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"BooleanState", "boolean_state"},
		{"OnOff", "on_off"},
		{"SmokeCOAlarm", "smoke_co_alarm"},
		{"StateChange", "state_change"},
		{"ep1", "ep1"},
	}
	for _, tt := range tests {
		if got := objectName(tt.in); got != tt.want {
			t.Errorf("objectName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildRemoveDiscovery(t *testing.T) {
	msgs := buildRemoveDiscovery(map[string]struct{}{"b": {}, "a": {}})
	if len(msgs) != 2 || msgs[0].Topic != "a" || msgs[1].Topic != "b" {
		t.Fatalf("msgs = %+v", msgs)
	}
	for _, m := range msgs {
		if m.Payload != nil {
			t.Errorf("removal message should have nil payload, got %q for %s", m.Payload, m.Topic)
		}
	}
}

func TestMustJSON(t *testing.T) {
	if got := string(mustJSON(map[string]int{"a": 1})); got != `{"a":1}` {
		t.Errorf("mustJSON = %s", got)
	}
	if got := string(mustJSON(make(chan int))); got != "{}" {
		t.Errorf("mustJSON(chan) = %s, want {}", got)
	}
}
