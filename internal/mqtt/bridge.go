//go:build !no_mqtt

// Package mqtt bridges controller events and attribute writes to an MQTT
// broker, with Home Assistant discovery for the event sources it has seen.
package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/filter"
	"matter-go-home/internal/store"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	// Filter selects the matter events that are published; empty means all.
	Filter string
	// Discovery enables Home Assistant discovery messages.
	Discovery bool
}

// client is the part of pahomqtt.Client the bridge uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Bridge publishes controller events to MQTT and turns set topics into
// attribute writes.
//
// Topics, below the configured prefix:
//
//	bridge/state                                  online/offline (retained, LWT)
//	bridge/link                                   link state (retained)
//	<node>                                        node record (retained)
//	<node>/<endpoint>/<cluster>/event/<event>     matter events
//	<node>/<endpoint>/<cluster>/<attribute>/set   write requests
//	<node>/<endpoint>/<cluster>/<attribute>/result write outcomes
type Bridge struct {
	client    client
	ctrl      *controller.Controller
	prefix    string
	filter    *filter.Filter
	discovery bool
	logger    *slog.Logger
	unsub     func()

	mu sync.Mutex
	// announced holds the discovery topics published per node.
	announced map[uint64]map[string]struct{}
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(ctrl *controller.Controller, cfg Config, logger *slog.Logger) (*Bridge, error) {
	f, err := filter.Compile(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("mqtt filter: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "matter-go-home"
	}

	b := newBridge(ctrl, nil, cfg, f, logger)

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.onConnect()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := pahomqtt.NewClient(opts)
	// The connect handler may fire before Connect returns.
	b.mu.Lock()
	b.client = c
	b.mu.Unlock()

	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

func newBridge(ctrl *controller.Controller, c client, cfg Config, f *filter.Filter, logger *slog.Logger) *Bridge {
	return &Bridge{
		client:    c,
		ctrl:      ctrl,
		prefix:    cfg.TopicPrefix,
		filter:    f,
		discovery: cfg.Discovery,
		logger:    logger.With("component", "mqtt"),
		announced: make(map[uint64]map[string]struct{}),
	}
}

// Start subscribes to controller events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.ctrl.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publish(b.prefix+"/bridge/state", []byte("offline"), true)
	b.mqtt().Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) mqtt() client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// onConnect runs after every (re)connect: the broker may have lost the
// subscription and the retained state.
func (b *Bridge) onConnect() {
	b.publish(b.prefix+"/bridge/state", []byte("online"), true)
	b.publishLinkState()

	nodes, err := b.ctrl.Nodes()
	if err != nil {
		b.logger.Error("list nodes", "err", err)
	}
	for _, n := range nodes {
		b.publishNode(n)
	}

	topic := b.prefix + "/+/+/+/+/set"
	token := b.mqtt().Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleSet(msg.Topic(), msg.Payload())
	})
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			b.logger.Error("MQTT subscribe", "topic", topic, "err", token.Error())
		}
	}()
}

func (b *Bridge) handleEvent(ev controller.Event) {
	switch ev.Type {
	case controller.EventMatterEvent:
		if me, ok := ev.Data.(controller.MatterEvent); ok {
			b.handleMatterEvent(me)
		}
	case controller.EventNodeUpdate:
		if n, ok := ev.Data.(store.Node); ok {
			b.publishNode(&n)
		}
	case controller.EventNodeRemoved:
		if n, ok := ev.Data.(store.Node); ok {
			b.handleNodeRemoved(&n)
		}
	case controller.EventLinkState:
		b.publishLinkState()
	}
}

func (b *Bridge) handleMatterEvent(me controller.MatterEvent) {
	rec := me.Record
	if rec == nil || rec.Cluster == nil || rec.Def == nil || !b.filter.Match(rec) {
		return
	}
	topic := fmt.Sprintf("%s/%s/%d/%s/event/%s", b.prefix, controller.FormatNodeID(rec.Node),
		rec.Endpoint, rec.Cluster.Name, rec.Def.Name)
	b.publish(topic, mustJSON(me), false)

	if b.discovery {
		b.announce(rec.Node, buildEventDiscovery(b.nodeLabel(rec.Node), rec, b.prefix))
	}
}

func (b *Bridge) publishNode(n *store.Node) {
	b.publish(b.prefix+"/"+controller.FormatNodeID(n.ID), mustJSON(n), true)
	if b.discovery {
		b.announce(n.ID, buildNodeDiscovery(n, b.prefix))
	}
}

func (b *Bridge) publishLinkState() {
	b.publish(b.prefix+"/bridge/link", []byte(b.ctrl.LinkState()), true)
}

func (b *Bridge) nodeLabel(id uint64) string {
	n, err := b.ctrl.Store().GetNode(id)
	if err != nil {
		return ""
	}
	return n.Label
}

// announce publishes discovery messages not yet published for the node.
func (b *Bridge) announce(node uint64, msgs []discoveryMsg) {
	b.mu.Lock()
	seen, ok := b.announced[node]
	if !ok {
		seen = make(map[string]struct{})
		b.announced[node] = seen
	}
	var fresh []discoveryMsg
	for _, m := range msgs {
		if _, dup := seen[m.Topic]; !dup {
			seen[m.Topic] = struct{}{}
			fresh = append(fresh, m)
		}
	}
	b.mu.Unlock()

	for _, m := range fresh {
		b.publish(m.Topic, m.Payload, true)
	}
	if len(fresh) > 0 {
		b.logger.Info("published HA discovery", "node", controller.FormatNodeID(node), "entities", len(fresh))
	}
}

func (b *Bridge) handleNodeRemoved(n *store.Node) {
	b.mu.Lock()
	topics := b.announced[n.ID]
	delete(b.announced, n.ID)
	b.mu.Unlock()

	for _, m := range buildRemoveDiscovery(topics) {
		b.publish(m.Topic, m.Payload, true)
	}
	// Clear the retained node record.
	b.publish(b.prefix+"/"+controller.FormatNodeID(n.ID), nil, true)
}

// setTarget is a parsed <node>/<endpoint>/<cluster>/<attribute>/set topic.
type setTarget struct {
	Node      uint64
	Endpoint  uint16
	Cluster   string
	Attribute string
}

var errBadTopic = errors.New("bad set topic")

func (b *Bridge) parseSetTopic(topic string) (setTarget, error) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return setTarget{}, errBadTopic
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 5 || parts[4] != "set" || parts[2] == "" || parts[3] == "" {
		return setTarget{}, errBadTopic
	}
	node, err := controller.ParseNodeID(parts[0])
	if err != nil {
		return setTarget{}, fmt.Errorf("%w: %v", errBadTopic, err)
	}
	ep, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return setTarget{}, fmt.Errorf("%w: endpoint %q", errBadTopic, parts[1])
	}
	return setTarget{Node: node, Endpoint: uint16(ep), Cluster: parts[2], Attribute: parts[3]}, nil
}

// parseSetPayload decodes a set payload. A JSON object is the argument bag,
// with an optional "timed_ms" entry; any other JSON value is the attribute
// value, and a payload that is not JSON is taken as a string.
func parseSetPayload(payload []byte) (dispatch.Args, []dispatch.InvokeOption, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil, errors.New("empty payload")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return dispatch.Single(string(trimmed)), nil, nil
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return dispatch.Single(v), nil, nil
	}
	var opts []dispatch.InvokeOption
	if raw, ok := obj["timed_ms"]; ok {
		n, ok := raw.(json.Number)
		if !ok {
			return nil, nil, fmt.Errorf("timed_ms: want a number, got %T", raw)
		}
		ms, err := n.Int64()
		if err != nil || ms <= 0 {
			return nil, nil, fmt.Errorf("timed_ms: invalid %s", n)
		}
		opts = append(opts, dispatch.WithTimedTimeout(time.Duration(ms)*time.Millisecond))
		delete(obj, "timed_ms")
	}
	return dispatch.Args(obj), opts, nil
}

// setResult is the payload of a .../result topic.
type setResult struct {
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

func (b *Bridge) handleSet(topic string, payload []byte) {
	target, err := b.parseSetTopic(topic)
	if err != nil {
		b.logger.Warn("ignoring set message", "topic", topic, "err", err)
		return
	}
	resultTopic := strings.TrimSuffix(topic, "/set") + "/result"

	args, opts, err := parseSetPayload(payload)
	if err != nil {
		b.publish(resultTopic, mustJSON(setResult{Error: err.Error()}), false)
		return
	}

	// The callback can fire before WriteAttribute returns the request ID.
	ids := make(chan string, 1)
	cb := func(res dispatch.Result) {
		go func() {
			out := setResult{RequestID: <-ids, Status: res.Status.String(), OK: res.OK()}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}
			b.publish(resultTopic, mustJSON(out), false)
		}()
	}

	id, err := b.ctrl.WriteAttribute(b.ctrl.Context(), target.Node, target.Endpoint,
		target.Cluster, target.Attribute, args, cb, opts...)
	if err != nil {
		b.logger.Warn("MQTT write rejected", "topic", topic, "err", err)
		b.publish(resultTopic, mustJSON(setResult{Error: err.Error()}), false)
		return
	}
	ids <- id
	b.logger.Debug("MQTT write submitted", "id", id, "topic", topic)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.mqtt().Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
