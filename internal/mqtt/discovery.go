//go:build !no_mqtt

package mqtt

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/event"
	"matter-go-home/internal/schema/clusters"
	"matter-go-home/internal/store"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/binary_sensor/matter_0000000000000042/ep1_boolean_state/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name                   string   `json:"name"`
	UniqueID               string   `json:"unique_id"`
	StateTopic             string   `json:"state_topic"`
	AvailabilityTopic      string   `json:"availability_topic"`
	ValueTemplate          string   `json:"value_template,omitempty"`
	JSONAttributesTopic    string   `json:"json_attributes_topic,omitempty"`
	JSONAttributesTemplate string   `json:"json_attributes_template,omitempty"`
	UnitOfMeasurement      string   `json:"unit_of_measurement,omitempty"`
	DeviceClass            string   `json:"device_class,omitempty"`
	StateClass             string   `json:"state_class,omitempty"`
	PayloadOn              string   `json:"payload_on,omitempty"`
	PayloadOff             string   `json:"payload_off,omitempty"`
	EventTypes             []string `json:"event_types,omitempty"`
	Device                 haDevice `json:"device"`
}

// nodeDisplayName returns a display name for the node.
func nodeDisplayName(label string, id uint64) string {
	if label != "" {
		return label
	}
	return "Matter " + controller.FormatNodeID(id)
}

// nodeIdentifier returns the unique identifier for HA device registry.
func nodeIdentifier(id uint64) string {
	return "matter_" + controller.FormatNodeID(id)
}

func haDeviceFor(label string, id uint64) haDevice {
	return haDevice{
		Identifiers: []string{nodeIdentifier(id)},
		Model:       "Matter node",
		Name:        nodeDisplayName(label, id),
	}
}

// objectName turns a CamelCase schema name into snake_case.
func objectName(s string) string {
	var sb strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			// Break before an upper-case letter that starts a new word.
			if i > 0 && (unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1]) ||
				(i+1 < len(rs) && unicode.IsLower(rs[i+1]) && unicode.IsUpper(rs[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// buildNodeDiscovery generates the per-node entities fed by the retained
// node record.
func buildNodeDiscovery(n *store.Node, prefix string) []discoveryMsg {
	avail := prefix + "/bridge/state"
	stateTopic := prefix + "/" + controller.FormatNodeID(n.ID)
	dev := haDeviceFor(n.Label, n.ID)
	id := nodeIdentifier(n.ID)

	return []discoveryMsg{
		buildSensor(id, dev, stateTopic, avail,
			"events", "Events", "", "total_increasing",
			"{{ value_json.event_count }}"),
		buildSensor(id, dev, stateTopic, avail,
			"last_seen", "Last Seen", "timestamp", "",
			"{{ value_json.last_seen }}"),
	}
}

// buildEventDiscovery generates the entity for one event source. A
// BooleanState StateChange becomes a binary sensor; other events become
// HA event entities.
func buildEventDiscovery(label string, rec *event.Record, prefix string) []discoveryMsg {
	if rec == nil || rec.Cluster == nil || rec.Def == nil {
		return nil
	}
	avail := prefix + "/bridge/state"
	stateTopic := fmt.Sprintf("%s/%s/%d/%s/event/%s", prefix, controller.FormatNodeID(rec.Node),
		rec.Endpoint, rec.Cluster.Name, rec.Def.Name)
	dev := haDeviceFor(label, rec.Node)
	id := nodeIdentifier(rec.Node)

	if rec.Cluster.ID == clusters.BooleanState.ID && rec.Def.Name == "StateChange" {
		objectID := fmt.Sprintf("ep%d_boolean_state", rec.Endpoint)
		return []discoveryMsg{buildBinarySensor(id, dev, stateTopic, avail,
			objectID, fmt.Sprintf("State %d", rec.Endpoint),
			"{{ 'ON' if value_json.event.fields.stateValue else 'OFF' }}")}
	}

	objectID := fmt.Sprintf("ep%d_%s_%s", rec.Endpoint, objectName(rec.Cluster.Name), objectName(rec.Def.Name))
	return []discoveryMsg{buildEvent(id, dev, stateTopic, avail, objectID,
		fmt.Sprintf("%s %s %d", rec.Cluster.Name, rec.Def.Name, rec.Endpoint), rec.Def.Name)}
}

func buildSensor(nodeID string, dev haDevice, stateTopic, avail string,
	objectID, suffix, deviceClass, stateClass, valueTmpl string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/sensor/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              dev.Name + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     valueTmpl,
		DeviceClass:       deviceClass,
		StateClass:        stateClass,
		Device:            dev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildBinarySensor(nodeID string, dev haDevice, stateTopic, avail string,
	objectID, suffix, valueTmpl string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/binary_sensor/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              dev.Name + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     valueTmpl,
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		Device:            dev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildEvent(nodeID string, dev haDevice, stateTopic, avail string,
	objectID, suffix, eventName string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/event/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:                   dev.Name + " " + suffix,
		UniqueID:               nodeID + "_" + objectID,
		StateTopic:             stateTopic,
		AvailabilityTopic:      avail,
		ValueTemplate:          "{{ {'event_type': value_json.event.event} | tojson }}",
		JSONAttributesTopic:    stateTopic,
		JSONAttributesTemplate: "{{ value_json.event.fields | tojson }}",
		EventTypes:             []string{eventName},
		Device:                 dev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

// buildRemoveDiscovery generates empty retained messages to remove
// previously announced entities from HA.
func buildRemoveDiscovery(topics map[string]struct{}) []discoveryMsg {
	msgs := make([]discoveryMsg, 0, len(topics))
	for t := range topics {
		msgs = append(msgs, discoveryMsg{Topic: t})
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Topic < msgs[j].Topic })
	return msgs
}
