package device_config

import "strings"

// TopicPrefix is the root segment shared by every device topic.
const TopicPrefix = "hogar"

const (
	SuffixLuz1State    = "luz1/estado"
	SuffixLuz2State    = "luz2/estado"
	SuffixMotionAlert  = "sensor_movimiento/alerta"
	SuffixLuz1Commands = "luz1/comandos"
	SuffixLuz2Commands = "luz2/comandos"
)

type Direction string

const (
	DirectionPublish   Direction = "publish"
	DirectionSubscribe Direction = "subscribe"
)

// Topic derives a device topic as "hogar/<thingName>/<suffix>".
func Topic(thingName, suffix string) string {
	var b strings.Builder
	b.Grow(len(TopicPrefix) + len(thingName) + len(suffix) + 2)
	b.WriteString(TopicPrefix)
	b.WriteByte('/')
	b.WriteString(thingName)
	b.WriteByte('/')
	b.WriteString(suffix)
	return b.String()
}

// TopicSet holds the topics of one thing. It is only built by NewTopicSet so
// that publishers and subscribers agree byte-for-byte.
type TopicSet struct {
	Luz1State    string `json:"luz1_state"`
	Luz2State    string `json:"luz2_state"`
	MotionAlert  string `json:"motion_alert"`
	Luz1Commands string `json:"luz1_commands"`
	Luz2Commands string `json:"luz2_commands"`
}

type TopicEntry struct {
	Name      string    `json:"name"`
	Topic     string    `json:"topic"`
	Direction Direction `json:"direction"`
}

func NewTopicSet(thingName string) TopicSet {
	return TopicSet{
		Luz1State:    Topic(thingName, SuffixLuz1State),
		Luz2State:    Topic(thingName, SuffixLuz2State),
		MotionAlert:  Topic(thingName, SuffixMotionAlert),
		Luz1Commands: Topic(thingName, SuffixLuz1Commands),
		Luz2Commands: Topic(thingName, SuffixLuz2Commands),
	}
}

// Entries lists the topics in a fixed order, publish topics first.
func (t TopicSet) Entries() []TopicEntry {
	return []TopicEntry{
		{Name: "luz1_state", Topic: t.Luz1State, Direction: DirectionPublish},
		{Name: "luz2_state", Topic: t.Luz2State, Direction: DirectionPublish},
		{Name: "motion_alert", Topic: t.MotionAlert, Direction: DirectionPublish},
		{Name: "luz1_commands", Topic: t.Luz1Commands, Direction: DirectionSubscribe},
		{Name: "luz2_commands", Topic: t.Luz2Commands, Direction: DirectionSubscribe},
	}
}

func (t TopicSet) Publish() []string {
	return t.filter(DirectionPublish)
}

func (t TopicSet) Subscribe() []string {
	return t.filter(DirectionSubscribe)
}

func (t TopicSet) All() []string {
	entries := t.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Topic)
	}
	return out
}

// Direction reports how topic is used by the device, if it belongs to the set.
func (t TopicSet) Direction(topic string) (Direction, bool) {
	for _, e := range t.Entries() {
		if e.Topic == topic {
			return e.Direction, true
		}
	}
	return "", false
}

func (t TopicSet) Contains(topic string) bool {
	_, ok := t.Direction(topic)
	return ok
}

func (t TopicSet) filter(d Direction) []string {
	var out []string
	for _, e := range t.Entries() {
		if e.Direction == d {
			out = append(out, e.Topic)
		}
	}
	return out
}
