package device_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz1/estado", Topic("AsistIoT_ESP32_PE", SuffixLuz1State))
}

func TestNewTopicSet(t *testing.T) {
	topics := NewTopicSet(DefaultThingName)

	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz1/estado", topics.Luz1State)
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz2/estado", topics.Luz2State)
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/sensor_movimiento/alerta", topics.MotionAlert)
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz1/comandos", topics.Luz1Commands)
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz2/comandos", topics.Luz2Commands)
}

func TestTopicSet_DerivedFromThingName(t *testing.T) {
	suffixes := map[string]string{
		"luz1_state":    SuffixLuz1State,
		"luz2_state":    SuffixLuz2State,
		"motion_alert":  SuffixMotionAlert,
		"luz1_commands": SuffixLuz1Commands,
		"luz2_commands": SuffixLuz2Commands,
	}

	for _, thing := range []string{"AsistIoT_ESP32_PE", "kitchen-01", "a"} {
		entries := NewTopicSet(thing).Entries()
		assert.Len(t, entries, len(suffixes))
		for _, e := range entries {
			assert.Equal(t, "hogar/"+thing+"/"+suffixes[e.Name], e.Topic, e.Name)
		}
	}
}

func TestTopicSet_ChangingThingNameChangesEveryTopic(t *testing.T) {
	a := NewTopicSet("device-a").All()
	b := NewTopicSet("device-b").All()

	assert.Len(t, a, 5)
	assert.Len(t, b, 5)
	for i := range a {
		assert.NotEqual(t, a[i], b[i])
		assert.Contains(t, b[i], "/device-b/")
		assert.NotContains(t, b[i], "device-a")
	}
}

func TestTopicSet_Directions(t *testing.T) {
	topics := NewTopicSet(DefaultThingName)

	assert.Equal(t, []string{topics.Luz1State, topics.Luz2State, topics.MotionAlert}, topics.Publish())
	assert.Equal(t, []string{topics.Luz1Commands, topics.Luz2Commands}, topics.Subscribe())

	d, ok := topics.Direction(topics.Luz2Commands)
	assert.True(t, ok)
	assert.Equal(t, DirectionSubscribe, d)

	d, ok = topics.Direction(topics.MotionAlert)
	assert.True(t, ok)
	assert.Equal(t, DirectionPublish, d)

	assert.False(t, topics.Contains("hogar/other/luz1/estado"))
}
