package mqtt_client

import (
	"time"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DeviceChannel restricts a client to the topics of one device: it only
// publishes on the publish topics and only subscribes to the subscribe
// topics of the TopicSet. Payloads are passed through untouched.
type DeviceChannel struct {
	client  mqtt.Client
	topics  device_config.TopicSet
	qos     byte
	timeout time.Duration
}

func NewDeviceChannel(c mqtt.Client, topics device_config.TopicSet, qos byte, timeout time.Duration) *DeviceChannel {
	return &DeviceChannel{client: c, topics: topics, qos: qos, timeout: timeout}
}

func (d *DeviceChannel) Topics() device_config.TopicSet { return d.topics }

func (d *DeviceChannel) Publish(topic string, payload []byte, retained bool) error {
	if err := d.check(topic, device_config.DirectionPublish); err != nil {
		return err
	}
	return d.wait(d.client.Publish(topic, d.qos, retained, payload))
}

func (d *DeviceChannel) Subscribe(topic string, handler mqtt.MessageHandler) error {
	if err := d.check(topic, device_config.DirectionSubscribe); err != nil {
		return err
	}
	return d.wait(d.client.Subscribe(topic, d.qos, handler))
}

// SubscribeAll subscribes handler to every subscribe topic of the device.
func (d *DeviceChannel) SubscribeAll(handler mqtt.MessageHandler) error {
	if !d.client.IsConnectionOpen() {
		return cerrors.ErrMQTTNotConnected
	}
	filters := make(map[string]byte)
	for _, t := range d.topics.Subscribe() {
		filters[t] = d.qos
	}
	return d.wait(d.client.SubscribeMultiple(filters, handler))
}

func (d *DeviceChannel) check(topic string, want device_config.Direction) error {
	got, ok := d.topics.Direction(topic)
	if !ok {
		return cerrors.ErrUnknownTopic.WithMessage("topic %q is not part of the device topic set", topic)
	}
	if got != want {
		return cerrors.ErrTopicDirection.WithMessage("topic %q is a %s topic", topic, got)
	}
	if !d.client.IsConnectionOpen() {
		return cerrors.ErrMQTTNotConnected
	}
	return nil
}

func (d *DeviceChannel) wait(tok mqtt.Token) error {
	if !tok.WaitTimeout(d.timeout) {
		return cerrors.ErrMQTTOperationTimedOut
	}
	return tok.Error()
}
