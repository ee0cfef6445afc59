package device_link

import (
	"context"
	"time"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/mqtt_client"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	QoS              byte
	OperationTimeout time.Duration
	StatusInterval   time.Duration
	Handler          mqtt.MessageHandler
	ClientOptions    []mqtt_client.Option
}

type Option func(*Config)

func WithQoS(qos byte) Option {
	return func(c *Config) { c.QoS = qos }
}

func WithStatusInterval(d time.Duration) Option {
	return func(c *Config) { c.StatusInterval = d }
}

// WithHandler replaces the handler that receives messages on the subscribe
// topics of the device.
func WithHandler(h mqtt.MessageHandler) Option {
	return func(c *Config) { c.Handler = h }
}

func WithClientOptions(opts ...mqtt_client.Option) Option {
	return func(c *Config) { c.ClientOptions = append(c.ClientOptions, opts...) }
}

func readDuration(key string, def time.Duration) time.Duration {
	d, err := utilities.ParseOrDefault(viper.GetString(key), def)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func defaultConfig() Config {
	qos := constants.MqttDefaultQoS
	if viper.IsSet(config.MqttQoS) {
		qos = viper.GetInt(config.MqttQoS)
	}
	if qos < 0 || qos > 2 {
		qos = constants.MqttDefaultQoS
	}
	return Config{
		QoS:              byte(qos),
		OperationTimeout: readDuration(config.MqttOperationTimeout, constants.MqttDefaultOperationTimeout),
		StatusInterval:   readDuration(config.MqttStatusInterval, constants.MqttDefaultStatusInterval),
	}
}

// LoggingHandler records messages received on the command topics. Payloads
// are logged as received and never interpreted.
func LoggingHandler(logger *log.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		logger.Info("Received device message",
			zap.String("topic", msg.Topic()),
			zap.ByteString("payload", msg.Payload()),
			zap.Bool("retained", msg.Retained()),
		)
	}
}

// Run connects to AWS IoT as the thing of bundle, keeps the device command
// topics subscribed across reconnects and reports the link state until ctx
// is done. A bundle with unusable certificates fails before any connection
// attempt.
func Run(ctx context.Context, bundle *device_config.Bundle, optFns ...Option) error {
	if bundle == nil {
		return cerrors.ErrDeviceConfigNotLoaded
	}

	conf := defaultConfig()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}

	logger := log.Default().Named("device_link").ForDevice(bundle.ThingName())
	if conf.Handler == nil {
		conf.Handler = LoggingHandler(logger)
	}

	onConnect := func(c mqtt.Client) {
		channel := mqtt_client.NewDeviceChannel(c, bundle.Topics(), conf.QoS, conf.OperationTimeout)
		if err := channel.SubscribeAll(conf.Handler); err != nil {
			logger.Error("Failed to subscribe to device topics", zap.Error(err))
			return
		}
		logger.Info("Subscribed to device topics", zap.Strings("topics", bundle.Topics().Subscribe()))
	}

	logger.Info("Connecting to AWS IoT", zap.String("endpoint", bundle.Endpoint()))
	clientOpts := append([]mqtt_client.Option{mqtt_client.WithOnConnectHandler(onConnect)}, conf.ClientOptions...)
	if err := mqtt_client.NewAWSIoTClient(bundle, clientOpts...); err != nil {
		return err
	}
	defer mqtt_client.Close(250 * time.Millisecond)

	ticker := time.NewTicker(conf.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down device link")
			return nil
		case <-ticker.C:
			logger.Debug("Device link status", zap.Bool("connected", mqtt_client.IsConnected()))
		}
	}
}
