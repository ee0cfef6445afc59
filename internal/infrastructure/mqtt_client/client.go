package mqtt_client

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func getBool(key string, def bool) bool {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetBool(key)
}

func getInt(key string, def int) int {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetInt(key)
}

// readDuration accepts "10s"/"500ms" or a bare integer of seconds.
func readDuration(key string, def time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return def
	}
	d, err := utilities.ParseOrDefault(viper.GetString(key), def)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

var defaultPublishHandler mqtt.MessageHandler = func(_ mqtt.Client, msg mqtt.Message) {
	log.Default().Named("mqtt").Debug("Unrouted message", zap.String("topic", msg.Topic()))
}

var defaultConnLostHandler mqtt.ConnectionLostHandler = func(_ mqtt.Client, err error) {
	log.Default().Named("mqtt").Warn("Connection to AWS IoT lost", zap.Error(err))
}

var defaultConnAttemptHandler mqtt.ConnectionAttemptHandler = func(broker *url.URL, cfg *tls.Config) *tls.Config {
	log.Default().Named("mqtt").Debug("Connecting to AWS IoT", zap.String("broker", broker.String()))
	return cfg
}

var defaultReconnectHandler mqtt.ReconnectHandler = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
	log.Default().Named("mqtt").Info("Reconnecting to AWS IoT")
}

type Options struct {
	PublishHandler        mqtt.MessageHandler
	ConnectionLostHandler mqtt.ConnectionLostHandler
	ConnectionAttempt     mqtt.ConnectionAttemptHandler
	ReconnectHandler      mqtt.ReconnectHandler
	OnConnect             mqtt.OnConnectHandler
	CleanSession          *bool
	AutoReconnect         *bool
	ConnectRetry          *bool
	ResumeSubs            *bool
	WriteTimeout          *time.Duration
	KeepAlive             *time.Duration
	PingTimeout           *time.Duration
	MaxReconnectInterval  *time.Duration
	ConnectTimeout        *time.Duration
	ConnectRetryInterval  *time.Duration
	Port                  int
}

type Option func(*Options)

func WithPublishHandler(h mqtt.MessageHandler) Option {
	return func(o *Options) { o.PublishHandler = h }
}

func WithConnectionLostHandler(h mqtt.ConnectionLostHandler) Option {
	return func(o *Options) { o.ConnectionLostHandler = h }
}

// WithOnConnectHandler runs after every successful (re)connect, the place to
// (re)subscribe when the session is clean.
func WithOnConnectHandler(h mqtt.OnConnectHandler) Option {
	return func(o *Options) { o.OnConnect = h }
}

func WithCleanSession(v bool) Option {
	return func(o *Options) { o.CleanSession = &v }
}

func WithAutoReconnect(v bool) Option {
	return func(o *Options) { o.AutoReconnect = &v }
}

func WithConnectRetry(v bool) Option {
	return func(o *Options) { o.ConnectRetry = &v }
}

func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) { o.KeepAlive = &d }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = &d }
}

func WithPort(port int) Option {
	return func(o *Options) { o.Port = port }
}

func defaultOptionsFromViper() Options {
	return Options{
		PublishHandler:        defaultPublishHandler,
		ConnectionLostHandler: defaultConnLostHandler,
		ConnectionAttempt:     defaultConnAttemptHandler,
		ReconnectHandler:      defaultReconnectHandler,
		CleanSession:          utilities.Ptr(getBool(config.MqttCleanSession, true)),
		AutoReconnect:         utilities.Ptr(getBool(config.MqttAutoReconnect, true)),
		ConnectRetry:          utilities.Ptr(getBool(config.MqttConnectRetry, true)),
		ResumeSubs:            utilities.Ptr(getBool(config.MqttResumeSubs, true)),
		WriteTimeout:          utilities.Ptr(readDuration(config.MqttWriteTimeout, constants.MqttDefaultWriteTimeout)),
		KeepAlive:             utilities.Ptr(readDuration(config.MqttKeepAliveDuration, constants.MqttDefaultKeepAlive)),
		PingTimeout:           utilities.Ptr(readDuration(config.MqttPingTimeout, constants.MqttDefaultPingTimeout)),
		MaxReconnectInterval:  utilities.Ptr(readDuration(config.MqttMaxConnectInterval, constants.MqttDefaultMaxReconnectInterval)),
		ConnectTimeout:        utilities.Ptr(readDuration(config.MqttConnectTimeout, constants.MqttDefaultConnectTimeout)),
		ConnectRetryInterval:  utilities.Ptr(readDuration(config.MqttConnectRetryInterval, constants.MqttDefaultConnectRetryInterval)),
		Port:                  getInt(config.AWSIoTPort, constants.AWSIoTDefaultPort),
	}
}

// BrokerURL is the paho broker address of an AWS IoT data endpoint.
func BrokerURL(endpoint string, port int) string {
	return fmt.Sprintf("ssl://%s:%d", endpoint, port)
}

// buildClientOptions validates the certificate material of bundle and maps
// it onto paho options. Nothing here touches the network.
func buildClientOptions(bundle *device_config.Bundle, conf Options) (*mqtt.ClientOptions, error) {
	if bundle == nil {
		return nil, cerrors.ErrDeviceConfigNotLoaded
	}

	tlsCfg, err := bundle.TLSConfig()
	if err != nil {
		return nil, err
	}
	if conf.Port == constants.AWSIoTALPNPort {
		tlsCfg = tlsCfg.Clone()
		tlsCfg.NextProtos = []string{constants.AWSIoTALPNProtocol}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(bundle.Endpoint(), conf.Port)).
		SetClientID(bundle.ThingName()).
		SetTLSConfig(tlsCfg).
		SetDefaultPublishHandler(conf.PublishHandler).
		SetConnectionLostHandler(conf.ConnectionLostHandler).
		SetReconnectingHandler(conf.ReconnectHandler).
		SetConnectionAttemptHandler(conf.ConnectionAttempt).
		SetCleanSession(*conf.CleanSession).
		SetAutoReconnect(*conf.AutoReconnect).
		SetConnectRetry(*conf.ConnectRetry).
		SetConnectRetryInterval(*conf.ConnectRetryInterval).
		SetMaxReconnectInterval(*conf.MaxReconnectInterval).
		SetWriteTimeout(*conf.WriteTimeout).
		SetKeepAlive(*conf.KeepAlive).
		SetPingTimeout(*conf.PingTimeout).
		SetResumeSubs(*conf.ResumeSubs).
		SetConnectTimeout(*conf.ConnectTimeout)
	if conf.OnConnect != nil {
		opts.SetOnConnectHandler(conf.OnConnect)
	}
	return opts, nil
}

var (
	mu     sync.Mutex
	client mqtt.Client
)

// NewAWSIoTClient connects to the AWS IoT endpoint of bundle as its thing.
// Empty or malformed certificate material is rejected before any connection
// attempt is made.
func NewAWSIoTClient(bundle *device_config.Bundle, optFns ...Option) error {
	conf := defaultOptionsFromViper()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}

	opts, err := buildClientOptions(bundle, conf)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if client != nil {
		return nil
	}

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(*conf.ConnectTimeout) {
		// stops the background retries of ConnectRetry
		c.Disconnect(250)
		return cerrors.ErrMQTTOperationTimedOut.WithMessage("mqtt connect timeout after %s", conf.ConnectTimeout.String())
	}
	if err := tok.Error(); err != nil {
		return errors.Wrap(err, "mqtt connect error")
	}
	client = c
	return nil
}

func Client() mqtt.Client {
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		panic("mqtt client not initialized")
	}
	return client
}

// IsConnected reports whether the process-wide client holds an open
// connection to the broker.
func IsConnected() bool {
	mu.Lock()
	defer mu.Unlock()
	return client != nil && client.IsConnectionOpen()
}

// Close disconnects the process-wide client, waiting up to quiesce for
// in-flight work.
func Close(quiesce time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if client != nil {
		client.Disconnect(uint(quiesce.Milliseconds()))
		client = nil
	}
}
