package constants

import "time"

const (
	AgentDefaultHTTPPort       = 8080
	AgentDefaultMonitoringPort = 6060
	AgentDefaultServiceName    = "asistiot-agent"
)

const (
	DefaultHTTPRequestTimeout = 10
	GraceWaitPeriod           = 10 * time.Second
	TracerDefaultInitTimeout  = 10 * time.Second
)

const (
	MqttDefaultWriteTimeout         = 10 * time.Second
	MqttDefaultKeepAlive            = 30 * time.Second
	MqttDefaultPingTimeout          = 5 * time.Second
	MqttDefaultMaxReconnectInterval = 30 * time.Second
	MqttDefaultConnectTimeout       = 10 * time.Second
	MqttDefaultConnectRetryInterval = 10 * time.Second
	MqttDefaultQoS                  = 1
	MqttDefaultOperationTimeout     = 5 * time.Second
	MqttDefaultStatusInterval       = time.Minute
)

const (
	// AWSIoTDefaultPort is the MQTT over mutual TLS port of AWS IoT Core.
	AWSIoTDefaultPort = 8883
	// AWSIoTALPNPort needs the x-amzn-mqtt-ca ALPN protocol to speak MQTT.
	AWSIoTALPNPort     = 443
	AWSIoTALPNProtocol = "x-amzn-mqtt-ca"
)

const (
	ProvisioningDefaultCacheTTL     = 15 * time.Minute
	ProvisioningDefaultMaxRetry     = 3
	ProvisioningDefaultRetryBackoff = 500 * time.Millisecond
	ProvisioningMaxRetryBackoff     = 10 * time.Second
	ProvisioningMaxObjectSize       = 64 << 10
)
