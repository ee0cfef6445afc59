package config

const (
	AgentID                 = "agent.id"
	AgentEnableMonitoring   = "agent.enable_monitoring"
	AgentMonitoringPort     = "agent.monitoring_port"
	AgentLogLevel           = "agent.log_level"
	AgentHTTPPort           = "agent.http_port"
	AgentHTTPMode           = "agent.http_mode"
	AgentHTTPRequestTimeout = "agent.http_request_timeout"
	AgentTLSCertFile        = "agent.tls_cert_file"
	AgentTLSKeyFile         = "agent.tls_key_file"
	AgentEnableMQTT         = "agent.enable_mqtt"
	AgentEnableTracing      = "agent.enable_tracing"
)

const (
	WiFiSSID     = "wifi.ssid"
	WiFiPassword = "wifi.password"
)

const (
	AWSIoTEndpoint  = "aws_iot.endpoint"
	AWSIoTThingName = "aws_iot.thing_name"
	AWSIoTPort      = "aws_iot.port"
)

// Inline PEM values take precedence over the *_file paths.
const (
	CertsRootCA               = "certs.root_ca"
	CertsDeviceCert           = "certs.device_cert"
	CertsDevicePrivateKey     = "certs.device_private_key"
	CertsRootCAFile           = "certs.root_ca_file"
	CertsDeviceCertFile       = "certs.device_cert_file"
	CertsDevicePrivateKeyFile = "certs.device_private_key_file"
	CertsDir                  = "certs.dir"
	CertsRequired             = "certs.required"
)

const (
	ProvisioningEnableSecretsManager = "provisioning.enable_secrets_manager"
	ProvisioningEnableS3             = "provisioning.enable_s3"
	ProvisioningCacheTTL             = "provisioning.cache_ttl"
	ProvisioningMaxRetry             = "provisioning.max_retry"
	ProvisioningRetryBackoff         = "provisioning.retry_backoff"
)

const (
	SecretsManagerRegion   = "secrets_manager.region"
	SecretsManagerEndpoint = "secrets_manager.endpoint"
	SecretsManagerSecretID = "secrets_manager.secret_id"
)

const (
	MqttCleanSession         = "mqtt.clean_session"
	MqttAutoReconnect        = "mqtt.auto_reconnect"
	MqttConnectRetry         = "mqtt.connect_retry"
	MqttMaxConnectInterval   = "mqtt.max_connect_interval"
	MqttWriteTimeout         = "mqtt.write_timeout"
	MqttPingTimeout          = "mqtt.ping_timeout"
	MqttKeepAliveDuration    = "mqtt.keep_alive_duration"
	MqttResumeSubs           = "mqtt.resume_subs"
	MqttConnectTimeout       = "mqtt.connect_timeout"
	MqttConnectRetryInterval = "mqtt.connect_retry_interval"
	MqttQoS                  = "mqtt.qos"
	MqttOperationTimeout     = "mqtt.operation_timeout"
	MqttStatusInterval       = "mqtt.status_interval"
)

const (
	S3Region                = "s3.region"
	S3Endpoint              = "s3.endpoint"
	S3AccessKey             = "s3.access_key"
	S3SecretKey             = "s3.secret_key"
	S3UsePathStyle          = "s3.use_path_style"
	S3TLSInsecureSkipVerify = "s3.tls_insecure_skip_verify"
	S3Bucket                = "s3.bucket"
	S3RootCAKey             = "s3.root_ca_key"
	S3DeviceCertKey         = "s3.device_cert_key"
	S3DevicePrivateKeyKey   = "s3.device_private_key_key"
)

const (
	TracingEndpoint    = "tracing.endpoint"
	TracingInsecure    = "tracing.insecure"
	TracingServiceName = "tracing.service_name"
	TracingNamespace   = "tracing.namespace"
	TracingTimeout     = "tracing.timeout"
)
