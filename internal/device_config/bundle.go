package device_config

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultWiFiSSID       = "Redmi Note 14 5G"
	DefaultAWSIoTEndpoint = "a3fgjlvszr1rqj-ats.iot.us-east-2.amazonaws.com"
	DefaultThingName      = "AsistIoT_ESP32_PE"
)

// AWS IoT thing names: letters, digits, colon, underscore and hyphen.
var thingNamePattern = regexp.MustCompile(`^[a-zA-Z0-9:_-]{1,128}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("thingname", func(fl validator.FieldLevel) bool {
			return thingNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

type NetworkCredentials struct {
	SSID     string `json:"ssid" validate:"required,max=32"`
	Password string `json:"-" validate:"omitempty,min=8,max=63"`
}

func (n NetworkCredentials) String() string {
	return fmt.Sprintf("NetworkCredentials{ssid:%q password_set:%t}", n.SSID, n.Password != "")
}

func (n NetworkCredentials) GoString() string { return n.String() }

type BrokerIdentity struct {
	Endpoint  string `json:"endpoint" validate:"required,hostname_rfc1123"`
	ThingName string `json:"thing_name" validate:"required,thingname"`
}

// Bundle is the immutable device configuration. It is built once at startup
// with New and shared by pointer with the networking components.
type Bundle struct {
	network NetworkCredentials
	broker  BrokerIdentity
	topics  TopicSet
	certs   CertificateBundle
}

type Options struct {
	SSID                string
	Password            string
	Endpoint            string
	ThingName           string
	RootCA              string
	DeviceCert          string
	DevicePrivateKey    string
	RequireCertificates bool
}

type Option func(*Options)

func WithNetworkCredentials(ssid, password string) Option {
	return func(o *Options) { o.SSID, o.Password = ssid, password }
}

func WithSSID(ssid string) Option {
	return func(o *Options) { o.SSID = ssid }
}

func WithPassword(password string) Option {
	return func(o *Options) { o.Password = password }
}

func WithEndpoint(endpoint string) Option {
	return func(o *Options) { o.Endpoint = endpoint }
}

func WithThingName(name string) Option {
	return func(o *Options) { o.ThingName = name }
}

func WithRootCA(pem string) Option {
	return func(o *Options) { o.RootCA = pem }
}

func WithDeviceCert(pem string) Option {
	return func(o *Options) { o.DeviceCert = pem }
}

func WithDevicePrivateKey(pem string) Option {
	return func(o *Options) { o.DevicePrivateKey = pem }
}

func WithCertificates(rootCA, deviceCert, devicePrivateKey string) Option {
	return func(o *Options) {
		o.RootCA, o.DeviceCert, o.DevicePrivateKey = rootCA, deviceCert, devicePrivateKey
	}
}

// WithRequireCertificates makes New fail unless the certificate bundle is
// complete and valid.
func WithRequireCertificates(v bool) Option {
	return func(o *Options) { o.RequireCertificates = v }
}

func defaultOptions() Options {
	return Options{
		SSID:      DefaultWiFiSSID,
		Endpoint:  DefaultAWSIoTEndpoint,
		ThingName: DefaultThingName,
	}
}

func New(optFns ...Option) (*Bundle, error) {
	conf := defaultOptions()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}

	b := &Bundle{
		network: NetworkCredentials{SSID: conf.SSID, Password: conf.Password},
		broker:  BrokerIdentity{Endpoint: conf.Endpoint, ThingName: conf.ThingName},
		topics:  NewTopicSet(conf.ThingName),
		certs: CertificateBundle{
			RootCA:           conf.RootCA,
			DeviceCert:       conf.DeviceCert,
			DevicePrivateKey: conf.DevicePrivateKey,
		},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if conf.RequireCertificates {
		if err := b.certs.Validate(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Validate checks the structural fields. Certificates are checked by
// CertificateBundle.Validate.
func (b *Bundle) Validate() error {
	v := structValidator()
	if err := v.Struct(b.broker); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 && vErrs[0].Field() == "Endpoint" {
			return cerrors.ErrInvalidEndpoint.WithMessage("invalid aws iot endpoint %q", b.broker.Endpoint).WithCause(err)
		}
		return cerrors.ErrInvalidThingName.WithMessage("invalid thing name %q", b.broker.ThingName).WithCause(err)
	}
	if err := v.Struct(b.network); err != nil {
		return cerrors.ErrInvalidWiFiCredentials.WithCause(err)
	}
	return nil
}

func (b *Bundle) Network() NetworkCredentials { return b.network }

func (b *Bundle) Broker() BrokerIdentity { return b.broker }

func (b *Bundle) ThingName() string { return b.broker.ThingName }

func (b *Bundle) Endpoint() string { return b.broker.Endpoint }

func (b *Bundle) Topics() TopicSet { return b.topics }

func (b *Bundle) Certificates() CertificateBundle { return b.certs }

// TLSConfig builds the mutual TLS configuration for the broker endpoint.
func (b *Bundle) TLSConfig() (*tls.Config, error) {
	return b.certs.TLSConfig(b.broker.Endpoint)
}

type RedactedNetwork struct {
	SSID        string `json:"ssid"`
	PasswordSet bool   `json:"password_set"`
}

// RedactedBundle is the view of a Bundle that is safe to log or serve.
type RedactedBundle struct {
	Network      RedactedNetwork      `json:"network"`
	Broker       BrokerIdentity       `json:"broker"`
	Topics       TopicSet             `json:"topics"`
	Certificates RedactedCertificates `json:"certificates"`
}

func (b *Bundle) Redacted() RedactedBundle {
	return RedactedBundle{
		Network:      RedactedNetwork{SSID: b.network.SSID, PasswordSet: b.network.Password != ""},
		Broker:       b.broker,
		Topics:       b.topics,
		Certificates: b.certs.redacted(),
	}
}

func (b *Bundle) String() string {
	r := b.Redacted()
	return fmt.Sprintf("Bundle{thing:%q endpoint:%q ssid:%q password_set:%t %s}",
		r.Broker.ThingName, r.Broker.Endpoint, r.Network.SSID, r.Network.PasswordSet, b.certs)
}

func (b *Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Redacted())
}

func (r RedactedBundle) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("thing_name", r.Broker.ThingName)
	enc.AddString("endpoint", r.Broker.Endpoint)
	enc.AddString("ssid", r.Network.SSID)
	enc.AddBool("password_set", r.Network.PasswordSet)
	enc.AddBool("root_ca_set", r.Certificates.RootCA)
	enc.AddBool("device_cert_set", r.Certificates.DeviceCert)
	enc.AddBool("device_private_key_set", r.Certificates.DevicePrivateKey)
	return nil
}
