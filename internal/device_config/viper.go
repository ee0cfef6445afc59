package device_config

import (
	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/spf13/viper"
)

func stringOr(key, def string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

// OptionsFromViper maps the wifi, aws_iot and inline certs keys onto options.
// Unset keys keep the package defaults.
func OptionsFromViper() []Option {
	opts := []Option{
		WithSSID(stringOr(config.WiFiSSID, DefaultWiFiSSID)),
		WithEndpoint(stringOr(config.AWSIoTEndpoint, DefaultAWSIoTEndpoint)),
		WithThingName(stringOr(config.AWSIoTThingName, DefaultThingName)),
		WithRequireCertificates(viper.GetBool(config.CertsRequired)),
	}
	if v := viper.GetString(config.WiFiPassword); v != "" {
		opts = append(opts, WithPassword(v))
	}
	if v := viper.GetString(config.CertsRootCA); v != "" {
		opts = append(opts, WithRootCA(v))
	}
	if v := viper.GetString(config.CertsDeviceCert); v != "" {
		opts = append(opts, WithDeviceCert(v))
	}
	if v := viper.GetString(config.CertsDevicePrivateKey); v != "" {
		opts = append(opts, WithDevicePrivateKey(v))
	}
	return opts
}
