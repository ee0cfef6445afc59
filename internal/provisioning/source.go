// Package provisioning fetches the secret part of the device configuration
// (WiFi password and TLS material) from outside the source tree.
package provisioning

import (
	"context"
	"strings"

	"github.com/asistiot/asistiot-agent/internal/device_config"
)

// Material is what a Source can contribute. Any field may be empty.
type Material struct {
	WiFiPassword     string
	RootCA           string
	DeviceCert       string
	DevicePrivateKey string
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Material, error)
}

// Merge fills the fields of m that are still empty from o.
func (m *Material) Merge(o *Material) {
	if o == nil {
		return
	}
	fill(&m.WiFiPassword, o.WiFiPassword)
	fill(&m.RootCA, o.RootCA)
	fill(&m.DeviceCert, o.DeviceCert)
	fill(&m.DevicePrivateKey, o.DevicePrivateKey)
}

// HasCertificates reports whether all three PEM fields are present.
func (m *Material) HasCertificates() bool {
	return !isBlank(m.RootCA) && !isBlank(m.DeviceCert) && !isBlank(m.DevicePrivateKey)
}

func (m *Material) Complete() bool {
	return m.HasCertificates() && !isBlank(m.WiFiPassword)
}

// Options converts the material into device configuration options. Empty
// fields produce no option so earlier values are kept.
func (m *Material) Options() []device_config.Option {
	var opts []device_config.Option
	if !isBlank(m.WiFiPassword) {
		opts = append(opts, device_config.WithPassword(m.WiFiPassword))
	}
	if !isBlank(m.RootCA) {
		opts = append(opts, device_config.WithRootCA(m.RootCA))
	}
	if !isBlank(m.DeviceCert) {
		opts = append(opts, device_config.WithDeviceCert(m.DeviceCert))
	}
	if !isBlank(m.DevicePrivateKey) {
		opts = append(opts, device_config.WithDevicePrivateKey(m.DevicePrivateKey))
	}
	return opts
}

func fill(dst *string, v string) {
	if isBlank(*dst) && !isBlank(v) {
		*dst = v
	}
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
