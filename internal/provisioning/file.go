package provisioning

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	"github.com/spf13/viper"
)

// File names used by the AWS IoT console when a certificate is created.
const (
	awsRootCAPrefix     = "amazonrootca"
	awsDeviceCertSuffix = "-certificate.pem.crt"
	awsPrivateKeySuffix = "-private.pem.key"
)

// FileSource reads PEM files from local disk. Empty paths are skipped. When
// Dir is set, paths left empty are discovered there by AWS IoT console names.
type FileSource struct {
	Dir                  string
	RootCAPath           string
	DeviceCertPath       string
	DevicePrivateKeyPath string
}

func NewFileSourceFromViper() *FileSource {
	return &FileSource{
		Dir:                  viper.GetString(config.CertsDir),
		RootCAPath:           viper.GetString(config.CertsRootCAFile),
		DeviceCertPath:       viper.GetString(config.CertsDeviceCertFile),
		DevicePrivateKeyPath: viper.GetString(config.CertsDevicePrivateKeyFile),
	}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Fetch(ctx context.Context) (*Material, error) {
	paths, err := s.resolve()
	if err != nil {
		return nil, err
	}

	m := &Material{}
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{paths.RootCAPath, &m.RootCA},
		{paths.DeviceCertPath, &m.DeviceCert},
		{paths.DevicePrivateKeyPath, &m.DevicePrivateKey},
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.path == "" {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, cerrors.ErrProvisioningSource.WithMessage("read %s: %v", f.path, err).WithCause(err)
		}
		*f.dst = string(data)
	}
	return m, nil
}

func (s *FileSource) resolve() (FileSource, error) {
	out := *s
	if s.Dir == "" {
		return out, nil
	}

	pick := func(dst *string, ext string, match func(name string) bool) error {
		if *dst != "" {
			return nil
		}
		files, err := utilities.ListFilesWithExt(s.Dir, ext, false)
		if err != nil {
			return cerrors.ErrProvisioningSource.WithMessage("scan %s: %v", s.Dir, err).WithCause(err)
		}
		for _, f := range files {
			if match(strings.ToLower(filepath.Base(f))) {
				*dst = f
				return nil
			}
		}
		return nil
	}

	if err := pick(&out.RootCAPath, ".pem", func(name string) bool {
		return strings.HasPrefix(name, awsRootCAPrefix)
	}); err != nil {
		return out, err
	}
	if err := pick(&out.DeviceCertPath, ".crt", func(name string) bool {
		return strings.HasSuffix(name, awsDeviceCertSuffix)
	}); err != nil {
		return out, err
	}
	if err := pick(&out.DevicePrivateKeyPath, ".key", func(name string) bool {
		return strings.HasSuffix(name, awsPrivateKeySuffix)
	}); err != nil {
		return out, err
	}
	return out, nil
}
