package device_loader

import (
	"context"
	"time"

	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/s3_client"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/secrets_manager_client"
	"github.com/asistiot/asistiot-agent/internal/provisioning"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	"github.com/dgraph-io/ristretto"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Sources      []provisioning.Source
	MaxRetry     int
	RetryBackoff time.Duration
}

type Option func(*Config)

// WithSources replaces the sources configured through viper.
func WithSources(sources ...provisioning.Source) Option {
	return func(c *Config) { c.Sources = sources }
}

func WithRetry(maxRetry int, backoff time.Duration) Option {
	return func(c *Config) { c.MaxRetry, c.RetryBackoff = maxRetry, backoff }
}

func readDuration(key string, def time.Duration) time.Duration {
	d, err := utilities.ParseOrDefault(viper.GetString(key), def)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func defaultConfig() Config {
	maxRetry := constants.ProvisioningDefaultMaxRetry
	if viper.IsSet(config.ProvisioningMaxRetry) {
		maxRetry = viper.GetInt(config.ProvisioningMaxRetry)
	}
	return Config{
		MaxRetry:     maxRetry,
		RetryBackoff: readDuration(config.ProvisioningRetryBackoff, constants.ProvisioningDefaultRetryBackoff),
	}
}

// SourcesFromViper lists the enabled provisioning sources: local files first,
// then Secrets Manager and S3 behind the shared cache. The remote clients
// must have been initialized when their source is enabled.
func SourcesFromViper(cache *ristretto.Cache) []provisioning.Source {
	ttl := readDuration(config.ProvisioningCacheTTL, constants.ProvisioningDefaultCacheTTL)
	sources := []provisioning.Source{provisioning.NewFileSourceFromViper()}

	if viper.GetBool(config.ProvisioningEnableSecretsManager) {
		sources = append(sources, provisioning.NewCachedSource(
			provisioning.NewSecretsManagerSource(
				secrets_manager_client.Client(),
				viper.GetString(config.SecretsManagerSecretID),
			),
			cache, ttl,
		))
	}

	if viper.GetBool(config.ProvisioningEnableS3) {
		sources = append(sources, provisioning.NewCachedSource(
			provisioning.NewS3Source(
				s3_client.Client(),
				viper.GetString(config.S3Bucket),
				viper.GetString(config.S3RootCAKey),
				viper.GetString(config.S3DeviceCertKey),
				viper.GetString(config.S3DevicePrivateKeyKey),
			),
			cache, ttl,
		))
	}
	return sources
}

// LoadBundle builds the device configuration from viper and the provisioning
// sources. Values set directly in the configuration take precedence over
// provisioned material.
func LoadBundle(ctx context.Context, optFns ...Option) (*device_config.Bundle, error) {
	conf := defaultConfig()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}

	logger := log.Default().Named("device_loader")
	chain := provisioning.NewChain(conf.Sources,
		provisioning.WithRetry(conf.MaxRetry, conf.RetryBackoff),
		provisioning.WithLogger(logger.Named("provisioning")),
	)
	material, err := chain.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	opts := append(material.Options(), device_config.OptionsFromViper()...)
	bundle, err := device_config.New(opts...)
	if err != nil {
		invalidateCached(conf.Sources)
		return nil, err
	}

	logger.ForDevice(bundle.ThingName()).Info("Device configuration loaded", zap.Object("device", bundle.Redacted()))
	if err := bundle.Certificates().Validate(); err != nil {
		invalidateCached(conf.Sources)
		logger.Warn("Device certificates are not usable, MQTT connections will be refused", zap.Error(err))
	}
	return bundle, nil
}

type invalidator interface {
	Invalidate()
}

// invalidateCached drops cached material so the next load fetches it again.
func invalidateCached(sources []provisioning.Source) {
	for _, src := range sources {
		if c, ok := src.(invalidator); ok {
			c.Invalidate()
		}
	}
}
