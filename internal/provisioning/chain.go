package provisioning

import (
	"context"
	"time"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Chain asks each source in order and merges what they return. Earlier
// sources win; later sources only fill fields that are still empty.
type Chain struct {
	sources      []Source
	maxRetry     int
	retryBackoff time.Duration
	logger       *log.Logger
}

type ChainOption func(*Chain)

func WithRetry(maxRetry int, backoff time.Duration) ChainOption {
	return func(c *Chain) { c.maxRetry, c.retryBackoff = maxRetry, backoff }
}

func WithLogger(l *log.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

func NewChain(sources []Source, opts ...ChainOption) *Chain {
	c := &Chain{
		sources:      sources,
		maxRetry:     constants.ProvisioningDefaultMaxRetry,
		retryBackoff: constants.ProvisioningDefaultRetryBackoff,
	}
	for _, fn := range opts {
		fn(c)
	}
	if c.logger == nil {
		c.logger = log.Default().Named("provisioning")
	}
	return c
}

// Fetch returns the merged material. A failing source is logged and skipped;
// an error is returned only when every source failed.
func (c *Chain) Fetch(ctx context.Context) (*Material, error) {
	merged := &Material{}
	var (
		failed  int
		lastErr error
	)
	for _, src := range c.sources {
		if merged.Complete() {
			break
		}
		var m *Material
		err := utilities.RetryWithBackoff(ctx, func() error {
			var fErr error
			m, fErr = src.Fetch(ctx)
			return fErr
		}, c.maxRetry, c.retryBackoff, constants.ProvisioningMaxRetryBackoff)
		if err != nil {
			failed++
			lastErr = err
			c.logger.Warn("Provisioning source failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		merged.Merge(m)
		c.logger.Debug("Provisioning source fetched",
			zap.String("source", src.Name()),
			zap.Bool("certificates_complete", merged.HasCertificates()),
		)
	}

	if len(c.sources) > 0 && failed == len(c.sources) {
		if cerrors.CodeOf(lastErr) == cerrors.ErrProvisioningSource.Code {
			return nil, lastErr
		}
		return nil, cerrors.ErrProvisioningSource.WithCause(errors.Wrap(lastErr, "all provisioning sources failed"))
	}
	return merged, nil
}
