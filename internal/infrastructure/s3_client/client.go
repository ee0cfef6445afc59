package s3_client

import (
	"context"
	"sync"

	"github.com/asistiot/asistiot-agent/internal/infrastructure/aws_config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	client *s3.Client
	once   sync.Once
)

// Client returns the singleton S3 client (after NewS3Client).
func Client() *s3.Client {
	if client == nil {
		panic("s3 client not initialized; call NewS3Client first")
	}
	return client
}

// NewS3Client builds the client used to pull certificate objects.
func NewS3Client(ctx context.Context, opts ...aws_config.Option) error {
	conf := aws_config.Apply(opts...)

	awsCfg, err := aws_config.Load(ctx, conf)
	if err != nil {
		return err
	}

	once.Do(func() {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = conf.UsePathStyle
		})
	})
	return nil
}
