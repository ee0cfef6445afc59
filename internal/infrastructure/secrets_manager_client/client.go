package secrets_manager_client

import (
	"context"
	"sync"

	"github.com/asistiot/asistiot-agent/internal/infrastructure/aws_config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	client *secretsmanager.Client
	once   sync.Once
)

func Client() *secretsmanager.Client {
	if client == nil {
		panic("secrets manager client not initialized; call NewSecretsManagerClient first")
	}
	return client
}

// NewSecretsManagerClient builds the client used to read the device secret.
func NewSecretsManagerClient(ctx context.Context, opts ...aws_config.Option) error {
	awsCfg, err := aws_config.Load(ctx, aws_config.Apply(opts...))
	if err != nil {
		return err
	}

	once.Do(func() {
		client = secretsmanager.NewFromConfig(awsCfg)
	})
	return nil
}
