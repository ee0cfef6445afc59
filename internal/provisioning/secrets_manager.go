package provisioning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Keys of the JSON document stored in the secret.
const (
	SecretKeyWiFiPassword     = "wifi_password"
	SecretKeyRootCA           = "root_ca"
	SecretKeyDeviceCert       = "device_cert"
	SecretKeyDevicePrivateKey = "device_private_key"
)

type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads one secret holding a JSON object. PEM values may
// be stored raw or base64 encoded.
type SecretsManagerSource struct {
	client   SecretsManagerAPI
	secretID string
}

func NewSecretsManagerSource(client SecretsManagerAPI, secretID string) *SecretsManagerSource {
	return &SecretsManagerSource{client: client, secretID: secretID}
}

func (s *SecretsManagerSource) Name() string { return "secrets_manager:" + s.secretID }

func (s *SecretsManagerSource) Fetch(ctx context.Context) (*Material, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return nil, cerrors.ErrProvisioningSource.WithMessage("get secret %s: %v", s.secretID, err).WithCause(err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(aws.ToString(out.SecretString))
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return nil, cerrors.ErrProvisioningSource.WithMessage("secret %s has no value", s.secretID)
	}

	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, cerrors.ErrProvisioningSource.WithMessage("secret %s is not a json object", s.secretID).WithCause(err)
	}

	m := &Material{WiFiPassword: values[SecretKeyWiFiPassword]}
	if m.RootCA, err = decodePEMValue(SecretKeyRootCA, values[SecretKeyRootCA]); err != nil {
		return nil, err
	}
	if m.DeviceCert, err = decodePEMValue(SecretKeyDeviceCert, values[SecretKeyDeviceCert]); err != nil {
		return nil, err
	}
	if m.DevicePrivateKey, err = decodePEMValue(SecretKeyDevicePrivateKey, values[SecretKeyDevicePrivateKey]); err != nil {
		return nil, err
	}
	return m, nil
}

func decodePEMValue(key, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "-----BEGIN ") {
		return v, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return "", cerrors.ErrProvisioningSource.WithMessage("%s is neither pem nor base64", key).WithCause(err)
	}
	return string(decoded), nil
}
