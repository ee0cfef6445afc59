package provisioning

import (
	"context"
	"io"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the PEM files from objects of one bucket. Empty keys are
// skipped.
type S3Source struct {
	client              S3GetObjectAPI
	bucket              string
	RootCAKey           string
	DeviceCertKey       string
	DevicePrivateKeyKey string
}

func NewS3Source(client S3GetObjectAPI, bucket, rootCAKey, deviceCertKey, devicePrivateKeyKey string) *S3Source {
	return &S3Source{
		client:              client,
		bucket:              bucket,
		RootCAKey:           rootCAKey,
		DeviceCertKey:       deviceCertKey,
		DevicePrivateKeyKey: devicePrivateKeyKey,
	}
}

func (s *S3Source) Name() string { return "s3:" + s.bucket }

func (s *S3Source) Fetch(ctx context.Context) (*Material, error) {
	m := &Material{}
	for _, obj := range []struct {
		key string
		dst *string
	}{
		{s.RootCAKey, &m.RootCA},
		{s.DeviceCertKey, &m.DeviceCert},
		{s.DevicePrivateKeyKey, &m.DevicePrivateKey},
	} {
		if obj.key == "" {
			continue
		}
		data, err := s.getObject(ctx, obj.key)
		if err != nil {
			return nil, err
		}
		*obj.dst = string(data)
	}
	return m, nil
}

func (s *S3Source) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, cerrors.ErrProvisioningSource.WithMessage("get s3://%s/%s: %v", s.bucket, key, err).WithCause(err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(out.Body, constants.ProvisioningMaxObjectSize+1))
	if err != nil {
		return nil, cerrors.ErrProvisioningSource.WithMessage("read s3://%s/%s: %v", s.bucket, key, err).WithCause(err)
	}
	if len(data) > constants.ProvisioningMaxObjectSize {
		return nil, cerrors.ErrProvisioningSource.WithMessage("s3://%s/%s exceeds %d bytes", s.bucket, key, constants.ProvisioningMaxObjectSize)
	}
	return data, nil
}
