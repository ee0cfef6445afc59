package provisioning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/testutil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/dgraph-io/ristretto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	value *string
	err   error
	calls int
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: f.value}, nil
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type staticSource struct {
	name  string
	m     *Material
	err   error
	calls int
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(context.Context) (*Material, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	m := *s.m
	return &m, nil
}

func TestFileSource(t *testing.T) {
	pki := testutil.NewPKI(t)
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		return p
	}

	src := &FileSource{
		RootCAPath:           write("AmazonRootCA1.pem", pki.RootCA),
		DeviceCertPath:       write("device.pem.crt", pki.DeviceCert),
		DevicePrivateKeyPath: write("private.pem.key", pki.DevicePrivateKey),
	}
	m, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, m.HasCertificates())
	assert.Equal(t, pki.DeviceCert, m.DeviceCert)

	src.DeviceCertPath = filepath.Join(dir, "missing.pem")
	_, err = src.Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))
}

func TestFileSource_Dir(t *testing.T) {
	pki := testutil.NewPKI(t)
	dir := t.TempDir()
	for name, content := range map[string]string{
		"AmazonRootCA1.pem":          pki.RootCA,
		"3f2a9c-certificate.pem.crt": pki.DeviceCert,
		"3f2a9c-private.pem.key":     pki.DevicePrivateKey,
		"3f2a9c-public.pem.key":      "ignored",
		"notes.txt":                  "ignored",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	m, err := (&FileSource{Dir: dir}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pki.RootCA, m.RootCA)
	assert.Equal(t, pki.DeviceCert, m.DeviceCert)
	assert.Equal(t, pki.DevicePrivateKey, m.DevicePrivateKey)

	// explicit paths win over discovery
	override := filepath.Join(t.TempDir(), "root.pem")
	require.NoError(t, os.WriteFile(override, []byte("explicit"), 0o600))
	m, err = (&FileSource{Dir: dir, RootCAPath: override}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "explicit", m.RootCA)

	_, err = (&FileSource{Dir: filepath.Join(dir, "missing")}).Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))
}

func TestSecretsManagerSource(t *testing.T) {
	pki := testutil.NewPKI(t)
	doc, err := json.Marshal(map[string]string{
		SecretKeyWiFiPassword:     "vitapanocca",
		SecretKeyRootCA:           pki.RootCA,
		SecretKeyDeviceCert:       base64.StdEncoding.EncodeToString([]byte(pki.DeviceCert)),
		SecretKeyDevicePrivateKey: pki.DevicePrivateKey,
	})
	require.NoError(t, err)

	src := NewSecretsManagerSource(&fakeSecretsManager{value: aws.String(string(doc))}, "asistiot/AsistIoT_ESP32_PE")
	m, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vitapanocca", m.WiFiPassword)
	assert.Equal(t, pki.DeviceCert, m.DeviceCert)
	assert.True(t, m.Complete())
	assert.Equal(t, "secrets_manager:asistiot/AsistIoT_ESP32_PE", src.Name())
}

func TestSecretsManagerSource_Errors(t *testing.T) {
	_, err := NewSecretsManagerSource(&fakeSecretsManager{err: errors.New("AccessDenied")}, "id").Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))

	_, err = NewSecretsManagerSource(&fakeSecretsManager{value: aws.String("not json")}, "id").Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))

	_, err = NewSecretsManagerSource(&fakeSecretsManager{value: aws.String(`{"root_ca":"%%%"}`)}, "id").Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))
}

func TestS3Source(t *testing.T) {
	pki := testutil.NewPKI(t)
	client := &fakeS3{objects: map[string][]byte{
		"certs/root.pem": []byte(pki.RootCA),
		"certs/device.crt": []byte(pki.DeviceCert),
		"certs/device.key": []byte(pki.DevicePrivateKey),
	}}

	m, err := NewS3Source(client, "certs", "root.pem", "device.crt", "device.key").Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, m.HasCertificates())
	assert.Empty(t, m.WiFiPassword)

	_, err = NewS3Source(client, "certs", "root.pem", "missing.crt", "").Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))
}

func TestS3Source_ObjectTooLarge(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"b/big": bytes.Repeat([]byte("a"), 128<<10)}}

	_, err := NewS3Source(client, "b", "big", "", "").Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))
}

func TestCachedSource(t *testing.T) {
	cache, err := ristretto.NewCache(&ristretto.Config{NumCounters: 100, MaxCost: 10, BufferItems: 64})
	require.NoError(t, err)
	defer cache.Close()

	inner := &staticSource{name: "static", m: &Material{WiFiPassword: "password123"}}
	src := NewCachedSource(inner, cache, time.Minute)

	for i := 0; i < 3; i++ {
		m, err := src.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "password123", m.WiFiPassword)
	}
	assert.Equal(t, 1, inner.calls)

	src.Invalidate()
	_, err = src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestChain_MergesInOrder(t *testing.T) {
	pki := testutil.NewPKI(t)
	first := &staticSource{name: "first", m: &Material{RootCA: pki.RootCA, WiFiPassword: "first-password"}}
	broken := &staticSource{name: "broken", err: errors.New("boom")}
	second := &staticSource{name: "second", m: &Material{
		WiFiPassword:     "second-password",
		DeviceCert:       pki.DeviceCert,
		DevicePrivateKey: pki.DevicePrivateKey,
	}}
	unused := &staticSource{name: "unused", m: &Material{}}

	chain := NewChain([]Source{first, broken, second, unused}, WithRetry(2, time.Millisecond))
	m, err := chain.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "first-password", m.WiFiPassword)
	assert.True(t, m.HasCertificates())
	assert.Equal(t, 2, broken.calls)
	assert.Equal(t, 0, unused.calls)

	b, err := device_config.New(append(m.Options(), device_config.WithRequireCertificates(true))...)
	require.NoError(t, err)
	assert.Equal(t, "first-password", b.Network().Password)
}

func TestChain_AllSourcesFail(t *testing.T) {
	chain := NewChain([]Source{
		&staticSource{name: "a", err: errors.New("a")},
		&staticSource{name: "b", err: errors.New("b")},
	}, WithRetry(1, time.Millisecond))

	_, err := chain.Fetch(context.Background())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrProvisioningSource.Code))
}

func TestMaterial_Options_SkipsEmpty(t *testing.T) {
	m := &Material{WiFiPassword: "  "}
	assert.Empty(t, m.Options())
}
