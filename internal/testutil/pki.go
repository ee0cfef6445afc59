// Package testutil generates throwaway PKI material for tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type PKI struct {
	RootCA           string
	DeviceCert       string
	DevicePrivateKey string
	// PKCS8PrivateKey is DevicePrivateKey encoded as "PRIVATE KEY".
	PKCS8PrivateKey string
}

type pkiOptions struct {
	notBefore time.Time
	notAfter  time.Time
	keyBits   int
}

type PKIOption func(*pkiOptions)

func WithValidity(notBefore, notAfter time.Time) PKIOption {
	return func(o *pkiOptions) { o.notBefore, o.notAfter = notBefore, notAfter }
}

// NewPKI returns a self-signed root CA plus a device certificate and RSA key
// issued by it, all PEM encoded.
func NewPKI(t testing.TB, opts ...PKIOption) *PKI {
	t.Helper()

	conf := pkiOptions{
		notBefore: time.Now().Add(-time.Hour),
		notAfter:  time.Now().Add(24 * time.Hour),
		keyBits:   2048,
	}
	for _, fn := range opts {
		fn(&conf)
	}

	caKey, err := rsa.GenerateKey(rand.Reader, conf.keyBits)
	require.NoError(t, err)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(48 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(caDER)
	require.NoError(t, err)

	devKey, err := rsa.GenerateKey(rand.Reader, conf.keyBits)
	require.NoError(t, err)
	devTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "AsistIoT_ESP32_PE"},
		NotBefore:    conf.notBefore,
		NotAfter:     conf.notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	devDER, err := x509.CreateCertificate(rand.Reader, devTmpl, caCert, &devKey.PublicKey, caKey)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(devKey)
	require.NoError(t, err)

	return &PKI{
		RootCA:           encode("CERTIFICATE", caDER),
		DeviceCert:       encode("CERTIFICATE", devDER),
		DevicePrivateKey: encode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(devKey)),
		PKCS8PrivateKey:  encode("PRIVATE KEY", pkcs8),
	}
}

// OtherKey returns an unrelated PKCS#1 RSA private key.
func OtherKey(t testing.TB) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return encode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(k))
}

func encode(typ string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}))
}
