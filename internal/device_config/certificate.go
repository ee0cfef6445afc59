package device_config

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
)

const (
	PEMTypeCertificate   = "CERTIFICATE"
	PEMTypeRSAPrivateKey = "RSA PRIVATE KEY"
	PEMTypePrivateKey    = "PRIVATE KEY"
	PEMTypeECPrivateKey  = "EC PRIVATE KEY"
)

const (
	FieldRootCA           = "root_ca"
	FieldDeviceCert       = "device_cert"
	FieldDevicePrivateKey = "device_private_key"
)

var pemBegin = []byte("-----BEGIN ")

// CertificateBundle is the PEM material used for the mutual TLS session with
// AWS IoT Core. The private key never leaves the value through String or JSON.
type CertificateBundle struct {
	RootCA           string
	DeviceCert       string
	DevicePrivateKey string
}

type CertificateInfo struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	IsCA         bool      `json:"is_ca"`
	SHA256       string    `json:"sha256_fingerprint"`
}

type CertificateReport struct {
	RootCAs      []CertificateInfo `json:"root_cas"`
	Device       CertificateInfo   `json:"device"`
	KeyAlgorithm string            `json:"key_algorithm"`
}

type parsedBundle struct {
	roots  []*x509.Certificate
	device *x509.Certificate
	key    crypto.Signer
}

// ParsePEMBlocks decodes every block in text. The text must consist of PEM
// blocks only, each with matching BEGIN/END markers, a non-empty body and one
// of the allowed types.
func ParsePEMBlocks(field, text string, allowedTypes ...string) ([]*pem.Block, error) {
	rest := bytes.TrimSpace([]byte(text))
	if len(rest) == 0 {
		return nil, cerrors.ErrEmptyCertificate.WithMessage("%s is empty", field)
	}

	var blocks []*pem.Block
	for len(rest) > 0 {
		if !bytes.HasPrefix(rest, pemBegin) {
			return nil, cerrors.ErrMalformedPEM.WithMessage("%s: unexpected data outside of pem block", field)
		}
		block, next := pem.Decode(rest)
		// pem.Decode skips a broken block and decodes the next BEGIN it finds.
		if block == nil || bytes.Contains(rest[len(pemBegin):len(rest)-len(next)], pemBegin) {
			return nil, cerrors.ErrMalformedPEM.WithMessage("%s: pem block has no matching END marker", field)
		}
		if len(block.Bytes) == 0 {
			return nil, cerrors.ErrEmptyCertificate.WithMessage("%s: %s block has no content", field, block.Type)
		}
		if !allowed(block.Type, allowedTypes) {
			return nil, cerrors.ErrMalformedPEM.WithMessage("%s: unexpected pem type %q", field, block.Type)
		}
		blocks = append(blocks, block)
		rest = bytes.TrimSpace(next)
	}
	return blocks, nil
}

// ParsePEMBlock is ParsePEMBlocks for fields that hold exactly one block.
func ParsePEMBlock(field, text string, allowedTypes ...string) (*pem.Block, error) {
	blocks, err := ParsePEMBlocks(field, text, allowedTypes...)
	if err != nil {
		return nil, err
	}
	if len(blocks) != 1 {
		return nil, cerrors.ErrMalformedPEM.WithMessage("%s: expected a single pem block, got %d", field, len(blocks))
	}
	return blocks[0], nil
}

func allowed(typ string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no certificate material was provisioned at all.
func (c CertificateBundle) IsEmpty() bool {
	return strings.TrimSpace(c.RootCA) == "" &&
		strings.TrimSpace(c.DeviceCert) == "" &&
		strings.TrimSpace(c.DevicePrivateKey) == ""
}

// Validate rejects empty or malformed material. Consumers call it before any
// TLS connection attempt.
func (c CertificateBundle) Validate() error {
	_, err := c.parse(time.Now())
	return err
}

// Inspect validates the bundle at now and describes it without exposing key
// material.
func (c CertificateBundle) Inspect(now time.Time) (*CertificateReport, error) {
	p, err := c.parse(now)
	if err != nil {
		return nil, err
	}
	report := &CertificateReport{
		RootCAs:      make([]CertificateInfo, 0, len(p.roots)),
		Device:       describe(p.device),
		KeyAlgorithm: keyAlgorithm(p.key),
	}
	for _, r := range p.roots {
		report.RootCAs = append(report.RootCAs, describe(r))
	}
	return report, nil
}

// TLSConfig builds the client side mutual TLS configuration.
func (c CertificateBundle) TLSConfig(serverName string) (*tls.Config, error) {
	p, err := c.parse(time.Now())
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, r := range p.roots {
		pool.AddCert(r)
	}
	return &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{p.device.Raw},
			PrivateKey:  p.key,
			Leaf:        p.device,
		}},
	}, nil
}

func (c CertificateBundle) parse(now time.Time) (*parsedBundle, error) {
	rootBlocks, err := ParsePEMBlocks(FieldRootCA, c.RootCA, PEMTypeCertificate)
	if err != nil {
		return nil, err
	}
	certBlock, err := ParsePEMBlock(FieldDeviceCert, c.DeviceCert, PEMTypeCertificate)
	if err != nil {
		return nil, err
	}
	keyBlock, err := ParsePEMBlock(FieldDevicePrivateKey, c.DevicePrivateKey,
		PEMTypeRSAPrivateKey, PEMTypePrivateKey, PEMTypeECPrivateKey)
	if err != nil {
		return nil, err
	}

	p := &parsedBundle{}
	for _, b := range rootBlocks {
		root, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			return nil, cerrors.ErrInvalidCertificate.WithMessage("%s: %v", FieldRootCA, err).WithCause(err)
		}
		p.roots = append(p.roots, root)
	}

	p.device, err = x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, cerrors.ErrInvalidCertificate.WithMessage("%s: %v", FieldDeviceCert, err).WithCause(err)
	}
	if now.Before(p.device.NotBefore) || now.After(p.device.NotAfter) {
		return nil, cerrors.ErrCertificateExpired.WithMessage(
			"%s is valid from %s to %s", FieldDeviceCert,
			p.device.NotBefore.UTC().Format(time.RFC3339), p.device.NotAfter.UTC().Format(time.RFC3339))
	}

	p.key, err = parsePrivateKey(keyBlock)
	if err != nil {
		return nil, err
	}

	pub, ok := p.key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(p.device.PublicKey) {
		return nil, cerrors.ErrKeyMismatch
	}
	return p, nil
}

func parsePrivateKey(block *pem.Block) (crypto.Signer, error) {
	var (
		key any
		err error
	)
	switch block.Type {
	case PEMTypeRSAPrivateKey:
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case PEMTypeECPrivateKey:
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, cerrors.ErrInvalidPrivateKey.WithMessage("%s: %v", FieldDevicePrivateKey, err).WithCause(err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, cerrors.ErrInvalidPrivateKey.WithMessage("%s: unsupported key type %T", FieldDevicePrivateKey, key)
	}
	return signer, nil
}

func describe(cert *x509.Certificate) CertificateInfo {
	sum := sha256.Sum256(cert.Raw)
	return CertificateInfo{
		Subject:      cert.Subject.String(),
		Issuer:       cert.Issuer.String(),
		SerialNumber: cert.SerialNumber.String(),
		NotBefore:    cert.NotBefore.UTC(),
		NotAfter:     cert.NotAfter.UTC(),
		IsCA:         cert.IsCA,
		SHA256:       hex.EncodeToString(sum[:]),
	}
}

func keyAlgorithm(key crypto.Signer) string {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return fmt.Sprintf("RSA-%d", k.N.BitLen())
	case *ecdsa.PrivateKey:
		return "ECDSA-" + k.Curve.Params().Name
	case ed25519.PrivateKey:
		return "Ed25519"
	default:
		return fmt.Sprintf("%T", key)
	}
}

type RedactedCertificates struct {
	RootCA           bool `json:"root_ca_set"`
	DeviceCert       bool `json:"device_cert_set"`
	DevicePrivateKey bool `json:"device_private_key_set"`
}

func (c CertificateBundle) redacted() RedactedCertificates {
	return RedactedCertificates{
		RootCA:           strings.TrimSpace(c.RootCA) != "",
		DeviceCert:       strings.TrimSpace(c.DeviceCert) != "",
		DevicePrivateKey: strings.TrimSpace(c.DevicePrivateKey) != "",
	}
}

func (c CertificateBundle) String() string {
	r := c.redacted()
	return fmt.Sprintf("CertificateBundle{root_ca_set:%t device_cert_set:%t device_private_key_set:%t}",
		r.RootCA, r.DeviceCert, r.DevicePrivateKey)
}

func (c CertificateBundle) GoString() string { return c.String() }

func (c CertificateBundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.redacted())
}
