package rest_server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/routers"
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/services/v1/restful"
	"github.com/asistiot/asistiot-agent/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	RequestID string          `json:"request_id"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T, bundle *device_config.Bundle) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v1 := routers.NewV1RestState()
	v1.SetHealthcheckService(restful.NewHealthcheckService(
		restful.WithHealthcheckBundle(bundle),
		restful.WithMQTTStatus(func() bool { return true }),
	))
	v1.SetDeviceService(restful.NewDeviceService(restful.WithDeviceBundle(bundle)))
	state := routers.NewAppState()
	state.SetV1RestState(v1)

	return NewEngine(routers.NewRootRouter(state).InitRouters)
}

func do(t *testing.T, engine *gin.Engine, method, path string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func newBundle(t *testing.T) (*device_config.Bundle, *testutil.PKI) {
	pki := testutil.NewPKI(t)
	b, err := device_config.New(
		device_config.WithPassword("vitapanocca"),
		device_config.WithCertificates(pki.RootCA, pki.DeviceCert, pki.DevicePrivateKey),
	)
	require.NoError(t, err)
	return b, pki
}

func TestDeviceConfig_IsRedacted(t *testing.T) {
	bundle, pki := newBundle(t)
	engine := newTestEngine(t, bundle)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/device/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cerrors.OK.Code, env.Code)
	assert.Equal(t, env.RequestID, rec.Header().Get(constants.HeaderXRequestID))

	body := rec.Body.String()
	assert.NotContains(t, body, "vitapanocca")
	assert.NotContains(t, body, "PRIVATE KEY")
	assert.NotContains(t, body, strings.TrimSpace(pki.DeviceCert))

	var data device_config.RedactedBundle
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, device_config.DefaultThingName, data.Broker.ThingName)
	assert.True(t, data.Network.PasswordSet)
	assert.True(t, data.Certificates.DevicePrivateKey)
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz1/estado", data.Topics.Luz1State)
}

func TestDeviceTopics(t *testing.T) {
	bundle, _ := newBundle(t)
	engine := newTestEngine(t, bundle)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/device/topics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data restful.DeviceTopicsOutput
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, device_config.DefaultThingName, data.ThingName)
	require.Len(t, data.Topics, 5)
	assert.Equal(t, "hogar/AsistIoT_ESP32_PE/luz2/comandos", data.Topics[4].Topic)
	assert.Equal(t, device_config.DirectionSubscribe, data.Topics[4].Direction)
}

func TestDeviceCertificates(t *testing.T) {
	bundle, _ := newBundle(t)
	engine := newTestEngine(t, bundle)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/device/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data restful.CertificateValidationOutput
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Valid)
	require.NotNil(t, data.Report)
	assert.Contains(t, data.Report.Device.Subject, device_config.DefaultThingName)
	assert.Equal(t, "RSA-2048", data.Report.KeyAlgorithm)
}

func TestDeviceCertificates_NotProvisioned(t *testing.T) {
	bundle, err := device_config.New()
	require.NoError(t, err)
	engine := newTestEngine(t, bundle)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/device/certificates", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data restful.CertificateValidationOutput
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Valid)
	assert.Equal(t, cerrors.ErrEmptyCertificate.Code, data.Code)
}

func TestValidateCertificates(t *testing.T) {
	bundle, pki := newBundle(t)
	engine := newTestEngine(t, bundle)
	other := testutil.NewPKI(t)

	body, err := json.Marshal(map[string]string{
		"root_ca":            pki.RootCA,
		"device_cert":        pki.DeviceCert,
		"device_private_key": other.DevicePrivateKey,
	})
	require.NoError(t, err)

	rec, env := do(t, engine, http.MethodPost, "/api/v1/device/certificates/validate", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "PRIVATE KEY")

	var data restful.CertificateValidationOutput
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Valid)
	assert.Equal(t, cerrors.ErrKeyMismatch.Code, data.Code)

	rec, env = do(t, engine, http.MethodPost, "/api/v1/device/certificates/validate", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, cerrors.ErrGenericBadRequest.Code, env.Code)
}

func TestDeviceService_NoBundle(t *testing.T) {
	engine := newTestEngine(t, nil)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/device/config", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, cerrors.ErrDeviceConfigNotLoaded.Code, env.Code)
}

func TestHealthcheck(t *testing.T) {
	bundle, _ := newBundle(t)
	engine := newTestEngine(t, bundle)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data restful.HealthcheckOutput
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Device.Loaded)
	assert.True(t, data.Device.CertificatesValid)
	assert.Equal(t, device_config.DefaultThingName, data.Device.ThingName)
	assert.Equal(t, "connected", data.Device.MQTT)
	assert.NotZero(t, data.Memory.Total)
}

func TestNoRoute(t *testing.T) {
	engine := newTestEngine(t, nil)

	rec, env := do(t, engine, http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, cerrors.ErrGenericUnknownAPIPath.Code, env.Code)
}

func TestRequestID_Reused(t *testing.T) {
	engine := newTestEngine(t, nil)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/device/topics", nil)
	req.Header.Set(constants.HeaderXRequestID, id)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, id, rec.Header().Get(constants.HeaderXRequestID))
}
