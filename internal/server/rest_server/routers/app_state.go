package routers

import (
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/services/v1/restful"
)

type V1Rest struct {
	healthcheck *restful.HealthcheckService
	device      *restful.DeviceService
}

func NewV1RestState() *V1Rest {
	return &V1Rest{}
}

func (svc *V1Rest) SetDeviceService(device *restful.DeviceService) {
	svc.device = device
}

func (svc *V1Rest) GetDeviceService() *restful.DeviceService {
	return svc.device
}

func (svc *V1Rest) SetHealthcheckService(healthcheck *restful.HealthcheckService) {
	svc.healthcheck = healthcheck
}

func (svc *V1Rest) GetHealthcheckService() *restful.HealthcheckService {
	return svc.healthcheck
}

type AppState struct {
	v1Rest *V1Rest
}

func NewAppState() *AppState {
	return &AppState{}
}

func (svc *AppState) SetV1RestState(v1Rest *V1Rest) {
	svc.v1Rest = v1Rest
}

func (svc *AppState) GetV1RestState() *V1Rest {
	return svc.v1Rest
}
