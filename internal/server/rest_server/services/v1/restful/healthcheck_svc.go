package restful

import (
	"context"
	"time"

	"github.com/asistiot/asistiot-agent/internal/api_response"
	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IHealthcheckService interface {
	Healthcheck(ctx *gin.Context, input *HealthcheckInput) (*api_response.BaseOutput, *cerrors.AppError)
}

type HealthcheckService struct {
	logger        *log.Logger
	bundle        *device_config.Bundle
	mqttConnected func() bool
}

func WithHealthcheckBundle(b *device_config.Bundle) func(*HealthcheckService) {
	return func(svc *HealthcheckService) { svc.bundle = b }
}

// WithMQTTStatus reports the broker connection state. Without it the MQTT
// consumer is reported as disabled.
func WithMQTTStatus(fn func() bool) func(*HealthcheckService) {
	return func(svc *HealthcheckService) { svc.mqttConnected = fn }
}

func NewHealthcheckService(options ...func(*HealthcheckService)) *HealthcheckService {
	svc := &HealthcheckService{}
	for _, opt := range options {
		opt(svc)
	}
	logger := log.MustNewECSLogger()
	svc.logger = logger
	return svc
}

type HealthcheckInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
}

type HealthcheckOutput struct {
	Host    HostInfo    `json:"host"`
	Memory  MemoryInfo  `json:"memory"`
	Network NetworkInfo `json:"network"`
	CPU     CPUInfo     `json:"cpu"`
	Device  DeviceInfo  `json:"device"`
}

type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

type NetworkInfo struct {
	PhysicalMacs []string `json:"physical_macs"`
}

type HostInfo struct {
	Hostname             string `json:"hostname"`
	OS                   string `json:"os"`
	Platform             string `json:"platform"`
	PlatformFamily       string `json:"platform_family"`
	PlatformVersion      string `json:"platform_version"`
	KernelVersion        string `json:"kernel_version"`
	Arch                 string `json:"arch"`
	VirtualizationSystem string `json:"virtualization_system"`
	VirtualizationRole   string `json:"virtualization_role"`
	HostID               string `json:"host_id"`
	Uptime               uint64 `json:"uptime"`
}

type CPUInfo struct {
	ModelName     string `json:"model_name"`
	VendorID      string `json:"vendor_id"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
}

type DeviceInfo struct {
	Loaded            bool   `json:"loaded"`
	ThingName         string `json:"thing_name,omitempty"`
	Endpoint          string `json:"endpoint,omitempty"`
	CertificatesValid bool   `json:"certificates_valid"`
	CertificatesError string `json:"certificates_error,omitempty"`
	MQTT              string `json:"mqtt"`
}

const (
	mqttStatusDisabled     = "disabled"
	mqttStatusConnected    = "connected"
	mqttStatusDisconnected = "disconnected"
)

func (svc *HealthcheckService) Healthcheck(ctx *gin.Context, input *HealthcheckInput) (*api_response.BaseOutput, *cerrors.AppError) {
	rootCtx, span := input.Tracer.Start(input.TracerCtx, "healthcheck-handler")
	defer span.End()

	resp := &api_response.BaseOutput{}
	lg := svc.logger.With(
		zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
	)

	_, cSpan := input.Tracer.Start(rootCtx, "get-host-info")
	hostStat, err := host.InfoWithContext(rootCtx)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get host info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}
	cSpan.End()

	_, cSpan = input.Tracer.Start(rootCtx, "get-memory-info")
	memoryInfo, err := mem.VirtualMemoryWithContext(rootCtx)
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get memory info")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}
	cSpan.End()

	_, cSpan = input.Tracer.Start(rootCtx, "get-net-info")
	physicalMacs, err := utilities.RetrievePhysicalMacAddr()
	if err != nil {
		cSpan.End()
		wErr := errors.Wrap(err, "failed to get physical mac addresses")
		lg.Error(wErr.Error())
		return nil, cerrors.ErrGenericInternalServer
	}
	cSpan.End()

	// cpu details are best effort, some platforms expose no model info
	_, cSpan = input.Tracer.Start(rootCtx, "get-cpu-info")
	cpuInfo := CPUInfo{}
	if cpuStat, err := cpu.InfoWithContext(rootCtx); err == nil && len(cpuStat) > 0 {
		cpuInfo.ModelName = cpuStat[0].ModelName
		cpuInfo.VendorID = cpuStat[0].VendorID
	}
	if n, err := cpu.CountsWithContext(rootCtx, false); err == nil {
		cpuInfo.PhysicalCores = n
	}
	if n, err := cpu.CountsWithContext(rootCtx, true); err == nil {
		cpuInfo.LogicalCores = n
	}
	cSpan.End()

	_, cSpan = input.Tracer.Start(rootCtx, "get-device-info")
	deviceInfo := svc.deviceInfo()
	cSpan.End()

	respData := HealthcheckOutput{
		Host: HostInfo{
			Hostname:             hostStat.Hostname,
			OS:                   hostStat.OS,
			Platform:             hostStat.Platform,
			PlatformFamily:       hostStat.PlatformFamily,
			PlatformVersion:      hostStat.PlatformVersion,
			KernelVersion:        hostStat.KernelVersion,
			Arch:                 hostStat.KernelArch,
			VirtualizationSystem: hostStat.VirtualizationSystem,
			VirtualizationRole:   hostStat.VirtualizationRole,
			HostID:               hostStat.HostID,
			Uptime:               hostStat.Uptime,
		},
		Memory: MemoryInfo{
			Total:       memoryInfo.Total,
			Free:        memoryInfo.Free,
			UsedPercent: memoryInfo.UsedPercent,
		},
		Network: NetworkInfo{
			PhysicalMacs: physicalMacs,
		},
		CPU:    cpuInfo,
		Device: deviceInfo,
	}

	resp.Code = cerrors.OK.Code
	resp.Message = cerrors.OK.Message
	resp.Data = respData

	return resp, nil
}

func (svc *HealthcheckService) deviceInfo() DeviceInfo {
	info := DeviceInfo{MQTT: mqttStatusDisabled}
	if svc.mqttConnected != nil {
		info.MQTT = mqttStatusDisconnected
		if svc.mqttConnected() {
			info.MQTT = mqttStatusConnected
		}
	}
	if svc.bundle == nil {
		return info
	}
	info.Loaded = true
	info.ThingName = svc.bundle.ThingName()
	info.Endpoint = svc.bundle.Endpoint()
	if _, err := svc.bundle.Certificates().Inspect(time.Now()); err != nil {
		info.CertificatesError = cerrors.MessageOf(err)
	} else {
		info.CertificatesValid = true
	}
	return info
}
