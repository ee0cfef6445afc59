package restful

import (
	"context"
	"time"

	"github.com/asistiot/asistiot-agent/internal/api_response"
	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IDeviceService interface {
	GetConfig(ctx *gin.Context, input *DeviceInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetTopics(ctx *gin.Context, input *DeviceInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetCertificates(ctx *gin.Context, input *DeviceInput) (*api_response.BaseOutput, *cerrors.AppError)
	ValidateCertificates(ctx *gin.Context, input *ValidateCertificatesInput) (*api_response.BaseOutput, *cerrors.AppError)
}

type DeviceService struct {
	logger *log.Logger
	bundle *device_config.Bundle
	now    func() time.Time
}

func WithDeviceBundle(b *device_config.Bundle) func(*DeviceService) {
	return func(svc *DeviceService) { svc.bundle = b }
}

func NewDeviceService(options ...func(*DeviceService)) *DeviceService {
	svc := &DeviceService{now: time.Now}
	for _, opt := range options {
		opt(svc)
	}
	svc.logger = log.MustNewECSLogger().Named("device_svc")
	return svc
}

type DeviceInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
}

type ValidateCertificatesInput struct {
	TracerCtx    context.Context
	Tracer       trace.Tracer
	Certificates device_config.CertificateBundle
}

type DeviceTopicsOutput struct {
	ThingName string                     `json:"thing_name"`
	Topics    []device_config.TopicEntry `json:"topics"`
}

type CertificateValidationOutput struct {
	Valid  bool                             `json:"valid"`
	Code   string                           `json:"code,omitempty"`
	Reason string                           `json:"reason,omitempty"`
	Report *device_config.CertificateReport `json:"report,omitempty"`
}

func okOutput(data any) *api_response.BaseOutput {
	return &api_response.BaseOutput{Code: cerrors.OK.Code, Message: cerrors.OK.Message, Data: data}
}

func (svc *DeviceService) loaded() *cerrors.AppError {
	if svc.bundle == nil {
		return cerrors.ErrDeviceConfigNotLoaded
	}
	return nil
}

func (svc *DeviceService) GetConfig(ctx *gin.Context, input *DeviceInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "get-device-config")
	defer span.End()

	if appErr := svc.loaded(); appErr != nil {
		return nil, appErr
	}
	return okOutput(svc.bundle.Redacted()), nil
}

func (svc *DeviceService) GetTopics(ctx *gin.Context, input *DeviceInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "get-device-topics")
	defer span.End()

	if appErr := svc.loaded(); appErr != nil {
		return nil, appErr
	}
	return okOutput(DeviceTopicsOutput{
		ThingName: svc.bundle.ThingName(),
		Topics:    svc.bundle.Topics().Entries(),
	}), nil
}

// GetCertificates reports on the provisioned material. Invalid material is
// a valid answer, not a request failure.
func (svc *DeviceService) GetCertificates(ctx *gin.Context, input *DeviceInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "get-device-certificates")
	defer span.End()

	if appErr := svc.loaded(); appErr != nil {
		return nil, appErr
	}
	return okOutput(svc.inspect(ctx, svc.bundle.Certificates())), nil
}

func (svc *DeviceService) ValidateCertificates(ctx *gin.Context, input *ValidateCertificatesInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "validate-certificates")
	defer span.End()

	return okOutput(svc.inspect(ctx, input.Certificates)), nil
}

func (svc *DeviceService) inspect(ctx *gin.Context, certs device_config.CertificateBundle) CertificateValidationOutput {
	report, err := certs.Inspect(svc.now())
	if err != nil {
		svc.logger.Info("Certificate material rejected",
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
			zap.String("code", cerrors.CodeOf(err)),
		)
		return CertificateValidationOutput{Valid: false, Code: cerrors.CodeOf(err), Reason: cerrors.MessageOf(err)}
	}
	return CertificateValidationOutput{Valid: true, Report: report}
}
