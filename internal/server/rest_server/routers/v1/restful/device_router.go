package restful

import (
	"context"
	"net/http"

	"github.com/asistiot/asistiot-agent/internal/api_response"
	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/device_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/tracer_client"
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/services/v1/restful"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type DeviceRouter struct {
	svc    restful.IDeviceService
	logger *log.Logger
	tracer trace.Tracer
}

func NewDeviceRouter(svc restful.IDeviceService) *DeviceRouter {
	logger := log.MustNewECSLogger()
	return &DeviceRouter{
		svc:    svc,
		logger: logger,
		tracer: tracer_client.Tracer("device"),
	}
}

func (r *DeviceRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/device")
	routes.GET("/config", r.getConfig)
	routes.GET("/topics", r.getTopics)
	routes.GET("/certificates", r.getCertificates)
	routes.POST("/certificates/validate", r.validateCertificates)
}

type validateCertificatesRequest struct {
	RootCA           string `json:"root_ca"`
	DeviceCert       string `json:"device_cert"`
	DevicePrivateKey string `json:"device_private_key"`
}

func (r *DeviceRouter) startSpan(ctx *gin.Context) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attribute.KeyValue{
		Key:   constants.APIFieldRequestID,
		Value: attribute.StringValue(ctx.GetString(constants.APIFieldRequestID)),
	}))
}

func (r *DeviceRouter) respond(ctx *gin.Context, lg *log.Logger, result *api_response.BaseOutput, appErr *cerrors.AppError) {
	resp := api_response.New[any](ctx)
	if appErr != nil {
		lg.Error(appErr.Error())
		resp.Populate(appErr.Code, appErr.Message, nil, nil, nil)
		ctx.JSON(cerrors.HTTPStatusOf(appErr), resp)
		return
	}
	resp.Populate(result.Code, result.Message, result.Data, nil, nil)
	ctx.JSON(http.StatusOK, resp)
}

func (r *DeviceRouter) requestLogger(ctx *gin.Context) *log.Logger {
	return r.logger.With(
		zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
	)
}

func (r *DeviceRouter) getConfig(ctx *gin.Context) {
	rootCtx, span := r.startSpan(ctx)
	defer span.End()

	lg := r.requestLogger(ctx)
	lg.Info("Received new device config request")

	result, appErr := r.svc.GetConfig(ctx, &restful.DeviceInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
	})
	r.respond(ctx, lg, result, appErr)
}

func (r *DeviceRouter) getTopics(ctx *gin.Context) {
	rootCtx, span := r.startSpan(ctx)
	defer span.End()

	lg := r.requestLogger(ctx)
	lg.Info("Received new device topics request")

	result, appErr := r.svc.GetTopics(ctx, &restful.DeviceInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
	})
	r.respond(ctx, lg, result, appErr)
}

func (r *DeviceRouter) getCertificates(ctx *gin.Context) {
	rootCtx, span := r.startSpan(ctx)
	defer span.End()

	lg := r.requestLogger(ctx)
	lg.Info("Received new device certificates request")

	result, appErr := r.svc.GetCertificates(ctx, &restful.DeviceInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
	})
	r.respond(ctx, lg, result, appErr)
}

func (r *DeviceRouter) validateCertificates(ctx *gin.Context) {
	rootCtx, span := r.startSpan(ctx)
	defer span.End()

	lg := r.requestLogger(ctx)
	lg.Info("Received new certificate validation request")

	req := validateCertificatesRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		r.respond(ctx, lg, nil, cerrors.ErrGenericBadRequest.WithMessage("invalid request body").WithCause(err))
		return
	}

	result, appErr := r.svc.ValidateCertificates(ctx, &restful.ValidateCertificatesInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
		Certificates: device_config.CertificateBundle{
			RootCA:           req.RootCA,
			DeviceCert:       req.DeviceCert,
			DevicePrivateKey: req.DevicePrivateKey,
		},
	})
	r.respond(ctx, lg, result, appErr)
}
