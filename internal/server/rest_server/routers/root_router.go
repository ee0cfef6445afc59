package routers

import (
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/routers/v1/restful"
	"github.com/gin-gonic/gin"
)

type RootRouter struct {
	appState *AppState
}

func NewRootRouter(appState *AppState) *RootRouter {
	return &RootRouter{
		appState: appState,
	}
}

func (rr *RootRouter) InitRouters(engine *gin.Engine) {
	rootAPIRouter := engine.Group("/api")
	v1Router := rootAPIRouter.Group("/v1")
	{
		healthcheckRouter := restful.NewHealthcheckRouter(rr.appState.GetV1RestState().GetHealthcheckService())
		healthcheckRouter.Routes(v1Router)

		deviceRouter := restful.NewDeviceRouter(rr.appState.GetV1RestState().GetDeviceService())
		deviceRouter.Routes(v1Router)
	}
}
