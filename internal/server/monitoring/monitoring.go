package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arl/statsviz"
	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func getMonitoringPort() int {
	port := viper.GetInt(config.AgentMonitoringPort)
	if port <= 0 {
		return constants.AgentDefaultMonitoringPort
	}
	return port
}

// NewHandler serves the statsviz dashboard under /debug/statsviz/.
func NewHandler() (http.Handler, error) {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return nil, errors.Wrap(err, "failed to register statsviz")
	}
	return mux, nil
}

func NewMonitoringServer(ctx context.Context) error {
	log.Default().Info("Starting monitoring server")
	handler, err := NewHandler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", getMonitoringPort()),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Default().Info("Shutting down monitoring server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GraceWaitPeriod)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err = <-errCh:
		log.Default().Error(errors.Wrap(err, "failed to start monitoring server").Error())
		return err
	}
}
