package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/asistiot/asistiot-agent/internal/agent/device_link"
	"github.com/asistiot/asistiot-agent/internal/agent/device_loader"
	"github.com/asistiot/asistiot-agent/internal/config"
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/aws_config"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/local_cache"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/log"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/mqtt_client"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/s3_client"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/secrets_manager_client"
	"github.com/asistiot/asistiot-agent/internal/infrastructure/tracer_client"
	"github.com/asistiot/asistiot-agent/internal/server/monitoring"
	"github.com/asistiot/asistiot-agent/internal/server/rest_server"
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/routers"
	"github.com/asistiot/asistiot-agent/internal/server/rest_server/services/v1/restful"
	"github.com/asistiot/asistiot-agent/internal/utilities"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var once sync.Once

func mirrorEnvCase() {
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		k, v := kv[:i], kv[i+1:]
		_ = os.Setenv(strings.ToUpper(k), v)
		_ = os.Setenv(strings.ToLower(k), v)
	}
}

func loadDotenvIfExists(filename string, overload bool) (bool, error) {
	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if overload {
		return true, godotenv.Overload(filename)
	}
	return true, godotenv.Load(filename)
}

func readConfigIfExists(path string, merge bool) (bool, error) {
	viper.SetConfigFile(path)
	var err error
	if merge {
		err = viper.MergeInConfig()
	} else {
		err = viper.ReadInConfig()
	}
	if err == nil {
		return true, nil
	}
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) || os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func detectProfile() string {
	from := func(k string) (string, bool) {
		if v, ok := os.LookupEnv(k); ok {
			return strings.ToLower(v), true
		}
		if v, ok := os.LookupEnv(strings.ToUpper(k)); ok {
			return strings.ToLower(v), true
		}
		if v, ok := os.LookupEnv(strings.ToLower(k)); ok {
			return strings.ToLower(v), true
		}
		return "", false
	}
	if v, ok := from("APP_ENV"); ok {
		return v
	}
	return "dev"
}

func Load() error {
	envFound, err := loadDotenvIfExists(".env", false)
	if err != nil {
		return err
	}
	if envFound {
		mirrorEnvCase()
	}
	profile := detectProfile()

	if pfFound, err := loadDotenvIfExists("."+profile+".env", true); err != nil {
		return err
	} else if pfFound {
		mirrorEnvCase()
	}

	cfgFound, err := readConfigIfExists("conf/config.toml", false)
	if err != nil {
		return err
	}

	if !envFound && !cfgFound {
		return fmt.Errorf("no configuration sources found: missing both .env and conf/config.toml")
	}

	if _, err := readConfigIfExists("conf/"+profile+".config.toml", true); err != nil {
		return err
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	return nil
}

func init() {
	once.Do(func() {
		err := Load()
		if err != nil {
			panic(fmt.Sprintf("Failed to setup service configuration: %v", err))
		}

		// Init default logger
		err = log.InitDefault()
		if err != nil {
			panic(err)
		}

		if viper.GetBool(config.ProvisioningEnableS3) {
			log.Default().Info("Started initializing client connection to external S3 storage")
			err = s3_client.NewS3Client(
				context.Background(),
				aws_config.WithRegion(viper.GetString(config.S3Region)),
				aws_config.WithEndpoint(viper.GetString(config.S3Endpoint), viper.GetBool(config.S3UsePathStyle)),
				aws_config.WithStaticCredentials(viper.GetString(config.S3AccessKey), viper.GetString(config.S3SecretKey), ""),
				aws_config.WithRetry(5, 30*time.Second),
				aws_config.WithHTTPClient(
					&http.Client{
						Transport: &http.Transport{
							TLSClientConfig: &tls.Config{
								InsecureSkipVerify: viper.GetBool(config.S3TLSInsecureSkipVerify),
							},
						},
					},
				),
			)
			if err != nil {
				log.Default().Fatal(fmt.Sprintf("Failed to initialize client connection to external S3 storage: %v", err))
			}
			log.Default().Info("Finished initializing client connection to external S3 storage")
		}

		if viper.GetBool(config.ProvisioningEnableSecretsManager) {
			log.Default().Info("Started initializing client connection to AWS Secrets Manager")
			err = secrets_manager_client.NewSecretsManagerClient(
				context.Background(),
				aws_config.WithRegion(viper.GetString(config.SecretsManagerRegion)),
				aws_config.WithEndpoint(viper.GetString(config.SecretsManagerEndpoint), false),
				aws_config.WithRetry(5, 30*time.Second),
			)
			if err != nil {
				log.Default().Fatal(fmt.Sprintf("Failed to initialize client connection to AWS Secrets Manager: %v", err))
			}
			log.Default().Info("Finished initializing client connection to AWS Secrets Manager")
		}

		// Initialize OTEL tracer if enabled
		if viper.GetBool(config.AgentEnableTracing) {
			log.Default().Info("Started initializing OTEL tracer")
			timeout, err := utilities.ParseOrDefault(viper.GetString(config.TracingTimeout), constants.TracerDefaultInitTimeout)
			if err != nil {
				log.Default().Fatal(fmt.Sprintf("Invalid %s: %v", config.TracingTimeout, err))
			}
			_, err = tracer_client.NewTracerClient(tracer_client.WithTimeout(timeout))
			if err != nil {
				log.Default().Fatal(fmt.Sprintf("Failed to initialize OTEL tracer: %v", err))
			}
			log.Default().Info("Finished initializing OTEL tracer")
		}

		// Initialize local cache
		log.Default().Info("Started initializing local cache")
		err = local_cache.NewLocalCache()
		if err != nil {
			log.Default().Fatal(fmt.Sprintf("Failed to initialize local cache: %v", err))
		}
		log.Default().Info("Finished initializing local cache")
		log.Default().Info("Finished initializing connection to external services")
	})
}

func main() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	defer func() {
		_ = tracer_client.Shutdown(context.Background())
		_ = log.Sync()
	}()

	parentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the device configuration bundle
	bundle, err := device_loader.LoadBundle(parentCtx,
		device_loader.WithSources(device_loader.SourcesFromViper(local_cache.Cache())...),
	)
	if err != nil {
		log.Default().Fatal("Failed to load device configuration", zap.Error(err))
		return
	}

	g, ctx := errgroup.WithContext(parentCtx)

	// Init AWS IoT device link
	mqttEnabled := viper.GetBool(config.AgentEnableMQTT)
	if mqttEnabled {
		g.Go(func() error {
			lErr := device_link.Run(ctx, bundle)
			if lErr != nil {
				return errors.Wrap(lErr, "device link stopped")
			}
			return ctx.Err()
		})
	}

	// Init profiling
	g.Go(func() error {
		if viper.GetBool(config.AgentEnableMonitoring) {
			mErr := monitoring.NewMonitoringServer(ctx)
			if mErr != nil {
				return mErr
			}
		}

		return ctx.Err()
	})

	// Init HTTP server
	g.Go(func() error {
		// app state
		appState := routers.NewAppState()

		// v1 restful svc
		healthOpts := []func(*restful.HealthcheckService){restful.WithHealthcheckBundle(bundle)}
		if mqttEnabled {
			healthOpts = append(healthOpts, restful.WithMQTTStatus(mqtt_client.IsConnected))
		}
		v1RestState := routers.NewV1RestState()
		v1RestState.SetHealthcheckService(
			restful.NewHealthcheckService(healthOpts...),
		)
		v1RestState.SetDeviceService(
			restful.NewDeviceService(restful.WithDeviceBundle(bundle)),
		)
		appState.SetV1RestState(v1RestState)

		rErr := rest_server.NewHTTPServer(ctx, routers.NewRootRouter(appState).InitRouters)
		if rErr != nil {
			return rErr
		}
		return ctx.Err()
	})

	select {
	case sig := <-sigCh:
		log.Default().Debug(fmt.Sprintf("Signal received: %v", sig))
		cancel()

		done := make(chan error, 1)
		go func() {
			done <- g.Wait()
		}()

		select {
		case <-done:
			log.Default().Info("All tasks exited, shutting down agent")
			return
		case sig2 := <-sigCh:
			log.Default().Debug(fmt.Sprintf("Second signal received: %v", sig2))
			return
		case <-time.After(constants.GraceWaitPeriod):
			log.Default().Info("Grace period timed out, forcing exit")
			return
		}

	case err = <-func() chan error {
		ch := make(chan error, 1)
		go func() {
			ch <- g.Wait()
		}()
		return ch
	}():
		log.Default().Info(fmt.Sprintf("Services finished early with error: %v", err))
	}
}
