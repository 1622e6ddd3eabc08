package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"airsentry/cmd/config"
	"airsentry/internal/infra/async"
	"airsentry/internal/infra/httpserver"
	"airsentry/internal/infra/mqtt"
	"airsentry/internal/infra/sql"
	"airsentry/internal/sensing/coordinator"
	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/driver/sim"
	"airsentry/internal/sensing/fusion"
	"airsentry/internal/sensing/httpapi"
	"airsentry/internal/sensing/metrics"
	"airsentry/internal/sensing/persistence"
	"airsentry/internal/sensing/store"
	"airsentry/internal/sensing/workers"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	logLevelMapping = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

func main() {
	configPath := pflag.String("config", "", "additional directory searched for station.yaml")
	pflag.Parse()

	cfg := config.LoadConfig(*configPath)

	level := logLevelMapping[cfg.General.LogLevel]
	baseHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level, ReplaceAttr: slogReplaceAttr})
	handler := baseHandler.WithAttrs([]slog.Attr{slog.String("version", version)})
	slog.SetDefault(slog.New(handler))
	slog.Info("🌬️ airsentry station is initializing")
	slog.Debug("config loaded", "data", cfg)

	appCtx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	orm, err := sql.NewSqliteORM(cfg.General.DatabasePath)
	if err != nil {
		slog.Error("opening settings database", slog.Any("error", err))
		panic(err)
	}
	settingsRepository, err := persistence.NewSettingsRepository(orm)
	if err != nil {
		slog.Error("initializing settings repository", slog.Any("error", err))
		panic(err)
	}
	baselineRepository, err := persistence.NewBaselineRepository(orm)
	if err != nil {
		slog.Error("initializing baseline repository", slog.Any("error", err))
		panic(err)
	}

	sensorStore := store.New()
	internalBroker := async.NewLocalBroker()

	drivers := sim.Station(sensorStore, time.Now().UnixNano())
	sensorCoordinator, err := coordinator.New(coordinatorConfig(cfg.Sensors), drivers, sensorStore, settingsRepository)
	if err != nil {
		slog.Error("initializing sensor coordinator", slog.Any("error", err))
		panic(err)
	}

	baselineLearner := fusion.NewBaselineLearner(fusion.BaselineConfig{
		WindowStartHour: cfg.Fusion.BaselineWindowStart,
		WindowEndHour:   cfg.Fusion.BaselineWindowEnd,
	}, baselineRepository)
	if err := baselineLearner.Restore(appCtx); err != nil && !errors.Is(err, fusion.ErrNoBaselineState) {
		slog.Warn("restoring CO2 baseline state", slog.Any("error", err))
	}

	fusionEngine := fusion.NewEngine(appCtx, fusionConfig(cfg.Fusion), sensorStore, baselineLearner, settingsRepository)
	fusionWorker, err := fusion.NewWorker(time.NewTicker(cfg.Fusion.Interval), fusionEngine, baselineLearner, cfg.Fusion.BaselineCommitSpec)
	if err != nil {
		slog.Error("initializing fusion worker", slog.Any("error", err))
		panic(err)
	}

	metricsEngine := metrics.NewEngine(metricsConfig(cfg.Metrics), sensorStore)
	metricsWorker := metrics.NewWorker(time.NewTicker(cfg.Metrics.Interval), metricsEngine)

	var mqttClient mqtt.Client
	if cfg.MQTTClient.Enabled {
		simpleClient, err := mqtt.NewSimpleClient(mqtt.SimpleClientOpts{
			Broker:   cfg.MQTTClient.Broker,
			ClientID: cfg.MQTTClient.ClientID,
			Username: cfg.MQTTClient.Username,
			Password: cfg.MQTTClient.Password, //pragma: allowlist secret
		})
		if err != nil {
			slog.Error("connecting MQTT uplink", slog.Any("error", err))
			panic(err)
		}
		mqttClient = simpleClient
		defer simpleClient.Disconnect()
	}

	telemetryWorker := workers.NewTelemetryWorker(
		cfg.Telemetry.Interval,
		sensorStore,
		internalBroker,
		mqttClient,
		cfg.MQTTClient.TopicPrefix,
	)

	snapshotWebSocketController := httpapi.NewSnapshotWebSocketController(internalBroker)
	httpServer := httpserver.NewServer(
		httpserver.Options{Addr: cfg.HTTP.Addr, AllowedOrigins: cfg.HTTP.AllowedOrigins},
		httpapi.NewSensorController(sensorCoordinator),
		httpapi.NewSnapshotController(sensorStore),
		httpapi.NewFusionController(fusionEngine, baselineLearner),
		snapshotWebSocketController,
	)
	go httpServer.Run()

	var wg sync.WaitGroup
	stationWorkers := []async.Worker{sensorCoordinator, fusionWorker, metricsWorker, telemetryWorker}
	for _, worker := range stationWorkers {
		wg.Add(1)
		go worker.Run(appCtx, wg.Done)
	}

	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
	<-signalChannel

	cancelFn()
	wg.Wait()
	for _, worker := range stationWorkers {
		worker.Shutdown()
	}
	snapshotWebSocketController.Close()
	httpServer.Shutdown()
	internalBroker.Stop()
	slog.Info("good bye!!!")
}

func coordinatorConfig(cfg config.SensorsConfig) coordinator.Config {
	toSensor := func(sc config.SensorConfig) coordinator.SensorConfig {
		return coordinator.SensorConfig{Warmup: sc.Warmup, Period: sc.Period}
	}

	var out coordinator.Config
	out.StartupDelay = cfg.StartupDelay
	out.QueueSize = cfg.QueueSize
	out.Sensors[domain.SensorMCUTemp] = toSensor(cfg.MCUTemp)
	out.Sensors[domain.SensorHumidity] = toSensor(cfg.Humidity)
	out.Sensors[domain.SensorPressure] = toSensor(cfg.Pressure)
	out.Sensors[domain.SensorGas] = toSensor(cfg.Gas)
	out.Sensors[domain.SensorParticulate] = toSensor(cfg.Particulate)
	out.Sensors[domain.SensorCO2] = toSensor(cfg.CO2)
	return out
}

func fusionConfig(cfg config.FusionConfig) fusion.Config {
	return fusion.Config{
		EnableTemperatureOffset: cfg.EnableTemperatureOffset,
		EnablePMCorrection:      cfg.EnablePMCorrection,
		EnableCO2Pressure:       cfg.EnableCO2Pressure,
		EnableBaseline:          cfg.EnableBaseline,
		TemperatureOffsetC:      cfg.TemperatureOffsetC,
		PMCoeffA:                cfg.PMCoeffA,
		PMCoeffB:                cfg.PMCoeffB,
		PMHumidityCeiling:       cfg.PMHumidityCeiling,
		ReferencePressureHPa:    cfg.ReferencePressureHPa,
		PressureMinHPa:          cfg.PressureMinHPa,
		PressureMaxHPa:          cfg.PressureMaxHPa,
	}
}

func metricsConfig(cfg config.MetricsConfig) metrics.Config {
	out := metrics.DefaultConfig()
	out.ComfortTargetTempC = cfg.ComfortTargetTempC
	out.ComfortTargetRH = cfg.ComfortTargetRH
	out.MoldSurfaceOffsetC = cfg.MoldSurfaceOffsetC
	out.PressureSampleEvery = cfg.PressureSampleEvery
	out.PressureWindow = cfg.PressureWindow
	out.PressureThresholdHPa = cfg.PressureThresholdHPa
	out.CO2SampleEvery = cfg.CO2SampleEvery
	out.CO2RateWindow = cfg.CO2RateWindow
	out.PMSampleEvery = cfg.PMSampleEvery
	out.PMSpikeWindow = cfg.PMSpikeWindow
	out.PMSpikeThresholdUg = cfg.PMSpikeThresholdUg
	return out
}

func slogReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
		return slog.Any(a.Key, source)
	}
	return a
}
