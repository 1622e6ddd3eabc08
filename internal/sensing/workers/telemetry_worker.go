package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"airsentry/internal/infra/async"
	"airsentry/internal/infra/mqtt"
	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/store"
)

var (
	fusedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airsentry_fused_value",
		Help: "Latest fused sensor reading, labelled by field.",
	}, []string{"field"})
	metricGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "airsentry_derived_value",
		Help: "Latest derived air-quality metric, labelled by field.",
	}, []string{"field"})
)

// TelemetryWorker fans the station state out to every consumer: the internal
// broker (websocket hub), the MQTT uplink and the Prometheus registry.
type TelemetryWorker struct {
	ticker      *time.Ticker
	store       *store.Store
	broker      async.InternalBroker
	publisher   mqtt.Client // nil when no uplink is configured
	topicPrefix string
}

var _ async.Worker = (*TelemetryWorker)(nil)

func NewTelemetryWorker(
	interval time.Duration,
	st *store.Store,
	broker async.InternalBroker,
	publisher mqtt.Client,
	topicPrefix string,
) *TelemetryWorker {
	return &TelemetryWorker{
		ticker:      time.NewTicker(interval),
		store:       st,
		broker:      broker,
		publisher:   publisher,
		topicPrefix: topicPrefix,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context, done func()) {
	defer done()
	slog.Info("telemetry worker initialized")
	for {
		select {
		case <-ctx.Done():
			slog.Info("telemetry worker cancelled")
			return
		case <-w.ticker.C:
			w.publish(ctx)
		}
	}
}

func (w *TelemetryWorker) publish(ctx context.Context) {
	snapshot := w.store.Snapshot()

	err := w.broker.Publish(ctx, async.BrokerTopicName("snapshots"), async.BrokerMessage{
		Event: "snapshot_published",
		Value: snapshot,
	})
	if err != nil && !errors.Is(err, async.ErrTopicNotFound) {
		slog.Warn("publishing snapshot to internal broker", slog.Any("error", err))
	}

	w.updateGauges(snapshot)

	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(w.topicPrefix+"/readings", snapshot.Fused); err != nil {
		slog.Warn("publishing fused readings", slog.Any("error", err))
	}
	if err := w.publisher.Publish(w.topicPrefix+"/metrics", snapshot.Metrics); err != nil {
		slog.Warn("publishing derived metrics", slog.Any("error", err))
	}
}

func (w *TelemetryWorker) updateGauges(snapshot store.State) {
	setSample(fusedGauge, "temperature_celsius", snapshot.Fused.Temperature)
	setSample(fusedGauge, "humidity_percent", snapshot.Fused.Humidity)
	setSample(fusedGauge, "pressure_pa", snapshot.Fused.PressurePa)
	setSample(fusedGauge, "pm1_ugm3", snapshot.Fused.PM1)
	setSample(fusedGauge, "pm2_5_ugm3", snapshot.Fused.PM25)
	setSample(fusedGauge, "pm10_ugm3", snapshot.Fused.PM10)
	setSample(fusedGauge, "co2_ppm", snapshot.Fused.CO2)

	setSample(metricGauge, "aqi", snapshot.Metrics.AQI)
	setSample(metricGauge, "co2_score", snapshot.Metrics.CO2Score)
	setSample(metricGauge, "comfort_score", snapshot.Metrics.ComfortScore)
	setSample(metricGauge, "overall_index", snapshot.Metrics.OverallIndex)
	setSample(metricGauge, "mold_risk", snapshot.Metrics.MoldRisk)
	setSample(metricGauge, "dew_point_celsius", snapshot.Metrics.DewPoint)
}

func setSample(vec *prometheus.GaugeVec, field string, s domain.Sample) {
	if !s.Valid {
		vec.DeleteLabelValues(field)
		return
	}
	vec.WithLabelValues(field).Set(s.Value)
}

func (w *TelemetryWorker) Shutdown() {
	w.ticker.Stop()
}
