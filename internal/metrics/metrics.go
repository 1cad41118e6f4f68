package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plantwatch/plantwatch/internal/telemetry"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// Metrics holds all PlantWatch Prometheus metrics.
type Metrics struct {
	// Telemetry
	Polls               *prometheus.CounterVec
	PollDuration        prometheus.Histogram
	ConsecutiveFailures prometheus.Gauge

	// Actuation
	Actuations        *prometheus.CounterVec
	ActuationDuration *prometheus.HistogramVec

	// Alerts
	AlertsVisible  prometheus.Gauge
	AlertsOverflow prometheus.Gauge
	AlertsSurfaced *prometheus.CounterVec

	// Latest snapshot
	Reading *prometheus.GaugeVec
}

// New creates the PlantWatch metrics. They are not registered.
func New() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plantwatch_telemetry_polls_total",
			Help: "Telemetry polls by result (ok, fallback)",
		}, []string{"result"}),

		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plantwatch_telemetry_poll_duration_seconds",
			Help:    "Time spent fetching and normalizing one telemetry payload",
			Buckets: prometheus.DefBuckets,
		}),

		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plantwatch_telemetry_consecutive_failures",
			Help: "Telemetry polls failed in a row",
		}),

		Actuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plantwatch_actuations_total",
			Help: "Actuator commands by action and result (ok, transport, rejected)",
		}, []string{"action", "result"}),

		ActuationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plantwatch_actuation_duration_seconds",
			Help:    "Round trip time of actuator commands",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),

		AlertsVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plantwatch_alerts_visible",
			Help: "Alerts currently displayed",
		}),

		AlertsOverflow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plantwatch_alerts_overflow",
			Help: "Active alerts hidden by the display cap",
		}),

		AlertsSurfaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plantwatch_alerts_surfaced_total",
			Help: "Alerts that became visible, by severity",
		}, []string{"severity"}),

		Reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plantwatch_reading",
			Help: "Latest evaluated plant reading by metric",
		}, []string{"metric"}),
	}
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Polls.Describe(ch)
	m.PollDuration.Describe(ch)
	m.ConsecutiveFailures.Describe(ch)
	m.Actuations.Describe(ch)
	m.ActuationDuration.Describe(ch)
	m.AlertsVisible.Describe(ch)
	m.AlertsOverflow.Describe(ch)
	m.AlertsSurfaced.Describe(ch)
	m.Reading.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Polls.Collect(ch)
	m.PollDuration.Collect(ch)
	m.ConsecutiveFailures.Collect(ch)
	m.Actuations.Collect(ch)
	m.ActuationDuration.Collect(ch)
	m.AlertsVisible.Collect(ch)
	m.AlertsOverflow.Collect(ch)
	m.AlertsSurfaced.Collect(ch)
	m.Reading.Collect(ch)
}

// Register registers m, plus the Go runtime and process collectors, with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObservePoll records one telemetry poll. It has the signature of the
// telemetry source's observer.
func (m *Metrics) ObservePoll(o telemetry.Outcome) {
	m.PollDuration.Observe(o.Duration.Seconds())
	if o.Fallback {
		m.Polls.WithLabelValues("fallback").Inc()
		m.ConsecutiveFailures.Inc()
		return
	}
	m.Polls.WithLabelValues("ok").Inc()
	m.ConsecutiveFailures.Set(0)
}

// ObserveActuation records one dispatched command. It has the signature of
// the actuator dispatcher's observer.
func (m *Metrics) ObserveActuation(kind types.ActionKind, err error, took time.Duration) {
	result := "ok"
	switch {
	case errors.Is(err, types.ErrActuation):
		result = "rejected"
	case err != nil:
		result = "transport"
	}
	m.Actuations.WithLabelValues(string(kind), result).Inc()
	m.ActuationDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
}

// ObserveView records the displayed alert set.
func (m *Metrics) ObserveView(v types.View) {
	m.AlertsVisible.Set(float64(len(v.Alerts)))
	m.AlertsOverflow.Set(float64(v.Overflow))
}

// ObserveSurfaced counts alerts that became visible.
func (m *Metrics) ObserveSurfaced(alerts []types.Alert) {
	for _, a := range alerts {
		m.AlertsSurfaced.WithLabelValues(string(a.Severity)).Inc()
	}
}

// ObserveSnapshot records the latest readings.
func (m *Metrics) ObserveSnapshot(s types.Snapshot) {
	m.Reading.WithLabelValues("soil_moisture").Set(s.SoilMoisture)
	m.Reading.WithLabelValues("temperature").Set(s.Temperature)
	m.Reading.WithLabelValues("humidity").Set(s.Humidity)
	m.Reading.WithLabelValues("light_intensity").Set(s.LightIntensity)
	m.Reading.WithLabelValues("health_score").Set(s.HealthScore)
	m.Reading.WithLabelValues("watering_confidence").Set(s.WateringPrediction.Confidence)
}
