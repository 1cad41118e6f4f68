package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/plantwatch/plantwatch/internal/health"
	"github.com/plantwatch/plantwatch/pkg/types"
)

// Gauges exposed by the plant sensor exporter.
const (
	gaugeSoilMoisture   = "plant_soil_moisture"
	gaugeTemperature    = "plant_temperature_celsius"
	gaugeHumidity       = "plant_humidity_percent"
	gaugeLightIntensity = "plant_light_intensity"
	gaugeHealthScore    = "plant_health_score"
	gaugeWaterNow       = "plant_water_now"
	gaugeConfidence     = "plant_watering_confidence"
	gaugeNextWatering   = "plant_next_watering_timestamp_seconds"
	gaugeAnomaly        = "plant_anomaly_detected"
)

// PrometheusProvider scrapes a sensor exporter's text exposition and reshapes
// it into the same payload the JSON provider returns.
type PrometheusProvider struct {
	endpoint string
	client   *http.Client
}

// NewPrometheusProvider returns a provider that scrapes endpoint with client.
// A nil client uses http.DefaultClient.
func NewPrometheusProvider(endpoint string, client *http.Client) *PrometheusProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &PrometheusProvider{endpoint: endpoint, client: client}
}

// Fetch scrapes the exporter. The health score is derived from the readings
// when the exporter does not publish one.
func (p *PrometheusProvider) Fetch(ctx context.Context) (map[string]any, error) {
	mfs, err := p.fetchMetrics(ctx)
	if err != nil {
		return nil, err
	}

	readings := map[string]any{
		"soil_moisture":   sumFamily(mfs[gaugeSoilMoisture]),
		"temperature":     sumFamily(mfs[gaugeTemperature]),
		"humidity":        sumFamily(mfs[gaugeHumidity]),
		"light_intensity": sumFamily(mfs[gaugeLightIntensity]),
	}

	var score float64
	if mf, ok := mfs[gaugeHealthScore]; ok {
		score = sumFamily(mf)
	} else {
		score = health.Score(health.Input{
			SoilMoisture:   readings["soil_moisture"].(float64),
			Temperature:    readings["temperature"].(float64),
			Humidity:       readings["humidity"].(float64),
			LightIntensity: readings["light_intensity"].(float64),
		})
	}

	payload := map[string]any{
		"current_readings": readings,
		"health_score":     score,
		"anomaly_detected": sumFamily(mfs[gaugeAnomaly]) != 0,
		"watering_prediction": map[string]any{
			"water_now":  sumFamily(mfs[gaugeWaterNow]) != 0,
			"confidence": sumFamily(mfs[gaugeConfidence]),
		},
	}
	if next := sumFamily(mfs[gaugeNextWatering]); next > 0 {
		payload["watering_prediction"].(map[string]any)["next_watering"] = next
	}
	return payload, nil
}

func (p *PrometheusProvider) fetchMetrics(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry: scrape %s: %v: %w", p.endpoint, err, types.ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telemetry: scrape %s: unexpected status %d: %w", p.endpoint, resp.StatusCode, types.ErrTransport)
	}
	return parseMetrics(io.LimitReader(resp.Body, maxPayloadBytes))
}

// parseMetrics decodes a text exposition. A partial parse that still yields
// families is accepted.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("telemetry: parse exposition: %v: %w", err, types.ErrMalformedInput)
	}
	return mfs, nil
}

// sumFamily adds up all gauge or untyped values in a family. A sensor
// exporter normally publishes one series per gauge. Returns 0 for a nil
// family.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Counter != nil:
			total += m.Counter.GetValue()
		}
	}
	return total
}
