package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plantwatch/plantwatch/internal/config"
	"github.com/plantwatch/plantwatch/internal/health"
	"github.com/plantwatch/plantwatch/pkg/types"
)

const exporterMetrics = `
# HELP plant_soil_moisture Raw capacitive soil moisture reading.
# TYPE plant_soil_moisture gauge
plant_soil_moisture{sensor="pot-1"} 310
# HELP plant_temperature_celsius Air temperature.
# TYPE plant_temperature_celsius gauge
plant_temperature_celsius 21.5
# HELP plant_humidity_percent Relative humidity.
# TYPE plant_humidity_percent gauge
plant_humidity_percent 48
# HELP plant_light_intensity Light level.
# TYPE plant_light_intensity gauge
plant_light_intensity 610
# TYPE plant_water_now gauge
plant_water_now 1
# TYPE plant_watering_confidence gauge
plant_watering_confidence 0.9
# TYPE plant_next_watering_timestamp_seconds gauge
plant_next_watering_timestamp_seconds 1767225600
# TYPE plant_anomaly_detected gauge
plant_anomaly_detected 0
`

func TestHTTPProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dashboard_data" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current_readings":{"soil_moisture":640},"health_score":91}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/dashboard_data", srv.Client())
	raw, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	s, err := Normalize(raw, now)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if s.SoilMoisture != 640 || s.HealthScore != 91 {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestHTTPProvider_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPProvider(srv.URL, srv.Client()).Fetch(context.Background())
	if !errors.Is(err, types.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
}

func TestHTTPProvider_BadJSON(t *testing.T) {
	for _, body := range []string{`{"soil_moisture":`, `[1,2,3]`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := NewHTTPProvider(srv.URL, srv.Client()).Fetch(context.Background())
		srv.Close()
		if !errors.Is(err, types.ErrMalformedInput) {
			t.Errorf("body %q: error = %v, want ErrMalformedInput", body, err)
		}
	}
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPProvider(url, nil).Fetch(context.Background())
	if !errors.Is(err, types.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
}

func TestPrometheusProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(exporterMetrics))
	}))
	defer srv.Close()

	raw, err := NewPrometheusProvider(srv.URL, srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	s, err := Normalize(raw, now)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if s.SoilMoisture != 310 || s.Temperature != 21.5 || s.Humidity != 48 || s.LightIntensity != 610 {
		t.Errorf("readings = %+v", s)
	}
	if !s.WateringPrediction.WaterNow || s.WateringPrediction.Confidence != 0.9 {
		t.Errorf("WateringPrediction = %+v", s.WateringPrediction)
	}
	if s.WateringPrediction.NextWateringAt.Unix() != 1767225600 {
		t.Errorf("NextWateringAt = %v", s.WateringPrediction.NextWateringAt)
	}
	if s.AnomalyDetected {
		t.Error("AnomalyDetected = true, want false")
	}

	// No plant_health_score gauge: derived from the readings.
	want := health.Score(health.Input{SoilMoisture: 310, Temperature: 21.5, Humidity: 48, LightIntensity: 610})
	if s.HealthScore != want {
		t.Errorf("HealthScore = %v, want derived %v", s.HealthScore, want)
	}
}

func TestPrometheusProvider_ExplicitHealthGauge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(exporterMetrics + "# TYPE plant_health_score gauge\nplant_health_score 42\n"))
	}))
	defer srv.Close()

	raw, err := NewPrometheusProvider(srv.URL, srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := raw["health_score"]; got != float64(42) {
		t.Errorf("health_score = %v, want 42", got)
	}
}

func TestPrometheusProvider_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewPrometheusProvider(srv.URL, srv.Client()).Fetch(context.Background())
	if !errors.Is(err, types.ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
}

func TestNew_ProviderType(t *testing.T) {
	cases := []struct {
		typ     string
		wantErr bool
	}{
		{"http", false},
		{"prometheus", false},
		{"", false},
		{"mqtt", true},
	}
	for _, tc := range cases {
		p, err := New(config.TelemetryConfig{Type: tc.typ, Endpoint: "http://localhost:5000/dashboard_data"})
		if (err != nil) != tc.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tc.typ, err, tc.wantErr)
		}
		if !tc.wantErr && p == nil {
			t.Errorf("New(%q) returned nil provider", tc.typ)
		}
	}
}
