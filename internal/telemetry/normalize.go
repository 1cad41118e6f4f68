package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// epochMillisThreshold separates second from millisecond epochs. Any epoch
// below it is taken to be in seconds.
const epochMillisThreshold = 1e12

// Field aliases, snake_case first.
var (
	keysReadings   = []string{"current_readings", "currentReadings"}
	keysSoil       = []string{"soil_moisture", "soilMoisture"}
	keysTemp       = []string{"temperature"}
	keysHumidity   = []string{"humidity"}
	keysLight      = []string{"light_intensity", "lightIntensity"}
	keysHealth     = []string{"health_score", "healthScore"}
	keysPrediction = []string{"watering_prediction", "wateringPrediction"}
	keysWaterNow   = []string{"water_now", "waterNow"}
	keysConfidence = []string{"confidence"}
	keysNextWater  = []string{"next_watering", "nextWatering", "next_watering_at", "nextWateringAt"}
	keysAnomaly    = []string{"anomaly_detected", "anomalyDetected"}
	keysCaptured   = []string{"timestamp", "captured_at", "capturedAt"}
)

// Normalize converts a raw telemetry mapping into a Snapshot.
//
// Absent or unparseable fields resolve to their zero value. A missing capture
// time resolves to now. The only error is types.ErrMalformedInput, returned
// when raw is not a mapping.
func Normalize(raw any, now time.Time) (types.Snapshot, error) {
	m, ok := asMap(raw)
	if !ok {
		return types.Snapshot{}, fmt.Errorf("telemetry: normalize %T: %w", raw, types.ErrMalformedInput)
	}

	// Readings may be nested (dashboard payload) or flat (device payload).
	readings := m
	if nested, ok := asMap(lookup(m, keysReadings)); ok {
		readings = nested
	}
	reading := func(keys []string) float64 {
		if v, ok := number(lookup(readings, keys)); ok {
			return v
		}
		v, _ := number(lookup(m, keys))
		return v
	}

	s := types.Snapshot{
		SoilMoisture:   reading(keysSoil),
		Temperature:    reading(keysTemp),
		Humidity:       reading(keysHumidity),
		LightIntensity: reading(keysLight),
		CapturedAt:     now,
	}
	s.HealthScore, _ = number(lookup(m, keysHealth))
	s.AnomalyDetected, _ = boolean(lookup(m, keysAnomaly))
	if ts, ok := timestamp(lookup(m, keysCaptured)); ok {
		s.CapturedAt = ts
	}

	if p, ok := asMap(lookup(m, keysPrediction)); ok {
		s.WateringPrediction.WaterNow, _ = boolean(lookup(p, keysWaterNow))
		s.WateringPrediction.Confidence, _ = number(lookup(p, keysConfidence))
		s.WateringPrediction.NextWateringAt, _ = timestamp(lookup(p, keysNextWater))
	}

	return s, nil
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// lookup returns the first present key's value.
func lookup(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// number coerces JSON numbers, Go numerics and numeric strings to a finite
// float64.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func boolean(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		if n, ok := number(v); ok {
			return n != 0, true
		}
		return false, false
	}
}

// timestamp accepts epoch seconds, epoch milliseconds, numeric strings of
// either, and RFC 3339 strings.
func timestamp(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
			return t.UTC(), true
		}
	}
	n, ok := number(v)
	if !ok || n <= 0 {
		return time.Time{}, false
	}
	if n < epochMillisThreshold {
		n *= 1000
	}
	return time.UnixMilli(int64(math.Round(n))).UTC(), true
}
