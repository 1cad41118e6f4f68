package types

import "time"

// Snapshot is one normalized, timestamped reading of every monitored metric.
// Missing source fields are represented by their zero value, never by nil.
type Snapshot struct {
	SoilMoisture       float64            `json:"soil_moisture"`
	Temperature        float64            `json:"temperature"` // °C
	Humidity           float64            `json:"humidity"`    // %
	LightIntensity     float64            `json:"light_intensity"`
	HealthScore        float64            `json:"health_score"` // 0–100
	WateringPrediction WateringPrediction `json:"watering_prediction"`
	AnomalyDetected    bool               `json:"anomaly_detected"`
	CapturedAt         time.Time          `json:"captured_at"`
}

// WateringPrediction is the backend's watering-need estimate.
type WateringPrediction struct {
	WaterNow       bool      `json:"water_now"`
	Confidence     float64   `json:"confidence"` // 0–1
	NextWateringAt time.Time `json:"next_watering_at"`
}
