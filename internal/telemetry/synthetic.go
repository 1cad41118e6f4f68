package telemetry

import (
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// Built-in fallback readings, published when no snapshot has ever been
// fetched successfully.
const (
	SyntheticSoilMoisture   = 520
	SyntheticTemperature    = 24.5
	SyntheticHumidity       = 62
	SyntheticLightIntensity = 450
	SyntheticHealthScore    = 87.5
	SyntheticConfidence     = 0.23
	syntheticNextWatering   = 2 * time.Hour
)

// Synthetic returns the built-in fallback snapshot captured at now.
func Synthetic(now time.Time) types.Snapshot {
	return types.Snapshot{
		SoilMoisture:   SyntheticSoilMoisture,
		Temperature:    SyntheticTemperature,
		Humidity:       SyntheticHumidity,
		LightIntensity: SyntheticLightIntensity,
		HealthScore:    SyntheticHealthScore,
		WateringPrediction: types.WateringPrediction{
			WaterNow:       false,
			Confidence:     SyntheticConfidence,
			NextWateringAt: now.Add(syntheticNextWatering),
		},
		CapturedAt: now,
	}
}
