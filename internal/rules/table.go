package rules

import (
	"fmt"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// Rule is a static alert declaration.
type Rule struct {
	ID        string
	Metric    string // metric family, used to check band exclusivity
	Predicate func(types.Snapshot) bool
	Severity  types.Severity
	Priority  int
	// Persistent alerts cannot be dismissed by the user.
	Persistent bool
	// AutoHideAfter hides the alert this long after it surfaces. Zero disables.
	AutoHideAfter  time.Duration
	Action         types.ActionKind
	ActionLabel    string
	Title          string
	Message        func(types.Snapshot) string
	Recommendation string
}

// SuccessAutoHide is how long the "thriving" alert stays visible.
const SuccessAutoHide = 5 * time.Second

// Priorities by tier.
const (
	PriorityCritical = 1
	PriorityWarning  = 2
	PriorityInfo     = 3
	PrioritySuccess  = 4
)

// Default is the canonical rule table, in declaration order.
var Default = []Rule{
	{
		ID:             "critical-health",
		Metric:         "health",
		Predicate:      below(healthScore, 50),
		Severity:       types.SeverityCritical,
		Priority:       PriorityCritical,
		Persistent:     true,
		Title:          "Critical: Plant Health Emergency",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Plant health score is critically low (%.1f/100). Immediate action required.", s.HealthScore) },
		Recommendation: "Check all sensors and provide immediate care.",
	},
	{
		ID:          "critical-moisture-low",
		Metric:      "soil",
		Predicate:   below(soil, 200),
		Severity:    types.SeverityCritical,
		Priority:    PriorityCritical,
		Persistent:  true,
		Action:      types.ActionWater,
		ActionLabel: "Water Now",
		Title:       "Critical: Plant Dehydration",
		Message:     func(s types.Snapshot) string { return fmt.Sprintf("Soil moisture is extremely low (%.0f). The plant needs water immediately.", s.SoilMoisture) },
	},
	{
		ID:             "critical-moisture-high",
		Metric:         "soil",
		Predicate:      above(soil, 3500),
		Severity:       types.SeverityCritical,
		Priority:       PriorityCritical,
		Persistent:     true,
		Title:          "Critical: Overwatering Risk",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Soil moisture is extremely high (%.0f). Risk of root rot.", s.SoilMoisture) },
		Recommendation: "Check drainage and avoid watering.",
	},
	{
		ID:             "critical-temp-high",
		Metric:         "temperature",
		Predicate:      above(temperature, 35),
		Severity:       types.SeverityCritical,
		Priority:       PriorityCritical,
		Persistent:     true,
		Title:          "Critical: Excessive Heat",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Temperature is dangerously high (%.1f°C). Move the plant somewhere cooler.", s.Temperature) },
		Recommendation: "Move to shade and increase ventilation.",
	},
	{
		ID:             "critical-temp-low",
		Metric:         "temperature",
		Predicate:      below(temperature, 10),
		Severity:       types.SeverityCritical,
		Priority:       PriorityCritical,
		Persistent:     true,
		Title:          "Critical: Freezing Temperature",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Temperature is dangerously low (%.1f°C). Risk of frost damage.", s.Temperature) },
		Recommendation: "Move to a warmer location immediately.",
	},
	{
		ID:             "warning-health",
		Metric:         "health",
		Predicate:      halfOpen(healthScore, 50, 70),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Title:          "Warning: Plant Health Declining",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Plant health score is below optimal (%.1f/100). Monitor closely.", s.HealthScore) },
		Recommendation: "Review care routine and check all conditions.",
	},
	{
		ID:          "warning-moisture-low",
		Metric:      "soil",
		Predicate:   halfOpen(soil, 200, 400),
		Severity:    types.SeverityWarning,
		Priority:    PriorityWarning,
		Action:      types.ActionWater,
		ActionLabel: "Water Now",
		Title:       "Warning: Low Soil Moisture",
		Message:     func(s types.Snapshot) string { return fmt.Sprintf("Soil moisture is low (%.0f). Consider watering soon.", s.SoilMoisture) },
	},
	{
		ID:             "warning-moisture-high",
		Metric:         "soil",
		Predicate:      openClosed(soil, 800, 3500),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Title:          "Warning: High Soil Moisture",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Soil moisture is high (%.0f). Check drainage before next watering.", s.SoilMoisture) },
		Recommendation: "Ensure proper drainage and reduce watering frequency.",
	},
	{
		ID:             "warning-temp-high",
		Metric:         "temperature",
		Predicate:      openClosed(temperature, 30, 35),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Title:          "Warning: High Temperature",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Temperature is elevated (%.1f°C). Ensure adequate ventilation.", s.Temperature) },
		Recommendation: "Increase air circulation and provide shade.",
	},
	{
		ID:             "warning-temp-low",
		Metric:         "temperature",
		Predicate:      halfOpen(temperature, 10, 18),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Title:          "Warning: Cool Temperature",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Temperature is on the cool side (%.1f°C). Consider a warmer location.", s.Temperature) },
		Recommendation: "Move to a warmer area if the plant needs higher temperatures.",
	},
	{
		ID:             "warning-humidity-low",
		Metric:         "humidity",
		Predicate:      below(humidity, 30),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Action:         types.ActionLight,
		ActionLabel:    "Use Humidifier",
		Title:          "Warning: Very Low Humidity",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Air humidity is very low (%.0f%%). The plant may need more moisture.", s.Humidity) },
		Recommendation: "Consider misting or using a humidity tray.",
	},
	{
		ID:             "warning-humidity-high",
		Metric:         "humidity",
		Predicate:      above(humidity, 85),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Title:          "Warning: Very High Humidity",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Air humidity is very high (%.0f%%). Risk of mold growth.", s.Humidity) },
		Recommendation: "Increase ventilation to prevent mold.",
	},
	{
		ID:             "warning-light-low",
		Metric:         "light",
		Predicate:      below(light, 150),
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Action:         types.ActionLight,
		ActionLabel:    "Turn On Grow Light",
		Title:          "Warning: Insufficient Light",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Light intensity is very low (%.0f). The plant needs more light.", s.LightIntensity) },
		Recommendation: "Move to a brighter location or supplement with grow lights.",
	},
	{
		ID:     "info-watering",
		Metric: "watering",
		Predicate: func(s types.Snapshot) bool {
			return s.WateringPrediction.WaterNow && s.WateringPrediction.Confidence >= 0.85
		},
		Severity:    types.SeverityInfo,
		Priority:    PriorityInfo,
		Action:      types.ActionWater,
		ActionLabel: "Water Now",
		Title:       "Action: Watering Recommended",
		Message: func(s types.Snapshot) string {
			return fmt.Sprintf("Watering is recommended now (%.1f%% confidence).", s.WateringPrediction.Confidence*100)
		},
	},
	{
		ID:             "warning-anomaly",
		Metric:         "anomaly",
		Predicate:      func(s types.Snapshot) bool { return s.AnomalyDetected },
		Severity:       types.SeverityWarning,
		Priority:       PriorityWarning,
		Title:          "Warning: Anomaly Detected",
		Message:        func(types.Snapshot) string { return "Unusual sensor readings detected. This could be a sensor issue or abnormal plant conditions." },
		Recommendation: "Check sensor connections and plant condition. Verify readings are accurate.",
	},
	{
		ID:             "success-health",
		Metric:         "health",
		Predicate:      atLeast(healthScore, 85),
		Severity:       types.SeveritySuccess,
		Priority:       PrioritySuccess,
		AutoHideAfter:  SuccessAutoHide,
		Title:          "Excellent: Plant is Thriving",
		Message:        func(s types.Snapshot) string { return fmt.Sprintf("Plant health score is excellent (%.1f/100). Keep up the great care.", s.HealthScore) },
		Recommendation: "Continue current care routine.",
	},
}

// Lookup returns the rule with the given id from table.
func Lookup(table []Rule, id string) (Rule, bool) {
	for _, r := range table {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
