package mailbox

import "time"

const (
	// AverageWindow is the trailing window the rolling average is computed over.
	AverageWindow = 60 * time.Second

	// DefaultUpperThreshold is the baseline offset given to a sensor on first sight.
	DefaultUpperThreshold = 50.0
	// DefaultThresholdSensitivity is the sensitivity given to a sensor on first sight.
	DefaultThresholdSensitivity = 50.0
)

// WeightSample is a single weight reading. It is never updated once stored.
type WeightSample struct {
	Timestamp time.Time
	SensorID  string
	Value     float64
}

// AlarmSample is a single tamper alarm reading. It is never updated once stored.
type AlarmSample struct {
	Timestamp time.Time
	SensorID  string
	Value     string
}

// Thresholds is the per-sensor configuration used by package detection.
type Thresholds struct {
	// UpperThreshold is the offset above the rolling average a sample must exceed.
	UpperThreshold float64
	// Sensitivity is subtracted from the package weight to derive the tamper tripwire.
	Sensitivity float64
}

// DefaultThresholds returns the values used when a sensor is first seen.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UpperThreshold: DefaultUpperThreshold,
		Sensitivity:    DefaultThresholdSensitivity,
	}
}

// Decision is the outcome of evaluating a weight sample against its baseline.
type Decision struct {
	// Weight is the measured value.
	Weight float64
	// AverageWeight is the rolling average including the sample itself.
	AverageWeight float64
	// PackageThreshold is AverageWeight + UpperThreshold.
	PackageThreshold float64
	// PackageDetected is true when Weight exceeds PackageThreshold.
	PackageDetected bool
	// PackageWeight is Weight - AverageWeight.
	PackageWeight float64
	// ArmThreshold is Weight - Sensitivity, the tripwire for the actuator.
	ArmThreshold float64
}

// Evaluate applies the package-detection rule to a weight sample.
func Evaluate(weight, average float64, thresholds Thresholds) Decision {
	decision := Decision{
		Weight:           weight,
		AverageWeight:    average,
		PackageThreshold: average + thresholds.UpperThreshold,
	}

	if weight <= decision.PackageThreshold {
		return decision
	}

	decision.PackageDetected = true
	decision.PackageWeight = weight - average
	decision.ArmThreshold = weight - thresholds.Sensitivity

	return decision
}
