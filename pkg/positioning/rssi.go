package positioning

import "math"

// ReferenceRSSI is the calibrated signal strength at one meter.
const ReferenceRSSI = -59

// Path-loss curve coefficients. These are calibration constants, not a
// physical model; changing them breaks compatibility with surveyed venues.
const (
	curveCoefficient = 0.89976
	curveExponent    = 7.7095
	curveIntercept   = 0.111
	nearExponent     = 10
)

// DistanceFromRSSI converts a signal strength into meters using the
// reference-calibrated curve. Non-negative RSSI values carry no distance
// information and return -1.
func DistanceFromRSSI(rssi, reference int) float64 {
	if rssi >= 0 || reference >= 0 {
		return -1
	}
	ratio := float64(rssi) / float64(reference)
	if ratio < 1 {
		return math.Pow(ratio, nearExponent)
	}
	return curveCoefficient*math.Pow(ratio, curveExponent) + curveIntercept
}

// Accuracy radius limits in meters.
const (
	minAccuracy          = 0.5
	accuracyPerBeacon    = 0.5
	centroidAccuracyGain = 2.0
)

// AccuracyFromRSSI maps the mean RSSI of the beacons used to an accuracy
// radius. Each beacon past the second tightens the radius by half a meter,
// down to a 0.5m floor.
func AccuracyFromRSSI(meanRSSI float64, beaconCount int) float64 {
	var base float64
	switch {
	case meanRSSI > -50:
		base = 1.0
	case meanRSSI > -60:
		base = 2.0
	case meanRSSI > -70:
		base = 3.5
	default:
		base = 5.0
	}
	acc := base - accuracyPerBeacon*math.Max(0, float64(beaconCount-2))
	return math.Max(acc, minAccuracy)
}
