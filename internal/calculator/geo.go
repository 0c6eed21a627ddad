package calculator

import "math"

const earthRadiusM = 6371000.0

// haversineMeters computes the great-circle distance between two lat/lon
// points. This is the Calculator's distance path — deliberately distinct
// from the detector's fixed-constant planar approximation.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// efficiencyKmPerKWh converts a cumulative distance (meters) and energy
// (joules) pair into km/kWh.
func efficiencyKmPerKWh(distanceM, energyJ float64) float64 {
	if energyJ <= 0 {
		return 0
	}
	return (distanceM / 1000) / (energyJ / 3.6e6)
}
