package utils

import (
	"math"
)

// earthRadiusKm is the mean Earth radius
const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two points
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// TravelSeconds converts a distance at a constant speed into seconds
func TravelSeconds(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return distanceKm / speedKmh * 3600
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Clamp limits a value to [lo, hi]
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// RoundTo rounds a float to the given number of decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// Lerp interpolates linearly between a and b
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
