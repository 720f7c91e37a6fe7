package utils

import (
	"math"
)

// DegreeKM is the flat-earth length of one coordinate degree in kilometers
const DegreeKM = 111.0

// Clamp limits a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// DegreesToKM converts a length in coordinate degrees using the flat-earth factor
func DegreesToKM(deg float64) float64 {
	return deg * DegreeKM
}
