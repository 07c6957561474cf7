// Package geo scores a guessed coordinate against a target by great-circle
// distance. Everything here is pure and safe for concurrent use.
package geo

import (
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// MaxScore is awarded for a guess within ExactKm of the target.
	MaxScore = 5000

	// ExactKm is the distance at or below which a guess counts as exact.
	ExactKm = 0.025

	// CutoffKm is the distance at or beyond which a guess scores zero.
	CutoffKm = 9000.0

	// HalfLifeKm is the distance over which the score halves.
	HalfLifeKm = 1000.0
)

// ErrOutOfRange is returned by Validate for coordinates off the globe.
var ErrOutOfRange = errors.New("coordinate out of range")

// Coordinate is a point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports whether c lies within latitude [-90,90] and longitude [-180,180].
func (c Coordinate) Validate() error {
	if !finite(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v not in [-90, 90]", ErrOutOfRange, c.Latitude)
	}
	if !finite(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v not in [-180, 180]", ErrOutOfRange, c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Latitude, c.Longitude)
}

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	// Rounding can push h a hair outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Score returns the points for guessing guess when the answer is actual.
func Score(guess, actual Coordinate) int {
	return ScoreDistance(DistanceKm(guess, actual))
}

// ScoreDistance maps a distance in km onto [0, MaxScore] with exponential
// decay: MaxScore * exp(-ln2/HalfLifeKm * d), rounded to the nearest integer.
func ScoreDistance(d float64) int {
	switch {
	case d <= ExactKm:
		return MaxScore
	case d >= CutoffKm:
		return 0
	}
	return int(math.Round(MaxScore * math.Exp(-math.Ln2/HalfLifeKm*d)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
