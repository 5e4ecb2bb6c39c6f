// Package rounding holds the half-to-even rounding rules shared by the pulse statistics.
package rounding

import "math"

// Decimals rounds v to the given number of decimal places, ties to even.
func Decimals(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.RoundToEven(v*pow) / pow
}

// ToMultiple rounds v to the nearest multiple of step, ties to even multiples.
// The result is cleaned to the precision of step so 3*0.05 prints as 0.15.
func ToMultiple(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	r := math.RoundToEven(v/step) * step
	return Decimals(r, precision(step))
}

// precision returns the number of decimal places needed to represent step.
func precision(step float64) int {
	places := 0
	for places < 10 && math.Abs(step-math.Round(step)) > 1e-9 {
		step *= 10
		places++
	}
	return places
}
