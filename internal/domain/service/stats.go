package service

import (
	"github.com/montanaflynn/stats"
)

// Statistical helpers shared by the analyzers. Every function returns a
// neutral zero on empty or degenerate input instead of an error or NaN,
// since the detectors must degrade gracefully on sparse histories.

// Mean returns the arithmetic mean of values, 0 for an empty slice
func Mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// StdDev returns the population standard deviation, 0 when undefined
func StdDev(values []float64) float64 {
	sd, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0
	}
	return sd
}

// Median returns the median with correct even/odd handling, 0 when empty
func Median(values []float64) float64 {
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return m
}

// CoefficientOfVariation returns stddev/mean, a scale-free dispersion
// measure. Returns 0 when the mean is 0 to avoid division blowup.
func CoefficientOfVariation(values []float64) float64 {
	m := Mean(values)
	if m == 0 {
		return 0
	}
	return StdDev(values) / m
}

// Regression is a least-squares fit of y against its index
type Regression struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// LinearRegression fits y = slope*i + intercept over the sample index.
// Fewer than two points, or a flat series, yields the zero Regression.
func LinearRegression(ys []float64) Regression {
	n := float64(len(ys))
	if len(ys) < 2 {
		return Regression{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Regression{}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	// R^2 = 1 - SSres/SStot; a constant series has no variance to explain
	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range ys {
		fit := slope*float64(i) + intercept
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - fit) * (y - fit)
	}
	if ssTot == 0 {
		return Regression{Slope: slope, Intercept: intercept}
	}

	return Regression{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  1 - ssRes/ssTot,
	}
}
