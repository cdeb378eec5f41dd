package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ImbalanceReport holds population variance and standard deviation of the four
// balanced dimensions across all agent books. Used both as a scoring objective
// term and as a reporting metric.
type ImbalanceReport struct {
	CountVariance     float64
	NeedinessVariance float64
	RevenueVariance   float64
	PriorityVariance  float64
	CountStd          float64
	NeedinessStd      float64
	RevenueStd        float64
	PriorityStd       float64
}

// Imbalance computes the imbalance metrics over the given books.
func Imbalance(books Books) ImbalanceReport {
	counts := make([]float64, 0, len(books))
	neediness := make([]float64, 0, len(books))
	revenue := make([]float64, 0, len(books))
	priority := make([]float64, 0, len(books))

	for _, book := range books {
		counts = append(counts, float64(book.Count))
		neediness = append(neediness, book.Neediness)
		revenue = append(revenue, book.Revenue)
		priority = append(priority, book.Priority)
	}

	report := ImbalanceReport{
		CountVariance:     popVariance(counts),
		NeedinessVariance: popVariance(neediness),
		RevenueVariance:   popVariance(revenue),
		PriorityVariance:  popVariance(priority),
	}
	report.CountStd = math.Sqrt(report.CountVariance)
	report.NeedinessStd = math.Sqrt(report.NeedinessVariance)
	report.RevenueStd = math.Sqrt(report.RevenueVariance)
	report.PriorityStd = math.Sqrt(report.PriorityVariance)
	return report
}

// MeanCount returns the mean book size across agents.
func MeanCount(books Books) float64 {
	if len(books) == 0 {
		return 0
	}
	counts := make([]float64, 0, len(books))
	for _, book := range books {
		counts = append(counts, float64(book.Count))
	}
	return stat.Mean(counts, nil)
}

// popVariance is the population (not sample) variance.
func popVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
