// Package analytics computes summary statistics over a window of rates.
package analytics

import (
	"cbr-rates/internal/custom_err"
	"math"
)

const (
	TrendUp   = "up"
	TrendDown = "down"
)

type Summary struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Trend  string
	Latest float64
	Oldest float64
}

// Summarize expects values ordered most recent first.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, custom_err.ErrInsufficientData
	}

	s := Summary{
		Count:  len(values),
		Min:    values[0],
		Max:    values[0],
		Latest: values[0],
		Oldest: values[len(values)-1],
	}

	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(s.Count)

	// sample std, n-1
	if s.Count > 1 {
		var sq float64
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}
		s.Std = math.Sqrt(sq / float64(s.Count-1))
	}

	s.Trend = Trend(s.Latest, s.Oldest)
	return s, nil
}

func Trend(latest, oldest float64) string {
	if latest > oldest {
		return TrendUp
	}
	return TrendDown
}
