// Package stats computes binomial confidence intervals for label rates.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/harrison/toolgap/internal/models"
)

// Z95 is the two-sided 95% standard normal quantile
const Z95 = 1.959963984540054

var (
	// ErrEmptySample is returned when an interval is requested for a zero-total group
	ErrEmptySample = errors.New("undefined interval for empty sample")

	// ErrInvalidCount is returned for negative counts or successes above total
	ErrInvalidCount = errors.New("invalid binomial count")
)

// Wilson returns the 95% Wilson score interval for successes out of total.
// Bounds are clamped to [0, 1] and always contain successes/total, so 0 of n
// has lo == 0 and n of n has hi == 1. total == 0 yields ErrEmptySample.
func Wilson(successes, total int) (lo, hi float64, err error) {
	if total == 0 {
		return 0, 0, ErrEmptySample
	}
	if total < 0 || successes < 0 || successes > total {
		return 0, 0, fmt.Errorf("%w: %d of %d", ErrInvalidCount, successes, total)
	}

	s := float64(successes)
	n := float64(total)
	z2 := Z95 * Z95

	p := s / n

	center := (s + z2/2) / (n + z2)
	margin := Z95 / (n + z2) * math.Sqrt(s*(n-s)/n+z2/4)

	// center±margin rounds to a float step inside p at the extremes
	lo = math.Min(clamp01(center-margin), p)
	hi = math.Max(clamp01(center+margin), p)
	return lo, hi, nil
}

// Rate builds the RateWithInterval for one label of a group. An empty group
// yields Defined=false rather than a zero rate.
func Rate(label models.Label, count, total int) (models.RateWithInterval, error) {
	r := models.RateWithInterval{Label: label, Count: count, Total: total}

	lo, hi, err := Wilson(count, total)
	if err != nil {
		return r, err
	}

	r.Rate = float64(count) / float64(total)
	r.CILo = lo
	r.CIHi = hi
	r.Defined = true
	return r, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
