package gemana

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range is a numeric interval on the latency axis.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether x lies in the closed interval.
func (r Range) Contains(x float64) bool {
	return r.Min <= x && x <= r.Max
}

// ContainsOpen reports whether x lies strictly inside the interval.
func (r Range) ContainsOpen(x float64) bool {
	return r.Min < x && x < r.Max
}

// ParseRange parses a "lo,hi" option value. Anything but exactly two
// numeric tokens is a usage error.
func ParseRange(option, value string) (Range, error) {
	tokens := strings.Split(value, ",")
	if len(tokens) != 2 {
		return Range{}, &ErrUsage{
			Option: option,
			Value:  value,
			Reason: fmt.Sprintf("expected exactly two comma separated values, got %d", len(tokens)),
		}
	}

	var vals [2]float64
	for i, token := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Range{}, &ErrUsage{
				Option: option,
				Value:  value,
				Reason: fmt.Sprintf("%q is not a number", token),
			}
		}
		vals[i] = v
	}
	return Range{Min: math.Min(vals[0], vals[1]), Max: math.Max(vals[0], vals[1])}, nil
}

// ParseRangeOption is ParseRange for optional flags. A flag that was not
// given yields a nil range; a given flag is parsed even when empty.
func ParseRangeOption(option, value string, given bool) (*Range, error) {
	if !given {
		return nil, nil
	}
	r, err := ParseRange(option, value)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FitWindows holds the latency intervals used by the signal and noise fits.
// The noise fit uses the points of Domain outside the open interval
// NoiseExclusion.
type FitWindows struct {
	Signal         Range
	NoiseExclusion Range
	Domain         Range
}

// NewFitWindows builds the fit windows from the observed latency extent and
// the optional operator ranges. The signal window defaults to the extent and
// the noise exclusion to the signal window widened by one bin on each side.
func NewFitWindows(latMin, latMax int, signal, noise *Range) FitWindows {
	w := FitWindows{
		Signal: Range{Min: float64(latMin), Max: float64(latMax)},
		Domain: Range{Min: float64(latMin), Max: float64(latMax)},
	}
	if signal != nil {
		w.Signal = *signal
	}

	w.NoiseExclusion = Range{Min: w.Signal.Min - 1, Max: w.Signal.Max + 1}
	if noise != nil {
		w.NoiseExclusion = *noise
		if noise.Min >= w.Signal.Min || noise.Max <= w.Signal.Max {
			message := fmt.Sprintf("noise exclusion (%g,%g) does not bracket signal range [%g,%g]: signal points enter the noise fit",
				noise.Min, noise.Max, w.Signal.Min, w.Signal.Max)
			logger.Warn(message, "window")
		}
	}
	return w
}

func (w FitWindows) inSignal(x float64) bool {
	return w.Signal.Contains(x)
}

func (w FitWindows) inNoise(x float64) bool {
	return w.Domain.Contains(x) && !w.NoiseExclusion.ContainsOpen(x)
}
