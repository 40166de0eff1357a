package gemana

import (
	"errors"
	"fmt"
	"math"

	"go-hep.org/x/hep/fit"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LevelFit is the result of fitting a constant to part of a hit-vs-latency
// graph.
type LevelFit struct {
	Name    string
	Level   float64
	Err     float64
	Chi2    float64
	NPoints int
	Range   Range
}

func (f LevelFit) Eval(x float64) float64 {
	return f.Level
}

// Ratio is a signal over noise ratio. Defined is false when the noise level
// is zero, in which case Value and Err carry no information.
type Ratio struct {
	Value   float64
	Err     float64
	Defined bool
}

type SignalNoise struct {
	Signal LevelFit
	Noise  LevelFit

	NetSignal    float64
	NetSignalErr float64
	Ratio        Ratio
}

// NewSignalNoise subtracts the noise level from the signal level and forms
// their ratio with linear error propagation. The correlation between the
// net signal and the noise level is ignored.
func NewSignalNoise(signal, noise LevelFit) SignalNoise {
	b := noise.Level
	bErr := noise.Err
	s := signal.Level - b
	sErr := math.Sqrt(signal.Err*signal.Err + bErr*bErr)

	sn := SignalNoise{
		Signal:       signal,
		Noise:        noise,
		NetSignal:    s,
		NetSignalErr: sErr,
	}
	if b == 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		sn.Ratio = Ratio{Value: math.NaN(), Err: math.NaN()}
		return sn
	}
	sn.Ratio = Ratio{
		Value:   s / b,
		Err:     math.Sqrt(math.Pow(sErr/b, 2) + bErr*bErr*math.Pow(s/(b*b), 2)),
		Defined: true,
	}
	return sn
}

// HitsVsLatGraph converts a latency histogram into a graph with one point per
// bin: x errors of half a bin, y errors sqrt(sum of squared weights).
func HitsVsLatGraph(h *hbook.H1D, vfat int) *hbook.S2D {
	pts := make([]hbook.Point2D, 0, len(h.Binning.Bins))
	for _, bin := range h.Binning.Bins {
		halfWidth := 0.5 * (bin.Range.Max - bin.Range.Min)
		yErr := math.Sqrt(bin.SumW2())
		pts = append(pts, hbook.Point2D{
			X:    0.5 * (bin.Range.Min + bin.Range.Max),
			Y:    bin.SumW(),
			ErrX: hbook.Range{Min: halfWidth, Max: halfWidth},
			ErrY: hbook.Range{Min: yErr, Max: yErr},
		})
	}
	g := hbook.NewS2D(pts...)
	g.Annotation()["name"] = fmt.Sprintf("g_N_vs_Lat_VFAT%d", vfat)
	return g
}

func fitSettings() *optimize.Settings {
	return &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}
}

// FitLevel fits a constant to the points of g accepted by keep, weighting
// each point by its inverse squared y uncertainty. Points without
// uncertainty are skipped.
func FitLevel(name string, g *hbook.S2D, init float64, window Range, keep func(x float64) bool) (LevelFit, error) {
	result := LevelFit{Name: name, Range: window}

	var xs, ys, errs []float64
	for i := 0; i < g.Len(); i++ {
		pt := g.Point(i)
		if !keep(pt.X) {
			continue
		}
		sigma := 0.5 * (pt.ErrY.Min + pt.ErrY.Max)
		if sigma <= 0 || math.IsNaN(sigma) {
			continue
		}
		xs = append(xs, pt.X)
		ys = append(ys, pt.Y)
		errs = append(errs, sigma)
	}
	result.NPoints = len(xs)
	if len(xs) == 0 {
		return result, &ErrNoFitPoints{Name: name, Range: window}
	}

	res, err := fit.Curve1D(
		fit.Func1D{
			F: func(x float64, ps []float64) float64 {
				return ps[0]
			},
			X:   xs,
			Y:   ys,
			Err: errs,
			Ps:  []float64{init},
		},
		fitSettings(),
		&optimize.NelderMead{},
	)
	if err != nil {
		return result, fmt.Errorf("could not fit %s level: %w", name, err)
	}
	if err := res.Status.Err(); err != nil {
		return result, fmt.Errorf("could not fit %s level: %w", name, err)
	}

	chi2 := func(ps []float64) float64 {
		var sum float64
		for i := range xs {
			r := (ys[i] - ps[0]) / errs[i]
			sum += r * r
		}
		return sum
	}

	result.Level = res.X[0]
	result.Chi2 = chi2(res.X)
	result.Err, err = levelError(chi2, res.X)
	if err != nil {
		return result, fmt.Errorf("could not estimate %s level uncertainty: %w", name, err)
	}
	return result, nil
}

// levelError returns the parameter uncertainty from the curvature of chi2 at
// its minimum, cov = 2 H^-1. chi2 is quadratic in a constant level so a
// coarse finite difference step is exact.
func levelError(chi2 func([]float64) float64, best []float64) (float64, error) {
	hess := mat.NewSymDense(len(best), nil)
	fd.Hessian(hess, chi2, best, &fd.Settings{
		Formula: fd.Central,
		Step:    math.Max(math.Abs(best[0])*1e-2, 1),
	})

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return 0, errors.New("chi2 hessian is not positive definite")
	}
	cov := mat.NewSymDense(len(best), nil)
	if err := chol.InverseTo(cov); err != nil {
		return 0, err
	}
	return math.Sqrt(2 * cov.At(0, 0)), nil
}

// FitSignalNoise fits the signal level over the signal window and the noise
// level over the rest of the domain, then derives net signal and ratio.
func FitSignalNoise(g *hbook.S2D, maxCount float64, w FitWindows) (SignalNoise, error) {
	signal, err := FitLevel("signal", g, maxCount, w.Signal, w.inSignal)
	if err != nil {
		return SignalNoise{Signal: signal}, err
	}
	noise, err := FitLevel("noise", g, 0, w.Domain, w.inNoise)
	if err != nil {
		return SignalNoise{Signal: signal, Noise: noise}, err
	}
	return NewSignalNoise(signal, noise), nil
}
