package gemana

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go-hep.org/x/hep/hbook"
)

// ChipResult holds everything derived for one VFAT.
type ChipResult struct {
	VFATN int
	Hist  *hbook.H1D
	Graph *hbook.S2D

	// MaxBinCount is the content of the first maximum bin, MaxBinLat its
	// centre.
	MaxBinCount float64
	MaxBinLat   float64

	Fit    *SignalNoise
	FitErr error
}

// Fitted reports whether the chip has a signal/noise fit with a defined
// ratio.
func (c ChipResult) Fitted() bool {
	return c.Fit != nil && c.Fit.Ratio.Defined
}

type LatencyAnalysis struct {
	Chips   [NVFATs]ChipResult
	Windows FitWindows
	NTrig   int
	Fitted  bool
}

func maxBin(h *hbook.H1D) (count, lat float64) {
	count = math.Inf(-1)
	for _, bin := range h.Binning.Bins {
		if w := bin.SumW(); w > count {
			count = w
			lat = 0.5 * (bin.Range.Min + bin.Range.Max)
		}
	}
	return count, lat
}

// AnalyzeLatency derives the per-chip summary from filled histograms. A
// failed fit is logged and kept on the chip; the chip still contributes its
// max bin information.
func AnalyzeLatency(hists *LatencyHistograms, windows FitWindows, performFit bool) *LatencyAnalysis {
	ana := &LatencyAnalysis{
		Windows: windows,
		NTrig:   hists.NTrig,
		Fitted:  performFit,
	}
	for vfat, h := range hists.Hists {
		chip := &ana.Chips[vfat]
		chip.VFATN = vfat
		chip.Hist = h
		chip.Graph = HitsVsLatGraph(h, vfat)
		chip.MaxBinCount, chip.MaxBinLat = maxBin(h)

		if !performFit {
			continue
		}
		sn, err := FitSignalNoise(chip.Graph, chip.MaxBinCount, windows)
		if err != nil {
			chip.FitErr = err
			logger.Warn(fmt.Sprintf("vfat %d: %v", vfat, err), "summary")
			continue
		}
		chip.Fit = &sn
		if !sn.Ratio.Defined {
			logger.Warn(fmt.Sprintf("vfat %d: noise level is zero, signal/noise undefined", vfat), "summary")
		}
	}
	return ana
}

func newSeries(name string, pts []hbook.Point2D) *hbook.S2D {
	s := hbook.NewS2D(pts...)
	s.Annotation()["name"] = name
	return s
}

func symmetric(err float64) hbook.Range {
	return hbook.Range{Min: err, Max: err}
}

// MaxHitsSeries is grNMaxLatBinByVFAT: max bin count per chip, sqrt(N)
// uncertainty.
func (a *LatencyAnalysis) MaxHitsSeries() *hbook.S2D {
	pts := make([]hbook.Point2D, 0, NVFATs)
	for _, chip := range a.Chips {
		pts = append(pts, hbook.Point2D{
			X:    float64(chip.VFATN),
			Y:    chip.MaxBinCount,
			ErrY: symmetric(math.Sqrt(math.Max(chip.MaxBinCount, 0))),
		})
	}
	return newSeries("grNMaxLatBinByVFAT", pts)
}

// MaxLatSeries is grMaxLatBinByVFAT: latency of the max bin per chip, half
// a bin uncertainty.
func (a *LatencyAnalysis) MaxLatSeries() *hbook.S2D {
	pts := make([]hbook.Point2D, 0, NVFATs)
	for _, chip := range a.Chips {
		pts = append(pts, hbook.Point2D{
			X:    float64(chip.VFATN),
			Y:    chip.MaxBinLat,
			ErrY: symmetric(0.5),
		})
	}
	return newSeries("grMaxLatBinByVFAT", pts)
}

// SigOverBkgSeries is grVFATSigOverBkg. Chips without a defined ratio are
// left out.
func (a *LatencyAnalysis) SigOverBkgSeries() *hbook.S2D {
	var pts []hbook.Point2D
	for _, chip := range a.Chips {
		if !chip.Fitted() {
			continue
		}
		pts = append(pts, hbook.Point2D{
			X:    float64(chip.VFATN),
			Y:    chip.Fit.Ratio.Value,
			ErrY: symmetric(chip.Fit.Ratio.Err),
		})
	}
	return newSeries("grVFATSigOverBkg", pts)
}

// NetSignalSeries is grVFATNSignalNoBkg.
func (a *LatencyAnalysis) NetSignalSeries() *hbook.S2D {
	var pts []hbook.Point2D
	for _, chip := range a.Chips {
		if !chip.Fitted() {
			continue
		}
		pts = append(pts, hbook.Point2D{
			X:    float64(chip.VFATN),
			Y:    chip.Fit.NetSignal,
			ErrY: symmetric(chip.Fit.NetSignalErr),
		})
	}
	return newSeries("grVFATNSignalNoBkg", pts)
}

// Unfitted lists the chips left out of the fit series.
func (a *LatencyAnalysis) Unfitted() []int {
	if !a.Fitted {
		return nil
	}
	var chips []int
	for _, chip := range a.Chips {
		if !chip.Fitted() {
			chips = append(chips, chip.VFATN)
		}
	}
	return chips
}

// FitErrors joins the per-chip fit failures.
func (a *LatencyAnalysis) FitErrors() error {
	var errs []error
	for _, chip := range a.Chips {
		if chip.FitErr != nil {
			errs = append(errs, fmt.Errorf("vfat %d: %w", chip.VFATN, chip.FitErr))
		}
	}
	return errors.Join(errs...)
}

// DebugTable renders net signal and signal/noise per fitted chip.
func (a *LatencyAnalysis) DebugTable() string {
	var sb strings.Builder
	sb.WriteString("VFAT\tSignalHits\tSignal/Noise\n")
	for _, chip := range a.Chips {
		if chip.Fit == nil {
			continue
		}
		ratio := "undefined"
		if chip.Fit.Ratio.Defined {
			ratio = fmt.Sprintf("%f", chip.Fit.Ratio.Value)
		}
		fmt.Fprintf(&sb, "%d\t%f\t%s\n", chip.VFATN, chip.Fit.NetSignal, ratio)
	}
	return sb.String()
}
