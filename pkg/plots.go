package gemana

import (
	"fmt"
	"image/color"
	"path/filepath"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	signalColor = color.RGBA{G: 160, A: 255}
	noiseColor  = color.RGBA{R: 200, A: 255}
)

func newPoints(s *hbook.S2D) *hplot.S2D {
	pts := hplot.NewS2D(s, hplot.WithYErrBars(true))
	pts.GlyphStyle.Shape = draw.BoxGlyph{}
	pts.GlyphStyle.Radius = vg.Points(1.5)
	return pts
}

func levelLine(fit LevelFit, c color.Color) *plotter.Function {
	fn := plotter.NewFunction(fit.Eval)
	fn.XMin = fit.Range.Min
	fn.XMax = fit.Range.Max
	fn.Samples = 2
	fn.LineStyle.Color = c
	fn.LineStyle.Width = vg.Points(1.5)
	return fn
}

func drawChip(p *hplot.Plot, chip ChipResult, latMin, latMax float64) {
	p.Title.Text = fmt.Sprintf("VFAT%d", chip.VFATN)
	p.X.Label.Text = "Lat"
	p.Y.Label.Text = "N"
	p.X.Min = latMin
	p.X.Max = latMax
	p.Add(newPoints(chip.Graph))
	if chip.Fit != nil {
		p.Add(levelLine(chip.Fit.Signal, signalColor))
		p.Add(levelLine(chip.Fit.Noise, noiseColor))
	}
}

func seriesPlot(s *hbook.S2D, ylabel string, ymax float64) *hplot.Plot {
	p := hplot.New()
	p.X.Label.Text = "VFAT Pos"
	p.Y.Label.Text = ylabel
	p.X.Min = -0.5
	p.X.Max = 24.5
	if ymax > 0 {
		p.Y.Min = 0
		p.Y.Max = ymax
	}
	p.Add(newPoints(s), hplot.NewGrid())
	return p
}

// SaveLatencyPlots renders the per chip tiles and the summary series as PNG
// files in outDir. Panels are plot_width_cm wide.
func SaveLatencyPlots(outDir string, ana *LatencyAnalysis) error {
	width := vg.Length(configuration.PlotWidthCm) * vg.Centimeter
	latMin, latMax := ana.Windows.Domain.Min, ana.Windows.Domain.Max

	tp := hplot.NewTiledPlot(draw.Tiles{Cols: 8, Rows: 3})
	for i, chip := range ana.Chips {
		drawChip(tp.Plots[i], chip, latMin, latMax)
	}
	if err := hplot.Save(tp, 8*width, 3*width, filepath.Join(outDir, "Summary.png")); err != nil {
		return fmt.Errorf("could not save summary plot: %w", err)
	}

	nTrig := float64(ana.NTrig)
	maxes := hplot.NewTiledPlot(draw.Tiles{Cols: 2, Rows: 1})
	maxes.Plots[0] = seriesPlot(ana.MaxHitsSeries(), "Hit Count of Max Lat Bin", nTrig)
	maxes.Plots[1] = seriesPlot(ana.MaxLatSeries(), "Max Lat Bin", 0)
	if err := hplot.Save(maxes, 2*width, width, filepath.Join(outDir, "MaxHitsPerLatByVFAT.png")); err != nil {
		return fmt.Errorf("could not save max hits plot: %w", err)
	}

	if !ana.Fitted {
		return nil
	}
	if unfitted := ana.Unfitted(); len(unfitted) > 0 {
		logger.Warn(fmt.Sprintf("vfats %v have no signal/noise fit and are left out of the fit plots", unfitted), "plots")
	}
	plots := []struct {
		file   string
		series *hbook.S2D
		ylabel string
		ymax   float64
	}{
		{"SignalOverSigPBkg.png", ana.SigOverBkgSeries(), "Sig / Bkg", 20},
		{"SignalNoBkg.png", ana.NetSignalSeries(), "Signal Hits", nTrig},
	}
	for _, plt := range plots {
		if plt.series.Len() == 0 {
			continue
		}
		p := seriesPlot(plt.series, plt.ylabel, plt.ymax)
		if err := hplot.Save(p, width, width, filepath.Join(outDir, plt.file)); err != nil {
			return fmt.Errorf("could not save %s: %w", plt.file, err)
		}
	}
	return nil
}
