package h5summary

import (
	"errors"
	"fmt"
	"math"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/jmbenlloch/go-hdf5"
)

// Writer stores a latency analysis in an HDF5 file: one summary row per
// chip and the full hit matrix.
type Writer struct {
	File         *hdf5.File
	Filename     string
	LatencyGroup *hdf5.Group
	SummaryTable *hdf5.Dataset
	Hits         *hdf5.Dataset
	RowCounter   int
}

func NewWriter(filename string, compression int) (*Writer, error) {
	w := &Writer{Filename: filename}
	var err error
	if w.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if w.LatencyGroup, err = createGroup(w.File, "Latency"); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.SummaryTable, err = createTable(w.LatencyGroup, "summary", ChipSummaryHDF5{}, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.Hits, err = createMatrix(w.LatencyGroup, "hits", gemana.NVFATs, gemana.NLatBins, compression); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return w, nil
}

func chipSummary(chip gemana.ChipResult) ChipSummaryHDF5 {
	row := ChipSummaryHDF5{
		vfatN:          int32(chip.VFATN),
		max_hits:       chip.MaxBinCount,
		max_lat:        chip.MaxBinLat,
		signal:         math.NaN(),
		signal_err:     math.NaN(),
		noise:          math.NaN(),
		noise_err:      math.NaN(),
		net_signal:     math.NaN(),
		net_signal_err: math.NaN(),
		ratio:          math.NaN(),
		ratio_err:      math.NaN(),
	}
	if chip.Fit == nil {
		return row
	}
	row.signal = chip.Fit.Signal.Level
	row.signal_err = chip.Fit.Signal.Err
	row.noise = chip.Fit.Noise.Level
	row.noise_err = chip.Fit.Noise.Err
	row.net_signal = chip.Fit.NetSignal
	row.net_signal_err = chip.Fit.NetSignalErr
	if chip.Fit.Ratio.Defined {
		row.fitted = 1
		row.ratio = chip.Fit.Ratio.Value
		row.ratio_err = chip.Fit.Ratio.Err
	}
	return row
}

// HitMatrix flattens the per-chip histograms row-major, one row per VFAT.
func HitMatrix(ana *gemana.LatencyAnalysis) []float64 {
	hits := make([]float64, gemana.NVFATs*gemana.NLatBins)
	for vfat, chip := range ana.Chips {
		if chip.Hist == nil {
			continue
		}
		for i, bin := range chip.Hist.Binning.Bins {
			hits[vfat*gemana.NLatBins+i] = bin.SumW()
		}
	}
	return hits
}

func (w *Writer) WriteAnalysis(ana *gemana.LatencyAnalysis) error {
	// The slice MUST be allocated with its final length, HDF5 reads it
	// through its backing array.
	rows := make([]ChipSummaryHDF5, len(ana.Chips))
	for i, chip := range ana.Chips {
		rows[i] = chipSummary(chip)
	}
	if err := writeArrayToTable(w.SummaryTable, &rows, w.RowCounter); err != nil {
		return fmt.Errorf("error writing summary table: %w", err)
	}
	w.RowCounter += len(rows)

	hits := HitMatrix(ana)
	if err := w.Hits.Write(&hits); err != nil {
		return fmt.Errorf("error writing hit matrix: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	var errs []error

	if w.SummaryTable != nil {
		if err := w.SummaryTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing summary table: %w", err))
		}
	}
	if w.Hits != nil {
		if err := w.Hits.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing hit matrix: %w", err))
		}
	}
	if w.LatencyGroup != nil {
		if err := w.LatencyGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing latency group: %w", err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Write stores ana in filename with the configured compression level.
func Write(filename string, ana *gemana.LatencyAnalysis) error {
	w, err := NewWriter(filename, gemana.GetConfiguration().CompressionLevel)
	if err != nil {
		return err
	}
	if err := w.WriteAnalysis(ana); err != nil {
		return errors.Join(err, w.Close())
	}
	return w.Close()
}
