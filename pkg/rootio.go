package gemana

import (
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/root"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/hbook"
)

// LatencyTreeName is the tree a latency scan writes.
const LatencyTreeName = "latTree"

// latencyRow mirrors the branches of the latency tree.
type latencyRow struct {
	VFATN int32 `groot:"vfatN"`
	Lat   int32 `groot:"lat"`
	NHits int32 `groot:"Nhits"`
	NEv   int32 `groot:"Nev"`
}

// ReadLatencyTree calls fn for every row of the latency tree in fname.
func ReadLatencyTree(fname string, fn func(LatencyEvent) error) error {
	f, err := groot.Open(fname)
	if err != nil {
		return &ErrOpenFile{Filename: fname, Err: err}
	}
	defer f.Close()

	obj, err := f.Get(LatencyTreeName)
	if err != nil {
		return fmt.Errorf("could not find %s in %s: %w", LatencyTreeName, fname, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return fmt.Errorf("%s in %s is a %T, not a tree", LatencyTreeName, fname, obj)
	}

	var row latencyRow
	r, err := rtree.NewReader(tree, rtree.ReadVarsFromStruct(&row))
	if err != nil {
		return fmt.Errorf("could not create reader for %s: %w", LatencyTreeName, err)
	}
	defer r.Close()

	return r.Read(func(ctx rtree.RCtx) error {
		evt := LatencyEvent{
			VFATN: int(row.VFATN),
			Lat:   int(row.Lat),
			NHits: int(row.NHits),
			NEv:   int(row.NEv),
		}
		if err := fn(evt); err != nil {
			return fmt.Errorf("entry %d: %w", ctx.Entry, err)
		}
		return nil
	})
}

// FillFromFile builds the latency histograms of a scan file.
func FillFromFile(fname string) (*LatencyHistograms, error) {
	hists := NewLatencyHistograms()
	if err := ReadLatencyTree(fname, hists.Fill); err != nil {
		return nil, err
	}
	return hists, nil
}

// levelGraph materialises a fitted constant as a two point graph spanning
// its fit range.
func levelGraph(name string, fit LevelFit) *hbook.S2D {
	g := hbook.NewS2D(
		hbook.Point2D{X: fit.Range.Min, Y: fit.Level, ErrY: hbook.Range{Min: fit.Err, Max: fit.Err}},
		hbook.Point2D{X: fit.Range.Max, Y: fit.Level, ErrY: hbook.Range{Min: fit.Err, Max: fit.Err}},
	)
	g.Annotation()["name"] = name
	return g
}

type putter interface {
	Put(name string, v root.Object) error
}

func put(dir putter, name string, v root.Object) error {
	if err := dir.Put(name, v); err != nil {
		return fmt.Errorf("could not write %s: %w", name, err)
	}
	return nil
}

// WriteLatencyResults stores the per chip objects under VFAT<N> directories
// and the summary series at the top level of fname.
func WriteLatencyResults(fname string, ana *LatencyAnalysis) (err error) {
	f, err := groot.Create(fname)
	if err != nil {
		return &ErrOpenFile{Filename: fname, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not close %s: %w", fname, cerr)
		}
	}()

	for _, chip := range ana.Chips {
		dir, err := f.Mkdir(fmt.Sprintf("VFAT%d", chip.VFATN))
		if err != nil {
			return fmt.Errorf("could not create directory for vfat %d: %w", chip.VFATN, err)
		}
		graphName := fmt.Sprintf("g_N_vs_Lat_VFAT%d", chip.VFATN)
		if err := put(dir, graphName, rhist.NewGraphAsymmErrorsFrom(chip.Graph)); err != nil {
			return err
		}
		if err := put(dir, fmt.Sprintf("vfat%dHitsVsLat", chip.VFATN), rhist.NewH1DFrom(chip.Hist)); err != nil {
			return err
		}
		if chip.Fit == nil {
			continue
		}
		for _, lvl := range []struct {
			suffix string
			fit    LevelFit
		}{
			{"Sig", chip.Fit.Signal},
			{"Noise", chip.Fit.Noise},
		} {
			name := fmt.Sprintf("func_N_vs_Lat_VFAT%d_%s", chip.VFATN, lvl.suffix)
			if err := put(dir, name, rhist.NewGraphFrom(levelGraph(name, lvl.fit))); err != nil {
				return err
			}
		}
	}

	series := []*hbook.S2D{ana.MaxHitsSeries(), ana.MaxLatSeries()}
	if ana.Fitted {
		series = append(series, ana.SigOverBkgSeries(), ana.NetSignalSeries())
	}
	for _, s := range series {
		name := s.Annotation()["name"].(string)
		if err := put(f, name, rhist.NewGraphErrorsFrom(s)); err != nil {
			return err
		}
	}
	return nil
}
