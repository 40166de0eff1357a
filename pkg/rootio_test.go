package gemana

import (
	"errors"
	"path/filepath"
	"testing"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// writeLatencyTree creates a scan file the way the DAQ does.
func writeLatencyTree(t *testing.T, fname string, events []LatencyEvent) {
	t.Helper()
	f, err := groot.Create(fname)
	if err != nil {
		t.Fatalf("groot.Create: %v", err)
	}
	defer f.Close()

	var row latencyRow
	w, err := rtree.NewWriter(f, LatencyTreeName, rtree.WriteVarsFromStruct(&row))
	if err != nil {
		t.Fatalf("rtree.NewWriter: %v", err)
	}
	for _, evt := range events {
		row = latencyRow{
			VFATN: int32(evt.VFATN),
			Lat:   int32(evt.Lat),
			NHits: int32(evt.NHits),
			NEv:   int32(evt.NEv),
		}
		if _, err := w.Write(); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing tree writer: %v", err)
	}
}

func scanEvents() []LatencyEvent {
	var events []LatencyEvent
	for vfat := 0; vfat < NVFATs; vfat++ {
		for lat := 90; lat <= 110; lat++ {
			hits := 50 + vfat
			if lat >= 99 && lat <= 101 {
				hits += 300
			}
			events = append(events, LatencyEvent{VFATN: vfat, Lat: lat, NHits: hits, NEv: 1000})
		}
	}
	return events
}

func TestReadLatencyTree(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "LatencyScanData.root")
	events := scanEvents()
	writeLatencyTree(t, fname, events)

	var got []LatencyEvent
	err := ReadLatencyTree(fname, func(evt LatencyEvent) error {
		got = append(got, evt)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadLatencyTree: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("got %d rows, want %d", len(got), len(events))
	}
	for i := range events {
		if got[i] != events[i] {
			t.Fatalf("row %d: got %+v, want %+v", i, got[i], events[i])
		}
	}
}

func TestReadLatencyTreeBadChip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "LatencyScanData.root")
	writeLatencyTree(t, fname, []LatencyEvent{
		{VFATN: 0, Lat: 1, NHits: 1, NEv: 10},
		{VFATN: 30, Lat: 1, NHits: 1, NEv: 10},
	})
	_, err := FillFromFile(fname)
	var chipErr *ErrChipIndex
	if !errors.As(err, &chipErr) {
		t.Fatalf("expected ErrChipIndex, got %v", err)
	}
}

func TestReadLatencyTreeMissingFile(t *testing.T) {
	err := ReadLatencyTree(filepath.Join(t.TempDir(), "nope.root"), func(LatencyEvent) error { return nil })
	var openErr *ErrOpenFile
	if !errors.As(err, &openErr) {
		t.Fatalf("expected ErrOpenFile, got %v", err)
	}
}

func analyzedScan(t *testing.T, performFit bool) *LatencyAnalysis {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "LatencyScanData.root")
	writeLatencyTree(t, fname, scanEvents())
	hists, err := FillFromFile(fname)
	if err != nil {
		t.Fatalf("FillFromFile: %v", err)
	}
	latMin, latMax, _ := hists.Extent()
	sig := Range{99, 101}
	return AnalyzeLatency(hists, NewFitWindows(latMin, latMax, &sig, nil), performFit)
}

func TestWriteLatencyResults(t *testing.T) {
	ana := analyzedScan(t, true)
	fname := filepath.Join(t.TempDir(), "latencyAna.root")
	if err := WriteLatencyResults(fname, ana); err != nil {
		t.Fatalf("WriteLatencyResults: %v", err)
	}

	f, err := groot.Open(fname)
	if err != nil {
		t.Fatalf("groot.Open: %v", err)
	}
	defer f.Close()

	for _, name := range []string{"grNMaxLatBinByVFAT", "grMaxLatBinByVFAT", "grVFATSigOverBkg", "grVFATNSignalNoBkg"} {
		obj, err := f.Get(name)
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		g, ok := obj.(rhist.GraphErrors)
		if !ok {
			t.Fatalf("%s is a %T", name, obj)
		}
		if g.Len() != NVFATs {
			t.Errorf("%s has %d points", name, g.Len())
		}
	}

	obj, err := f.Get("VFAT3")
	if err != nil {
		t.Fatalf("missing VFAT3 directory: %v", err)
	}
	dir, ok := obj.(riofs.Directory)
	if !ok {
		t.Fatalf("VFAT3 is a %T", obj)
	}
	for _, name := range []string{"g_N_vs_Lat_VFAT3", "vfat3HitsVsLat", "func_N_vs_Lat_VFAT3_Sig", "func_N_vs_Lat_VFAT3_Noise"} {
		if _, err := dir.Get(name); err != nil {
			t.Errorf("missing VFAT3/%s: %v", name, err)
		}
	}

	obj, err = dir.Get("func_N_vs_Lat_VFAT3_Sig")
	if err != nil {
		t.Fatal(err)
	}
	sig := obj.(rhist.Graph)
	x0, y0 := sig.XY(0)
	x1, _ := sig.XY(1)
	if x0 != 99 || x1 != 101 || y0 < 352 || y0 > 354 {
		t.Errorf("signal function spans (%v,%v) at level %v", x0, x1, y0)
	}
}

func TestWriteLatencyResultsWithoutFit(t *testing.T) {
	ana := analyzedScan(t, false)
	fname := filepath.Join(t.TempDir(), "latencyAna.root")
	if err := WriteLatencyResults(fname, ana); err != nil {
		t.Fatalf("WriteLatencyResults: %v", err)
	}
	f, err := groot.Open(fname)
	if err != nil {
		t.Fatalf("groot.Open: %v", err)
	}
	defer f.Close()

	if _, err := f.Get("grVFATSigOverBkg"); err == nil {
		t.Error("fit series written without -fit")
	}
	obj, err := f.Get("VFAT0")
	if err != nil {
		t.Fatalf("missing VFAT0: %v", err)
	}
	if _, err := obj.(riofs.Directory).Get("func_N_vs_Lat_VFAT0_Sig"); err == nil {
		t.Error("fit function written without -fit")
	}
}
