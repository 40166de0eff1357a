package gemana

import (
	"fmt"

	"go-hep.org/x/hep/hbook"
)

// LatencyEvent is one row of the latency scan tree.
type LatencyEvent struct {
	VFATN int
	Lat   int
	NHits int
	NEv   int
}

// LatencyHistograms accumulates hit counts versus latency for every VFAT of
// a chamber.
type LatencyHistograms struct {
	Hists [NVFATs]*hbook.H1D

	LatMin int
	LatMax int
	// NTrig is the trigger count of the first event.
	NTrig           int
	NTrigConsistent bool
	NEvents         int

	hasHits bool
}

func NewLatencyHistograms() *LatencyHistograms {
	l := &LatencyHistograms{
		LatMin:          1000,
		LatMax:          -1,
		NTrig:           -1,
		NTrigConsistent: true,
	}
	for vfat := range l.Hists {
		h := hbook.NewH1D(NLatBins, LatLow, LatHigh)
		h.Annotation()["name"] = fmt.Sprintf("vfat%dHitsVsLat", vfat)
		h.Annotation()["title"] = fmt.Sprintf("vfat%d", vfat)
		l.Hists[vfat] = h
	}
	return l
}

// Fill adds one event. Out of range chip indices or latencies are rejected
// and leave the histograms untouched.
func (l *LatencyHistograms) Fill(evt LatencyEvent) error {
	if evt.VFATN < 0 || evt.VFATN >= NVFATs {
		return &ErrChipIndex{Index: evt.VFATN}
	}
	if evt.Lat < 0 || evt.Lat >= NLatBins {
		return &ErrLatency{VFATN: evt.VFATN, Latency: evt.Lat}
	}

	l.Hists[evt.VFATN].Fill(float64(evt.Lat), float64(evt.NHits))

	if evt.NHits > 0 && evt.Lat < l.LatMin {
		l.LatMin = evt.Lat
		l.hasHits = true
	}
	if evt.Lat > l.LatMax {
		l.LatMax = evt.Lat
	}

	if l.NTrig < 0 {
		l.NTrig = evt.NEv
	} else if evt.NEv != l.NTrig && l.NTrigConsistent {
		l.NTrigConsistent = false
		message := fmt.Sprintf("trigger count changed within run: first event has %d, vfat %d lat %d has %d; keeping %d",
			l.NTrig, evt.VFATN, evt.Lat, evt.NEv, l.NTrig)
		logger.Warn(message, "latency")
	}
	l.NEvents++
	return nil
}

// Extent returns the smallest latency with hits and the largest latency
// seen. ok is false until at least one event with hits was filled.
func (l *LatencyHistograms) Extent() (latMin, latMax int, ok bool) {
	return l.LatMin, l.LatMax, l.hasHits
}

func BuildLatencyHistograms(events []LatencyEvent) (*LatencyHistograms, error) {
	l := NewLatencyHistograms()
	for i, evt := range events {
		if err := l.Fill(evt); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return l, nil
}
