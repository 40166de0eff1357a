package dispatch

import (
	"fmt"
	"strings"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"golang.org/x/exp/slices"
)

// SupportedAnaTypes are the analyses that can be dispatched.
var SupportedAnaTypes = []string{"scurve", "trim"}

// Options mirrors the command line of the dispatcher.
type Options struct {
	AnaType        string
	CalFile        string
	Channels       bool
	Debug          bool
	ExtChanMapping string
	PerformFit     bool
	Filename       string
	PanPin         bool
	Queue          string
	GEBType        string
	ZScore         float64
	ZTrim          float64
}

func DefaultOptions() Options {
	return Options{
		Filename: "listOfScanDates.txt",
		Queue:    "8nm",
		GEBType:  "long",
		ZScore:   3.5,
		ZTrim:    4.0,
	}
}

func (o Options) Validate() error {
	if !gemana.IsKnownQueue(o.Queue) {
		return &gemana.ErrUsage{
			Option: "queue",
			Value:  o.Queue,
			Reason: "supported queues are " + strings.Join(gemana.QueueNames, ", "),
		}
	}
	if !slices.Contains(SupportedAnaTypes, o.AnaType) {
		return &gemana.ErrUsage{
			Option: "anaType",
			Value:  o.AnaType,
			Reason: "select one of " + strings.Join(SupportedAnaTypes, ", "),
		}
	}
	return nil
}

// AnalysisCommand is the per scan command line run by a job.
func (o Options) AnalysisCommand(inputFile string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "anaUltraScurve.py -i %s -t %s --zscore=%f --ztrim=%f", inputFile, o.GEBType, o.ZScore, o.ZTrim)
	if o.CalFile != "" {
		fmt.Fprintf(&sb, " --calFile=%s", o.CalFile)
	}
	if o.Channels {
		sb.WriteString(" --channels")
	}
	if o.ExtChanMapping != "" {
		fmt.Fprintf(&sb, " --extChanMapping=%s", o.ExtChanMapping)
	}
	if o.PerformFit {
		sb.WriteString(" --fit")
	}
	if o.PanPin {
		sb.WriteString(" --panasonic")
	}
	return sb.String()
}
