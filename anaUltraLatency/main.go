package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/cms-gem-daq-project/gemana/pkg/h5summary"
)

type options struct {
	infilename    string
	outfilename   string
	performFit    bool
	latSigRange   string
	latNoiseRange string
	debug         bool
	config        string
	// set records the flags given on the command line, by name.
	set map[string]bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("anaUltraLatency", flag.ContinueOnError)
	fs.StringVar(&opts.infilename, "infilename", "", "physical filename of the input file")
	fs.StringVar(&opts.infilename, "i", "", "shorthand for -infilename")
	fs.StringVar(&opts.outfilename, "outfilename", "latencyAna.root", "filename of the output ROOT file")
	fs.StringVar(&opts.outfilename, "o", "latencyAna.root", "shorthand for -outfilename")
	fs.BoolVar(&opts.performFit, "fit", false, "fit the latency distributions")
	fs.BoolVar(&opts.performFit, "f", false, "shorthand for -fit")
	fs.StringVar(&opts.latSigRange, "latSigRange", "", "comma separated pair of latency values defining the signal range, e.g. 97,100")
	fs.StringVar(&opts.latNoiseRange, "latNoiseRange", "", "comma separated pair of latency values excluded from the noise fit, e.g. 96,101")
	fs.BoolVar(&opts.debug, "debug", false, "print extra debugging information")
	fs.BoolVar(&opts.debug, "d", false, "shorthand for -debug")
	fs.StringVar(&opts.config, "config", "", "configuration file path")
	if err := fs.Parse(args); err != nil {
		return opts, &gemana.ErrUsage{Option: "arguments", Value: strings.Join(args, " "), Reason: err.Error()}
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	if opts.infilename == "" {
		return opts, &gemana.ErrUsage{Option: "infilename", Value: "", Reason: "an input file is required"}
	}
	return opts, nil
}

// reportFitFailures logs every chip whose signal/noise fit failed.
func reportFitFailures(logger gemana.Logger, ana *gemana.LatencyAnalysis) {
	if err := ana.FitErrors(); err != nil {
		logger.Info(fmt.Sprintf("Fit failures:\n%v", err), "main")
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	// Ranges are checked before anything is opened.
	sigRange, err := gemana.ParseRangeOption("latSigRange", opts.latSigRange, opts.set["latSigRange"])
	if err != nil {
		return err
	}
	noiseRange, err := gemana.ParseRangeOption("latNoiseRange", opts.latNoiseRange, opts.set["latNoiseRange"])
	if err != nil {
		return err
	}

	configuration, err := gemana.LoadConfiguration(opts.config)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	gemana.SetConfiguration(configuration)
	logger := gemana.NewStdLogger(opts.debug)
	gemana.SetLogger(logger)
	if configuration.Verbosity > 0 {
		gemana.PrintConfiguration(configuration, logger)
	}

	outDir := strings.TrimSuffix(opts.infilename, ".root")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	hists, err := gemana.FillFromFile(opts.infilename)
	if err != nil {
		return err
	}
	latMin, latMax, ok := hists.Extent()
	if !ok {
		return fmt.Errorf("no hits found in %s", opts.infilename)
	}
	logger.Info(fmt.Sprintf("Read %d entries, latency range [%d,%d], %d triggers", hists.NEvents, latMin, latMax, hists.NTrig), "main")

	windows := gemana.NewFitWindows(latMin, latMax, sigRange, noiseRange)
	ana := gemana.AnalyzeLatency(hists, windows, opts.performFit)
	if opts.debug && opts.performFit {
		fmt.Print(ana.DebugTable())
		reportFitFailures(logger, ana)
	}

	outFile := filepath.Join(outDir, opts.outfilename)
	if err := gemana.WriteLatencyResults(outFile, ana); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Results written to %s", outFile), "main")

	if err := gemana.SaveLatencyPlots(outDir, ana); err != nil {
		return err
	}

	if configuration.WriteHDF5 {
		h5File := filepath.Join(outDir, "latencyAna.h5")
		if err := h5summary.Write(h5File, ana); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Summary written to %s", h5File), "main")
	}
	return nil
}

func main() {
	err := run(os.Args[1:])
	if err == nil {
		return
	}
	gemana.NewStdLogger(false).Error(err.Error())
	if gemana.IsUsage(err) {
		os.Exit(gemana.ExitUsage)
	}
	os.Exit(1)
}
