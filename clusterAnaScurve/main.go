package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/cms-gem-daq-project/gemana/pkg/dispatch"
)

func parseFlags(args []string) (dispatch.Options, string, error) {
	opts := dispatch.DefaultOptions()
	var config string
	fs := flag.NewFlagSet("clusterAnaScurve", flag.ContinueOnError)
	fs.StringVar(&opts.AnaType, "anaType", "", "analysis type to be executed, from list {scurve, trim}")
	fs.StringVar(&opts.CalFile, "calFile", "", "file specifying CAL_DAC/VCAL to fC equations per VFAT")
	fs.BoolVar(&opts.Channels, "channels", false, "make plots vs channels instead of strips")
	fs.BoolVar(&opts.Channels, "c", false, "shorthand for -channels")
	fs.BoolVar(&opts.Debug, "debug", false, "print the submission commands instead of running them")
	fs.BoolVar(&opts.Debug, "d", false, "shorthand for -debug")
	fs.StringVar(&opts.ExtChanMapping, "extChanMapping", "", "physical filename of a custom, non-default, channel mapping")
	fs.BoolVar(&opts.PerformFit, "fit", false, "fit scurves and save fit information to output TFile")
	fs.BoolVar(&opts.PerformFit, "f", false, "shorthand for -fit")
	fs.StringVar(&opts.Filename, "infilename", opts.Filename, "tab delimited file specifying chamber name and scandates to analyze")
	fs.StringVar(&opts.Filename, "i", opts.Filename, "shorthand for -infilename")
	fs.BoolVar(&opts.PanPin, "panasonic", false, "make plots vs Panasonic pins instead of strips")
	fs.BoolVar(&opts.PanPin, "p", false, "shorthand for -panasonic")
	fs.StringVar(&opts.Queue, "queue", opts.Queue, "queue to submit your jobs to")
	fs.StringVar(&opts.Queue, "q", opts.Queue, "shorthand for -queue")
	fs.StringVar(&opts.GEBType, "type", opts.GEBType, "specify GEB (long/short)")
	fs.StringVar(&opts.GEBType, "t", opts.GEBType, "shorthand for -type")
	fs.Float64Var(&opts.ZScore, "zscore", opts.ZScore, "z-score for outlier identification in MAD algo")
	fs.Float64Var(&opts.ZTrim, "ztrim", opts.ZTrim, "specify the p value of the trim")
	fs.StringVar(&config, "config", "", "configuration file path")
	if err := fs.Parse(args); err != nil {
		return opts, config, &gemana.ErrUsage{Option: "arguments", Value: strings.Join(args, " "), Reason: err.Error()}
	}
	return opts, config, nil
}

func run(ctx context.Context, args []string) error {
	opts, config, err := parseFlags(args)
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	configuration, err := gemana.LoadConfiguration(config)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	gemana.SetConfiguration(configuration)
	logger := gemana.NewStdLogger(opts.Debug)
	gemana.SetLogger(logger)
	if configuration.Verbosity > 0 {
		gemana.PrintConfiguration(configuration, logger)
	}

	dataPath, err := gemana.EnvCheck("DATA_PATH")
	if err != nil {
		return err
	}
	buildHome, err := gemana.EnvCheck("BUILD_HOME")
	if err != nil {
		return err
	}

	pairs, err := gemana.ParseListOfScanDatesFile(opts.Filename)
	if err != nil {
		return err
	}

	manifestName := dispatch.ManifestName(opts.Filename)
	manifest, err := os.Create(manifestName)
	if err != nil {
		return &gemana.ErrOpenFile{Filename: manifestName, Err: err}
	}

	d := &dispatch.Dispatcher{
		Options:   opts,
		DataPath:  dataPath,
		BuildHome: buildHome,
		Submitter: dispatch.NewLSFSubmitter(),
		Pace:      configuration.SubmitPace(),
	}
	if opts.Debug {
		d.Submitter = &dispatch.DryRunSubmitter{}
		d.Pace = 0
	}

	report, err := d.Run(ctx, pairs, manifest)
	if cerr := manifest.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("error closing %s: %w", manifestName, cerr))
	}
	logger.Info(fmt.Sprintf("%d jobs submitted, %d scans skipped", len(report.Submitted), len(report.Skipped)), "main")
	if err != nil {
		return err
	}

	dispatch.PrintEpilogue(os.Stdout, manifestName)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err == nil {
		return
	}
	gemana.NewStdLogger(false).Error(err.Error())
	if gemana.IsUsage(err) {
		os.Exit(gemana.ExitUsage)
	}
	os.Exit(1)
}
