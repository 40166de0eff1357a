package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
)

// JobScriptName is the launcher written next to each scan.
const JobScriptName = "clusterJob.sh"

// ManifestName is the scan date list handed to the time series plotter.
func ManifestName(infilename string) string {
	return strings.TrimSuffix(infilename, ".txt") + "_Input4GemPlotter.txt"
}

type Job struct {
	Pair gemana.ScanDate
	Spec JobSpec
	ID   JobID
}

type Report struct {
	Submitted []Job
	Skipped   []gemana.ScanDate
}

type Dispatcher struct {
	Options   Options
	DataPath  string
	BuildHome string
	Submitter Submitter
	// Pace is the pause after each submission.
	Pace time.Duration
}

func (d *Dispatcher) scanDir(pair gemana.ScanDate) (string, error) {
	dir, err := gemana.DirByAnaType(d.DataPath, d.Options.AnaType, pair.Chamber, d.Options.ZTrim)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pair.ScanDate), nil
}

// JobScript is the zsh launcher running the analysis of inputFile.
func (d *Dispatcher) JobScript(inputFile string) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/zsh\n")
	fmt.Fprintf(&sb, "export BUILD_HOME=%s\n", d.BuildHome)
	fmt.Fprintf(&sb, "source %s/cmsgemos/setup/paths.sh\n", d.BuildHome)
	fmt.Fprintf(&sb, "source %s/gem-plotting-tools/setup/paths.sh\n", d.BuildHome)
	sb.WriteString(d.Options.AnalysisCommand(inputFile))
	sb.WriteString("\n")
	return sb.String()
}

func (d *Dispatcher) prepare(dir, inputFile string, pair gemana.ScanDate) (JobSpec, error) {
	spec := JobSpec{
		Name:      pair.Chamber + "/" + pair.ScanDate,
		Script:    filepath.Join(dir, JobScriptName),
		Queue:     d.Options.Queue,
		StdoutDir: filepath.Join(dir, "stdout"),
		StderrDir: filepath.Join(dir, "stderr"),
	}
	for _, out := range []string{spec.StdoutDir, spec.StderrDir} {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return spec, fmt.Errorf("error creating %s: %w", out, err)
		}
	}
	if err := os.WriteFile(spec.Script, []byte(d.JobScript(inputFile)), 0o755); err != nil {
		return spec, fmt.Errorf("error writing %s: %w", spec.Script, err)
	}
	return spec, nil
}

func (d *Dispatcher) pause(ctx context.Context) error {
	if d.Pace <= 0 {
		return nil
	}
	timer := time.NewTimer(d.Pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run submits one job per scan with an existing results file and writes the
// manifest. Scans without results are written commented out and skipped.
// A failed submission stops the run.
func (d *Dispatcher) Run(ctx context.Context, pairs []gemana.ScanDate, manifest io.Writer) (Report, error) {
	var report Report
	treeName, ok := gemana.TreeNames[d.Options.AnaType]
	if !ok {
		return report, &gemana.ErrUsage{Option: "anaType", Value: d.Options.AnaType, Reason: "no tree convention"}
	}

	if _, err := fmt.Fprintf(manifest, "ChamberName\tscandate\n"); err != nil {
		return report, err
	}
	for _, pair := range pairs {
		dir, err := d.scanDir(pair)
		if err != nil {
			return report, err
		}

		if !gemana.FilePathExists(dir, treeName.File) {
			gemana.GetLogger().Warn(fmt.Sprintf("%s not found in %s, skipping", treeName.File, dir), "dispatch")
			if _, err := fmt.Fprintf(manifest, "#%s\t%s\n", pair.Chamber, pair.ScanDate); err != nil {
				return report, err
			}
			report.Skipped = append(report.Skipped, pair)
			continue
		}
		if _, err := fmt.Fprintf(manifest, "%s\t%s\n", pair.Chamber, pair.ScanDate); err != nil {
			return report, err
		}

		spec, err := d.prepare(dir, filepath.Join(dir, treeName.File), pair)
		if err != nil {
			return report, err
		}
		id, err := d.Submitter.Submit(ctx, spec)
		if err != nil {
			return report, err
		}
		report.Submitted = append(report.Submitted, Job{Pair: pair, Spec: spec, ID: id})
		if err := d.pause(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// PrintEpilogue writes the batch follow-up instructions.
func PrintEpilogue(w io.Writer, manifest string) {
	fmt.Fprintln(w, "Job submission completed")
	fmt.Fprintln(w, "To check the status of your jobs execute:")
	fmt.Fprintf(w, "\n\tbjobs\n\n")
	fmt.Fprintln(w, "To kill a running job execute:")
	fmt.Fprintf(w, "\n\tbkill JOBID\n\n")
	fmt.Fprintln(w, "Here JOBID is the number returned when calling 'bjobs'")
	fmt.Fprintln(w, "To force kill a running job call:")
	fmt.Fprintf(w, "\tbkill -r JOBID\n\n")
	fmt.Fprintln(w, "Finally for a time series output of the data call:")
	fmt.Fprintln(w)
	for _, branch := range []struct {
		name    string
		axisMax int
	}{
		{"threshold", 10},
		{"noise", 2},
		{"ped_eff", 1},
		{"mask", 1},
		{"maskReason", 1},
	} {
		fmt.Fprintf(w, "\tgemPlotter.py --infilename=%s --anaType=scurveAna --branchName=%s --make2D --alphaLabels -c -a --axisMax=%d\n",
			manifest, branch.name, branch.axisMax)
	}
}
