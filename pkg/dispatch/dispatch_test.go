package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
)

type fakeSubmitter struct {
	jobs []JobSpec
	err  error
}

func (s *fakeSubmitter) Submit(ctx context.Context, job JobSpec) (JobID, error) {
	if s.err != nil {
		return "", s.err
	}
	s.jobs = append(s.jobs, job)
	return JobID(strings.Repeat("1", len(s.jobs))), nil
}

// scanTree creates the results directory of a scan, with or without its
// results file.
func scanTree(t *testing.T, dataPath string, opts Options, pair gemana.ScanDate, withResults bool) string {
	t.Helper()
	dir, err := gemana.DirByAnaType(dataPath, opts.AnaType, pair.Chamber, opts.ZTrim)
	if err != nil {
		t.Fatal(err)
	}
	dir = filepath.Join(dir, pair.ScanDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if withResults {
		file := gemana.TreeNames[opts.AnaType].File
		if err := os.WriteFile(filepath.Join(dir, file), []byte("root"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.AnaType = "scurve"
	if err := opts.Validate(); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}

	tests := []struct {
		anaType, queue string
	}{
		{"latency", "8nm"},
		{"", "8nm"},
		{"trim", "short"},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.AnaType = tt.anaType
		opts.Queue = tt.queue
		if err := opts.Validate(); !gemana.IsUsage(err) {
			t.Errorf("anaType %q queue %q: expected a usage error, got %v", tt.anaType, tt.queue, err)
		}
	}
}

func TestAnalysisCommand(t *testing.T) {
	opts := DefaultOptions()
	got := opts.AnalysisCommand("/data/x/SCurveData.root")
	want := "anaUltraScurve.py -i /data/x/SCurveData.root -t long --zscore=3.500000 --ztrim=4.000000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	opts.CalFile = "cal.txt"
	opts.Channels = true
	opts.ExtChanMapping = "map.txt"
	opts.PerformFit = true
	opts.PanPin = true
	got = opts.AnalysisCommand("in.root")
	for _, flag := range []string{" --calFile=cal.txt", " --channels", " --extChanMapping=map.txt", " --fit", " --panasonic"} {
		if !strings.Contains(got, flag) {
			t.Errorf("%q missing %q", got, flag)
		}
	}
}

func TestManifestName(t *testing.T) {
	tests := map[string]string{
		"listOfScanDates.txt":   "listOfScanDates_Input4GemPlotter.txt",
		"/tmp/dates.txt":        "/tmp/dates_Input4GemPlotter.txt",
		"scans":                 "scans_Input4GemPlotter.txt",
		"text_with_t_and_x.txt": "text_with_t_and_x_Input4GemPlotter.txt",
	}
	for in, want := range tests {
		if got := ManifestName(in); got != want {
			t.Errorf("ManifestName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseJobID(t *testing.T) {
	id, ok := ParseJobID("Job <123456> is submitted to queue <8nm>.\n")
	if !ok || id != "123456" {
		t.Errorf("got %q %t", id, ok)
	}
	if _, ok := ParseJobID("bsub: command not found"); ok {
		t.Error("parsed a job id from an error message")
	}
}

func TestRunSkipsMissingResults(t *testing.T) {
	dataPath := t.TempDir()
	opts := DefaultOptions()
	opts.AnaType = "trim"
	opts.PerformFit = true

	pairs := []gemana.ScanDate{
		{Chamber: "GEMINIm01L1", ScanDate: "2018.01.01.00.00"},
		{Chamber: "GEMINIm01L1", ScanDate: "2018.01.02.00.00"},
		{Chamber: "GEMINIm01L2", ScanDate: "2018.01.01.00.00"},
		{Chamber: "GEMINIm02L1", ScanDate: "2018.01.03.00.00"},
		{Chamber: "GEMINIm02L2", ScanDate: "2018.01.03.00.00"},
	}
	missing := map[int]bool{1: true, 3: true}
	for i, pair := range pairs {
		scanTree(t, dataPath, opts, pair, !missing[i])
	}

	sub := &fakeSubmitter{}
	d := &Dispatcher{
		Options:   opts,
		DataPath:  dataPath,
		BuildHome: "/opt/gem",
		Submitter: sub,
	}
	var manifest bytes.Buffer
	report, err := d.Run(context.Background(), pairs, &manifest)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := strings.Split(strings.TrimRight(manifest.String(), "\n"), "\n")
	if lines[0] != "ChamberName\tscandate" {
		t.Errorf("got header %q", lines[0])
	}
	if len(lines) != len(pairs)+1 {
		t.Fatalf("got %d manifest lines: %q", len(lines), manifest.String())
	}
	commented := 0
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "#") {
			commented++
		}
	}
	if commented != len(missing) {
		t.Errorf("got %d commented lines, want %d", commented, len(missing))
	}
	if lines[2] != "#GEMINIm01L1\t2018.01.02.00.00" {
		t.Errorf("got skipped line %q", lines[2])
	}

	if len(sub.jobs) != len(pairs)-len(missing) || len(report.Submitted) != len(sub.jobs) {
		t.Fatalf("got %d submissions, report %d", len(sub.jobs), len(report.Submitted))
	}
	if len(report.Skipped) != len(missing) {
		t.Errorf("got %d skipped", len(report.Skipped))
	}

	job := sub.jobs[0]
	scanDir := filepath.Join(dataPath, "GEMINIm01L1", "trim", "z4.000000", "2018.01.01.00.00")
	if job.Script != filepath.Join(scanDir, JobScriptName) || job.Queue != "8nm" {
		t.Errorf("got job %+v", job)
	}
	for _, dir := range []string{job.StdoutDir, job.StderrDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("capture directory %s not created: %v", dir, err)
		}
	}
	script, err := os.ReadFile(job.Script)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"#!/bin/zsh\n",
		"export BUILD_HOME=/opt/gem\n",
		"source /opt/gem/cmsgemos/setup/paths.sh\n",
		"anaUltraScurve.py -i " + filepath.Join(scanDir, "SCurveData_Trimmed.root") + " -t long",
		"--fit\n",
	} {
		if !strings.Contains(string(script), want) {
			t.Errorf("job script missing %q:\n%s", want, script)
		}
	}
	info, _ := os.Stat(job.Script)
	if info.Mode().Perm()&0o100 == 0 {
		t.Error("job script is not executable")
	}
}

func TestRunStopsOnSubmitError(t *testing.T) {
	dataPath := t.TempDir()
	opts := DefaultOptions()
	opts.AnaType = "scurve"
	pairs := []gemana.ScanDate{
		{Chamber: "GEMINIm01L1", ScanDate: "a"},
		{Chamber: "GEMINIm01L1", ScanDate: "b"},
	}
	for _, pair := range pairs {
		scanTree(t, dataPath, opts, pair, true)
	}

	failure := errors.New("bsub: queue closed")
	d := &Dispatcher{Options: opts, DataPath: dataPath, Submitter: &fakeSubmitter{err: failure}}
	var manifest bytes.Buffer
	report, err := d.Run(context.Background(), pairs, &manifest)
	if !errors.Is(err, failure) {
		t.Fatalf("expected the submit error, got %v", err)
	}
	if len(report.Submitted) != 0 {
		t.Errorf("got %d submitted", len(report.Submitted))
	}
}

func TestRunPacingHonoursContext(t *testing.T) {
	dataPath := t.TempDir()
	opts := DefaultOptions()
	opts.AnaType = "scurve"
	pairs := []gemana.ScanDate{
		{Chamber: "GEMINIm01L1", ScanDate: "a"},
		{Chamber: "GEMINIm01L1", ScanDate: "b"},
	}
	for _, pair := range pairs {
		scanTree(t, dataPath, opts, pair, true)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sub := &fakeSubmitter{}
	d := &Dispatcher{Options: opts, DataPath: dataPath, Submitter: sub, Pace: time.Hour}
	var manifest bytes.Buffer
	start := time.Now()
	_, err := d.Run(ctx, pairs, &manifest)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Minute {
		t.Error("pacing ignored the context")
	}
	if len(sub.jobs) != 1 {
		t.Errorf("got %d submissions before cancel", len(sub.jobs))
	}
}

func TestDryRunSubmitter(t *testing.T) {
	s := &DryRunSubmitter{}
	first, _ := s.Submit(context.Background(), JobSpec{Queue: "8nm", Script: "a.sh"})
	second, _ := s.Submit(context.Background(), JobSpec{Queue: "8nm", Script: "b.sh"})
	if first == second {
		t.Errorf("dry run ids repeat: %s", first)
	}
}

func TestPrintEpilogue(t *testing.T) {
	var buf bytes.Buffer
	PrintEpilogue(&buf, "list_Input4GemPlotter.txt")
	out := buf.String()
	for _, want := range []string{"\tbjobs\n", "bkill -r JOBID", "--infilename=list_Input4GemPlotter.txt --anaType=scurveAna --branchName=maskReason"} {
		if !strings.Contains(out, want) {
			t.Errorf("epilogue missing %q", want)
		}
	}
}
