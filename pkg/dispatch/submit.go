package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/magefile/mage/sh"
)

// JobSpec describes one batch job.
type JobSpec struct {
	Name      string
	Script    string
	Queue     string
	StdoutDir string
	StderrDir string
}

// Args is the bsub argument list for the job.
func (j JobSpec) Args() []string {
	return []string{"-q", j.Queue, "-o", j.StdoutDir, "-e", j.StderrDir, j.Script}
}

// JobID is the handle returned by the batch system.
type JobID string

type Submitter interface {
	Submit(ctx context.Context, job JobSpec) (JobID, error)
}

var jobIDPattern = regexp.MustCompile(`Job <(\d+)> is submitted`)

// ParseJobID extracts the job number from bsub output.
func ParseJobID(output string) (JobID, bool) {
	m := jobIDPattern.FindStringSubmatch(output)
	if m == nil {
		return JobID(strings.TrimSpace(output)), false
	}
	return JobID(m[1]), true
}

// LSFSubmitter submits jobs with bsub.
type LSFSubmitter struct {
	Command string
}

func NewLSFSubmitter() LSFSubmitter {
	return LSFSubmitter{Command: "bsub"}
}

func (s LSFSubmitter) Submit(ctx context.Context, job JobSpec) (JobID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := sh.Output(s.Command, job.Args()...)
	if err != nil {
		return "", fmt.Errorf("error submitting %s: %w", job.Name, err)
	}
	id, ok := ParseJobID(out)
	if !ok {
		gemana.GetLogger().Warn(fmt.Sprintf("could not find job id in %s output: %q", s.Command, out), "dispatch")
	}
	return id, nil
}

// DryRunSubmitter logs the submission command instead of running it.
type DryRunSubmitter struct {
	Command string
	count   int
}

func (s *DryRunSubmitter) Submit(ctx context.Context, job JobSpec) (JobID, error) {
	command := s.Command
	if command == "" {
		command = "bsub"
	}
	gemana.GetLogger().Info(fmt.Sprintf("%d %s %s", s.count, command, strings.Join(job.Args(), " ")), "dispatch")
	id := JobID(fmt.Sprintf("dry-run-%d", s.count))
	s.count++
	return id, nil
}
