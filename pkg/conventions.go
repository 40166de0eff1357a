package gemana

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"
)

const (
	NVFATs   = 24
	NLatBins = 256
	LatLow   = -0.5
	LatHigh  = 255.5
)

// QueueNames lists the LSF queues jobs may be submitted to.
var QueueNames = []string{
	"1nh",
	"8nh",
	"1nd",
	"2nd",
	"1nw",
	"2nw",
	"8nm",
	"cmscaf1nh",
	"cmscaf1nd",
	"cmscaf1nw",
}

func IsKnownQueue(queue string) bool {
	return slices.Contains(QueueNames, queue)
}

type TreeName struct {
	File string
	Tree string
}

// TreeNames maps an analysis type to the file and tree a scan produces.
var TreeNames = map[string]TreeName{
	"latency": {File: "LatencyScanData.root", Tree: "latTree"},
	"scurve":  {File: "SCurveData.root", Tree: "scurveTree"},
	"trim":    {File: "SCurveData_Trimmed.root", Tree: "scurveTree"},
}

// DirByAnaType returns the directory under dataPath where scans of the given
// analysis type are stored for a chamber.
func DirByAnaType(dataPath, anaType, chamber string, ztrim float64) (string, error) {
	switch anaType {
	case "latency":
		return filepath.Join(dataPath, chamber, "latency", "trk"), nil
	case "scurve":
		return filepath.Join(dataPath, chamber, "scurve"), nil
	case "trim":
		return filepath.Join(dataPath, chamber, "trim", fmt.Sprintf("z%f", ztrim)), nil
	}
	return "", &ErrUsage{Option: "anaType", Value: anaType, Reason: "no directory convention"}
}

func FilePathExists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}

// EnvCheck returns the value of a required environment variable.
func EnvCheck(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", &ErrMissingEnv{Name: name}
	}
	return value, nil
}
