package gemana

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirByAnaType(t *testing.T) {
	tests := []struct {
		anaType string
		ztrim   float64
		want    string
	}{
		{"latency", 4, "/data/GEMINIm01L1/latency/trk"},
		{"scurve", 4, "/data/GEMINIm01L1/scurve"},
		{"trim", 4, "/data/GEMINIm01L1/trim/z4.000000"},
		{"trim", 3.5, "/data/GEMINIm01L1/trim/z3.500000"},
	}
	for _, tt := range tests {
		got, err := DirByAnaType("/data", tt.anaType, "GEMINIm01L1", tt.ztrim)
		if err != nil {
			t.Errorf("%s: %v", tt.anaType, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.anaType, got, tt.want)
		}
	}

	if _, err := DirByAnaType("/data", "sbitRate", "GEMINIm01L1", 0); !IsUsage(err) {
		t.Errorf("expected a usage error, got %v", err)
	}
}

func TestIsKnownQueue(t *testing.T) {
	for _, q := range []string{"8nm", "1nh", "cmscaf1nw"} {
		if !IsKnownQueue(q) {
			t.Errorf("%s rejected", q)
		}
	}
	for _, q := range []string{"", "8nh ", "long"} {
		if IsKnownQueue(q) {
			t.Errorf("%q accepted", q)
		}
	}
}

func TestFilePathExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "SCurveData.root"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "stdout"), 0o755); err != nil {
		t.Fatal(err)
	}
	if !FilePathExists(dir, "SCurveData.root") {
		t.Error("existing file not found")
	}
	if FilePathExists(dir, "stdout") {
		t.Error("directory reported as a file")
	}
	if FilePathExists(dir, "SCurveData_Trimmed.root") {
		t.Error("missing file reported")
	}
}

func TestEnvCheck(t *testing.T) {
	t.Setenv("GEMANA_TEST_PATH", "/data")
	if v, err := EnvCheck("GEMANA_TEST_PATH"); err != nil || v != "/data" {
		t.Errorf("got %q, %v", v, err)
	}
	t.Setenv("GEMANA_TEST_EMPTY", "")
	_, err := EnvCheck("GEMANA_TEST_EMPTY")
	var envErr *ErrMissingEnv
	if !errors.As(err, &envErr) || envErr.Name != "GEMANA_TEST_EMPTY" {
		t.Errorf("expected ErrMissingEnv, got %v", err)
	}
}
