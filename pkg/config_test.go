package gemana

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	if config != DefaultConfiguration() {
		t.Errorf("got %+v", config)
	}
	if config.SubmitPace() != time.Second {
		t.Errorf("got pace %v", config.SubmitPace())
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"verbosity": 2,
		"write_hdf5": false,
		"development": {"driver": "sqlite", "dbname": "/tmp/gemdb.sqlite"}
	}`
	if err := os.WriteFile(fname, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfiguration(fname)
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	if config.Verbosity != 2 || config.WriteHDF5 {
		t.Errorf("overrides not applied: %+v", config)
	}
	if config.CompressionLevel != 4 || config.PlotWidthCm != 12 {
		t.Errorf("defaults lost: %+v", config)
	}
	dev := config.Target(false)
	if dev.Driver != "sqlite" || dev.DBName != "/tmp/gemdb.sqlite" {
		t.Errorf("got development target %+v", dev)
	}
	if prod := config.Target(true); prod.DBName != "cms_omds_lb" {
		t.Errorf("got production target %+v", prod)
	}
}

func TestLoadConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfiguration(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{verbosity: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfiguration(bad); err == nil {
		t.Error("malformed file accepted")
	}
}
