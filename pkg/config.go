package gemana

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DBConfig selects one relational target holding the GEM DB views.
type DBConfig struct {
	Driver string `json:"driver"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	User   string `json:"user"`
	Passwd string `json:"pass"`
	DBName string `json:"dbname"`
}

type Configuration struct {
	Verbosity        int      `json:"verbosity"`
	WriteHDF5        bool     `json:"write_hdf5"`
	CompressionLevel int      `json:"compression_level"`
	PlotWidthCm      float64  `json:"plot_width_cm"`
	SubmitPaceMs     int      `json:"submit_pace_ms"`
	Production       DBConfig `json:"production"`
	Development      DBConfig `json:"development"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultConfiguration() Configuration {
	var config Configuration

	config.Verbosity = 0
	config.WriteHDF5 = true
	config.CompressionLevel = 4
	config.PlotWidthCm = 12
	config.SubmitPaceMs = 1000
	config.Production = DBConfig{
		Driver: "mysql",
		Host:   "localhost",
		Port:   3306,
		User:   "CMS_GEM_APPUSER_R",
		DBName: "cms_omds_lb",
	}
	config.Development = DBConfig{
		Driver: "mysql",
		Host:   "localhost",
		Port:   3306,
		User:   "CMS_GEM_APPUSER_R",
		DBName: "INT2R",
	}
	return config
}

// LoadConfiguration returns the defaults overridden by the JSON file, if any.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &ErrOpenFile{Filename: filename, Err: err}
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing configuration %q: %w", filename, err)
	}
	return config, nil
}

// SubmitPace is the delay between two batch submissions.
func (c Configuration) SubmitPace() time.Duration {
	return time.Duration(c.SubmitPaceMs) * time.Millisecond
}

// Target returns the production or development database settings.
func (c Configuration) Target(fromProd bool) DBConfig {
	if fromProd {
		return c.Production
	}
	return c.Development
}

func PrintConfiguration(config Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Write HDF5: %t", config.WriteHDF5), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Plot width: %.1f cm", config.PlotWidthCm), "config")
	logger.Info(fmt.Sprintf("Submit pace: %d ms", config.SubmitPaceMs), "config")
	logger.Info(fmt.Sprintf("Production DB: %s %s:%d/%s", config.Production.Driver, config.Production.Host, config.Production.Port, config.Production.DBName), "config")
	logger.Info(fmt.Sprintf("Development DB: %s %s:%d/%s", config.Development.Driver, config.Development.Host, config.Development.Port, config.Development.DBName), "config")
}
