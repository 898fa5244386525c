package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xentoshi/influx-export/pkg/query"
)

// Config is the on-disk configuration for a single export run.
type Config struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Export   ExportConfig   `yaml:"export"`
}

// InfluxDBConfig holds the connection and query parameters.
type InfluxDBConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"` // empty queries all measurements

	// Pointers so that missing keys can be distinguished from zero values;
	// both keys are required.
	TimeRangeDays  *int `yaml:"time_range_days"`
	TimeRangeHours *int `yaml:"time_range_hours"`

	WindowPeriod    string                  `yaml:"window_period"`
	AggregationType string                  `yaml:"aggregation_type"`
	FilteredFields  []query.FilterCondition `yaml:"filtered_fields"`
}

// ExportConfig holds output options.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides file values with environment variables if set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("INFLUX_URL"); v != "" {
		c.InfluxDB.URL = v
	}
	if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		c.InfluxDB.Token = v
	}
	if v := os.Getenv("INFLUX_ORG"); v != "" {
		c.InfluxDB.Org = v
	}
	if v := os.Getenv("INFLUX_BUCKET"); v != "" {
		c.InfluxDB.Bucket = v
	}
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.InfluxDB.URL == "" {
		return errors.New("influxdb url is required")
	}
	if c.InfluxDB.Token == "" {
		return errors.New("influxdb token is required")
	}
	if c.InfluxDB.Bucket == "" {
		return errors.New("influxdb bucket is required")
	}
	if c.InfluxDB.TimeRangeDays == nil || c.InfluxDB.TimeRangeHours == nil {
		return errors.New("time_range_days and time_range_hours must be set")
	}
	if *c.InfluxDB.TimeRangeDays < 0 || *c.InfluxDB.TimeRangeHours < 0 {
		return errors.New("time_range_days and time_range_hours must be non-negative")
	}

	// Anything other than "raw" selects windowed aggregation.
	if c.InfluxDB.AggregationType != string(query.AggregationRaw) {
		c.InfluxDB.AggregationType = string(query.AggregationWindowed)
	}
	if c.InfluxDB.AggregationType == string(query.AggregationWindowed) && c.InfluxDB.WindowPeriod == "" {
		return errors.New("window_period is required for windowed aggregation")
	}

	if c.Export.OutputDir == "" {
		c.Export.OutputDir = "."
	}
	return nil
}
