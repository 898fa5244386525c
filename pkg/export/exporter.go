package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xentoshi/influx-export/pkg/influx"
	"github.com/xentoshi/influx-export/pkg/metrics"
)

// filenameLayout is the timestamp layout used for output filenames.
const filenameLayout = "2006-01-02_15-04-05"

// Config contains configuration for an Exporter.
type Config struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Influx    influx.Client
	OutputDir string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Influx == nil {
		return errors.New("influxdb client is required")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Exporter executes a query and serializes the result rows to a CSV file.
type Exporter struct {
	log *slog.Logger
	cfg Config
}

// New creates an Exporter from the given config.
func New(cfg Config) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Exporter{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Result describes a completed export run.
type Result struct {
	Path     string
	Rows     int
	Duration time.Duration
}

// Run executes the query and writes the result rows to a timestamped CSV file
// under the configured output directory.
func (e *Exporter) Run(ctx context.Context, query string) (*Result, error) {
	runStart := time.Now()
	defer func() {
		metrics.ExportDuration.Observe(time.Since(runStart).Seconds())
	}()

	e.log.Debug("export: executing query", "query", query)
	queryStart := time.Now()
	rows, err := e.cfg.Influx.QueryInfluxQL(ctx, query)
	queryDuration := time.Since(queryStart)
	metrics.QueryDuration.Observe(queryDuration.Seconds())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		metrics.ExportTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to query influxdb: %w", err)
	}
	e.log.Info("export: queried influxdb", "rows", len(rows), "duration", queryDuration.String())

	if len(rows) == 0 {
		e.log.Warn("export: no rows returned from query")
	}

	path := filepath.Join(e.cfg.OutputDir, e.cfg.Clock.Now().Format(filenameLayout)+".csv")

	writeStart := time.Now()
	n, err := writeCSV(path, rows)
	if err != nil {
		metrics.ExportTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	e.log.Info("export: wrote csv file", "path", path, "rows", n, "duration", time.Since(writeStart).String())

	metrics.ExportedRows.Add(float64(n))
	metrics.ExportTotal.WithLabelValues("success").Inc()

	return &Result{
		Path:     path,
		Rows:     n,
		Duration: time.Since(runStart),
	}, nil
}
