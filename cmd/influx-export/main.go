package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/xentoshi/influx-export/pkg/config"
	"github.com/xentoshi/influx-export/pkg/export"
	"github.com/xentoshi/influx-export/pkg/influx"
	"github.com/xentoshi/influx-export/pkg/logger"
	"github.com/xentoshi/influx-export/pkg/metrics"
	"github.com/xentoshi/influx-export/pkg/query"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultConfigPath = "export.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPathFlag := flag.String("config", defaultConfigPath, "path to the YAML config file")
	outputDirFlag := flag.String("output-dir", "", "override the configured output directory")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to listen on for prometheus metrics (disabled when empty)")
	mockFlag := flag.Bool("mock", false, "use synthetic data instead of InfluxDB (for testing/staging)")
	dryRunFlag := flag.Bool("dry-run", false, "print the generated query and exit without connecting")
	flag.Parse()

	// Load .env file. godotenv does not override existing env vars, so
	// process env and explicit exports take precedence.
	_ = godotenv.Load()

	log := logger.New(*verboseFlag)

	// Initialize Sentry for error tracking (optional - gracefully no-op if DSN not set)
	if sentryDSN := os.Getenv("SENTRY_DSN"); sentryDSN != "" {
		sentryEnv := os.Getenv("SENTRY_ENVIRONMENT")
		if sentryEnv == "" {
			sentryEnv = "development"
		}
		release := version
		if commit != "none" {
			release = version + "-" + commit
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         sentryDSN,
			Environment: sentryEnv,
			Release:     release,
		}); err != nil {
			log.Warn("sentry initialization failed", "error", err)
		} else {
			log.Info("sentry initialized", "env", sentryEnv, "release", release)
			defer sentry.Flush(2 * time.Second)
		}
	}

	cfg, err := config.Load(*configPathFlag)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if *outputDirFlag != "" {
		cfg.Export.OutputDir = *outputDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = log.With("run_id", uuid.NewString())
	log.Info("influx-export starting",
		"version", version,
		"commit", commit,
		"url", cfg.InfluxDB.URL,
		"bucket", cfg.InfluxDB.Bucket,
		"aggregation", cfg.InfluxDB.AggregationType,
	)

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("received signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	clock := clockwork.NewRealClock()

	builder := query.NewBuilder(clock, cfg.InfluxDB.Measurement)
	if err := builder.SetTimeRange(*cfg.InfluxDB.TimeRangeDays, *cfg.InfluxDB.TimeRangeHours); err != nil {
		return fmt.Errorf("invalid time range: %w", err)
	}
	if err := builder.SetAggregation(query.Aggregation(cfg.InfluxDB.AggregationType)); err != nil {
		return fmt.Errorf("invalid aggregation type: %w", err)
	}
	if cfg.InfluxDB.AggregationType == string(query.AggregationWindowed) {
		if err := builder.SetWindowPeriod(cfg.InfluxDB.WindowPeriod); err != nil {
			return fmt.Errorf("invalid window period: %w", err)
		}
	}
	if err := builder.AddFilters(cfg.InfluxDB.FilteredFields); err != nil {
		return fmt.Errorf("invalid filter conditions: %w", err)
	}
	q := builder.Build()

	if *dryRunFlag {
		fmt.Println(q)
		return nil
	}

	var influxClient influx.Client
	if *mockFlag {
		log.Info("using mock influxdb client (--mock enabled)")
		influxClient = influx.NewMockClient(influx.MockClientConfig{Logger: log})
	} else {
		influxClient, err = influx.NewSDKClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
		if err != nil {
			return fmt.Errorf("failed to create InfluxDB client: %w", err)
		}
	}
	defer func() {
		if closeErr := influxClient.Close(); closeErr != nil {
			log.Warn("failed to close InfluxDB client", "error", closeErr)
		}
	}()

	exporter, err := export.New(export.Config{
		Logger:    log,
		Clock:     clock,
		Influx:    influxClient,
		OutputDir: cfg.Export.OutputDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	result, err := exporter.Run(ctx, q)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("export cancelled")
			return nil
		}
		sentry.CaptureException(err)
		return fmt.Errorf("export failed: %w", err)
	}

	log.Info("exported to csv successfully",
		"path", result.Path,
		"rows", result.Rows,
		"duration", result.Duration.String(),
	)
	return nil
}
