package influx

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"regexp"
	"time"
)

// defaultMockHosts are the host tag values generated when none are configured.
var defaultMockHosts = []string{"server-01", "server-02", "server-03"}

// mockRegions are assigned to hosts deterministically from their seed.
var mockRegions = []string{"us-east", "us-west", "eu-central"}

// MockClient implements Client by generating deterministic synthetic rows for
// the time range parsed from the query. Used by --mock runs and in tests.
type MockClient struct {
	log      *slog.Logger
	interval time.Duration
	hosts    []string
}

// MockClientConfig contains configuration for the mock client.
type MockClientConfig struct {
	Logger   *slog.Logger
	Interval time.Duration // spacing between generated points (default: 1 minute)
	Hosts    []string      // host tag values (default: three synthetic hosts)
}

// NewMockClient creates a mock InfluxDB client that generates synthetic
// measurement rows instead of querying a real server.
func NewMockClient(cfg MockClientConfig) *MockClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = defaultMockHosts
	}
	return &MockClient{
		log:      cfg.Logger,
		interval: cfg.Interval,
		hosts:    cfg.Hosts,
	}
}

// QueryInfluxQL implements Client.QueryInfluxQL by generating mock rows.
func (c *MockClient) QueryInfluxQL(ctx context.Context, query string) ([]map[string]any, error) {
	startTime, endTime, err := parseTimeRange(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse time range: %w", err)
	}

	var results []map[string]any
	for _, host := range c.hosts {
		seed := hashSeed(host)
		for t := startTime; t.Before(endTime); t = t.Add(c.interval) {
			results = append(results, c.generateRow(host, t, seed))
		}
	}

	c.log.Debug("mock influxdb: generated mock data",
		"rows", len(results),
		"start", startTime,
		"end", endTime)

	return results, nil
}

// Close implements Client.Close.
func (c *MockClient) Close() error {
	return nil
}

// generateRow generates a single measurement row for a host at a given time.
// Values are derived from the seed and timestamp so repeated queries over the
// same range return identical data.
func (c *MockClient) generateRow(host string, t time.Time, seed uint64) map[string]any {
	bucket := uint64(t.Unix()) / uint64(c.interval.Seconds())
	combined := seed ^ bucket

	// A load figure that drifts smoothly between 0 and 100 per host.
	value := float64((combined%200+bucket%40)%200) / 2.0

	row := map[string]any{
		"time":           t.UTC().Format(time.RFC3339Nano),
		"host":           host,
		"region":         mockRegions[seed%uint64(len(mockRegions))],
		"value":          value,
		"uptime-seconds": t.Unix() % 86400,
	}

	// Sparse field: present on a small fraction of rows only.
	if combined%25 == 0 {
		row["restarts"] = int64(combined % 3)
	}

	return row
}

// parseTimeRange extracts start and end times from the generated query text.
func parseTimeRange(query string) (time.Time, time.Time, error) {
	timePattern := regexp.MustCompile(`time\s*>=\s*'([^']+)'\s+AND\s+time\s*<\s*'([^']+)'`)
	matches := timePattern.FindStringSubmatch(query)

	if len(matches) != 3 {
		// Default to last hour if we can't parse
		now := time.Now().UTC()
		return now.Add(-time.Hour), now, nil
	}

	startTime, err := parseInfluxTime(matches[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse start time: %w", err)
	}

	endTime, err := parseInfluxTime(matches[2])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse end time: %w", err)
	}

	return startTime, endTime, nil
}

// parseInfluxTime parses a time string in various formats.
func parseInfluxTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", s)
}

// hashSeed creates a deterministic hash from a host name.
func hashSeed(host string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(host))
	return h.Sum64()
}
