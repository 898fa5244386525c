package influx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xentoshi/influx-export/pkg/logger"
)

func TestInfluxExport_Influx_MockClient(t *testing.T) {
	t.Parallel()

	query := "SELECT * FROM /.*/ WHERE time >= '2026-03-15T10:00:00Z' AND time < '2026-03-15T11:00:00Z'"

	t.Run("generates rows within the parsed time range", func(t *testing.T) {
		t.Parallel()
		c := NewMockClient(MockClientConfig{Logger: logger.NewTest()})

		rows, err := c.QueryInfluxQL(context.Background(), query)
		require.NoError(t, err)
		// 3 hosts, one point per minute over an hour.
		require.Len(t, rows, 3*60)

		start := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
		end := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)
		for _, row := range rows {
			ts, err := time.Parse(time.RFC3339Nano, row["time"].(string))
			require.NoError(t, err)
			require.False(t, ts.Before(start))
			require.True(t, ts.Before(end))
			require.Contains(t, defaultMockHosts, row["host"])
			require.Contains(t, mockRegions, row["region"])
			require.IsType(t, float64(0), row["value"])
		}
	})

	t.Run("is deterministic across calls", func(t *testing.T) {
		t.Parallel()
		c := NewMockClient(MockClientConfig{Logger: logger.NewTest()})

		first, err := c.QueryInfluxQL(context.Background(), query)
		require.NoError(t, err)
		second, err := c.QueryInfluxQL(context.Background(), query)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("respects configured hosts and interval", func(t *testing.T) {
		t.Parallel()
		c := NewMockClient(MockClientConfig{
			Logger:   logger.NewTest(),
			Hosts:    []string{"edge-01"},
			Interval: 10 * time.Minute,
		})

		rows, err := c.QueryInfluxQL(context.Background(), query)
		require.NoError(t, err)
		require.Len(t, rows, 6)
		for _, row := range rows {
			require.Equal(t, "edge-01", row["host"])
		}
	})

	t.Run("falls back to the last hour for unparsable ranges", func(t *testing.T) {
		t.Parallel()
		c := NewMockClient(MockClientConfig{Logger: logger.NewTest()})

		rows, err := c.QueryInfluxQL(context.Background(), "SELECT * FROM sensors")
		require.NoError(t, err)
		require.Len(t, rows, 3*60)
	})

	t.Run("close is a no-op", func(t *testing.T) {
		t.Parallel()
		c := NewMockClient(MockClientConfig{Logger: logger.NewTest()})
		require.NoError(t, c.Close())
	})
}

func TestInfluxExport_Influx_ParseTimeRange(t *testing.T) {
	t.Parallel()

	t.Run("parses RFC3339 bounds", func(t *testing.T) {
		t.Parallel()
		start, end, err := parseTimeRange("WHERE time >= '2026-01-02T03:04:05Z' AND time < '2026-01-03T03:04:05Z'")
		require.NoError(t, err)
		require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), start)
		require.Equal(t, time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC), end)
	})

	t.Run("returns error for unparsable timestamps", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseTimeRange("WHERE time >= 'yesterday' AND time < 'today'")
		require.Error(t, err)
	})
}
