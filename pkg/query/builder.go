package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Aggregation selects how the query shapes result rows.
type Aggregation string

const (
	// AggregationRaw returns every stored point in the time range.
	AggregationRaw Aggregation = "raw"
	// AggregationWindowed returns the per-window mean of every field.
	AggregationWindowed Aggregation = "windowed"
)

// AllowedOperators are the comparison operators accepted in filter conditions.
var AllowedOperators = []string{"==", "!=", "<", ">", "<=", ">="}

// windowUnits maps window period suffixes to their length in seconds.
var windowUnits = map[byte]int{'s': 1, 'm': 60, 'h': 3600, 'd': 86400}

// FilterCondition is a single field comparison ANDed into the query's WHERE clause.
type FilterCondition struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

// Builder assembles a single time-windowed InfluxQL query. Time bounds are
// taken from the injected clock so queries are deterministic in tests.
type Builder struct {
	clock       clockwork.Clock
	measurement string

	start         time.Time
	stop          time.Time
	windowSeconds int
	aggregation   Aggregation
	filters       []string
}

// NewBuilder returns a Builder querying the given measurement. An empty
// measurement queries all measurements. Defaults: the last 30 days, windowed
// aggregation with a 1d window.
func NewBuilder(clock clockwork.Clock, measurement string) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	now := clock.Now().UTC()
	return &Builder{
		clock:         clock,
		measurement:   measurement,
		start:         now.Add(-30 * 24 * time.Hour),
		stop:          now,
		windowSeconds: 86400,
		aggregation:   AggregationWindowed,
	}
}

// SetTimeRange sets the query time range to the last days+hours, ending now.
func (b *Builder) SetTimeRange(days, hours int) error {
	if days < 0 || hours < 0 {
		return fmt.Errorf("days and hours must be non-negative, got days=%d hours=%d", days, hours)
	}
	now := b.clock.Now().UTC()
	b.start = now.Add(-(time.Duration(days)*24*time.Hour + time.Duration(hours)*time.Hour))
	b.stop = now
	return nil
}

// SetWindowPeriod sets the aggregation window from a string like "30s", "5m",
// "1h" or "1d". The period is normalized to seconds.
func (b *Builder) SetWindowPeriod(period string) error {
	if len(period) < 2 {
		return fmt.Errorf("window period %q is too short", period)
	}
	unit, ok := windowUnits[period[len(period)-1]]
	if !ok {
		return fmt.Errorf("window period %q must end with one of 's', 'm', 'h', 'd'", period)
	}
	n, err := strconv.Atoi(period[:len(period)-1])
	if err != nil || n <= 0 {
		return fmt.Errorf("window period %q must be a positive integer", period)
	}
	b.windowSeconds = n * unit
	return nil
}

// SetAggregation sets the aggregation type. Only raw and windowed are valid.
func (b *Builder) SetAggregation(a Aggregation) error {
	if a != AggregationRaw && a != AggregationWindowed {
		return fmt.Errorf("aggregation type must be %q or %q, got %q", AggregationRaw, AggregationWindowed, a)
	}
	b.aggregation = a
	return nil
}

// AddFilters appends filter conditions to the query's WHERE clause.
func (b *Builder) AddFilters(conditions []FilterCondition) error {
	for _, c := range conditions {
		if c.Field == "" || c.Operator == "" || c.Value == "" {
			return fmt.Errorf("invalid condition %+v: must contain field, operator, and value", c)
		}
		op, err := influxQLOperator(c.Operator)
		if err != nil {
			return err
		}
		b.filters = append(b.filters, fmt.Sprintf("%q %s %s", c.Field, op, quoteValue(c.Value)))
	}
	return nil
}

// Build returns the InfluxQL query text.
func (b *Builder) Build() string {
	selectClause := "SELECT *"
	if b.aggregation == AggregationWindowed {
		selectClause = "SELECT MEAN(*)"
	}

	from := "/.*/"
	if b.measurement != "" {
		from = fmt.Sprintf("%q", b.measurement)
	}

	var where strings.Builder
	fmt.Fprintf(&where, "time >= '%s' AND time < '%s'",
		b.start.Format(time.RFC3339Nano), b.stop.Format(time.RFC3339Nano))
	for _, f := range b.filters {
		where.WriteString(" AND ")
		where.WriteString(f)
	}

	q := fmt.Sprintf("%s FROM %s WHERE %s", selectClause, from, where.String())
	if b.aggregation == AggregationWindowed {
		// fill(none) drops empty windows instead of emitting null rows.
		q += fmt.Sprintf(" GROUP BY time(%ds) fill(none)", b.windowSeconds)
	}
	return q
}

// influxQLOperator maps a condition operator to its InfluxQL spelling.
func influxQLOperator(op string) (string, error) {
	for _, allowed := range AllowedOperators {
		if op == allowed {
			if op == "==" {
				return "=", nil
			}
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operator %q: must be one of %s", op, strings.Join(AllowedOperators, ", "))
}

// quoteValue renders a filter value. Numeric values are emitted bare so that
// ordering operators compare numbers; everything else is a single-quoted string.
func quoteValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}
