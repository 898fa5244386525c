package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// header returns the CSV header for rows: "time" first when present, the
// remaining columns sorted. Rows are maps, so the header is the union of all
// keys seen across the result set.
func header(rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}

	hasTime := seen["time"]
	delete(seen, "time")

	cols := make([]string, 0, len(seen)+1)
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if hasTime {
		cols = append([]string{"time"}, cols...)
	}
	return cols
}

// formatValue renders a single CSV cell. Missing and null values are empty.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// writeCSV writes rows to a CSV file at path and returns the number of data
// rows written. An empty result set still creates the file.
func writeCSV(path string, rows []map[string]any) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if len(rows) == 0 {
		return 0, nil
	}

	w := csv.NewWriter(file)
	cols := header(rows)
	if err := w.Write(cols); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, len(cols))
		for i, col := range cols {
			if v, ok := row[col]; ok {
				record[i] = formatValue(v)
			}
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(rows), nil
}
