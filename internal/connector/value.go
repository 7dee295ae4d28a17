package connector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// extractValue pulls the sampled numeric value out of one result row.
//
// With exactly one column, that column is used. With multiple columns the
// selector is required; it is matched case-insensitively because DBMSes
// disagree on result column casing (MySQL's SHOW STATUS yields
// "Variable_name"/"Value", information_schema yields lowercase).
func extractValue(row map[string]any, column string) (float64, error) {
	if len(row) == 0 {
		return 0, ErrNoRows
	}

	if column == "" {
		if len(row) > 1 {
			return 0, fmt.Errorf("%w: result has columns %v", ErrAmbiguousColumn, columnNames(row))
		}
		for _, v := range row {
			return toFloat(v)
		}
	}

	for name, v := range row {
		if strings.EqualFold(name, column) {
			return toFloat(v)
		}
	}
	return 0, fmt.Errorf("%w: %q (result has columns %v)", ErrColumnNotFound, column, columnNames(row))
}

// columnNames returns a row's column names, sorted for stable error messages.
func columnNames(row map[string]any) []string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toFloat converts a raw driver value to float64.
//
// Drivers return numbers in many shapes: MySQL returns []byte for most
// scalars, sqlite returns int64 or float64, postgres returns strings for
// numerics beyond float64 range.
func toFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case float32:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case int32:
		return float64(value), nil
	case int:
		return float64(value), nil
	case uint64:
		return float64(value), nil
	case []byte:
		return parseFloat(string(value))
	case string:
		return parseFloat(value)
	case nil:
		return 0, fmt.Errorf("%w: NULL", ErrNotNumeric)
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, v)
	}
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return f, nil
}
