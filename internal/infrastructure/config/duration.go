package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from the query-viz interval
// format: "<number>[s|m|h|d|w]". A bare number defaults to seconds,
// fractional values are allowed and whitespace around the unit is ignored.
type Duration time.Duration

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", node.Kind)
	}
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// QueryInterval is a query sampling interval. Besides the duration format
// it accepts the special value "once", meaning the query runs a single
// time after startup.
type QueryInterval struct {
	Once  bool
	Value Duration
}

// IsSet reports whether the interval was set explicitly in the config.
func (q QueryInterval) IsSet() bool {
	return q.Once || q.Value != 0
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (q *QueryInterval) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("interval must be a scalar, got %v", node.Kind)
	}
	if strings.EqualFold(strings.TrimSpace(node.Value), "once") {
		q.Once = true
		return nil
	}
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	if parsed < time.Second {
		return fmt.Errorf("query interval %q is below the 1s minimum", node.Value)
	}
	q.Value = Duration(parsed)
	return nil
}

// durationUnits maps interval unit suffixes to their length.
var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// durationPattern matches a duration after whitespace removal:
// a decimal number with an optional single-letter unit.
var durationPattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([a-zA-Z]?)$`)

// whitespacePattern matches any run of whitespace characters.
var whitespacePattern = regexp.MustCompile(`\s+`)

// ParseDuration parses a duration string in the query-viz interval format.
//
// Accepted forms: "10s", "1m", "0.5h", "2d", "1w", "10" (seconds),
// "10 s" (whitespace ignored). Fractional values are allowed.
//
// Parameters:
//   - s: The interval string to parse
//
// Returns:
//   - time.Duration: Parsed duration
//   - error: If the string is empty, malformed, or uses an unknown unit
func ParseDuration(s string) (time.Duration, error) {
	clean := whitespacePattern.ReplaceAllString(s, "")
	if clean == "" {
		return 0, fmt.Errorf("duration cannot be empty")
	}

	m := durationPattern.FindStringSubmatch(clean)
	if m == nil {
		return 0, fmt.Errorf("invalid duration format: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", s, err)
	}

	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = "s"
	}
	length, ok := durationUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid time unit %q in duration: %q", unit, s)
	}

	return time.Duration(value * float64(length)), nil
}
