package aggregation

import (
	"fmt"
	"time"
)

// WindowSpec is a parsed rollup window. A zero Size means "no windowing".
type WindowSpec struct {
	Size time.Duration
}

// ParseWindowSize parses Go duration syntax plus "Xd" for days.
// An empty string yields the zero WindowSpec.
func ParseWindowSize(s string) (WindowSpec, error) {
	if s == "" {
		return WindowSpec{}, nil
	}

	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return WindowSpec{}, fmt.Errorf("invalid window_size %q: %w", s, err)
		}
		if days <= 0 {
			return WindowSpec{}, fmt.Errorf("window_size must be positive, got %q", s)
		}
		return WindowSpec{Size: time.Duration(days) * 24 * time.Hour}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return WindowSpec{}, fmt.Errorf("invalid window_size %q: %w", s, err)
	}
	if d <= 0 {
		return WindowSpec{}, fmt.Errorf("window_size must be positive, got %q", s)
	}
	return WindowSpec{Size: d}, nil
}

// BucketFor truncates an event timestamp to its window start.
// Example: BucketFor(10:35:42, time.Minute) → 10:35:00
func BucketFor(t time.Time, granularity time.Duration) time.Time {
	if granularity <= 0 {
		return time.Time{}
	}
	return t.UTC().Truncate(granularity)
}
