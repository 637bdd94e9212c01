package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate accepts "2006-01-02" or RFC3339. Blank input yields nil.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", raw)
	}
	t = t.UTC()
	return &t, nil
}
