package commands

import (
	"fmt"
	"strconv"
	"strings"
)

// parseHeader splits a "Name: value" flag
func parseHeader(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q (expected \"Name: value\")", raw)
	}
	return name, strings.TrimSpace(value), nil
}

// parseParams turns repeated key=value flags into a map. Later keys win.
func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(raw))
	for _, p := range raw {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", p)
		}
		params[key] = value
	}
	return params, nil
}

// parseUser splits a "user:password" flag. A missing password is empty.
func parseUser(raw string) (string, string) {
	user, password, _ := strings.Cut(raw, ":")
	return user, password
}

// parseRateLimit converts strings like 500K, 2M or 1.5MB into KB/s.
// Plain numbers are bytes per second and round up to a whole KB.
func parseRateLimit(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("rate limit cannot be negative: %s", raw)
		}
		return (n + 1023) / 1024, nil
	}

	upper := strings.ToUpper(raw)
	upper = strings.TrimSuffix(upper, "/S")
	upper = strings.TrimSuffix(upper, "B")

	var multiplier float64
	switch {
	case strings.HasSuffix(upper, "K"):
		multiplier = 1
	case strings.HasSuffix(upper, "M"):
		multiplier = 1024
	case strings.HasSuffix(upper, "G"):
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("invalid rate format: %s (use e.g. 500K, 2M)", raw)
	}

	value, err := strconv.ParseFloat(upper[:len(upper)-1], 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid rate format: %s (use e.g. 500K, 2M)", raw)
	}
	return int64(value * multiplier), nil
}
