package threshold

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Provider looks up the low-stock threshold of a product. The boolean is
// false when no threshold applies.
type Provider interface {
	Threshold(ctx context.Context, productID string) (int64, bool)
}

// Static serves thresholds from configuration. It is immutable once built.
type Static struct {
	byProduct map[string]int64
	fallback  int64
}

// NewStatic builds a provider from per-product thresholds and a fallback
// used for every other product. A fallback <= 0 disables it.
func NewStatic(byProduct map[string]int64, fallback int64) *Static {
	m := make(map[string]int64, len(byProduct))
	for k, v := range byProduct {
		m[k] = v
	}
	return &Static{byProduct: m, fallback: fallback}
}

func (s *Static) Threshold(_ context.Context, productID string) (int64, bool) {
	if v, ok := s.byProduct[productID]; ok {
		return v, true
	}
	if s.fallback > 0 {
		return s.fallback, true
	}
	return 0, false
}

// Parse reads "P1=5,P2=10".
func Parse(raw string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, val, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("threshold %q: expected product=quantity", part)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("threshold %q: quantity must be a non-negative integer", part)
		}
		out[strings.TrimSpace(id)] = n
	}
	return out, nil
}

// IsLow reports whether available stock has reached the threshold.
func IsLow(available, threshold int64) bool {
	return available <= threshold
}
