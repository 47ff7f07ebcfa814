package point

import (
	"errors"
	"fmt"
	"sort"
)

// SortByOrder returns a copy of points sorted by ascending Order.
// The sort is stable, so points sharing an Order keep their input sequence.
func SortByOrder(points []ClickPoint) []ClickPoint {
	sorted := make([]ClickPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// ExecutionOrder returns the enabled points sorted by ascending Order.
func ExecutionOrder(points []ClickPoint) []ClickPoint {
	enabled := make([]ClickPoint, 0, len(points))
	for _, p := range points {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return SortByOrder(enabled)
}

// Validate checks the at-rest invariants of a point collection:
// non-negative DelayMS, JitterRange and DriftSpeed, unique IDs, and unique
// Order values forming 0..n-1.
//
// All violations are reported, joined with errors.Join.
func Validate(points []ClickPoint) error {
	var errs []error
	ids := make(map[string]int, len(points))
	orders := make(map[int]string, len(points))

	for i, p := range points {
		label := p.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("point %s: id is required", label))
		} else if prev, ok := ids[p.ID]; ok {
			errs = append(errs, fmt.Errorf("point %s: duplicate id (also at position %d)", label, prev))
		} else {
			ids[p.ID] = i
		}
		if p.DelayMS < 0 {
			errs = append(errs, fmt.Errorf("point %s: delay must not be negative (got %d)", label, p.DelayMS))
		}
		if p.JitterRange < 0 {
			errs = append(errs, fmt.Errorf("point %s: jitter range must not be negative (got %g)", label, p.JitterRange))
		}
		if p.DriftSpeed < 0 {
			errs = append(errs, fmt.Errorf("point %s: drift speed must not be negative (got %g)", label, p.DriftSpeed))
		}
		if other, ok := orders[p.Order]; ok {
			errs = append(errs, fmt.Errorf("point %s: order %d already used by %s", label, p.Order, other))
		} else {
			orders[p.Order] = label
		}
	}

	for want := 0; want < len(points); want++ {
		if _, ok := orders[want]; !ok {
			errs = append(errs, fmt.Errorf("order values are not contiguous: missing %d", want))
			break
		}
	}

	return errors.Join(errs...)
}
