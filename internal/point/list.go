package point

import (
	"fmt"
)

// IDGenerator produces point identifiers.
type IDGenerator interface {
	Generate() string
}

// List is an owned, ordered point collection.
//
// INVARIANT: after every mutating call, Order values are exactly 0..n-1.
// List is not safe for concurrent use.
type List struct {
	points []ClickPoint
	ids    IDGenerator
}

// NewList wraps existing points. They are sorted by Order and renumbered.
func NewList(ids IDGenerator, points ...ClickPoint) *List {
	l := &List{points: SortByOrder(points), ids: ids}
	l.Renumber()
	return l
}

// Len returns the number of points.
func (l *List) Len() int {
	return len(l.points)
}

// Points returns a copy of the points in Order sequence.
func (l *List) Points() []ClickPoint {
	out := make([]ClickPoint, len(l.points))
	copy(out, l.points)
	return out
}

// Get returns the point with the given ID.
func (l *List) Get(id string) (ClickPoint, bool) {
	i := l.index(id)
	if i < 0 {
		return ClickPoint{}, false
	}
	return l.points[i], true
}

// Add appends a new default point at (x, y) with order = current count.
func (l *List) Add(x, y float64) (ClickPoint, error) {
	if len(l.points) >= MaxPoints {
		return ClickPoint{}, fmt.Errorf("cannot add point: list already holds %d points", MaxPoints)
	}
	p := New(len(l.points), x, y, l.ids.Generate())
	l.points = append(l.points, p)
	return p, nil
}

// Remove deletes the point with the given ID and renumbers the rest.
// Returns false if no such point exists.
func (l *List) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.points = append(l.points[:i], l.points[i+1:]...)
	l.Renumber()
	return true
}

// Reorder rearranges points to match ids, which must be a permutation of the
// current IDs.
func (l *List) Reorder(ids []string) error {
	if len(ids) != len(l.points) {
		return fmt.Errorf("reorder: got %d ids, list holds %d points", len(ids), len(l.points))
	}
	next := make([]ClickPoint, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("reorder: duplicate id %q", id)
		}
		seen[id] = true
		i := l.index(id)
		if i < 0 {
			return fmt.Errorf("reorder: unknown id %q", id)
		}
		next = append(next, l.points[i])
	}
	l.points = next
	l.Renumber()
	return nil
}

// Move relocates a point to position to, shifting the points in between.
func (l *List) Move(id string, to int) error {
	from := l.index(id)
	if from < 0 {
		return fmt.Errorf("move: unknown id %q", id)
	}
	if to < 0 || to >= len(l.points) {
		return fmt.Errorf("move: position %d out of range [0, %d)", to, len(l.points))
	}
	p := l.points[from]
	l.points = append(l.points[:from], l.points[from+1:]...)
	l.points = append(l.points[:to], append([]ClickPoint{p}, l.points[to:]...)...)
	l.Renumber()
	return nil
}

// Toggle flips the Enabled flag. Returns false if no such point exists.
func (l *List) Toggle(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.points[i].Enabled = !l.points[i].Enabled
	return true
}

// Update applies fn to the point with the given ID. The ID and Order cannot be
// changed through Update; use Reorder or Move for ordering.
func (l *List) Update(id string, fn func(*ClickPoint)) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("update: unknown id %q", id)
	}
	p := l.points[i]
	fn(&p)
	p.ID = l.points[i].ID
	p.Order = l.points[i].Order
	l.points[i] = p
	return nil
}

// Clear removes every point.
func (l *List) Clear() {
	l.points = l.points[:0]
}

// Renumber assigns Order = position for every point.
func (l *List) Renumber() {
	for i := range l.points {
		l.points[i].Order = i
	}
}

func (l *List) index(id string) int {
	for i, p := range l.points {
		if p.ID == id {
			return i
		}
	}
	return -1
}
