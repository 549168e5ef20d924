package optimization

import (
	"cmp"
	"math"
	"slices"
)

// PointSet is the working set of scored points. Points are only ever
// appended. PointSet is not safe for concurrent use; the search loop owns it.
type PointSet struct {
	points []Point
}

// NewPointSet returns a set holding copies of seeds in their given order.
func NewPointSet(seeds []Point) *PointSet {
	s := &PointSet{points: make([]Point, 0, len(seeds))}
	for _, p := range seeds {
		s.Insert(p)
	}
	return s
}

// Insert appends a copy of p.
func (s *PointSet) Insert(p Point) {
	s.points = append(s.points, p.Clone())
}

// Len returns the number of points.
func (s *PointSet) Len() int {
	return len(s.points)
}

// Points returns the points in insertion order.
func (s *PointSet) Points() []Point {
	return slices.Clone(s.points)
}

// SortedView returns the points ordered by score without touching the set.
// With descending the largest score comes first, so for minimization the
// best point is last; ascending does the same for maximization. NaN scores
// always sort to the front, the worst end. The sort is stable.
func (s *PointSet) SortedView(descending bool) []Point {
	view := slices.Clone(s.points)
	slices.SortStableFunc(view, func(a, b Point) int {
		return compareScores(a.Score, b.Score, descending)
	})
	return view
}

// Best returns the extremal point after sorting: the smallest score when
// descending, the largest otherwise. ok is false for an empty set.
func (s *PointSet) Best(descending bool) (best Point, ok bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	// Ties resolve to the last-inserted point, matching SortedView's last element.
	idx := 0
	for i := 1; i < len(s.points); i++ {
		if compareScores(s.points[i].Score, s.points[idx].Score, descending) >= 0 {
			idx = i
		}
	}
	return s.points[idx].Clone(), true
}

func compareScores(a, b float64, descending bool) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	if descending {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}
