package simplex

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// vertex is one corner of the simplex: a point and its objective value.
type vertex struct {
	point []float64
	value float64
}

// simplex is the search structure of Nelder-Mead: n+1 vertices in n-space,
// kept sorted by objective value ascending (best first, worst last).
type simplex struct {
	vertices []vertex
}

// newSimplex builds the initial simplex from a guess by displacing each
// coordinate in turn by step. The guess itself is the first vertex. Values
// are filled in by the caller.
func newSimplex(guess []float64, step float64) *simplex {
	n := len(guess)
	vertices := make([]vertex, n+1)
	vertices[0] = vertex{point: append([]float64(nil), guess...)}
	for i := 0; i < n; i++ {
		p := append([]float64(nil), guess...)
		p[i] += step
		vertices[i+1] = vertex{point: p}
	}
	return &simplex{vertices: vertices}
}

// dim returns the dimensionality of the search space.
func (s *simplex) dim() int {
	return len(s.vertices) - 1
}

// sort orders the vertices by value ascending. The order is stable so runs
// with identical inputs visit identical candidate points.
func (s *simplex) sort() {
	sort.SliceStable(s.vertices, func(i, j int) bool {
		return s.vertices[i].value < s.vertices[j].value
	})
}

func (s *simplex) best() *vertex        { return &s.vertices[0] }
func (s *simplex) worst() *vertex       { return &s.vertices[len(s.vertices)-1] }
func (s *simplex) secondWorst() *vertex { return &s.vertices[len(s.vertices)-2] }

// centroid writes the mean of all vertices except the worst into dst.
func (s *simplex) centroid(dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(s.vertices) - 1
	for i := 0; i < n; i++ {
		floats.Add(dst, s.vertices[i].point)
	}
	floats.Scale(1/float64(n), dst)
}

// values writes the vertex values, in current order, into dst. A nil dst
// allocates.
func (s *simplex) values(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(s.vertices))
	}
	for i, v := range s.vertices {
		dst[i] = v.value
	}
	return dst
}

// replaceWorst swaps the worst vertex for the given candidate.
func (s *simplex) replaceWorst(point []float64, value float64) {
	w := s.worst()
	copy(w.point, point)
	w.value = value
}
