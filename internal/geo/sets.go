package geo

import "sort"

// ViewSet is the set of distinct views present in a detector.
type ViewSet map[View]struct{}

// Has reports whether v is in the set.
func (s ViewSet) Has(v View) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of distinct views.
func (s ViewSet) Len() int { return len(s) }

// Sorted returns the views in ascending order.
func (s ViewSet) Sorted() []View {
	out := make([]View, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PlaneIDSet is the set of plane ids present in a detector.
type PlaneIDSet map[PlaneID]struct{}

// Has reports whether id is in the set.
func (s PlaneIDSet) Has(id PlaneID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of planes.
func (s PlaneIDSet) Len() int { return len(s) }

// Sorted returns the plane ids in traversal order.
func (s PlaneIDSet) Sorted() []PlaneID {
	out := make([]PlaneID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
