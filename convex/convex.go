// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package convex computes the convex hull of a point set with quickhull. It
// is the reference a gamut surface is compared against: a gamut encloses at
// most the volume of the convex hull of its vertices.
package convex

import (
	"errors"
	"fmt"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps = 1e-12
)

// Hull is a triangulated convex hull.
type Hull struct {
	Vertices  []r3.Vector
	Triangles [][3]int
}

func (h *Hull) TriangleVertices(tIdx int) (r3.Vector, r3.Vector, r3.Vector) {
	if tIdx < 0 || tIdx >= len(h.Triangles) {
		panic("TriangleVertices: tIdx out of bounds")
	}
	t := h.Triangles[tIdx]
	return h.Vertices[t[0]], h.Vertices[t[1]], h.Vertices[t[2]]
}

// Volume returns the volume enclosed by the hull.
func (h *Hull) Volume() float64 {
	c := h.interior()
	var vol float64
	for i := range h.Triangles {
		a, b, d := h.TriangleVertices(i)
		vol += mesh.Orient(a.Sub(c), b.Sub(c), d.Sub(c))
	}
	return vol / 6
}

// interior returns the centroid of the hull vertices.
func (h *Hull) interior() r3.Vector {
	var c r3.Vector
	seen := make(map[int]bool)
	for _, t := range h.Triangles {
		for _, v := range t {
			if !seen[v] {
				seen[v] = true
				c = c.Add(h.Vertices[v])
			}
		}
	}
	if len(seen) == 0 {
		return c
	}
	return c.Mul(1 / float64(len(seen)))
}

type Options struct {
	Eps float64
}

type Option func(*Options) error

func WithEps(eps float64) Option {
	return func(o *Options) error {
		if eps <= 0 {
			return fmt.Errorf("convex: eps must be positive, got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

// Compute returns the convex hull of vertices. Triangles index into vertices
// and are counter-clockwise seen from outside.
func Compute(vertices []r3.Vector, setters ...Option) (*Hull, error) {
	opts := Options{
		Eps: defaultEps,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	if len(vertices) < 4 {
		return nil, errors.New("convex: insufficient vertices for a hull (minimum 4 required)")
	}

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(vertices, true, true, opts.Eps)
	if len(ch.Indices) == 0 || len(ch.Indices)%3 != 0 {
		return nil, errors.New("convex: inconsistent number of indices returned from QuickHull")
	}
	numTriangles := len(ch.Indices) / 3
	h := &Hull{
		Vertices:  vertices,
		Triangles: make([][3]int, numTriangles),
	}
	for i := range numTriangles {
		base := i * 3
		h.Triangles[i] = [3]int{ch.Indices[base], ch.Indices[base+1], ch.Indices[base+2]}
	}
	c := h.interior()
	for i := range h.Triangles {
		sortTriangleVerticesCCW(&h.Triangles[i], h.Vertices, c)
	}

	return h, nil
}

func sortTriangleVerticesCCW(t *[3]int, v []r3.Vector, c r3.Vector) {
	p0, p1, p2 := v[t[0]], v[t[1]], v[t[2]]
	if mesh.Orient(p0.Sub(c), p1.Sub(c), p2.Sub(c)) < 0 {
		t[1], t[2] = t[2], t[1]
	}
}
