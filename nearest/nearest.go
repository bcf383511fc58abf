// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package nearest finds the closest surface point to an arbitrary query point.
//
// The index keeps six orderings of the triangle bounding boxes, one per axis
// and side. A query grows a cube around the query point by advancing, at each
// step, the ordering whose next box is nearest. A triangle is evaluated exactly
// once the cube overlaps its box on every axis, which is detected with a touch
// counter instead of clearing per-triangle state between queries.
package nearest

import (
	"cmp"
	"math"
	"slices"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r3"
)

// perturb is the scale of the per-triangle box widening used to break ties.
const perturb = 1e-9

// Index is a nearest-point index over a frozen mesh. A query mutates internal
// bookkeeping, so an Index must not be used from several goroutines at once.
type Index struct {
	m    *mesh.Mesh
	tris []int

	lo, hi []r3.Vector // perturbed boxes, by local index

	// byMin[a] orders local indices by lo[a] ascending, byMax[a] by hi[a]
	// ascending. minKey and maxKey hold the matching sorted values.
	byMin, byMax   [3][]int
	minKey, maxKey [3][]float64
	// extent[a] is the largest box size along axis a.
	extent [3]float64

	touch []uint64
	base  uint64
}

// Build indexes the triangles tris of m.
func Build(m *mesh.Mesh, tris []int) *Index {
	n := len(tris)
	x := &Index{
		m:     m,
		tris:  slices.Clone(tris),
		lo:    make([]r3.Vector, n),
		hi:    make([]r3.Vector, n),
		touch: make([]uint64, n),
	}
	for i, ti := range tris {
		a, b, c := m.Positions(ti)
		box := mesh.BoxOf(a, b, c)
		d := perturb * (1 + float64((i*7919)%101)/101)
		x.lo[i] = box.Min.Sub(r3.Vector{X: d, Y: d, Z: d})
		x.hi[i] = box.Max.Add(r3.Vector{X: d, Y: d, Z: d})
	}

	for a := range 3 {
		x.byMin[a] = make([]int, n)
		x.byMax[a] = make([]int, n)
		for i := range n {
			x.byMin[a][i] = i
			x.byMax[a][i] = i
			x.extent[a] = math.Max(x.extent[a], mesh.Axis(x.hi[i], a)-mesh.Axis(x.lo[i], a))
		}
		slices.SortStableFunc(x.byMin[a], func(i, j int) int {
			return cmp.Compare(mesh.Axis(x.lo[i], a), mesh.Axis(x.lo[j], a))
		})
		slices.SortStableFunc(x.byMax[a], func(i, j int) int {
			return cmp.Compare(mesh.Axis(x.hi[i], a), mesh.Axis(x.hi[j], a))
		})
		x.minKey[a] = make([]float64, n)
		x.maxKey[a] = make([]float64, n)
		for k := range n {
			x.minKey[a][k] = mesh.Axis(x.lo[x.byMin[a][k]], a)
			x.maxKey[a][k] = mesh.Axis(x.hi[x.byMax[a][k]], a)
		}
	}
	return x
}

// Result is the outcome of a nearest-point query.
type Result struct {
	Point    r3.Vector
	Dist     float64
	Triangle int // mesh triangle handle
}

// cursor walks one ordering outward from the query point.
type cursor struct {
	axis int
	up   bool // walking byMin upward, otherwise byMax downward
	pos  int
}

// Nearest returns the closest point of the indexed surface to q. It returns
// false for an empty index.
func (x *Index) Nearest(q r3.Vector) (Result, bool) {
	if len(x.tris) == 0 {
		return Result{}, false
	}
	best := Result{Dist: math.Inf(1), Triangle: -1}
	x.base += 4

	// Boxes containing q on all axes are never reached by a cursor. They all
	// start within extent of q on the axis with the thinnest slab.
	ax, from, to := 0, 0, len(x.tris)
	for a := range 3 {
		qa := mesh.Axis(q, a)
		lo, _ := slices.BinarySearch(x.minKey[a], qa-x.extent[a])
		hi := upper(x.minKey[a], qa)
		if hi-lo < to-from {
			ax, from, to = a, lo, hi
		}
	}
	for _, i := range x.byMin[ax][from:to] {
		if x.strictSides(i, q) == 0 {
			x.eval(i, q, &best)
		}
	}

	var cs [6]cursor
	for a := range 3 {
		qa := mesh.Axis(q, a)
		cs[2*a] = cursor{axis: a, up: true, pos: upper(x.minKey[a], qa)}
		below, _ := slices.BinarySearch(x.maxKey[a], qa)
		cs[2*a+1] = cursor{axis: a, up: false, pos: below - 1}
	}

	for {
		k, key := -1, math.Inf(1)
		for c := range cs {
			if d, ok := x.key(&cs[c], q); ok && d < key {
				k, key = c, d
			}
		}
		if k < 0 || key >= best.Dist {
			break
		}
		c := &cs[k]
		var i int
		if c.up {
			i = x.byMin[c.axis][c.pos]
			c.pos++
		} else {
			i = x.byMax[c.axis][c.pos]
			c.pos--
		}
		if x.touch[i] < x.base {
			x.touch[i] = x.base
		}
		x.touch[i]++
		if x.touch[i] == x.base+uint64(x.strictSides(i, q)) && x.boxDist(i, q) < best.Dist {
			x.eval(i, q, &best)
		}
	}
	return best, true
}

// key returns the distance along the cursor's axis to the next box.
func (x *Index) key(c *cursor, q r3.Vector) (float64, bool) {
	qa := mesh.Axis(q, c.axis)
	if c.up {
		if c.pos >= len(x.tris) {
			return 0, false
		}
		return x.minKey[c.axis][c.pos] - qa, true
	}
	if c.pos < 0 {
		return 0, false
	}
	return qa - x.maxKey[c.axis][c.pos], true
}

// strictSides counts the axes on which box i lies entirely on one side of q.
func (x *Index) strictSides(i int, q r3.Vector) int {
	n := 0
	for a := range 3 {
		qa := mesh.Axis(q, a)
		if mesh.Axis(x.lo[i], a) > qa || mesh.Axis(x.hi[i], a) < qa {
			n++
		}
	}
	return n
}

func (x *Index) boxDist(i int, q r3.Vector) float64 {
	var s float64
	for a := range 3 {
		qa := mesh.Axis(q, a)
		d := math.Max(0, math.Max(mesh.Axis(x.lo[i], a)-qa, qa-mesh.Axis(x.hi[i], a)))
		s += d * d
	}
	return math.Sqrt(s)
}

func (x *Index) eval(i int, q r3.Vector, best *Result) {
	ti := x.tris[i]
	a, b, c := x.m.Positions(ti)
	p := mesh.ClosestOnTriangle(q, a, b, c)
	if d := p.Sub(q).Norm(); d < best.Dist {
		*best = Result{Point: p, Dist: d, Triangle: ti}
	}
}

// Brute returns the closest point by scanning every triangle. It is the
// reference the index is tested against.
func Brute(m *mesh.Mesh, tris []int, q r3.Vector) (Result, bool) {
	best := Result{Dist: math.Inf(1), Triangle: -1}
	for _, ti := range tris {
		a, b, c := m.Positions(ti)
		p := mesh.ClosestOnTriangle(q, a, b, c)
		if d := p.Sub(q).Norm(); d < best.Dist {
			best = Result{Point: p, Dist: d, Triangle: ti}
		}
	}
	return best, best.Triangle >= 0
}

// upper returns the index of the first key greater than v.
func upper(keys []float64, v float64) int {
	i, found := slices.BinarySearch(keys, v)
	for found && i < len(keys) && keys[i] == v {
		i++
	}
	return i
}
