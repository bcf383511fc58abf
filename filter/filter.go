// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package filter decides which sample points survive to triangulation. It keeps,
// per small angular cell and per weighted direction metric, only the point
// farthest from the center.
package filter

import (
	"math"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const (
	// NumSlots is the number of directional slots kept per cell.
	NumSlots = 5

	// DupDist is the distance under which two points are the same point.
	DupDist = 1e-5

	maxDepth = 24
	// minCos bounds how much coarser longitude cells may get near the poles.
	minCos = 0.05
)

// slotWeights scale the squared (L, a, b) components of the center offset.
// Each slot keeps the point that is most extreme under its weighting.
var slotWeights = [NumSlots]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 4, Y: 1, Z: 1},
	{X: 1, Y: 4, Z: 1},
	{X: 1, Y: 1, Z: 4},
	{X: 0.25, Y: 1, Z: 1},
}

type cell struct {
	rect  r2.Rect // X is longitude, Y is elevation
	child int     // first of four consecutive children, -1 for a leaf
	depth int
	slots [NumSlots]int
}

func (c *cell) leaf() bool {
	return c.child < 0
}

func (c *cell) holds(h int) bool {
	for _, s := range c.slots {
		if s == h {
			return true
		}
	}
	return false
}

// Filter is the angular quadtree that owns candidate vertices during the
// filling phase.
type Filter struct {
	m        *mesh.Mesh
	res      float64
	noFilter bool

	cells []cell
	// dups maps a quantized position to the handles stored there. Used only
	// when filtering is disabled.
	dups map[[3]int64][]int
}

// New returns a filter storing vertices in m. res is the target surface
// resolution in absolute units. With noFilter set every point is retained and
// duplicates collapse onto the existing vertex.
func New(m *mesh.Mesh, res float64, noFilter bool) *Filter {
	f := &Filter{
		m:        m,
		res:      res,
		noFilter: noFilter,
	}
	if noFilter {
		f.dups = make(map[[3]int64][]int)
		return f
	}
	f.cells = []cell{newCell(r2.Rect{
		X: r1.Interval{Lo: -math.Pi, Hi: math.Pi},
		Y: r1.Interval{Lo: -math.Pi / 2, Hi: math.Pi / 2},
	}, 0)}
	return f
}

func newCell(rect r2.Rect, depth int) cell {
	c := cell{rect: rect, child: -1, depth: depth}
	for i := range c.slots {
		c.slots[i] = -1
	}
	return c
}

// Add offers v to the filter. It returns the handle of the vertex now holding
// v's place, or -1 when v was discarded.
func (f *Filter) Add(v mesh.Vertex) int {
	v.Flags |= mesh.Candidate
	if f.noFilter {
		return f.addVerbatim(v)
	}

	h := f.m.AddVertex(v)
	ci := f.descend(h)
	f.place(ci, h)
	if !f.cells[ci].holds(h) {
		f.release(h)
		return -1
	}
	return h
}

// resolution returns the largest acceptable cell size, in elevation and
// longitude, for a vertex.
func (f *Filter) resolution(v *mesh.Vertex) (float64, float64) {
	ang := math.Min(math.Pi, f.res/v.R)
	c := math.Max(minCos, math.Cos(v.LL.Lat.Radians()))
	return ang, ang / c
}

// descend walks from the root to the leaf that must receive h, splitting cells
// that are coarser than h's resolution.
func (f *Filter) descend(h int) int {
	v := &f.m.Verts[h]
	latRes, lngRes := f.resolution(v)
	p := r2.Point{X: v.LL.Lng.Radians(), Y: v.LL.Lat.Radians()}

	ci := 0
	for {
		c := &f.cells[ci]
		if c.leaf() {
			fine := c.rect.Y.Length() <= latRes && c.rect.X.Length() <= lngRes
			if fine || c.depth >= maxDepth {
				return ci
			}
			f.split(ci)
		}
		ci = f.childFor(ci, p)
	}
}

func (f *Filter) childFor(ci int, p r2.Point) int {
	c := &f.cells[ci]
	mid := c.rect.Center()
	k := 0
	if p.X >= mid.X {
		k |= 1
	}
	if p.Y >= mid.Y {
		k |= 2
	}
	return c.child + k
}

// split turns leaf ci into four children and redistributes its occupants.
func (f *Filter) split(ci int) {
	rect, depth := f.cells[ci].rect, f.cells[ci].depth
	mid := rect.Center()
	first := len(f.cells)
	for k := range 4 {
		x := r1.Interval{Lo: rect.X.Lo, Hi: mid.X}
		if k&1 != 0 {
			x = r1.Interval{Lo: mid.X, Hi: rect.X.Hi}
		}
		y := r1.Interval{Lo: rect.Y.Lo, Hi: mid.Y}
		if k&2 != 0 {
			y = r1.Interval{Lo: mid.Y, Hi: rect.Y.Hi}
		}
		f.cells = append(f.cells, newCell(r2.Rect{X: x, Y: y}, depth+1))
	}

	c := &f.cells[ci]
	c.child = first
	occupants := make([]int, 0, NumSlots)
	for i, h := range c.slots {
		if h >= 0 && !contains(occupants, h) {
			occupants = append(occupants, h)
		}
		c.slots[i] = -1
	}

	for _, h := range occupants {
		v := &f.m.Verts[h]
		child := f.childFor(ci, r2.Point{X: v.LL.Lng.Radians(), Y: v.LL.Lat.Radians()})
		f.place(child, h)
		if !f.cells[child].holds(h) {
			f.release(h)
		}
	}
}

// place applies the replacement rule of every slot of leaf ci to h. Displaced
// incumbents that no longer hold any slot are released.
func (f *Filter) place(ci int, h int) {
	c := &f.cells[ci]
	v := &f.m.Verts[h]
	var displaced []int
	for s := range c.slots {
		inc := c.slots[s]
		if inc == h {
			continue
		}
		if inc < 0 {
			c.slots[s] = h
			continue
		}
		iv := &f.m.Verts[inc]
		if v.P.Sub(iv.P).Norm() <= DupDist {
			continue
		}
		if f.metric(s, v) > f.metric(s, iv) {
			c.slots[s] = h
			displaced = append(displaced, inc)
		}
	}
	for _, inc := range displaced {
		if !c.holds(inc) {
			f.release(inc)
		}
	}
}

func (f *Filter) metric(slot int, v *mesh.Vertex) float64 {
	d := v.P.Sub(f.m.Center)
	w := slotWeights[slot]
	return w.X*d.X*d.X + w.Y*d.Y*d.Y + w.Z*d.Z*d.Z
}

// release drops a vertex that lost all of its slots. Seeds are owned by the
// triangulator and only lose their candidate status.
func (f *Filter) release(h int) {
	v := &f.m.Verts[h]
	if v.Has(mesh.Seed) {
		v.Flags &^= mesh.Candidate
		return
	}
	f.m.FreeVertex(h)
}

func (f *Filter) addVerbatim(v mesh.Vertex) int {
	k := quantize(v.P)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, h := range f.dups[[3]int64{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if f.m.Verts[h].P.Sub(v.P).Norm() <= DupDist {
						return h
					}
				}
			}
		}
	}
	h := f.m.AddVertex(v)
	f.dups[k] = append(f.dups[k], h)
	return h
}

func quantize(p r3.Vector) [3]int64 {
	return [3]int64{
		int64(math.Floor(p.X / DupDist)),
		int64(math.Floor(p.Y / DupDist)),
		int64(math.Floor(p.Z / DupDist)),
	}
}

// Candidates returns the handles of all surviving non-seed vertices in handle
// order.
func (f *Filter) Candidates() []int {
	var out []int
	for h := range f.m.Verts {
		v := &f.m.Verts[h]
		if v.Alive() && v.Has(mesh.Candidate) && !v.Has(mesh.Seed) {
			out = append(out, h)
		}
	}
	return out
}

// Occupants returns the distinct vertex handles held by leaf slots. In
// no-filter mode it is the same as Candidates.
func (f *Filter) Occupants() []int {
	if f.noFilter {
		return f.Candidates()
	}
	seen := make(map[int]bool)
	var out []int
	for i := range f.cells {
		c := &f.cells[i]
		if !c.leaf() {
			continue
		}
		for _, h := range c.slots {
			if h >= 0 && !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out
}

func contains(s []int, h int) bool {
	for _, x := range s {
		if x == h {
			return true
		}
	}
	return false
}

// AddSeed stores a synthetic seed vertex. Seeds compete for slots like any
// other point but are never recycled, so the returned handle stays valid.
func (f *Filter) AddSeed(v mesh.Vertex) int {
	v.Flags |= mesh.Seed | mesh.Candidate
	h := f.m.AddVertex(v)
	if f.noFilter {
		return h
	}
	ci := f.descend(h)
	f.place(ci, h)
	if !f.cells[ci].holds(h) {
		f.m.Verts[h].Flags &^= mesh.Candidate
	}
	return h
}
