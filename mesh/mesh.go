// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package mesh holds the vertex, edge and triangle records of a radial gamut
// surface. Records live in growable arenas and refer to each other by integer
// handle, so a full rebuild of the topology never leaves stale references.
package mesh

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// MinRadius is the distance from the center below which a point has no usable
// direction.
const MinRadius = 1e-6

// Flag is a set of vertex status bits.
type Flag uint8

const (
	// Candidate marks a vertex that survived filtering.
	Candidate Flag = 1 << iota
	// OnSurface marks a vertex used by the final mesh.
	OnSurface
	// Interior marks a vertex found strictly inside the hull.
	Interior
	// Seed marks one of the four synthetic starting vertices.
	Seed
	// Promoted marks a seed that ended up on the final surface.
	Promoted
)

// Vertex is one sample point together with its center-relative forms.
type Vertex struct {
	P  r3.Vector // absolute position
	R  float64   // radius from center
	LL s2.LatLng // elevation (Lat) and longitude (Lng) of the direction
	CR float64   // compressed radius
	U  s2.Point  // unit direction from center
	H  r3.Vector // hull-space coordinate, U scaled by the hull radius

	Flags Flag
	// Index is the position of the vertex in the final enumeration, -1 if none.
	Index int

	alive bool
}

// Has reports whether all bits of f are set.
func (v *Vertex) Has(f Flag) bool {
	return v.Flags&f == f
}

// Alive reports whether the arena slot holds a vertex.
func (v *Vertex) Alive() bool {
	return v.alive
}

// NewVertex converts the absolute point p into a vertex relative to center,
// compressing the radius with exponent exp. It returns false when p is too
// close to the center to have a direction.
//
// The first coordinate is treated as the polar axis: the elevation is measured
// from the plane of the second and third coordinates.
func NewVertex(p, center r3.Vector, exp float64) (Vertex, bool) {
	d := p.Sub(center)
	r := d.Norm()
	if r < MinRadius {
		return Vertex{}, false
	}
	u := d.Mul(1 / r)
	cr := math.Pow(r, exp)
	return Vertex{
		P: p,
		R: r,
		LL: s2.LatLng{
			Lat: s1.Angle(math.Asin(math.Max(-1, math.Min(1, u.X)))),
			Lng: s1.Angle(math.Atan2(u.Z, u.Y)),
		},
		CR:    cr,
		U:     s2.Point{Vector: u},
		H:     u.Mul(cr),
		Index: -1,
	}, true
}

// Triangle is a mesh face. Vertices are ordered counter-clockwise when looking
// from outside, edge i joins V[i] and V[(i+1)%3].
type Triangle struct {
	V  [3]int
	E  [3]int
	EI [3]int // slot of this triangle inside E[i]

	Abs    Plane // absolute space
	Hull   Plane // hull space, the center is the origin
	Sphere Plane // through the three unit directions
	// Half holds the normals of the center planes through each edge. A direction
	// u lies inside the triangle when Half[i].Dot(u) >= 0 for all i.
	Half [3]r3.Vector
	// R2 is the range of squared distances from the center.
	R2 r1.Interval

	alive bool
}

// Alive reports whether the arena slot holds a triangle.
func (t *Triangle) Alive() bool {
	return t.alive
}

// Edge joins two vertices and is shared by exactly two triangles once the
// mesh is closed.
type Edge struct {
	V  [2]int
	T  [2]int // -1 when unset
	TI [2]int // edge slot inside T[i]

	alive bool
}

// Alive reports whether the arena slot holds an edge.
func (e *Edge) Alive() bool {
	return e.alive
}

// Other returns the triangle on the other side of the edge from t.
func (e *Edge) Other(t int) int {
	if e.T[0] == t {
		return e.T[1]
	}
	return e.T[0]
}

// Mesh owns the vertex, triangle and edge arenas.
type Mesh struct {
	Center r3.Vector

	Verts []Vertex
	Tris  []Triangle
	Edges []Edge

	freeV []int
	freeT []int
	freeE []int
}

// New returns an empty mesh around center.
func New(center r3.Vector) *Mesh {
	return &Mesh{Center: center}
}

// AddVertex stores v and returns its handle, reusing a recycled slot if any.
func (m *Mesh) AddVertex(v Vertex) int {
	v.alive = true
	if n := len(m.freeV); n > 0 {
		h := m.freeV[n-1]
		m.freeV = m.freeV[:n-1]
		m.Verts[h] = v
		return h
	}
	m.Verts = append(m.Verts, v)
	return len(m.Verts) - 1
}

// FreeVertex recycles the vertex slot h.
func (m *Mesh) FreeVertex(h int) {
	if !m.Verts[h].alive {
		return
	}
	m.Verts[h] = Vertex{Index: -1}
	m.freeV = append(m.freeV, h)
}

// NumVertices returns the number of live vertices.
func (m *Mesh) NumVertices() int {
	return len(m.Verts) - len(m.freeV)
}

// NewTriangle allocates a triangle over vertices a, b, c with unset edges.
func (m *Mesh) NewTriangle(a, b, c int) int {
	t := Triangle{
		V:     [3]int{a, b, c},
		E:     [3]int{-1, -1, -1},
		alive: true,
	}
	if n := len(m.freeT); n > 0 {
		h := m.freeT[n-1]
		m.freeT = m.freeT[:n-1]
		m.Tris[h] = t
		return h
	}
	m.Tris = append(m.Tris, t)
	return len(m.Tris) - 1
}

// RemoveTriangle recycles triangle t. Edges referring to it are left alone.
func (m *Mesh) RemoveTriangle(t int) {
	if !m.Tris[t].alive {
		return
	}
	m.Tris[t].alive = false
	m.freeT = append(m.freeT, t)
}

// NewEdge allocates an edge between vertices a and b.
func (m *Mesh) NewEdge(a, b int) int {
	e := Edge{
		V:     [2]int{a, b},
		T:     [2]int{-1, -1},
		alive: true,
	}
	if n := len(m.freeE); n > 0 {
		h := m.freeE[n-1]
		m.freeE = m.freeE[:n-1]
		m.Edges[h] = e
		return h
	}
	m.Edges = append(m.Edges, e)
	return len(m.Edges) - 1
}

// RemoveEdge recycles edge e.
func (m *Mesh) RemoveEdge(e int) {
	if !m.Edges[e].alive {
		return
	}
	m.Edges[e].alive = false
	m.freeE = append(m.freeE, e)
}

// Link records that slot of triangle t is edge e, occupying slot ei of e.
func (m *Mesh) Link(t, slot, e, ei int) {
	m.Tris[t].E[slot] = e
	m.Tris[t].EI[slot] = ei
	m.Edges[e].T[ei] = t
	m.Edges[e].TI[ei] = slot
}

// Neighbor returns the triangle across edge slot of t.
func (m *Mesh) Neighbor(t, slot int) int {
	tr := &m.Tris[t]
	return m.Edges[tr.E[slot]].T[1-tr.EI[slot]]
}

// ResetTopology discards all triangles and edges and clears the per-vertex
// surface flags. Vertices keep their handles.
func (m *Mesh) ResetTopology() {
	m.Tris = m.Tris[:0]
	m.Edges = m.Edges[:0]
	m.freeT = m.freeT[:0]
	m.freeE = m.freeE[:0]
	for i := range m.Verts {
		m.Verts[i].Flags &^= OnSurface | Interior | Promoted
		m.Verts[i].Index = -1
	}
}

// LiveTriangles returns the handles of all live triangles in handle order.
func (m *Mesh) LiveTriangles() []int {
	out := make([]int, 0, len(m.Tris)-len(m.freeT))
	for i := range m.Tris {
		if m.Tris[i].alive {
			out = append(out, i)
		}
	}
	return out
}

// LiveEdges returns the handles of all live edges in handle order.
func (m *Mesh) LiveEdges() []int {
	out := make([]int, 0, len(m.Edges)-len(m.freeE))
	for i := range m.Edges {
		if m.Edges[i].alive {
			out = append(out, i)
		}
	}
	return out
}

// Positions returns the absolute positions of the vertices of t.
func (m *Mesh) Positions(t int) (a, b, c r3.Vector) {
	v := m.Tris[t].V
	return m.Verts[v[0]].P, m.Verts[v[1]].P, m.Verts[v[2]].P
}

// ComputePlanes fills the derived plane equations and radius range of t.
func (m *Mesh) ComputePlanes(t int) {
	tr := &m.Tris[t]
	va, vb, vc := &m.Verts[tr.V[0]], &m.Verts[tr.V[1]], &m.Verts[tr.V[2]]

	tr.Abs = PlaneFromPoints(va.P, vb.P, vc.P)
	tr.Hull = PlaneFromPoints(va.H, vb.H, vc.H)
	tr.Sphere = PlaneFromPoints(va.U.Vector, vb.U.Vector, vc.U.Vector)

	us := [3]r3.Vector{va.U.Vector, vb.U.Vector, vc.U.Vector}
	for i := range 3 {
		n := us[i].Cross(us[(i+1)%3])
		if l := n.Norm(); l > 0 {
			n = n.Mul(1 / l)
		}
		tr.Half[i] = n
	}

	c := m.Center
	closest := ClosestOnTriangle(c, va.P, vb.P, vc.P)
	lo := closest.Sub(c).Norm2()
	hi := math.Max(va.R*va.R, math.Max(vb.R*vb.R, vc.R*vc.R))
	tr.R2 = r1.Interval{Lo: lo, Hi: hi}
}

// Margin returns the smallest half-plane value of direction u against t. It is
// non-negative when u points into the triangle.
func (t *Triangle) Margin(u r3.Vector) float64 {
	return math.Min(t.Half[0].Dot(u), math.Min(t.Half[1].Dot(u), t.Half[2].Dot(u)))
}
