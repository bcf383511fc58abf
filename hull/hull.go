// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package hull builds the closed triangulated surface of a gamut by incremental
// convex hull insertion in hull space, where each vertex sits along its unit
// direction at its compressed radius.
package hull

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r3"
)

const (
	defaultEps = 1e-9
	// orientEps is the smallest accepted triple product of unit directions for
	// a new triangle.
	orientEps = 1e-12
)

// SeedDirections are the tetrahedral directions of the four seed vertices.
var SeedDirections = [4]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
}

// ErrSeeds is returned when the seed vertices do not form a tetrahedron around
// the center.
var ErrSeeds = errors.New("hull: seed vertices do not enclose the center")

// Options configures Build.
type Options struct {
	Eps float64
}

// Option sets a field of Options.
type Option func(*Options) error

// WithEps sets the relative tolerance of the outside test.
func WithEps(eps float64) Option {
	return func(o *Options) error {
		if eps <= 0 {
			return fmt.Errorf("hull: eps must be positive, got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

// Stats reports what Build did with the inserted vertices.
type Stats struct {
	Inserted int
	Interior int
}

// face is one horizon edge: edge slot of a visible triangle.
type face struct {
	t, slot int
}

type builder struct {
	m   *mesh.Mesh
	eps float64

	visible map[int]bool
	horizon map[int]face // keyed by edge handle
}

// Build discards any topology in m, seeds a tetrahedron from seeds and inserts
// the vertices of order by decreasing hull radius. Vertices found inside the
// hull are flagged mesh.Interior.
func Build(m *mesh.Mesh, seeds [4]int, order []int, setters ...Option) (Stats, error) {
	opts := Options{Eps: defaultEps}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return Stats{}, err
		}
	}

	m.ResetTopology()
	if err := seedTetrahedron(m, seeds); err != nil {
		return Stats{}, err
	}

	sorted := slices.Clone(order)
	SortByHullRadius(m, sorted)

	b := &builder{
		m:       m,
		eps:     opts.Eps,
		visible: make(map[int]bool),
		horizon: make(map[int]face),
	}
	var st Stats
	for _, vi := range sorted {
		if b.insert(vi) {
			st.Inserted++
		} else {
			m.Verts[vi].Flags |= mesh.Interior
			st.Interior++
		}
	}
	return st, nil
}

// SortByHullRadius orders vertex handles by decreasing hull radius. Ties keep
// their handle order.
func SortByHullRadius(m *mesh.Mesh, hs []int) {
	slices.SortStableFunc(hs, func(a, b int) int {
		return cmp.Compare(m.Verts[b].H.Norm2(), m.Verts[a].H.Norm2())
	})
}

func seedTetrahedron(m *mesh.Mesh, seeds [4]int) error {
	var tris []int
	for _, f := range [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
		a, b, c := seeds[f[0]], seeds[f[1]], seeds[f[2]]
		o := mesh.Orient(m.Verts[a].U.Vector, m.Verts[b].U.Vector, m.Verts[c].U.Vector)
		if o < 0 {
			b, c = c, b
		} else if o == 0 {
			return ErrSeeds
		}
		tris = append(tris, m.NewTriangle(a, b, c))
	}
	if err := m.Stitch(tris); err != nil {
		return fmt.Errorf("%w: %w", ErrSeeds, err)
	}
	for _, t := range tris {
		m.ComputePlanes(t)
	}
	return nil
}

// insert adds vertex vi to the hull. It returns false when vi is inside.
func (b *builder) insert(vi int) bool {
	m := b.m
	h := m.Verts[vi].H
	tol := b.eps * max(1, h.Norm())

	clear(b.visible)
	clear(b.horizon)
	for ti := range m.Tris {
		t := &m.Tris[ti]
		if t.Alive() && t.Hull.Dist(h) > tol {
			b.toggle(ti)
		}
	}
	if len(b.visible) == 0 {
		return false
	}

	if !b.repair(vi) {
		return false
	}
	faces, ok := b.loop()
	if !ok {
		return false
	}
	b.connect(vi, faces)
	return true
}

// toggle adds triangle t to the visible set. Edges shared with an already
// visible triangle cancel out of the horizon.
func (b *builder) toggle(t int) {
	b.visible[t] = true
	for slot, e := range b.m.Tris[t].E {
		if _, ok := b.horizon[e]; ok {
			delete(b.horizon, e)
			continue
		}
		b.horizon[e] = face{t: t, slot: slot}
	}
}

// repair pulls in the triangle behind every horizon edge whose new triangle
// would be inverted or degenerate, until the horizon is stable.
func (b *builder) repair(vi int) bool {
	m := b.m
	u := m.Verts[vi].U.Vector
	for {
		if len(b.horizon) == 0 {
			return false
		}
		pulled := false
		for _, e := range sortedKeys(b.horizon) {
			f := b.horizon[e]
			tr := &m.Tris[f.t]
			ua := m.Verts[tr.V[f.slot]].U.Vector
			ub := m.Verts[tr.V[(f.slot+1)%3]].U.Vector
			if mesh.Orient(ua, ub, u) > orientEps {
				continue
			}
			b.toggle(m.Edges[e].Other(f.t))
			pulled = true
			break
		}
		if !pulled {
			return true
		}
	}
}

// loop orders the horizon faces into a single closed polygon. It fails when the
// horizon is not one simple loop.
func (b *builder) loop() ([]face, bool) {
	m := b.m
	next := make(map[int]face, len(b.horizon))
	for _, e := range sortedKeys(b.horizon) {
		f := b.horizon[e]
		a := m.Tris[f.t].V[f.slot]
		if _, dup := next[a]; dup {
			return nil, false
		}
		next[a] = f
	}

	first := b.horizon[sortedKeys(b.horizon)[0]]
	out := make([]face, 0, len(b.horizon))
	f := first
	for range len(b.horizon) {
		out = append(out, f)
		end := m.Tris[f.t].V[(f.slot+1)%3]
		nf, ok := next[end]
		if !ok {
			return nil, false
		}
		f = nf
	}
	if f != first {
		return nil, false
	}
	return out, true
}

// connect fans vertex vi to the horizon polygon and removes the visible
// triangles and the edges between them.
func (b *builder) connect(vi int, faces []face) {
	m := b.m
	spokes := make(map[int]int, len(faces))
	spoke := func(t, slot, a int) {
		if e, ok := spokes[a]; ok {
			m.Link(t, slot, e, 1)
			return
		}
		e := m.NewEdge(a, vi)
		m.Link(t, slot, e, 0)
		spokes[a] = e
	}

	var created []int
	for _, f := range faces {
		old := &m.Tris[f.t]
		a, c := old.V[f.slot], old.V[(f.slot+1)%3]
		e, ei := old.E[f.slot], old.EI[f.slot]

		nt := m.NewTriangle(a, c, vi)
		m.Link(nt, 0, e, ei)
		spoke(nt, 1, c)
		spoke(nt, 2, a)
		created = append(created, nt)
	}

	gone := sortedKeys(b.visible)
	for _, t := range gone {
		for _, e := range m.Tris[t].E {
			if _, onHorizon := b.horizon[e]; !onHorizon {
				m.RemoveEdge(e)
			}
		}
	}
	for _, t := range gone {
		m.RemoveTriangle(t)
	}
	for _, t := range created {
		m.ComputePlanes(t)
	}
}

func sortedKeys[V any](mp map[int]V) []int {
	keys := make([]int, 0, len(mp))
	for k := range mp {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
