// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"errors"
	"fmt"
)

// ErrInvariant is wrapped by every error returned from Check.
var ErrInvariant = errors.New("mesh: invariant violated")

// Check verifies the closed 2-manifold invariants: distinct vertices and edges
// per triangle, consistent edge back references, exactly two live triangles per
// live edge, and every OnSurface vertex used by a triangle and an edge.
func (m *Mesh) Check() error {
	usedByTri := make([]bool, len(m.Verts))
	usedByEdge := make([]bool, len(m.Verts))

	for ti := range m.Tris {
		t := &m.Tris[ti]
		if !t.alive {
			continue
		}
		if t.V[0] == t.V[1] || t.V[1] == t.V[2] || t.V[0] == t.V[2] {
			return fmt.Errorf("%w: triangle %d repeats a vertex %v", ErrInvariant, ti, t.V)
		}
		if t.E[0] == t.E[1] || t.E[1] == t.E[2] || t.E[0] == t.E[2] {
			return fmt.Errorf("%w: triangle %d repeats an edge %v", ErrInvariant, ti, t.E)
		}
		for slot := range 3 {
			v := t.V[slot]
			if !m.Verts[v].alive {
				return fmt.Errorf("%w: triangle %d uses freed vertex %d", ErrInvariant, ti, v)
			}
			usedByTri[v] = true

			ei := t.E[slot]
			if ei < 0 || !m.Edges[ei].alive {
				return fmt.Errorf("%w: triangle %d slot %d has no live edge", ErrInvariant, ti, slot)
			}
			e := &m.Edges[ei]
			k := t.EI[slot]
			if e.T[k] != ti || e.TI[k] != slot {
				return fmt.Errorf("%w: edge %d does not refer back to triangle %d", ErrInvariant, ei, ti)
			}
			a, b := t.V[slot], t.V[(slot+1)%3]
			if !(e.V[0] == a && e.V[1] == b) && !(e.V[0] == b && e.V[1] == a) {
				return fmt.Errorf("%w: edge %d vertices %v do not match triangle %d", ErrInvariant, ei, e.V, ti)
			}
		}
	}

	for ei := range m.Edges {
		e := &m.Edges[ei]
		if !e.alive {
			continue
		}
		for k := range 2 {
			t := e.T[k]
			if t < 0 || !m.Tris[t].alive {
				return fmt.Errorf("%w: edge %d has %d live triangles, want 2", ErrInvariant, ei, k)
			}
			if m.Tris[t].E[e.TI[k]] != ei {
				return fmt.Errorf("%w: triangle %d does not refer back to edge %d", ErrInvariant, t, ei)
			}
		}
		if e.T[0] == e.T[1] {
			return fmt.Errorf("%w: edge %d has the same triangle on both sides", ErrInvariant, ei)
		}
		usedByEdge[e.V[0]] = true
		usedByEdge[e.V[1]] = true
	}

	for vi := range m.Verts {
		v := &m.Verts[vi]
		if !v.alive || !v.Has(OnSurface) {
			continue
		}
		if !usedByTri[vi] || !usedByEdge[vi] {
			return fmt.Errorf("%w: surface vertex %d is not referenced by the mesh", ErrInvariant, vi)
		}
	}
	return nil
}

// Stitch creates the edges of the triangles ts by pairing each directed edge
// with its reverse in another triangle. It fails when an edge has no twin, is
// shared by more than two triangles, or is traversed twice in the same
// direction.
func (m *Mesh) Stitch(ts []int) error {
	open := make(map[[2]int]int)
	closed := make(map[[2]int]bool)
	for _, t := range ts {
		for slot := range 3 {
			a, b := m.Tris[t].V[slot], m.Tris[t].V[(slot+1)%3]
			k := [2]int{min(a, b), max(a, b)}
			if closed[k] {
				return fmt.Errorf("%w: edge %d-%d shared by more than two triangles", ErrInvariant, a, b)
			}
			if e, ok := open[k]; ok {
				if m.Edges[e].V[0] != b {
					return fmt.Errorf("%w: edge %d-%d traversed twice in the same direction", ErrInvariant, a, b)
				}
				m.Link(t, slot, e, 1)
				delete(open, k)
				closed[k] = true
				continue
			}
			e := m.NewEdge(a, b)
			m.Link(t, slot, e, 0)
			open[k] = e
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: %d edges have no twin", ErrInvariant, len(open))
	}
	return nil
}
