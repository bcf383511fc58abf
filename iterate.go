// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"github.com/golang/geo/r3"
)

// VertexCount returns the number of surface vertices, 0 before Build.
func (g *Gamut) VertexCount() int {
	return len(g.verts)
}

// Vertex returns the position of surface vertex i.
func (g *Gamut) Vertex(i int) r3.Vector {
	if i < 0 || i >= len(g.verts) {
		panic("Vertex: index out of range")
	}
	return g.m.Verts[g.verts[i]].P
}

// TriangleCount returns the number of surface triangles, 0 before Build.
func (g *Gamut) TriangleCount() int {
	return len(g.tris)
}

// Triangle returns the vertex indices of triangle i, counter-clockwise seen
// from outside.
func (g *Gamut) Triangle(i int) [3]int {
	if i < 0 || i >= len(g.tris) {
		panic("Triangle: index out of range")
	}
	v := g.m.Tris[g.tris[i]].V
	return [3]int{g.m.Verts[v[0]].Index, g.m.Verts[v[1]].Index, g.m.Verts[v[2]].Index}
}

// TriangleIterator enumerates the surface triangles in a stable order.
type TriangleIterator struct {
	g    *Gamut
	next int
}

// Triangles returns an iterator positioned at the first triangle.
func (g *Gamut) Triangles() *TriangleIterator {
	return &TriangleIterator{g: g}
}

// Reset moves the iterator back to the first triangle.
func (it *TriangleIterator) Reset() {
	it.next = 0
}

// Next returns the vertex indices of the next triangle, or false when all
// triangles have been returned.
func (it *TriangleIterator) Next() ([3]int, bool) {
	if it.next >= it.g.TriangleCount() {
		return [3]int{}, false
	}
	it.next++
	return it.g.Triangle(it.next - 1), true
}
