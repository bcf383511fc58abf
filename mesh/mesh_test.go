// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
)

// Vertex

func TestNewVertex(t *testing.T) {
	center := r3.Vector{X: 50}
	tests := []struct {
		name    string
		p       r3.Vector
		wantOK  bool
		wantR   float64
		wantLat float64
		wantLng float64
	}{
		{"at center", center, false, 0, 0, 0},
		{"near center", r3.Vector{X: 50 + 1e-8}, false, 0, 0, 0},
		{"up the polar axis", r3.Vector{X: 60}, true, 10, math.Pi / 2, 0},
		{"down the polar axis", r3.Vector{X: 30}, true, 20, -math.Pi / 2, 0},
		{"second axis", r3.Vector{X: 50, Y: 5}, true, 5, 0, 0},
		{"third axis", r3.Vector{X: 50, Z: 5}, true, 5, 0, math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := NewVertex(tt.p, center, 0.5)
			if ok != tt.wantOK {
				t.Fatalf("NewVertex(%v) ok = %v, want %v", tt.p, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if math.Abs(v.R-tt.wantR) > 1e-12 {
				t.Errorf("NewVertex(%v).R = %v, want %v", tt.p, v.R, tt.wantR)
			}
			if math.Abs(v.LL.Lat.Radians()-tt.wantLat) > 1e-12 {
				t.Errorf("NewVertex(%v).LL.Lat = %v, want %v", tt.p, v.LL.Lat.Radians(), tt.wantLat)
			}
			if tt.wantLat == 0 && math.Abs(v.LL.Lng.Radians()-tt.wantLng) > 1e-12 {
				t.Errorf("NewVertex(%v).LL.Lng = %v, want %v", tt.p, v.LL.Lng.Radians(), tt.wantLng)
			}
			if math.Abs(v.CR-math.Sqrt(tt.wantR)) > 1e-12 {
				t.Errorf("NewVertex(%v).CR = %v, want %v", tt.p, v.CR, math.Sqrt(tt.wantR))
			}
			if math.Abs(v.H.Norm()-v.CR) > 1e-12 {
				t.Errorf("NewVertex(%v).H norm = %v, want %v", tt.p, v.H.Norm(), v.CR)
			}
			if v.Index != -1 {
				t.Errorf("NewVertex(%v).Index = %v, want -1", tt.p, v.Index)
			}
		})
	}
}

func TestMesh_VertexRecycling(t *testing.T) {
	m := New(r3.Vector{})
	a := m.AddVertex(Vertex{P: r3.Vector{X: 1}})
	b := m.AddVertex(Vertex{P: r3.Vector{X: 2}})
	m.FreeVertex(a)
	m.FreeVertex(a)
	if got := m.NumVertices(); got != 1 {
		t.Errorf("m.NumVertices() = %v, want 1", got)
	}
	c := m.AddVertex(Vertex{P: r3.Vector{X: 3}})
	if c != a {
		t.Errorf("m.AddVertex(...) = %v, want recycled handle %v", c, a)
	}
	if !m.Verts[b].Alive() || !m.Verts[c].Alive() {
		t.Errorf("live vertices reported dead")
	}
}

// Geometry

func TestPlaneFromPoints(t *testing.T) {
	p := PlaneFromPoints(r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{Z: 1})
	want := r3.Vector{X: 1, Y: 1, Z: 1}.Normalize()
	if p.N.Sub(want).Norm() > 1e-12 {
		t.Errorf("PlaneFromPoints(...).N = %v, want %v", p.N, want)
	}
	if got := p.Dist(r3.Vector{}); math.Abs(got+1/math.Sqrt(3)) > 1e-12 {
		t.Errorf("p.Dist(origin) = %v, want %v", got, -1/math.Sqrt(3))
	}

	d := PlaneFromPoints(r3.Vector{X: 1}, r3.Vector{X: 2}, r3.Vector{X: 3})
	if !d.Degenerate() {
		t.Errorf("PlaneFromPoints(collinear).Degenerate() = false, want true")
	}
}

func TestClosestOnTriangle(t *testing.T) {
	a, b, c := r3.Vector{}, r3.Vector{X: 4}, r3.Vector{Y: 4}
	tests := []struct {
		name string
		p    r3.Vector
		want r3.Vector
	}{
		{"above interior", r3.Vector{X: 1, Y: 1, Z: 5}, r3.Vector{X: 1, Y: 1}},
		{"beyond vertex a", r3.Vector{X: -1, Y: -1, Z: 1}, a},
		{"beyond edge ab", r3.Vector{X: 2, Y: -3}, r3.Vector{X: 2}},
		{"beyond hypotenuse", r3.Vector{X: 4, Y: 4}, r3.Vector{X: 2, Y: 2}},
		{"on vertex c", c, c},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosestOnTriangle(tt.p, a, b, c)
			if got.Sub(tt.want).Norm() > 1e-12 {
				t.Errorf("ClosestOnTriangle(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestSegmentTriangle(t *testing.T) {
	a, b, c := r3.Vector{X: -1, Y: -1, Z: 1}, r3.Vector{X: 2, Y: -1, Z: 1}, r3.Vector{X: -1, Y: 2, Z: 1}
	tests := []struct {
		name   string
		p0, p1 r3.Vector
		wantOK bool
		wantT  float64
	}{
		{"through interior", r3.Vector{}, r3.Vector{Z: 2}, true, 0.5},
		{"beyond segment end", r3.Vector{}, r3.Vector{Z: 0.5}, true, 2},
		{"misses", r3.Vector{X: 5}, r3.Vector{X: 5, Z: 2}, false, 0},
		{"parallel", r3.Vector{}, r3.Vector{X: 1}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SegmentTriangle(tt.p0, tt.p1, a, b, c, 1e-9)
			if ok != tt.wantOK {
				t.Fatalf("SegmentTriangle(%v, %v) ok = %v, want %v", tt.p0, tt.p1, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.wantT) > 1e-12 {
				t.Errorf("SegmentTriangle(%v, %v) = %v, want %v", tt.p0, tt.p1, got, tt.wantT)
			}
		})
	}
}

func TestBox_Overlaps(t *testing.T) {
	b := BoxOf(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
	tests := []struct {
		name string
		o    Box
		want bool
	}{
		{"inside", BoxOf(r3.Vector{X: 0.2, Y: 0.2, Z: 0.2}, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}), true},
		{"touching", BoxOf(r3.Vector{X: 1}, r3.Vector{X: 2, Y: 1, Z: 1}), true},
		{"apart", BoxOf(r3.Vector{X: 1.5}, r3.Vector{X: 2, Y: 1, Z: 1}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Overlaps(tt.o, 0); got != tt.want {
				t.Errorf("b.Overlaps(%v) = %v, want %v", tt.o, got, tt.want)
			}
		})
	}
}

// Topology

func TestMesh_StitchTetrahedron(t *testing.T) {
	m, tris := mustTetrahedron(t)
	if err := m.Check(); err != nil {
		t.Fatalf("m.Check() error = %v, want nil", err)
	}
	if got := len(m.LiveEdges()); got != 6 {
		t.Errorf("len(m.LiveEdges()) = %v, want 6", got)
	}
	if diff := cmp.Diff(tris, m.LiveTriangles()); diff != "" {
		t.Errorf("m.LiveTriangles() mismatch (-want +got):\n%s", diff)
	}
	for _, ti := range tris {
		tr := &m.Tris[ti]
		for slot := range 3 {
			n := m.Neighbor(ti, slot)
			if n == ti || n < 0 {
				t.Errorf("m.Neighbor(%d, %d) = %v, want another triangle", ti, slot, n)
			}
		}
		if d := tr.Abs.Dist(m.Center); d >= 0 {
			t.Errorf("triangle %d center distance = %v, want negative (outward normal)", ti, d)
		}
		u := m.Verts[tr.V[0]].U.Vector.Add(m.Verts[tr.V[1]].U.Vector).Add(m.Verts[tr.V[2]].U.Vector).Normalize()
		if got := tr.Margin(u); got <= 0 {
			t.Errorf("triangle %d margin of its own centroid direction = %v, want > 0", ti, got)
		}
	}
}

func TestMesh_StitchRejects(t *testing.T) {
	tests := []struct {
		name string
		tris [][3]int
	}{
		{"open fan", [][3]int{{0, 1, 2}, {0, 2, 3}}},
		{"same direction twice", [][3]int{{0, 1, 2}, {0, 1, 3}}},
		{"three on an edge", [][3]int{{0, 1, 2}, {1, 0, 3}, {0, 1, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(r3.Vector{})
			for i := range 4 {
				m.AddVertex(Vertex{P: r3.Vector{X: float64(i)}})
			}
			var ts []int
			for _, tr := range tt.tris {
				ts = append(ts, m.NewTriangle(tr[0], tr[1], tr[2]))
			}
			if err := m.Stitch(ts); !errors.Is(err, ErrInvariant) {
				t.Errorf("m.Stitch(%v) error = %v, want ErrInvariant", tt.tris, err)
			}
		})
	}
}

func TestMesh_CheckDetectsBrokenAdjacency(t *testing.T) {
	m, tris := mustTetrahedron(t)
	tr := &m.Tris[tris[0]]
	e := &m.Edges[tr.E[0]]
	e.T[tr.EI[0]] = tris[1]
	if err := m.Check(); !errors.Is(err, ErrInvariant) {
		t.Errorf("m.Check() error = %v, want ErrInvariant", err)
	}
}

func TestMesh_CheckDetectsUnreferencedSurfaceVertex(t *testing.T) {
	m, _ := mustTetrahedron(t)
	v, _ := NewVertex(r3.Vector{X: 3, Y: 3, Z: 3}, m.Center, 1)
	v.Flags |= OnSurface
	m.AddVertex(v)
	if err := m.Check(); !errors.Is(err, ErrInvariant) {
		t.Errorf("m.Check() error = %v, want ErrInvariant", err)
	}
}

func TestMesh_ResetTopology(t *testing.T) {
	m, _ := mustTetrahedron(t)
	m.ResetTopology()
	if got := len(m.LiveTriangles()); got != 0 {
		t.Errorf("len(m.LiveTriangles()) = %v, want 0", got)
	}
	for i := range m.Verts {
		if m.Verts[i].Has(OnSurface) {
			t.Errorf("m.Verts[%d] still OnSurface after ResetTopology", i)
		}
	}
	if got := m.NumVertices(); got != 4 {
		t.Errorf("m.NumVertices() = %v, want 4", got)
	}
}

// Helpers

func mustTetrahedron(t *testing.T) (*Mesh, []int) {
	t.Helper()
	m := New(r3.Vector{X: 1, Y: 1, Z: 1})
	corners := []r3.Vector{
		{X: 2, Y: 2, Z: 2},
		{X: 2, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
		{X: 0, Y: 0, Z: 2},
	}
	for _, p := range corners {
		v, ok := NewVertex(p, m.Center, 1)
		if !ok {
			t.Fatalf("NewVertex(%v) ok = false, want true", p)
		}
		v.Flags |= OnSurface
		m.AddVertex(v)
	}
	var tris []int
	for _, f := range [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}, {1, 3, 2}} {
		a, b, c := f[0], f[1], f[2]
		ua, ub, uc := m.Verts[a].U.Vector, m.Verts[b].U.Vector, m.Verts[c].U.Vector
		if Orient(ua, ub, uc) < 0 {
			b, c = c, b
		}
		tris = append(tris, m.NewTriangle(a, b, c))
	}
	if err := m.Stitch(tris); err != nil {
		t.Fatalf("m.Stitch(...) error = %v, want nil", err)
	}
	for _, ti := range tris {
		m.ComputePlanes(ti)
	}
	return m, tris
}
