// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/2dChan/s2gamut/bsp"
	"github.com/2dChan/s2gamut/convex"
	"github.com/2dChan/s2gamut/mesh"
	"github.com/2dChan/s2gamut/nearest"
	"github.com/golang/geo/r3"
)

const (
	// parallelEps bounds the cosine between a query direction and a triangle
	// plane below which the direction counts as parallel.
	parallelEps = 1e-12
	// baryEps widens the barycentric test of segment crossings.
	baryEps = 1e-9
	// clusterEps is the segment parameter distance under which crossings are
	// considered simultaneous.
	clusterEps = 1e-9
	// nudge is the relative size of the offset used to resolve grazing hits.
	nudge = 1e-7
)

// intersect returns the distance from the center along unit direction u to the
// absolute plane of triangle ti.
func (g *Gamut) intersect(ti int, u r3.Vector) (float64, error) {
	p := g.m.Tris[ti].Abs
	nu := p.N.Dot(u)
	if math.Abs(nu) < parallelEps {
		return 0, fmt.Errorf("%w: direction parallel to triangle %d", ErrDegenerate, ti)
	}
	s := (p.D - p.N.Dot(g.opts.Center)) / nu
	if s < 0 {
		return 0, fmt.Errorf("%w: triangle %d behind the center", ErrDegenerate, ti)
	}
	return s, nil
}

func (g *Gamut) direction(dir r3.Vector) (r3.Vector, error) {
	n := dir.Norm()
	if n < mesh.MinRadius || math.IsNaN(n) || math.IsInf(n, 0) {
		return r3.Vector{}, fmt.Errorf("%w: direction %v", ErrDegenerate, dir)
	}
	return dir.Mul(1 / n), nil
}

// Radial returns the surface point in direction dir from the center and its
// distance from the center.
func (g *Gamut) Radial(dir r3.Vector) (r3.Vector, float64, error) {
	if err := g.requireBuilt("Radial"); err != nil {
		return r3.Vector{}, 0, err
	}
	u, err := g.direction(dir)
	if err != nil {
		return r3.Vector{}, 0, err
	}
	ti, ok := g.index().Locate(u)
	if !ok {
		return r3.Vector{}, 0, fmt.Errorf("%w: no triangle in direction %v", ErrNotFound, dir)
	}
	s, err := g.intersect(ti, u)
	if err != nil {
		return r3.Vector{}, 0, err
	}
	return g.opts.Center.Add(u.Mul(s)), s, nil
}

// RadialBrute is Radial by linear scan of every triangle.
func (g *Gamut) RadialBrute(dir r3.Vector) (r3.Vector, float64, error) {
	if err := g.requireBuilt("RadialBrute"); err != nil {
		return r3.Vector{}, 0, err
	}
	u, err := g.direction(dir)
	if err != nil {
		return r3.Vector{}, 0, err
	}
	best, margin := -1, math.Inf(-1)
	for _, ti := range g.tris {
		if mg := g.m.Tris[ti].Margin(u); mg > margin {
			best, margin = ti, mg
		}
	}
	if best < 0 || margin < -1e-10 {
		return r3.Vector{}, 0, fmt.Errorf("%w: no triangle in direction %v", ErrNotFound, dir)
	}
	s, err := g.intersect(best, u)
	if err != nil {
		return r3.Vector{}, 0, err
	}
	return g.opts.Center.Add(u.Mul(s)), s, nil
}

// Nearest returns the point of the surface closest to p and its distance.
func (g *Gamut) Nearest(p r3.Vector) (r3.Vector, float64, error) {
	q, d, _, err := g.NearestTriangle(p)
	return q, d, err
}

// NearestTriangle is Nearest that also returns the index of the triangle
// holding the closest point, as accepted by Triangle.
func (g *Gamut) NearestTriangle(p r3.Vector) (r3.Vector, float64, int, error) {
	if err := g.requireBuilt("Nearest"); err != nil {
		return r3.Vector{}, 0, -1, err
	}
	r, ok := g.nearestIndex().Nearest(p)
	if !ok {
		return r3.Vector{}, 0, -1, ErrNotFound
	}
	// g.tris is in handle order.
	i, _ := slices.BinarySearch(g.tris, r.Triangle)
	return r.Point, r.Dist, i, nil
}

// NearestBrute is Nearest by linear scan of every triangle.
func (g *Gamut) NearestBrute(p r3.Vector) (r3.Vector, float64, error) {
	if err := g.requireBuilt("NearestBrute"); err != nil {
		return r3.Vector{}, 0, err
	}
	r, ok := nearest.Brute(g.m, g.tris, p)
	if !ok {
		return r3.Vector{}, 0, ErrNotFound
	}
	return r.Point, r.Dist, nil
}

// Inside reports whether p is inside or on the surface.
func (g *Gamut) Inside(p r3.Vector) (bool, error) {
	if err := g.requireBuilt("Inside"); err != nil {
		return false, err
	}
	d := p.Sub(g.opts.Center)
	r := d.Norm()
	if r < mesh.MinRadius {
		return true, nil
	}
	_, rs, err := g.Radial(d)
	if err != nil {
		return false, err
	}
	return r <= rs*(1+1e-9), nil
}

// Volume returns the enclosed volume.
func (g *Gamut) Volume() (float64, error) {
	if err := g.requireBuilt("Volume"); err != nil {
		return 0, err
	}
	c := g.opts.Center
	var vol float64
	for _, ti := range g.tris {
		a, b, d := g.m.Positions(ti)
		vol += mesh.Orient(a.Sub(c), b.Sub(c), d.Sub(c))
	}
	return vol / 6, nil
}

// ConvexVolume returns the volume of the convex hull of the surface vertices.
// It bounds Volume from above.
func (g *Gamut) ConvexVolume() (float64, error) {
	if err := g.requireBuilt("ConvexVolume"); err != nil {
		return 0, err
	}
	pts := make([]r3.Vector, g.VertexCount())
	for i := range pts {
		pts[i] = g.Vertex(i)
	}
	h, err := convex.Compute(pts)
	if err != nil {
		return 0, fmt.Errorf("s2gamut: convex hull: %w", err)
	}
	return h.Volume(), nil
}

// Crossing is a point where a segment enters or leaves the surface.
type Crossing struct {
	T     float64   // segment parameter, 0 at p0 and 1 at p1
	Point r3.Vector // absolute position
	Exit  bool      // the segment leaves the gamut here
}

// Crossings returns the points where segment p0-p1 crosses the surface, sorted
// by T. Entries and exits alternate, starting with an exit when p0 is inside.
func (g *Gamut) Crossings(p0, p1 r3.Vector) ([]Crossing, error) {
	if err := g.requireBuilt("Crossings"); err != nil {
		return nil, err
	}
	inside, err := g.Inside(p0)
	if err != nil {
		return nil, err
	}
	if p1.Sub(p0).Norm() < mesh.MinRadius {
		return nil, nil
	}

	raw := g.segmentHits(p0, p1)
	var out []Crossing
	for _, cl := range cluster(raw) {
		exit, ok := g.classify(p0, p1, cl)
		if !ok {
			continue
		}
		t := (cl[0].T + cl[len(cl)-1].T) / 2
		out = append(out, Crossing{T: t, Point: p0.Add(p1.Sub(p0).Mul(t)), Exit: exit})
	}
	return alternate(out, inside), nil
}

// segmentHits returns the raw hits of p0-p1 sorted by T with at most one hit
// per triangle.
func (g *Gamut) segmentHits(p0, p1 r3.Vector) []bsp.Hit {
	hits := g.index().Segment(p0, p1, baryEps)
	slices.SortStableFunc(hits, func(a, b bsp.Hit) int {
		if c := cmp.Compare(a.T, b.T); c != 0 {
			return c
		}
		return cmp.Compare(a.Tri, b.Tri)
	})
	seen := make(map[int]bool, len(hits))
	out := hits[:0]
	for _, h := range hits {
		if seen[h.Tri] {
			continue
		}
		seen[h.Tri] = true
		out = append(out, h)
	}
	return out
}

// cluster groups sorted hits whose parameters are within clusterEps of the
// previous hit.
func cluster(hits []bsp.Hit) [][]bsp.Hit {
	var out [][]bsp.Hit
	for i, h := range hits {
		if i > 0 && h.T-hits[i-1].T <= clusterEps {
			out[len(out)-1] = append(out[len(out)-1], h)
			continue
		}
		out = append(out, []bsp.Hit{h})
	}
	return out
}

// classify decides whether a cluster of simultaneous hits is an exit, an
// entry, or a graze (false).
func (g *Gamut) classify(p0, p1 r3.Vector, cl []bsp.Hit) (bool, bool) {
	net := 0
	for _, h := range cl {
		if h.Exit {
			net++
		} else {
			net--
		}
	}
	if net == len(cl) || -net == len(cl) {
		return net > 0, true
	}

	// Mixed cluster: look again along a slightly shifted copy of the segment.
	d := p1.Sub(p0)
	off := d.Ortho().Mul(nudge * (1 + d.Norm()))
	t0, t1 := cl[0].T-clusterEps, cl[len(cl)-1].T+clusterEps
	shifted := 0
	for _, h := range g.segmentHits(p0.Add(off), p1.Add(off)) {
		if h.T < t0-1e-6 || h.T > t1+1e-6 {
			continue
		}
		if h.Exit {
			shifted++
		} else {
			shifted--
		}
	}
	if shifted != 0 {
		return shifted > 0, true
	}
	return net > 0, net != 0
}

// alternate drops crossings that do not alternate with their predecessor.
func alternate(cs []Crossing, inside bool) []Crossing {
	out := cs[:0]
	for _, c := range cs {
		if c.Exit != inside {
			continue
		}
		out = append(out, c)
		inside = !inside
	}
	return out
}

// Span is a parameter range of a segment that lies inside the gamut.
type Span struct {
	T0, T1 float64
}

// Spans returns the parts of segment p0-p1 inside the gamut.
func (g *Gamut) Spans(p0, p1 r3.Vector) ([]Span, error) {
	inside, err := g.Inside(p0)
	if err != nil {
		return nil, err
	}
	cs, err := g.Crossings(p0, p1)
	if err != nil {
		return nil, err
	}
	var out []Span
	start := -1.0
	if inside {
		start = 0
	}
	for _, c := range cs {
		if c.Exit {
			out = append(out, Span{T0: start, T1: c.T})
			continue
		}
		start = c.T
	}
	if inside != (len(cs)%2 == 1) {
		out = append(out, Span{T0: start, T1: 1})
	}
	return out, nil
}
