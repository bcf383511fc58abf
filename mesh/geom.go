// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"math"

	"github.com/golang/geo/r3"
)

// Plane is the set of points x with N.Dot(x) == D. N has unit length unless
// the plane was built from degenerate points, in which case it is zero.
type Plane struct {
	N r3.Vector
	D float64
}

// Dist returns the signed distance of p from the plane, positive on the side
// N points to.
func (p Plane) Dist(x r3.Vector) float64 {
	return p.N.Dot(x) - p.D
}

// Degenerate reports whether the plane has no normal.
func (p Plane) Degenerate() bool {
	return p.N == (r3.Vector{})
}

// PlaneFromPoints returns the plane through a, b, c oriented so that a, b, c
// appear counter-clockwise when looking against the normal.
func PlaneFromPoints(a, b, c r3.Vector) Plane {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Norm()
	if l == 0 {
		return Plane{}
	}
	n = n.Mul(1 / l)
	return Plane{N: n, D: n.Dot(a)}
}

// Orient returns the triple product a.(b x c). It is positive when a, b, c are
// counter-clockwise seen from outside a sphere around the origin.
func Orient(a, b, c r3.Vector) float64 {
	return a.Dot(b.Cross(c))
}

// ClosestOnSegment returns the point of segment ab nearest to p.
func ClosestOnSegment(p, a, b r3.Vector) r3.Vector {
	ab := b.Sub(a)
	l2 := ab.Norm2()
	if l2 == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t))
}

// ClosestOnTriangle returns the point of triangle abc nearest to p: the
// projection onto the plane when it falls inside all three edges, otherwise the
// nearest point of the three bounding segments.
func ClosestOnTriangle(p, a, b, c r3.Vector) r3.Vector {
	n := b.Sub(a).Cross(c.Sub(a))
	if l2 := n.Norm2(); l2 > 0 {
		q := p.Sub(n.Mul(p.Sub(a).Dot(n) / l2))
		if b.Sub(a).Cross(q.Sub(a)).Dot(n) >= 0 &&
			c.Sub(b).Cross(q.Sub(b)).Dot(n) >= 0 &&
			a.Sub(c).Cross(q.Sub(c)).Dot(n) >= 0 {
			return q
		}
	}

	best := ClosestOnSegment(p, a, b)
	bestD := best.Sub(p).Norm2()
	for _, q := range [2]r3.Vector{ClosestOnSegment(p, b, c), ClosestOnSegment(p, c, a)} {
		if d := q.Sub(p).Norm2(); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}

// SegmentTriangle intersects the line p0 + t*(p1-p0) with triangle abc. The
// barycentric tests are widened by eps. It returns false when the line is
// parallel to the triangle or misses it.
func SegmentTriangle(p0, p1, a, b, c r3.Vector, eps float64) (float64, bool) {
	d := p1.Sub(p0)
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	pv := d.Cross(e2)
	det := e1.Dot(pv)
	scale := d.Norm() * e1.Norm() * e2.Norm()
	if scale == 0 || math.Abs(det) <= 1e-14*scale {
		return 0, false
	}
	inv := 1 / det
	tv := p0.Sub(a)
	u := tv.Dot(pv) * inv
	if u < -eps || u > 1+eps {
		return 0, false
	}
	qv := tv.Cross(e1)
	v := d.Dot(qv) * inv
	if v < -eps || u+v > 1+eps {
		return 0, false
	}
	return e2.Dot(qv) * inv, true
}

// Box is an axis aligned bounding box.
type Box struct {
	Min, Max r3.Vector
}

// BoxOf returns the bounding box of the given points.
func BoxOf(pts ...r3.Vector) Box {
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min = r3.Vector{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vector{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// Overlaps reports whether b and o intersect after widening both by eps.
func (b Box) Overlaps(o Box, eps float64) bool {
	return b.Min.X-eps <= o.Max.X && o.Min.X-eps <= b.Max.X &&
		b.Min.Y-eps <= o.Max.Y && o.Min.Y-eps <= b.Max.Y &&
		b.Min.Z-eps <= o.Max.Z && o.Min.Z-eps <= b.Max.Z
}

// Axis returns component i (0, 1, 2) of v.
func Axis(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}
