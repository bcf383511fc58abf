// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package bsp partitions the triangles of a radial surface with planes through
// the center. It answers which triangle a direction from the center passes
// through, and which triangles a segment may cross.
package bsp

import (
	"math"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r3"
)

const (
	defaultEps = 1e-10
	// defaultMaxCandidates bounds the number of splitting planes scored per
	// node.
	defaultMaxCandidates = 96
)

// Options configures Build.
type Options struct {
	// MaxCandidates is the number of edge planes scored per node, spread
	// evenly over all edges of the node. Zero scores every edge plane.
	MaxCandidates int
}

// Option sets a field of Options.
type Option func(*Options)

// WithMaxCandidates sets Options.MaxCandidates. Values below one score every
// edge plane.
func WithMaxCandidates(n int) Option {
	return func(o *Options) {
		o.MaxCandidates = max(n, 0)
	}
}

// node is either a *split or a *leaf.
type node interface {
	bounds() r1.Interval
}

// split divides triangles by a plane through the center with normal N.
// Triangles on the plane belong to both children.
type split struct {
	N        r3.Vector
	Pos, Neg node
	R2       r1.Interval
}

func (s *split) bounds() r1.Interval { return s.R2 }

// leaf is a list of triangles no single plane could separate.
type leaf struct {
	Tris []int
	R2   r1.Interval
}

func (l *leaf) bounds() r1.Interval { return l.R2 }

// Tree is a built spatial index over a frozen mesh.
type Tree struct {
	m    *mesh.Mesh
	root node
	eps  float64
	opts Options

	nodes, leaves int
}

// Build indexes the triangles tris of m. eps is the side test tolerance on
// unit directions; zero selects the default.
func Build(m *mesh.Mesh, tris []int, eps float64, setters ...Option) *Tree {
	if eps <= 0 {
		eps = defaultEps
	}
	opts := Options{MaxCandidates: defaultMaxCandidates}
	for _, set := range setters {
		set(&opts)
	}
	t := &Tree{m: m, eps: eps, opts: opts}
	t.root = t.build(tris)
	return t
}

// Stats returns the number of split and leaf nodes.
func (t *Tree) Stats() (splits, leaves int) {
	return t.nodes, t.leaves
}

type side int

const (
	straddle side = iota
	positive
	negative
)

func (t *Tree) classify(n r3.Vector, ti int) side {
	tr := &t.m.Tris[ti]
	pos, neg := true, true
	for _, v := range tr.V {
		d := n.Dot(t.m.Verts[v].U.Vector)
		if d < -t.eps {
			pos = false
		}
		if d > t.eps {
			neg = false
		}
	}
	switch {
	case pos && !neg:
		return positive
	case neg && !pos:
		return negative
	}
	return straddle
}

func (t *Tree) build(tris []int) node {
	r2 := r1.EmptyInterval()
	for _, ti := range tris {
		r2 = r2.Union(t.m.Tris[ti].R2)
	}

	n, ok := t.bestPlane(tris)
	if !ok {
		t.leaves++
		return &leaf{Tris: tris, R2: r2}
	}

	var pos, neg []int
	for _, ti := range tris {
		switch t.classify(n, ti) {
		case positive:
			pos = append(pos, ti)
		case negative:
			neg = append(neg, ti)
		default:
			pos = append(pos, ti)
			neg = append(neg, ti)
		}
	}
	t.nodes++
	return &split{
		N:   n,
		Pos: t.build(pos),
		Neg: t.build(neg),
		R2:  r2,
	}
}

// bestPlane scores the center planes through the edges of tris and returns
// the one maximizing the smaller of the two cleanly separated groups.
func (t *Tree) bestPlane(tris []int) (r3.Vector, bool) {
	var cands []r3.Vector
	seen := make(map[int]bool)
	for _, ti := range tris {
		for _, e := range t.m.Tris[ti].E {
			if seen[e] {
				continue
			}
			seen[e] = true
			ed := &t.m.Edges[e]
			n := t.m.Verts[ed.V[0]].U.Vector.Cross(t.m.Verts[ed.V[1]].U.Vector)
			if l := n.Norm(); l > t.eps {
				cands = append(cands, n.Mul(1/l))
			}
		}
	}
	if k := t.opts.MaxCandidates; k > 0 && len(cands) > k {
		step := float64(len(cands)) / float64(k)
		sub := make([]r3.Vector, 0, k)
		for i := range k {
			sub = append(sub, cands[int(float64(i)*step)])
		}
		cands = sub
	}

	var best r3.Vector
	bestScore := 0
	for _, n := range cands {
		np, nn := 0, 0
		for _, ti := range tris {
			switch t.classify(n, ti) {
			case positive:
				np++
			case negative:
				nn++
			}
		}
		if s := min(np, nn); s > bestScore {
			best, bestScore = n, s
		}
	}
	return best, bestScore > 0
}

// Locate returns the triangle that direction u (unit length, relative to the
// center) passes through. It returns false when no triangle contains u within
// tolerance.
func (t *Tree) Locate(u r3.Vector) (int, bool) {
	best, margin := t.locate(t.root, u)
	return best, best >= 0 && margin >= -t.eps
}

func (t *Tree) locate(n node, u r3.Vector) (int, float64) {
	switch n := n.(type) {
	case *split:
		d := n.N.Dot(u)
		if d > t.eps {
			return t.locate(n.Pos, u)
		}
		if d < -t.eps {
			return t.locate(n.Neg, u)
		}
		bp, mp := t.locate(n.Pos, u)
		bn, mn := t.locate(n.Neg, u)
		if mn > mp {
			return bn, mn
		}
		return bp, mp
	case *leaf:
		best, margin := -1, math.Inf(-1)
		for _, ti := range n.Tris {
			if m := t.m.Tris[ti].Margin(u); m > margin {
				best, margin = ti, m
			}
		}
		return best, margin
	}
	panic("bsp: unknown node type")
}

// Hit is a raw crossing of a segment with a triangle.
type Hit struct {
	Tri   int
	T     float64   // segment parameter, 0 at p0 and 1 at p1
	Point r3.Vector // absolute position
	Exit  bool      // the segment leaves the surface here
}

// Segment collects the crossings of segment p0-p1 with the surface. Hits are
// unsorted and a triangle may be reported more than once.
func (t *Tree) Segment(p0, p1 r3.Vector, baryEps float64) []Hit {
	s := &segQuery{
		t:    t,
		p0:   p0,
		p1:   p1,
		q0:   p0.Sub(t.m.Center),
		dq:   p1.Sub(p0),
		bary: baryEps,
	}
	s.walk(t.root, 0, 1)
	return s.hits
}

type segQuery struct {
	t      *Tree
	p0, p1 r3.Vector
	q0, dq r3.Vector // center-relative origin and direction
	bary   float64
	hits   []Hit
}

// r2Range bounds the squared distance from the center along [t0, t1].
func (s *segQuery) r2Range(t0, t1 float64) r1.Interval {
	a := s.dq.Norm2()
	b := 2 * s.q0.Dot(s.dq)
	c := s.q0.Norm2()
	f := func(t float64) float64 { return c + t*(b+t*a) }
	lo, hi := f(t0), f(t1)
	if lo > hi {
		lo, hi = hi, lo
	}
	if a > 0 {
		if tm := -b / (2 * a); tm > t0 && tm < t1 {
			lo = math.Min(lo, f(tm))
		}
	}
	return r1.Interval{Lo: lo, Hi: hi}
}

func (s *segQuery) walk(n node, t0, t1 float64) {
	rr := s.r2Range(t0, t1)
	b := n.bounds()
	tol := 1e-9 * (1 + b.Hi)
	if rr.Hi < b.Lo-tol || rr.Lo > b.Hi+tol {
		return
	}

	switch n := n.(type) {
	case *split:
		s0 := n.N.Dot(s.q0.Add(s.dq.Mul(t0)))
		s1 := n.N.Dot(s.q0.Add(s.dq.Mul(t1)))
		scale := math.Sqrt(rr.Hi) * s.t.eps
		switch {
		case s0 >= -scale && s1 >= -scale && (s0 > scale || s1 > scale):
			s.walk(n.Pos, t0, t1)
		case s0 <= scale && s1 <= scale && (s0 < -scale || s1 < -scale):
			s.walk(n.Neg, t0, t1)
		case (s0 > scale && s1 < -scale) || (s0 < -scale && s1 > scale):
			tc := t0 + (t1-t0)*s0/(s0-s1)
			margin := (t1 - t0) * 1e-6
			lo, hi := n.Pos, n.Neg
			if s0 < 0 {
				lo, hi = n.Neg, n.Pos
			}
			s.walk(lo, t0, math.Min(t1, tc+margin))
			s.walk(hi, math.Max(t0, tc-margin), t1)
		default:
			s.walk(n.Pos, t0, t1)
			s.walk(n.Neg, t0, t1)
		}
	case *leaf:
		for _, ti := range n.Tris {
			s.test(ti, t0, t1)
		}
	default:
		panic("bsp: unknown node type")
	}
}

func (s *segQuery) test(ti int, t0, t1 float64) {
	a, b, c := s.t.m.Positions(ti)
	tp, ok := mesh.SegmentTriangle(s.p0, s.p1, a, b, c, s.bary)
	if !ok {
		return
	}
	margin := (t1 - t0) * 1e-6
	if tp < t0-margin || tp > t1+margin || tp < 0 || tp > 1 {
		return
	}
	s.hits = append(s.hits, Hit{
		Tri:   ti,
		T:     tp,
		Point: s.p0.Add(s.dq.Mul(tp)),
		Exit:  s.t.m.Tris[ti].Abs.N.Dot(s.dq) > 0,
	})
}
