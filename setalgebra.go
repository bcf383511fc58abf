// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"fmt"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r3"
)

// boxEps widens triangle bounding boxes in the pair rejection test.
const boxEps = 1e-9

func (g *Gamut) requireFilling(op string) error {
	if g.state != filling {
		return fmt.Errorf("%w: %s on a built gamut", ErrInvalidState, op)
	}
	return nil
}

// Expand adds every surface vertex of o to g, which must still be filling.
func (g *Gamut) Expand(o *Gamut) error {
	if err := g.requireFilling("Expand"); err != nil {
		return err
	}
	if err := o.requireBuilt("Expand"); err != nil {
		return err
	}
	if err := g.compatible(o); err != nil {
		return err
	}
	for _, vi := range o.verts {
		if _, err := g.AddPoint(o.m.Verts[vi].P); err != nil {
			return err
		}
	}
	return nil
}

// Intersect fills g with the intersection of a and b and builds it. g must be
// filling and created with WithNoFilter. Incompatible inputs leave g unchanged.
func (g *Gamut) Intersect(a, b *Gamut) error {
	if err := g.requireFilling("Intersect"); err != nil {
		return err
	}
	if !g.opts.NoFilter {
		return fmt.Errorf("%w: Intersect needs an unfiltered output gamut", ErrInvalidState)
	}
	for _, x := range []*Gamut{a, b} {
		if err := x.requireBuilt("Intersect"); err != nil {
			return err
		}
	}
	if err := a.compatible(b); err != nil {
		return err
	}
	if err := g.compatible(a); err != nil {
		return err
	}

	var pts []r3.Vector
	for _, pair := range [2][2]*Gamut{{a, b}, {b, a}} {
		in, err := pair[0].verticesInside(pair[1])
		if err != nil {
			return err
		}
		pts = append(pts, in...)
		pts = append(pts, pair[0].edgeCrossings(pair[1])...)
	}
	if err := g.AddPoints(pts); err != nil {
		return err
	}
	return g.Build()
}

// verticesInside returns the surface vertices of g inside o.
func (g *Gamut) verticesInside(o *Gamut) ([]r3.Vector, error) {
	var out []r3.Vector
	for _, vi := range g.verts {
		p := g.m.Verts[vi].P
		in, err := o.Inside(p)
		if err != nil {
			return nil, err
		}
		if in {
			out = append(out, p)
		}
	}
	return out, nil
}

// edgeCrossings returns the points where edges of g cross triangles of o.
func (g *Gamut) edgeCrossings(o *Gamut) []r3.Vector {
	boxes := make([]mesh.Box, len(o.tris))
	for i, ti := range o.tris {
		boxes[i] = mesh.BoxOf(o.m.Positions(ti))
	}

	var out []r3.Vector
	for _, ei := range g.m.LiveEdges() {
		e := &g.m.Edges[ei]
		p0, p1 := g.m.Verts[e.V[0]].P, g.m.Verts[e.V[1]].P
		eb := mesh.BoxOf(p0, p1)
		for i, ti := range o.tris {
			if !eb.Overlaps(boxes[i], boxEps) {
				continue
			}
			a, b, c := o.m.Positions(ti)
			t, ok := mesh.SegmentTriangle(p0, p1, a, b, c, 0)
			if !ok || t < 0 || t > 1 {
				continue
			}
			out = append(out, p0.Add(p1.Sub(p0).Mul(t)))
		}
	}
	return out
}

// ComposeMode selects which way Compose may move image points.
type ComposeMode int

const (
	// ComposeCompress scales image points down where the source gamut extends
	// past the destination.
	ComposeCompress ComposeMode = 1 << iota
	// ComposeExpand scales image points up where the destination extends past
	// the source.
	ComposeExpand
	ComposeBoth = ComposeCompress | ComposeExpand
)

// DirectionFunc returns the origin of the mapping line through image point p.
// Points move along the line from the origin through p.
type DirectionFunc func(p r3.Vector) r3.Vector

// Compose fills g with the destination gamut of mapping image gamut img from
// source gamut src into destination gamut dst and builds it.
//
// Mapping lines run from an origin through every surface vertex of img, src
// and dst; a nil dir puts the origin at the center. Along each line the
// boundaries of img are paired with the k-th span of src and the matching
// span of dst. A boundary is scaled from the src span onto the dst span when
// mode allows moving in that direction, and clipped to the dst span
// otherwise. Image vertices whose line misses a gamut are retried on the line
// from the center, and clipped radially onto dst when that misses too.
// Incompatible inputs leave g unchanged.
func (g *Gamut) Compose(img, src, dst *Gamut, mode ComposeMode, dir DirectionFunc) error {
	if err := g.requireFilling("Compose"); err != nil {
		return err
	}
	for _, x := range []*Gamut{img, src, dst} {
		if err := x.requireBuilt("Compose"); err != nil {
			return err
		}
		if err := g.compatible(x); err != nil {
			return err
		}
	}
	if mode&ComposeBoth == 0 {
		return fmt.Errorf("%w: compose mode %d", ErrInvalidState, mode)
	}

	cm := composer{img: img, src: src, dst: dst, mode: mode, c: g.opts.Center}
	cm.ext = img.extent(cm.c) + src.extent(cm.c) + dst.extent(cm.c)
	var pts []r3.Vector
	for k, x := range []*Gamut{img, src, dst} {
		for _, vi := range x.verts {
			p := x.m.Verts[vi].P
			origin := cm.c
			if dir != nil {
				origin = dir(p)
			}
			q, ok, err := cm.line(origin, p)
			if err != nil {
				return err
			}
			if !ok && origin != cm.c {
				q, ok, err = cm.line(cm.c, p)
				if err != nil {
					return err
				}
			}
			if !ok && k == 0 {
				clip, err := cm.clip(p)
				if err != nil {
					return err
				}
				q, ok = []r3.Vector{clip}, true
			}
			if ok {
				pts = append(pts, q...)
			}
		}
	}
	if err := g.AddPoints(pts); err != nil {
		return err
	}
	return g.Build()
}

// composer holds the gamuts of one Compose call.
type composer struct {
	img, src, dst *Gamut
	mode          ComposeMode
	c             r3.Vector
	ext           float64 // sum of the gamut extents from c
}

// line maps every boundary of img on the line from origin through p. It
// returns false when the line misses one of the gamuts.
func (cm *composer) line(origin, p r3.Vector) ([]r3.Vector, bool, error) {
	d := p.Sub(origin)
	n := d.Norm()
	if n < mesh.MinRadius {
		return nil, false, nil
	}
	u := d.Mul(1 / n)
	// Every gamut lies closer to origin than reach.
	reach := 2 * (cm.ext + origin.Sub(cm.c).Norm())
	far := origin.Add(u.Mul(reach))

	var spans [3][]Span
	for i, x := range []*Gamut{cm.img, cm.src, cm.dst} {
		ss, err := x.Spans(origin, far)
		if err != nil {
			return nil, false, err
		}
		if len(ss) == 0 || ss[len(ss)-1].T1 >= 1 {
			return nil, false, nil
		}
		for k := range ss {
			ss[k].T0 *= reach
			ss[k].T1 *= reach
		}
		spans[i] = ss
	}

	var out []r3.Vector
	for _, s := range spans[0] {
		if s.T0 > 0 {
			out = append(out, origin.Add(u.Mul(mapDistance(s.T0, spans[1], spans[2], cm.mode))))
		}
		out = append(out, origin.Add(u.Mul(mapDistance(s.T1, spans[1], spans[2], cm.mode))))
	}
	return out, true, nil
}

// clip pulls p onto the boundary of dst along the ray from the center when p
// lies beyond it.
func (cm *composer) clip(p r3.Vector) (r3.Vector, error) {
	d := p.Sub(cm.c)
	q, r, err := cm.dst.Radial(d)
	if err != nil {
		return r3.Vector{}, err
	}
	if d.Norm() > r {
		return q, nil
	}
	return p, nil
}

// mapDistance maps distance r along a line from the src span it falls in onto
// the dst span with the same rank. ss and ds must not be empty.
func mapDistance(r float64, ss, ds []Span, mode ComposeMode) float64 {
	j := 0
	for k, s := range ss {
		if s.T0 <= r {
			j = k
		}
	}
	s, d := ss[j], ds[min(j, len(ds)-1)]
	ls, ld := s.T1-s.T0, d.T1-d.T0
	scale := ls > ld && mode&ComposeCompress != 0 || ld > ls && mode&ComposeExpand != 0
	if scale && ls >= mesh.MinRadius {
		return max(0, d.T0+(r-s.T0)*ld/ls)
	}
	return max(d.T0, min(r, d.T1))
}

// extent returns the largest distance from p to a surface vertex.
func (g *Gamut) extent(p r3.Vector) float64 {
	var r float64
	for _, vi := range g.verts {
		r = max(r, g.m.Verts[vi].P.Sub(p).Norm())
	}
	return r
}
