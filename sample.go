// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"math"
	"sort"

	"github.com/2dChan/s2gamut/utils"
	"github.com/golang/geo/r3"
)

// Sample is one point produced by a Sampler.
type Sample struct {
	Point  r3.Vector
	Radius float64   // distance from the center
	Normal r3.Vector // outward unit normal of the surface at Point
	Vertex bool      // Point is a surface vertex
}

// Sampler yields the surface vertices first, then quasi-random points spread
// over the triangles in proportion to their area.
type Sampler struct {
	g      *Gamut
	next   int
	cum    []float64 // cumulative triangle area
	normal []r3.Vector
	halton *utils.Halton
}

// NewSampler returns a sampler over a built gamut.
func (g *Gamut) NewSampler() (*Sampler, error) {
	if err := g.requireBuilt("NewSampler"); err != nil {
		return nil, err
	}
	s := &Sampler{
		g:      g,
		cum:    make([]float64, len(g.tris)),
		normal: make([]r3.Vector, len(g.verts)),
		halton: utils.NewHalton(3),
	}
	var total float64
	for i, ti := range g.tris {
		a, b, c := g.m.Positions(ti)
		n := b.Sub(a).Cross(c.Sub(a))
		total += n.Norm() / 2
		s.cum[i] = total
		for _, vi := range g.m.Tris[ti].V {
			k := g.m.Verts[vi].Index
			s.normal[k] = s.normal[k].Add(n)
		}
	}
	for k, n := range s.normal {
		if l := n.Norm(); l > 0 {
			s.normal[k] = n.Mul(1 / l)
		}
	}
	return s, nil
}

// Reset restarts the sequence of samples.
func (s *Sampler) Reset() {
	s.next = 0
	s.halton.Reset()
}

// Next returns the next sample.
func (s *Sampler) Next() Sample {
	g := s.g
	c := g.opts.Center
	if s.next < len(g.verts) {
		p := g.Vertex(s.next)
		smp := Sample{Point: p, Radius: p.Sub(c).Norm(), Normal: s.normal[s.next], Vertex: true}
		s.next++
		return smp
	}
	if len(s.cum) == 0 {
		return Sample{}
	}

	h := s.halton.Next()
	total := s.cum[len(s.cum)-1]
	i := sort.SearchFloat64s(s.cum, h[0]*total)
	i = min(i, len(s.cum)-1)

	a, b, d := g.m.Positions(g.tris[i])
	r := math.Sqrt(h[1])
	p := a.Mul(1 - r).Add(b.Mul(r * (1 - h[2]))).Add(d.Mul(r * h[2]))
	return Sample{
		Point:  p,
		Radius: p.Sub(c).Norm(),
		Normal: g.m.Tris[g.tris[i]].Abs.N,
	}
}
