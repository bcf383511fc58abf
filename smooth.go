// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"math"

	"github.com/2dChan/s2gamut/bsp"
	"github.com/golang/geo/r3"
)

const (
	smoothGrid    = 2 // samples per side are 2*smoothGrid+1
	smoothStep    = 0.5
	smoothFalloff = 1.25

	minSmoothed = 0.2
	maxSmoothed = 5
)

// smooth replaces the hull coordinate of every vertex of cands by how far its
// compressed radius stands out from the first pass surface around it.
func (g *Gamut) smooth(cands []int) {
	m := g.m
	tree := bsp.Build(m, m.LiveTriangles(), 0)
	res := g.opts.Resolution
	falloff := smoothFalloff * res

	scaled := make([]float64, len(cands))
	for k, vi := range cands {
		v := &m.Verts[vi]
		u := v.U.Vector
		t1 := u.Ortho()
		t2 := u.Cross(t1)
		step := smoothStep * res

		var sum, wsum float64
		for i := -smoothGrid; i <= smoothGrid; i++ {
			for j := -smoothGrid; j <= smoothGrid; j++ {
				off := t1.Mul(float64(i) * step).Add(t2.Mul(float64(j) * step))
				dir := u.Mul(v.R).Add(off).Normalize()
				r, ok := g.radialOn(tree, dir)
				if !ok {
					continue
				}
				d := off.Norm() / falloff
				w := 1 / (1 + d*d)
				sum += w * math.Pow(r, g.exp)
				wsum += w
			}
		}
		scaled[k] = 1
		if wsum > 0 && sum > 0 {
			avg := sum / wsum
			scaled[k] = math.Max(minSmoothed, math.Min(maxSmoothed, 1+2*(v.CR-avg)/avg))
		}
	}
	for k, vi := range cands {
		v := &m.Verts[vi]
		v.H = v.U.Vector.Mul(scaled[k])
	}
}

// radialOn intersects direction dir with the surface indexed by tree and
// returns the radius of the hit.
func (g *Gamut) radialOn(tree *bsp.Tree, dir r3.Vector) (float64, bool) {
	ti, ok := tree.Locate(dir)
	if !ok {
		return 0, false
	}
	s, err := g.intersect(ti, dir)
	if err != nil {
		return 0, false
	}
	return s, true
}
