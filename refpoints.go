// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

// NumCusps is the number of hue directions with a cusp point.
const NumCusps = 6

// CuspNames are the hue directions of the cusps, at 60 degree steps of hue
// starting from red.
var CuspNames = [NumCusps]string{"RED", "YELLOW", "GREEN", "CYAN", "BLUE", "MAGENTA"}

type refPoints struct {
	csWhite, csBlack r3.Vector
	hasCS            bool
	gaWhite, gaBlack r3.Vector
	hasGA            bool
	cusps            [NumCusps]r3.Vector
	hasCusps         bool
}

// SetColorSpaceWhiteBlack records the white and black points of the color
// space the gamut was sampled from.
func (g *Gamut) SetColorSpaceWhiteBlack(white, black r3.Vector) {
	g.refs.csWhite, g.refs.csBlack, g.refs.hasCS = white, black, true
}

// ColorSpaceWhiteBlack returns the color space white and black points.
func (g *Gamut) ColorSpaceWhiteBlack() (white, black r3.Vector, ok bool) {
	return g.refs.csWhite, g.refs.csBlack, g.refs.hasCS
}

// ComputeWhiteBlack finds the gamut white and black points, the surface hits
// along the positive and negative lightness axis.
func (g *Gamut) ComputeWhiteBlack() error {
	white, _, err := g.Radial(r3.Vector{X: 1})
	if err != nil {
		return fmt.Errorf("s2gamut: white point: %w", err)
	}
	black, _, err := g.Radial(r3.Vector{X: -1})
	if err != nil {
		return fmt.Errorf("s2gamut: black point: %w", err)
	}
	g.refs.gaWhite, g.refs.gaBlack, g.refs.hasGA = white, black, true
	return nil
}

// GamutWhiteBlack returns the gamut white and black points.
func (g *Gamut) GamutWhiteBlack() (white, black r3.Vector, ok bool) {
	return g.refs.gaWhite, g.refs.gaBlack, g.refs.hasGA
}

// ComputeCusps finds, for each hue direction of CuspNames, the surface vertex
// reaching farthest along that direction of the chroma plane.
func (g *Gamut) ComputeCusps() error {
	if err := g.requireBuilt("ComputeCusps"); err != nil {
		return err
	}
	c := g.opts.Center
	for i := range NumCusps {
		h := s1.Angle(60*i) * s1.Degree
		dir := r3.Vector{Y: math.Cos(h.Radians()), Z: math.Sin(h.Radians())}
		best := math.Inf(-1)
		for _, vi := range g.verts {
			p := g.m.Verts[vi].P
			if d := p.Sub(c).Dot(dir); d > best {
				best = d
				g.refs.cusps[i] = p
			}
		}
	}
	g.refs.hasCusps = len(g.verts) > 0
	return nil
}

// Cusps returns the cusp points in CuspNames order.
func (g *Gamut) Cusps() ([NumCusps]r3.Vector, bool) {
	return g.refs.cusps, g.refs.hasCusps
}
