// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package s2gamut models the boundary of a color gamut as a closed triangulated
// surface that is a radial height function around a center point.
//
// A Gamut is filled with sample points, built once, and then queried. Points
// are filtered per small angular cell, triangulated as a convex hull of their
// directions scaled by a compressed radius, and indexed for radial, nearest
// point and segment crossing queries.
package s2gamut

import (
	"errors"
	"fmt"
	"math"

	"github.com/2dChan/s2gamut/bsp"
	"github.com/2dChan/s2gamut/filter"
	"github.com/2dChan/s2gamut/hull"
	"github.com/2dChan/s2gamut/mesh"
	"github.com/2dChan/s2gamut/nearest"
	"github.com/golang/geo/r3"
)

const (
	defaultResolution = 10
	defaultEps        = 1e-9

	colorSpaceExp = 0.25
	rasterExp     = 0.1

	seedRadius     = 1e-3
	seedHullRadius = 1e-4
)

var (
	// ErrInvalidState is returned when an operation is called in the wrong
	// phase, such as adding points to a built gamut or querying an unbuilt one.
	ErrInvalidState = errors.New("s2gamut: invalid state")
	// ErrNotFound is returned when a query has no answer, usually because of a
	// numerical edge case. The brute force variants may still succeed.
	ErrNotFound = errors.New("s2gamut: not found")
	// ErrDegenerate is returned for a query direction that is zero or parallel
	// to the surface.
	ErrDegenerate = errors.New("s2gamut: degenerate query")
	// ErrIncompatible is returned when combining gamuts with different color
	// spaces or centers.
	ErrIncompatible = errors.New("s2gamut: incompatible gamuts")
	// ErrFormat is returned when a gamut file is structurally invalid.
	ErrFormat = errors.New("s2gamut: invalid gamut file")
	// ErrTooFewPoints is returned by Build when fewer than four points survive.
	ErrTooFewPoints = errors.New("s2gamut: at least 4 points required")
)

// ColorSpace tags the perceptual space a gamut is expressed in.
type ColorSpace int

const (
	LAB ColorSpace = iota
	JAB
)

func (c ColorSpace) String() string {
	switch c {
	case LAB:
		return "LAB"
	case JAB:
		return "JAB"
	}
	return fmt.Sprintf("ColorSpace(%d)", int(c))
}

// Smoothing selects whether Build runs the second, smoothed hull pass.
type Smoothing int

const (
	// SmoothAuto smooths colorspace gamuts and skips raster gamuts.
	SmoothAuto Smoothing = iota
	SmoothOn
	SmoothOff
)

type Options struct {
	Center     r3.Vector
	Resolution float64
	Raster     bool
	ColorSpace ColorSpace
	NoFilter   bool
	Smoothing  Smoothing
	Eps        float64
}

type Option func(*Options) error

// WithCenter sets the gamut center. The default is (50, 0, 0).
func WithCenter(c r3.Vector) Option {
	return func(o *Options) error {
		o.Center = c
		return nil
	}
}

// WithResolution sets the target surface resolution in absolute units.
func WithResolution(res float64) Option {
	return func(o *Options) error {
		if !(res > 0) || math.IsInf(res, 0) {
			return fmt.Errorf("s2gamut: resolution must be positive, got %v", res)
		}
		o.Resolution = res
		return nil
	}
}

// WithRaster marks the gamut as sampled from an image rather than a color
// space. Raster gamuts use a stronger radius compression and no smoothing.
func WithRaster(raster bool) Option {
	return func(o *Options) error {
		o.Raster = raster
		return nil
	}
}

func WithColorSpace(cs ColorSpace) Option {
	return func(o *Options) error {
		if cs != LAB && cs != JAB {
			return fmt.Errorf("s2gamut: unknown color space %v", cs)
		}
		o.ColorSpace = cs
		return nil
	}
}

// WithNoFilter keeps every added point. Duplicates still collapse.
func WithNoFilter() Option {
	return func(o *Options) error {
		o.NoFilter = true
		return nil
	}
}

// WithSmoothing forces the second hull pass on or off.
func WithSmoothing(on bool) Option {
	return func(o *Options) error {
		o.Smoothing = SmoothOff
		if on {
			o.Smoothing = SmoothOn
		}
		return nil
	}
}

// WithEps sets the relative tolerance of the hull outside test.
func WithEps(eps float64) Option {
	return func(o *Options) error {
		if eps <= 0 {
			return fmt.Errorf("s2gamut: eps must be positive, got %v", eps)
		}
		o.Eps = eps
		return nil
	}
}

type state int

const (
	filling state = iota
	frozen
)

// Gamut is a gamut surface. It is not safe for concurrent use: queries build
// indexes lazily and reuse scratch state.
type Gamut struct {
	opts Options
	exp  float64

	m     *mesh.Mesh
	f     *filter.Filter
	seeds [4]int
	state state

	verts []int // vertex handles by enumeration index
	tris  []int // triangle handles by enumeration index

	tree *bsp.Tree
	nn   *nearest.Index

	refs refPoints
}

// New returns an empty gamut ready to be filled.
func New(setters ...Option) (*Gamut, error) {
	opts, err := newOptions(setters)
	if err != nil {
		return nil, err
	}
	g := newGamut(opts)
	g.f = filter.New(g.m, opts.Resolution, opts.NoFilter)
	for i, d := range hull.SeedDirections {
		u := d.Normalize()
		v, _ := mesh.NewVertex(opts.Center.Add(u.Mul(seedRadius)), opts.Center, g.exp)
		v.H = u.Mul(seedHullRadius)
		g.seeds[i] = g.f.AddSeed(v)
	}
	return g, nil
}

func newOptions(setters []Option) (Options, error) {
	opts := Options{
		Center:     r3.Vector{X: 50},
		Resolution: defaultResolution,
		Eps:        defaultEps,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

func newGamut(opts Options) *Gamut {
	exp := colorSpaceExp
	if opts.Raster {
		exp = rasterExp
	}
	return &Gamut{
		opts: opts,
		exp:  exp,
		m:    mesh.New(opts.Center),
	}
}

// Center returns the gamut center.
func (g *Gamut) Center() r3.Vector {
	return g.opts.Center
}

// ColorSpace returns the color space tag.
func (g *Gamut) ColorSpace() ColorSpace {
	return g.opts.ColorSpace
}

// Raster reports whether the gamut is an image gamut.
func (g *Gamut) Raster() bool {
	return g.opts.Raster
}

// Built reports whether Build or Load has completed.
func (g *Gamut) Built() bool {
	return g.state == frozen
}

func (g *Gamut) smoothing() bool {
	switch g.opts.Smoothing {
	case SmoothOn:
		return true
	case SmoothOff:
		return false
	}
	return !g.opts.Raster
}

// AddPoint offers p to the gamut. It reports whether the point was kept; a
// point may be discarded by the filter or for being at the center.
func (g *Gamut) AddPoint(p r3.Vector) (bool, error) {
	if g.state != filling {
		return false, fmt.Errorf("%w: AddPoint after Build", ErrInvalidState)
	}
	v, ok := mesh.NewVertex(p, g.opts.Center, g.exp)
	if !ok {
		return false, nil
	}
	return g.f.Add(v) >= 0, nil
}

// AddPoints offers every point of ps.
func (g *Gamut) AddPoints(ps []r3.Vector) error {
	for _, p := range ps {
		if _, err := g.AddPoint(p); err != nil {
			return err
		}
	}
	return nil
}

// Build triangulates the kept points and freezes the gamut.
func (g *Gamut) Build() error {
	if g.state != filling {
		return fmt.Errorf("%w: Build called twice", ErrInvalidState)
	}
	cands := g.f.Candidates()
	if len(cands) < 4 {
		return fmt.Errorf("%w: have %d", ErrTooFewPoints, len(cands))
	}

	if _, err := hull.Build(g.m, g.seeds, cands, hull.WithEps(g.opts.Eps)); err != nil {
		return err
	}
	if g.smoothing() {
		g.smooth(cands)
		if _, err := hull.Build(g.m, g.seeds, cands, hull.WithEps(g.opts.Eps)); err != nil {
			return err
		}
	}
	g.finish()
	return nil
}

// finish flags the surface vertices, enumerates them and freezes the gamut.
func (g *Gamut) finish() {
	g.tris = g.m.LiveTriangles()
	for _, ti := range g.tris {
		for _, vi := range g.m.Tris[ti].V {
			v := &g.m.Verts[vi]
			v.Flags |= mesh.OnSurface
			if v.Has(mesh.Seed) {
				v.Flags |= mesh.Promoted
			}
		}
	}
	g.verts = g.verts[:0]
	for vi := range g.m.Verts {
		v := &g.m.Verts[vi]
		if v.Alive() && v.Has(mesh.OnSurface) {
			v.Index = len(g.verts)
			g.verts = append(g.verts, vi)
		}
	}
	g.state = frozen
	g.tree, g.nn = nil, nil
	g.f = nil
}

func (g *Gamut) index() *bsp.Tree {
	if g.tree == nil {
		g.tree = bsp.Build(g.m, g.tris, 0)
	}
	return g.tree
}

func (g *Gamut) nearestIndex() *nearest.Index {
	if g.nn == nil {
		g.nn = nearest.Build(g.m, g.tris)
	}
	return g.nn
}

func (g *Gamut) requireBuilt(op string) error {
	if g.state != frozen {
		return fmt.Errorf("%w: %s before Build", ErrInvalidState, op)
	}
	return nil
}

// Check verifies the mesh invariants of a built gamut.
func (g *Gamut) Check() error {
	if err := g.requireBuilt("Check"); err != nil {
		return err
	}
	return g.m.Check()
}

// compatible reports whether g and o can be combined.
func (g *Gamut) compatible(o *Gamut) error {
	if g.opts.ColorSpace != o.opts.ColorSpace {
		return fmt.Errorf("%w: color spaces %v and %v", ErrIncompatible, g.opts.ColorSpace, o.opts.ColorSpace)
	}
	if g.opts.Center.Sub(o.opts.Center).Norm() > 1e-9 {
		return fmt.Errorf("%w: centers %v and %v", ErrIncompatible, g.opts.Center, o.opts.Center)
	}
	return nil
}
