// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/2dChan/s2gamut/cgats"
	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r3"
)

const (
	fileID = "GAMUT"

	kwDescriptor  = "DESCRIPTOR"
	kwCreated     = "CREATED"
	kwColorRep    = "COLOR_REP"
	kwSurfaceType = "SURFACE_TYPE"
	kwCenter      = "GAMUT_CENTER"
	kwCSWhite     = "CSWHITE"
	kwCSBlack     = "CSBLACK"
	kwGAWhite     = "GAWHITE"
	kwGABlack     = "GABLACK"
	kwCuspPrefix  = "CUSP_"

	surfaceRaster     = "RASTER"
	surfaceColorSpace = "COLORSPACE"

	fieldVertexNo = "VERTEX_NO"
)

var triangleFields = []string{"VERTEX_0", "VERTEX_1", "VERTEX_2"}

func coordinateFields(cs ColorSpace) []string {
	if cs == JAB {
		return []string{"JAB_J", "JAB_A", "JAB_B"}
	}
	return []string{"LAB_L", "LAB_A", "LAB_B"}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatVector(v r3.Vector) string {
	return strings.Join([]string{formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z)}, " ")
}

// Save writes the surface of a built gamut to w as a vertex table and a
// triangle table.
func (g *Gamut) Save(w io.Writer) error {
	if err := g.requireBuilt("Save"); err != nil {
		return err
	}

	vt := cgats.NewTable(fileID)
	vt.Set(kwDescriptor, "s2gamut surface")
	vt.Set(kwCreated, time.Now().UTC().Format(time.RFC3339))
	vt.Set(kwColorRep, g.opts.ColorSpace.String())
	surface := surfaceColorSpace
	if g.opts.Raster {
		surface = surfaceRaster
	}
	vt.Set(kwSurfaceType, surface)
	vt.Set(kwCenter, formatVector(g.opts.Center))
	if white, black, ok := g.ColorSpaceWhiteBlack(); ok {
		vt.Set(kwCSWhite, formatVector(white))
		vt.Set(kwCSBlack, formatVector(black))
	}
	if white, black, ok := g.GamutWhiteBlack(); ok {
		vt.Set(kwGAWhite, formatVector(white))
		vt.Set(kwGABlack, formatVector(black))
	}
	if cusps, ok := g.Cusps(); ok {
		for i, p := range cusps {
			vt.Set(kwCuspPrefix+CuspNames[i], formatVector(p))
		}
	}

	vt.Fields = append([]string{fieldVertexNo}, coordinateFields(g.opts.ColorSpace)...)
	for i := range g.VertexCount() {
		p := g.Vertex(i)
		vt.Append(strconv.Itoa(i), formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}

	tt := cgats.NewTable(fileID)
	tt.Fields = slices.Clone(triangleFields)
	it := g.Triangles()
	for t, ok := it.Next(); ok; t, ok = it.Next() {
		tt.Append(strconv.Itoa(t[0]), strconv.Itoa(t[1]), strconv.Itoa(t[2]))
	}

	f := &cgats.File{Tables: []*cgats.Table{vt, tt}}
	return f.Write(w)
}

// SaveFile writes the gamut to the named file.
func (g *Gamut) SaveFile(name string) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	return g.Save(file)
}

// Load reads a gamut written by Save. Vertices not used by any triangle are
// dropped. The result is built and has filtering disabled.
func Load(r io.Reader) (*Gamut, error) {
	f, err := cgats.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if len(f.Tables) < 2 {
		return nil, fmt.Errorf("%w: want 2 tables, got %d", ErrFormat, len(f.Tables))
	}
	vt, tt := f.Tables[0], f.Tables[1]

	opts, err := loadOptions(vt)
	if err != nil {
		return nil, err
	}
	g := newGamut(opts)

	pos, err := loadVertices(vt)
	if err != nil {
		return nil, err
	}
	faces, err := loadTriangles(tt)
	if err != nil {
		return nil, err
	}

	var used []int
	for _, t := range faces {
		for _, k := range t {
			if _, ok := pos[k]; !ok {
				return nil, fmt.Errorf("%w: triangle uses unknown vertex %d", ErrFormat, k)
			}
			used = append(used, k)
		}
	}
	slices.Sort(used)
	used = slices.Compact(used)

	handle := make(map[int]int, len(used))
	for _, k := range used {
		v, ok := mesh.NewVertex(pos[k], opts.Center, g.exp)
		if !ok {
			return nil, fmt.Errorf("%w: vertex %d is at the center", ErrFormat, k)
		}
		handle[k] = g.m.AddVertex(v)
	}

	tris := make([]int, 0, len(faces))
	for i, t := range faces {
		a, b, c := handle[t[0]], handle[t[1]], handle[t[2]]
		if a == b || b == c || a == c {
			return nil, fmt.Errorf("%w: triangle %d repeats a vertex", ErrFormat, i)
		}
		o := mesh.Orient(g.m.Verts[a].U.Vector, g.m.Verts[b].U.Vector, g.m.Verts[c].U.Vector)
		if o == 0 {
			return nil, fmt.Errorf("%w: triangle %d is degenerate", ErrFormat, i)
		}
		if o < 0 {
			b, c = c, b
		}
		tris = append(tris, g.m.NewTriangle(a, b, c))
	}
	if err := g.m.Stitch(tris); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	for _, t := range tris {
		g.m.ComputePlanes(t)
	}
	g.finish()

	if err := loadRefPoints(g, vt); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadFile reads a gamut from the named file.
func LoadFile(name string) (*Gamut, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

func loadOptions(t *cgats.Table) (Options, error) {
	var setters []Option
	if s, ok := t.Get(kwColorRep); ok {
		switch s {
		case LAB.String():
			setters = append(setters, WithColorSpace(LAB))
		case JAB.String():
			setters = append(setters, WithColorSpace(JAB))
		default:
			return Options{}, fmt.Errorf("%w: %s %q", ErrFormat, kwColorRep, s)
		}
	}
	if s, ok := t.Get(kwSurfaceType); ok {
		switch s {
		case surfaceRaster:
			setters = append(setters, WithRaster(true))
		case surfaceColorSpace:
		default:
			return Options{}, fmt.Errorf("%w: %s %q", ErrFormat, kwSurfaceType, s)
		}
	}
	c, ok, err := vectorKeyword(t, kwCenter)
	if err != nil {
		return Options{}, err
	}
	if ok {
		setters = append(setters, WithCenter(c))
	}
	setters = append(setters, WithNoFilter())
	return newOptions(setters)
}

func vectorKeyword(t *cgats.Table, name string) (r3.Vector, bool, error) {
	v, ok, err := t.Floats(name, 3)
	if err != nil {
		return r3.Vector{}, false, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if !ok {
		return r3.Vector{}, false, nil
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, true, nil
}

func loadVertices(t *cgats.Table) (map[int]r3.Vector, error) {
	cols := []int{t.Field(fieldVertexNo)}
	for _, cs := range []ColorSpace{LAB, JAB} {
		if names := coordinateFields(cs); t.Field(names[0]) >= 0 {
			for _, n := range names {
				cols = append(cols, t.Field(n))
			}
			break
		}
	}
	if len(cols) != 4 || slices.Contains(cols, -1) {
		return nil, fmt.Errorf("%w: vertex table fields %v", ErrFormat, t.Fields)
	}

	pos := make(map[int]r3.Vector, len(t.Rows))
	for i := range t.Rows {
		k, err := t.Int(i, cols[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		var xyz [3]float64
		for j := range 3 {
			if xyz[j], err = t.Float(i, cols[j+1]); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFormat, err)
			}
		}
		if _, dup := pos[k]; dup {
			return nil, fmt.Errorf("%w: duplicate vertex number %d", ErrFormat, k)
		}
		pos[k] = r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return pos, nil
}

func loadTriangles(t *cgats.Table) ([][3]int, error) {
	var cols [3]int
	for j, n := range triangleFields {
		if cols[j] = t.Field(n); cols[j] < 0 {
			return nil, fmt.Errorf("%w: triangle table has no %s field", ErrFormat, n)
		}
	}
	out := make([][3]int, len(t.Rows))
	for i := range t.Rows {
		for j := range 3 {
			k, err := t.Int(i, cols[j])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFormat, err)
			}
			out[i][j] = k
		}
	}
	return out, nil
}

func loadRefPoints(g *Gamut, t *cgats.Table) error {
	pair := func(wk, bk string, set func(w, b r3.Vector)) error {
		w, okW, err := vectorKeyword(t, wk)
		if err != nil {
			return err
		}
		b, okB, err := vectorKeyword(t, bk)
		if err != nil {
			return err
		}
		if okW && okB {
			set(w, b)
		}
		return nil
	}
	if err := pair(kwCSWhite, kwCSBlack, g.SetColorSpaceWhiteBlack); err != nil {
		return err
	}
	err := pair(kwGAWhite, kwGABlack, func(w, b r3.Vector) {
		g.refs.gaWhite, g.refs.gaBlack, g.refs.hasGA = w, b, true
	})
	if err != nil {
		return err
	}

	found := 0
	for i, name := range CuspNames {
		p, ok, err := vectorKeyword(t, kwCuspPrefix+name)
		if err != nil {
			return err
		}
		if ok {
			g.refs.cusps[i] = p
			found++
		}
	}
	g.refs.hasCusps = found == NumCusps
	return nil
}
