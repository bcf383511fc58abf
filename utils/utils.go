// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides seeded point generators and the Halton sequence used
// for sampling and testing gamut surfaces.

package utils

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// GenerateRandomPoints generates a vector of random points on the S2 sphere.
// The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64) s2.PointVector {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	sites := make(s2.PointVector, cnt)

	for i := range cnt {
		sites[i] = s2.PointFromLatLng(s2.LatLng{
			Lat: s1.Angle((random.Float64() - 0.5) * math.Pi),
			Lng: s1.Angle((random.Float64()*2 - 1) * math.Pi),
		})
	}

	return sites
}

// GenerateSurfacePoints returns cnt points around center whose distance from
// center along each direction is radius(direction). The directions come from
// GenerateRandomPoints with the same seed.
func GenerateSurfacePoints(cnt int, seed int64, center r3.Vector, radius func(s2.Point) float64) []r3.Vector {
	dirs := GenerateRandomPoints(cnt, seed)
	out := make([]r3.Vector, cnt)
	for i, d := range dirs {
		out[i] = center.Add(d.Vector.Mul(radius(d)))
	}
	return out
}

// GenerateBoxPoints returns cnt points uniformly distributed in the axis
// aligned box around center with the given half widths.
func GenerateBoxPoints(cnt int, seed int64, center, half r3.Vector) []r3.Vector {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	out := make([]r3.Vector, cnt)
	for i := range cnt {
		out[i] = center.Add(r3.Vector{
			X: (random.Float64()*2 - 1) * half.X,
			Y: (random.Float64()*2 - 1) * half.Y,
			Z: (random.Float64()*2 - 1) * half.Z,
		})
	}
	return out
}

var haltonBases = [...]int{2, 3, 5, 7, 11, 13, 17, 19}

// Halton is a multi-dimensional Halton low-discrepancy sequence.
type Halton struct {
	dim   int
	index int
}

// NewHalton returns a sequence of dim-dimensional points, dim at most 8. The
// first point returned is the one at index 1.
func NewHalton(dim int) *Halton {
	if dim < 1 || dim > len(haltonBases) {
		panic("NewHalton: dim out of range")
	}
	return &Halton{dim: dim}
}

// Reset restarts the sequence.
func (h *Halton) Reset() {
	h.index = 0
}

// Next returns the next point, each coordinate in [0, 1).
func (h *Halton) Next() []float64 {
	h.index++
	out := make([]float64, h.dim)
	for d := range h.dim {
		out[d] = radicalInverse(h.index, haltonBases[d])
	}
	return out
}

func radicalInverse(i, base int) float64 {
	inv := 1 / float64(base)
	f, r := inv, 0.0
	for i > 0 {
		r += f * float64(i%base)
		i /= base
		f *= inv
	}
	return r
}
