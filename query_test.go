// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2gamut

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/2dChan/s2gamut/mesh"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Radial

func TestGamut_Radial_MatchesBrute(t *testing.T) {
	g := mustBuild(t, bumpyPoints(3000, 11))
	//nolint:gosec
	random := rand.New(rand.NewSource(1))
	for range 1000 {
		dir := randomVector(random)
		p, r, err := g.Radial(dir)
		if err != nil {
			t.Fatalf("g.Radial(%v) error = %v, want nil", dir, err)
		}
		bp, br, err := g.RadialBrute(dir)
		if err != nil {
			t.Fatalf("g.RadialBrute(%v) error = %v, want nil", dir, err)
		}
		if math.Abs(r-br) > 1e-6*br || p.Sub(bp).Norm() > 1e-6*br {
			t.Errorf("g.Radial(%v) = %v, %v, want %v, %v", dir, p, r, bp, br)
		}
	}
}

func TestGamut_Radial_Degenerate(t *testing.T) {
	g := mustBuild(t, cubeCorners(10), WithNoFilter(), WithSmoothing(false))
	for _, dir := range []r3.Vector{{}, {X: math.NaN()}, {Y: math.Inf(1)}} {
		if _, _, err := g.Radial(dir); !errors.Is(err, ErrDegenerate) {
			t.Errorf("g.Radial(%v) error = %v, want %v", dir, err, ErrDegenerate)
		}
		if _, _, err := g.RadialBrute(dir); !errors.Is(err, ErrDegenerate) {
			t.Errorf("g.RadialBrute(%v) error = %v, want %v", dir, err, ErrDegenerate)
		}
	}
}

func TestGamut_Radial_Vertices(t *testing.T) {
	g := mustBuild(t, bumpyPoints(1500, 12))
	for i := range g.VertexCount() {
		v := g.Vertex(i)
		d := v.Sub(center)
		_, r, err := g.Radial(d)
		if err != nil {
			t.Fatalf("g.Radial(%v) error = %v, want nil", d, err)
		}
		if math.Abs(r-d.Norm()) > 1e-6*d.Norm() {
			t.Errorf("g.Radial(vertex %d) radius = %v, want %v", i, r, d.Norm())
		}
	}
}

// Nearest

func TestGamut_Nearest_Cube(t *testing.T) {
	g := mustBuild(t, cubeCorners(10), WithNoFilter(), WithSmoothing(false))
	tests := []struct {
		name      string
		in        r3.Vector
		wantPoint r3.Vector
		wantDist  float64
	}{
		{"outside face", r3.Vector{X: 70}, r3.Vector{X: 60}, 10},
		{"outside edge", r3.Vector{X: 70, Y: 20}, r3.Vector{X: 60, Y: 10}, math.Sqrt(200)},
		{"outside corner", r3.Vector{X: 61, Y: 11, Z: 11}, r3.Vector{X: 60, Y: 10, Z: 10}, math.Sqrt(3)},
		{"inside", r3.Vector{X: 52}, r3.Vector{X: 60}, 8},
		{"on face", r3.Vector{X: 50, Y: 10, Z: 3}, r3.Vector{X: 50, Y: 10, Z: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range []func(r3.Vector) (r3.Vector, float64, error){g.Nearest, g.NearestBrute} {
				p, d, err := f(tt.in)
				if err != nil {
					t.Fatalf("nearest(%v) error = %v, want nil", tt.in, err)
				}
				if math.Abs(d-tt.wantDist) > 1e-9 || p.Sub(tt.wantPoint).Norm() > 1e-9 {
					t.Errorf("nearest(%v) = %v, %v, want %v, %v", tt.in, p, d, tt.wantPoint, tt.wantDist)
				}
			}
		})
	}
}

func TestGamut_Nearest_MatchesBrute(t *testing.T) {
	g := mustBuild(t, bumpyPoints(3000, 13))
	//nolint:gosec
	random := rand.New(rand.NewSource(2))
	for range 1000 {
		q := center.Add(randomVector(random).Mul(80))
		_, d, err := g.Nearest(q)
		if err != nil {
			t.Fatalf("g.Nearest(%v) error = %v, want nil", q, err)
		}
		_, bd, err := g.NearestBrute(q)
		if err != nil {
			t.Fatalf("g.NearestBrute(%v) error = %v, want nil", q, err)
		}
		if math.Abs(d-bd) > 1e-9 {
			t.Errorf("g.Nearest(%v) dist = %v, want %v", q, d, bd)
		}
	}
	for i := range g.VertexCount() {
		if _, d, _ := g.Nearest(g.Vertex(i)); d > 1e-9 {
			t.Errorf("g.Nearest(vertex %d) dist = %v, want 0", i, d)
		}
	}
}

// Inside

func TestGamut_NearestTriangle(t *testing.T) {
	cube := mustBuild(t, cubeCorners(10))
	q := r3.Vector{X: 70}
	p, d, ti, err := cube.NearestTriangle(q)
	if err != nil {
		t.Fatalf("cube.NearestTriangle(%v) error = %v, want nil", q, err)
	}
	if want := (r3.Vector{X: 60}); p.Sub(want).Norm() > 1e-9 || math.Abs(d-10) > 1e-9 {
		t.Errorf("cube.NearestTriangle(%v) = %v, %v, want %v, 10", q, p, d, want)
	}
	for _, v := range cube.Triangle(ti) {
		if x := cube.Vertex(v).X; math.Abs(x-60) > 1e-9 {
			t.Errorf("cube.NearestTriangle(%v) triangle %d has vertex %d at X = %v, want 60", q, ti, v, x)
		}
	}

	g := mustBuild(t, bumpyPoints(1500, 15))
	//nolint:gosec
	random := rand.New(rand.NewSource(4))
	for range 300 {
		q := center.Add(randomVector(random).Mul(70))
		p, _, ti, err := g.NearestTriangle(q)
		if err != nil {
			t.Fatalf("g.NearestTriangle(%v) error = %v, want nil", q, err)
		}
		tri := g.Triangle(ti)
		on := mesh.ClosestOnTriangle(q, g.Vertex(tri[0]), g.Vertex(tri[1]), g.Vertex(tri[2]))
		if on.Sub(p).Norm() > 1e-9 {
			t.Errorf("g.NearestTriangle(%v) = %v on triangle %d, closest point of that triangle is %v", q, p, ti, on)
		}
	}

	unbuilt, _ := New()
	if _, _, ti, err := unbuilt.NearestTriangle(q); !errors.Is(err, ErrInvalidState) || ti != -1 {
		t.Errorf("unbuilt.NearestTriangle(...) = %v, %v, want -1, %v", ti, err, ErrInvalidState)
	}
}

func TestGamut_Inside(t *testing.T) {
	g := mustBuild(t, cubeCorners(10), WithNoFilter(), WithSmoothing(false))
	tests := []struct {
		name string
		in   r3.Vector
		want bool
	}{
		{"center", center, true},
		{"interior", r3.Vector{X: 55, Y: 5, Z: -5}, true},
		{"on face", r3.Vector{X: 60, Y: 2, Z: 3}, true},
		{"corner", r3.Vector{X: 60, Y: 10, Z: 10}, true},
		{"outside", r3.Vector{X: 61}, false},
		{"far", r3.Vector{X: -100, Y: 300}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Inside(tt.in)
			if err != nil {
				t.Fatalf("g.Inside(%v) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("g.Inside(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// Crossings

func TestGamut_Crossings_Cube(t *testing.T) {
	g := mustBuild(t, cubeCorners(10), WithNoFilter(), WithSmoothing(false))
	tests := []struct {
		name   string
		p0, p1 r3.Vector
		want   []Crossing
	}{
		{
			name: "from center",
			p0:   center,
			p1:   r3.Vector{X: 80},
			want: []Crossing{{T: 1.0 / 3, Point: r3.Vector{X: 60}, Exit: true}},
		},
		{
			name: "through",
			p0:   r3.Vector{X: 20},
			p1:   r3.Vector{X: 80},
			want: []Crossing{
				{T: 1.0 / 3, Point: r3.Vector{X: 40}},
				{T: 2.0 / 3, Point: r3.Vector{X: 60}, Exit: true},
			},
		},
		{
			name: "through corners",
			p0:   r3.Vector{X: 30, Y: -20, Z: -20},
			p1:   r3.Vector{X: 70, Y: 20, Z: 20},
			want: []Crossing{
				{T: 0.25, Point: r3.Vector{X: 40, Y: -10, Z: -10}},
				{T: 0.75, Point: r3.Vector{X: 60, Y: 10, Z: 10}, Exit: true},
			},
		},
		{
			name: "reversed",
			p0:   r3.Vector{X: 80},
			p1:   center,
			want: []Crossing{{T: 2.0 / 3, Point: r3.Vector{X: 60}}},
		},
		{
			name: "inside",
			p0:   r3.Vector{X: 45},
			p1:   r3.Vector{X: 55, Y: 5},
		},
		{
			name: "miss",
			p0:   r3.Vector{X: 20, Y: 30},
			p1:   r3.Vector{X: 80, Y: 30},
		},
		{
			name: "zero length",
			p0:   r3.Vector{X: 60},
			p1:   r3.Vector{X: 60},
		},
	}
	opt := cmpopts.EquateApprox(0, 1e-9)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Crossings(tt.p0, tt.p1)
			if err != nil {
				t.Fatalf("g.Crossings(%v, %v) error = %v, want nil", tt.p0, tt.p1, err)
			}
			if diff := cmp.Diff(tt.want, got, opt, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("g.Crossings(%v, %v) mismatch (-want +got):\n%s", tt.p0, tt.p1, diff)
			}
		})
	}
}

func TestGamut_Spans_Cube(t *testing.T) {
	g := mustBuild(t, cubeCorners(10), WithNoFilter(), WithSmoothing(false))
	tests := []struct {
		name   string
		p0, p1 r3.Vector
		want   []Span
	}{
		{"from center", center, r3.Vector{X: 80}, []Span{{0, 1.0 / 3}}},
		{"through", r3.Vector{X: 20}, r3.Vector{X: 80}, []Span{{1.0 / 3, 2.0 / 3}}},
		{"into", r3.Vector{X: 80}, center, []Span{{2.0 / 3, 1}}},
		{"inside", r3.Vector{X: 45}, r3.Vector{X: 55}, []Span{{0, 1}}},
		{"miss", r3.Vector{X: 20, Y: 30}, r3.Vector{X: 80, Y: 30}, nil},
	}
	opt := cmpopts.EquateApprox(0, 1e-9)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Spans(tt.p0, tt.p1)
			if err != nil {
				t.Fatalf("g.Spans(%v, %v) error = %v, want nil", tt.p0, tt.p1, err)
			}
			if diff := cmp.Diff(tt.want, got, opt, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("g.Spans(%v, %v) mismatch (-want +got):\n%s", tt.p0, tt.p1, diff)
			}
		})
	}
}

func TestGamut_Crossings_Consistent(t *testing.T) {
	g := mustBuild(t, bumpyPoints(2000, 14))
	//nolint:gosec
	random := rand.New(rand.NewSource(3))
	const samples = 200
	for range 300 {
		p0 := center.Add(randomVector(random).Mul(70))
		p1 := center.Add(randomVector(random).Mul(70))
		cs, err := g.Crossings(p0, p1)
		if err != nil {
			t.Fatalf("g.Crossings(%v, %v) error = %v, want nil", p0, p1, err)
		}
		for i := 1; i < len(cs); i++ {
			if cs[i].T < cs[i-1].T {
				t.Fatalf("g.Crossings(%v, %v) not sorted at %d", p0, p1, i)
			}
		}

		spans, err := g.Spans(p0, p1)
		if err != nil {
			t.Fatalf("g.Spans(%v, %v) error = %v, want nil", p0, p1, err)
		}
	sample:
		for k := range samples + 1 {
			tt := float64(k) / samples
			covered := false
			for _, s := range spans {
				if math.Abs(tt-s.T0) < 1e-6 || math.Abs(tt-s.T1) < 1e-6 {
					continue sample
				}
				if tt > s.T0 && tt < s.T1 {
					covered = true
				}
			}
			p := p0.Add(p1.Sub(p0).Mul(tt))
			if in, _ := g.Inside(p); in != covered {
				t.Errorf("g.Spans(%v, %v) covers t = %v: %v, g.Inside(%v) = %v", p0, p1, tt, covered, p, in)
			}
		}
	}
}

func TestGamut_Volume_Sphere(t *testing.T) {
	g := mustBuild(t, spherePoints(4000, 15, 40))
	vol, err := g.Volume()
	if err != nil {
		t.Fatalf("g.Volume() error = %v, want nil", err)
	}
	want := 4.0 / 3 * math.Pi * 40 * 40 * 40
	if vol > want || vol < 0.95*want {
		t.Errorf("g.Volume() = %v, want within 5%% below %v", vol, want)
	}
}

// Benchmarks

func BenchmarkRadial(b *testing.B) {
	g := mustBuild(b, bumpyPoints(1e+4, 0))
	//nolint:gosec
	random := rand.New(rand.NewSource(0))
	dirs := make([]r3.Vector, 1024)
	for i := range dirs {
		dirs[i] = randomVector(random)
	}
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		if _, _, err := g.Radial(dirs[i%len(dirs)]); err != nil {
			b.Fatalf("g.Radial(...) error = %v, want nil", err)
		}
		i++
	}
}

func BenchmarkNearest(b *testing.B) {
	g := mustBuild(b, bumpyPoints(1e+4, 0))
	//nolint:gosec
	random := rand.New(rand.NewSource(0))
	qs := make([]r3.Vector, 1024)
	for i := range qs {
		qs[i] = center.Add(randomVector(random).Mul(60))
	}
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		if _, _, err := g.Nearest(qs[i%len(qs)]); err != nil {
			b.Fatalf("g.Nearest(...) error = %v, want nil", err)
		}
		i++
	}
}

func BenchmarkCrossings(b *testing.B) {
	g := mustBuild(b, bumpyPoints(1e+4, 0))
	//nolint:gosec
	random := rand.New(rand.NewSource(0))
	segs := make([][2]r3.Vector, 1024)
	for i := range segs {
		segs[i] = [2]r3.Vector{
			center.Add(randomVector(random).Mul(70)),
			center.Add(randomVector(random).Mul(70)),
		}
	}
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		s := segs[i%len(segs)]
		if _, err := g.Crossings(s[0], s[1]); err != nil {
			b.Fatalf("g.Crossings(...) error = %v, want nil", err)
		}
		i++
	}
}

// Helpers

// randomVector returns a random unit vector.
func randomVector(random *rand.Rand) r3.Vector {
	for {
		v := r3.Vector{X: random.Float64()*2 - 1, Y: random.Float64()*2 - 1, Z: random.Float64()*2 - 1}
		if n := v.Norm(); n > 0.1 && n <= 1 {
			return v.Mul(1 / n)
		}
	}
}
