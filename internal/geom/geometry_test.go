/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	if r.Contains(Pt{9.9, 20}) {
		t.Fatalf("point left of rect must not be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
}

func TestBoundsAnyCornerOrder(t *testing.T) {
	b := Bounds(Pt{50, 10}, Pt{20, 40})
	if b != R(20, 10, 30, 30) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestIntersectsExcludesTouchingEdges(t *testing.T) {
	a := R(0, 0, 10, 10)
	if a.Intersects(R(10, 0, 10, 10)) {
		t.Fatalf("touching rects must not intersect")
	}
	if !a.Intersects(R(9, 9, 10, 10)) {
		t.Fatalf("overlapping rects must intersect")
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(120, -40).Mul(Rotate(0.7)).Mul(Scale(1.5, 0.25))
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible matrix")
	}
	in := Pt{33, 77}
	out := inv.Apply(m.Apply(in))
	if !scalar.EqualWithinAbs(out.X, in.X, 1e-9) || !scalar.EqualWithinAbs(out.Y, in.Y, 1e-9) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestAffineInvertSingular(t *testing.T) {
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("expected singular matrix to be rejected")
	}
}

func TestApplyRectQuarterTurn(t *testing.T) {
	r := Rotate(math.Pi / 2).ApplyRect(R(0, 0, 10, 4))
	if !scalar.EqualWithinAbs(r.W, 4, 1e-9) || !scalar.EqualWithinAbs(r.H, 10, 1e-9) {
		t.Fatalf("unexpected rotated bounds: %+v", r)
	}
}

func TestRotateQuarterTurnsAreExact(t *testing.T) {
	for i, want := range []Affine2D{
		{A: 0, B: 1, C: -1, D: 0},
		{A: -1, B: 0, C: 0, D: -1},
		{A: 0, B: -1, C: 1, D: 0},
	} {
		got := Rotate(float64(i+1) * math.Pi / 2)
		if got != want {
			t.Fatalf("Rotate(%d*pi/2) = %+v, want %+v", i+1, got, want)
		}
	}
}
