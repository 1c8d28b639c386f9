/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crop

import (
	"image"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
)

func loaded(w, h int) domain.ImageSlot {
	st := domain.NewState().SetImage(domain.SlotA, image.NewRGBA(image.Rect(0, 0, w, h)), "t.png")
	return st.Slots[0]
}

func eqCrop(t *testing.T, got, want domain.CropRect, eps float64) {
	t.Helper()
	if !scalar.EqualWithinAbs(got.X, want.X, eps) || !scalar.EqualWithinAbs(got.Y, want.Y, eps) ||
		!scalar.EqualWithinAbs(got.Width, want.Width, eps) || !scalar.EqualWithinAbs(got.Height, want.Height, eps) {
		t.Fatalf("crop = %+v, want %+v", got, want)
	}
}

func TestSelectionRectNormalizes(t *testing.T) {
	s := Begin(domain.SlotA, geom.Pt{X: 50, Y: 40}).Move(geom.Pt{X: 10, Y: 90})
	if r := s.Rect(); r != geom.R(10, 40, 40, 50) {
		t.Fatalf("rect = %+v", r)
	}
	if !s.Valid() {
		t.Fatalf("40x50 selection must be valid")
	}
	if Begin(domain.SlotA, geom.Pt{}).Move(geom.Pt{X: 10, Y: 50}).Valid() {
		t.Fatalf("width equal to threshold must be rejected")
	}
}

func TestFullSlotRoundTrip(t *testing.T) {
	slot := geom.R(118, 118, 2244, 1577)
	img := loaded(4488, 3154)
	got, ok := ToSource(slot, slot, img)
	if !ok {
		t.Fatalf("ToSource failed")
	}
	eqCrop(t, got, domain.CropRect{Width: 4488, Height: 3154}, 1e-6)
}

func TestMatchesAxisAlignedFormula(t *testing.T) {
	slot := geom.R(0, 0, 400, 300)
	img := loaded(1000, 500)
	img.Scale = 1.5
	img.OffsetXPct = 12
	img.OffsetYPct = -7
	sel := geom.R(120, 80, 90, 60)

	es := 0.6 * 1.5
	cx := 200 + 12*400/100.0
	cy := 150 - 7*300/100.0
	want := domain.CropRect{
		X:      1000/2.0 + (sel.X-cx)/es,
		Y:      500/2.0 + (sel.Y-cy)/es,
		Width:  sel.W / es,
		Height: sel.H / es,
	}
	got, _ := ToSource(sel, slot, img)
	eqCrop(t, got, want, 1e-6)
}

func TestRotatedCropRoundTrip(t *testing.T) {
	slot := geom.R(0, 0, 300, 300)
	img := loaded(600, 600)
	img.RotationDeg = 90
	// center quarter of the slot maps to the center quarter of the source for any quarter turn
	got, ok := ToSource(geom.R(75, 75, 150, 150), slot, img)
	if !ok {
		t.Fatalf("ToSource failed")
	}
	eqCrop(t, got, domain.CropRect{X: 150, Y: 150, Width: 300, Height: 300}, 1e-6)

	// a right-hand strip of the slot is the top strip of a source turned clockwise
	got, _ = ToSource(geom.R(150, 0, 150, 300), slot, img)
	eqCrop(t, got, domain.CropRect{X: 0, Y: 0, Width: 600, Height: 300}, 1e-6)
}

func TestSecondCropNestsInsideFirst(t *testing.T) {
	slot := geom.R(0, 0, 400, 300)
	img := loaded(800, 600)
	img.Crop = &domain.CropRect{X: 200, Y: 150, Width: 400, Height: 300}
	// the crop fills the whole footprint, so the left half of the slot is the left half of the crop
	got, _ := ToSource(geom.R(0, 0, 200, 300), slot, img)
	eqCrop(t, got, domain.CropRect{X: 200, Y: 150, Width: 200, Height: 300}, 1e-6)
}

func TestReleaseBelowThreshold(t *testing.T) {
	slot := geom.R(0, 0, 400, 300)
	img := loaded(800, 600)
	s := Begin(domain.SlotA, geom.Pt{X: 100, Y: 100}).Move(geom.Pt{X: 105, Y: 105})
	if _, ok := Release(s, slot, img); ok {
		t.Fatalf("5x5 selection must be discarded")
	}
	if _, ok := Release(s.Move(geom.Pt{X: 200, Y: 200}), slot, domain.NewImageSlot(domain.SlotA)); ok {
		t.Fatalf("empty slot must not produce a crop")
	}
	c, ok := Release(s.Move(geom.Pt{X: 200, Y: 200}), slot, img)
	if !ok || c.Empty() {
		t.Fatalf("valid selection rejected: %+v", c)
	}
}
