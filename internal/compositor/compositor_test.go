/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
	"imagefusion/internal/layout"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func lowRes() domain.State {
	st := domain.NewState()
	st.Page.DPI = 72
	return st
}

// halves returns a w x h image whose left half is red and right half blue.
func halves(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetRGBA(x, y, red)
			} else {
				img.SetRGBA(x, y, blue)
			}
		}
	}
	return img
}

func isNear(c color.RGBA, want color.RGBA) bool {
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return d(c.R, want.R) < 8 && d(c.G, want.G) < 8 && d(c.B, want.B) < 8
}

func slotA(t *testing.T, st domain.State) geom.Rect {
	t.Helper()
	s, err := layout.ComputeSlots(st.Page)
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	return s[0]
}

func TestEmptyStateIsWhitePage(t *testing.T) {
	st := lowRes()
	img, err := RenderExport(st)
	if err != nil {
		t.Fatalf("RenderExport: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 595 || b.Dy() != 842 {
		t.Fatalf("size = %v", b)
	}
	for _, p := range []image.Point{{0, 0}, {300, 400}, {594, 841}} {
		if img.RGBAAt(p.X, p.Y) != (color.RGBA{255, 255, 255, 255}) {
			t.Fatalf("pixel %v = %v", p, img.RGBAAt(p.X, p.Y))
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	st := lowRes().SetImage(domain.SlotA, halves(40, 30), "a").SetRotation(domain.SlotA, 30).SetScale(domain.SlotA, 1.3)
	st = st.SetImage(domain.SlotB, halves(30, 40), "b")
	sel := geom.R(100, 100, 120, 80)
	a, err := Render(st, Options{Guides: true, Selection: &sel})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, _ := Render(st, Options{Guides: true, Selection: &sel})
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatalf("two renders of the same state differ")
	}
}

func TestSlotImageIsClippedAndRotated(t *testing.T) {
	st := lowRes().SetImage(domain.SlotA, halves(40, 30), "a")
	r := slotA(t, st)
	left := image.Pt(int(r.X+r.W/4), int(r.Y+r.H/2))
	right := image.Pt(int(r.X+3*r.W/4), int(r.Y+r.H/2))

	img, _ := RenderExport(st)
	if !isNear(img.RGBAAt(left.X, left.Y), red) || !isNear(img.RGBAAt(right.X, right.Y), blue) {
		t.Fatalf("unrotated halves wrong: %v %v", img.RGBAAt(left.X, left.Y), img.RGBAAt(right.X, right.Y))
	}
	if got := img.RGBAAt(int(r.X)-3, int(r.Y+r.H/2)); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("image leaked into margin: %v", got)
	}

	img, _ = RenderExport(st.SetRotation(domain.SlotA, 180))
	if !isNear(img.RGBAAt(left.X, left.Y), blue) || !isNear(img.RGBAAt(right.X, right.Y), red) {
		t.Fatalf("rotated halves wrong: %v %v", img.RGBAAt(left.X, left.Y), img.RGBAAt(right.X, right.Y))
	}
}

func TestCropSamplesOnlySubRect(t *testing.T) {
	st := lowRes().SetImage(domain.SlotA, halves(40, 30), "a").SetCrop(domain.SlotA, domain.CropRect{X: 24, Y: 0, Width: 16, Height: 30})
	r := slotA(t, st)
	img, _ := RenderExport(st)
	p := image.Pt(int(r.X+r.W/4), int(r.Y+r.H/2))
	if !isNear(img.RGBAAt(p.X, p.Y), blue) {
		t.Fatalf("cropped left side = %v", img.RGBAAt(p.X, p.Y))
	}
}

func TestGuidesOnlyInPreview(t *testing.T) {
	st := lowRes()
	r := slotA(t, st)
	p := image.Pt(int(r.X)+10, int(r.Y))
	white := color.RGBA{255, 255, 255, 255}

	exp, _ := RenderExport(st)
	if exp.RGBAAt(p.X, p.Y) != white {
		t.Fatalf("export has guides")
	}
	pre, err := RenderPreview(st, nil)
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if pre.RGBAAt(p.X, p.Y) == white {
		t.Fatalf("preview guide missing at %v", p)
	}
}

func TestSelectionScrim(t *testing.T) {
	st := lowRes()
	sel := geom.R(200, 300, 150, 100)
	img, err := Render(st, Options{Selection: &sel})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := img.RGBAAt(50, 50)
	if out.R > 160 || out.R < 145 {
		t.Fatalf("scrim pixel = %v", out)
	}
	if in := img.RGBAAt(275, 350); in != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("selection interior = %v", in)
	}
	if edge := img.RGBAAt(200, 350); !isNear(edge, color.RGBA{R: 0x63, G: 0x66, B: 0xF1, A: 255}) {
		t.Fatalf("selection border = %v", edge)
	}
}

func TestDegenerateLayoutRejected(t *testing.T) {
	st := lowRes()
	st.Page.MarginMM = 200
	if _, err := RenderExport(st); !errors.Is(err, layout.ErrDegenerateLayout) {
		t.Fatalf("expected ErrDegenerateLayout, got %v", err)
	}
	if _, err := RenderPreview(st, nil); err != nil {
		t.Fatalf("preview must tolerate bad layout: %v", err)
	}
}
