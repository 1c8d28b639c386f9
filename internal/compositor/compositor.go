/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compositor rasterizes the two-slot page into a pixel buffer.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
	"imagefusion/internal/layout"
	"imagefusion/internal/placement"
)

// MaxPageSidePx bounds the raster size of either page side.
const MaxPageSidePx = 32768

// ErrPageTooLarge is returned when the page raster would exceed MaxPageSidePx.
var ErrPageTooLarge = errors.New("page raster too large")

var (
	GuideColor     = color.NRGBA{R: 0xF1, G: 0xF5, B: 0xF9, A: 0xFF}
	ScrimColor     = color.NRGBA{A: 102}
	SelectionColor = color.NRGBA{R: 0x63, G: 0x66, B: 0xF1, A: 0xFF}
	GuideDash      = []float64{20, 10}
)

// SelectionBorderPx is the width of the crop selection outline.
const SelectionBorderPx = 4

// Options control what is drawn on top of the slot images.
type Options struct {
	// Selection, when set, draws the crop scrim with this rectangle punched out.
	Selection *geom.Rect
	// Guides draws dashed slot outlines.
	Guides bool
	// Filter resamples the sources; nil means draw.CatmullRom.
	Filter draw.Interpolator
	// Fit chooses the base scale rule.
	Fit placement.FitMode
}

// Render draws st onto a new page-sized RGBA buffer. Degenerate layouts return
// layout.ErrDegenerateLayout.
func Render(st domain.State, opt Options) (*image.RGBA, error) {
	slots, err := layout.ComputeSlots(st.Page)
	if err != nil {
		return nil, err
	}
	return renderSlots(st, slots, opt)
}

// RenderPreview is the interactive variant: guides on, bilinear sampling, and a
// clamped layout so a transient bad setting still shows something.
func RenderPreview(st domain.State, sel *geom.Rect) (*image.RGBA, error) {
	if st.Page.DPI <= 0 {
		st.Page.DPI = domain.DefaultPageConfig().DPI
	}
	slots := layout.ComputeSlotsClamped(st.Page)
	return renderSlots(st, slots, Options{Selection: sel, Guides: true, Filter: draw.ApproxBiLinear})
}

// RenderExport renders the printable page: no guides, no selection, Catmull-Rom sampling.
func RenderExport(st domain.State) (*image.RGBA, error) {
	return Render(st, Options{Filter: draw.CatmullRom})
}

func renderSlots(st domain.State, slots [2]geom.Rect, opt Options) (*image.RGBA, error) {
	w, h := layout.ComputePage(st.Page).PixelBounds()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: page %dx%d px", layout.ErrDegenerateLayout, w, h)
	}
	if w > MaxPageSidePx || h > MaxPageSidePx {
		return nil, fmt.Errorf("%w: %dx%d px", ErrPageTooLarge, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	filter := opt.Filter
	if filter == nil {
		filter = draw.CatmullRom
	}
	for i, sl := range st.Slots {
		if !sl.Occupied() {
			continue
		}
		drawSlot(dst, slots[i], sl, filter, opt.Fit)
	}
	if opt.Guides {
		width := layout.MMToPixels(1, st.Page.DPI)
		for _, r := range slots {
			strokeRect(dst, r, width, GuideColor, GuideDash)
		}
	}
	if opt.Selection != nil {
		drawSelection(dst, *opt.Selection)
	}
	return dst, nil
}

func drawSlot(dst *image.RGBA, slot geom.Rect, sl domain.ImageSlot, filter draw.Interpolator, fit placement.FitMode) {
	clip := toImageRect(slot).Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	p := placement.ComputeMode(fit, slot, sl)
	if p.EffectiveScale <= 0 {
		return
	}
	sb := sl.Image.Bounds()
	sr := sb
	if p.Crop != nil {
		sr = p.Crop.Bounds().Add(sb.Min).Intersect(sb)
	}
	if sr.Empty() {
		return
	}
	m := p.SourceToPage().Mul(geom.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	s2d := f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
	sub := dst.SubImage(clip).(*image.RGBA)
	filter.Transform(sub, s2d, sl.Image, sr, draw.Over, nil)
}

func drawSelection(dst *image.RGBA, sel geom.Rect) {
	b := dst.Bounds()
	hole := toImageRect(sel).Intersect(b)
	scrim := image.NewUniform(ScrimColor)
	if hole.Empty() {
		draw.Draw(dst, b, scrim, image.Point{}, draw.Over)
	} else {
		for _, r := range []image.Rectangle{
			image.Rect(b.Min.X, b.Min.Y, b.Max.X, hole.Min.Y),
			image.Rect(b.Min.X, hole.Max.Y, b.Max.X, b.Max.Y),
			image.Rect(b.Min.X, hole.Min.Y, hole.Min.X, hole.Max.Y),
			image.Rect(hole.Max.X, hole.Min.Y, b.Max.X, hole.Max.Y),
		} {
			if !r.Empty() {
				draw.Draw(dst, r, scrim, image.Point{}, draw.Over)
			}
		}
	}
	strokeRect(dst, sel, SelectionBorderPx, SelectionColor, nil)
}

func toImageRect(r geom.Rect) image.Rectangle {
	return domain.CropRect{X: r.X, Y: r.Y, Width: r.W, Height: r.H}.Bounds()
}
