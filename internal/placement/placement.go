/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package placement maps an image slot's adjustments to a page-space transform.
package placement

import (
	"math"

	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
)

// FitMode selects how the base scale relates the image to its slot.
type FitMode int

const (
	// FitCover scales so the image covers the slot on both axes (may crop).
	FitCover FitMode = iota
	// FitContain scales so the whole image is visible inside the slot (may letterbox).
	FitContain
)

func (m FitMode) String() string {
	if m == FitContain {
		return "contain"
	}
	return "cover"
}

// BaseFitScale returns the cover scale for an image of imgW x imgH inside a slot of slotW x slotH.
// Cover fills the slot and crops the overflow, so a freshly placed image never shows empty
// bands. Use BaseFitScaleMode with FitContain for letterboxed placement where the whole
// image stays visible.
// Non-positive image dimensions yield 0.
func BaseFitScale(imgW, imgH, slotW, slotH float64) float64 {
	return BaseFitScaleMode(FitCover, imgW, imgH, slotW, slotH)
}

// BaseFitScaleMode is BaseFitScale with an explicit fit mode.
func BaseFitScaleMode(mode FitMode, imgW, imgH, slotW, slotH float64) float64 {
	if imgW <= 0 || imgH <= 0 || slotW <= 0 || slotH <= 0 {
		return 0
	}
	sx := slotW / imgW
	sy := slotH / imgH
	if mode == FitContain {
		return math.Min(sx, sy)
	}
	return math.Max(sx, sy)
}

// Placement is where and how a slot's image lands on the page.
type Placement struct {
	CenterX        float64
	CenterY        float64
	Rotation       float64 // radians
	BaseScale      float64
	EffectiveScale float64
	ImageW         float64
	ImageH         float64
	Crop           *domain.CropRect
}

// Compute places img inside slot using cover fit.
func Compute(slot geom.Rect, img domain.ImageSlot) Placement {
	return ComputeMode(FitCover, slot, img)
}

// ComputeMode places img inside slot with the given fit mode.
func ComputeMode(mode FitMode, slot geom.Rect, img domain.ImageSlot) Placement {
	w := float64(img.OriginalWidth)
	h := float64(img.OriginalHeight)
	base := BaseFitScaleMode(mode, w, h, slot.W, slot.H)
	p := Placement{
		CenterX:        slot.X + slot.W/2 + img.OffsetXPct*slot.W/100,
		CenterY:        slot.Y + slot.H/2 + img.OffsetYPct*slot.H/100,
		Rotation:       img.RotationDeg * math.Pi / 180,
		BaseScale:      base,
		EffectiveScale: base * img.Scale,
		ImageW:         w,
		ImageH:         h,
	}
	if img.Crop != nil && !img.Crop.Empty() {
		c := *img.Crop
		p.Crop = &c
	}
	return p
}

// Center returns the placement center as a point.
func (p Placement) Center() geom.Pt { return geom.Pt{X: p.CenterX, Y: p.CenterY} }

// Footprint is the unrotated destination rectangle of the full image, centered on the placement.
// A crop is stretched to this same footprint so zoom does not jump when a crop is applied.
func (p Placement) Footprint() geom.Rect {
	fw := p.ImageW * p.EffectiveScale
	fh := p.ImageH * p.EffectiveScale
	return geom.R(p.CenterX-fw/2, p.CenterY-fh/2, fw, fh)
}

// SourceRect is the region of the source image that is sampled.
func (p Placement) SourceRect() geom.Rect {
	if p.Crop != nil {
		return geom.R(p.Crop.X, p.Crop.Y, p.Crop.Width, p.Crop.Height)
	}
	return geom.R(0, 0, p.ImageW, p.ImageH)
}

// SourceToPage maps source pixel coordinates to page pixel coordinates.
func (p Placement) SourceToPage() geom.Affine2D {
	src := p.SourceRect()
	fw := p.ImageW * p.EffectiveScale
	fh := p.ImageH * p.EffectiveScale
	sx, sy := 0.0, 0.0
	if src.W > 0 {
		sx = fw / src.W
	}
	if src.H > 0 {
		sy = fh / src.H
	}
	return geom.Translate(p.CenterX, p.CenterY).
		Mul(geom.Rotate(p.Rotation)).
		Mul(geom.Translate(-fw/2, -fh/2)).
		Mul(geom.Scale(sx, sy)).
		Mul(geom.Translate(-src.X, -src.Y))
}

// PageToSource is the inverse of SourceToPage. ok is false when the scale is zero.
func (p Placement) PageToSource() (geom.Affine2D, bool) {
	return p.SourceToPage().Invert()
}

// Bounds is the axis-aligned page-space bounding box of the drawn image.
func (p Placement) Bounds() geom.Rect {
	return p.SourceToPage().ApplyRect(p.SourceRect())
}
