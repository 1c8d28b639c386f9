/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout converts a page configuration into page and slot rectangles in pixel space.
// All functions are pure and safe for concurrent use.
package layout

import (
	"errors"
	"fmt"
	"math"

	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
)

const mmPerInch = 25.4

// ErrDegenerateLayout is returned when margin/spacing leave no positive slot area
// or the configuration is otherwise unusable.
var ErrDegenerateLayout = errors.New("degenerate layout")

// Page holds the resolved page size in both millimetres and pixels.
type Page struct {
	WidthMM  float64 `json:"widthMm"`
	HeightMM float64 `json:"heightMm"`
	WidthPx  float64 `json:"widthPx"`
	HeightPx float64 `json:"heightPx"`
}

// PixelBounds returns the integer raster size of the page.
func (p Page) PixelBounds() (w, h int) {
	return int(math.Round(p.WidthPx)), int(math.Round(p.HeightPx))
}

// MMToPixels converts millimetres to pixels at dpi.
func MMToPixels(mm float64, dpi int) float64 { return mm * float64(dpi) / mmPerInch }

// PixelsToMM converts pixels at dpi back to millimetres.
func PixelsToMM(px float64, dpi int) float64 {
	if dpi <= 0 {
		return 0
	}
	return px * mmPerInch / float64(dpi)
}

// PageSizeMM resolves the preset or custom dimensions and applies orientation.
func PageSizeMM(cfg domain.PageConfig) domain.SizeMM {
	var sz domain.SizeMM
	if d, ok := domain.PresetDimensions[cfg.Size]; ok && cfg.Size != domain.PageCustom {
		sz = d
	} else {
		sz = domain.SizeMM{Width: cfg.CustomWidthMM, Height: cfg.CustomHeightMM}
	}
	if cfg.Orientation == domain.Landscape {
		sz.Width, sz.Height = sz.Height, sz.Width
	}
	return sz
}

// ComputePage returns the page size in millimetres and pixels.
func ComputePage(cfg domain.PageConfig) Page {
	mm := PageSizeMM(cfg)
	return Page{
		WidthMM:  mm.Width,
		HeightMM: mm.Height,
		WidthPx:  MMToPixels(mm.Width, cfg.DPI),
		HeightPx: MMToPixels(mm.Height, cfg.DPI),
	}
}

// PageSizePx returns only the pixel dimensions.
func PageSizePx(cfg domain.PageConfig) (w, h float64) {
	p := ComputePage(cfg)
	return p.WidthPx, p.HeightPx
}

// ComputeSlots splits the usable page area into two slots along the layout axis.
// Slot A is top (vertical) or left (horizontal). Degenerate configurations return ErrDegenerateLayout.
func ComputeSlots(cfg domain.PageConfig) ([2]geom.Rect, error) {
	if err := checkInputs(cfg); err != nil {
		return [2]geom.Rect{}, err
	}
	slots := rawSlots(cfg)
	for i, s := range slots {
		if s.W <= 0 || s.H <= 0 {
			return [2]geom.Rect{}, fmt.Errorf("%w: slot %d would be %.1fx%.1f px", ErrDegenerateLayout, i+1, s.W, s.H)
		}
	}
	return slots, nil
}

// ComputeSlotsClamped never fails: each slot is forced to at least 1x1 pixel and kept on the page.
// Used by interactive previews where a transient bad value must not abort a repaint.
func ComputeSlotsClamped(cfg domain.PageConfig) [2]geom.Rect {
	if cfg.DPI <= 0 {
		cfg.DPI = domain.DefaultPageConfig().DPI
	}
	cfg.MarginMM = math.Max(0, cfg.MarginMM)
	cfg.SpacingMM = math.Max(0, cfg.SpacingMM)
	slots := rawSlots(cfg)
	pw, ph := PageSizePx(cfg)
	for i := range slots {
		s := &slots[i]
		s.W = math.Max(1, s.W)
		s.H = math.Max(1, s.H)
		s.X = math.Max(0, math.Min(s.X, pw-s.W))
		s.Y = math.Max(0, math.Min(s.Y, ph-s.H))
	}
	return slots
}

// Validate reports configuration errors without computing rectangles for the caller.
func Validate(cfg domain.PageConfig) error {
	_, err := ComputeSlots(cfg)
	return err
}

func checkInputs(cfg domain.PageConfig) error {
	if cfg.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %d", ErrDegenerateLayout, cfg.DPI)
	}
	if cfg.MarginMM < 0 || cfg.SpacingMM < 0 {
		return fmt.Errorf("%w: margin and spacing must be non-negative", ErrDegenerateLayout)
	}
	mm := PageSizeMM(cfg)
	if mm.Width <= 0 || mm.Height <= 0 {
		return fmt.Errorf("%w: page size %.1fx%.1f mm", ErrDegenerateLayout, mm.Width, mm.Height)
	}
	return nil
}

func rawSlots(cfg domain.PageConfig) [2]geom.Rect {
	pw, ph := PageSizePx(cfg)
	margin := MMToPixels(cfg.MarginMM, cfg.DPI)
	spacing := MMToPixels(cfg.SpacingMM, cfg.DPI)

	if cfg.Layout == domain.LayoutHorizontal {
		slotW := (pw - 2*margin - spacing) / 2
		h := ph - 2*margin
		return [2]geom.Rect{
			geom.R(margin, margin, slotW, h),
			geom.R(margin+slotW+spacing, margin, slotW, h),
		}
	}
	slotH := (ph - 2*margin - spacing) / 2
	w := pw - 2*margin
	return [2]geom.Rect{
		geom.R(margin, margin, w, slotH),
		geom.R(margin, margin+slotH+spacing, w, slotH),
	}
}

// SlotAt returns the slot containing p, checking slot A first.
func SlotAt(slots [2]geom.Rect, p geom.Pt) (domain.SlotID, bool) {
	for i, s := range slots {
		if s.Contains(p) {
			return domain.SlotIDs[i], true
		}
	}
	return "", false
}
