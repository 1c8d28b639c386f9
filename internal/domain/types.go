/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the layout engine and its collaborators.
// The host UI owns and mutates State through the reducers in state.go; the engine only reads it.

import (
	"image"
	"math"
	"strings"
)

// PageSize is a named page preset.
type PageSize string

const (
	PageA4     PageSize = "A4"
	PageLetter PageSize = "LETTER"
	PageCustom PageSize = "CUSTOM"
)

// Orientation swaps page width and height when landscape.
type Orientation string

const (
	Portrait  Orientation = "PORTRAIT"
	Landscape Orientation = "LANDSCAPE"
)

// LayoutAxis selects whether the two slots are stacked or side by side.
type LayoutAxis string

const (
	LayoutVertical   LayoutAxis = "VERTICAL"
	LayoutHorizontal LayoutAxis = "HORIZONTAL"
)

// SizeMM is a physical width/height pair in millimetres.
type SizeMM struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PresetDimensions lists the fixed portrait dimensions of the named presets.
var PresetDimensions = map[PageSize]SizeMM{
	PageA4:     {Width: 210, Height: 297},
	PageLetter: {Width: 215.9, Height: 279.4},
}

// DPIPresets are the resolutions offered by the editor.
var DPIPresets = []int{72, 150, 300, 600}

// Margin and spacing slider bounds in millimetres.
const (
	MinMarginMM  = 0
	MaxMarginMM  = 50
	MinSpacingMM = 0
	MaxSpacingMM = 50
)

// PageConfig is the physical page description.
type PageConfig struct {
	Size           PageSize    `json:"pageSize" yaml:"page_size"`
	Orientation    Orientation `json:"orientation" yaml:"orientation"`
	Layout         LayoutAxis  `json:"layout" yaml:"layout"`
	MarginMM       float64     `json:"margin" yaml:"margin_mm"`
	SpacingMM      float64     `json:"spacing" yaml:"spacing_mm"`
	CustomWidthMM  float64     `json:"customWidth" yaml:"custom_width_mm"`
	CustomHeightMM float64     `json:"customHeight" yaml:"custom_height_mm"`
	DPI            int         `json:"dpi" yaml:"dpi"`
}

// DefaultPageConfig returns A4 portrait, vertical layout, 10mm margin and spacing at 300 DPI.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:           PageA4,
		Orientation:    Portrait,
		Layout:         LayoutVertical,
		MarginMM:       10,
		SpacingMM:      10,
		CustomWidthMM:  210,
		CustomHeightMM: 297,
		DPI:            300,
	}
}

// ParsePageSize accepts preset names case-insensitively ("a4", "Letter", "custom").
func ParsePageSize(s string) (PageSize, bool) {
	switch PageSize(strings.ToUpper(strings.TrimSpace(s))) {
	case PageA4:
		return PageA4, true
	case PageLetter:
		return PageLetter, true
	case PageCustom:
		return PageCustom, true
	}
	return "", false
}

// ParseLayout accepts "vertical" or "horizontal" case-insensitively.
func ParseLayout(s string) (LayoutAxis, bool) {
	switch LayoutAxis(strings.ToUpper(strings.TrimSpace(s))) {
	case LayoutVertical:
		return LayoutVertical, true
	case LayoutHorizontal:
		return LayoutHorizontal, true
	}
	return "", false
}

// SlotID selects one of the two fixed slots.
type SlotID string

const (
	SlotA SlotID = "img1"
	SlotB SlotID = "img2"
)

// SlotIDs lists both slots in drawing order.
var SlotIDs = [2]SlotID{SlotA, SlotB}

// Index returns 0 for slot A and 1 for slot B (-1 if unknown).
func (id SlotID) Index() int {
	switch id {
	case SlotA:
		return 0
	case SlotB:
		return 1
	}
	return -1
}

// CropRect is a sub-region of the source image in its own pixel space.
type CropRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the crop has no area.
func (c CropRect) Empty() bool { return c.Width <= 0 || c.Height <= 0 }

// Within reports whether the crop lies fully inside [0,w]x[0,h].
func (c CropRect) Within(w, h float64) bool {
	return c.X >= 0 && c.Y >= 0 && c.X+c.Width <= w && c.Y+c.Height <= h && !c.Empty()
}

// Clamp intersects the crop with [0,w]x[0,h]. The result may be empty.
func (c CropRect) Clamp(w, h float64) CropRect {
	x0 := max(c.X, 0)
	y0 := max(c.Y, 0)
	x1 := min(c.X+c.Width, w)
	y1 := min(c.Y+c.Height, h)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return CropRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Bounds returns the smallest integer rectangle covering the crop.
func (c CropRect) Bounds() image.Rectangle {
	return image.Rect(int(math.Floor(c.X)), int(math.Floor(c.Y)), int(math.Ceil(c.X+c.Width)), int(math.Ceil(c.Y+c.Height)))
}

// ImageSlot is the per-slot editing state. Image is decoded once on upload and never mutated.
type ImageSlot struct {
	ID             SlotID      `json:"id"`
	Image          image.Image `json:"-"`
	Name           string      `json:"name,omitempty"`
	RotationDeg    float64     `json:"rotation"`
	Scale          float64     `json:"scale"`
	OffsetXPct     float64     `json:"x"`
	OffsetYPct     float64     `json:"y"`
	Crop           *CropRect   `json:"crop"`
	OriginalWidth  int         `json:"originalWidth"`
	OriginalHeight int         `json:"originalHeight"`
}

// NewImageSlot returns an empty slot with identity adjustments.
func NewImageSlot(id SlotID) ImageSlot {
	return ImageSlot{ID: id, Scale: 1}
}

// Occupied reports whether a decoded source with a usable size is present.
func (s ImageSlot) Occupied() bool {
	return s.Image != nil && s.OriginalWidth > 0 && s.OriginalHeight > 0
}

// State is the complete editing state: one page configuration and exactly two slots.
type State struct {
	Page  PageConfig   `json:"settings"`
	Slots [2]ImageSlot `json:"slots"`
}

// NewState returns the initial editor state.
func NewState() State {
	return State{
		Page:  DefaultPageConfig(),
		Slots: [2]ImageSlot{NewImageSlot(SlotA), NewImageSlot(SlotB)},
	}
}

// Slot returns the state of the given slot.
func (s State) Slot(id SlotID) (ImageSlot, bool) {
	i := id.Index()
	if i < 0 {
		return ImageSlot{}, false
	}
	return s.Slots[i], true
}

// AnyOccupied reports whether at least one slot holds an image.
func (s State) AnyOccupied() bool {
	return s.Slots[0].Occupied() || s.Slots[1].Occupied()
}
