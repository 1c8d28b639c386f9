/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crop turns a canvas-space selection into a source-space crop rectangle.
package crop

import (
	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
	"imagefusion/internal/placement"
)

// MinSelectionPx is the canvas-space size a selection must exceed on both axes.
const MinSelectionPx = 10.0

// Selection is an in-progress rubber band for one slot.
type Selection struct {
	Slot   domain.SlotID
	Anchor geom.Pt
	Live   geom.Pt
}

// Begin starts a selection anchored at p.
func Begin(slot domain.SlotID, p geom.Pt) Selection {
	return Selection{Slot: slot, Anchor: p, Live: p}
}

// Move returns the selection with its live corner at p.
func (s Selection) Move(p geom.Pt) Selection {
	s.Live = p
	return s
}

// Rect is the axis-aligned box spanned by anchor and live corner.
func (s Selection) Rect() geom.Rect { return geom.Bounds(s.Anchor, s.Live) }

// Valid reports whether the selection is large enough to become a crop.
func (s Selection) Valid() bool {
	r := s.Rect()
	return r.W > MinSelectionPx && r.H > MinSelectionPx
}

// ToSource maps a page-space rectangle into source pixel space for the image placed in slot.
// Rotation and any existing crop are inverted exactly; the result is the bounding box of the
// four inverse-mapped corners. The result is not clamped to the image bounds.
func ToSource(sel, slot geom.Rect, img domain.ImageSlot) (domain.CropRect, bool) {
	inv, ok := placement.Compute(slot, img).PageToSource()
	if !ok {
		return domain.CropRect{}, false
	}
	r := inv.ApplyRect(sel)
	return domain.CropRect{X: r.X, Y: r.Y, Width: r.W, Height: r.H}, true
}

// Release finishes the selection. ok is false when the selection is below threshold
// or the slot transform cannot be inverted; the caller then keeps the previous crop.
func Release(s Selection, slot geom.Rect, img domain.ImageSlot) (domain.CropRect, bool) {
	if !s.Valid() || !img.Occupied() {
		return domain.CropRect{}, false
	}
	return ToSource(s.Rect(), slot, img)
}
