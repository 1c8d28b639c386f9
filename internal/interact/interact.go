/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interact routes canvas pointer events to crop selection or drag-to-reposition.
// Every method is a pure reducer over domain.State and Interaction.
package interact

import (
	"imagefusion/internal/crop"
	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
	"imagefusion/internal/layout"
)

// Drag is an active reposition gesture.
type Drag struct {
	Slot       domain.SlotID
	Anchor     geom.Pt
	StartXPct  float64
	StartYPct  float64
	SlotWidth  float64
	SlotHeight float64
}

// Interaction is the transient pointer state. The zero value is idle.
type Interaction struct {
	CropSlot  *domain.SlotID
	Selection *crop.Selection
	Drag      *Drag
}

// Idle reports whether no gesture or mode is active.
func (in Interaction) Idle() bool {
	return in.CropSlot == nil && in.Selection == nil && in.Drag == nil
}

// Cropping reports whether crop mode is active and for which slot.
func (in Interaction) Cropping() (domain.SlotID, bool) {
	if in.CropSlot == nil {
		return "", false
	}
	return *in.CropSlot, true
}

// SelectionRect returns the live selection rectangle, if any.
func (in Interaction) SelectionRect() *geom.Rect {
	if in.Selection == nil {
		return nil
	}
	r := in.Selection.Rect()
	return &r
}

// StartCrop enters crop mode for id. Any drag in progress is dropped.
func (in Interaction) StartCrop(id domain.SlotID) Interaction {
	if id.Index() < 0 {
		return in
	}
	return Interaction{CropSlot: &id}
}

// CancelCrop leaves crop mode without changing any crop.
func (in Interaction) CancelCrop() Interaction {
	in.CropSlot = nil
	in.Selection = nil
	return in
}

// PointerDown begins a selection in crop mode, or a drag when p lies inside an occupied slot.
func PointerDown(st domain.State, in Interaction, p geom.Pt) (domain.State, Interaction) {
	if id, ok := in.Cropping(); ok {
		sel := crop.Begin(id, p)
		in.Selection = &sel
		return st, in
	}
	if in.Drag != nil {
		return st, in
	}
	slots := layout.ComputeSlotsClamped(st.Page)
	id, ok := layout.SlotAt(slots, p)
	if !ok {
		return st, in
	}
	sl, _ := st.Slot(id)
	if !sl.Occupied() {
		return st, in
	}
	r := slots[id.Index()]
	in.Drag = &Drag{
		Slot:       id,
		Anchor:     p,
		StartXPct:  sl.OffsetXPct,
		StartYPct:  sl.OffsetYPct,
		SlotWidth:  r.W,
		SlotHeight: r.H,
	}
	return st, in
}

// PointerMove updates the live selection corner or the dragged slot's offsets.
func PointerMove(st domain.State, in Interaction, p geom.Pt) (domain.State, Interaction) {
	if in.Selection != nil {
		sel := in.Selection.Move(p)
		in.Selection = &sel
		return st, in
	}
	if d := in.Drag; d != nil {
		x, y := d.Offsets(p)
		return st.SetOffset(d.Slot, x, y), in
	}
	return st, in
}

// PointerUp completes the gesture. A valid selection becomes the slot's crop and crop mode ends;
// an undersized one is discarded and crop mode ends as well.
func PointerUp(st domain.State, in Interaction, p geom.Pt) (domain.State, Interaction) {
	if in.Selection != nil {
		sel := in.Selection.Move(p)
		slots := layout.ComputeSlotsClamped(st.Page)
		idx := sel.Slot.Index()
		if idx >= 0 {
			if c, ok := crop.Release(sel, slots[idx], st.Slots[idx]); ok {
				st = st.SetCrop(sel.Slot, c)
			}
		}
		return st, Interaction{}
	}
	if d := in.Drag; d != nil {
		x, y := d.Offsets(p)
		st = st.SetOffset(d.Slot, x, y)
		in.Drag = nil
	}
	return st, in
}

// PointerLeave behaves like PointerUp at the last known position.
func PointerLeave(st domain.State, in Interaction, p geom.Pt) (domain.State, Interaction) {
	return PointerUp(st, in, p)
}

// Offsets computes the clamped offsets for pointer position p.
func (d Drag) Offsets(p geom.Pt) (xPct, yPct float64) {
	xPct, yPct = d.StartXPct, d.StartYPct
	if d.SlotWidth > 0 {
		xPct += (p.X - d.Anchor.X) / d.SlotWidth * 100
	}
	if d.SlotHeight > 0 {
		yPct += (p.Y - d.Anchor.Y) / d.SlotHeight * 100
	}
	return domain.ClampPercent(xPct), domain.ClampPercent(yPct)
}
