/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"image"
	"math"
)

// Reducers return a new State and never mutate the receiver. Crop pointers are replaced, not written through.

// Scale bounds applied by ZoomBy and SetScale.
const (
	MinScale   = 0.1
	MaxScale   = 10
	ZoomStep   = 0.1
	RotateStep = 90
)

// WithPage replaces the page configuration.
func (s State) WithPage(p PageConfig) State {
	s.Page = p
	return s
}

// WithSlot applies fn to a copy of the given slot. Unknown ids return s unchanged.
func (s State) WithSlot(id SlotID, fn func(ImageSlot) ImageSlot) State {
	i := id.Index()
	if i < 0 {
		return s
	}
	s.Slots[i] = fn(s.Slots[i])
	s.Slots[i].ID = id
	return s
}

// SetImage installs a decoded source and resets all adjustments.
func (s State) SetImage(id SlotID, img image.Image, name string) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		b := img.Bounds()
		out := NewImageSlot(id)
		out.Image = img
		out.Name = name
		out.OriginalWidth = b.Dx()
		out.OriginalHeight = b.Dy()
		return out
	})
}

// ClearSlot empties the slot.
func (s State) ClearSlot(id SlotID) State {
	return s.WithSlot(id, func(ImageSlot) ImageSlot { return NewImageSlot(id) })
}

// ResetAdjustments restores scale 1, rotation 0, centered offset and no crop.
func (s State) ResetAdjustments(id SlotID) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		sl.Scale = 1
		sl.RotationDeg = 0
		sl.OffsetXPct = 0
		sl.OffsetYPct = 0
		sl.Crop = nil
		return sl
	})
}

// ResetCrop clears the crop rectangle.
func (s State) ResetCrop(id SlotID) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		sl.Crop = nil
		return sl
	})
}

// SetCrop stores a crop rectangle as given; callers validate bounds.
func (s State) SetCrop(id SlotID, c CropRect) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		cc := c
		sl.Crop = &cc
		return sl
	})
}

// SetRotation stores the rotation normalized to [0,360).
func (s State) SetRotation(id SlotID, deg float64) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		sl.RotationDeg = NormalizeDegrees(deg)
		return sl
	})
}

// RotateBy adds delta degrees to the current rotation.
func (s State) RotateBy(id SlotID, delta float64) State {
	sl, ok := s.Slot(id)
	if !ok {
		return s
	}
	return s.SetRotation(id, sl.RotationDeg+delta)
}

// SetScale stores the uniform scale clamped to [MinScale, MaxScale].
func (s State) SetScale(id SlotID, scale float64) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		sl.Scale = ClampScale(scale)
		return sl
	})
}

// ZoomBy adds delta to the current scale.
func (s State) ZoomBy(id SlotID, delta float64) State {
	sl, ok := s.Slot(id)
	if !ok {
		return s
	}
	return s.SetScale(id, sl.Scale+delta)
}

// SetOffset stores the offsets in percent of the slot size without clamping.
func (s State) SetOffset(id SlotID, xPct, yPct float64) State {
	return s.WithSlot(id, func(sl ImageSlot) ImageSlot {
		sl.OffsetXPct = xPct
		sl.OffsetYPct = yPct
		return sl
	})
}

// NormalizeDegrees maps any angle into [0,360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// ClampScale limits scale to [MinScale, MaxScale].
func ClampScale(v float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, v))
}

// ClampPercent limits an offset to [-100, 100].
func ClampPercent(v float64) float64 {
	return math.Max(-100, math.Min(100, v))
}
