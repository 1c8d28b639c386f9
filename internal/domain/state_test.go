/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"image"
	"strings"
	"testing"
)

func testImage(w, h int) image.Image { return image.NewRGBA(image.Rect(0, 0, w, h)) }

func TestNewStateDefaults(t *testing.T) {
	st := NewState()
	if st.Page.Size != PageA4 || st.Page.Orientation != Portrait || st.Page.Layout != LayoutVertical {
		t.Fatalf("unexpected default page: %+v", st.Page)
	}
	if st.Page.DPI != 300 || st.Page.MarginMM != 10 || st.Page.SpacingMM != 10 {
		t.Fatalf("unexpected default numbers: %+v", st.Page)
	}
	if st.Slots[0].ID != SlotA || st.Slots[1].ID != SlotB {
		t.Fatalf("slot ids not bound: %+v", st.Slots)
	}
	if st.AnyOccupied() {
		t.Fatalf("fresh state must be empty")
	}
}

func TestSetImageResetsAdjustments(t *testing.T) {
	st := NewState().SetImage(SlotA, testImage(40, 20), "a.png")
	st = st.SetScale(SlotA, 3).SetRotation(SlotA, 45).SetOffset(SlotA, 10, -10).SetCrop(SlotA, CropRect{X: 1, Y: 1, Width: 5, Height: 5})

	st = st.SetImage(SlotA, testImage(100, 50), "b.png")
	sl := st.Slots[0]
	if sl.Scale != 1 || sl.RotationDeg != 0 || sl.OffsetXPct != 0 || sl.OffsetYPct != 0 || sl.Crop != nil {
		t.Fatalf("upload must reset adjustments: %+v", sl)
	}
	if sl.OriginalWidth != 100 || sl.OriginalHeight != 50 || sl.Name != "b.png" {
		t.Fatalf("unexpected cached dimensions: %+v", sl)
	}
}

func TestReducersDoNotMutateReceiver(t *testing.T) {
	base := NewState().SetImage(SlotB, testImage(10, 10), "x").SetCrop(SlotB, CropRect{X: 1, Y: 2, Width: 3, Height: 4})
	next := base.SetCrop(SlotB, CropRect{X: 9, Y: 9, Width: 1, Height: 1}).ZoomBy(SlotB, 0.5)
	if base.Slots[1].Crop.X != 1 || base.Slots[1].Scale != 1 {
		t.Fatalf("receiver mutated: %+v", base.Slots[1])
	}
	if next.Slots[1].Crop.X != 9 || next.Slots[1].Scale != 1.5 {
		t.Fatalf("reducer not applied: %+v", next.Slots[1])
	}
}

func TestRotateByWrapsAround(t *testing.T) {
	st := NewState()
	st = st.RotateBy(SlotA, -RotateStep)
	if got := st.Slots[0].RotationDeg; got != 270 {
		t.Fatalf("rotation = %v, want 270", got)
	}
	st = st.RotateBy(SlotA, RotateStep)
	if got := st.Slots[0].RotationDeg; got != 0 {
		t.Fatalf("rotation = %v, want 0", got)
	}
	if got := NormalizeDegrees(725); got != 5 {
		t.Fatalf("NormalizeDegrees(725) = %v", got)
	}
}

func TestZoomClamped(t *testing.T) {
	st := NewState().SetScale(SlotA, 0.15).ZoomBy(SlotA, -ZoomStep)
	if got := st.Slots[0].Scale; got != MinScale {
		t.Fatalf("scale = %v, want %v", got, MinScale)
	}
	st = st.SetScale(SlotA, 42)
	if got := st.Slots[0].Scale; got != MaxScale {
		t.Fatalf("scale = %v, want %v", got, MaxScale)
	}
}

func TestClearSlotAndReset(t *testing.T) {
	st := NewState().SetImage(SlotA, testImage(4, 4), "a").SetRotation(SlotA, 90)
	if !st.AnyOccupied() {
		t.Fatalf("expected occupied state")
	}
	if st.ResetAdjustments(SlotA).Slots[0].RotationDeg != 0 {
		t.Fatalf("reset adjustments failed")
	}
	cleared := st.ClearSlot(SlotA)
	if cleared.Slots[0].Occupied() || cleared.AnyOccupied() {
		t.Fatalf("slot still occupied after clear")
	}
	if cleared.Slots[0].ID != SlotA {
		t.Fatalf("slot id lost on clear")
	}
}

func TestUnknownSlotIsNoop(t *testing.T) {
	st := NewState()
	if got := st.SetScale(SlotID("img3"), 2); got != st {
		t.Fatalf("unknown slot must leave state unchanged")
	}
}

func TestCropRectClampAndWithin(t *testing.T) {
	c := CropRect{X: -10, Y: 5, Width: 50, Height: 200}
	if c.Within(100, 100) {
		t.Fatalf("crop outside bounds reported as within")
	}
	cl := c.Clamp(100, 100)
	if cl != (CropRect{X: 0, Y: 5, Width: 40, Height: 95}) {
		t.Fatalf("unexpected clamp: %+v", cl)
	}
	if !cl.Within(100, 100) {
		t.Fatalf("clamped crop must be within bounds")
	}
	if !(CropRect{X: 200, Y: 0, Width: 10, Height: 10}).Clamp(100, 100).Empty() {
		t.Fatalf("crop fully outside must clamp to empty")
	}
	if got := (CropRect{X: 1.5, Y: 2.2, Width: 3, Height: 3}).Bounds(); got != image.Rect(1, 2, 5, 6) {
		t.Fatalf("unexpected bounds: %v", got)
	}
}

func TestStateJSONOmitsPixels(t *testing.T) {
	st := NewState().SetImage(SlotA, testImage(8, 6), "a.png")
	b, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"originalWidth":8`) || strings.Contains(s, "Pix") {
		t.Fatalf("unexpected json: %s", s)
	}
}

func TestParseHelpers(t *testing.T) {
	if p, ok := ParsePageSize(" letter "); !ok || p != PageLetter {
		t.Fatalf("ParsePageSize failed: %v %v", p, ok)
	}
	if _, ok := ParsePageSize("A5"); ok {
		t.Fatalf("A5 must be rejected")
	}
	if l, ok := ParseLayout("Horizontal"); !ok || l != LayoutHorizontal {
		t.Fatalf("ParseLayout failed: %v %v", l, ok)
	}
}
