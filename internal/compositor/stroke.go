/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compositor

import (
	"image"
	"image/color"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"imagefusion/internal/geom"
)

// strokeRect outlines r on img. A nil dash pattern draws a solid line.
func strokeRect(img *image.RGBA, r geom.Rect, width float64, c color.Color, dashes []float64) {
	if width <= 0 || r.W <= 0 || r.H <= 0 {
		return
	}
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	d := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)
	d.SetStroke(fixed.Int26_6(width*64), 0, rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter, dashes, 0)
	d.SetColor(c)

	pts := r.Corners()
	d.Start(rasterx.ToFixedP(pts[0].X, pts[0].Y))
	for _, p := range pts[1:] {
		d.Line(rasterx.ToFixedP(p.X, p.Y))
	}
	d.Stop(true)
	d.Draw()
	d.Clear()
}
