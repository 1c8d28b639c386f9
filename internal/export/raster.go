/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
)

// Quality factors in [0,1] used for the two JPEG outputs.
const (
	FileQuality = 0.92
	PDFQuality  = 0.95
)

// JPEGQuality maps a [0,1] quality factor to the encoder's 1..100 scale.
// Values outside the range are clamped; 0 selects FileQuality.
func JPEGQuality(q float64) int {
	if q <= 0 {
		q = FileQuality
	}
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// EncodeJPEG writes img as baseline JPEG.
func EncodeJPEG(w io.Writer, img image.Image, quality float64) error {
	bw := bufio.NewWriter(w)
	if err := jpeg.Encode(bw, img, &jpeg.Options{Quality: JPEGQuality(quality)}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return bw.Flush()
}

// EncodePNG writes img as PNG using best-speed compression, page rasters are large.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	bw := bufio.NewWriter(w)
	if err := enc.Encode(bw, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return bw.Flush()
}
