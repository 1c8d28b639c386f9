/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/jung-kurt/gofpdf"

	"imagefusion/internal/layout"
	"imagefusion/internal/version"
)

// PDFOptions controls the document wrapper around the page raster.
type PDFOptions struct {
	Title   string
	Quality float64 // JPEG quality of the embedded raster; 0 means PDFQuality
}

// WritePDF writes a single full-bleed page of page.WidthMM x page.HeightMM with img
// embedded once as JPEG covering the page.
func WritePDF(w io.Writer, img image.Image, page layout.Page, opt PDFOptions) error {
	if page.WidthMM <= 0 || page.HeightMM <= 0 {
		return fmt.Errorf("pdf page size %.1fx%.1f mm", page.WidthMM, page.HeightMM)
	}
	q := opt.Quality
	if q <= 0 {
		q = PDFQuality
	}
	var raster bytes.Buffer
	if err := EncodeJPEG(&raster, img, q); err != nil {
		return err
	}

	size := gofpdf.SizeType{Wd: page.WidthMM, Ht: page.HeightMM}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "mm",
		Size:           size,
		OrientationStr: "P",
	})
	title := opt.Title
	if title == "" {
		title = "Fused images"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("imagefusion "+version.String(), true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", size)

	imgOpts := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("page", imgOpts, &raster)
	pdf.ImageOptions("page", 0, 0, page.WidthMM, page.HeightMM, false, imgOpts, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
