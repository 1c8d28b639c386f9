/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"time"

	"imagefusion/internal/domain"
	"imagefusion/internal/layout"
	"imagefusion/internal/version"
)

// Bundle entry names.
const (
	BundlePageName   = "page.jpg"
	BundleLayoutName = "layout.json"
)

// BundleManifest is stored as layout.json next to the page raster. It holds everything
// needed to reproduce the composition except the source pixels.
type BundleManifest struct {
	Generator string         `json:"generator"`
	Created   time.Time      `json:"created"`
	Page      layout.Page    `json:"page"`
	State     domain.State   `json:"state"`
	Sources   []BundleSource `json:"sources"`
}

// BundleSource names the file that filled a slot.
type BundleSource struct {
	Slot domain.SlotID `json:"slot"`
	Name string        `json:"name"`
}

// WriteBundle writes a zip archive with the rendered page as JPEG and a layout manifest.
func WriteBundle(w io.Writer, img image.Image, st domain.State, quality float64, now time.Time) error {
	zw := zip.NewWriter(w)

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img, quality); err != nil {
		return err
	}
	if err := addZipFile(zw, BundlePageName, buf.Bytes()); err != nil {
		return fmt.Errorf("zip add page: %w", err)
	}

	man := BundleManifest{
		Generator: "imagefusion " + version.String(),
		Created:   now.UTC(),
		Page:      layout.ComputePage(st.Page),
		State:     st,
	}
	for _, sl := range st.Slots {
		if sl.Occupied() {
			man.Sources = append(man.Sources, BundleSource{Slot: sl.ID, Name: sl.Name})
		}
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := addZipFile(zw, BundleLayoutName, append(data, '\n')); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
