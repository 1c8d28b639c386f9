/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestBatchExport_WebPreset(t *testing.T) {
	root := t.TempDir()
	res, err := BatchExport(context.Background(), testExporter(), sampleState(), BatchOptions{Preset: PresetWeb, OutDir: root})
	if err != nil {
		t.Fatalf("batch export web: %v", err)
	}
	p := filepath.Join(root, "web", res.BaseName+".jpg")
	st, err := os.Stat(p)
	if err != nil {
		t.Fatalf("missing %s: %v", p, err)
	}
	if st.Size() <= 0 {
		t.Fatalf("empty file: %s", p)
	}
}

func TestBatchExport_PrintPreset(t *testing.T) {
	root := t.TempDir()
	req, err := PresetRequest(BatchOptions{Preset: PresetPrint, OutDir: root}, 150)
	if err != nil {
		t.Fatalf("PresetRequest: %v", err)
	}
	if req.DPI != PrintMinDPI || len(req.Formats) != 2 || req.Formats[0] != FormatPDF {
		t.Fatalf("print request = %+v", req)
	}
	req, _ = PresetRequest(BatchOptions{Preset: PresetPrint, DPIOverride: 72}, 600)
	if req.DPI != 72 {
		t.Fatalf("override ignored: %d", req.DPI)
	}

	res, err := BatchExport(context.Background(), testExporter(), sampleState(), BatchOptions{Preset: PresetPrint, OutDir: root, DPIOverride: 72})
	if err != nil {
		t.Fatalf("batch export print: %v", err)
	}
	for _, ext := range []string{"pdf", "jpg"} {
		p := filepath.Join(root, "print", res.BaseName+"."+ext)
		if st, err := os.Stat(p); err != nil || st.Size() <= 0 {
			t.Fatalf("missing or empty %s: %v", p, err)
		}
	}
}

func TestBatchExport_UnknownPreset(t *testing.T) {
	if _, err := BatchExport(context.Background(), testExporter(), sampleState(), BatchOptions{Preset: "poster"}); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}
