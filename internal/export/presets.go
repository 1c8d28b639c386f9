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
	"fmt"
	"path/filepath"

	"imagefusion/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Preset DPI values.
const (
	WebDPI      = 150
	PrintMinDPI = 300
)

// BatchOptions controls a preset export.
//
// Path semantics: outputs land in <OutDir>/<preset>/; an empty OutDir means the
// working directory.
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // empty means preset defaults
	DPIOverride int      // when > 0 replaces the preset DPI
	Quality     float64
	OutDir      string
}

// ParsePreset accepts "web" or "print".
func ParsePreset(s string) (PresetName, error) {
	switch PresetName(s) {
	case PresetWeb, PresetPrint:
		return PresetName(s), nil
	}
	return "", fmt.Errorf("unknown preset: %s", s)
}

// PresetRequest resolves opt into a concrete Request for a page at the given DPI.
func PresetRequest(opt BatchOptions, pageDPI int) (Request, error) {
	if _, err := ParsePreset(string(opt.Preset)); err != nil {
		return Request{}, err
	}
	raw := opt.Formats
	if len(raw) == 0 {
		raw = presetDefaultFormats(opt.Preset)
	}
	formats, err := ParseFormats(raw)
	if err != nil {
		return Request{}, err
	}
	base := opt.OutDir
	if base == "" {
		base = "."
	}
	req := Request{
		Formats: formats,
		OutDir:  filepath.Join(base, string(opt.Preset)),
		Quality: opt.Quality,
		DPI:     presetDPI(opt.Preset, pageDPI),
	}
	if opt.DPIOverride > 0 {
		req.DPI = opt.DPIOverride
	}
	return req, nil
}

// BatchExport runs one export according to the given preset.
func BatchExport(ctx context.Context, e *Exporter, st domain.State, opt BatchOptions) (Result, error) {
	req, err := PresetRequest(opt, st.Page.DPI)
	if err != nil {
		return Result{}, err
	}
	res, err := e.Export(ctx, st, req)
	if err != nil {
		return Result{}, fmt.Errorf("%s preset: %w", opt.Preset, err)
	}
	return res, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"jpg"}
	case PresetPrint:
		return []string{"pdf", "jpg"}
	default:
		return []string{"jpg"}
	}
}

func presetDPI(p PresetName, pageDPI int) int {
	switch p {
	case PresetWeb:
		return WebDPI
	case PresetPrint:
		return max(pageDPI, PrintMinDPI)
	default:
		return pageDPI
	}
}
