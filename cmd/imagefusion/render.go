/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"imagefusion/internal/compositor"
	"imagefusion/internal/domain"
	"imagefusion/internal/export"
	"imagefusion/internal/layout"
	"imagefusion/internal/session"
	"imagefusion/internal/telemetry"
)

type slotFlags struct {
	path    string
	rotate  float64
	scale   float64
	offsetX float64
	offsetY float64
	crop    string
}

type renderOptions struct {
	slots     [2]slotFlags
	page      string
	landscape bool
	layout    string
	width     float64
	height    float64
	margin    float64
	spacing   float64
	dpi       int
	formats   []string
	out       string
	preset    string
	quality   float64
	guides    bool
}

func newRenderCmd(a *app) *cobra.Command {
	var o renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compose the page headlessly and export it",
		Example: `  imagefusion render --img1 left.jpg --img2 right.png --format pdf,jpg --out ./out
  imagefusion render --img1 a.jpg --img2 b.jpg --layout horizontal --landscape --rotate2 90 --crop1 0,0,800,600
  imagefusion render --img1 a.jpg --preset print`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, a.cfg.PageConfig(), a, o)
		},
	}
	f := cmd.Flags()
	for i := range o.slots {
		n := strconv.Itoa(i + 1)
		s := &o.slots[i]
		f.StringVar(&s.path, "img"+n, "", "image file for slot "+n)
		f.Float64Var(&s.rotate, "rotate"+n, 0, "rotation in degrees for slot "+n)
		f.Float64Var(&s.scale, "scale"+n, 1, "user scale for slot "+n+" (0.1..10)")
		f.Float64Var(&s.offsetX, "offset"+n+"x", 0, "horizontal offset in percent of the slot width")
		f.Float64Var(&s.offsetY, "offset"+n+"y", 0, "vertical offset in percent of the slot height")
		f.StringVar(&s.crop, "crop"+n, "", "crop rectangle x,y,w,h in source pixels")
	}
	f.StringVar(&o.page, "page", "", "page size: A4, LETTER or CUSTOM")
	f.BoolVar(&o.landscape, "landscape", false, "landscape orientation")
	f.StringVar(&o.layout, "layout", "", "slot layout: vertical or horizontal")
	f.Float64Var(&o.width, "width", 0, "custom page width in mm")
	f.Float64Var(&o.height, "height", 0, "custom page height in mm")
	f.Float64Var(&o.margin, "margin", 0, "page margin in mm")
	f.Float64Var(&o.spacing, "spacing", 0, "spacing between slots in mm")
	f.IntVar(&o.dpi, "dpi", 0, "output resolution")
	f.StringSliceVar(&o.formats, "format", nil, "output formats: jpg, pdf, png, zip")
	f.StringVar(&o.out, "out", "", "output directory")
	f.StringVar(&o.preset, "preset", "", "export preset: web or print")
	f.Float64Var(&o.quality, "quality", 0, "JPEG quality 0..1")
	f.BoolVar(&o.guides, "guides", false, "also write a preview PNG with slot guides")
	return cmd
}

// pageFromFlags applies explicitly set flags on top of the configured page.
func pageFromFlags(cmd *cobra.Command, p domain.PageConfig, o renderOptions) (domain.PageConfig, error) {
	f := cmd.Flags()
	if f.Changed("page") {
		s, ok := domain.ParsePageSize(o.page)
		if !ok {
			return p, fmt.Errorf("unknown page size %q", o.page)
		}
		p.Size = s
	}
	if f.Changed("landscape") {
		p.Orientation = domain.Portrait
		if o.landscape {
			p.Orientation = domain.Landscape
		}
	}
	if f.Changed("layout") {
		l, ok := domain.ParseLayout(o.layout)
		if !ok {
			return p, fmt.Errorf("unknown layout %q", o.layout)
		}
		p.Layout = l
	}
	if f.Changed("width") {
		p.CustomWidthMM = o.width
	}
	if f.Changed("height") {
		p.CustomHeightMM = o.height
	}
	if f.Changed("margin") {
		p.MarginMM = o.margin
	}
	if f.Changed("spacing") {
		p.SpacingMM = o.spacing
	}
	if f.Changed("dpi") {
		if o.dpi <= 0 {
			return p, fmt.Errorf("dpi must be positive, got %d", o.dpi)
		}
		p.DPI = o.dpi
	}
	if _, err := layout.ComputeSlots(p); err != nil {
		return p, fmt.Errorf("page layout: %w", err)
	}
	return p, nil
}

// parseCrop reads "x,y,w,h".
func parseCrop(s string) (domain.CropRect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.CropRect{}, fmt.Errorf("crop %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.CropRect{}, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = f
	}
	c := domain.CropRect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if c.Empty() {
		return c, fmt.Errorf("crop %q: width and height must be positive", s)
	}
	return c, nil
}

func runRender(cmd *cobra.Command, base domain.PageConfig, a *app, o renderOptions) error {
	ctx := cmd.Context()
	page, err := pageFromFlags(cmd, base, o)
	if err != nil {
		return err
	}
	sess := session.New(ctx, session.Options{Page: page, Telemetry: telemetry.Default()})
	defer sess.Close()

	ids := [2]domain.SlotID{domain.SlotA, domain.SlotB}
	for i, s := range o.slots {
		if s.path == "" {
			continue
		}
		id := ids[i]
		if err := <-sess.Upload(ctx, id, s.path); err != nil {
			return fmt.Errorf("slot %d: %w", i+1, err)
		}
		sess.SetRotation(id, s.rotate)
		sess.SetScale(id, s.scale)
		sess.Apply("", func(st domain.State) domain.State { return st.SetOffset(id, s.offsetX, s.offsetY) })
		if s.crop != "" {
			c, err := parseCrop(s.crop)
			if err != nil {
				return err
			}
			sl, _ := sess.State().Slot(id)
			if !c.Within(float64(sl.OriginalWidth), float64(sl.OriginalHeight)) {
				return fmt.Errorf("crop %q lies outside %dx%d image", s.crop, sl.OriginalWidth, sl.OriginalHeight)
			}
			sess.Apply("", func(st domain.State) domain.State { return st.SetCrop(id, c) })
		}
	}
	if !sess.CanExport() {
		return export.ErrEmptyExport
	}

	req, err := buildRequest(cmd, a, o, page.DPI)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return err
	}
	res, err := sess.Export(ctx, req)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, p := range res.Paths() {
		_, _ = fmt.Fprintln(w, p)
	}
	if o.guides {
		p, err := writePreview(sess.State(), req.OutDir, res.BaseName)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, p)
	}
	return nil
}

func buildRequest(cmd *cobra.Command, a *app, o renderOptions, pageDPI int) (export.Request, error) {
	f := cmd.Flags()
	out := a.cfg.Export.OutDir
	if f.Changed("out") {
		out = o.out
	}
	quality := a.cfg.Export.JPEGQuality
	if f.Changed("quality") {
		quality = o.quality
	}
	formats := a.cfg.Export.Formats
	if f.Changed("format") {
		formats = o.formats
	}
	preset := a.cfg.Export.Preset
	if f.Changed("preset") {
		preset = o.preset
	}
	if preset != "" {
		p, err := export.ParsePreset(preset)
		if err != nil {
			return export.Request{}, err
		}
		opt := export.BatchOptions{Preset: p, Quality: quality, OutDir: out}
		if f.Changed("format") {
			opt.Formats = o.formats
		}
		if f.Changed("dpi") {
			opt.DPIOverride = o.dpi
		}
		return export.PresetRequest(opt, pageDPI)
	}
	fs, err := export.ParseFormats(formats)
	if err != nil {
		return export.Request{}, err
	}
	if out == "" {
		out = "."
	}
	return export.Request{Formats: fs, OutDir: out, Quality: quality, Title: "Image Fusion"}, nil
}

func writePreview(st domain.State, dir, base string) (string, error) {
	img, err := compositor.RenderPreview(st, nil)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := export.EncodePNG(&buf, img); err != nil {
		return "", err
	}
	path := filepath.Join(dir, base+"-preview.png")
	return path, os.WriteFile(path, buf.Bytes(), 0o644)
}
