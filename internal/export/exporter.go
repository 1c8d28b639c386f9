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
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagefusion/internal/compositor"
	"imagefusion/internal/domain"
	"imagefusion/internal/layout"
	applog "imagefusion/internal/log"
)

// Format is an output file kind; the value doubles as the file extension.
type Format string

const (
	FormatJPEG   Format = "jpg"
	FormatPDF    Format = "pdf"
	FormatPNG    Format = "png"
	FormatBundle Format = "zip"
)

// ErrEmptyExport is returned when both slots are empty.
var ErrEmptyExport = errors.New("nothing to export: both slots are empty")

// ErrExportPanic wraps a panic raised while rendering or encoding a page.
var ErrExportPanic = errors.New("export aborted by panic")

// ParseFormats normalizes a list like "pdf, JPEG" and drops duplicates.
func ParseFormats(list []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, raw := range list {
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			var f Format
			switch s {
			case "jpg", "jpeg":
				f = FormatJPEG
			case "pdf":
				f = FormatPDF
			case "png":
				f = FormatPNG
			case "zip", "bundle":
				f = FormatBundle
			default:
				return nil, fmt.Errorf("unknown format: %s", s)
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// MIME returns the media type of f.
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	case FormatBundle:
		return "application/zip"
	}
	return "application/octet-stream"
}

// Request describes one export.
type Request struct {
	Formats []Format // empty means JPEG only
	OutDir  string   // empty keeps artifacts in memory only
	Quality float64  // file JPEG quality in [0,1]; 0 means FileQuality
	DPI     int      // overrides the page DPI when > 0
	Title   string
}

// Artifact is one encoded output.
type Artifact struct {
	Format Format
	Name   string
	Path   string
	Data   []byte
}

// Result lists what an export produced.
type Result struct {
	BaseName  string
	Artifacts []Artifact
}

// Paths returns the written file paths in request order.
func (r Result) Paths() []string {
	out := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out = append(out, a.Path)
	}
	return out
}

// Artifact returns the output of the given format, if produced.
func (r Result) Artifact(f Format) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Format == f {
			return a, true
		}
	}
	return Artifact{}, false
}

// Exporter renders a state and writes the requested files. Only one export runs at a time.
type Exporter struct {
	Now    func() time.Time
	Render func(domain.State) (*image.RGBA, error)

	gate Gate
}

// NewExporter returns an exporter using the wall clock and the print renderer.
func NewExporter() *Exporter {
	return &Exporter{Now: time.Now, Render: compositor.RenderExport}
}

// Busy reports whether an export is running.
func (e *Exporter) Busy() bool { return e.gate.Busy() }

// Export renders st without guides and writes fused-images-<ms>.<ext> for every requested
// format. Either all files are written or none are left behind.
func (e *Exporter) Export(ctx context.Context, st domain.State, req Request) (Result, error) {
	if !st.AnyOccupied() {
		return Result{}, ErrEmptyExport
	}
	if !e.gate.TryBegin() {
		return Result{}, ErrBusy
	}
	defer e.gate.End()

	l := applog.WithOperation(applog.WithComponent("export"), "export")
	start := time.Now()

	if req.DPI > 0 {
		st.Page.DPI = req.DPI
	}
	formats := req.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJPEG}
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	render := compositor.RenderExport
	if e.Render != nil {
		render = e.Render
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	img, err := guard(func() (*image.RGBA, error) { return render(st) })
	if errors.Is(err, ErrExportPanic) {
		l.Error("render panicked", slog.Any("err", err))
		return Result{}, err
	}
	if err != nil {
		l.Error("render failed", slog.Any("err", err))
		return Result{}, fmt.Errorf("render page: %w", err)
	}

	res := Result{BaseName: BaseName(now())}
	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		stamp := now()
		data, err := guard(func() ([]byte, error) { return encode(f, img, st, req, stamp) })
		if err != nil {
			l.Error("encode failed", slog.String("format", string(f)), slog.Any("err", err))
			return Result{}, err
		}
		name := res.BaseName + "." + string(f)
		res.Artifacts = append(res.Artifacts, Artifact{Format: f, Name: name, Data: data})
	}

	if req.OutDir != "" {
		for i := range res.Artifacts {
			a := &res.Artifacts[i]
			path := filepath.Join(req.OutDir, a.Name)
			if err := writeFileAtomic(path, a.Data); err != nil {
				removeWritten(res.Artifacts[:i])
				l.Error("write failed", slog.String("path", path), slog.Any("err", err))
				return Result{}, err
			}
			a.Path = path
		}
	}
	l.Info("export completed",
		slog.String("name", res.BaseName),
		slog.Int("files", len(res.Artifacts)),
		slog.Int("dpi", st.Page.DPI),
		slog.Duration("took", time.Since(start)))
	return res, nil
}

// guard runs fn and turns a panic into an error wrapping ErrExportPanic.
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrExportPanic, r)
		}
	}()
	return fn()
}

func encode(f Format, img image.Image, st domain.State, req Request, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatJPEG:
		err = EncodeJPEG(&buf, img, req.Quality)
	case FormatPNG:
		err = EncodePNG(&buf, img)
	case FormatPDF:
		err = WritePDF(&buf, img, layout.ComputePage(st.Page), PDFOptions{Title: req.Title})
	case FormatBundle:
		err = WriteBundle(&buf, img, st, req.Quality, now)
	default:
		err = fmt.Errorf("unknown format: %s", f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func removeWritten(arts []Artifact) {
	for _, a := range arts {
		if a.Path != "" {
			_ = os.Remove(a.Path)
		}
	}
}
