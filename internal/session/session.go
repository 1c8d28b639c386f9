/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session is the single-owner editor facade used by the UI and the CLI.
// It holds the editing state, the pointer interaction and the undo history, and
// forwards every change to the repaint loop.
package session

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"imagefusion/internal/domain"
	"imagefusion/internal/export"
	"imagefusion/internal/geom"
	"imagefusion/internal/imageio"
	"imagefusion/internal/interact"
	applog "imagefusion/internal/log"
	"imagefusion/internal/repaint"
	"imagefusion/internal/telemetry"
	"imagefusion/internal/undo"
)

// Options configures a Session. All fields are optional.
type Options struct {
	Page      domain.PageConfig
	UndoDepth int
	// Present receives preview buffers from the repaint loop. No loop runs when nil.
	Present repaint.PresentFunc
	// Render overrides the preview renderer (tests).
	Render      repaint.RenderFunc
	Exporter    *export.Exporter
	Telemetry   *telemetry.Client
	Sharer      export.Sharer
	DownloadDir string
	// OnChange is called after every state or interaction change, outside the lock.
	OnChange func(domain.State, interact.Interaction)
}

// Session serializes all edits. Methods are safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	st      domain.State
	in      interact.Interaction
	gesture *domain.State

	hist     *undo.History
	loop     *repaint.Loop
	exp      *export.Exporter
	tel      *telemetry.Client
	sharer   export.Sharer
	dlDir    string
	onChange func(domain.State, interact.Interaction)
	log      *slog.Logger
}

// New creates a session. The repaint loop stops when ctx is done or Close is called.
func New(ctx context.Context, opt Options) *Session {
	st := domain.NewState()
	if opt.Page != (domain.PageConfig{}) {
		st = st.WithPage(opt.Page)
	}
	s := &Session{
		st:       st,
		hist:     undo.New(undo.Config{MaxDepth: opt.UndoDepth}),
		exp:      opt.Exporter,
		tel:      opt.Telemetry,
		sharer:   opt.Sharer,
		dlDir:    opt.DownloadDir,
		onChange: opt.OnChange,
		log:      applog.WithComponent("session"),
	}
	if s.exp == nil {
		s.exp = export.NewExporter()
	}
	if s.dlDir == "" {
		s.dlDir = "."
	}
	if opt.Present != nil {
		s.loop = repaint.New(ctx, opt.Render, opt.Present)
		s.loop.Request(repaint.Frame{State: st})
	}
	return s
}

// Close stops the repaint loop.
func (s *Session) Close() {
	if s.loop != nil {
		s.loop.Close()
	}
}

// State returns a snapshot of the editing state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Interaction returns a snapshot of the pointer state.
func (s *Session) Interaction() interact.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in
}

// Apply runs a reducer and records the previous state for undo. Changes sharing
// a non-empty key within a short interval collapse into one undo step.
func (s *Session) Apply(key string, fn func(domain.State) domain.State) {
	s.mu.Lock()
	before := s.st
	after := fn(before)
	if !sameSettings(before, after) || !sameImages(before, after) {
		s.hist.Record(before, key, time.Now())
	}
	s.st = after
	s.mu.Unlock()
	s.changed()
}

// changed schedules a repaint and notifies the listener.
func (s *Session) changed() {
	s.mu.Lock()
	st, in := s.st, s.in
	s.mu.Unlock()
	if s.loop != nil {
		s.loop.Request(repaint.Frame{State: st, Selection: in.SelectionRect()})
	}
	if s.onChange != nil {
		s.onChange(st, in)
	}
}

func (s *Session) SetPage(p domain.PageConfig) {
	s.Apply("page", func(st domain.State) domain.State { return st.WithPage(p) })
}

func (s *Session) SetRotation(id domain.SlotID, deg float64) {
	s.Apply("rotate:"+string(id), func(st domain.State) domain.State { return st.SetRotation(id, deg) })
}

func (s *Session) RotateBy(id domain.SlotID, delta float64) {
	s.Apply("", func(st domain.State) domain.State { return st.RotateBy(id, delta) })
}

func (s *Session) SetScale(id domain.SlotID, scale float64) {
	s.Apply("scale:"+string(id), func(st domain.State) domain.State { return st.SetScale(id, scale) })
}

func (s *Session) ZoomBy(id domain.SlotID, delta float64) {
	s.Apply("", func(st domain.State) domain.State { return st.ZoomBy(id, delta) })
}

func (s *Session) ResetAdjustments(id domain.SlotID) {
	s.Apply("", func(st domain.State) domain.State { return st.ResetAdjustments(id) })
}

func (s *Session) ResetCrop(id domain.SlotID) {
	s.Apply("", func(st domain.State) domain.State { return st.ResetCrop(id) })
}

// ClearSlot empties a slot and leaves crop mode if it targeted that slot.
func (s *Session) ClearSlot(id domain.SlotID) {
	s.mu.Lock()
	if cur, ok := s.in.Cropping(); ok && cur == id {
		s.in = s.in.CancelCrop()
	}
	s.mu.Unlock()
	s.Apply("", func(st domain.State) domain.State { return st.ClearSlot(id) })
}

// SetImage installs a decoded image, resetting the slot's adjustments.
func (s *Session) SetImage(id domain.SlotID, img image.Image, name string) {
	s.Apply("", func(st domain.State) domain.State { return st.SetImage(id, img, name) })
}

// Undo restores the previous state. Any gesture in progress is dropped.
func (s *Session) Undo() bool {
	s.mu.Lock()
	st, ok := s.hist.Undo(s.st)
	if ok {
		s.st = st
		s.in = interact.Interaction{}
		s.gesture = nil
	}
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

// Redo re-applies an undone state.
func (s *Session) Redo() bool {
	s.mu.Lock()
	st, ok := s.hist.Redo(s.st)
	if ok {
		s.st = st
		s.in = interact.Interaction{}
		s.gesture = nil
	}
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

func (s *Session) CanUndo() bool { return s.hist.CanUndo() }
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// StartCrop enters crop mode for an occupied slot.
func (s *Session) StartCrop(id domain.SlotID) bool {
	s.mu.Lock()
	sl, ok := s.st.Slot(id)
	if !ok || !sl.Occupied() {
		s.mu.Unlock()
		return false
	}
	s.in = s.in.StartCrop(id)
	s.gesture = nil
	s.mu.Unlock()
	s.changed()
	return true
}

// CancelCrop leaves crop mode; the slot keeps its previous crop.
func (s *Session) CancelCrop() {
	s.mu.Lock()
	s.in = s.in.CancelCrop()
	s.gesture = nil
	s.mu.Unlock()
	s.changed()
}

// PointerDown starts a drag or a crop selection at page-pixel p.
func (s *Session) PointerDown(p geom.Pt) {
	s.mu.Lock()
	before := s.st
	s.st, s.in = interact.PointerDown(s.st, s.in, p)
	if s.in.Drag != nil || s.in.Selection != nil {
		s.gesture = &before
	}
	s.mu.Unlock()
	s.changed()
}

// PointerMove updates the active gesture.
func (s *Session) PointerMove(p geom.Pt) {
	s.mu.Lock()
	if s.in.Drag == nil && s.in.Selection == nil {
		s.mu.Unlock()
		return
	}
	s.st, s.in = interact.PointerMove(s.st, s.in, p)
	s.mu.Unlock()
	s.changed()
}

// PointerUp completes the gesture as one undo step.
func (s *Session) PointerUp(p geom.Pt) { s.finish(p, interact.PointerUp) }

// PointerLeave ends the gesture at p, like PointerUp.
func (s *Session) PointerLeave(p geom.Pt) { s.finish(p, interact.PointerLeave) }

func (s *Session) finish(p geom.Pt, fn func(domain.State, interact.Interaction, geom.Pt) (domain.State, interact.Interaction)) {
	s.mu.Lock()
	s.st, s.in = fn(s.st, s.in, p)
	if s.gesture != nil && !sameSettings(*s.gesture, s.st) {
		s.hist.Record(*s.gesture, "", time.Now())
	}
	s.gesture = nil
	s.mu.Unlock()
	s.changed()
}

// Upload decodes path off the caller's goroutine and installs it in slot id.
// The returned channel yields the outcome once. On failure the slot is unchanged.
func (s *Session) Upload(ctx context.Context, id domain.SlotID, path string) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		res := <-imageio.LoadAsync(ctx, path)
		if res.Err != nil {
			s.log.Warn("image load failed", slog.String("slot", string(id)), slog.String("file", filepath.Base(path)), slog.Any("err", res.Err))
			out <- res.Err
			return
		}
		s.installImage(id, res.Image)
		out <- nil
	}()
	return out
}

// UploadReader decodes r synchronously and installs it in slot id.
func (s *Session) UploadReader(id domain.SlotID, r io.Reader, name string) error {
	img, err := imageio.Decode(r, name)
	if err != nil {
		s.log.Warn("image decode failed", slog.String("slot", string(id)), slog.String("file", name), slog.Any("err", err))
		return err
	}
	s.installImage(id, img)
	return nil
}

func (s *Session) installImage(id domain.SlotID, img imageio.Image) {
	s.SetImage(id, img.Bitmap, img.Name)
	s.log.Info("image loaded", slog.String("slot", string(id)), slog.String("format", img.Format),
		slog.Int("w", img.Width()), slog.Int("h", img.Height()))
	s.tel.Event(telemetry.EventImageLoaded, map[string]any{"format": img.Format})
}

// CanExport reports whether an export would be accepted right now.
func (s *Session) CanExport() bool {
	return s.State().AnyOccupied() && !s.exp.Busy()
}

// Exporting reports whether an export is in flight.
func (s *Session) Exporting() bool { return s.exp.Busy() }

// Export renders the current state and writes the requested artifacts.
// Failures are logged and reported; the session stays usable.
func (s *Session) Export(ctx context.Context, req export.Request) (export.Result, error) {
	st := s.State()
	start := time.Now()
	res, err := s.exp.Export(ctx, st, req)
	formats := formatNames(req.Formats)
	if err != nil {
		s.log.Error("export failed", slog.Any("formats", formats), slog.Any("err", err))
		s.tel.ExportFailed(formats, errorClass(err))
		return res, err
	}
	dpi := req.DPI
	if dpi <= 0 {
		dpi = st.Page.DPI
	}
	s.tel.ExportCompleted(formats, dpi, time.Since(start))
	return res, nil
}

// Share exports a JPEG in memory and hands it to the sharer, falling back to
// a download into the session's download directory.
func (s *Session) Share(ctx context.Context) (shared bool, path string, err error) {
	res, err := s.Export(ctx, export.Request{Formats: []export.Format{export.FormatJPEG}})
	if err != nil {
		return false, "", err
	}
	art, ok := res.Artifact(export.FormatJPEG)
	if !ok {
		return false, "", errors.New("share: no jpeg produced")
	}
	return export.ShareOrDownload(ctx, s.sharer, art, s.dlDir)
}

func formatNames(fs []export.Format) []string {
	if len(fs) == 0 {
		return []string{string(export.FormatJPEG)}
	}
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, string(f))
	}
	return out
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, export.ErrBusy):
		return "busy"
	case errors.Is(err, export.ErrEmptyExport):
		return "empty"
	case errors.Is(err, export.ErrExportPanic):
		return "panic"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// sameSettings compares everything except the bitmaps.
func sameSettings(a, b domain.State) bool {
	if a.Page != b.Page {
		return false
	}
	for i := range a.Slots {
		x, y := a.Slots[i], b.Slots[i]
		if x.RotationDeg != y.RotationDeg || x.Scale != y.Scale ||
			x.OffsetXPct != y.OffsetXPct || x.OffsetYPct != y.OffsetYPct ||
			x.Name != y.Name || x.OriginalWidth != y.OriginalWidth || x.OriginalHeight != y.OriginalHeight {
			return false
		}
		if (x.Crop == nil) != (y.Crop == nil) || (x.Crop != nil && *x.Crop != *y.Crop) {
			return false
		}
	}
	return true
}

// sameImages reports whether both states reference the same bitmaps. Decoded
// images are pointer types, so identity is an interface comparison; a value
// type that cannot be compared counts as changed.
func sameImages(a, b domain.State) bool {
	for i := range a.Slots {
		x, y := a.Slots[i].Image, b.Slots[i].Image
		if x == nil || y == nil {
			if x != y {
				return false
			}
			continue
		}
		if t := reflect.TypeOf(x); t != reflect.TypeOf(y) || !t.Comparable() || x != y {
			return false
		}
	}
	return true
}
