//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"imagefusion/internal/crash"
	"imagefusion/internal/domain"
	"imagefusion/internal/export"
	"imagefusion/internal/geom"
	"imagefusion/internal/interact"
	applog "imagefusion/internal/log"
	"imagefusion/internal/session"
	"imagefusion/internal/telemetry"
	"imagefusion/internal/version"
)

var dpiPresets = []string{"72", "150", "300", "600"}

// Run starts the Fyne desktop editor.
func Run(opt Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	var sess *session.Session
	snapshot := func() domain.State {
		if sess == nil {
			return domain.NewState()
		}
		return sess.State()
	}
	defer crash.Recover(crash.Options{Snapshot: snapshot})

	fyneApp := app.NewWithID("imagefusion")
	w := fyneApp.NewWindow("Image Fusion")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 860)
	if winW < 900 {
		winW = 900
	}
	if winH < 640 {
		winH = 640
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	pc := NewPageCanvas()
	var controls *editorControls

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outDir := opt.Config.Export.OutDir
	if outDir == "" {
		outDir = "."
	}
	sess = session.New(ctx, session.Options{
		Page:        opt.Config.PageConfig(),
		UndoDepth:   opt.Config.General.UndoDepth,
		Telemetry:   telemetry.Default(),
		DownloadDir: outDir,
		Present: func(img *image.RGBA) {
			fyne.Do(func() { pc.SetFrame(img) })
		},
		OnChange: func(st domain.State, in interact.Interaction) {
			fyne.Do(func() {
				if controls != nil {
					controls.sync(st, in)
				}
			})
		},
	})
	defer sess.Close()
	pc.sess = sess

	setStatus := func(msg string) {
		fyne.Do(func() { status.SetText(msg) })
	}

	upload := func(id domain.SlotID) {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			go func() {
				defer func() { _ = rc.Close() }()
				if err := sess.UploadReader(id, rc, rc.URI().Name()); err != nil {
					fyne.Do(func() { dialog.ShowError(fmt.Errorf("could not load %s: %w", rc.URI().Name(), err), w) })
					return
				}
				setStatus("Loaded " + rc.URI().Name())
			}()
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}))
		fd.Show()
	}

	runExport := func(formats ...export.Format) {
		if !sess.CanExport() {
			return
		}
		setStatus("Exporting...")
		go func() {
			res, err := sess.Export(ctx, export.Request{
				Formats: formats,
				OutDir:  outDir,
				Quality: opt.Config.Export.JPEGQuality,
				Title:   "Image Fusion",
			})
			if err != nil {
				setStatus("Export failed")
				fyne.Do(func() { dialog.ShowError(err, w) })
				return
			}
			setStatus("Saved " + strings.Join(res.Paths(), ", "))
		}()
	}

	share := func() {
		if !sess.CanExport() {
			return
		}
		go func() {
			shared, path, err := sess.Share(ctx)
			switch {
			case err != nil:
				setStatus("Share failed")
				fyne.Do(func() { dialog.ShowError(err, w) })
			case shared:
				setStatus("Shared")
			default:
				setStatus("Sharing unavailable, saved " + path)
			}
		}()
	}

	controls = newEditorControls(sess, upload)
	pageBox := controls.pageForm()
	slotBoxes := container.NewVBox(controls.slotPanel(domain.SlotA), widget.NewSeparator(), controls.slotPanel(domain.SlotB))

	undoBtn := widget.NewButton("Undo", func() { sess.Undo() })
	redoBtn := widget.NewButton("Redo", func() { sess.Redo() })
	jpgBtn := widget.NewButton("Download JPG", func() { runExport(export.FormatJPEG) })
	pdfBtn := widget.NewButton("Download PDF", func() { runExport(export.FormatPDF) })
	shareBtn := widget.NewButton("Share", share)
	controls.exportButtons = []*widget.Button{jpgBtn, pdfBtn, shareBtn}
	controls.undoBtn, controls.redoBtn = undoBtn, redoBtn

	toolbar := container.NewHBox(undoBtn, redoBtn, widget.NewSeparator(), jpgBtn, pdfBtn, shareBtn)
	left := container.NewVScroll(container.NewVBox(widget.NewLabelWithStyle("Page", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), pageBox))
	right := container.NewVScroll(slotBoxes)
	left.SetMinSize(fyne.NewSize(260, 0))
	right.SetMinSize(fyne.NewSize(280, 0))
	w.SetContent(container.NewBorder(toolbar, status, left, right, pc))

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			sess.CancelCrop()
		}
	})

	for i, path := range opt.Images {
		if path == "" {
			continue
		}
		id := domain.SlotA
		if i == 1 {
			id = domain.SlotB
		}
		ch := sess.Upload(ctx, id, path)
		go func(p string) {
			if err := <-ch; err != nil {
				fyne.Do(func() { dialog.ShowError(fmt.Errorf("could not load %s: %w", filepath.Base(p), err), w) })
			}
		}(path)
	}
	controls.sync(sess.State(), sess.Interaction())

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})
	w.ShowAndRun()
	return nil
}

// editorControls binds widgets to the session. sync pushes state into widgets;
// the syncing flag keeps widget callbacks from feeding values back.
type editorControls struct {
	sess    *session.Session
	upload  func(domain.SlotID)
	syncing bool

	size, orient, axis, dpi *widget.Select
	margin, spacing         *widget.Slider
	marginLbl, spacingLbl   *widget.Label
	customW, customH        *widget.Entry

	slots [2]slotControls

	exportButtons    []*widget.Button
	undoBtn, redoBtn *widget.Button
}

type slotControls struct {
	info       *widget.Label
	rotation   *widget.Slider
	scale      *widget.Slider
	rotLbl     *widget.Label
	scaleLbl   *widget.Label
	cropBtn    *widget.Button
	resetCrop  *widget.Button
	adjustable []fyne.Disableable
}

func newEditorControls(sess *session.Session, upload func(domain.SlotID)) *editorControls {
	return &editorControls{sess: sess, upload: upload}
}

func (c *editorControls) page(fn func(*domain.PageConfig)) {
	if c.syncing {
		return
	}
	p := c.sess.State().Page
	fn(&p)
	c.sess.SetPage(p)
}

func (c *editorControls) pageForm() fyne.CanvasObject {
	c.size = widget.NewSelect([]string{string(domain.PageA4), string(domain.PageLetter), string(domain.PageCustom)}, func(v string) {
		c.page(func(p *domain.PageConfig) {
			if s, ok := domain.ParsePageSize(v); ok {
				p.Size = s
			}
		})
	})
	c.orient = widget.NewSelect([]string{string(domain.Portrait), string(domain.Landscape)}, func(v string) {
		c.page(func(p *domain.PageConfig) { p.Orientation = domain.Orientation(v) })
	})
	c.axis = widget.NewSelect([]string{string(domain.LayoutVertical), string(domain.LayoutHorizontal)}, func(v string) {
		c.page(func(p *domain.PageConfig) {
			if a, ok := domain.ParseLayout(v); ok {
				p.Layout = a
			}
		})
	})
	c.dpi = widget.NewSelect(dpiPresets, func(v string) {
		c.page(func(p *domain.PageConfig) {
			if n, err := strconv.Atoi(v); err == nil {
				p.DPI = n
			}
		})
	})
	c.margin = widget.NewSlider(domain.MinMarginMM, domain.MaxMarginMM)
	c.margin.Step = 1
	c.marginLbl = widget.NewLabel("")
	c.margin.OnChanged = func(v float64) {
		c.marginLbl.SetText(fmt.Sprintf("Margin: %.0f mm", v))
		c.page(func(p *domain.PageConfig) { p.MarginMM = v })
	}
	c.spacing = widget.NewSlider(domain.MinSpacingMM, domain.MaxSpacingMM)
	c.spacing.Step = 1
	c.spacingLbl = widget.NewLabel("")
	c.spacing.OnChanged = func(v float64) {
		c.spacingLbl.SetText(fmt.Sprintf("Spacing: %.0f mm", v))
		c.page(func(p *domain.PageConfig) { p.SpacingMM = v })
	}
	c.customW = widget.NewEntry()
	c.customH = widget.NewEntry()
	c.customW.OnSubmitted = func(v string) {
		c.page(func(p *domain.PageConfig) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
				p.CustomWidthMM = f
			}
		})
	}
	c.customH.OnSubmitted = func(v string) {
		c.page(func(p *domain.PageConfig) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
				p.CustomHeightMM = f
			}
		})
	}
	return container.NewVBox(
		widget.NewLabel("Size"), c.size,
		container.NewGridWithColumns(2, c.customW, c.customH),
		widget.NewLabel("Orientation"), c.orient,
		widget.NewLabel("Layout"), c.axis,
		widget.NewLabel("DPI"), c.dpi,
		c.marginLbl, c.margin,
		c.spacingLbl, c.spacing,
	)
}

func (c *editorControls) slotPanel(id domain.SlotID) fyne.CanvasObject {
	sc := &c.slots[id.Index()]
	title := "Image 1"
	if id == domain.SlotB {
		title = "Image 2"
	}
	sc.info = widget.NewLabel("empty")
	sc.rotLbl = widget.NewLabel("")
	sc.scaleLbl = widget.NewLabel("")
	sc.rotation = widget.NewSlider(0, 359)
	sc.rotation.Step = 1
	sc.rotation.OnChanged = func(v float64) {
		sc.rotLbl.SetText(fmt.Sprintf("Rotation: %.0f°", v))
		if !c.syncing {
			c.sess.SetRotation(id, v)
		}
	}
	sc.scale = widget.NewSlider(domain.MinScale, 5)
	sc.scale.Step = 0.05
	sc.scale.OnChanged = func(v float64) {
		sc.scaleLbl.SetText(fmt.Sprintf("Scale: %.2fx", v))
		if !c.syncing {
			c.sess.SetScale(id, v)
		}
	}
	sc.cropBtn = widget.NewButton("Crop", func() {
		if cur, ok := c.sess.Interaction().Cropping(); ok && cur == id {
			c.sess.CancelCrop()
			return
		}
		c.sess.StartCrop(id)
	})
	sc.resetCrop = widget.NewButton("Reset crop", func() { c.sess.ResetCrop(id) })
	rotL := widget.NewButton("⟲ 90°", func() { c.sess.RotateBy(id, -domain.RotateStep) })
	rotR := widget.NewButton("⟳ 90°", func() { c.sess.RotateBy(id, domain.RotateStep) })
	zoomOut := widget.NewButton("−", func() { c.sess.ZoomBy(id, -domain.ZoomStep) })
	zoomIn := widget.NewButton("+", func() { c.sess.ZoomBy(id, domain.ZoomStep) })
	reset := widget.NewButton("Reset", func() { c.sess.ResetAdjustments(id) })
	remove := widget.NewButton("Remove", func() { c.sess.ClearSlot(id) })
	sc.adjustable = []fyne.Disableable{sc.rotation, sc.scale, sc.cropBtn, sc.resetCrop, rotL, rotR, zoomOut, zoomIn, reset, remove}

	return container.NewVBox(
		widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		sc.info,
		widget.NewButton("Upload…", func() { c.upload(id) }),
		sc.rotLbl, sc.rotation,
		container.NewGridWithColumns(2, rotL, rotR),
		sc.scaleLbl, sc.scale,
		container.NewGridWithColumns(2, zoomOut, zoomIn),
		container.NewGridWithColumns(2, sc.cropBtn, sc.resetCrop),
		container.NewGridWithColumns(2, reset, remove),
	)
}

// sync mirrors st into the widgets. Must run on the UI goroutine.
func (c *editorControls) sync(st domain.State, in interact.Interaction) {
	c.syncing = true
	defer func() { c.syncing = false }()

	if c.size != nil {
		c.size.SetSelected(string(st.Page.Size))
		c.orient.SetSelected(string(st.Page.Orientation))
		c.axis.SetSelected(string(st.Page.Layout))
		c.dpi.SetSelected(strconv.Itoa(st.Page.DPI))
		c.margin.SetValue(st.Page.MarginMM)
		c.spacing.SetValue(st.Page.SpacingMM)
		c.customW.SetText(strconv.FormatFloat(st.Page.CustomWidthMM, 'f', -1, 64))
		c.customH.SetText(strconv.FormatFloat(st.Page.CustomHeightMM, 'f', -1, 64))
		if st.Page.Size == domain.PageCustom {
			c.customW.Enable()
			c.customH.Enable()
		} else {
			c.customW.Disable()
			c.customH.Disable()
		}
	}
	cropping, isCropping := in.Cropping()
	for i, sl := range st.Slots {
		sc := &c.slots[i]
		if sc.info == nil {
			continue
		}
		if sl.Occupied() {
			sc.info.SetText(fmt.Sprintf("%s (%d×%d)", sl.Name, sl.OriginalWidth, sl.OriginalHeight))
		} else {
			sc.info.SetText("empty")
		}
		sc.rotation.SetValue(sl.RotationDeg)
		sc.scale.SetValue(sl.Scale)
		for _, d := range sc.adjustable {
			if sl.Occupied() {
				d.Enable()
			} else {
				d.Disable()
			}
		}
		if isCropping && cropping == sl.ID {
			sc.cropBtn.SetText("Cancel crop")
		} else {
			sc.cropBtn.SetText("Crop")
		}
		if sl.Crop == nil {
			sc.resetCrop.Disable()
		}
	}
	for _, b := range c.exportButtons {
		if c.sess.CanExport() {
			b.Enable()
		} else {
			b.Disable()
		}
	}
	if c.undoBtn != nil {
		setEnabled(c.undoBtn, c.sess.CanUndo())
		setEnabled(c.redoBtn, c.sess.CanRedo())
	}
}

func setEnabled(d fyne.Disableable, on bool) {
	if on {
		d.Enable()
	} else {
		d.Disable()
	}
}

// PageCanvas shows the rendered preview scaled to fit and forwards pointer
// input to the session in page-pixel coordinates.
type PageCanvas struct {
	widget.BaseWidget

	sess  *session.Session
	frame *image.RGBA
	// zoom multiplies the fit-to-view scale; mouse wheel changes it.
	zoom    float32
	last    geom.Pt
	pressed bool
}

var (
	_ desktop.Mouseable = (*PageCanvas)(nil)
	_ desktop.Hoverable = (*PageCanvas)(nil)
	_ fyne.Scrollable   = (*PageCanvas)(nil)
)

func NewPageCanvas() *PageCanvas {
	pc := &PageCanvas{zoom: 1}
	pc.ExtendBaseWidget(pc)
	return pc
}

// SetFrame replaces the displayed preview. Must run on the UI goroutine.
func (p *PageCanvas) SetFrame(img *image.RGBA) {
	p.frame = img
	p.Refresh()
}

func (p *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth
	return &pageCanvasRenderer{pc: p, bg: bg, img: img, objects: []fyne.CanvasObject{bg, img}}
}

func (p *PageCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

// pageSize returns the preview raster size in page pixels.
func (p *PageCanvas) pageSize() (float32, float32) {
	if p.frame == nil {
		return 0, 0
	}
	b := p.frame.Bounds()
	return float32(b.Dx()), float32(b.Dy())
}

// pageOriginAndScale returns where the page's top-left lands in the widget and
// how many widget units one page pixel takes.
func (p *PageCanvas) pageOriginAndScale() (ox, oy, scale float32) {
	return fitPage(p.Size(), fyne.NewSize(p.pageSize()), p.zoom)
}

func fitPage(view, page fyne.Size, zoom float32) (ox, oy, scale float32) {
	if page.Width <= 0 || page.Height <= 0 || view.Width <= 0 || view.Height <= 0 {
		return 0, 0, 0
	}
	scale = view.Width / page.Width
	if s := view.Height / page.Height; s < scale {
		scale = s
	}
	scale *= zoom
	ox = (view.Width - page.Width*scale) / 2
	oy = (view.Height - page.Height*scale) / 2
	return ox, oy, scale
}

func (p *PageCanvas) toPage(pos fyne.Position) (geom.Pt, bool) {
	ox, oy, s := p.pageOriginAndScale()
	if s <= 0 {
		return geom.Pt{}, false
	}
	return geom.Pt{X: float64((pos.X - ox) / s), Y: float64((pos.Y - oy) / s)}, true
}

func (p *PageCanvas) MouseDown(e *desktop.MouseEvent) {
	if p.sess == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	if pt, ok := p.toPage(e.Position); ok {
		p.pressed = true
		p.last = pt
		p.sess.PointerDown(pt)
	}
}

func (p *PageCanvas) MouseUp(e *desktop.MouseEvent) {
	if p.sess == nil || !p.pressed {
		return
	}
	p.pressed = false
	if pt, ok := p.toPage(e.Position); ok {
		p.last = pt
	}
	p.sess.PointerUp(p.last)
}

func (p *PageCanvas) MouseIn(*desktop.MouseEvent) {}

func (p *PageCanvas) MouseMoved(e *desktop.MouseEvent) {
	if p.sess == nil || !p.pressed {
		return
	}
	if pt, ok := p.toPage(e.Position); ok {
		p.last = pt
		p.sess.PointerMove(pt)
	}
}

// MouseOut ends any gesture at the last known position.
func (p *PageCanvas) MouseOut() {
	if p.sess == nil || !p.pressed {
		return
	}
	p.pressed = false
	p.sess.PointerLeave(p.last)
}

// Scrolled zooms the view; the page itself is unaffected.
func (p *PageCanvas) Scrolled(e *fyne.ScrollEvent) {
	p.zoom += e.Scrolled.DY * 0.002
	if p.zoom < 0.25 {
		p.zoom = 0.25
	}
	if p.zoom > 4 {
		p.zoom = 4
	}
	p.Refresh()
}

type pageCanvasRenderer struct {
	pc      *PageCanvas
	bg      *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

func (r *pageCanvasRenderer) Destroy()                     {}
func (r *pageCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *pageCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 200) }

func (r *pageCanvasRenderer) Refresh() {
	if r.pc.frame != nil {
		r.img.Image = r.pc.frame
	}
	r.Layout(r.pc.Size())
	r.img.Refresh()
	canvas.Refresh(r.pc)
}

func (r *pageCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	ox, oy, s := r.pc.pageOriginAndScale()
	w, h := r.pc.pageSize()
	r.img.Move(fyne.NewPos(ox, oy))
	r.img.Resize(fyne.NewSize(w*s, h*s))
}
