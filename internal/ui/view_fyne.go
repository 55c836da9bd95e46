//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"picviewer/internal/geom"
	"picviewer/internal/viewer"
)

// secondary clicks closer together than this count as a double click
const doubleClickWindow = 400 * time.Millisecond

// ImageView draws the loaded image at the controller's display rectangle, the rubber
// band and the transient zoom label, and feeds pointer input back to the controller.
// It is the viewer.Host of its controller.
type ImageView struct {
	widget.BaseWidget
	ctrl *viewer.Controller
	file string

	band       geom.Rect
	label      string
	labelShown bool
	labelGen   int
	labelTimer *time.Timer

	dragging      bool
	lastDrag      geom.Point
	lastSecondary time.Time

	// OnChanged runs after every redraw request, e.g. to update a status line.
	OnChanged func()
	// afterSized runs once, the first time the view gets a usable size.
	afterSized func()
}

func NewImageView(cfg viewer.ControllerConfig) *ImageView {
	v := &ImageView{}
	v.ctrl = viewer.NewController(geom.Size{}, v, cfg)
	v.ExtendBaseWidget(v)
	return v
}

func (v *ImageView) Controller() *viewer.Controller { return v.ctrl }

// Open loads the image file at path.
func (v *ImageView) Open(ctx context.Context, path string) error {
	if err := v.ctrl.Open(ctx, path); err != nil {
		return err
	}
	v.file = path
	v.Refresh()
	return nil
}

// Close stores the current view and clears the widget.
func (v *ImageView) Close(ctx context.Context) error {
	err := v.ctrl.Close(ctx)
	v.file = ""
	v.Refresh()
	return err
}

// AfterSized runs fn once the view has been laid out with a non-empty size.
func (v *ImageView) AfterSized(fn func()) {
	if !v.ctrl.Engine().Viewport().Empty() {
		fn()
		return
	}
	v.afterSized = fn
}

// Resize tells the controller about the new viewport.
func (v *ImageView) Resize(s fyne.Size) {
	v.BaseWidget.Resize(s)
	vp := geom.Sz(int(s.Width), int(s.Height))
	v.ctrl.Resize(vp)
	if fn := v.afterSized; fn != nil && !vp.Empty() {
		v.afterSized = nil
		fn()
	}
}

func (v *ImageView) MinSize() fyne.Size { return fyne.NewSize(200, 150) }

// RequestRedraw implements viewer.Host.
func (v *ImageView) RequestRedraw() {
	v.Refresh()
	if v.OnChanged != nil {
		v.OnChanged()
	}
}

// ShowTransientLabel implements viewer.Host. A newer label cancels the pending hide.
func (v *ImageView) ShowTransientLabel(text string, d time.Duration) {
	v.label, v.labelShown = text, true
	v.labelGen++
	gen := v.labelGen
	if v.labelTimer != nil {
		v.labelTimer.Stop()
	}
	v.labelTimer = time.AfterFunc(d, func() {
		fyne.Do(func() {
			if v.labelGen == gen {
				v.labelShown = false
				v.Refresh()
			}
		})
	})
	v.Refresh()
}

// DrawSelection implements viewer.Host.
func (v *ImageView) DrawSelection(r geom.Rect) {
	v.band = r
	v.Refresh()
}

func (v *ImageView) MouseDown(e *desktop.MouseEvent) {
	b := button(e.Button)
	if b == viewer.ButtonRight {
		now := time.Now()
		if now.Sub(v.lastSecondary) < doubleClickWindow {
			v.lastSecondary = time.Time{}
			v.ctrl.DoubleClick(viewer.ButtonRight)
			return
		}
		v.lastSecondary = now
	}
	v.ctrl.PointerDown(point(e.Position), b)
}

func (v *ImageView) MouseUp(e *desktop.MouseEvent) {
	v.dragging = false
	v.ctrl.PointerUp(point(e.Position), button(e.Button))
}

func (v *ImageView) Dragged(e *fyne.DragEvent) {
	p := point(e.Position)
	v.dragging, v.lastDrag = true, p
	v.ctrl.PointerMove(p)
}

// DragEnd finishes a drag whose MouseUp went elsewhere.
func (v *ImageView) DragEnd() {
	if !v.dragging {
		return
	}
	v.dragging = false
	v.ctrl.PointerUp(v.lastDrag, viewer.ButtonLeft)
}

func (v *ImageView) DoubleTapped(_ *fyne.PointEvent) { v.ctrl.DoubleClick(viewer.ButtonLeft) }

func (v *ImageView) Scrolled(e *fyne.ScrollEvent) { v.ctrl.Wheel(float64(e.Scrolled.DY)) }

func point(p fyne.Position) geom.Point { return geom.Pt(int(p.X), int(p.Y)) }

func button(b desktop.MouseButton) viewer.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return viewer.ButtonRight
	case desktop.MouseButtonTertiary:
		return viewer.ButtonMiddle
	default:
		return viewer.ButtonLeft
	}
}

func (v *ImageView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.NRGBA{R: 30, G: 30, B: 34, A: 255})

	img := canvas.NewImageFromFile("")
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScaleSmooth
	img.Hide()

	band := canvas.NewRectangle(color.NRGBA{R: 0, G: 170, B: 255, A: 40})
	band.StrokeColor = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
	band.StrokeWidth = 1
	band.Hide()

	labelBg := canvas.NewRectangle(color.NRGBA{A: 170})
	labelBg.CornerRadius = 4
	label := canvas.NewText("", color.White)
	label.TextStyle = fyne.TextStyle{Bold: true}
	label.TextSize = 16

	return &imageViewRenderer{
		v: v, bg: bg, img: img, band: band, labelBg: labelBg, label: label,
		objects: []fyne.CanvasObject{bg, img, band, labelBg, label},
	}
}

type imageViewRenderer struct {
	v       *ImageView
	bg      *canvas.Rectangle
	img     *canvas.Image
	band    *canvas.Rectangle
	labelBg *canvas.Rectangle
	label   *canvas.Text
	objects []fyne.CanvasObject
}

func (r *imageViewRenderer) Destroy()                     {}
func (r *imageViewRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *imageViewRenderer) MinSize() fyne.Size           { return r.v.MinSize() }

func (r *imageViewRenderer) Refresh() {
	if r.img.File != r.v.file {
		r.img.File = r.v.file
		r.img.Refresh()
	}
	r.Layout(r.v.Size())
	canvas.Refresh(r.v)
}

func (r *imageViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	d := r.v.ctrl.Engine().Display()
	if r.v.file == "" || d.Empty() {
		r.img.Hide()
	} else {
		r.img.Move(fyne.NewPos(float32(d.X), float32(d.Y)))
		r.img.Resize(fyne.NewSize(float32(d.W), float32(d.H)))
		r.img.Show()
	}

	if b := r.v.band; b.Empty() {
		r.band.Hide()
	} else {
		r.band.Move(fyne.NewPos(float32(b.X), float32(b.Y)))
		r.band.Resize(fyne.NewSize(float32(b.W), float32(b.H)))
		r.band.Show()
	}

	if !r.v.labelShown || r.v.label == "" {
		r.label.Hide()
		r.labelBg.Hide()
		return
	}
	r.label.Text = r.v.label
	ts := r.label.MinSize()
	const pad = 8
	x := size.Width - ts.Width - 3*pad
	r.labelBg.Move(fyne.NewPos(x, pad))
	r.labelBg.Resize(fyne.NewSize(ts.Width+2*pad, ts.Height+pad))
	r.label.Move(fyne.NewPos(x+pad, pad+pad/2))
	r.label.Resize(ts)
	r.labelBg.Show()
	r.label.Show()
}
