/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package viewer maps a source image onto a fixed-size viewport and recomputes that
// mapping for step zoom, fit, native size, rubber-band zoom and panning.
//
// Engine is the pure transform calculator; Controller turns pointer, wheel and
// command input from a Host into Engine calls. Neither draws anything.
package viewer

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"picviewer/internal/geom"
	applog "picviewer/internal/log"
)

// Options are the engine's scale limits.
type Options struct {
	// StepFactor is the ratio applied by one step zoom.
	StepFactor float64
	// StepLimit bounds step zoom relative to the native image size: zoom-in stops at
	// StepLimit times native, zoom-out at 1/StepLimit of native.
	StepLimit float64
	// BandMinRatio rejects a rubber-band zoom-in whose result would make
	// viewport/display fall below it.
	BandMinRatio float64
	// BandMaxRatio rejects a rubber-band zoom-out whose result would make
	// viewport/display exceed it.
	BandMaxRatio float64
}

// DefaultOptions returns the stock limits: 1.2 per step, 5x either way, and band
// ratios of 0.1 and 10.
func DefaultOptions() Options {
	return Options{StepFactor: 1.2, StepLimit: 5, BandMinRatio: 0.1, BandMaxRatio: 10}
}

// sanitized replaces unusable values with the defaults.
func (o Options) sanitized() Options {
	d := DefaultOptions()
	if !(o.StepFactor > 1) || math.IsInf(o.StepFactor, 0) {
		o.StepFactor = d.StepFactor
	}
	if !(o.StepLimit > 1) {
		o.StepLimit = d.StepLimit
	}
	if !(o.BandMinRatio > 0 && o.BandMinRatio <= 1) {
		o.BandMinRatio = d.BandMinRatio
	}
	if !(o.BandMaxRatio >= 1) {
		o.BandMaxRatio = d.BandMaxRatio
	}
	return o
}

// Engine holds the mapping between a viewport and the loaded image.
//
// Every operation is total: input that would leave the display rectangle empty,
// non-finite, off screen or beyond the scale limits is rejected and the state is
// left unchanged. Operations report whether they committed.
// Geometry is solved in float64 and truncated to pixels once, on commit.
//
// An Engine is not safe for concurrent use; drive it from the UI thread.
type Engine struct {
	opts      Options
	viewport  geom.Size
	image     geom.Size
	display   geom.Rect
	selection geom.Rect
	log       *slog.Logger
}

// NewEngine returns an engine for a viewport of the given size with no image loaded.
func NewEngine(viewport geom.Size, opts Options) *Engine {
	return &Engine{
		opts:     opts.sanitized(),
		viewport: viewport,
		log:      applog.WithComponent("viewer"),
	}
}

func (e *Engine) Options() Options        { return e.opts }
func (e *Engine) Viewport() geom.Size     { return e.viewport }
func (e *Engine) Image() geom.Size        { return e.image }
func (e *Engine) Display() geom.Rect      { return e.display }
func (e *Engine) Selection() geom.Rect    { return e.selection }
func (e *Engine) Loaded() bool            { return !e.image.Empty() }
func (e *Engine) viewportRect() geom.Rect { return e.viewport.Rect() }

// Source is the visible part of the image in image pixels. The image is never
// cropped, so this is the whole image while one is loaded.
func (e *Engine) Source() geom.Rect {
	if !e.Loaded() {
		return geom.Rect{}
	}
	return e.image.Rect()
}

// Load replaces the image and fits it to the viewport.
func (e *Engine) Load(img geom.Size) bool {
	if img.Empty() {
		return e.reject("load", "empty image size")
	}
	e.image = img
	e.display = geom.Rect{}
	e.selection = geom.Rect{}
	if e.viewport.Empty() {
		return true
	}
	return e.FitToView()
}

// Unload forgets the image and resets all rectangles.
func (e *Engine) Unload() {
	e.image = geom.Size{}
	e.display = geom.Rect{}
	e.selection = geom.Rect{}
}

// Resize changes the viewport. The display rectangle keeps its position while it still
// overlaps the new viewport; otherwise, and for an image loaded while the viewport was
// empty, the image is fitted.
func (e *Engine) Resize(vp geom.Size) bool {
	if vp.Empty() {
		return e.reject("resize", "empty viewport")
	}
	e.viewport = vp
	if e.Loaded() && !e.display.Overlaps(e.viewportRect()) {
		return e.FitToView()
	}
	return true
}

// FitToView shows the whole image as large as possible inside the viewport,
// never enlarging it past its native size, centered on the free axis.
func (e *Engine) FitToView() bool {
	if !e.ready() {
		return e.reject("fit", "no image or viewport")
	}
	vw, vh := e.viewport.W, e.viewport.H
	iw, ih := e.image.W, e.image.H

	fitHeight := func() geom.Rect {
		w := max(1, int(float64(vh)/float64(ih)*float64(iw)))
		return geom.R((vw-w)/2, 0, w, vh)
	}
	fitWidth := func() geom.Rect {
		h := max(1, int(float64(vw)/float64(iw)*float64(ih)))
		return geom.R(0, (vh-h)/2, vw, h)
	}

	var r geom.Rect
	switch {
	case iw < vw && ih < vh:
		r = geom.R((vw-iw)/2, (vh-ih)/2, iw, ih)
	case ih > vh && iw <= vw:
		r = fitHeight()
	case ih <= vh && iw > vw:
		r = fitWidth()
	case float64(ih)/float64(vh) > float64(iw)/float64(vw):
		r = fitHeight()
	default:
		r = fitWidth()
	}
	return e.set("fit", r)
}

// NativeView shows the image at 100%, centered. A larger image spills past the
// viewport evenly on both sides.
func (e *Engine) NativeView() bool {
	if !e.ready() {
		return e.reject("native", "no image or viewport")
	}
	vw, vh := e.viewport.W, e.viewport.H
	iw, ih := e.image.W, e.image.H
	return e.set("native", geom.R((vw-iw)/2, (vh-ih)/2, iw, ih))
}

// StepZoomIn grows the display rectangle by StepFactor around its center.
func (e *Engine) StepZoomIn() bool {
	if !e.ready() || e.display.Empty() {
		return e.reject("step_in", "nothing displayed")
	}
	d := e.display.Float()
	size := r2.Scale(e.opts.StepFactor, d.Size)
	grow := r2.Scale(0.5, r2.Sub(size, d.Size))
	mag := geom.Div(size, e.image.Vec())
	if mag.X > e.opts.StepLimit || mag.Y > e.opts.StepLimit {
		return e.reject("step_in", "magnification limit")
	}
	return e.commit("step_in", geom.FRect{Min: r2.Sub(d.Min, grow), Size: size})
}

// StepZoomOut shrinks the display rectangle by StepFactor around its center. An axis
// that becomes narrower than the viewport is centered; a wider one is clamped so the
// viewport stays covered.
func (e *Engine) StepZoomOut() bool {
	if !e.ready() || e.display.Empty() {
		return e.reject("step_out", "nothing displayed")
	}
	d := e.display.Float()
	vp := e.viewport.Vec()
	size := r2.Scale(1/e.opts.StepFactor, d.Size)
	origin := r2.Add(d.Min, r2.Scale(0.5, r2.Sub(d.Size, size)))
	origin.X = coverAxis(origin.X, size.X, vp.X)
	origin.Y = coverAxis(origin.Y, size.Y, vp.Y)

	mag := geom.Div(size, e.image.Vec())
	if floor := 1 / e.opts.StepLimit; mag.X < floor || mag.Y < floor {
		return e.reject("step_out", "minification limit")
	}
	return e.commit("step_out", geom.FRect{Min: origin, Size: size})
}

// coverAxis positions a span of length size on an axis of length extent.
func coverAxis(pos, size, extent float64) float64 {
	if size <= extent {
		return (extent - size) / 2
	}
	if pos > 0 {
		pos = 0
	}
	if pos+size < extent {
		pos = extent - size
	}
	return pos
}

// FillRect scales sel uniformly so it fills as much of the viewport as its aspect
// ratio allows, centered on the axis it does not fill. It is where the selected
// region will appear after a rubber-band zoom-in.
func FillRect(sel geom.FRect, vp r2.Vec) geom.FRect {
	if sel.Size.X/sel.Size.Y > vp.X/vp.Y {
		h := sel.Size.Y * (vp.X / sel.Size.X)
		return geom.FRect{Min: r2.Vec{X: 0, Y: (vp.Y - h) / 2}, Size: r2.Vec{X: vp.X, Y: h}}
	}
	w := sel.Size.X * (vp.Y / sel.Size.Y)
	return geom.FRect{Min: r2.Vec{X: (vp.X - w) / 2, Y: 0}, Size: r2.Vec{X: w, Y: vp.Y}}
}

// RubberBandZoomIn zooms so the part of the image under sel fills the viewport.
func (e *Engine) RubberBandZoomIn(sel geom.Rect) bool { return e.band("band_in", sel, true) }

// RubberBandZoomOut zooms so the current viewport content shrinks into sel.
func (e *Engine) RubberBandZoomOut(sel geom.Rect) bool { return e.band("band_out", sel, false) }

// band solves a rubber-band zoom without cropping the source: the selection is fitted
// to the viewport, and the full-image display rectangle is derived back from where the
// covered part of the image must land.
func (e *Engine) band(op string, sel geom.Rect, in bool) bool {
	e.selection = sel
	defer e.ClearSelection()

	if !e.ready() || e.display.Empty() {
		return e.reject(op, "nothing displayed")
	}
	if sel.Empty() {
		return e.reject(op, "empty selection")
	}

	vp := e.viewport.Vec()
	s := sel.Float()
	fill := FillRect(s, vp)
	scale := geom.Div(fill.Size, s.Size)

	// Part of the displayed image the gesture covers, in viewport pixels.
	var hit geom.Rect
	if in {
		hit = sel.Intersect(e.display)
	} else {
		hit = fill.Trunc().Intersect(e.display)
	}
	if hit.Empty() || hit.X > e.viewport.W || hit.Y > e.viewport.H {
		return e.reject(op, "selection misses the image")
	}
	h := hit.Float()

	// Where that part must appear afterwards, in viewport pixels.
	var target geom.FRect
	if in {
		target = geom.FRect{
			Min:  r2.Add(geom.Mul(r2.Sub(h.Min, s.Min), scale), fill.Min),
			Size: geom.Mul(h.Size, scale),
		}
	} else {
		target = geom.FRect{
			Min:  r2.Add(geom.Div(r2.Sub(h.Min, fill.Min), scale), s.Min),
			Size: geom.Div(h.Size, scale),
		}
	}

	// The same part in image pixels.
	d := e.display.Float()
	img := e.image.Vec()
	perPixel := geom.Div(d.Size, img)
	src := geom.FRect{
		Min:  geom.Div(r2.Sub(h.Min, d.Min), perPixel),
		Size: geom.Div(h.Size, perPixel),
	}

	k := geom.Div(target.Size, src.Size)
	next := geom.FRect{
		Min:  r2.Sub(target.Min, geom.Mul(src.Min, k)),
		Size: geom.Mul(img, k),
	}

	ratio := geom.Div(vp, next.Size)
	if in && (ratio.X < e.opts.BandMinRatio || ratio.Y < e.opts.BandMinRatio) {
		return e.reject(op, "magnification limit")
	}
	if !in && (ratio.X > e.opts.BandMaxRatio || ratio.Y > e.opts.BandMaxRatio) {
		return e.reject(op, "minification limit")
	}
	return e.commit(op, next)
}

// Pan moves the display rectangle by (dx, dy). A move that would leave no part of
// the image inside the viewport is rejected.
func (e *Engine) Pan(dx, dy int) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	if !e.ready() || e.display.Empty() {
		return e.reject("pan", "nothing displayed")
	}
	next := e.display.Translate(dx, dy)
	if !next.Overlaps(e.viewportRect()) {
		return e.reject("pan", "image would leave the viewport")
	}
	e.display = next
	return true
}

// Restore commits a display rectangle recorded earlier, e.g. from view history.
func (e *Engine) Restore(r geom.Rect) bool {
	if !e.ready() {
		return e.reject("restore", "no image or viewport")
	}
	return e.set("restore", r)
}

// SetSelection records the live rubber band in viewport coordinates.
func (e *Engine) SetSelection(r geom.Rect) { e.selection = r }

// ClearSelection drops the rubber band.
func (e *Engine) ClearSelection() { e.selection = geom.Rect{} }

// Percent is the display scale relative to the native image, rounded.
func (e *Engine) Percent() int {
	if !e.Loaded() || e.display.Empty() {
		return 0
	}
	return int(math.Round(float64(e.display.W) * 100 / float64(e.image.W)))
}

// PercentLabel formats Percent for the on-screen readout, e.g. "150%".
func (e *Engine) PercentLabel() string { return fmt.Sprintf("%d%%", e.Percent()) }

func (e *Engine) ready() bool { return e.Loaded() && !e.viewport.Empty() }

func (e *Engine) commit(op string, f geom.FRect) bool {
	if !f.Valid() {
		return e.reject(op, "non-finite result")
	}
	return e.set(op, f.Trunc())
}

func (e *Engine) set(op string, r geom.Rect) bool {
	if r.Empty() {
		return e.reject(op, "degenerate result")
	}
	if !r.Overlaps(e.viewportRect()) {
		return e.reject(op, "result off screen")
	}
	e.display = r
	e.log.Debug("display", slog.String("op", op), slog.String("rect", r.String()))
	return true
}

func (e *Engine) reject(op, reason string) bool {
	e.log.Debug("rejected", slog.String("op", op), slog.String("reason", reason))
	return false
}
