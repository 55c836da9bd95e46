/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"picviewer/internal/crash"
	"picviewer/internal/geom"
	"picviewer/internal/history"
	"picviewer/internal/imageinfo"
	applog "picviewer/internal/log"
	"picviewer/internal/storage"
)

// Tool selects what a left-button drag does.
type Tool int

const (
	ToolPan Tool = iota
	ToolZoomIn
	ToolZoomOut
)

var toolNames = [...]string{"pan", "zoom_in", "zoom_out"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool accepts "pan", "zoom_in" and "zoom_out" (also with '-' instead of '_').
func ParseTool(s string) (Tool, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range toolNames {
		if n == name {
			return Tool(i), nil
		}
	}
	return ToolPan, fmt.Errorf("unknown tool %q", s)
}

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// ErrInvalidImage is returned when an image reports no usable size.
var ErrInvalidImage = errors.New("viewer: image has no usable size")

const defaultLabelDuration = 3 * time.Second

// ControllerConfig wires a Controller. Store and Events may be nil.
type ControllerConfig struct {
	Options         Options
	LabelDuration   time.Duration
	Tool            Tool
	RestoreLastView bool
	History         *history.Manager
	Store           ViewStore
	Events          EventSink
}

type gesture int

const (
	gestureNone gesture = iota
	gestureBand
	gesturePan
)

// Controller turns host input into Engine operations. After every committed transform
// it records the previous view in history, asks the host to redraw and, except for
// panning, shows the zoom percentage.
//
// Like Engine, a Controller belongs to the UI thread.
type Controller struct {
	eng  *Engine
	host Host
	hist *history.Manager
	cfg  ControllerConfig
	tool Tool
	path string

	gesture gesture
	anchor  geom.Point
	panned  bool

	now func() time.Time
	log *slog.Logger
}

// NewController returns a controller for a viewport of size vp. A nil host is replaced by NopHost.
func NewController(vp geom.Size, host Host, cfg ControllerConfig) *Controller {
	if host == nil {
		host = NopHost{}
	}
	if cfg.LabelDuration <= 0 {
		cfg.LabelDuration = defaultLabelDuration
	}
	if cfg.History == nil {
		cfg.History = history.NewManager(history.Config{MaxPerKey: 50, MinInterval: 250 * time.Millisecond})
	}
	return &Controller{
		eng:  NewEngine(vp, cfg.Options),
		host: host,
		hist: cfg.History,
		cfg:  cfg,
		tool: cfg.Tool,
		now:  time.Now,
		log:  applog.WithComponent("controller"),
	}
}

func (c *Controller) Engine() *Engine { return c.eng }
func (c *Controller) Path() string    { return c.path }
func (c *Controller) Tool() Tool      { return c.tool }

// CanBack reports whether Back has a view to return to.
func (c *Controller) CanBack() bool { return c.path != "" && c.hist.CanBack(c.path) }

// CanForward reports whether Forward has a view to re-apply.
func (c *Controller) CanForward() bool { return c.path != "" && c.hist.CanForward(c.path) }

// SetTool switches the drag tool and abandons any gesture in progress.
func (c *Controller) SetTool(t Tool) {
	if t == c.tool {
		return
	}
	c.cancelGesture()
	c.tool = t
	c.log.Debug("tool", slog.String("tool", t.String()))
}

// Open probes the image file at path and loads it.
func (c *Controller) Open(ctx context.Context, path string) error {
	info, err := imageinfo.Probe(path)
	if err != nil {
		c.log.Warn("open failed", slog.String("path", path), slog.Any("err", err))
		return err
	}
	return c.Load(ctx, path, info.Size)
}

// Load shows an image of the given size under key, closing the current one first. The
// image is fitted to the viewport, or put back where it was last left when
// RestoreLastView is set and the stored view matches the image and viewport sizes.
func (c *Controller) Load(ctx context.Context, key string, size geom.Size) error {
	if c.path != "" {
		// Close logs a failed save; it must not keep the new image from opening.
		_ = c.Close(ctx)
	}
	if !c.eng.Load(size) {
		return fmt.Errorf("load %s: %w", key, ErrInvalidImage)
	}
	c.path = key
	restored := c.restoreStored(ctx)
	c.host.RequestRedraw()
	c.showLabel()
	c.emit("image.open", map[string]any{"restored": restored})
	c.log.Info("image loaded",
		slog.String("path", key),
		slog.String("size", size.String()),
		slog.String("display", c.eng.Display().String()),
		slog.Bool("restored", restored))
	return nil
}

func (c *Controller) restoreStored(ctx context.Context) bool {
	if !c.cfg.RestoreLastView || c.cfg.Store == nil {
		return false
	}
	v, err := c.cfg.Store.LoadView(ctx, c.path)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		c.log.Warn("load stored view failed", slog.String("path", c.path), slog.Any("err", err))
		return false
	}
	if !v.Matches(c.eng.Image(), c.eng.Viewport()) {
		return false
	}
	return c.eng.Restore(v.Display)
}

// Close stores the current view, forgets its history and unloads the image. The image
// is unloaded even when storing fails; the store error is returned.
func (c *Controller) Close(ctx context.Context) error {
	if c.path == "" {
		return nil
	}
	var err error
	if c.cfg.Store != nil && !c.eng.Display().Empty() {
		err = c.cfg.Store.SaveView(ctx, storage.View{
			Path:     c.path,
			Image:    c.eng.Image(),
			Viewport: c.eng.Viewport(),
			Display:  c.eng.Display(),
		})
		if err != nil {
			c.log.Warn("store view failed", slog.String("path", c.path), slog.Any("err", err))
		}
	}
	c.cancelGesture()
	c.hist.Clear(c.path)
	c.log.Info("image closed", slog.String("path", c.path))
	c.path = ""
	c.eng.Unload()
	c.host.RequestRedraw()
	return err
}

// Resize follows a change of the drawing surface.
func (c *Controller) Resize(vp geom.Size) {
	if c.eng.Resize(vp) {
		c.host.RequestRedraw()
	}
}

func (c *Controller) Fit() bool     { return c.apply("fit", c.eng.FitToView) }
func (c *Controller) Native() bool  { return c.apply("native", c.eng.NativeView) }
func (c *Controller) ZoomIn() bool  { return c.apply("step_in", c.eng.StepZoomIn) }
func (c *Controller) ZoomOut() bool { return c.apply("step_out", c.eng.StepZoomOut) }

// BandZoomIn and BandZoomOut run a rubber-band zoom with an explicit selection.
func (c *Controller) BandZoomIn(sel geom.Rect) bool {
	return c.apply("band_in", func() bool { return c.eng.RubberBandZoomIn(sel) })
}

func (c *Controller) BandZoomOut(sel geom.Rect) bool {
	return c.apply("band_out", func() bool { return c.eng.RubberBandZoomOut(sel) })
}

// Pan moves the image by (dx, dy) without showing the percentage.
func (c *Controller) Pan(dx, dy int) bool {
	before := c.eng.Display()
	if !c.eng.Pan(dx, dy) {
		return false
	}
	c.record(before)
	c.host.RequestRedraw()
	return true
}

// Back returns to the view before the last transform.
func (c *Controller) Back() bool {
	if c.path == "" {
		return false
	}
	r, ok := c.hist.Back(c.path, c.eng.Display())
	return ok && c.jump("back", r)
}

// Forward re-applies a view left by Back.
func (c *Controller) Forward() bool {
	if c.path == "" {
		return false
	}
	r, ok := c.hist.Forward(c.path, c.eng.Display())
	return ok && c.jump("forward", r)
}

func (c *Controller) jump(op string, r geom.Rect) bool {
	if !c.eng.Restore(r) {
		c.log.Debug("history view no longer valid", slog.String("op", op), slog.String("rect", r.String()))
		return false
	}
	c.host.RequestRedraw()
	c.showLabel()
	c.emit("view."+op, nil)
	return true
}

// PointerDown starts a gesture. Only the left button is used. A zoom-in band must start
// on the image; a zoom-out band anywhere in the viewport.
func (c *Controller) PointerDown(p geom.Point, b Button) {
	if b != ButtonLeft || !c.eng.Loaded() || c.gesture != gestureNone {
		return
	}
	switch c.tool {
	case ToolZoomIn:
		if c.eng.Display().Contains(p) {
			c.gesture, c.anchor = gestureBand, p
		}
	case ToolZoomOut:
		if c.viewportRect().Clamp(p) == p {
			c.gesture, c.anchor = gestureBand, p
		}
	case ToolPan:
		c.gesture, c.anchor, c.panned = gesturePan, p, false
	}
}

// PointerMove updates the rubber band or pans by the distance moved since the last event.
func (c *Controller) PointerMove(p geom.Point) {
	switch c.gesture {
	case gestureBand:
		sel := geom.FromPoints(c.anchor, c.bandBounds().Clamp(p))
		c.eng.SetSelection(sel)
		c.host.DrawSelection(sel)
	case gesturePan:
		if !c.viewportRect().Contains(p) {
			return
		}
		d := p.Sub(c.anchor)
		if c.Pan(d.X, d.Y) {
			c.panned = true
		}
		c.anchor = p
	}
}

// PointerUp finishes the gesture: a band runs the rubber-band zoom for the current tool.
func (c *Controller) PointerUp(p geom.Point, b Button) {
	if b != ButtonLeft {
		return
	}
	switch c.gesture {
	case gestureBand:
		sel := geom.FromPoints(c.anchor, c.bandBounds().Clamp(p))
		c.gesture = gestureNone
		c.host.DrawSelection(geom.Rect{})
		if c.tool == ToolZoomIn {
			c.BandZoomIn(sel)
		} else {
			c.BandZoomOut(sel)
		}
	case gesturePan:
		c.gesture = gestureNone
		if c.panned {
			c.emit("view.pan", nil)
		}
	}
}

// DoubleClick zooms one step: in for the left button, out for any other.
func (c *Controller) DoubleClick(b Button) bool {
	if b == ButtonLeft {
		return c.ZoomIn()
	}
	return c.ZoomOut()
}

// Wheel zooms one step per event: in for positive delta, out for negative.
func (c *Controller) Wheel(delta float64) bool {
	switch {
	case delta > 0:
		return c.ZoomIn()
	case delta < 0:
		return c.ZoomOut()
	}
	return false
}

// CrashState reports the current view for crash reports. It is safe on a nil Controller.
func (c *Controller) CrashState() crash.State {
	if c == nil {
		return crash.State{}
	}
	return crash.State{
		Image:     c.path,
		ImageSize: c.eng.Image(),
		Viewport:  c.eng.Viewport(),
		Display:   c.eng.Display(),
		Tool:      c.tool.String(),
	}
}

func (c *Controller) apply(op string, fn func() bool) bool {
	before := c.eng.Display()
	if !fn() {
		return false
	}
	c.record(before)
	c.host.RequestRedraw()
	c.showLabel()
	c.emit("view."+op, nil)
	return true
}

func (c *Controller) record(before geom.Rect) {
	if c.eng.Display() == before {
		return
	}
	c.hist.Push(history.Snapshot{Key: c.path, View: before, TS: c.now()})
}

func (c *Controller) showLabel() {
	if c.eng.Display().Empty() {
		return
	}
	c.host.ShowTransientLabel(c.eng.PercentLabel(), c.cfg.LabelDuration)
}

func (c *Controller) emit(name string, props map[string]any) {
	if c.cfg.Events == nil {
		return
	}
	if props == nil {
		props = make(map[string]any, 2)
	}
	props["percent"] = c.eng.Percent()
	props["tool"] = c.tool.String()
	c.cfg.Events.Event(name, props)
}

func (c *Controller) cancelGesture() {
	if c.gesture == gestureBand {
		c.eng.ClearSelection()
		c.host.DrawSelection(geom.Rect{})
	}
	c.gesture = gestureNone
}

// bandBounds is where a band corner may go: the image for zoom-in, the viewport for zoom-out.
func (c *Controller) bandBounds() geom.Rect {
	if c.tool == ToolZoomIn {
		return c.eng.Display()
	}
	return c.viewportRect()
}

func (c *Controller) viewportRect() geom.Rect { return c.eng.Viewport().Rect() }
