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
	"math/rand/v2"
	"testing"

	"picviewer/internal/geom"
)

func loaded(t *testing.T, vp, img geom.Size) *Engine {
	t.Helper()
	e := NewEngine(vp, DefaultOptions())
	if !e.Load(img) {
		t.Fatalf("Load(%v) rejected", img)
	}
	return e
}

func within(a, b geom.Rect, tol int) bool {
	d := func(x, y int) bool { return x-y <= tol && y-x <= tol }
	return d(a.X, b.X) && d(a.Y, b.Y) && d(a.W, b.W) && d(a.H, b.H)
}

func TestFitToView_Cases(t *testing.T) {
	vp := geom.Sz(400, 300)
	cases := []struct {
		name string
		img  geom.Size
		want geom.Rect
	}{
		{"same aspect larger", geom.Sz(800, 600), geom.R(0, 0, 400, 300)},
		{"smaller both axes", geom.Sz(100, 80), geom.R(150, 110, 100, 80)},
		{"taller only", geom.Sz(300, 600), geom.R(125, 0, 150, 300)},
		{"wider only", geom.Sz(1000, 100), geom.R(0, 130, 400, 40)},
		{"larger both, height dominates", geom.Sz(800, 1200), geom.R(100, 0, 200, 300)},
		{"larger both, width dominates", geom.Sz(1600, 600), geom.R(0, 75, 400, 150)},
		{"exact viewport", geom.Sz(400, 300), geom.R(0, 0, 400, 300)},
		{"full height, narrower", geom.Sz(200, 300), geom.R(100, 0, 200, 300)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, vp, tc.img)
			if got := e.Display(); got != tc.want {
				t.Fatalf("fit %v: got %v want %v", tc.img, got, tc.want)
			}
		})
	}
}

func TestFitToView_Idempotent(t *testing.T) {
	for _, img := range []geom.Size{geom.Sz(800, 600), geom.Sz(123, 457), geom.Sz(3000, 7), geom.Sz(50, 50)} {
		e := loaded(t, geom.Sz(400, 300), img)
		e.StepZoomIn()
		e.FitToView()
		first := e.Display()
		e.FitToView()
		if e.Display() != first {
			t.Fatalf("%v: second fit moved display %v -> %v", img, first, e.Display())
		}
	}
}

func TestFitToView_NeverDegenerate(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(100000, 10))
	if e.Display().Empty() {
		t.Fatalf("extreme aspect produced empty display %v", e.Display())
	}
	if e.Display().H != 1 {
		t.Fatalf("expected height raised to 1, got %v", e.Display())
	}
}

func TestNativeView(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(100, 80))
	fit := e.Display()
	if !e.NativeView() {
		t.Fatalf("NativeView rejected")
	}
	if e.Display() != fit || fit != geom.R(150, 110, 100, 80) {
		t.Fatalf("small image: native %v, fit %v", e.Display(), fit)
	}
	if e.Percent() != 100 || e.PercentLabel() != "100%" {
		t.Fatalf("percent = %d (%q)", e.Percent(), e.PercentLabel())
	}

	e = loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	e.NativeView()
	if got, want := e.Display(), geom.R(-200, -150, 800, 600); got != want {
		t.Fatalf("large image: got %v want %v", got, want)
	}

	// mixed: wider than the viewport, shorter than it
	e = loaded(t, geom.Sz(400, 300), geom.Sz(901, 100))
	e.NativeView()
	if got, want := e.Display(), geom.R(-250, 100, 901, 100); got != want {
		t.Fatalf("mixed: got %v want %v", got, want)
	}
}

func TestStepZoom_FromFit(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	if e.PercentLabel() != "50%" {
		t.Fatalf("fit label = %q", e.PercentLabel())
	}
	if !e.StepZoomIn() {
		t.Fatalf("StepZoomIn rejected")
	}
	if got, want := e.Display(), geom.R(-40, -30, 480, 360); !within(got, want, 1) {
		t.Fatalf("zoom in: got %v want %v", got, want)
	}
	if e.Percent() != 60 {
		t.Fatalf("percent after zoom in = %d", e.Percent())
	}
	if !e.StepZoomOut() {
		t.Fatalf("StepZoomOut rejected")
	}
	if got, want := e.Display(), geom.R(0, 0, 400, 300); !within(got, want, 1) {
		t.Fatalf("zoom out: got %v want %v", got, want)
	}
}

func TestStepZoom_RoundTrip(t *testing.T) {
	imgs := []geom.Size{
		geom.Sz(800, 600), geom.Sz(100, 80), geom.Sz(1000, 100),
		geom.Sz(300, 600), geom.Sz(123, 457), geom.Sz(4000, 3000),
	}
	for _, img := range imgs {
		e := loaded(t, geom.Sz(400, 300), img)
		before := e.Display()
		if !e.StepZoomIn() || !e.StepZoomOut() {
			t.Fatalf("%v: step zoom rejected", img)
		}
		if !within(e.Display(), before, 1) {
			t.Fatalf("%v: round trip %v -> %v", img, before, e.Display())
		}
	}
}

func TestStepZoomIn_MagnificationLimit(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(100, 80))
	steps := 0
	for e.StepZoomIn() {
		steps++
		if steps > 50 {
			t.Fatalf("zoom in never hit its limit")
		}
	}
	d := e.Display()
	if float64(d.W)/100 > 5 || float64(d.H)/80 > 5 {
		t.Fatalf("magnified past 5x: %v", d)
	}
	if float64(d.W)*1.2/100 <= 5 && float64(d.H)*1.2/80 <= 5 {
		t.Fatalf("stopped early at %v after %d steps", d, steps)
	}
	if e.StepZoomIn() || e.Display() != d {
		t.Fatalf("rejected zoom changed state")
	}
}

func TestStepZoomOut_MinificationLimit(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	steps := 0
	for e.StepZoomOut() {
		steps++
		if steps > 50 {
			t.Fatalf("zoom out never hit its limit")
		}
	}
	d := e.Display()
	if d.W*5 < 800 || d.H*5 < 600 {
		t.Fatalf("shrunk below 1/5 of native: %v", d)
	}
	if float64(d.W)/1.2/800 >= 0.2 && float64(d.H)/1.2/600 >= 0.2 {
		t.Fatalf("stopped early at %v after %d steps", d, steps)
	}
	if want := geom.R((400-d.W)/2, (300-d.H)/2, d.W, d.H); !within(d, want, 1) {
		t.Fatalf("small display not centered: %v", d)
	}
	if e.StepZoomOut() || e.Display() != d {
		t.Fatalf("rejected zoom changed state")
	}
}

// The floor is relative to the image, so a small image fitted at 100% still
// shrinks several steps.
func TestStepZoomOut_SmallImageReachesFloor(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(100, 80))
	steps := 0
	for e.StepZoomOut() {
		steps++
	}
	if steps < 5 {
		t.Fatalf("only %d zoom out steps from 100%%", steps)
	}
	if p := e.Percent(); p < 20 || p > 25 {
		t.Fatalf("stopped at %d%%", p)
	}
}

func TestStepZoom_ExtremeAspectZoomsBackOut(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(1000, 100))
	if e.Display() != geom.R(0, 130, 400, 40) {
		t.Fatalf("fit = %v", e.Display())
	}
	if !e.StepZoomIn() || !within(e.Display(), geom.R(-40, 126, 480, 48), 1) {
		t.Fatalf("zoom in = %v", e.Display())
	}
	if !e.StepZoomOut() || !within(e.Display(), geom.R(0, 130, 400, 40), 1) {
		t.Fatalf("zoom out = %v", e.Display())
	}
}

func TestStepZoomOut_ClampsLargeDisplay(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	if !e.Restore(geom.R(-400, -300, 800, 600)) {
		t.Fatalf("Restore rejected")
	}
	e.StepZoomOut()
	d := e.Display()
	if want := geom.R(-266, -200, 666, 500); !within(d, want, 1) {
		t.Fatalf("got %v want %v", d, want)
	}
	if d.X > 0 || d.Y > 0 || d.Right() < 400 || d.Bottom() < 300 {
		t.Fatalf("viewport not covered by %v", d)
	}
}

func TestRubberBandZoomIn_Quadrant(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	e.SetSelection(geom.R(200, 150, 200, 150))
	if !e.RubberBandZoomIn(e.Selection()) {
		t.Fatalf("band zoom rejected")
	}
	if got, want := e.Display(), geom.R(-400, -300, 800, 600); !within(got, want, 1) {
		t.Fatalf("got %v want %v", got, want)
	}
	if !e.Selection().Empty() {
		t.Fatalf("selection not cleared: %v", e.Selection())
	}
}

func TestRubberBandZoomIn_WholeVisibleArea(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	before := e.Display()
	e.RubberBandZoomIn(before)
	if e.Display() != before {
		t.Fatalf("zoom to whole display: %v -> %v", before, e.Display())
	}

	e.StepZoomIn()
	before = e.Display()
	e.RubberBandZoomIn(geom.R(0, 0, 400, 300))
	if !within(e.Display(), before, 1) {
		t.Fatalf("zoom to whole viewport: %v -> %v", before, e.Display())
	}
}

func TestRubberBandZoomIn_NonMatchingAspect(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	// a 100x150 box fills the viewport height and is centered horizontally
	e.RubberBandZoomIn(geom.R(0, 0, 100, 150))
	if got, want := e.Display(), geom.R(100, 0, 800, 600); !within(got, want, 1) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRubberBandZoomIn_Rejections(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(100, 80))
	before := e.Display()
	for _, sel := range []geom.Rect{
		{},
		geom.R(10, 10, 0, 40),
		geom.R(0, 0, 50, 50),    // misses the centered image
		geom.R(500, 10, 20, 20), // outside the viewport
	} {
		if e.RubberBandZoomIn(sel) {
			t.Fatalf("selection %v accepted", sel)
		}
		if e.Display() != before {
			t.Fatalf("rejected %v changed display to %v", sel, e.Display())
		}
	}

	// a tiny box on a native-size image would push display past 10x the viewport
	e = loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	e.NativeView()
	before = e.Display()
	if e.RubberBandZoomIn(geom.R(198, 148, 4, 3)) || e.Display() != before {
		t.Fatalf("runaway magnification accepted: %v", e.Display())
	}
}

func TestRubberBandZoomOut(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	if !e.RubberBandZoomOut(geom.R(100, 75, 200, 150)) {
		t.Fatalf("band zoom out rejected")
	}
	if got, want := e.Display(), geom.R(100, 75, 200, 150); !within(got, want, 1) {
		t.Fatalf("got %v want %v", got, want)
	}

	before := e.Display()
	if e.RubberBandZoomOut(geom.R(0, 0, 8, 6)) || e.Display() != before {
		t.Fatalf("runaway minification accepted: %v", e.Display())
	}
	if !e.Selection().Empty() {
		t.Fatalf("selection not cleared after rejection")
	}
}

func TestRubberBand_InThenOutRestores(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	start := e.Display()
	sel := geom.R(200, 150, 200, 150)
	e.RubberBandZoomIn(sel)
	e.RubberBandZoomOut(sel)
	if !within(e.Display(), start, 1) {
		t.Fatalf("got %v want %v", e.Display(), start)
	}
}

func TestPan(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	if e.Pan(0, 0) {
		t.Fatalf("zero pan reported a change")
	}
	if !e.Pan(10, -5) || e.Display() != geom.R(10, -5, 400, 300) {
		t.Fatalf("pan: %v", e.Display())
	}
	if !e.Pan(389, 0) || e.Display().X != 399 {
		t.Fatalf("pan to edge: %v", e.Display())
	}
	before := e.Display()
	if e.Pan(1, 0) || e.Display() != before {
		t.Fatalf("pan off screen accepted: %v", e.Display())
	}
	if e.Pan(-2000, 0) || e.Display() != before {
		t.Fatalf("pan far off screen accepted: %v", e.Display())
	}
}

func TestNoImage(t *testing.T) {
	e := NewEngine(geom.Sz(400, 300), DefaultOptions())
	ops := map[string]func() bool{
		"fit":      e.FitToView,
		"native":   e.NativeView,
		"in":       e.StepZoomIn,
		"out":      e.StepZoomOut,
		"band_in":  func() bool { return e.RubberBandZoomIn(geom.R(0, 0, 10, 10)) },
		"band_out": func() bool { return e.RubberBandZoomOut(geom.R(0, 0, 10, 10)) },
		"pan":      func() bool { return e.Pan(3, 3) },
		"restore":  func() bool { return e.Restore(geom.R(0, 0, 10, 10)) },
	}
	for name, op := range ops {
		if op() {
			t.Fatalf("%s accepted without an image", name)
		}
	}
	if e.Percent() != 0 || !e.Display().Empty() || !e.Source().Empty() {
		t.Fatalf("unexpected state %v %d", e.Display(), e.Percent())
	}
	if e.Load(geom.Sz(0, 10)) {
		t.Fatalf("empty image accepted")
	}
}

func TestLoadUnloadResize(t *testing.T) {
	e := NewEngine(geom.Size{}, DefaultOptions())
	if !e.Load(geom.Sz(800, 600)) || !e.Display().Empty() {
		t.Fatalf("load without viewport: %v", e.Display())
	}
	if !e.Resize(geom.Sz(400, 300)) || e.Display() != geom.R(0, 0, 400, 300) {
		t.Fatalf("first resize should fit: %v", e.Display())
	}
	e.Pan(5, 5)
	if !e.Resize(geom.Sz(200, 200)) || e.Display() != geom.R(5, 5, 400, 300) {
		t.Fatalf("resize moved display: %v", e.Display())
	}
	if e.Resize(geom.Sz(0, 0)) || e.Viewport() != geom.Sz(200, 200) {
		t.Fatalf("empty viewport accepted")
	}
	if e.Source() != geom.R(0, 0, 800, 600) {
		t.Fatalf("source = %v", e.Source())
	}
	e.SetSelection(geom.R(1, 1, 5, 5))
	e.Unload()
	if e.Loaded() || !e.Display().Empty() || !e.Selection().Empty() {
		t.Fatalf("unload left state behind")
	}
}

func TestOptions_Sanitized(t *testing.T) {
	e := NewEngine(geom.Sz(10, 10), Options{StepFactor: 0.5, StepLimit: -1})
	if e.Options() != DefaultOptions() {
		t.Fatalf("got %+v", e.Options())
	}
	o := Options{StepFactor: 1.5, StepLimit: 8, BandMinRatio: 0.2, BandMaxRatio: 4}
	if NewEngine(geom.Sz(10, 10), o).Options() != o {
		t.Fatalf("valid options replaced")
	}
}

func TestFillRect(t *testing.T) {
	vp := geom.Sz(400, 300).Vec()
	wide := FillRect(geom.R(0, 0, 100, 25).Float(), vp)
	if wide.Trunc() != geom.R(0, 100, 400, 100) {
		t.Fatalf("wide: %v", wide.Trunc())
	}
	tall := FillRect(geom.R(0, 0, 30, 60).Float(), vp)
	if tall.Trunc() != geom.R(125, 0, 150, 300) {
		t.Fatalf("tall: %v", tall.Trunc())
	}
}

// Random operation sequences must never leave a degenerate or off-screen display.
func TestEngine_RandomSequencesKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	vp := geom.Sz(400, 300)
	for _, img := range []geom.Size{geom.Sz(800, 600), geom.Sz(64, 48), geom.Sz(2000, 150)} {
		e := loaded(t, vp, img)
		for i := 0; i < 2000; i++ {
			w, h := 8+r.IntN(vp.W-8), 8+r.IntN(vp.H-8)
			sel := geom.R(r.IntN(vp.W-w+1), r.IntN(vp.H-h+1), w, h)
			switch r.IntN(7) {
			case 0:
				e.StepZoomIn()
			case 1:
				e.StepZoomOut()
			case 2:
				e.RubberBandZoomIn(sel)
			case 3:
				e.RubberBandZoomOut(sel)
			case 4:
				e.Pan(r.IntN(401)-200, r.IntN(301)-150)
			case 5:
				e.NativeView()
			default:
				if r.IntN(10) == 0 {
					e.FitToView()
				}
			}
			d := e.Display()
			if d.Empty() || !d.Overlaps(vp.Rect()) {
				t.Fatalf("%v step %d: invalid display %v", img, i, d)
			}
			if !e.Selection().Empty() {
				t.Fatalf("%v step %d: selection left behind", img, i)
			}
		}
	}
}

func TestResize_RefitsWhenDisplayLeavesViewport(t *testing.T) {
	e := loaded(t, geom.Sz(400, 300), geom.Sz(800, 600))
	if !e.Pan(350, 250) || e.Display() != geom.R(350, 250, 400, 300) {
		t.Fatalf("pan = %v", e.Display())
	}
	if !e.Resize(geom.Sz(200, 150)) {
		t.Fatalf("resize rejected")
	}
	if got, want := e.Display(), geom.R(0, 0, 200, 150); got != want {
		t.Fatalf("display after shrink = %v, want %v", got, want)
	}
	if !e.Pan(10, 0) {
		t.Fatalf("pan after resize rejected")
	}
}
