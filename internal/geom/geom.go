/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package geom holds the pixel geometry shared by the viewer engine and its hosts.
// Rect and Point are integer viewport/image pixels; FRect carries the float64
// intermediate values used while a transform is being solved.
package geom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a pixel position.
type Point struct{ X, Y int }

func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Size is a pixel width/height pair.
type Size struct{ W, H int }

func Sz(w, h int) Size { return Size{W: w, H: h} }

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Rect returns the rectangle (0,0,W,H).
func (s Size) Rect() Rect { return Rect{W: s.W, H: s.H} }

func (s Size) Vec() r2.Vec { return r2.Vec{X: float64(s.W), Y: float64(s.H)} }

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
// The origin may be negative; the size is meaningful only when positive.
type Rect struct {
	X, Y int
	W, H int
}

func R(x, y, w, h int) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// FromPoints builds the normalised rectangle spanned by two corners,
// independent of drag direction.
func FromPoints(a, b Point) Rect {
	x0, x1 := a.X, b.X
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := a.Y, b.Y
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Empty() bool   { return r.W <= 0 || r.H <= 0 }
func (r Rect) Right() int    { return r.X + r.W }
func (r Rect) Bottom() int   { return r.Y + r.H }
func (r Rect) Min() Point    { return Point{r.X, r.Y} }
func (r Rect) Size() Size    { return Size{r.W, r.H} }
func (r Rect) Center() Point { return Point{r.X + r.W/2, r.Y + r.H/2} }

// Contains reports whether p lies inside r; the right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Overlaps reports whether r and o share a region of positive area.
func (r Rect) Overlaps(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return o.X < r.Right() && r.X < o.Right() && o.Y < r.Bottom() && r.Y < o.Bottom()
}

// Intersect returns the overlap of r and o, or the zero Rect if they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.Right(), o.Right())
	y1 := min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Clamp moves p onto r, treating both edges as inclusive.
func (r Rect) Clamp(p Point) Point {
	p.X = min(max(p.X, r.X), r.Right())
	p.Y = min(max(p.Y, r.Y), r.Bottom())
	return p
}

func (r Rect) Float() FRect {
	return FRect{
		Min:  r2.Vec{X: float64(r.X), Y: float64(r.Y)},
		Size: r2.Vec{X: float64(r.W), Y: float64(r.H)},
	}
}

func (r Rect) String() string { return fmt.Sprintf("(%d,%d,%d,%d)", r.X, r.Y, r.W, r.H) }

// FRect is the float64 counterpart of Rect.
type FRect struct {
	Min  r2.Vec
	Size r2.Vec
}

// Valid reports whether every component is finite and the size is positive.
func (f FRect) Valid() bool {
	for _, v := range []float64{f.Min.X, f.Min.Y, f.Size.X, f.Size.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return f.Size.X > 0 && f.Size.Y > 0
}

// Trunc converts to pixels, truncating every component toward zero.
func (f FRect) Trunc() Rect {
	return Rect{
		X: int(math.Trunc(f.Min.X)),
		Y: int(math.Trunc(f.Min.Y)),
		W: int(math.Trunc(f.Size.X)),
		H: int(math.Trunc(f.Size.Y)),
	}
}

// Mul multiplies a and b component-wise.
func Mul(a, b r2.Vec) r2.Vec { return r2.Vec{X: a.X * b.X, Y: a.Y * b.Y} }

// Div divides a by b component-wise.
func Div(a, b r2.Vec) r2.Vec { return r2.Vec{X: a.X / b.X, Y: a.Y / b.Y} }

var errBadFormat = errors.New("bad geometry format")

// ParseSize parses "WxH", e.g. "800x600".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("size %q: %w", s, errBadFormat)
	}
	wi, err1 := strconv.Atoi(w)
	hi, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return Size{}, fmt.Errorf("size %q: %w", s, errBadFormat)
	}
	return Size{W: wi, H: hi}, nil
}

// ParseInts parses n comma separated integers, e.g. "10,-5".
func ParseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%q: want %d values: %w", s, n, errBadFormat)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, errBadFormat)
		}
		out[i] = v
	}
	return out, nil
}

// ParseRect parses "X,Y,W,H".
func ParseRect(s string) (Rect, error) {
	v, err := ParseInts(s, 4)
	if err != nil {
		return Rect{}, err
	}
	return R(v[0], v[1], v[2], v[3]), nil
}
