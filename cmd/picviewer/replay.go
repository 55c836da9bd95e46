/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"picviewer/internal/geom"
	"picviewer/internal/history"
	"picviewer/internal/viewer"
)

// step is one parsed replay operation.
type step struct {
	name string
	run  func(c *viewer.Controller) bool
}

// parseStep parses fit, native, in, out, back, forward, pan:DX,DY, band-in:X,Y,W,H
// and band-out:X,Y,W,H.
func parseStep(s string) (step, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")
	simple := map[string]func(c *viewer.Controller) bool{
		"fit":     (*viewer.Controller).Fit,
		"native":  (*viewer.Controller).Native,
		"in":      (*viewer.Controller).ZoomIn,
		"out":     (*viewer.Controller).ZoomOut,
		"back":    (*viewer.Controller).Back,
		"forward": (*viewer.Controller).Forward,
	}
	if fn, ok := simple[name]; ok {
		if hasArg {
			return step{}, fmt.Errorf("%s takes no argument", name)
		}
		return step{name: name, run: fn}, nil
	}
	switch name {
	case "pan":
		v, err := geom.ParseInts(arg, 2)
		if err != nil {
			return step{}, fmt.Errorf("pan: %w", err)
		}
		return step{name: s, run: func(c *viewer.Controller) bool { return c.Pan(v[0], v[1]) }}, nil
	case "band-in", "band-out":
		r, err := geom.ParseRect(arg)
		if err != nil {
			return step{}, fmt.Errorf("%s: %w", name, err)
		}
		if name == "band-in" {
			return step{name: s, run: func(c *viewer.Controller) bool { return c.BandZoomIn(r) }}, nil
		}
		return step{name: s, run: func(c *viewer.Controller) bool { return c.BandZoomOut(r) }}, nil
	}
	return step{}, fmt.Errorf("unknown operation %q", s)
}

// replay loads an image of size img into a viewport of size vp and applies ops in
// order, printing the display rectangle and zoom after each one.
func replay(ctx context.Context, w io.Writer, key string, img, vp geom.Size, ops []string) error {
	steps := make([]step, 0, len(ops))
	for _, op := range ops {
		st, err := parseStep(op)
		if err != nil {
			return err
		}
		steps = append(steps, st)
	}

	// every step is its own history entry
	hist := history.NewManager(history.Config{MaxPerKey: len(steps) + 1})
	c := viewer.NewController(vp, viewer.NopHost{}, viewer.ControllerConfig{History: hist})
	if err := c.Load(ctx, key, img); err != nil {
		return err
	}
	e := c.Engine()
	fmt.Fprintf(w, "%-20s %-8s %-24v %s\n", "load", "ok", e.Display(), e.PercentLabel())
	for _, st := range steps {
		res := "rejected"
		if st.run(c) {
			res = "ok"
		}
		fmt.Fprintf(w, "%-20s %-8s %-24v %s\n", st.name, res, e.Display(), e.PercentLabel())
	}
	return nil
}
