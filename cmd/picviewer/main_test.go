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
	"bytes"
	"context"
	"strings"
	"testing"

	"picviewer/internal/geom"
)

func TestParseStep(t *testing.T) {
	good := []string{"fit", "native", "in", "out", "back", "forward", "pan:10,-5", "band-in:0,0,20,10", "band-out:1,2,3,4"}
	for _, s := range good {
		if _, err := parseStep(s); err != nil {
			t.Errorf("parseStep(%q): %v", s, err)
		}
	}
	bad := []string{"", "zoom", "fit:1", "pan", "pan:1", "pan:a,b", "band-in:1,2,3", "band-out:x"}
	for _, s := range bad {
		if _, err := parseStep(s); err == nil {
			t.Errorf("parseStep(%q) succeeded", s)
		}
	}
}

func TestReplay(t *testing.T) {
	var out bytes.Buffer
	ops := []string{"in", "pan:10,5", "back", "back", "forward", "pan:0,0", "back", "band-in:0,0,200,150"}
	if err := replay(context.Background(), &out, "a.png", geom.Sz(800, 600), geom.Sz(400, 300), ops); err != nil {
		t.Fatalf("replay: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(ops)+1 {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(ops)+1, out.String())
	}
	want := []struct{ res, rect, pct string }{
		{"ok", "(0,0,400,300)", "50%"},
		{"ok", "(-40,-30,480,360)", "60%"},
		{"ok", "(-30,-25,480,360)", "60%"},
		{"ok", "(-40,-30,480,360)", "60%"},
		{"ok", "(0,0,400,300)", "50%"},
		{"ok", "(-40,-30,480,360)", "60%"},
		{"rejected", "(-40,-30,480,360)", "60%"},
		{"ok", "(0,0,400,300)", "50%"},
		{"ok", "(0,0,800,600)", "100%"},
	}
	for i, w := range want {
		f := strings.Fields(lines[i])
		if len(f) != 4 || f[1] != w.res || f[2] != w.rect || f[3] != w.pct {
			t.Errorf("line %d = %q, want %s %s %s", i, lines[i], w.res, w.rect, w.pct)
		}
	}
}

func TestReplayRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	if err := replay(context.Background(), &out, "a.png", geom.Sz(800, 600), geom.Sz(400, 300), []string{"spin"}); err == nil {
		t.Fatal("expected error for unknown op")
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed before ops parse, got %q", out.String())
	}
	if err := replay(context.Background(), &out, "a.png", geom.Sz(0, 600), geom.Sz(400, 300), nil); err == nil {
		t.Fatal("expected error for empty image")
	}
}
