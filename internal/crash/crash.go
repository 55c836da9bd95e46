/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file that names the image and view on screen.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"picviewer/internal/geom"
	applog "picviewer/internal/log"
	"picviewer/internal/telemetry"
	"picviewer/internal/version"
)

// State is what the viewer showed when the panic happened.
type State struct {
	Image     string
	ImageSize geom.Size
	Viewport  geom.Size
	Display   geom.Rect
	Tool      string
}

// StateFunc reports the current State. It may be nil.
type StateFunc func() State

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// reportDir is where crash reports go; overridden in tests.
var reportDir = func() string {
	if d, err := os.UserCacheDir(); err == nil {
		return filepath.Join(d, "picviewer", "crash")
	}
	return os.TempDir()
}

// Recover captures a panic, logs it with its stack, writes a report file,
// uploads it when telemetry is opted in and exits with code 2.
//
// Usage: defer crash.Recover(ctrl.CrashState)
func Recover(state StateFunc) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	st := safeState(state)
	reportPath, err := writeReport(st, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

// safeState calls fn, tolerating a second panic from a half-broken viewer.
func safeState(fn StateFunc) (st State) {
	if fn == nil {
		return State{}
	}
	defer func() {
		if recover() != nil {
			st = State{}
		}
	}()
	return fn()
}

func writeReport(st State, panicVal any, stack []byte) (string, error) {
	dir := reportDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = os.TempDir()
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PicViewer Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if st.Image != "" {
		_, _ = fmt.Fprintf(&buf, "Image: %s (%v)\n", st.Image, st.ImageSize)
	}
	if !st.Viewport.Empty() {
		_, _ = fmt.Fprintf(&buf, "Viewport: %v\n", st.Viewport)
		_, _ = fmt.Fprintf(&buf, "Display: %v\n", st.Display)
	}
	if st.Tool != "" {
		_, _ = fmt.Fprintf(&buf, "Tool: %s\n", st.Tool)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// Uploads omit the image path.
	st.Image = filepath.Ext(st.Image)
	telemetry.Default().UploadCrash(anonymized(buf.Bytes(), st))
	return path, nil
}

func anonymized(report []byte, st State) []byte {
	i := bytes.Index(report, []byte("Image: "))
	if i < 0 {
		return report
	}
	j := bytes.IndexByte(report[i:], '\n')
	if j < 0 {
		return report
	}
	line := fmt.Sprintf("Image: *%s (%v)", st.Image, st.ImageSize)
	out := append([]byte(nil), report[:i]...)
	out = append(out, line...)
	return append(out, report[i+j:]...)
}
