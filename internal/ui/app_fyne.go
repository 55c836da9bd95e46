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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"picviewer/internal/crash"
	applog "picviewer/internal/log"
	"picviewer/internal/version"
	"picviewer/internal/viewer"
)

const recentMenuSize = 10

// Run starts the Fyne desktop viewer and blocks until the window is closed.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("file", opts.File))

	cfg := viewer.FromAppConfig(opts.Config)
	if opts.Store != nil {
		cfg.Store = opts.Store
	}
	cfg.Events = opts.Events

	view := NewImageView(cfg)
	ctrl := view.Controller()
	defer crash.Recover(ctrl.CrashState)

	fyneApp := app.NewWithID("picviewer")
	w := fyneApp.NewWindow("PicViewer")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1024)
	winH := prefs.IntWithFallback("window.height", 768)
	if winW < 400 {
		winW = 400
	}
	if winH < 300 {
		winH = 300
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	updateStatus := func() {
		if ctrl.Path() == "" {
			status.SetText("No image")
			w.SetTitle("PicViewer")
			return
		}
		e := ctrl.Engine()
		status.SetText(fmt.Sprintf("%s  %s  %s  %s", filepath.Base(ctrl.Path()), e.Image(), e.PercentLabel(), ctrl.Tool()))
		w.SetTitle("PicViewer - " + filepath.Base(ctrl.Path()))
	}
	view.OnChanged = updateStatus

	var rebuildMenu func()
	openFile := func(path string) {
		ctx := context.Background()
		if ctrl.Path() != "" {
			if err := view.Close(ctx); err != nil {
				l.Warn("close previous image", slog.Any("err", err))
			}
		}
		if err := view.Open(ctx, path); err != nil {
			l.Error("open image", slog.String("path", path), slog.Any("err", err))
			dialog.ShowError(err, w)
			updateStatus()
			return
		}
		updateStatus()
		rebuildMenu()
	}
	showOpen := func() {
		d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			openFile(path)
		}, w)
		d.SetFilter(fstorage.NewExtensionFileFilter(imageExtensions))
		d.Show()
	}
	closeImage := func() {
		if err := view.Close(context.Background()); err != nil {
			l.Warn("store view on close", slog.Any("err", err))
		}
		updateStatus()
		rebuildMenu()
	}

	// Tool selector
	toolNames := []string{viewer.ToolPan.String(), viewer.ToolZoomIn.String(), viewer.ToolZoomOut.String()}
	toolGroup := widget.NewRadioGroup(toolNames, func(s string) {
		t, err := viewer.ParseTool(s)
		if err != nil {
			return
		}
		ctrl.SetTool(t)
		updateStatus()
	})
	toolGroup.Horizontal = true
	toolGroup.Required = true
	toolGroup.SetSelected(ctrl.Tool().String())
	setTool := func(t viewer.Tool) { toolGroup.SetSelected(t.String()) }

	run := func(op func() bool) func() {
		return func() {
			op()
			updateStatus()
		}
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), showOpen),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomFitIcon(), run(ctrl.Fit)),
		widget.NewToolbarAction(theme.ViewRestoreIcon(), run(ctrl.Native)),
		widget.NewToolbarAction(theme.ZoomInIcon(), run(ctrl.ZoomIn)),
		widget.NewToolbarAction(theme.ZoomOutIcon(), run(ctrl.ZoomOut)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.NavigateBackIcon(), run(ctrl.Back)),
		widget.NewToolbarAction(theme.NavigateNextIcon(), run(ctrl.Forward)),
	)

	// Menus
	recentMenu := func() *fyne.Menu {
		m := fyne.NewMenu("Recent")
		if opts.Store == nil {
			return m
		}
		views, err := opts.Store.Recent(context.Background(), recentMenuSize)
		if err != nil {
			l.Warn("recent views", slog.Any("err", err))
			return m
		}
		for _, v := range views {
			path := v.Path
			m.Items = append(m.Items, fyne.NewMenuItem(filepath.Base(path), func() { openFile(path) }))
		}
		if len(m.Items) == 0 {
			item := fyne.NewMenuItem("(empty)", nil)
			item.Disabled = true
			m.Items = append(m.Items, item)
		}
		return m
	}
	rebuildMenu = func() {
		openItem := fyne.NewMenuItem("Open…", showOpen)
		recentItem := fyne.NewMenuItem("Open Recent", nil)
		recentItem.ChildMenu = recentMenu()
		closeItem := fyne.NewMenuItem("Close Image", closeImage)
		closeItem.Disabled = ctrl.Path() == ""
		fileMenu := fyne.NewMenu("File", openItem, recentItem, fyne.NewMenuItemSeparator(), closeItem)

		backItem := fyne.NewMenuItem("Back", run(ctrl.Back))
		forwardItem := fyne.NewMenuItem("Forward", run(ctrl.Forward))
		viewMenu := fyne.NewMenu("View",
			fyne.NewMenuItem("Fit to Window", run(ctrl.Fit)),
			fyne.NewMenuItem("Actual Size", run(ctrl.Native)),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Zoom In", run(ctrl.ZoomIn)),
			fyne.NewMenuItem("Zoom Out", run(ctrl.ZoomOut)),
			fyne.NewMenuItemSeparator(),
			backItem, forwardItem,
		)

		toolMenu := fyne.NewMenu("Tool",
			fyne.NewMenuItem("Pan", func() { setTool(viewer.ToolPan) }),
			fyne.NewMenuItem("Zoom In Band", func() { setTool(viewer.ToolZoomIn) }),
			fyne.NewMenuItem("Zoom Out Band", func() { setTool(viewer.ToolZoomOut) }),
		)

		helpMenu := fyne.NewMenu("Help", fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About PicViewer", "PicViewer "+version.String(), w)
		}))
		w.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, toolMenu, helpMenu))
	}
	rebuildMenu()

	// Keyboard shortcuts
	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case '+', '=':
			run(ctrl.ZoomIn)()
		case '-':
			run(ctrl.ZoomOut)()
		case '0':
			run(ctrl.Native)()
		case 'f':
			run(ctrl.Fit)()
		case 'p':
			setTool(viewer.ToolPan)
		case 'z':
			setTool(viewer.ToolZoomIn)
		case 'x':
			setTool(viewer.ToolZoomOut)
		case '[':
			run(ctrl.Back)()
		case ']':
			run(ctrl.Forward)()
		}
	})

	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		for _, u := range uris {
			if isImageFile(u.Path()) {
				openFile(u.Path())
				return
			}
		}
	})

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := view.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.Warn("store view on exit", slog.Any("err", err))
		}
		w.Close()
	})

	top := container.NewBorder(nil, nil, toolbar, toolGroup)
	w.SetContent(container.NewBorder(top, status, nil, nil, view))
	updateStatus()

	if opts.File != "" {
		file := opts.File
		view.AfterSized(func() { openFile(file) })
	}

	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}
