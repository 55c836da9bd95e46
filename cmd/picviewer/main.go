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
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"picviewer/internal/config"
	"picviewer/internal/crash"
	"picviewer/internal/geom"
	"picviewer/internal/imageinfo"
	applog "picviewer/internal/log"
	"picviewer/internal/storage"
	"picviewer/internal/telemetry"
	"picviewer/internal/ui"
	"picviewer/internal/version"
	"picviewer/internal/viewer"
)

var defaultViewport = geom.Sz(800, 600)

func usage() {
	fmt.Println("PicViewer")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  picviewer version|-v|--version             Show version")
	fmt.Println("  picviewer probe <file> [WxH]               Print image size and the fit/native views for a viewport")
	fmt.Println("  picviewer replay <file> <WxH> <op>...      Apply view operations and print each result")
	fmt.Println("                                             ops: fit native in out back forward pan:DX,DY")
	fmt.Println("                                                  band-in:X,Y,W,H band-out:X,Y,W,H")
	fmt.Println("  picviewer history [n]                      List the most recently viewed images")
	fmt.Println("  picviewer forget-password                  Remove the history database password from the keyring")
	fmt.Println("  picviewer ui [<file>]                      Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	cfg, dbPassword, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.New(tcfg)
	telemetry.SetDefault(tel)
	defer tel.Close()

	// the UI installs its own handler with the current view
	defer crash.Recover(nil)

	ctx := context.Background()
	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("PicViewer")
			fmt.Println(version.String())
			return
		case "probe":
			if len(args) < 3 {
				fmt.Println("probe requires <file>")
				usage()
				os.Exit(2)
			}
			vp := defaultViewport
			if len(args) >= 4 {
				s, err := geom.ParseSize(args[3])
				if err != nil {
					fmt.Println("Error:", err)
					os.Exit(2)
				}
				vp = s
			}
			if err := probe(args[2], vp); err != nil {
				l.Error("probe failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "replay":
			if len(args) < 4 {
				fmt.Println("replay requires <file> and <WxH>")
				usage()
				os.Exit(2)
			}
			vp, err := geom.ParseSize(args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(2)
			}
			info, err := imageinfo.Probe(args[2])
			if err != nil {
				l.Error("probe failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if err := replay(ctx, os.Stdout, args[2], info.Size, vp, args[4:]); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "history":
			limit := 20
			if len(args) >= 3 {
				n, err := strconv.Atoi(args[2])
				if err != nil || n <= 0 {
					fmt.Println("history takes a positive count")
					os.Exit(2)
				}
				limit = n
			}
			store, err := openStore(ctx, cfg, dbPassword)
			if err != nil {
				l.Error("open history failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer store.Close()
			views, err := store.Recent(ctx, limit)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			for _, v := range views {
				fmt.Printf("%s  %-10v %-22v %s\n", v.UpdatedAt.Format(time.DateTime), v.Image, v.Display, v.Path)
			}
			return
		case "forget-password":
			if err := config.ForgetDBPassword(); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Removed stored history database password.")
			return
		case "ui":
			opts := ui.Options{Config: cfg}
			if len(args) >= 3 {
				abs, _ := filepath.Abs(args[2])
				opts.File = abs
			}
			store, err := openStore(ctx, cfg, dbPassword)
			if err != nil {
				// the viewer works without history; it just won't remember views
				l.Warn("history unavailable", slog.Any("err", err))
			} else {
				defer store.Close()
				opts.Store = store
			}
			if tel.Enabled() {
				opts.Events = tel
			}
			if err := ui.Run(opts); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// probe prints what the viewer would show for the image at path in a viewport of size vp.
func probe(path string, vp geom.Size) error {
	if vp.Empty() {
		return fmt.Errorf("viewport %v is empty", vp)
	}
	info, err := imageinfo.Probe(path)
	if err != nil {
		return err
	}
	e := viewer.NewEngine(vp, viewer.DefaultOptions())
	if !e.Load(info.Size) {
		return viewer.ErrInvalidImage
	}
	fmt.Printf("File:     %s\n", path)
	fmt.Printf("Format:   %s\n", info.Format)
	fmt.Printf("Size:     %v\n", info.Size)
	fmt.Printf("Viewport: %v\n", vp)
	fmt.Printf("Fit:      %v %s\n", e.Display(), e.PercentLabel())
	e.NativeView()
	fmt.Printf("Native:   %v %s\n", e.Display(), e.PercentLabel())
	return nil
}

// openStore opens the view history database and trims it to the configured size.
func openStore(ctx context.Context, cfg config.AppConfig, password string) (*storage.Store, error) {
	dsn, err := config.ResolveHistoryDSN(cfg.History, password)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if cfg.History.KeepViews > 0 {
		if n, err := store.Prune(ctx, cfg.History.KeepViews); err != nil {
			applog.WithComponent("cli").Warn("prune history", slog.Any("err", err))
		} else if n > 0 {
			applog.WithComponent("cli").Debug("pruned history", slog.Int64("removed", n))
		}
	}
	return store, nil
}
