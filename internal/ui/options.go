/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui is the desktop image viewer. The Fyne implementation is built with -tags fyne
// and cgo; other builds get a stub so CI remains headless.
package ui

import (
	"path/filepath"
	"strings"

	"picviewer/internal/config"
	"picviewer/internal/storage"
	"picviewer/internal/viewer"
)

// Options configures Run.
type Options struct {
	// File is opened at start-up when set.
	File string
	// Config supplies viewer and history settings.
	Config config.AppConfig
	// Store remembers views across sessions. It may be nil.
	Store *storage.Store
	// Events receives anonymous usage events. It may be nil.
	Events viewer.EventSink
}

// imageExtensions are the file types offered by the open dialog.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// isImageFile reports whether name has one of imageExtensions.
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
