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
	"time"

	"picviewer/internal/geom"
	"picviewer/internal/storage"
)

// Host is the drawing surface a Controller drives. Calls arrive on the UI thread.
type Host interface {
	// RequestRedraw asks the host to blit the image into the current display rectangle.
	RequestRedraw()
	// ShowTransientLabel shows text (the zoom percentage) and hides it after d.
	ShowTransientLabel(text string, d time.Duration)
	// DrawSelection draws the rubber band; an empty rectangle hides it.
	DrawSelection(r geom.Rect)
}

// ViewStore persists the last view per image. *storage.Store implements it.
type ViewStore interface {
	SaveView(ctx context.Context, v storage.View) error
	LoadView(ctx context.Context, path string) (storage.View, error)
}

// EventSink receives anonymous usage events. *telemetry.Client implements it.
type EventSink interface {
	Event(name string, props map[string]any)
}

// NopHost ignores every call. It drives a Controller headless.
type NopHost struct{}

func (NopHost) RequestRedraw()                           {}
func (NopHost) ShowTransientLabel(string, time.Duration) {}
func (NopHost) DrawSelection(geom.Rect)                  {}
