/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps back/forward stacks of display rectangles per image,
// so a user can step through previous views the way a browser steps through pages.
package history

import (
	"sync"
	"time"

	"picviewer/internal/geom"
)

// Snapshot is one remembered view of an image.
type Snapshot struct {
	Key  string // image path
	View geom.Rect
	TS   time.Time
}

// Config controls depth caps and coalescing.
type Config struct {
	// MaxPerKey limits the back stack per image (0 means unlimited).
	MaxPerKey int
	// MaxEntries caps back entries across all images; the oldest are pruned first.
	MaxEntries int
	// MinInterval coalesces pushes for the same image that arrive within the interval:
	// a burst of wheel steps becomes a single history entry.
	MinInterval time.Duration
}

// Manager holds per-image back and forward stacks. It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	back map[string][]Snapshot
	fwd  map[string][]Snapshot

	// count of back entries over all keys
	total int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, back: make(map[string][]Snapshot), fwd: make(map[string][]Snapshot)}
}

// Push records the view that is about to be replaced. A push within MinInterval of
// the previous one for the same key is dropped, keeping the view from before the
// burst. Any push clears the forward stack for the key.
func (m *Manager) Push(s Snapshot) {
	if s.Key == "" || s.View.Empty() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fwd[s.Key] = nil
	stack := m.back[s.Key]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if last.View == s.View {
			return
		}
		if m.cfg.MinInterval > 0 && s.TS.Sub(last.TS) < m.cfg.MinInterval {
			stack[n-1].TS = s.TS
			return
		}
	}
	m.back[s.Key] = append(stack, s)
	m.total++
	m.enforceCapsLocked(s.Key)
}

// Back pops the most recent view for key and pushes current onto the forward stack.
func (m *Manager) Back(key string, current geom.Rect) (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.back[key]
	if len(stack) == 0 {
		return geom.Rect{}, false
	}
	s := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(m.back, key)
	} else {
		m.back[key] = stack[:len(stack)-1]
	}
	m.total--
	m.fwd[key] = append(m.fwd[key], Snapshot{Key: key, View: current, TS: time.Now()})
	return s.View, true
}

// Forward re-applies a view undone by Back, pushing current back onto the back stack.
func (m *Manager) Forward(key string, current geom.Rect) (geom.Rect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.fwd[key]
	if len(f) == 0 {
		return geom.Rect{}, false
	}
	s := f[len(f)-1]
	m.fwd[key] = f[:len(f)-1]
	m.back[key] = append(m.back[key], Snapshot{Key: key, View: current, TS: time.Now()})
	m.total++
	m.enforceCapsLocked(key)
	return s.View, true
}

// CanBack reports whether Back would succeed for key.
func (m *Manager) CanBack(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.back[key]) > 0
}

// CanForward reports whether Forward would succeed for key.
func (m *Manager) CanForward(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fwd[key]) > 0
}

// Clear drops both stacks for key, e.g. when the image is closed.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total -= len(m.back[key])
	delete(m.back, key)
	delete(m.fwd, key)
}

// Stats returns the number of images with back entries and the total back entries.
func (m *Manager) Stats() (keys int, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.back), m.total
}

func (m *Manager) enforceCapsLocked(key string) {
	if m.cfg.MaxPerKey > 0 {
		if stack := m.back[key]; len(stack) > m.cfg.MaxPerKey {
			drop := len(stack) - m.cfg.MaxPerKey
			m.back[key] = append([]Snapshot(nil), stack[drop:]...)
			m.total -= drop
		}
	}
	for m.total > m.cfg.MaxEntries {
		oldestKey := ""
		var oldestTS time.Time
		for k, stack := range m.back {
			if len(stack) == 0 {
				continue
			}
			if oldestKey == "" || stack[0].TS.Before(oldestTS) {
				oldestKey, oldestTS = k, stack[0].TS
			}
		}
		if oldestKey == "" {
			return
		}
		stack := m.back[oldestKey]
		m.total--
		if len(stack) == 1 {
			delete(m.back, oldestKey)
			continue
		}
		m.back[oldestKey] = stack[1:]
	}
}
