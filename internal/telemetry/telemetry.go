/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny, privacy-respecting, opt-in event sender
// for anonymous usage metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "picviewer/internal/log"
	"picviewer/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - PV_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - PV_TELEMETRY_URL: URL to POST JSON event batches to
// - PV_CRASH_UPLOAD_URL: URL to POST crash reports to
// - PV_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - PV_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without URLs events are dropped even when opted in.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
	// BatchSize caps the events sent per request. Zero means 16.
	BatchSize int
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("PV_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("PV_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("PV_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("PV_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("PV_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

type event struct {
	Name  string         `json:"name"`
	TS    string         `json:"ts"`
	Props map[string]any `json:"props,omitempty"`
}

type batch struct {
	Session string  `json:"session"`
	Version string  `json:"version"`
	OS      string  `json:"os"`
	Arch    string  `json:"arch"`
	Events  []event `json:"events"`
}

// Client batches events on a background goroutine. It never blocks the caller:
// the queue is bounded and full queues drop events. Send errors are dropped too.
type Client struct {
	cfg     Config
	session string
	log     *slog.Logger
	cli     *http.Client
	q       chan event
	once    sync.Once
	closed  chan struct{}
	done    chan struct{}
	pending atomic.Int64 // queued or being sent
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide client, creating it from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the process-wide client and closes the previous one.
func SetDefault(c *Client) {
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil && old != c {
		old.Close()
	}
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:     cfg,
		session: newSessionID(),
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		q:       make(chan event, 64),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.loop()
	return c
}

func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. Only bool, integer, float and short string props are kept;
// anything else is dropped so paths and other PII cannot slip through as structs.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	select {
	case <-c.closed:
		return
	default:
	}
	ev := event{Name: name, TS: time.Now().UTC().Format(time.RFC3339Nano), Props: scalarProps(props)}
	c.pending.Add(1)
	select {
	case c.q <- ev:
	default:
		c.pending.Add(-1)
	}
}

func scalarProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch x := v.(type) {
		case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			out[k] = x
		case string:
			if len(x) <= 64 {
				out[k] = x
			}
		}
	}
	return out
}

// Flush waits until queued events have been sent, ctx is done, or 500ms pass.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close stops the sender. Events still queued are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.closed)
		<-c.done
	})
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			c.discard()
			return
		case ev := <-c.q:
			evs := []event{ev}
		more:
			for len(evs) < c.cfg.BatchSize {
				select {
				case ev := <-c.q:
					evs = append(evs, ev)
				default:
					break more
				}
			}
			c.send(evs)
			c.pending.Add(-int64(len(evs)))
		}
	}
}

func (c *Client) discard() {
	for {
		select {
		case <-c.q:
			c.pending.Add(-1)
		default:
			return
		}
	}
}

func (c *Client) send(evs []event) {
	buf, err := json.Marshal(batch{
		Session: c.session,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Events:  evs,
	})
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry batch sent", slog.Int("events", len(evs)), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a serialized crash report to the crash URL if opted in.
// It waits at most the client timeout; the process is usually about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.CrashURL, bytes.NewReader(report))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Session", c.session)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("crash upload failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("crash report uploaded")
	}
}
