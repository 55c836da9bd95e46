/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches []batch
	crashes []string
}

func (r *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, req *http.Request) {
		var b batch
		if err := json.NewDecoder(req.Body).Decode(&b); err != nil {
			t.Errorf("bad batch json: %v", err)
		}
		r.mu.Lock()
		r.batches = append(r.batches, b)
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.crashes = append(r.crashes, string(body))
		r.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (r *recorder) events() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, b := range r.batches {
		out = append(out, b.Events...)
	}
	return out
}

func TestClient_EventsAreBatchedAndFiltered(t *testing.T) {
	var rec recorder
	srv := rec.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	c.Event("view.step_in", map[string]any{
		"percent": 120,
		"tool":    "zoom_in",
		"rect":    struct{ X int }{1},
	})
	c.Event("view.fit", nil)
	c.Flush(context.Background())

	evs := rec.events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Name != "view.step_in" || evs[0].TS == "" {
		t.Fatalf("unexpected first event %+v", evs[0])
	}
	if _, ok := evs[0].Props["rect"]; ok {
		t.Fatalf("struct prop should be dropped: %+v", evs[0].Props)
	}
	if evs[0].Props["percent"] != float64(120) || evs[0].Props["tool"] != "zoom_in" {
		t.Fatalf("scalar props lost: %+v", evs[0].Props)
	}
	rec.mu.Lock()
	s := rec.batches[0]
	rec.mu.Unlock()
	if s.Session == "" || s.Version == "" || s.OS == "" {
		t.Fatalf("batch envelope incomplete: %+v", s)
	}
}

func TestClient_UploadCrash(t *testing.T) {
	var rec recorder
	srv := rec.server(t)
	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	c.UploadCrash([]byte("STACKTRACE"))
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.crashes) != 1 || rec.crashes[0] != "STACKTRACE" {
		t.Fatalf("crash not uploaded: %v", rec.crashes)
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}

	var nilClient *Client
	nilClient.Event("x", nil)
	nilClient.Flush(context.Background())
	nilClient.Close()
}

func TestClient_SendErrorsAreSwallowed(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	c.Close()
	c.Close()
	c.Event("after close", nil)
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv("PV_TELEMETRY_OPT_IN", "yes")
	t.Setenv("PV_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("PV_CRASH_UPLOAD_URL", "")
	t.Setenv("PV_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	c := New(cfg)
	SetDefault(c)
	t.Cleanup(func() { SetDefault(nil) })
	if Default() != c || !Default().Enabled() {
		t.Fatalf("default client not installed")
	}
}
