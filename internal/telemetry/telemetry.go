/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage events (export outcomes) and
// crash reports. Nothing is sent unless the user opted in and an endpoint is set.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "imagefusion/internal/log"
	"imagefusion/internal/version"
)

// Event names emitted by the application.
const (
	EventExportCompleted = "export_completed"
	EventExportFailed    = "export_failed"
	EventImageLoaded     = "image_loaded"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
// - IMF_TELEMETRY_OPT_IN: "1", "true", "yes" to enable
// - IMF_TELEMETRY_URL: endpoint receiving JSON events
// - IMF_CRASH_UPLOAD_URL: endpoint receiving plain-text crash reports
// - IMF_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - IMF_TELEMETRY_DEBUG: if set, logs send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("IMF_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("IMF_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("IMF_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("IMF_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("IMF_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Payload is the JSON body of one event.
type Payload struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client is an async sender with a bounded queue. Events are dropped when the
// queue is full or a request fails; callers never block.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan Payload
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
	done    chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package client, creating it from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the package client and returns the previous one (may be nil).
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultClient
	defaultClient = c
	return prev
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan Payload, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. Props must not carry personal data or file names.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	p := Payload{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		p.Props = make(map[string]any, len(props))
		for k, v := range props {
			p.Props[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- p:
	default:
		c.pending.Add(-1)
	}
}

// ExportCompleted records a finished export with its formats and duration.
func (c *Client) ExportCompleted(formats []string, dpi int, took time.Duration) {
	c.Event(EventExportCompleted, map[string]any{
		"formats": strings.Join(formats, ","),
		"dpi":     dpi,
		"ms":      took.Milliseconds(),
	})
}

// ExportFailed records a failed export. Only the error class is sent.
func (c *Client) ExportFailed(formats []string, class string) {
	c.Event(EventExportFailed, map[string]any{
		"formats": strings.Join(formats, ","),
		"class":   class,
	})
}

// Flush waits until queued events were attempted, ctx ends, or 500ms pass.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.NewTimer(500 * time.Millisecond)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

// Close stops the sender goroutine. Queued events are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.closed) })
	<-c.done
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.closed:
			return
		case p := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(p), "event")
			c.pending.Add(-1)
		}
	}
}

func mustJSON(p Payload) []byte {
	b, err := json.Marshal(p)
	if err != nil {
		// props hold only scalars; fall back to the bare name
		b, _ = json.Marshal(Payload{Name: p.Name, TS: p.TS, Version: p.Version, OS: p.OS, Arch: p.Arch})
	}
	return b
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("kind", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("kind", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a serialized crash report synchronously when opted in.
// It is called from the crash path, right before the process exits.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" || len(report) == 0 {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report, "crash")
}
