/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imagefusion/internal/domain"
	"imagefusion/internal/telemetry"
)

func TestWriteReportCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path, report, err := writeReport(dir, "20250101-000000", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written to %s, want dir %s", path, dir)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "ImageFusion Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
	if string(report) != s {
		t.Fatalf("returned report differs from file content")
	}
}

func TestWriteReportDefaultsToTemp(t *testing.T) {
	path, _, err := writeReport("", "19990101-000000", "x", nil)
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected temp dir, got %s", path)
	}
}

func TestRecover_WritesReportAndSnapshot(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := filepath.Join(t.TempDir(), "reports")
	st := domain.NewState().SetRotation(domain.SlotB, 90)
	tc := telemetry.New(telemetry.Config{})
	defer tc.Close()

	func() {
		defer Recover(Options{Dir: dir, Snapshot: func() domain.State { return st }, Telemetry: tc})
		panic("boom")
	}()

	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	var logFile, jsonFile string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			logFile = filepath.Join(dir, f.Name())
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".json"):
			jsonFile = filepath.Join(dir, f.Name())
		}
	}
	if logFile == "" || jsonFile == "" {
		t.Fatalf("expected report and snapshot in %s, got %v", dir, files)
	}
	b, _ := os.ReadFile(logFile)
	if !strings.Contains(string(b), "Panic: boom") {
		t.Fatalf("report does not contain panic: %s", b)
	}
	var snap domain.State
	data, _ := os.ReadFile(jsonFile)
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("snapshot json: %v", err)
	}
	if snap.Slots[1].RotationDeg != 90 || snap.Page.DPI != 300 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(Options{Dir: t.TempDir()})
	}()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}

func TestSnapshotSafely(t *testing.T) {
	st := snapshotSafely(func() domain.State { panic("nested") })
	if st.Page != domain.DefaultPageConfig() {
		t.Fatalf("expected fallback state, got %+v", st.Page)
	}
}
