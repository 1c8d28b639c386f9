/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file, a JSON snapshot of the
// composition settings, and a non-zero exit.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"imagefusion/internal/domain"
	applog "imagefusion/internal/log"
	"imagefusion/internal/telemetry"
	"imagefusion/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Options controls where reports go and what gets saved alongside them.
type Options struct {
	// Dir receives crash-<stamp>.log and crash-<stamp>.json; os.TempDir() when empty.
	Dir string
	// Snapshot returns the composition at the time of the panic. Optional.
	Snapshot func() domain.State
	// Telemetry uploads the report when the user opted in; telemetry.Default() when nil.
	Telemetry *telemetry.Client
}

// Recover captures a panic, logs it with a stacktrace, writes a report and a
// settings snapshot, and exits with status 2.
//
// Usage: defer crash.Recover(opts)
func Recover(opt Options) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	stamp := time.Now().Format("20060102-150405")
	reportPath, report, err := writeReport(opt.Dir, stamp, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if opt.Snapshot != nil {
		if path, err := writeSnapshot(opt.Dir, stamp, snapshotSafely(opt.Snapshot)); err != nil {
			l.Error("crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("crash snapshot written", slog.String("path", path))
		}
	}
	tc := opt.Telemetry
	if tc == nil {
		tc = telemetry.Default()
	}
	tc.UploadCrash(report)

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// snapshotSafely guards against the snapshot func panicking on a broken state.
func snapshotSafely(fn func() domain.State) (st domain.State) {
	defer func() {
		if recover() != nil {
			st = domain.NewState()
		}
	}()
	return fn()
}

func reportDir(dir string) (string, error) {
	if dir == "" {
		return os.TempDir(), nil
	}
	return dir, os.MkdirAll(dir, 0o755)
}

func writeReport(dir, stamp string, panicVal any, stack []byte) (string, []byte, error) {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "ImageFusion Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	dir, err := reportDir(dir)
	if err != nil {
		return "", buf.Bytes(), err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, buf.Bytes(), err
	}
	return path, buf.Bytes(), nil
}

// writeSnapshot stores page settings and slot adjustments. Pixels are not included.
func writeSnapshot(dir, stamp string, st domain.State) (string, error) {
	dir, err := reportDir(dir)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.json", stamp))
	return path, os.WriteFile(path, data, 0o644)
}
