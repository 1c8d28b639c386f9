/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package repaint

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imagefusion/internal/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLatestWinsAndNoOverlap(t *testing.T) {
	var active, maxActive int32
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []int

	render := func(f Frame) (*image.RGBA, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		mu.Lock()
		seen = append(seen, f.State.Page.DPI)
		first := len(seen) == 1
		mu.Unlock()
		if first {
			<-release
		}
		atomic.AddInt32(&active, -1)
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	l := New(context.Background(), render, nil)
	defer l.Close()

	st := domain.NewState()
	st.Page.DPI = 1
	l.Request(Frame{State: st})
	waitFor(t, func() bool { return atomic.LoadInt32(&active) == 1 })

	for dpi := 2; dpi <= 50; dpi++ {
		st.Page.DPI = dpi
		l.Request(Frame{State: st})
	}
	close(release)
	waitFor(t, func() bool { return l.Renders() == 2 })
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 50 {
		t.Fatalf("renders = %v, want [1 50]", seen)
	}
	if m := atomic.LoadInt32(&maxActive); m != 1 {
		t.Fatalf("renders overlapped: %d", m)
	}
}

func TestPresentAndErrors(t *testing.T) {
	var presented atomic.Int32
	fail := atomic.Bool{}
	render := func(Frame) (*image.RGBA, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}
	l := New(context.Background(), render, func(*image.RGBA) { presented.Add(1) })
	l.Request(Frame{State: domain.NewState()})
	waitFor(t, func() bool { return presented.Load() == 1 })

	fail.Store(true)
	l.Request(Frame{State: domain.NewState()})
	waitFor(t, func() bool { return l.Renders() == 2 })
	if presented.Load() != 1 {
		t.Fatalf("failed render was presented")
	}
	l.Close()
	l.Request(Frame{})
	l.Close()
}

func TestContextStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(ctx, func(Frame) (*image.RGBA, error) { return nil, nil }, nil)
	cancel()
	select {
	case <-l.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop on cancel")
	}
}

func TestPreviewRenderDrawsPage(t *testing.T) {
	st := domain.NewState()
	st.Page.DPI = 72
	img, err := PreviewRender(Frame{State: st})
	if err != nil {
		t.Fatalf("PreviewRender: %v", err)
	}
	if img.Bounds().Dx() != 595 {
		t.Fatalf("width = %d", img.Bounds().Dx())
	}
}
