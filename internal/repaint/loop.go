/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package repaint serializes canvas renders: requests coalesce so only the latest
// state is drawn, and two renders never run at the same time.
package repaint

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"imagefusion/internal/compositor"
	"imagefusion/internal/domain"
	"imagefusion/internal/geom"
	applog "imagefusion/internal/log"
)

// Frame is what a render pass consumes.
type Frame struct {
	State     domain.State
	Selection *geom.Rect
}

// RenderFunc draws a frame.
type RenderFunc func(Frame) (*image.RGBA, error)

// PresentFunc receives each finished buffer on the loop goroutine.
type PresentFunc func(*image.RGBA)

// Loop owns the canvas render pass.
type Loop struct {
	render  RenderFunc
	present PresentFunc

	mu      sync.Mutex
	pending *Frame
	wake    chan struct{}
	done    chan struct{}
	closed  bool
	renders int
}

// PreviewRender renders a frame with guides and the crop overlay.
func PreviewRender(f Frame) (*image.RGBA, error) {
	return compositor.RenderPreview(f.State, f.Selection)
}

// New starts a loop on its own goroutine. It stops when ctx is done or Close is called.
func New(ctx context.Context, render RenderFunc, present PresentFunc) *Loop {
	if render == nil {
		render = PreviewRender
	}
	l := &Loop{
		render:  render,
		present: present,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

// Request schedules f, replacing any frame that has not started yet. It never blocks.
func (l *Loop) Request(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.pending = &f
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Renders returns how many render passes have completed.
func (l *Loop) Renders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.renders
}

// Close stops the loop and waits for an in-flight render to finish.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.wake)
	}
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	log := applog.WithComponent("repaint")
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-l.wake:
			if !ok {
				return
			}
		}
		l.mu.Lock()
		f := l.pending
		l.pending = nil
		l.mu.Unlock()
		if f == nil {
			continue
		}
		img, err := l.render(*f)
		l.mu.Lock()
		l.renders++
		l.mu.Unlock()
		if err != nil {
			log.Warn("render failed", slog.Any("err", err))
			continue
		}
		if l.present != nil {
			l.present(img)
		}
	}
}
