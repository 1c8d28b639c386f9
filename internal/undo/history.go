/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps an in-memory undo/redo history of editor states.
package undo

import (
	"sync"
	"time"

	"imagefusion/internal/domain"
)

// Entry is the state that was current before a change.
// Key groups consecutive changes for coalescing; empty keys never coalesce.
type Entry struct {
	State domain.State
	Key   string
	TS    time.Time
}

// Config controls depth caps and coalescing behavior.
type Config struct {
	// MaxDepth limits the number of undo entries kept (0 means 100).
	MaxDepth int
	// MinInterval coalesces changes with the same key recorded within the interval
	// of the previous one, so a slider drag becomes a single undo step.
	MinInterval time.Duration
}

// History provides an undo/redo stack of editor states. It is safe for concurrent use.
// States share decoded bitmaps, so entries only cost the small settings struct.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo []Entry
	redo []domain.State
}

func New(cfg Config) *History {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 100
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &History{cfg: cfg}
}

// Record stores before as an undo step. If the previous step has the same key and
// was touched within MinInterval, the step is extended instead of pushing a new one.
// Any new change clears the redo stack.
func (h *History) Record(before domain.State, key string, ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redo = nil
	if n := len(h.undo); n > 0 && key != "" {
		last := &h.undo[n-1]
		if last.Key == key && ts.Sub(last.TS) < h.cfg.MinInterval {
			last.TS = ts
			return
		}
	}
	h.undo = append(h.undo, Entry{State: before, Key: key, TS: ts})
	if extra := len(h.undo) - h.cfg.MaxDepth; extra > 0 {
		h.undo = append([]Entry{}, h.undo[extra:]...)
	}
}

// Undo returns the state before the last change and remembers current for Redo.
func (h *History) Undo(current domain.State) (domain.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return current, false
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return e.State, true
}

// Redo re-applies the last undone state.
func (h *History) Redo(current domain.State) (domain.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return current, false
	}
	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, Entry{State: current, TS: time.Now()})
	return s, true
}

// CanUndo reports whether Undo would change anything.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo would change anything.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Clear drops all history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = nil
	h.redo = nil
}

// Stats returns current stack sizes for diagnostics.
func (h *History) Stats() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}
