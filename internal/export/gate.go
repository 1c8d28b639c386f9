/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when an export is already running.
var ErrBusy = errors.New("export already in progress")

// Gate admits at most one export at a time. The zero value is open.
type Gate struct {
	busy atomic.Bool
}

// TryBegin claims the gate. It returns false if another export holds it.
func (g *Gate) TryBegin() bool { return g.busy.CompareAndSwap(false, true) }

// End releases the gate.
func (g *Gate) End() { g.busy.Store(false) }

// Busy reports whether an export is in flight.
func (g *Gate) Busy() bool { return g.busy.Load() }

// Do runs fn while holding the gate, or returns ErrBusy.
func (g *Gate) Do(fn func() error) error {
	if !g.TryBegin() {
		return ErrBusy
	}
	defer g.End()
	return fn()
}
