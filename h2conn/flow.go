/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package h2conn

import (
	"context"
	"errors"
	"sync"
)

var errWindowClosed = errors.New("h2conn: flow-control window closed")

// flowWindow is one direction's (connection- or stream-level) send window.
// Capacity is reserved chunk-by-chunk with a wait for confirmation before
// writing, rather than reserving the whole body length up front, since a
// reported content length is advisory at best. The broadcast-on-grant shape
// mirrors this module's drain.Signal rather than a sync.Cond, for the same
// reason: it composes with a ctx-aware select.
type flowWindow struct {
	mu     sync.Mutex
	avail  int64
	sig    chan struct{}
	closed bool
}

func newFlowWindow(initial int64) *flowWindow {
	return &flowWindow{avail: initial, sig: make(chan struct{})}
}

// grant adds n (possibly negative, for a SETTINGS_INITIAL_WINDOW_SIZE
// shrink) to the available window and wakes any reserve waiters.
func (w *flowWindow) grant(n int64) {
	w.mu.Lock()
	w.avail += n
	sig := w.sig
	w.sig = make(chan struct{})
	w.mu.Unlock()
	close(sig)
}

func (w *flowWindow) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	sig := w.sig
	w.sig = make(chan struct{})
	w.mu.Unlock()
	close(sig)
}

// reserve blocks until at least one byte of capacity is available (or ctx is
// done, or the window is closed), then takes and returns min(want, avail) —
// possibly less than requested, so callers must be prepared to reserve
// again for whatever remains.
func (w *flowWindow) reserve(ctx context.Context, want int64) (int64, error) {
	for {
		w.mu.Lock()
		if w.avail > 0 {
			n := want
			if n > w.avail {
				n = w.avail
			}
			w.avail -= n
			w.mu.Unlock()
			return n, nil
		}
		if w.closed {
			w.mu.Unlock()
			return 0, errWindowClosed
		}
		sig := w.sig
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-sig:
		}
	}
}
