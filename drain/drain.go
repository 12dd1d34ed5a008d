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

// Package drain implements a one-shot shutdown signal plus a reverse
// completion channel: calling Drain on the Signal half broadcasts "shut
// down" to every Watch, and that Drain call returns only once every Watch
// clone has been released.
//
// The reverse signal is built on a sync.WaitGroup: every Watch clone counts
// as one outstanding unit of work, released on Release.
package drain

import "sync"

// Signal is the shutdown-broadcasting half, owned exclusively by the accept
// loop.
type Signal struct {
	once   sync.Once
	closed chan struct{}
	wg     sync.WaitGroup
}

// New returns a connected (Signal, Watch) pair. The initial Watch returned
// here does not need to be cloned before first use but must be Released
// like every other clone.
func New() (*Signal, *Watch) {
	s := &Signal{closed: make(chan struct{})}
	return s, s.newWatch()
}

func (s *Signal) newWatch() *Watch {
	s.wg.Add(1)
	return &Watch{signal: s}
}

// Drain broadcasts the shutdown signal to every Watch and blocks until every
// Watch clone has been Released. It is idempotent: calling it more than once
// only ever broadcasts once.
func (s *Signal) Drain() {
	s.once.Do(func() { close(s.closed) })
	s.wg.Wait()
}

// Signaled is a non-blocking check for whether Drain has been called,
// independent of whether every watcher has released yet.
func (s *Signal) Signaled() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Watch observes the drain signal. Cloneable; every clone must eventually be
// Released or Signal.Drain never returns.
type Watch struct {
	signal   *Signal
	released sync.Once
}

// Clone returns a new Watch handle sharing this Watch's Signal. Each clone
// must be Released independently.
func (w *Watch) Clone() *Watch {
	return w.signal.newWatch()
}

// Signaled reports whether the connection task should begin graceful
// shutdown.
func (w *Watch) Signaled() bool {
	return w.signal.Signaled()
}

// Done returns a channel that is closed once the shutdown signal fires, for
// callers that want to select on it directly instead of polling Signaled.
func (w *Watch) Done() <-chan struct{} {
	return w.signal.closed
}

// Release drops this Watch clone, participating in the Signal's Drain
// completion. Safe to call more than once; only the first call counts.
func (w *Watch) Release() {
	w.released.Do(func() {
		w.signal.wg.Done()
	})
}
