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

package upgrade

import "context"

// Slot is the single-slot, per-request channel from the request-handler
// task to the H1 connection task: it carries either "the response body
// wants to take over the raw stream" (with the body itself) or "no
// upgrade; shut down normally".
type Slot struct {
	ch chan Body // nil Body sent means "no upgrade"
}

// NewSlot allocates an unopened slot. Only requests the H1 engine judges
// upgrade-eligible get one.
func NewSlot() *Slot {
	return &Slot{ch: make(chan Body, 1)}
}

// Offer is called by the per-request handler wrapper once the Service's
// response is known. body is nil when the response did not trigger an
// upgrade.
func (s *Slot) Offer(body Body) {
	select {
	case s.ch <- body:
	default:
		// Offer must only ever be called once per request; a second call
		// would block forever once the one-element buffer is full, so drop it
		// rather than deadlock the request-handler task.
	}
}

// Await blocks until the per-request handler has offered a body (or ctx is
// done). ok is false when the offer was "no upgrade".
func (s *Slot) Await(ctx context.Context) (body Body, ok bool, err error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case b := <-s.ch:
		return b, b != nil, nil
	}
}
