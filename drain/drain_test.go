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

package drain_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/nabbar/httpcore/drain"
)

var _ = Describe("Signal", func() {
	It("Signaled reflects the Drain call, blocking until the outstanding watch releases", func() {
		signal, watch := New()
		defer watch.Release()

		Expect(watch.Signaled()).To(BeFalse())

		done := make(chan struct{})
		go func() {
			signal.Drain()
			close(done)
		}()

		Consistently(done, 20*time.Millisecond).ShouldNot(BeClosed())

		Expect(watch.Signaled()).To(BeTrue())
		watch.Release()

		Eventually(done, time.Second).Should(BeClosed())
	})

	It("is idempotent across repeated Drain calls", func() {
		signal, watch := New()
		watch.Release()

		signal.Drain()
		signal.Drain()

		Expect(watch.Signaled()).To(BeTrue())
	})
})

var _ = Describe("Watch", func() {
	It("requires a clone to be released independently", func() {
		signal, watch := New()
		clone := watch.Clone()

		done := make(chan struct{})
		go func() {
			signal.Drain()
			close(done)
		}()

		watch.Release()
		Consistently(done, 20*time.Millisecond).ShouldNot(BeClosed())

		clone.Release()
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("is safe to release twice", func() {
		signal, watch := New()
		watch.Release()
		watch.Release()
		signal.Drain()
	})
})

var _ = Describe("Watching", func() {
	It("invokes onDrain exactly once", func() {
		signal, watch := New()
		var calls int32

		stop := Watching(watch, func() { atomic.AddInt32(&calls, 1) })

		Expect(atomic.LoadInt32(&calls)).To(BeZero())
		watch.Release()
		signal.Drain()

		Eventually(func() int32 {
			return atomic.LoadInt32(&calls)
		}, time.Second, time.Millisecond).Should(Equal(int32(1)))

		stop()
		// A second broadcast never happens (Signal.Drain is one-shot), and stop
		// must not cause onDrain to run again.
		Consistently(func() int32 {
			return atomic.LoadInt32(&calls)
		}, 10*time.Millisecond).Should(Equal(int32(1)))
	})

	It("prevents onDrain from running if stopped before the signal fires", func() {
		_, watch := New()
		var calls int32

		stop := Watching(watch, func() { atomic.AddInt32(&calls, 1) })
		stop()

		Consistently(func() int32 {
			return atomic.LoadInt32(&calls)
		}, 10*time.Millisecond).Should(BeZero())
	})
})
