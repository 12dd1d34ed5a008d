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

package netlisten_test

import (
	"context"
	"net"
	"path/filepath"
	"syscall"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/upgrade"

	. "github.com/nabbar/httpcore/netlisten"
)

// stubListener lets SleepOnErrors tests control exactly which errors Accept
// returns without opening a real socket.
type stubListener struct {
	errs  []error
	calls int
}

func (s *stubListener) Accept(ctx context.Context) (upgrade.Stream, remoteaddr.RemoteAddr, error) {
	i := s.calls
	s.calls++
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	if s.errs[i] != nil {
		return nil, remoteaddr.RemoteAddr{}, s.errs[i]
	}
	return nil, remoteaddr.RemoteAddr{}, nil
}

func (s *stubListener) Close() error   { return nil }
func (s *stubListener) Addr() net.Addr { return &net.TCPAddr{} }

var _ = Describe("TCP", func() {
	It("accepts a connection and relays its first write", func() {
		ln, err := TCP("127.0.0.1:0", DefaultTCPOptions)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		addr := ln.Addr().String()
		go func() {
			defer GinkgoRecover()
			c, derr := net.Dial("tcp", addr)
			Expect(derr).ToNot(HaveOccurred())
			defer c.Close()
			_, _ = c.Write([]byte("ping"))
		}()

		stream, remote, err := ln.Accept(context.Background())
		Expect(err).ToNot(HaveOccurred())
		defer stream.Close()

		Expect(remote.Kind()).To(Equal(remoteaddr.KindTCP))

		buf := make([]byte, 4)
		n, err := stream.Read(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("ping"))
	})

	It("respects context cancellation while waiting to accept", func() {
		ln, err := TCP("127.0.0.1:0", DefaultTCPOptions)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, _, err = ln.Accept(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = Describe("Unix", func() {
	It("accepts a connection and relays its first write", func() {
		path := filepath.Join(GinkgoT().TempDir(), "httpcore.sock")
		ln, err := Unix(path)
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		go func() {
			defer GinkgoRecover()
			c, derr := net.Dial("unix", path)
			Expect(derr).ToNot(HaveOccurred())
			defer c.Close()
			_, _ = c.Write([]byte("pong"))
		}()

		stream, remote, err := ln.Accept(context.Background())
		Expect(err).ToNot(HaveOccurred())
		defer stream.Close()

		Expect(remote.Kind()).To(Equal(remoteaddr.KindUnix))

		buf := make([]byte, 4)
		n, err := stream.Read(buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("pong"))
	})

	It("replaces a stale socket file left behind by a crashed process", func() {
		path := filepath.Join(GinkgoT().TempDir(), "httpcore.sock")

		// A bound listener is itself the "stale socket file", since we
		// never unlink it ourselves.
		_, err := net.Listen("unix", path)
		Expect(err).ToNot(HaveOccurred())

		second, err := Unix(path)
		Expect(err).ToNot(HaveOccurred())
		defer second.Close()
	})
})

var _ = Describe("SleepOnErrors", func() {
	It("retries immediately on a recoverable error", func() {
		stub := &stubListener{errs: []error{syscall.ECONNRESET, nil}}
		ln := NewSleepOnErrors(stub, time.Second, nil)

		start := time.Now()
		_, _, err := ln.Accept(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 200*time.Millisecond))
		Expect(stub.calls).To(Equal(2))
	})

	It("propagates a non-recoverable error immediately when sleep is zero", func() {
		boom := net.ErrClosed
		stub := &stubListener{errs: []error{boom}}
		ln := NewSleepOnErrors(stub, 0, nil)

		_, _, err := ln.Accept(context.Background())
		Expect(err).To(MatchError(boom))
		Expect(stub.calls).To(Equal(1))
	})

	It("sleeps then retries on a non-recoverable error", func() {
		stub := &stubListener{errs: []error{net.ErrClosed, nil}}
		ln := NewSleepOnErrors(stub, 20*time.Millisecond, nil)

		start := time.Now()
		_, _, err := ln.Accept(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically(">=", 20*time.Millisecond))
		Expect(stub.calls).To(Equal(2))
	})

	It("respects context cancellation during the sleep", func() {
		stub := &stubListener{errs: []error{net.ErrClosed}}
		ln := NewSleepOnErrors(stub, time.Second, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, _, err := ln.Accept(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
