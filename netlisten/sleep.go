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

package netlisten

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/nabbar/httpcore/logging"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/upgrade"
)

// recoverable reports whether err is one of the three per-connection error
// kinds that must never be allowed to spin the accept loop: ECONNREFUSED,
// ECONNABORTED, ECONNRESET.
func recoverable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET)
}

// SleepOnErrors wraps a Listener with an accept-error policy: recoverable
// per-connection errors are retried immediately; any other error waits
// Sleep (if configured) before retrying, or is propagated immediately when
// Sleep is zero.
type SleepOnErrors struct {
	inner Listener
	sleep time.Duration
	log   logging.FuncLog
}

// NewSleepOnErrors wraps inner. sleep == 0 disables the sleep-and-retry
// behavior entirely (every non-recoverable error propagates immediately).
func NewSleepOnErrors(inner Listener, sleep time.Duration, log logging.FuncLog) *SleepOnErrors {
	return &SleepOnErrors{inner: inner, sleep: sleep, log: logging.With(log, "netlisten.sleep")}
}

func (s *SleepOnErrors) Accept(ctx context.Context) (upgrade.Stream, remoteaddr.RemoteAddr, error) {
	for {
		stream, addr, err := s.inner.Accept(ctx)
		if err == nil {
			return stream, addr, nil
		}
		if ctx.Err() != nil {
			return nil, remoteaddr.RemoteAddr{}, err
		}
		if recoverable(err) {
			s.log().WithError(err).Debug("per-connection accept error, retrying immediately")
			continue
		}
		if s.sleep <= 0 {
			return nil, remoteaddr.RemoteAddr{}, err
		}

		s.log().WithError(err).WithField("sleep", s.sleep).Warn("accept error, sleeping before retry")
		timer := time.NewTimer(s.sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, remoteaddr.RemoteAddr{}, ctx.Err()
		case <-timer.C:
			// retry the listener
		}
	}
}

func (s *SleepOnErrors) Close() error  { return s.inner.Close() }
func (s *SleepOnErrors) Addr() net.Addr { return s.inner.Addr() }
