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

package tlsaccept

import (
	"context"
	"crypto/tls"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/upgrade"
)

func init() {
	herr.Register(ErrHandshake, "TLS handshake failed")
}

// ErrHandshake is this package's herr.Code.
const ErrHandshake = herr.MinAcceptor

// TLS returns an Acceptor that wraps every accepted stream in a TLS server
// connection configured for ALPN negotiation between "h2" and "http/1.1".
//
// The handshake itself is NOT driven here: crypto/tls.Conn already embeds a
// mid-handshake state machine that transparently completes on first
// Read/Write, so the wrapper below only needs to surface handshake failure
// as an I/O error and to cut the handshake short if Close/CloseWrite is
// requested first.
func TLS(cfg *tls.Config) Acceptor {
	cfg = ensureALPN(cfg)
	return Func(func(ctx context.Context, raw upgrade.Stream) (upgrade.Stream, error) {
		conn := tls.Server(streamConn{raw}, cfg)
		return &handshakeStream{Stream: raw, conn: conn}, nil
	})
}

func ensureALPN(cfg *tls.Config) *tls.Config {
	c := cfg.Clone()
	if len(c.NextProtos) == 0 {
		c.NextProtos = []string{"h2", "http/1.1"}
	}
	return c
}

// streamConn adapts upgrade.Stream (no explicit LocalAddr/RemoteAddr
// requirement beyond net.Addr) to the net.Conn shape crypto/tls.Server
// needs, including the deadline methods tls.Conn requires even though this
// module never sets per-call deadlines itself.
type streamConn struct {
	upgrade.Stream
}

// upgrade.Stream has no notion of deadlines; this module drives cancellation
// through context instead, so these are no-ops kept only to satisfy the
// net.Conn shape crypto/tls.Server requires.
func (streamConn) SetDeadline(time.Time) error      { return nil }
func (streamConn) SetReadDeadline(time.Time) error  { return nil }
func (streamConn) SetWriteDeadline(time.Time) error { return nil }

// handshakeStream is the mid-handshake-transparent wrapper: reads and
// writes delegate to the embedded *tls.Conn, which completes its handshake
// lazily on first use. A Close before the handshake completes closes the
// underlying stream without a TLS close_notify; a CloseWrite before then
// returns crypto/tls's early-CloseWrite error and leaves the stream open.
type handshakeStream struct {
	upgrade.Stream
	conn      *tls.Conn
	once      sync.Once
	gone      atomic.Bool
}

func (h *handshakeStream) Read(p []byte) (int, error) {
	if h.gone.Load() {
		return 0, errGone
	}
	n, err := h.conn.Read(p)
	if err != nil {
		h.classify(err)
	}
	return n, err
}

func (h *handshakeStream) Write(p []byte) (int, error) {
	if h.gone.Load() {
		return 0, errGone
	}
	n, err := h.conn.Write(p)
	if err != nil {
		h.classify(err)
	}
	return n, err
}

func (h *handshakeStream) classify(err error) {
	if err != nil {
		h.gone.Store(true)
	}
}

// NegotiatedProtocol completes the handshake first if it has not run yet,
// so the ALPN result is available before the first Read or Write.
func (h *handshakeStream) NegotiatedProtocol() string {
	if err := h.conn.Handshake(); err != nil {
		h.classify(err)
		return ""
	}
	return h.conn.ConnectionState().NegotiatedProtocol
}

func (h *handshakeStream) CloseWrite() error {
	h.once.Do(func() { h.gone.Store(true) })
	return h.conn.CloseWrite()
}

func (h *handshakeStream) Close() error {
	h.once.Do(func() { h.gone.Store(true) })
	return h.conn.Close()
}

type goneError struct{}

func (goneError) Error() string { return "tlsaccept: stream closed before handshake completed" }

var errGone error = goneError{}
