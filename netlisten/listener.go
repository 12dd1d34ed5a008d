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

// Package netlisten is the transport-agnostic listener abstraction: a
// source of (byte stream, remote address) pairs, with TCP/Unix concrete
// implementations and a SleepOnErrors policy wrapper.
package netlisten

import (
	"context"
	"net"

	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/upgrade"
)

func init() {
	herr.Register(herr.MinListener, "listener accept error")
	herr.Register(herr.MinListener+1, "listener closed")
}

// ErrAccept and ErrClosed are the herr.Code values this package registers.
const (
	ErrAccept = herr.MinListener
	ErrClosed = herr.MinListener + 1
)

// Listener produces (byte stream, remote address) pairs.
type Listener interface {
	// Accept blocks (respecting ctx) until a connection is available,
	// returning its byte stream and remote address.
	Accept(ctx context.Context) (upgrade.Stream, remoteaddr.RemoteAddr, error)

	// Close stops the listener from accepting further connections.
	Close() error

	// Addr returns the address the listener is bound to.
	Addr() net.Addr
}

// netStream adapts a net.Conn to upgrade.Stream by adding CloseWrite for
// connection kinds that support half-close.
type netStream struct {
	net.Conn
}

func (s netStream) CloseWrite() error {
	if cw, ok := s.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return s.Conn.Close()
}

// WrapConn adapts a stdlib net.Conn into an upgrade.Stream, used by the TCP
// and Unix listeners below and available to callers plugging in their own
// net.Listener.
func WrapConn(c net.Conn) upgrade.Stream {
	return netStream{Conn: c}
}
