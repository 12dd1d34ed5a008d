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

// Package upgrade holds the protocol-upgrade contract shared by the H1
// connection state machine and a Service's response body: transfer of raw
// stream ownership from the HTTP engine to a user handler, triggered by a
// 101 response or a 2xx reply to CONNECT.
package upgrade

import (
	"context"
	"io"
	"net"
)

// Stream is the raw byte stream handed to an upgrade handler: readable,
// writable, half-closeable.
type Stream interface {
	io.Reader
	io.Writer
	// CloseWrite performs a half-close: the peer sees EOF on reads but the
	// connection stays open for this side's own reads.
	CloseWrite() error
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Rewound wraps a Stream together with bytes the HTTP engine already read
// past the end of the request headers (the "rewind buffer"), so the
// upgrade handler sees one continuous byte sequence.
type Rewound struct {
	Stream
	prefix []byte
}

// NewRewound returns a Stream that yields prefix before falling through to
// reads on the underlying stream.
func NewRewound(s Stream, prefix []byte) *Rewound {
	return &Rewound{Stream: s, prefix: prefix}
}

func (r *Rewound) Read(p []byte) (int, error) {
	if len(r.prefix) > 0 {
		n := copy(p, r.prefix)
		r.prefix = r.prefix[n:]
		return n, nil
	}
	return r.Stream.Read(p)
}

// Connection is the handle an upgraded exchange (e.g. a WebSocket driver)
// returns to the framework: it drives the connection to quiescence.
type Connection interface {
	// Close blocks until the upgraded connection is fully closed, or ctx is
	// done.
	Close(ctx context.Context) error

	// GracefulShutdown initiates a cooperative close: stop accepting new
	// work but let anything in-flight finish.
	GracefulShutdown()
}

// Body is implemented by a response body that wants to take over the raw
// connection. Upgrade is called with the rewound stream; on success it
// returns a Connection the framework drives to completion. On rejection it
// returns a non-nil error and a nil Connection, and the framework shuts
// down the stream it still holds the normal way instead.
type Body interface {
	Upgrade(ctx context.Context, raw *Rewound) (Connection, error)
}
