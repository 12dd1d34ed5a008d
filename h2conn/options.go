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

// Package h2conn is the HTTP/2 connection state machine: one read loop
// dispatching frames, a background task per stream, explicit
// per-chunk flow-control capacity reservation, and GOAWAY-based graceful
// shutdown. Built directly on golang.org/x/net/http2's Framer and
// golang.org/x/net/http2/hpack rather than the package's high-level Server,
// since the high-level API hides the per-stream capacity reservation this
// module needs to expose.
package h2conn

// Options are the per-connection tunables for the H2 engine.
type Options struct {
	// InitialWindowSize is both our advertised SETTINGS_INITIAL_WINDOW_SIZE
	// and the starting send window we assume for each new stream.
	InitialWindowSize uint32
	// MaxFrameSize bounds the size of HEADERS/CONTINUATION/DATA frames this
	// connection writes.
	MaxFrameSize uint32
	// MaxConcurrentStreams is advertised to the peer; not independently
	// enforced beyond what the peer itself respects.
	MaxConcurrentStreams uint32
	// MaxHeaderListSize is set on the Framer. Header blocks are decoded by
	// this package's own hpack decoder rather than the Framer's meta-header
	// reader, so it does not limit the decoded header list.
	MaxHeaderListSize uint32
}

// DefaultOptions matches the protocol's own RFC 7540 defaults, with
// MaxConcurrentStreams raised the way most production http2.Server
// deployments raise it.
var DefaultOptions = Options{
	InitialWindowSize:    65535,
	MaxFrameSize:         16384,
	MaxConcurrentStreams: 250,
	MaxHeaderListSize:    1 << 20,
}
