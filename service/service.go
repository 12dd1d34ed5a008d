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

// Package service defines the Service and MakeService contracts consumed by
// the core: the user-facing surface of this framework. Nothing in this
// module depends on what a Service does internally — only on its readiness
// and call shape.
package service

import (
	"context"
	"net/http"

	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/streambody"
)

// Request is the framework's request value: method/target/version/headers
// come from net/http's Request for compatibility with the wider ecosystem,
// with its Body field shadowed by the explicit streambody.Body below. The
// embedded net/http Body is nil on the H2 path; on the H1 path it is the
// same stream the streambody.Body reads from.
type Request struct {
	*http.Request

	// Body is the request's streambody.Body, replacing the net/http
	// io.ReadCloser with a lazy chunked contract.
	Body streambody.Body

	// Remote is the peer address captured by the Listener.
	Remote remoteaddr.RemoteAddr
}

// Response is the framework's response value: status, headers and a body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       streambody.Body
}

// Service maps one request to one response future, with an explicit
// readiness check.
//
// Contract: on the H1 path, a connection drives Ready/Call strictly in
// lockstep — one Call per Ready, never overlapping. On the H2 path the same
// Service instance is shared by every concurrently active stream on its
// connection, so implementations
// must tolerate concurrent Ready/Call invocations from distinct streams;
// only the H1 sequencing guarantee is per-exchange exclusive.
type Service interface {
	// Ready reports whether the Service can accept another request. Any
	// non-nil error, ErrNotReady included, aborts the H1 connection or
	// resets the H2 stream; the engines do not retry Ready.
	Ready(ctx context.Context) error

	// Call produces a response for req.
	Call(ctx context.Context, req *Request) (*Response, error)
}

// ErrNotReady is the error a Service or MakeService may return from Ready
// when it cannot take work. The engines and the server's accept loop treat
// it like any other Ready error: they do not suspend and retry on it.
var ErrNotReady = notReadyError{}

type notReadyError struct{}

func (notReadyError) Error() string { return "service: not ready" }

// MakeContext is the context handed to MakeService.Make: currently just the
// accepted peer address.
type MakeContext struct {
	Remote remoteaddr.RemoteAddr
}

// MakeService is the factory producing one Service per accepted connection.
type MakeService interface {
	// Ready reports whether Make can be called.
	Ready(ctx context.Context) error

	// Make builds the per-connection Service.
	Make(ctx context.Context, mc MakeContext) (Service, error)
}
