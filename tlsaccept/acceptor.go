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

// Package tlsaccept implements the Acceptor boundary: a function wrapping
// one accepted byte stream in another, identity by default,
// TLS-handshaking when configured. ALPN-based H1/H2 selection is exposed as
// a derived property of the wrapped stream rather than hardcoded to one
// TLS engine.
package tlsaccept

import (
	"context"

	"github.com/nabbar/httpcore/upgrade"
)

// Acceptor transforms one byte stream into another.
type Acceptor interface {
	Accept(ctx context.Context, raw upgrade.Stream) (upgrade.Stream, error)
}

// Func adapts a plain function into an Acceptor.
type Func func(ctx context.Context, raw upgrade.Stream) (upgrade.Stream, error)

func (f Func) Accept(ctx context.Context, raw upgrade.Stream) (upgrade.Stream, error) {
	return f(ctx, raw)
}

// Identity is the default Acceptor: it returns the stream unchanged.
var Identity Acceptor = Func(func(_ context.Context, raw upgrade.Stream) (upgrade.Stream, error) {
	return raw, nil
})

// NegotiatedProtocol is implemented by streams that expose an ALPN result:
// the H1/H2 chooser checks for "h2" here rather than hardcoding a TLS
// library.
type NegotiatedProtocol interface {
	NegotiatedProtocol() string
}
