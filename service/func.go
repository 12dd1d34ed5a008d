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

package service

import "context"

// Func adapts a plain function into a Service that is always ready, the
// common case for stateless handlers, rendered the way net/http.HandlerFunc
// adapts a function into a Handler.
type Func func(ctx context.Context, req *Request) (*Response, error)

func (f Func) Ready(context.Context) error { return nil }

func (f Func) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// MakeFunc adapts a function into a MakeService that is always ready; Make
// calls the function with each connection's MakeContext. Fixed builds on it
// for the common case where every connection shares one Service.
type MakeFunc func(ctx context.Context, mc MakeContext) (Service, error)

func (f MakeFunc) Ready(context.Context) error { return nil }

func (f MakeFunc) Make(ctx context.Context, mc MakeContext) (Service, error) {
	return f(ctx, mc)
}

// Fixed wraps a single Service so every accepted connection shares it,
// the most common MakeService in practice (one stateless Service, no
// per-connection state).
func Fixed(s Service) MakeService {
	return MakeFunc(func(context.Context, MakeContext) (Service, error) {
		return s, nil
	})
}
