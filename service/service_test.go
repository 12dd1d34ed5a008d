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

package service_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/streambody"

	. "github.com/nabbar/httpcore/service"
)

// echoService is a minimal Service for the specs in this file: it reflects
// the request body back as the response body.
type echoService struct{}

func (echoService) Ready(context.Context) error { return nil }

func (echoService) Call(ctx context.Context, req *Request) (*Response, error) {
	data, _, err := streambody.Drain(ctx, req.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       streambody.NewBytes(data),
	}, nil
}

var _ = Describe("ErrNotReady", func() {
	It("matches itself under errors.Is and carries a message", func() {
		Expect(errors.Is(ErrNotReady, ErrNotReady)).To(BeTrue())
		Expect(ErrNotReady.Error()).ToNot(Equal(""))
	})
})

var _ = Describe("Service", func() {
	It("round-trips a request body through an echo implementation", func() {
		req := &Request{
			Request: &http.Request{Method: http.MethodPost},
			Body:    streambody.NewBytes([]byte("ping")),
			Remote:  remoteaddr.Opaque([]byte("test")),
		}

		svc := echoService{}
		Expect(svc.Ready(context.Background())).To(Succeed())

		resp, err := svc.Call(context.Background(), req)
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		data, _, err := streambody.Drain(context.Background(), resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("ping"))
	})
})
