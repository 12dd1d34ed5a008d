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

package h2conn

import (
	"bytes"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http2/hpack"
)

// headerAccumulator collects hpack fields for one HEADERS (+ CONTINUATION)
// block into the pseudo-headers plus a regular http.Header, the request
// side of the frame-to-Request translation.
type headerAccumulator struct {
	method, authority, path string
	header                  http.Header
}

func newHeaderAccumulator() *headerAccumulator {
	return &headerAccumulator{header: make(http.Header)}
}

func (h *headerAccumulator) field(f hpack.HeaderField) {
	if strings.HasPrefix(f.Name, ":") {
		switch f.Name {
		case ":method":
			h.method = f.Value
		case ":authority":
			h.authority = f.Value
		case ":path":
			h.path = f.Value
		}
		return
	}
	h.header.Add(textproto.CanonicalMIMEHeaderKey(f.Name), f.Value)
}

func (h *headerAccumulator) request() (*http.Request, error) {
	if h.method == "" || h.path == "" {
		return nil, fmt.Errorf("h2conn: request missing required pseudo-headers")
	}
	u, err := url.ParseRequestURI(h.path)
	if err != nil {
		return nil, err
	}
	if h.authority != "" {
		h.header.Set("Host", h.authority)
	}
	return &http.Request{
		Method:     h.method,
		URL:        u,
		RequestURI: h.path,
		Proto:      "HTTP/2.0",
		ProtoMajor: 2,
		ProtoMinor: 0,
		Header:     h.header,
		Host:       h.authority,
	}, nil
}

// encodeHeaderBlock hpack-encodes a response header block. withStatus is
// false when encoding a trailer-only block (no pseudo-headers permitted).
func encodeHeaderBlock(enc *hpack.Encoder, buf *bytes.Buffer, statusCode int, withStatus bool, header http.Header) []byte {
	buf.Reset()
	if withStatus {
		_ = enc.WriteField(hpack.HeaderField{Name: ":status", Value: strconv.Itoa(statusCode)})
	}
	for k, vs := range header {
		lk := strings.ToLower(k)
		for _, v := range vs {
			_ = enc.WriteField(hpack.HeaderField{Name: lk, Value: v})
		}
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
