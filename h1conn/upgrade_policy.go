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

package h1conn

import (
	"net/http"
	"net/textproto"
	"strings"
)

// eligibleForUpgrade reports whether a request is eligible for the upgrade
// hand-off: its method is CONNECT, or it carries "Connection: upgrade"
// together with a non-empty Upgrade header.
func eligibleForUpgrade(req *http.Request) bool {
	if req.Method == http.MethodConnect {
		return true
	}
	return hasToken(req.Header, "Connection", "upgrade") && req.Header.Get("Upgrade") != ""
}

// triggersUpgrade reports whether a response actually triggers the upgrade
// hand-off: status 101, or a 2xx reply to a CONNECT request.
func triggersUpgrade(req *http.Request, statusCode int) bool {
	if statusCode == http.StatusSwitchingProtocols {
		return true
	}
	return req.Method == http.MethodConnect && statusCode >= 200 && statusCode < 300
}

func hasToken(h http.Header, key, token string) bool {
	for _, v := range h[textproto.CanonicalMIMEHeaderKey(key)] {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// keepAliveRequested reports whether the connection should stay open after
// this exchange: absent any Connection header, HTTP/1.1 defaults to
// keep-alive and HTTP/1.0 defaults to close.
func keepAliveRequested(req *http.Request) bool {
	if hasToken(req.Header, "Connection", "close") {
		return false
	}
	if hasToken(req.Header, "Connection", "keep-alive") {
		return true
	}
	return req.ProtoAtLeast(1, 1)
}
