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

// Package server wires the listener, acceptor, MakeService factory and the
// H1/H2 connection state machines into the accept loop, the way net/http
// wires net.Listener, tls.Config and its Server together behind a single
// configuration struct.
package server

import (
	"crypto/tls"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nabbar/httpcore/h1conn"
	"github.com/nabbar/httpcore/h2conn"
	"github.com/nabbar/httpcore/netlisten"
)

// Config is validated with struct tags the way httpserver/config.go
// validates ServerConfig, instead of hand-rolled field checks.
type Config struct {
	// Listen is the address TCP binds to, or the socket path for Unix.
	Listen string `validate:"required"`

	// Network selects the transport: "tcp" (default) or "unix".
	Network string `validate:"omitempty,oneof=tcp unix"`

	// TLS, if non-nil, wraps every accepted stream in a TLS handshake with
	// ALPN negotiation between "h2" and "http/1.1". Nil means plaintext,
	// and Protocol below picks which engine every connection uses.
	TLS *tls.Config

	// Protocol picks the engine for plaintext connections (TLS connections
	// always pick by ALPN). Defaults to ProtocolH1.
	Protocol Protocol `validate:"omitempty,oneof=1 2"`

	// TCP carries the keepalive/nodelay tunables when Network is "tcp".
	TCP netlisten.TCPOptions

	// SleepOnAcceptErrors, when non-zero, wraps the listener in
	// netlisten.SleepOnErrors with this sleep duration.
	SleepOnAcceptErrors time.Duration

	H1 h1conn.Options
	H2 h2conn.Options
}

// Protocol selects the plaintext connection engine.
type Protocol int

const (
	ProtocolH1 Protocol = iota + 1
	ProtocolH2
)

// Validate runs struct-tag validation and fills in zero-valued tunables
// with their package defaults, the way httpserver.Listen() only overrides
// http.Server/http2.Server fields when the configured value is non-zero.
func (c *Config) Validate() error {
	if c.Network == "" {
		c.Network = "tcp"
	}
	if c.Protocol == 0 {
		c.Protocol = ProtocolH1
	}
	if c.H1 == (h1conn.Options{}) {
		c.H1 = h1conn.DefaultOptions
	}
	if c.H2 == (h2conn.Options{}) {
		c.H2 = h2conn.DefaultOptions
	}
	if c.TCP == (netlisten.TCPOptions{}) {
		c.TCP = netlisten.DefaultTCPOptions
	}
	return validator.New().Struct(c)
}
