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

// Package remoteaddr is the tagged RemoteAddr variant carried alongside every
// accepted stream and attached to request context.
package remoteaddr

import "net"

// Kind tags which variant of RemoteAddr is populated.
type Kind uint8

const (
	KindTCP Kind = iota
	KindUnix
	KindOpaque
)

// RemoteAddr is a {TCP, Unix, Opaque} tagged variant over the peer address
// kinds a Listener can produce.
type RemoteAddr struct {
	kind   Kind
	tcp    *net.TCPAddr
	unix   *net.UnixAddr
	opaque []byte
}

func TCP(a *net.TCPAddr) RemoteAddr     { return RemoteAddr{kind: KindTCP, tcp: a} }
func Unix(a *net.UnixAddr) RemoteAddr   { return RemoteAddr{kind: KindUnix, unix: a} }
func Opaque(b []byte) RemoteAddr        { return RemoteAddr{kind: KindOpaque, opaque: b} }

// FromNetAddr classifies a net.Addr into the matching variant, falling back
// to Opaque(addr.String()) for transports this module doesn't special-case.
func FromNetAddr(addr net.Addr) RemoteAddr {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return TCP(a)
	case *net.UnixAddr:
		return Unix(a)
	default:
		if addr == nil {
			return Opaque(nil)
		}
		return Opaque([]byte(addr.String()))
	}
}

func (r RemoteAddr) Kind() Kind { return r.kind }

func (r RemoteAddr) TCPAddr() (*net.TCPAddr, bool) {
	return r.tcp, r.kind == KindTCP
}

func (r RemoteAddr) UnixAddr() (*net.UnixAddr, bool) {
	return r.unix, r.kind == KindUnix
}

func (r RemoteAddr) OpaqueBytes() ([]byte, bool) {
	return r.opaque, r.kind == KindOpaque
}

func (r RemoteAddr) String() string {
	switch r.kind {
	case KindTCP:
		if r.tcp != nil {
			return r.tcp.String()
		}
	case KindUnix:
		if r.unix != nil {
			return r.unix.String()
		}
	case KindOpaque:
		return string(r.opaque)
	}
	return ""
}

type ctxKey struct{}

// key is reachable only through NewContext and FromContext; neither it nor
// its type is exported, the way the stdlib keeps its own context keys
// unexported.
var key = ctxKey{}
