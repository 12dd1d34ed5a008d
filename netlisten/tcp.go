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

package netlisten

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/upgrade"
)

// TCPOptions configures the concrete TCP listener's nodelay/keepalive
// knobs.
type TCPOptions struct {
	// KeepAlive, when non-zero, enables TCP keepalive with this period on
	// every accepted socket.
	KeepAlive time.Duration
	// NoDelay disables Nagle's algorithm on every accepted socket.
	NoDelay bool
}

// DefaultTCPOptions matches net/http.Server's historical keepalive default.
var DefaultTCPOptions = TCPOptions{KeepAlive: 3 * time.Minute, NoDelay: true}

type tcpListener struct {
	ln  *net.TCPListener
	opt TCPOptions
}

// TCP binds a TCP listener at addr with the given options.
func TCP(addr string, opt TCPOptions) (Listener, error) {
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", a)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln, opt: opt}, nil
}

func (l *tcpListener) Accept(ctx context.Context) (upgrade.Stream, remoteaddr.RemoteAddr, error) {
	type result struct {
		c   *net.TCPConn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.AcceptTCP()
		ch <- result{c: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, remoteaddr.RemoteAddr{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, remoteaddr.RemoteAddr{}, herr.New(ErrAccept, r.err)
		}
		if l.opt.NoDelay {
			_ = r.c.SetNoDelay(true)
		}
		if l.opt.KeepAlive > 0 {
			_ = r.c.SetKeepAlive(true)
			_ = r.c.SetKeepAlivePeriod(l.opt.KeepAlive)
		}
		addr, _ := r.c.RemoteAddr().(*net.TCPAddr)
		return WrapConn(r.c), remoteaddr.TCP(addr), nil
	}
}

func (l *tcpListener) Close() error  { return l.ln.Close() }
func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }
