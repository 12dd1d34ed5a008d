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
	"os"

	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/upgrade"
)

type unixListener struct {
	ln   *net.UnixListener
	path string
}

// Unix binds a Unix domain socket listener at path, removing any stale
// socket file left behind by a previous process first.
func Unix(path string) (Listener, error) {
	_ = os.Remove(path)
	a, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", a)
	if err != nil {
		return nil, err
	}
	return &unixListener{ln: ln, path: path}, nil
}

func (l *unixListener) Accept(ctx context.Context) (upgrade.Stream, remoteaddr.RemoteAddr, error) {
	type result struct {
		c   *net.UnixConn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.AcceptUnix()
		ch <- result{c: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, remoteaddr.RemoteAddr{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, remoteaddr.RemoteAddr{}, herr.New(ErrAccept, r.err)
		}
		addr, _ := r.c.RemoteAddr().(*net.UnixAddr)
		return WrapConn(r.c), remoteaddr.Unix(addr), nil
	}
}

func (l *unixListener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.path)
	return err
}

func (l *unixListener) Addr() net.Addr { return l.ln.Addr() }
