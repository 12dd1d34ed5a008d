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

package server

import (
	"context"
	"strings"
	"sync"

	"github.com/nabbar/httpcore/drain"
	"github.com/nabbar/httpcore/h1conn"
	"github.com/nabbar/httpcore/h2conn"
	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/logging"
	"github.com/nabbar/httpcore/netlisten"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/service"
	"github.com/nabbar/httpcore/tlsaccept"
	"github.com/nabbar/httpcore/upgrade"
)

func init() {
	herr.Register(ErrListen, "server: failed to bind listener")
	herr.Register(ErrAccept, "server: accept loop aborted")
	herr.Register(ErrMakeService, "server: per-connection service construction failed")
}

const (
	ErrListen      = herr.MinServer
	ErrAccept      = herr.MinServer + 1
	ErrMakeService = herr.MinServer + 2
)

// Server is the accept-loop task: holds the listener, the MakeService
// factory, the drain Signal half, and drives one child task per accepted
// connection.
type Server struct {
	cfg Config
	ln  netlisten.Listener
	acc tlsaccept.Acceptor
	mk  service.MakeService
	log logging.FuncLog

	signal *drain.Signal
	watch  *drain.Watch
	wg     sync.WaitGroup
}

// New validates cfg, binds the listener it names, and wraps it in
// SleepOnErrors/TLS per cfg, mirroring httpserver.New + httpserver.Listen's
// two-step construct-then-bind shape.
func New(cfg Config, mk service.MakeService, log logging.FuncLog) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logging.With(log, "server")

	var (
		ln  netlisten.Listener
		err error
	)
	switch cfg.Network {
	case "unix":
		ln, err = netlisten.Unix(cfg.Listen)
	default:
		ln, err = netlisten.TCP(cfg.Listen, cfg.TCP)
	}
	if err != nil {
		return nil, herr.New(ErrListen, err)
	}
	if cfg.SleepOnAcceptErrors > 0 {
		ln = netlisten.NewSleepOnErrors(ln, cfg.SleepOnAcceptErrors, log)
	}

	acc := tlsaccept.Identity
	if cfg.TLS != nil {
		acc = tlsaccept.TLS(cfg.TLS)
	}

	signal, watch := drain.New()
	return &Server{cfg: cfg, ln: ln, acc: acc, mk: mk, log: log, signal: signal, watch: watch}, nil
}

// Addr exposes the bound listener address, e.g. for tests binding to ":0".
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve is the accept loop: repeatedly accept a stream, run it through the
// Acceptor, construct its Service, and spawn a connection task for it,
// until ctx is done or the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	defer s.watch.Release()

	for {
		if err := s.mk.Ready(ctx); err != nil {
			return herr.New(ErrMakeService, err)
		}

		raw, remote, err := s.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return herr.New(ErrAccept, err)
		}

		s.wg.Add(1)
		go s.handle(ctx, raw, remote)
	}
}

// handle is accept loop step 4: the per-connection child task.
func (s *Server) handle(ctx context.Context, raw upgrade.Stream, remote remoteaddr.RemoteAddr) {
	defer s.wg.Done()

	stream, err := s.acc.Accept(ctx, raw)
	if err != nil {
		s.log().WithError(err).Debug("acceptor rejected stream")
		_ = raw.Close()
		return
	}

	svc, err := s.mk.Make(ctx, service.MakeContext{Remote: remote})
	if err != nil {
		s.log().WithError(err).Debug("service construction failed")
		_ = stream.Close()
		return
	}

	w := s.watch.Clone()
	defer w.Release()

	if s.useH2(stream) {
		if err := h2conn.Run(ctx, stream, remote, svc, w, s.cfg.H2, s.log); err != nil {
			s.log().WithError(err).Debug("h2 connection ended")
		}
		return
	}
	if err := h1conn.Run(ctx, stream, remote, svc, w, s.cfg.H1, s.log); err != nil {
		s.log().WithError(err).Debug("h1 connection ended")
	}
}

// useH2 implements ALPN-based protocol selection: any stream exposing a
// negotiated protocol of "h2" uses the H2 engine; otherwise fall back to
// the statically configured Protocol.
func (s *Server) useH2(stream upgrade.Stream) bool {
	if np, ok := stream.(tlsaccept.NegotiatedProtocol); ok {
		proto := np.NegotiatedProtocol()
		if proto != "" {
			return strings.EqualFold(proto, "h2")
		}
	}
	return s.cfg.Protocol == ProtocolH2
}

// Shutdown drains the server: broadcast the drain signal to every
// connection watch and block until every one has released, i.e. every
// spawned connection (and the accept loop itself) has exited.
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.ln.Close()
	done := make(chan struct{})
	go func() {
		s.signal.Drain()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
