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
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nabbar/httpcore/drain"
	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/logging"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/service"
	"github.com/nabbar/httpcore/streambody"
	"github.com/nabbar/httpcore/upgrade"
)

func init() {
	herr.Register(ErrProtocol, "h1: protocol error")
	herr.Register(ErrServiceCall, "h1: service readiness/call failure")
	herr.Register(ErrUpgradeRejected, "h1: upgrade body rejected the stream")
}

const (
	ErrProtocol        = herr.MinH1
	ErrServiceCall     = herr.MinH1 + 1
	ErrUpgradeRejected = herr.MinH1 + 2
)

// Run drives one HTTP/1.1 connection to completion: InFlight -> (WillUpgrade
// | Shutdown) -> (Upgraded | Shutdown) -> Closed. It returns once the stream
// has been shut down or ownership of it has been handed to an upgrade
// handler and that handler has completed.
func Run(ctx context.Context, stream upgrade.Stream, remote remoteaddr.RemoteAddr, svc service.Service, watch *drain.Watch, opts Options, log logging.FuncLog) error {
	c := &conn{
		stream: stream,
		remote: remote,
		svc:    svc,
		watch:  watch,
		opts:   opts,
		log:    logging.With(log, "h1conn"),
		br:     bufio.NewReaderSize(stream, opts.MaxReadBuffer),
		bw:     bufio.NewWriter(stream),
	}
	return c.run(ctx)
}

type conn struct {
	stream upgrade.Stream
	remote remoteaddr.RemoteAddr
	svc    service.Service
	watch  *drain.Watch
	opts   Options
	log    logging.FuncLog
	br     *bufio.Reader
	bw     *bufio.Writer
}

// run is the InFlight state: read a request, dispatch it, stream the
// response, and either loop for the next request or transition out.
func (c *conn) run(ctx context.Context) error {
	for {
		if c.watch != nil && c.watch.Signaled() {
			// Drain during exchange: refuse new requests, but anything
			// already in flight has already been handled by a previous
			// loop iteration by the time we observe this.
			return c.shutdown(nil)
		}

		if c.opts.PipelineFlush && c.br.Buffered() == 0 {
			if err := c.bw.Flush(); err != nil {
				return c.shutdown(herr.New(ErrProtocol, err))
			}
		}

		req, err := http.ReadRequest(c.br)
		if err != nil {
			if err == io.EOF {
				return c.shutdown(nil)
			}
			c.log().WithError(err).Debug("malformed request, closing connection")
			return c.shutdown(herr.New(ErrProtocol, err))
		}
		req = req.WithContext(ctx)

		var slot *upgrade.Slot
		eligible := eligibleForUpgrade(req)
		if eligible {
			slot = upgrade.NewSlot()
		}

		if err := c.svc.Ready(ctx); err != nil {
			c.log().WithError(err).Error("service not ready, aborting connection")
			return c.shutdown(herr.New(ErrServiceCall, err))
		}

		wreq := &service.Request{
			Request: req,
			Body:    requestBody(req),
			Remote:  c.remote,
		}

		resp, callErr := c.svc.Call(ctx, wreq)
		c.drainRequestBody(ctx, wreq)
		if callErr != nil {
			c.log().WithError(callErr).Error("service call failed, closing connection")
			return c.shutdown(herr.New(ErrServiceCall, callErr))
		}

		if eligible && triggersUpgrade(req, resp.StatusCode) {
			body, ok := resp.Body.(upgrade.Body)
			if !ok {
				slot.Offer(nil)
				return c.shutdown(herr.New(ErrUpgradeRejected, nil))
			}
			slot.Offer(body)
			if err := c.writeUpgradeHeaders(resp); err != nil {
				return c.shutdown(herr.New(ErrProtocol, err))
			}
			return c.willUpgrade(ctx, slot)
		}
		if slot != nil {
			slot.Offer(nil)
		}

		if err := c.writeResponse(ctx, resp); err != nil {
			c.log().WithError(err).Error("response write failed, closing connection")
			return c.shutdown(herr.New(ErrProtocol, err))
		}

		if !c.opts.KeepAlive || !keepAliveRequested(req) {
			return c.shutdown(nil)
		}
	}
}

// drainRequestBody discards whatever the Service didn't read, so the read
// buffer is correctly positioned at the next request's boundary.
func (c *conn) drainRequestBody(ctx context.Context, wreq *service.Request) {
	for {
		_, err := wreq.Body.Next(ctx)
		if err != nil {
			return
		}
	}
}

// willUpgrade awaits the response body the per-request handler offered on
// slot and, once present, hands it the raw stream with its rewind buffer.
func (c *conn) willUpgrade(ctx context.Context, slot *upgrade.Slot) error {
	body, ok, err := slot.Await(ctx)
	if err != nil {
		return c.shutdown(err)
	}
	if !ok {
		return c.shutdown(nil)
	}

	rewind := c.rewindBuffer()
	rewound := upgrade.NewRewound(c.stream, rewind)

	uc, uerr := body.Upgrade(ctx, rewound)
	if uerr != nil {
		c.log().WithError(uerr).Debug("upgrade body rejected the stream, shutting down normally")
		return c.shutdown(nil)
	}
	return c.upgraded(ctx, uc)
}

// rewindBuffer returns bytes the engine already read past the end of the
// request headers: these are exposed to the upgrade handler before the
// stream is ever shut down.
func (c *conn) rewindBuffer() []byte {
	n := c.br.Buffered()
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	_, _ = io.ReadFull(c.br, buf)
	return buf
}

// upgraded drives the handed-off Connection to completion, cooperating with
// the drain watch by calling GracefulShutdown on it if the server starts
// draining while the upgraded connection is still running.
func (c *conn) upgraded(ctx context.Context, uc upgrade.Connection) error {
	stop := func() {}
	if c.watch != nil {
		stop = drain.Watching(c.watch, uc.GracefulShutdown)
	}
	defer stop()
	if err := uc.Close(ctx); err != nil {
		c.log().WithError(err).Debug("upgraded connection ended with error")
		return err
	}
	return nil
}

// shutdown flushes any buffered output, then half-closes (if permitted) and
// closes the underlying stream. Always the terminal step before Closed.
func (c *conn) shutdown(err error) error {
	_ = c.bw.Flush()
	if c.opts.AllowHalfClose {
		_ = c.stream.CloseWrite()
	}
	_ = c.stream.Close()
	return err
}

func (c *conn) writeStatusLine(code int) error {
	_, err := c.bw.WriteString("HTTP/1.1 " + strconv.Itoa(code) + " " + http.StatusText(code) + "\r\n")
	return err
}

func (c *conn) writeUpgradeHeaders(resp *service.Response) error {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if resp.Header.Get("Date") == "" {
		resp.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if err := c.writeStatusLine(resp.StatusCode); err != nil {
		return err
	}
	if err := resp.Header.Write(c.bw); err != nil {
		return err
	}
	if _, err := c.bw.WriteString("\r\n"); err != nil {
		return err
	}
	return c.bw.Flush()
}

// writeResponse streams a non-upgrade response: sized framing when the body
// knows its length, chunked otherwise. h2conn likewise derives
// Content-Length from the body's known length.
func (c *conn) writeResponse(ctx context.Context, resp *service.Response) error {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}

	length, hasLength := resp.Body.ContentLength()
	chunked := !hasLength
	if hasLength {
		resp.Header.Set("Content-Length", strconv.FormatUint(length, 10))
		resp.Header.Del("Transfer-Encoding")
	} else {
		resp.Header.Set("Transfer-Encoding", "chunked")
	}
	if resp.Header.Get("Date") == "" {
		resp.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if resp.Header.Get("Server") == "" {
		resp.Header.Set("Server", "httpcore")
	}

	if err := c.writeStatusLine(resp.StatusCode); err != nil {
		return err
	}
	if err := resp.Header.Write(c.bw); err != nil {
		return err
	}
	if _, err := c.bw.WriteString("\r\n"); err != nil {
		return err
	}

	for {
		chunk, err := resp.Body.Next(ctx)
		if err == streambody.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := c.writeChunk(chunk, chunked); err != nil {
			return err
		}
	}

	if chunked {
		trailer, err := resp.Body.Trailers(ctx)
		if err != nil {
			return err
		}
		if _, err := c.bw.WriteString("0\r\n"); err != nil {
			return err
		}
		if trailer != nil {
			if err := trailer.Write(c.bw); err != nil {
				return err
			}
		}
		if _, err := c.bw.WriteString("\r\n"); err != nil {
			return err
		}
	}

	if c.opts.PipelineFlush {
		return nil
	}
	return c.bw.Flush()
}

func (c *conn) writeChunk(chunk []byte, chunked bool) error {
	if !chunked {
		_, err := c.bw.Write(chunk)
		return err
	}
	size := []byte(strconv.FormatInt(int64(len(chunk)), 16) + "\r\n")
	if c.opts.Vectored {
		nb := net.Buffers{size, chunk, []byte("\r\n")}
		_, err := nb.WriteTo(c.bw)
		return err
	}
	if _, err := c.bw.Write(size); err != nil {
		return err
	}
	if _, err := c.bw.Write(chunk); err != nil {
		return err
	}
	_, err := c.bw.WriteString("\r\n")
	return err
}
