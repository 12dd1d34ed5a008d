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
	"context"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"

	"github.com/nabbar/httpcore/drain"
	"github.com/nabbar/httpcore/herr"
	"github.com/nabbar/httpcore/logging"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/service"
	"github.com/nabbar/httpcore/upgrade"
)

func init() {
	herr.Register(ErrPreface, "h2: invalid client connection preface")
	herr.Register(ErrProtocol, "h2: protocol error")
}

const (
	ErrPreface  = herr.MinH2
	ErrProtocol = herr.MinH2 + 1
)

const (
	defaultInitialWindowSize = 65535
	defaultMaxFrameSize      = 16384
)

// Run drives one HTTP/2 connection to completion: consume the client
// connection preface, exchange initial SETTINGS, then loop
// reading frames and dispatching to per-stream background tasks until a
// read fails or the peer sends GOAWAY, then wait for every stream task to
// finish. When the drain watch fires, Run sends GOAWAY and refuses new
// streams but keeps reading; it does not close the connection by itself
// once the remaining streams have finished.
func Run(ctx context.Context, stream upgrade.Stream, remote remoteaddr.RemoteAddr, svc service.Service, watch *drain.Watch, opts Options, log logging.FuncLog) error {
	if opts.InitialWindowSize == 0 {
		opts.InitialWindowSize = defaultInitialWindowSize
	}
	if opts.MaxFrameSize == 0 {
		opts.MaxFrameSize = defaultMaxFrameSize
	}

	c := &conn{
		stream:     stream,
		remote:     remote,
		svc:        svc,
		watch:      watch,
		opts:       opts,
		log:        logging.With(log, "h2conn"),
		framer:     http2.NewFramer(stream, stream),
		streams:    make(map[uint32]*streamState),
		sendWindow: newFlowWindow(defaultInitialWindowSize),
	}
	c.hpackEnc = hpack.NewEncoder(&c.hpackBuf)
	c.hpackDec = hpack.NewDecoder(4096, nil)
	c.framer.MaxHeaderListSize = opts.MaxHeaderListSize

	if err := c.handshake(); err != nil {
		return err
	}

	stop := func() {}
	if watch != nil {
		stop = drain.Watching(watch, c.gracefulShutdown)
	}

	err := c.loop(ctx)
	c.wg.Wait()
	stop()
	c.sendWindow.close()
	_ = stream.Close()
	return err
}

type conn struct {
	stream upgrade.Stream
	remote remoteaddr.RemoteAddr
	svc    service.Service
	watch  *drain.Watch
	opts   Options
	log    logging.FuncLog

	framer *http2.Framer

	writeMu  sync.Mutex
	hpackEnc *hpack.Encoder
	hpackBuf bytes.Buffer

	hpackDec *hpack.Decoder

	sendWindow *flowWindow

	streamMu    sync.Mutex
	streams     map[uint32]*streamState
	maxStreamID atomic.Uint32

	draining atomic.Bool
	wg       sync.WaitGroup

	pendingID     uint32
	pendingHdr    *headerAccumulator
	pendingEndStr bool
}

// handshake consumes the fixed client connection preface and sends our
// initial SETTINGS frame. The client's own SETTINGS frame is handled like
// any other frame once loop starts.
func (c *conn) handshake() error {
	preface := make([]byte, len(http2.ClientPreface))
	if _, err := io.ReadFull(c.stream, preface); err != nil {
		return herr.New(ErrPreface, err)
	}
	if string(preface) != http2.ClientPreface {
		return herr.New(ErrPreface, nil)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.framer.WriteSettings(
		http2.Setting{ID: http2.SettingInitialWindowSize, Val: c.opts.InitialWindowSize},
		http2.Setting{ID: http2.SettingMaxFrameSize, Val: c.opts.MaxFrameSize},
		http2.Setting{ID: http2.SettingMaxConcurrentStreams, Val: c.opts.MaxConcurrentStreams},
	)
}

// loop is the connection task's steady state: read a frame, dispatch it,
// repeat until a read error or a peer GOAWAY ends the connection.
func (c *conn) loop(ctx context.Context) error {
	for {
		fr, err := c.framer.ReadFrame()
		if err != nil {
			return herr.New(ErrProtocol, err)
		}

		switch f := fr.(type) {
		case *http2.SettingsFrame:
			if err := c.onSettings(f); err != nil {
				return err
			}

		case *http2.WindowUpdateFrame:
			c.onWindowUpdate(f)

		case *http2.HeadersFrame:
			c.onHeaders(ctx, f)

		case *http2.ContinuationFrame:
			c.onContinuation(ctx, f)

		case *http2.DataFrame:
			c.onData(f)

		case *http2.RSTStreamFrame:
			if st := c.getStream(f.StreamID); st != nil {
				st.body.finish(errStreamReset, nil)
				st.cancel()
			}

		case *http2.PingFrame:
			if !f.IsAck() {
				c.writeMu.Lock()
				err := c.framer.WritePing(true, f.Data)
				c.writeMu.Unlock()
				if err != nil {
					return err
				}
			}

		case *http2.GoAwayFrame:
			return nil

		default:
			// Priority and any frame type this engine does not special-case
			// are accepted and ignored, per RFC 7540's forward-compatibility
			// requirement.
		}
	}
}

func (c *conn) onSettings(f *http2.SettingsFrame) error {
	if f.IsAck() {
		return nil
	}
	_ = f.ForeachSetting(func(s http2.Setting) error {
		if s.ID == http2.SettingInitialWindowSize {
			c.adjustStreamWindows(int64(s.Val) - int64(defaultInitialWindowSize))
		}
		return nil
	})
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.framer.WriteSettingsAck()
}

func (c *conn) onWindowUpdate(f *http2.WindowUpdateFrame) {
	if f.StreamID == 0 {
		c.sendWindow.grant(int64(f.Increment))
		return
	}
	if st := c.getStream(f.StreamID); st != nil {
		st.sendWindow.grant(int64(f.Increment))
	}
}

func (c *conn) onHeaders(ctx context.Context, f *http2.HeadersFrame) {
	c.pendingID = f.StreamID
	c.pendingHdr = newHeaderAccumulator()
	c.pendingEndStr = f.StreamEnded()
	c.hpackDec.SetEmitFunc(c.pendingHdr.field)
	if _, err := c.hpackDec.Write(f.HeaderBlockFragment()); err != nil {
		c.resetStream(f.StreamID, http2.ErrCodeCompression)
		c.pendingHdr = nil
		return
	}
	if f.HeadersEnded() {
		c.finishHeaders(ctx)
	}
}

func (c *conn) onContinuation(ctx context.Context, f *http2.ContinuationFrame) {
	if c.pendingHdr == nil {
		return
	}
	if _, err := c.hpackDec.Write(f.HeaderBlockFragment()); err != nil {
		c.resetStream(c.pendingID, http2.ErrCodeCompression)
		c.pendingHdr = nil
		return
	}
	if f.HeadersEnded() {
		c.finishHeaders(ctx)
	}
}

// finishHeaders is invoked once a full header block (across any
// CONTINUATION frames) has been decoded: build the Request, create its body
// adapter, and spawn the background stream task.
func (c *conn) finishHeaders(ctx context.Context) {
	id, acc, endStream := c.pendingID, c.pendingHdr, c.pendingEndStr
	c.pendingHdr = nil

	if c.draining.Load() {
		c.resetStream(id, http2.ErrCodeRefusedStream)
		return
	}

	req, err := acc.request()
	if err != nil {
		c.resetStream(id, http2.ErrCodeProtocol)
		return
	}

	length, hasLength := contentLength(req.Header)
	body := newRequestBody(length, hasLength)
	if endStream {
		body.finish(nil, nil)
	}

	sctx, cancel := context.WithCancel(ctx)
	st := &streamState{
		id:         id,
		req:        req,
		body:       body,
		sendWindow: newFlowWindow(int64(c.opts.InitialWindowSize)),
		recvWindow: int64(c.opts.InitialWindowSize),
		cancel:     cancel,
	}
	c.putStream(st)
	c.maxStreamID.Store(id)

	c.wg.Add(1)
	go c.streamTask(sctx, st)
}

func (c *conn) onData(f *http2.DataFrame) {
	st := c.getStream(f.StreamID)
	if st == nil {
		return
	}
	data := f.Data()
	if len(data) > 0 {
		buf := make([]byte, len(data))
		copy(buf, data)
		st.body.push(buf)
		c.creditRecvWindow(st, len(data))
	}
	if f.StreamEnded() {
		st.body.finish(nil, nil)
	}
}

// creditRecvWindow issues WINDOW_UPDATE frames once consumed-but-uncredited
// bytes cross half the configured window, at both stream and connection
// scope.
func (c *conn) creditRecvWindow(st *streamState, n int) {
	st.recvMu.Lock()
	st.recvWindow -= int64(n)
	var incr uint32
	if st.recvWindow <= int64(c.opts.InitialWindowSize)/2 {
		incr = c.opts.InitialWindowSize - uint32(st.recvWindow)
		st.recvWindow = int64(c.opts.InitialWindowSize)
	}
	st.recvMu.Unlock()

	if incr == 0 {
		return
	}
	c.writeMu.Lock()
	_ = c.framer.WriteWindowUpdate(st.id, incr)
	_ = c.framer.WriteWindowUpdate(0, incr)
	c.writeMu.Unlock()
}

func (c *conn) adjustStreamWindows(delta int64) {
	if delta == 0 {
		return
	}
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	for _, st := range c.streams {
		st.sendWindow.grant(delta)
	}
}

func (c *conn) resetStream(id uint32, code http2.ErrCode) {
	c.writeMu.Lock()
	_ = c.framer.WriteRSTStream(id, code)
	c.writeMu.Unlock()
}

func (c *conn) getStream(id uint32) *streamState {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return c.streams[id]
}

func (c *conn) putStream(st *streamState) {
	c.streamMu.Lock()
	c.streams[st.id] = st
	c.streamMu.Unlock()
}

func (c *conn) removeStream(id uint32) {
	c.streamMu.Lock()
	delete(c.streams, id)
	c.streamMu.Unlock()
}

// gracefulShutdown is the H2 half of server-initiated shutdown: send GOAWAY
// once; existing streams run to completion, and any HEADERS arriving
// afterward are refused (see finishHeaders).
func (c *conn) gracefulShutdown() {
	if !c.draining.CompareAndSwap(false, true) {
		return
	}
	c.writeMu.Lock()
	_ = c.framer.WriteGoAway(c.maxStreamID.Load(), http2.ErrCodeNo, nil)
	c.writeMu.Unlock()
}
