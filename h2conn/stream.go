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
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/nabbar/httpcore/service"
	"github.com/nabbar/httpcore/streambody"
)

// streamState is the per-stream state: the request, its body adapter, a
// reserved-capacity counter (sendWindow) and a receive-side accounting
// counter (recvWindow) for issuing WINDOW_UPDATE back to the peer.
type streamState struct {
	id         uint32
	req        *http.Request
	body       *requestBody
	sendWindow *flowWindow

	recvMu     sync.Mutex
	recvWindow int64

	cancel context.CancelFunc
}

// streamTask is the background stream task: Ready, Call, then either a
// response carrying its own end-of-stream frame or exactly one terminating
// frame on failure, never both.
func (c *conn) streamTask(ctx context.Context, st *streamState) {
	defer c.wg.Done()
	defer st.cancel()
	defer c.removeStream(st.id)

	if err := c.svc.Ready(ctx); err != nil {
		c.log().WithError(err).Debug("h2 stream: service not ready")
		c.resetStream(st.id, http2.ErrCodeInternal)
		return
	}

	wreq := &service.Request{Request: st.req, Body: st.body, Remote: c.remote}
	resp, err := c.svc.Call(ctx, wreq)
	if err != nil {
		c.log().WithError(err).Debug("h2 stream: service call failed")
		c.resetStream(st.id, http2.ErrCodeInternal)
		return
	}

	if err := c.sendResponse(ctx, st, resp); err != nil {
		c.log().WithError(err).Debug("h2 stream: response send failed")
		c.resetStream(st.id, http2.ErrCodeInternal)
	}
}

// sendResponse writes the response: header insertion (Date, Content-Length),
// then data chunks each reserved against both the stream and connection
// flow-control windows, then trailers or a final empty end-of-stream frame.
func (c *conn) sendResponse(ctx context.Context, st *streamState, resp *service.Response) error {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if resp.Header.Get("Date") == "" {
		resp.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if length, ok := resp.Body.ContentLength(); ok && resp.Header.Get("Content-Length") == "" {
		resp.Header.Set("Content-Length", strconv.FormatUint(length, 10))
	}

	endNow := resp.Body.IsEndStream()

	c.writeMu.Lock()
	block := encodeHeaderBlock(c.hpackEnc, &c.hpackBuf, resp.StatusCode, true, resp.Header)
	err := c.writeHeaderBlock(st.id, block, endNow)
	c.writeMu.Unlock()
	if err != nil || endNow {
		return err
	}

	for {
		chunk, nerr := resp.Body.Next(ctx)
		if nerr == streambody.EOF {
			break
		}
		if nerr != nil {
			return nerr
		}
		last := resp.Body.IsEndStream()
		if err := c.sendData(ctx, st, chunk, last); err != nil {
			return err
		}
		if last {
			return nil
		}
	}

	trailer, terr := resp.Body.Trailers(ctx)
	if terr != nil {
		return terr
	}
	if len(trailer) > 0 {
		c.writeMu.Lock()
		block := encodeHeaderBlock(c.hpackEnc, &c.hpackBuf, 0, false, trailer)
		err := c.writeHeaderBlock(st.id, block, true)
		c.writeMu.Unlock()
		return err
	}
	return c.sendData(ctx, st, nil, true)
}

// writeHeaderBlock splits an hpack-encoded block across HEADERS + however
// many CONTINUATION frames MaxFrameSize requires. Caller holds writeMu.
func (c *conn) writeHeaderBlock(streamID uint32, block []byte, endStream bool) error {
	max := int(c.opts.MaxFrameSize)
	first := block
	rest := []byte(nil)
	endHeaders := true
	if len(block) > max {
		first = block[:max]
		rest = block[max:]
		endHeaders = false
	}
	if err := c.framer.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      streamID,
		BlockFragment: first,
		EndStream:     endStream,
		EndHeaders:    endHeaders,
	}); err != nil {
		return err
	}
	for len(rest) > 0 {
		chunk := rest
		final := true
		if len(chunk) > max {
			chunk = rest[:max]
			final = false
		}
		if err := c.framer.WriteContinuation(streamID, final, chunk); err != nil {
			return err
		}
		rest = rest[len(chunk):]
	}
	return nil
}

// sendData writes chunk as one or more DATA frames, reserving capacity from
// both the stream and connection send windows before each write: reserved
// chunk-by-chunk, not up front, since a window grant may cover less than
// requested.
func (c *conn) sendData(ctx context.Context, st *streamState, chunk []byte, endStream bool) error {
	remaining := chunk
	for {
		if len(remaining) == 0 {
			if !endStream {
				return nil
			}
			c.writeMu.Lock()
			err := c.framer.WriteData(st.id, true, nil)
			c.writeMu.Unlock()
			return err
		}

		want := int64(len(remaining))
		if max := int64(c.opts.MaxFrameSize); want > max {
			want = max
		}
		got, err := st.sendWindow.reserve(ctx, want)
		if err != nil {
			return err
		}
		confirmed, err := c.sendWindow.reserve(ctx, got)
		if err != nil {
			st.sendWindow.grant(got)
			return err
		}
		if confirmed < got {
			st.sendWindow.grant(got - confirmed)
		}

		piece := remaining[:confirmed]
		remaining = remaining[confirmed:]
		frameEnd := endStream && len(remaining) == 0

		c.writeMu.Lock()
		err = c.framer.WriteData(st.id, frameEnd, piece)
		c.writeMu.Unlock()
		if err != nil {
			return err
		}
		if frameEnd {
			return nil
		}
	}
}
