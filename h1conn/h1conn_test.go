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

package h1conn_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/httpcore/drain"
	"github.com/nabbar/httpcore/remoteaddr"
	"github.com/nabbar/httpcore/service"
	"github.com/nabbar/httpcore/streambody"
	"github.com/nabbar/httpcore/upgrade"

	. "github.com/nabbar/httpcore/h1conn"
)

// pipeStream adapts one half of a net.Pipe into upgrade.Stream for tests;
// net.Pipe has no half-close, so CloseWrite just closes the whole pipe.
type pipeStream struct{ net.Conn }

func (p pipeStream) CloseWrite() error { return p.Conn.Close() }

// helloService answers every request with a fixed "hello" body.
type helloService struct{}

func (helloService) Ready(context.Context) error { return nil }

func (helloService) Call(_ context.Context, req *service.Request) (*service.Response, error) {
	return &service.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       streambody.NewBytes([]byte("hello")),
	}, nil
}

// echoService drains the request body and returns it verbatim.
type echoService struct{}

func (echoService) Ready(context.Context) error { return nil }

func (echoService) Call(ctx context.Context, req *service.Request) (*service.Response, error) {
	data, _, err := streambody.Drain(ctx, req.Body)
	if err != nil {
		return nil, err
	}
	return &service.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       streambody.NewBytes(data),
	}, nil
}

type unknownLengthService struct{}

func (unknownLengthService) Ready(context.Context) error { return nil }

func (unknownLengthService) Call(context.Context, *service.Request) (*service.Response, error) {
	return &service.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       &unboundedBody{chunks: []string{"stream", "ed"}},
	}, nil
}

// unboundedBody never reports a known ContentLength, forcing chunked framing.
type unboundedBody struct {
	chunks []string
	i      int
}

func (b *unboundedBody) Next(context.Context) ([]byte, error) {
	if b.i >= len(b.chunks) {
		return nil, streambody.EOF
	}
	c := b.chunks[b.i]
	b.i++
	return []byte(c), nil
}
func (b *unboundedBody) Trailers(context.Context) (http.Header, error) { return nil, nil }
func (b *unboundedBody) IsEndStream() bool                             { return b.i >= len(b.chunks) }
func (b *unboundedBody) ContentLength() (uint64, bool)                 { return 0, false }

// connectService accepts a CONNECT request and offers an upgrade.Body that
// records the rewind prefix it was handed and then echoes everything it
// reads back onto the raw stream.
type connectService struct {
	rewindGot chan []byte
}

func (s *connectService) Ready(context.Context) error { return nil }

func (s *connectService) Call(context.Context, *service.Request) (*service.Response, error) {
	return &service.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       &connectBody{rewindGot: s.rewindGot},
	}, nil
}

type connectBody struct {
	rewindGot chan []byte
}

func (b *connectBody) Upgrade(ctx context.Context, raw *upgrade.Rewound) (upgrade.Connection, error) {
	prefix := make([]byte, 5)
	n, err := io.ReadFull(raw, prefix)
	if err != nil {
		return nil, err
	}
	b.rewindGot <- append([]byte(nil), prefix[:n]...)
	return &echoConn{raw: raw, done: make(chan struct{})}, nil
}

// echoConn reflects every byte it reads on the raw stream back onto it,
// until the stream reaches EOF.
type echoConn struct {
	raw  *upgrade.Rewound
	done chan struct{}
}

func (c *echoConn) Close(ctx context.Context) error {
	defer close(c.done)
	buf := make([]byte, 4096)
	for {
		n, err := c.raw.Read(buf)
		if n > 0 {
			if _, werr := c.raw.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (c *echoConn) GracefulShutdown() {}

func runConn(svc service.Service, opts Options) (client net.Conn, watch *drain.Watch, done <-chan error) {
	client, server := net.Pipe()
	_, w := drain.New()

	ch := make(chan error, 1)
	go func() {
		ch <- Run(context.Background(), pipeStream{server}, remoteaddr.Opaque([]byte("test")), svc, w, opts, nil)
	}()
	return client, w, ch
}

var _ = Describe("Run", func() {
	It("serves a simple GET with a fixed body", func() {
		client, _, done := runConn(helloService{}, DefaultOptions)
		defer client.Close()

		_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
		Expect(err).ToNot(HaveOccurred())

		resp, err := http.ReadResponse(bufio.NewReader(client), nil)
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(buf.String()).To(Equal("hello"))

		Eventually(done, time.Second).Should(Receive(BeNil()))
	})

	It("echoes a POST body back", func() {
		client, _, done := runConn(echoService{}, DefaultOptions)
		defer client.Close()

		body := "ping-pong payload"
		req := "POST /echo HTTP/1.1\r\nHost: example.com\r\nContent-Length: " +
			strconv.Itoa(len(body)) + "\r\nConnection: close\r\n\r\n" + body
		_, err := client.Write([]byte(req))
		Expect(err).ToNot(HaveOccurred())

		resp, err := http.ReadResponse(bufio.NewReader(client), nil)
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()

		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(buf.String()).To(Equal(body))

		Eventually(done, time.Second).Should(Receive())
	})

	It("serves a second request on a keep-alive connection", func() {
		client, _, _ := runConn(helloService{}, DefaultOptions)
		defer client.Close()

		reader := bufio.NewReader(client)
		for i := 0; i < 2; i++ {
			_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
			Expect(err).ToNot(HaveOccurred())

			resp, err := http.ReadResponse(reader, nil)
			Expect(err).ToNot(HaveOccurred())
			var buf bytes.Buffer
			_, err = buf.ReadFrom(resp.Body)
			Expect(err).ToNot(HaveOccurred())
			resp.Body.Close()
			Expect(buf.String()).To(Equal("hello"))
		}
	})

	It("falls back to chunked framing when the body's length is unknown", func() {
		client, _, done := runConn(unknownLengthService{}, DefaultOptions)
		defer client.Close()

		_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
		Expect(err).ToNot(HaveOccurred())

		reader := bufio.NewReader(client)
		resp, err := http.ReadResponse(reader, nil)
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.TransferEncoding[0]).To(Equal("chunked"))
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(buf.String()).To(Equal("streamed"))

		Eventually(done, time.Second).Should(Receive())
	})

	It("shuts down without reading the next request once drained", func() {
		client, server := net.Pipe()
		defer client.Close()
		signal, w := drain.New()

		// Broadcast the drain signal and wait for it to land before starting
		// Run, so its first Signaled() check is guaranteed to observe it
		// instead of racing ahead into a blocking ReadRequest.
		go signal.Drain()
		Eventually(w.Signaled, time.Second, time.Millisecond).Should(BeTrue())

		ch := make(chan error, 1)
		go func() {
			ch <- Run(context.Background(), pipeStream{server}, remoteaddr.Opaque(nil), helloService{}, w, DefaultOptions, nil)
		}()

		Eventually(ch, time.Second).Should(Receive(BeNil()))
	})

	It("transitions InFlight -> WillUpgrade -> Upgraded on a CONNECT request, handing over the rewind buffer", func() {
		client, server := net.Pipe()
		defer client.Close()

		svc := &connectService{rewindGot: make(chan []byte, 1)}
		_, w := drain.New()

		ch := make(chan error, 1)
		go func() {
			ch <- Run(context.Background(), pipeStream{server}, remoteaddr.Opaque([]byte("test")), svc, w, DefaultOptions, nil)
		}()

		// The CONNECT request carries no body, so anything written after
		// its blank line lands in the read buffer as the rewind prefix.
		_, err := client.Write([]byte("CONNECT example.com:443 HTTP/1.1\r\nHost: example.com\r\n\r\nabcde"))
		Expect(err).ToNot(HaveOccurred())

		reader := bufio.NewReader(client)
		resp, err := http.ReadResponse(reader, &http.Request{Method: http.MethodConnect})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var rewound []byte
		Eventually(svc.rewindGot, time.Second).Should(Receive(&rewound))
		Expect(string(rewound)).To(Equal("abcde"))

		// Once upgraded, the stream is raw: anything written is echoed
		// straight back by the handed-off connection.
		_, err = client.Write([]byte("raw-bytes"))
		Expect(err).ToNot(HaveOccurred())

		echoBuf := make([]byte, len("raw-bytes"))
		_, err = io.ReadFull(reader, echoBuf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(echoBuf)).To(Equal("raw-bytes"))

		Expect(client.Close()).To(Succeed())
		Eventually(ch, time.Second).Should(Receive(BeNil()))
	})
})
