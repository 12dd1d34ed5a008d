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

package tlsaccept_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/httpcore/upgrade"

	. "github.com/nabbar/httpcore/tlsaccept"
)

type pipeStream struct{ net.Conn }

func (p pipeStream) CloseWrite() error { return p.Conn.Close() }

func selfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "httpcore-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

var _ = Describe("Identity", func() {
	It("returns the stream unchanged", func() {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		raw := pipeStream{server}
		out, err := Identity.Accept(context.Background(), raw)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(upgrade.Stream(raw)))
	})
})

var _ = Describe("TLS", func() {
	It("completes the handshake and negotiates ALPN", func() {
		cert, err := selfSignedCert()
		Expect(err).ToNot(HaveOccurred())

		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		acc := TLS(&tls.Config{Certificates: []tls.Certificate{cert}})
		stream, err := acc.Accept(context.Background(), pipeStream{server})
		Expect(err).ToNot(HaveOccurred())
		defer stream.Close()

		clientConn := tls.Client(client, &tls.Config{
			InsecureSkipVerify: true,
			NextProtos:         []string{"h2", "http/1.1"},
		})
		defer clientConn.Close()

		done := make(chan error, 1)
		go func() {
			_, werr := stream.Write([]byte("hello"))
			done <- werr
		}()

		buf := make([]byte, 5)
		_, err = io.ReadFull(clientConn, buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf)).To(Equal("hello"))
		Expect(<-done).ToNot(HaveOccurred())

		np, ok := stream.(NegotiatedProtocol)
		Expect(ok).To(BeTrue())
		Expect([]string{"h2", "http/1.1"}).To(ContainElement(np.NegotiatedProtocol()))
	})
})
