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

package logging_test

import (
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/nabbar/httpcore/logging"
)

var _ = Describe("Pick", func() {
	It("falls back to Default when given nil", func() {
		f := Pick(nil)
		entry := f()
		Expect(entry.Data["logger"]).To(Equal("httpcore"))
	})

	It("passes a non-nil FuncLog through unchanged", func() {
		custom := func() *logrus.Entry {
			return logrus.NewEntry(logrus.New()).WithField("marker", "custom")
		}
		f := Pick(custom)
		entry := f()
		Expect(entry.Data["marker"]).To(Equal("custom"))
	})
})

var _ = Describe("With", func() {
	It("tags the component without losing existing fields", func() {
		base := func() *logrus.Entry {
			return logrus.NewEntry(logrus.New()).WithField("marker", "custom")
		}
		scoped := With(base, "h1conn")
		entry := scoped()
		Expect(entry.Data["component"]).To(Equal("h1conn"))
		Expect(entry.Data["marker"]).To(Equal("custom"))
	})

	It("falls back to the default logger when base is nil", func() {
		scoped := With(nil, "server")
		entry := scoped()
		Expect(entry.Data["component"]).To(Equal("server"))
		Expect(entry.Data["logger"]).To(Equal("httpcore"))
	})
})
