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

package herr_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/nabbar/httpcore/herr"
)

const testCode Code = 999

func init() {
	Register(testCode, "test: sentinel message")
}

var _ = Describe("Error", func() {
	Describe("message lookup", func() {
		It("looks up the registered message for its code", func() {
			e := New(testCode, nil)
			Expect(e.Error()).To(ContainSubstring("test: sentinel message"))
			Expect(e.Code()).To(Equal(testCode))
		})
	})

	Describe("parent wrapping", func() {
		It("wraps and unwraps its parent error", func() {
			parent := errors.New("boom")
			e := New(testCode, parent)
			Expect(e.Error()).To(ContainSubstring("boom"))
			Expect(errors.Is(e, parent)).To(BeTrue())
			Expect(e.Unwrap()).To(Equal(parent))
		})
	})

	Describe("unknown codes", func() {
		It("falls back to a generic message", func() {
			e := New(Code(123456), nil)
			Expect(e.Error()).To(ContainSubstring("unknown error"))
		})
	})

	Describe("Is", func() {
		It("matches by code alone, ignoring the parent", func() {
			a := New(testCode, errors.New("first"))
			b := New(testCode, errors.New("second"))
			other := New(MinListener, nil)

			Expect(errors.Is(a, b)).To(BeTrue())
			Expect(errors.Is(a, other)).To(BeFalse())
		})
	})
})
