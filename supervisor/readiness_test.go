/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package supervisor_test

import (
	"encoding/binary"
	"io"
	"os"
	"strconv"

	"github.com/featherhq/feather/supervisor"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("readiness handshake", func() {
	AfterEach(func() {
		_ = os.Unsetenv(supervisor.EnvReadyFD)
	})

	It("is a no-op when no readiness pipe was inherited", func() {
		Expect(supervisor.SignalReady("noop-cluster")).ToNot(HaveOccurred())
	})

	It("writes this process's PID to the inherited pipe", func() {
		r, w, err := os.Pipe()
		Expect(err).ToNot(HaveOccurred())
		defer r.Close()

		_ = os.Setenv(supervisor.EnvReadyFD, strconv.Itoa(int(w.Fd())))

		Expect(supervisor.SignalReady("readiness-cluster")).ToNot(HaveOccurred())

		var buf [4]byte
		_, err = io.ReadFull(r, buf[:])
		Expect(err).ToNot(HaveOccurred())
		Expect(binary.LittleEndian.Uint32(buf[:])).To(Equal(uint32(os.Getpid())))
	})
})
