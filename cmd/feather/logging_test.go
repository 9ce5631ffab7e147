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

package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/featherhq/feather/config"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buildLogger", func() {
	It("builds a logger with no configured log files", func() {
		cfg, err := config.Load("cmd-feather-test", nil, "")
		Expect(err).To(BeNil())

		log, err := buildLogger(cfg)
		Expect(err).To(BeNil())
		Expect(log).ToNot(BeNil())
	})

	It("routes access and error logs to the configured files", func() {
		dir := GinkgoT().TempDir()
		cfg, err := config.Load("cmd-feather-test", nil, "")
		Expect(err).To(BeNil())
		cfg.AccessLogPath = filepath.Join(dir, "access.log")
		cfg.ErrorLogPath = filepath.Join(dir, "error.log")

		log, err := buildLogger(cfg)
		Expect(err).To(BeNil())
		Expect(log).ToNot(BeNil())
	})
})

var _ = Describe("startHeartbeat", func() {
	It("touches the worker's heartbeat file until stopped", func() {
		cfg, err := config.Load("cmd-feather-test", nil, "")
		Expect(err).To(BeNil())
		log, err := buildLogger(cfg)
		Expect(err).To(BeNil())

		cluster := "cmd-feather-heartbeat-" + strconv.Itoa(os.Getpid())
		stop := startHeartbeat(cluster, 1, log)
		defer stop()
		defer os.RemoveAll(filepath.Join(os.TempDir(), "feather-"+cluster+"-0"))

		Eventually(func() bool {
			_, statErr := os.Stat(filepath.Join(os.TempDir(), "feather-"+cluster+"-0", ".worker1"))
			return statErr == nil
		}, "2s", "50ms").Should(BeTrue())
	})
})
