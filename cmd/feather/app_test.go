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
	"strings"

	"github.com/featherhq/feather/config"
	"github.com/featherhq/feather/httpmsg"
	"github.com/featherhq/feather/wsgi"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("renderStatus", func() {
	st := workerStatus{WorkerID: 2, ListenAddr: "0.0.0.0:8000", WorkerCount: 4, UptimeSecs: 60}

	It("renders TOML by default", func() {
		body, contentType := renderStatus(st, "")
		Expect(contentType).To(Equal("application/toml"))
		Expect(string(body)).To(ContainSubstring("worker_id = 2"))
	})

	It("renders YAML when the Accept header asks for it", func() {
		body, contentType := renderStatus(st, "application/x-yaml")
		Expect(contentType).To(Equal("application/yaml"))
		Expect(string(body)).To(ContainSubstring("worker_id: 2"))
	})
})

var _ = Describe("acceptHeader", func() {
	It("reads HTTP_ACCEPT out of the environ map", func() {
		Expect(acceptHeader(wsgi.Environ{"HTTP_ACCEPT": "text/yaml"})).To(Equal("text/yaml"))
	})

	It("returns an empty string when the header is absent", func() {
		Expect(acceptHeader(wsgi.Environ{})).To(Equal(""))
	})
})

// call runs a wsgi.App synchronously and collects what it wrote through the
// start-response callable, the way an accept-loop connection would.
func call(app wsgi.App, env wsgi.Environ) (status string, body []byte) {
	write := func(status string, headers httpmsg.Headers, excInfo error) wsgi.WriteFunc {
		_ = headers
		_ = excInfo
		return func(data []byte) { body = append(body, data...) }
	}

	wrapped := func(s string, h httpmsg.Headers, e error) wsgi.WriteFunc {
		status = s
		return write(s, h, e)
	}

	source := app(env, wrapped)
	for {
		chunk, more := source.Next()
		body = append(body, chunk...)
		if !more {
			break
		}
	}
	return status, body
}

var _ = Describe("statusApp", func() {
	cfg := &config.Config{ListenAddr: "127.0.0.1:9000", WorkerCount: 3}
	app := statusApp(cfg, 1)

	It("answers /status with a rendered snapshot", func() {
		status, body := call(app, wsgi.Environ{"PATH_INFO": "/status"})
		Expect(status).To(Equal("200 OK"))
		Expect(string(body)).To(ContainSubstring("worker_id = 1"))
	})

	It("404s everything else", func() {
		status, body := call(app, wsgi.Environ{"PATH_INFO": "/other"})
		Expect(status).To(Equal("404 Not Found"))
		Expect(strings.TrimSpace(string(body))).To(Equal("not found"))
	})
})
