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

package wsgi

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/featherhq/feather/httpmsg"
)

// Environ is the per-request table an App reads, shaped after the WSGI
// environ dict plus the feather.headers extension.
type Environ map[string]interface{}

// ServerInfo carries the pieces of the environ table that come from the
// listening server rather than from the request itself.
type ServerInfo struct {
	Name        string
	Port        string
	WorkerCount int
	ErrorLog    io.Writer
}

// MakeEnviron builds the environ table for req, following the WSGI table in
// the request-handling design plus the feather.headers SUPPLEMENT: an
// ordered list of the raw, as-received header name/value pairs, since the
// WSGI spec's HTTP_* folding loses both order and duplicate headers.
func MakeEnviron(req *httpmsg.Request, srv ServerInfo) Environ {
	scheme := req.Scheme
	if scheme == "" {
		scheme = "http"
	}

	env := Environ{
		"wsgi.version":     [2]int{1, 0},
		"wsgi.url_scheme":  scheme,
		"wsgi.input":       req.Body,
		"wsgi.errors":      srv.ErrorLog,
		"wsgi.multithread": false,
		"wsgi.multiprocess": srv.WorkerCount > 1,
		"wsgi.run_once":    false,

		"SCRIPT_NAME":      "",
		"PATH_INFO":        req.Path,
		"SERVER_NAME":      firstNonEmpty(srv.Name, "localhost"),
		"SERVER_PORT":      srv.Port,
		"REQUEST_METHOD":   req.Method,
		"SERVER_PROTOCOL":  fmt.Sprintf("HTTP/%d.%d", req.VersionMajor, req.VersionMinor),
	}

	if req.Query != "" {
		env["QUERY_STRING"] = req.Query
	}

	if v, ok := req.Headers.Get("Content-Length"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			env["CONTENT_LENGTH"] = n
		}
	}

	if v, ok := req.Headers.Get("Content-Type"); ok {
		env["CONTENT_TYPE"] = v
	}

	for _, h := range req.Headers {
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(h.Name, "-", "_"))
		env[key] = h.Value
	}

	raw := make([][2]string, 0, len(req.Headers))
	for _, h := range req.Headers {
		raw = append(raw, [2]string{h.Name, h.Value})
	}
	env["feather.headers"] = raw

	return env
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
