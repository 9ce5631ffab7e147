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
	"bytes"
	"strconv"
	"strings"

	"github.com/featherhq/feather/handler"
	"github.com/featherhq/feather/httpmsg"
)

// WriteFunc is the callable StartResponse returns, matching WSGI's write().
type WriteFunc func(data []byte)

// StartResponseFunc matches WSGI's start_response(status, headers, exc_info).
// excInfo mirrors Python's three-tuple with a single error: non-nil means
// "an error occurred after some output may already have been sent".
type StartResponseFunc func(status string, headers httpmsg.Headers, excInfo error) WriteFunc

// App is the application callable an embedder provides, shaped after a WSGI
// application: given an environ and a start-response callback, it returns
// the response body as a ChunkSource.
type App func(env Environ, start StartResponseFunc) httpmsg.ChunkSource

// Bridge adapts app into a handler.MethodHandler, wiring MakeEnviron and the
// start_response/write exchange. server supplies the parts of the environ
// that come from the listening socket rather than the request.
func Bridge(app App, server ServerInfo) handler.MethodHandler {
	return func(req *httpmsg.Request, resp *httpmsg.ResponseBuilder) error {
		env := MakeEnviron(req, server)

		var buf bytes.Buffer

		// headersSent flips only once write() actually buffers output,
		// matching wsgi.py's collector[1] (only write() sets it) - not on
		// every start_response call - so an app can still call
		// start_response a second time with exc_info to correct a
		// status/headers pair it hasn't written a body for yet.
		headersSent := false

		write := func(data []byte) {
			buf.Write(data)
			headersSent = true
		}

		start := func(status string, headers httpmsg.Headers, excInfo error) WriteFunc {
			if excInfo != nil {
				if headersSent {
					panic(excInfo)
				}
			}

			code, err := statusCode(status)
			if err != nil {
				panic(err)
			}

			resp.SetCode(code)
			resp.AddHeaders(headers...)

			return write
		}

		body := app(env, start)

		prefix := buf.Bytes()
		if len(prefix) == 0 {
			resp.SetBody(body)
			return nil
		}

		resp.SetBody(&prefixMergedSource{prefix: prefix, inner: body})
		return nil
	}
}

// statusCode parses a WSGI status line like "200 OK" down to its leading
// integer code.
func statusCode(status string) (int, error) {
	i := strings.IndexByte(status, ' ')
	if i < 0 {
		i = len(status)
	}
	return strconv.Atoi(status[:i])
}

// prefixMergedSource prepends data buffered through write() before
// start_response returned, onto the application body's own first chunk.
type prefixMergedSource struct {
	prefix []byte
	inner  httpmsg.ChunkSource
	sent   bool
}

func (p *prefixMergedSource) Next() ([]byte, bool) {
	first, more := p.inner.Next()
	if !p.sent {
		p.sent = true
		return append(p.prefix, first...), more
	}
	return first, more
}
