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

package httpmsg

import "github.com/featherhq/feather/httpio"

// Request is immutable once returned by Parse and lives for one request
// cycle. Body is switched to bounded mode by the parser before the request
// is handed to the handler.
type Request struct {
	RequestLine string
	Method      string

	VersionMajor int
	VersionMinor int

	Scheme   string
	Host     string
	Path     string
	Query    string
	Fragment string

	Headers Headers
	Body    httpio.LengthBoundedReader

	RemoteIP string

	// Closing reflects HTTP/1.0 default-close semantics or an explicit
	// Connection: close header on the request.
	Closing bool
}

// ContentLength returns the parsed Content-Length header value, or 0 if
// absent or not a valid non-negative integer.
func (r *Request) ContentLength() int64 {
	v, ok := r.Headers.Get("Content-Length")
	if !ok {
		return 0
	}
	return parseContentLength(v)
}
