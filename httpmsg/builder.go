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

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ResponseMeta is returned alongside the rendered Chunks by Finalize.
type ResponseMeta struct {
	Code       int
	HeadLength int
	Closing    bool
}

// ResponseBuilder accumulates a pending response through its setters and
// renders it on Finalize, applying the Content-Length/keep-alive decision
// order from the wire protocol (spec §4.3).
type ResponseBuilder struct {
	code    int
	headers Headers
	body    any // nil, []byte, or ChunkSource
}

// NewResponseBuilder returns an empty ResponseBuilder.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{}
}

func (b *ResponseBuilder) SetCode(code int) { b.code = code }

// SetBody accepts either a materialized []byte or a ChunkSource.
func (b *ResponseBuilder) SetBody(body any) { b.body = body }

func (b *ResponseBuilder) AddHeader(name, value string) {
	b.headers = b.headers.Add(name, value)
}

func (b *ResponseBuilder) AddHeaders(headers ...Header) {
	for _, h := range headers {
		b.headers = b.headers.Add(h.Name, h.Value)
	}
}

// HasHeader reports whether name is present, optionally requiring a
// specific value (case-insensitive on both name and value).
func (b *ResponseBuilder) HasHeader(name string, value ...string) bool {
	vals := b.headers.GetAll(name)
	if len(vals) == 0 {
		return false
	}
	if len(value) == 0 {
		return true
	}
	for _, v := range vals {
		if strings.EqualFold(v, value[0]) {
			return true
		}
	}
	return false
}

// PopHeader removes and returns the first value stored under name.
func (b *ResponseBuilder) PopHeader(name string) (string, bool) {
	v, ok := b.headers.Get(name)
	if ok {
		b.headers = b.headers.Remove(name)
	}
	return v, ok
}

// Finalize renders the status line and headers, applies the keep-alive and
// Content-Length rules, and returns a Chunks whose first element
// concatenates the head with the body's first chunk.
//
// connClosing is the connection's own closing flag (set by the parser from
// HTTP/1.0 default-close or an explicit request Connection: close);
// keepaliveDisabled is true when the connection's keepalive_timeout is 0.
func (b *ResponseBuilder) Finalize(connClosing bool, keepaliveDisabled bool) (*Chunks, ResponseMeta) {
	if b.code == 0 {
		b.code = 200
	}
	if b.body == nil {
		b.body = []byte(reasonPhrase(b.code))
	}

	closed := b.HasHeader("Connection", "close") || connClosing

	if closed && !b.HasHeader("Connection") {
		b.AddHeader("Connection", "close")
	}

	var source ChunkSource

	if !b.HasHeader("Content-Length") && !b.HasHeader("Transfer-Encoding", "chunked") {
		switch v := b.body.(type) {
		case []byte:
			b.AddHeader("Content-Length", strconv.Itoa(len(v)))
		default:
			if !b.HasHeader("Connection", "close") {
				b.AddHeader("Connection", "close")
			} else {
				b.headers = b.headers.Set("Connection", "close")
			}
			closed = true
		}
	}

	if keepaliveDisabled && !closed {
		if !b.HasHeader("Connection") {
			b.AddHeader("Connection", "close")
		}
		closed = true
	}

	head := renderHead(b.code, b.headers)

	switch v := b.body.(type) {
	case []byte:
		source = &sliceSource{data: v}
	case ChunkSource:
		source = v
	default:
		source = &sliceSource{data: nil}
	}

	first, more := source.Next()
	merged := append([]byte(head), first...)

	var out ChunkSource
	if more {
		out = &prefixedSource{prefix: merged, rest: source}
	} else {
		out = NewFuncSource(merged)
	}

	return &Chunks{source: out}, ResponseMeta{Code: b.code, HeadLength: len(head), Closing: closed}
}

// prefixedSource emits prefix once, then forwards rest verbatim.
type prefixedSource struct {
	prefix []byte
	sent   bool
	rest   ChunkSource
}

func (p *prefixedSource) Next() ([]byte, bool) {
	if !p.sent {
		p.sent = true
		return p.prefix, true
	}
	return p.rest.Next()
}

func renderHead(code int, headers Headers) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("HTTP/1.1 %d %s\r\n", code, reasonPhrase(code)))
	for _, h := range headers {
		// soften any literal LF within a header value to an obs-fold
		// style continuation, per spec §4.3 step 6.
		v := strings.ReplaceAll(h.Value, "\n", "\n ")
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

func reasonPhrase(code int) string {
	if phrase := http.StatusText(code); phrase != "" {
		return phrase
	}
	return "Unknown"
}
