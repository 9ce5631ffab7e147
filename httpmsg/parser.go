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
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/featherhq/feather/httpio"

	liberr "github.com/featherhq/feather/errors"
)

// ErrEmpty is returned when the peer closed the connection before sending
// anything — not an error condition, just an idle-connection teardown.
var ErrEmpty = fmt.Errorf("httpmsg: empty request")

// CodeMalformed is the liberr.Error code attached to every parse failure
// that should be surfaced to the client as a 400.
const CodeMalformed = 400

// ParserOptions configures the one free variable the parser needs from its
// caller: what to fall back to when the request doesn't carry a Host.
type ParserOptions struct {
	DefaultHost string
}

// Parse reads a request line, headers, and switches r to bounded mode for
// the body, per spec's RequestParser algorithm (§4.2). remoteIP is recorded
// on the returned Request as-is.
//
// Returns ErrEmpty if the peer sent nothing (after skipping one tolerated
// leading blank line), or a liberr.Error with CodeMalformed describing the
// first offending token.
func Parse(r httpio.LengthBoundedReader, remoteIP string, opt ParserOptions) (*Request, error) {
	line, err := readNonEmptyLine(r)
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, ErrEmpty
	}

	method, target, proto, err := splitRequestLine(line)
	if err != nil {
		return nil, err
	}

	if !isValidMethod(method) {
		return nil, liberr.New(CodeMalformed, fmt.Sprintf("bad HTTP method: %q", method))
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, liberr.New(CodeMalformed, fmt.Sprintf("bad request target: %q", target))
	}

	major, minor, err := parseProtocol(proto)
	if err != nil {
		return nil, err
	}

	headers, err := parseHeaders(r)
	if err != nil {
		return nil, err
	}

	length := firstContentLength(headers)
	r.SetLength(length)

	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	host := opt.DefaultHost
	if hv, ok := headers.Get("Host"); ok {
		host = hv
	} else if u.Host != "" {
		host = u.Host
	}

	closing := isClosing(major, minor, headers)

	return &Request{
		RequestLine:  line,
		Method:       method,
		VersionMajor: major,
		VersionMinor: minor,
		Scheme:       scheme,
		Host:         host,
		Path:         u.Path,
		Query:        u.RawQuery,
		Fragment:     u.Fragment,
		Headers:      headers,
		Body:         r,
		RemoteIP:     remoteIP,
		Closing:      closing,
	}, nil
}

// readNonEmptyLine skips exactly one leading blank line, tolerating the
// CRLF separator pipelined requests leave between them (RFC 7230 §3.5).
func readNonEmptyLine(r httpio.LengthBoundedReader) (string, error) {
	line, err := r.ReadLine()
	if err != nil && len(line) == 0 {
		return "", err
	}

	if len(line) == 0 {
		line, err = r.ReadLine()
		if err != nil && len(line) == 0 {
			return "", err
		}
	}

	return string(line), nil
}

func splitRequestLine(line string) (method, target, proto string, err error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", "", liberr.New(CodeMalformed, fmt.Sprintf("bad request line: %q", line))
	}
	return parts[0], parts[1], parts[2], nil
}

func isValidMethod(method string) bool {
	if method == "" {
		return false
	}
	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func parseProtocol(proto string) (major, minor int, err error) {
	if !strings.HasPrefix(proto, "HTTP/") {
		return 0, 0, liberr.New(CodeMalformed, fmt.Sprintf("bad HTTP version: %q", proto))
	}

	v := strings.TrimPrefix(proto, "HTTP/")
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, liberr.New(CodeMalformed, fmt.Sprintf("bad HTTP version: %q", proto))
	}

	major, errA := strconv.Atoi(parts[0])
	minor, errB := strconv.Atoi(parts[1])
	if errA != nil || errB != nil {
		return 0, 0, liberr.New(CodeMalformed, fmt.Sprintf("bad HTTP version: %q", proto))
	}

	return major, minor, nil
}

// parseHeaders reads an RFC 7230 folded header block until the blank line
// that terminates it.
func parseHeaders(r httpio.LengthBoundedReader) (Headers, error) {
	var headers Headers

	for {
		raw, err := r.ReadLine()
		if err != nil && len(raw) == 0 {
			return nil, err
		}

		if len(raw) == 0 {
			return headers, nil
		}

		line := string(raw)

		if (line[0] == ' ' || line[0] == '\t') && len(headers) > 0 {
			last := &headers[len(headers)-1]
			last.Value += " " + strings.TrimSpace(line)
			continue
		}

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, liberr.New(CodeMalformed, fmt.Sprintf("bad header line: %q", line))
		}

		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		headers = headers.Add(name, value)
	}
}

// firstContentLength implements the "Multiple Host headers -> use the
// first" style tie-break, applied here to Content-Length: only the first
// Content-Length header is read, and a missing, invalid or negative value
// gives 0.
func firstContentLength(h Headers) int64 {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0
	}
	return parseContentLength(v)
}

func parseContentLength(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// isClosing derives the default-close flag: HTTP/1.0 defaults to closing
// unless the client asked for keep-alive; any Connection: close overrides
// either version.
func isClosing(major, minor int, h Headers) bool {
	var tokens []string
	if v, ok := h.Get("Connection"); ok {
		tokens = connectionTokens(v)
	}

	if hasToken(tokens, "close") {
		return true
	}

	if major < 1 || (major == 1 && minor == 0) {
		return !hasToken(tokens, "keep-alive")
	}

	return false
}
