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

package httpio

import (
	"io"

	libsiz "github.com/featherhq/feather/size"
)

// LengthBoundedReader reads from an underlying stream in one of two modes.
//
// In unbounded mode every byte is passed through; this is used to read the
// request line and headers, whose extent is delimited by CRLF rather than a
// byte count. SetLength switches the reader to bounded mode: cumulative
// bytes are capped at length, and the byte after that cap reads as EOF. The
// bytes-read counter is reset at the moment of the switch, so the cap is
// measured from that point rather than from the start of the connection.
type LengthBoundedReader interface {
	io.Reader

	// ReadLine reads a single CRLF- or LF-terminated line, without the
	// trailing terminator.
	ReadLine() ([]byte, error)

	// ReadLines reads everything remaining (bounded or not) and splits it
	// into lines. It is eager: it drains the stream before returning.
	ReadLines() ([]string, error)

	// SetLength switches the reader to bounded mode with the given cap,
	// resetting the consumed-byte counter to zero.
	SetLength(n int64)

	// Unbounded switches the reader back to pass-through mode.
	Unbounded()

	// Remaining reports the number of bytes left to read before the bound
	// is reached. It is meaningless (returns -1) in unbounded mode.
	Remaining() int64
}

// New wraps r with a LengthBoundedReader starting in unbounded mode. bufSize
// configures the internal bufio.Reader buffer; zero selects bufio's default.
func New(r io.Reader, bufSize libsiz.Size) LengthBoundedReader {
	return newLengthBoundedReader(r, bufSize)
}
