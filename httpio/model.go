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
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"

	libsiz "github.com/featherhq/feather/size"
)

type lbr struct {
	m sync.Mutex
	r *bufio.Reader

	bounded bool
	cap     int64
	read    int64
}

func newLengthBoundedReader(r io.Reader, bufSize libsiz.Size) *lbr {
	var b *bufio.Reader

	if bufSize > 0 {
		b = bufio.NewReaderSize(r, bufSize.Int64())
	} else {
		b = bufio.NewReader(r)
	}

	return &lbr{r: b}
}

func (o *lbr) SetLength(n int64) {
	o.m.Lock()
	defer o.m.Unlock()

	o.bounded = true
	o.cap = n
	o.read = 0
}

func (o *lbr) Unbounded() {
	o.m.Lock()
	defer o.m.Unlock()

	o.bounded = false
	o.cap = 0
	o.read = 0
}

func (o *lbr) Remaining() int64 {
	o.m.Lock()
	defer o.m.Unlock()

	if !o.bounded {
		return -1
	}

	if n := o.cap - o.read; n > 0 {
		return n
	}

	return 0
}

// Read implements io.Reader. In bounded mode, it never reads past the
// configured cap: the request is trimmed and a zero-byte read is treated as
// EOF, per the parser's bounded-reader contract.
func (o *lbr) Read(p []byte) (n int, err error) {
	o.m.Lock()

	if o.bounded {
		remain := o.cap - o.read
		if remain <= 0 {
			o.m.Unlock()
			return 0, io.EOF
		}
		if int64(len(p)) > remain {
			p = p[:remain]
		}
	}

	o.m.Unlock()

	n, err = o.r.Read(p)

	o.m.Lock()
	o.read += int64(n)
	o.m.Unlock()

	if n == 0 && err == nil {
		err = io.EOF
	}

	return n, err
}

// ReadLine reads a line byte-by-byte through Read rather than delegating to
// the underlying bufio.Reader directly, so bounded mode's cap applies here
// too: without this, an application reading wsgi.input with ReadLine could
// read past the declared Content-Length the same way Read already prevents.
func (o *lbr) ReadLine() ([]byte, error) {
	var line []byte
	var b [1]byte

	for {
		n, err := o.Read(b[:])
		if n > 0 {
			line = append(line, b[0])
			if b[0] == '\n' {
				return trimCRLF(line), nil
			}
		}
		if err != nil {
			return trimCRLF(line), err
		}
	}
}

func (o *lbr) ReadLines() ([]string, error) {
	data, err := io.ReadAll(o)
	if err != nil && err != io.EOF {
		return nil, err
	}

	text := string(data)
	text = strings.TrimSuffix(text, "\n")

	if text == "" {
		return []string{}, nil
	}

	return strings.Split(text, "\n"), nil
}

func trimCRLF(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	b = bytes.TrimSuffix(b, []byte("\r"))
	return b
}
