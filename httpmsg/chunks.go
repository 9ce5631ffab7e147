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

// ChunkSource is a pull-based body iterator: Next returns the next chunk and
// whether another call would yield more. It models the generator-based
// response bodies of the source implementation (spec's design note on
// generator-based response bodies) for languages without generators.
type ChunkSource interface {
	Next() (chunk []byte, more bool)
}

// sliceSource adapts a single materialized byte slice into a one-shot
// ChunkSource.
type sliceSource struct {
	data []byte
	done bool
}

func (s *sliceSource) Next() ([]byte, bool) {
	if s.done {
		return nil, false
	}
	s.done = true
	return s.data, false
}

// FuncSource adapts a plain slice-of-chunks into a ChunkSource, useful for
// handlers that already hold every chunk in memory (e.g. streaming test
// scenario S3).
type FuncSource struct {
	chunks [][]byte
	idx    int
}

// NewFuncSource builds a ChunkSource over a fixed, ordered list of chunks.
func NewFuncSource(chunks ...[]byte) *FuncSource {
	return &FuncSource{chunks: chunks}
}

func (f *FuncSource) Next() ([]byte, bool) {
	if f.idx >= len(f.chunks) {
		return nil, false
	}
	c := f.chunks[f.idx]
	f.idx++
	return c, f.idx < len(f.chunks)
}

// Chunks is the rendered, ready-to-send output of ResponseBuilder.Finalize:
// the first element already has the status line and headers prepended to
// the body's first chunk, so that head and body go out in a single send.
type Chunks struct {
	source ChunkSource
}

// Next returns the next chunk to send and whether the caller should call
// Next again. Every call past EOF returns (nil, false).
func (c *Chunks) Next() ([]byte, bool) {
	if c.source == nil {
		return nil, false
	}
	return c.source.Next()
}
