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

// Package size defines a byte-count type used to size buffers and bound
// reads across the ioutils packages.
package size

import "fmt"

// Size is a count of bytes.
type Size int64

const (
	SizeNul  Size = 0
	SizeUnit Size = 1
	SizeKilo      = 1024 * SizeUnit
	SizeMega      = 1024 * SizeKilo
	SizeGiga      = 1024 * SizeMega
)

// String renders the size with the largest unit that divides it evenly.
func (s Size) String() string {
	switch {
	case s >= SizeGiga && s%SizeGiga == 0:
		return fmt.Sprintf("%dGB", int64(s/SizeGiga))
	case s >= SizeMega && s%SizeMega == 0:
		return fmt.Sprintf("%dMB", int64(s/SizeMega))
	case s >= SizeKilo && s%SizeKilo == 0:
		return fmt.Sprintf("%dKB", int64(s/SizeKilo))
	default:
		return fmt.Sprintf("%dB", int64(s))
	}
}

// Code behaves like String but accepts a custom separator rune inserted
// between the numeric value and the unit suffix (0 means no separator).
func (s Size) Code(sep rune) string {
	if sep == 0 {
		return s.String()
	}

	str := s.String()
	for i, r := range str {
		if r < '0' || r > '9' {
			return str[:i] + string(sep) + str[i:]
		}
	}

	return str
}

// Int64 returns the size as a plain int64 byte count.
func (s Size) Int64() int64 {
	return int64(s)
}
