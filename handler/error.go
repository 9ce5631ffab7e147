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

package handler

import "github.com/featherhq/feather/httpmsg"

// HTTPError is an application-raised error carrying the exact response it
// should be translated to: a status code, a plain-text body, and any extra
// headers the application wants on the error response.
type HTTPError struct {
	Code         int
	Body         string
	ExtraHeaders httpmsg.Headers
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return "http error"
}

// NewHTTPError builds an HTTPError with no extra headers.
func NewHTTPError(code int, body string) *HTTPError {
	return &HTTPError{Code: code, Body: body}
}

// MethodNotAllowed is returned by Handle when no hook is registered for the
// request's method.
type MethodNotAllowed struct {
	Method string
}

func (e *MethodNotAllowed) Error() string {
	return "method not allowed: " + e.Method
}
