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

import (
	"fmt"
	"runtime/debug"

	"github.com/featherhq/feather/httpmsg"

	"github.com/featherhq/feather/logger"
)

// MethodHandler handles one request for one HTTP method, writing its result
// into resp.
type MethodHandler func(req *httpmsg.Request, resp *httpmsg.ResponseBuilder) error

// RequestHandler dispatches by method via a lookup table (spec's design
// note replacing do_<METHOD> name lookup), translating HTTPError and any
// other failure into a response rather than propagating it to the
// connection loop.
type RequestHandler struct {
	hooks         map[string]MethodHandler
	TracebackBody bool
	Log           logger.Logger
}

// New returns an empty RequestHandler.
func New() *RequestHandler {
	return &RequestHandler{hooks: make(map[string]MethodHandler)}
}

// Register binds h to every method in methods. The WSGI bridge uses this to
// register the same handler under every method it accepts.
func (h *RequestHandler) Register(h2 MethodHandler, methods ...string) {
	for _, m := range methods {
		h.hooks[m] = h2
	}
}

// Handle looks up the method hook, invokes it in a guarded scope, and
// returns a finalized response. It never returns an error: every failure
// mode is translated into an HTTP response per spec §4.4 and §7.
func (h *RequestHandler) Handle(req *httpmsg.Request) *httpmsg.ResponseBuilder {
	resp := httpmsg.NewResponseBuilder()

	hook, ok := h.hooks[req.Method]
	if !ok {
		h.translateMethodNotAllowed(resp, req.Method)
		return resp
	}

	h.invoke(hook, req, resp)
	return resp
}

func (h *RequestHandler) invoke(hook MethodHandler, req *httpmsg.Request, resp *httpmsg.ResponseBuilder) {
	defer func() {
		if r := recover(); r != nil {
			h.translateUnhandled(resp, fmt.Errorf("panic: %v", r), debug.Stack())
		}
	}()

	if err := hook(req, resp); err != nil {
		var httpErr *HTTPError
		if asHTTPError(err, &httpErr) {
			h.translateHTTPError(resp, httpErr)
			return
		}
		h.translateUnhandled(resp, err, nil)
	}
}

func asHTTPError(err error, out **HTTPError) bool {
	if he, ok := err.(*HTTPError); ok {
		*out = he
		return true
	}
	return false
}

func (h *RequestHandler) translateMethodNotAllowed(resp *httpmsg.ResponseBuilder, method string) {
	resp.SetCode(405)
	resp.AddHeader("Content-Type", "text/plain")
	resp.SetBody([]byte("method not allowed: " + method))

	if h.Log != nil {
		h.Log.Warning("method not allowed", method)
	}
}

func (h *RequestHandler) translateHTTPError(resp *httpmsg.ResponseBuilder, e *HTTPError) {
	resp.SetCode(e.Code)
	resp.AddHeader("Content-Type", "text/plain")
	resp.AddHeaders(e.ExtraHeaders...)
	resp.SetBody([]byte(e.Body))
}

func (h *RequestHandler) translateUnhandled(resp *httpmsg.ResponseBuilder, err error, stack []byte) {
	resp.SetCode(500)
	resp.AddHeader("Content-Type", "text/plain")

	body := "internal server error"
	if h.TracebackBody {
		body = err.Error()
		if len(stack) > 0 {
			body += "\n" + string(stack)
		}
	}
	resp.SetBody([]byte(body))

	if h.Log != nil {
		h.Log.Error("unhandled request error", err)
	}
}
