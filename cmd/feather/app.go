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

package main

import (
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/featherhq/feather/config"
	"github.com/featherhq/feather/httpmsg"
	"github.com/featherhq/feather/wsgi"
)

var startedAt = currentTime()

func currentTime() time.Time { return time.Now() }

// workerStatus is the body of the built-in /status endpoint, rendered as
// TOML or YAML depending on the request's Accept header.
type workerStatus struct {
	WorkerID    int    `toml:"worker_id" yaml:"worker_id"`
	ListenAddr  string `toml:"listen_addr" yaml:"listen_addr"`
	WorkerCount int    `toml:"worker_count" yaml:"worker_count"`
	UptimeSecs  int64  `toml:"uptime_seconds" yaml:"uptime_seconds"`
}

// statusApp is cmd/feather's built-in WSGI-style application: it answers
// /status with a structured snapshot (whatever the method) and 404s every
// other path,
// standing in for an embedder-supplied application until one is wired up.
func statusApp(cfg *config.Config, wid int) wsgi.App {
	return func(env wsgi.Environ, start wsgi.StartResponseFunc) httpmsg.ChunkSource {
		path, _ := env["PATH_INFO"].(string)
		if path != "/status" {
			write := start("404 Not Found", httpmsg.Headers{
				{Name: "Content-Type", Value: "text/plain"},
			}, nil)
			write([]byte("not found"))
			return httpmsg.NewFuncSource()
		}

		st := workerStatus{
			WorkerID:    wid,
			ListenAddr:  cfg.ListenAddr,
			WorkerCount: cfg.WorkerCount,
			UptimeSecs:  int64(currentTime().Sub(startedAt).Seconds()),
		}

		body, contentType := renderStatus(st, acceptHeader(env))

		write := start("200 OK", httpmsg.Headers{
			{Name: "Content-Type", Value: contentType},
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
		}, nil)
		write(body)
		return httpmsg.NewFuncSource()
	}
}

func acceptHeader(env wsgi.Environ) string {
	v, _ := env["HTTP_ACCEPT"].(string)
	return v
}

// renderStatus picks YAML when the client asks for it, TOML otherwise (the
// original spec's DOMAIN STACK note: structured /status body in either
// format based on Accept).
func renderStatus(st workerStatus, accept string) ([]byte, string) {
	if strings.Contains(accept, "yaml") {
		b, err := yaml.Marshal(st)
		if err != nil {
			return []byte(err.Error()), "text/plain"
		}
		return b, "application/yaml"
	}

	b, err := toml.Marshal(st)
	if err != nil {
		return []byte(err.Error()), "text/plain"
	}
	return b, "application/toml"
}
