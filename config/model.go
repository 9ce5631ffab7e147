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

package config

import (
	"fmt"

	libval "github.com/go-playground/validator/v10"

	liberr "github.com/featherhq/feather/errors"
	"github.com/featherhq/feather/duration"
)

// Config holds every runtime setting the server resolves through viper
// (flags, FEATHER_ env vars, an optional config file, then defaults).
// Process-topology state inherited across a re-exec (listen fd, depth,
// daemon flag) lives outside of this struct - see supervisor.IsWorker.
type Config struct {
	// Cluster names this server cluster, used to disambiguate the control
	// directory when several clusters run on the same host. Not resolved
	// through viper: it is supplied by the caller of Load.
	Cluster string `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// ListenAddr is the address the master binds its listening socket to.
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr" yaml:"listen_addr" toml:"listen_addr" validate:"required,hostname_port"`

	// WorkerCount is the number of worker processes the supervisor keeps
	// alive, the starting value SIGTTIN/SIGTTOU adjust at runtime.
	WorkerCount int `mapstructure:"worker_count" json:"worker_count" yaml:"worker_count" toml:"worker_count" validate:"gte=1"`

	// MaxConns bounds how many connections a single worker's acceptor will
	// hold open at once, gating further accepts on a semaphore.
	MaxConns int `mapstructure:"max_conns" json:"max_conns" yaml:"max_conns" toml:"max_conns" validate:"gte=1"`

	// KeepaliveTimeout is how long an idle connection may wait for its next
	// request before the worker closes it. Zero disables keep-alive.
	KeepaliveTimeout duration.Duration `mapstructure:"keepalive_timeout" json:"keepalive_timeout" yaml:"keepalive_timeout" toml:"keepalive_timeout" validate:"gte=0"`

	// WorkerTimeout is resolved and validated like the other settings, but
	// the supervisor does not read it: heartbeat checks always use the fixed
	// supervisor.WorkerTimeout.
	WorkerTimeout duration.Duration `mapstructure:"worker_timeout" json:"worker_timeout" yaml:"worker_timeout" toml:"worker_timeout" validate:"gte=0"`

	// TracebackBody includes the panicking error's text in a 500 response
	// body instead of a fixed generic message. Meant for development only.
	TracebackBody bool `mapstructure:"traceback_body" json:"traceback_body" yaml:"traceback_body" toml:"traceback_body"`

	// AccessLogPath, if set, also routes access log entries to this file, in
	// addition to the stdout logger sink.
	AccessLogPath string `mapstructure:"access_log_path" json:"access_log_path" yaml:"access_log_path" toml:"access_log_path"`

	// ErrorLogPath, if set, also routes warning and error entries to this
	// file, in addition to the stdout logger sink.
	ErrorLogPath string `mapstructure:"error_log_path" json:"error_log_path" yaml:"error_log_path" toml:"error_log_path"`

	// ControlDirBase is resolved and validated like the other settings, but
	// it is not passed to the supervisor: the control directory (PID files,
	// heartbeats) is always created under os.TempDir.
	ControlDirBase string `mapstructure:"control_dir" json:"control_dir" yaml:"control_dir" toml:"control_dir"`
}

// Validate checks the struct tags above, failing fast the same way a
// malformed ServerConfig would before any worker is spawned.
func (c *Config) Validate() liberr.Error {
	var e = ErrorValidatorError.Error(nil)

	if err := libval.New().Struct(c); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e.Add(er)
		}

		if verr, ok := err.(libval.ValidationErrors); ok {
			for _, fe := range verr {
				//nolint #goerr113
				e.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", fe.Namespace(), fe.ActualTag()))
			}
		}
	}

	if !e.HasParent() {
		return nil
	}

	return e
}
