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
	"context"
	"time"

	"github.com/featherhq/feather/config"
	"github.com/featherhq/feather/logger"
	logcfg "github.com/featherhq/feather/logger/config"
	libprm "github.com/featherhq/feather/file/perm"
	"github.com/featherhq/feather/supervisor"
)

// buildLogger translates the resolved Config's logging fields into a
// logcfg.Options and applies them to a fresh Logger: stdout always gets
// access-log entries, and AccessLogPath/ErrorLogPath (if set) additionally
// route to their own files, mirroring the original's two-file default.
func buildLogger(cfg *config.Config) (logger.Logger, error) {
	log := logger.New(context.Background())

	opt := &logcfg.Options{
		Stdout: &logcfg.OptionsStd{
			EnableAccessLog: true,
		},
	}

	if cfg.AccessLogPath != "" {
		opt.LogFile = append(opt.LogFile, logcfg.OptionsFile{
			LogLevel:        []string{"Info"},
			Filepath:        cfg.AccessLogPath,
			Create:          true,
			CreatePath:      true,
			FileMode:        libprm.Perm(0o644),
			PathMode:        libprm.Perm(0o755),
			EnableAccessLog: true,
		})
	}

	if cfg.ErrorLogPath != "" {
		opt.LogFile = append(opt.LogFile, logcfg.OptionsFile{
			LogLevel:   []string{"Warning", "Error", "Fatal"},
			Filepath:   cfg.ErrorLogPath,
			Create:     true,
			CreatePath: true,
			FileMode:   libprm.Perm(0o644),
			PathMode:   libprm.Perm(0o755),
		})
	}

	if len(opt.LogFile) > 0 {
		opt.LogFileExtend = true
	}

	if err := log.SetOptions(opt); err != nil {
		return nil, err
	}

	return log, nil
}

// startHeartbeat touches this worker's heartbeat file every interval well
// inside WorkerTimeout, so the master's health monitor never mistakes a busy
// worker for a hung one. It returns a stop function that must be called
// before the worker exits.
func startHeartbeat(cluster string, wid int, log logger.Logger) func() {
	cd, err := supervisor.NewControlDir(cluster)
	if err != nil {
		log.Warning("worker could not open control directory for heartbeats", err)
		return func() {}
	}

	stop := make(chan struct{})
	interval := supervisor.WorkerTimeout / 4

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = cd.TouchHeartbeat(wid)
			case <-stop:
				return
			}
		}
	}()

	return func() { close(stop) }
}
