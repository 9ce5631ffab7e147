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

// Command feather is the server platform's entrypoint: the top-level
// invocation binds the listening socket and runs as the master, re-exec'd
// copies of itself (carrying FEATHER_LISTEN_FD/FEATHER_WORKER_ID) run as
// workers. A "feather ctl" subcommand sends control signals to a running
// master without itself becoming a server process.
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"

	"github.com/featherhq/feather/accept"
	"github.com/featherhq/feather/config"
	"github.com/featherhq/feather/conn"
	"github.com/featherhq/feather/handler"
	"github.com/featherhq/feather/logger"
	"github.com/featherhq/feather/runtime"
	"github.com/featherhq/feather/supervisor"
	"github.com/featherhq/feather/wsgi"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "ctl" {
		if err := runCtl(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "feather ctl:", err)
			os.Exit(1)
		}
		return
	}

	flags, opts := parseFlags(os.Args[1:])

	cfg, cfgErr := config.Load(opts.cluster, flags, opts.configFile)
	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "feather: invalid configuration:", cfgErr.Error())
		os.Exit(1)
	}

	log, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "feather: cannot build logger:", err)
		os.Exit(1)
	}

	if supervisor.IsWorker() {
		runWorker(cfg, log)
		return
	}

	runMaster(cfg, log)
}

// runMaster binds the listening socket before anything else runs, the same
// ordering monitor.py's pre_worker_fork/server.setup sequence enforces:
// workers must be able to inherit an already-listening socket the instant
// they start.
func runMaster(cfg *config.Config, log logger.Logger) {
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal("failed to bind listen address", err)
		return
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		log.Fatal("listener is not a *net.TCPListener", cfg.ListenAddr)
		return
	}

	lf, err := tcpLn.File()
	if err != nil {
		log.Fatal("failed to extract listener file descriptor", err)
		return
	}
	// the dup'd file keeps its own descriptor; the net.Listener that created
	// it is no longer needed by the master itself.
	_ = ln.Close()

	sv, err := supervisor.New(cfg.Cluster, cfg.WorkerCount, lf, log)
	if err != nil {
		log.Fatal("failed to build supervisor", err)
		return
	}

	log.Info("feather master starting", cfg.ListenAddr, "workers", cfg.WorkerCount)

	if err := sv.Serve(); err != nil {
		log.Fatal("supervisor exited with error", err)
	}
}

// runWorker reconstructs the inherited listening socket from FEATHER_LISTEN_FD
// and runs the accept loop until a quit/interrupt signal closes it down.
func runWorker(cfg *config.Config, log logger.Logger) {
	fdNum, ok := supervisor.ListenFD()
	if !ok {
		log.Fatal("worker started without a listening file descriptor", nil)
		return
	}
	wid, _ := supervisor.WorkerID()

	file := os.NewFile(uintptr(fdNum), "listener")
	ln, err := net.FileListener(file)
	if err != nil {
		log.Fatal("failed to reconstruct inherited listener", err)
		return
	}

	rt := runtime.NewGoroutine()
	socket := rt.WrapListener(ln)

	h := handler.New()
	h.TracebackBody = cfg.TracebackBody
	h.Log = log

	app := statusApp(cfg, wid)
	h.Register(wsgi.Bridge(app, wsgi.ServerInfo{
		Name:        hostPart(cfg.ListenAddr),
		Port:        portPart(cfg.ListenAddr),
		WorkerCount: cfg.WorkerCount,
		ErrorLog:    log,
	}), "GET", "HEAD", "POST", "PUT", "DELETE", "PATCH")

	a := accept.New(socket, rt, h, accept.Options{
		MaxConns:    cfg.MaxConns,
		RaiseULimit: true,
		ConnOptions: conn.Options{
			KeepaliveTimeout: cfg.KeepaliveTimeout,
			ReadBufferSize:   64 * 1024,
		},
	}, log)

	ctx, cancel := context.WithCancel(context.Background())

	supervisor.ApplyWorkerSignals(func() {
		log.Info("worker received quit, draining connections", wid)
		a.Shutdown()
	}, func() {
		log.Info("worker received interrupt, exiting immediately", wid)
		cancel()
		os.Exit(0)
	})

	stopHeartbeat := startHeartbeat(cfg.Cluster, wid, log)
	defer stopHeartbeat()

	log.Info("feather worker starting", wid)

	if err := supervisor.SignalReady(cfg.Cluster); err != nil {
		log.Warning("failed to report readiness to master", err)
	}

	if err := a.Serve(ctx); err != nil {
		log.Error("worker accept loop exited with error", err)
	}
}

func hostPart(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func portPart(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return port
}

type cliOptions struct {
	cluster    string
	configFile string
}

func parseFlags(args []string) (*pflag.FlagSet, cliOptions) {
	fs := pflag.NewFlagSet("feather", pflag.ContinueOnError)

	// flag names match config.Config's mapstructure tags exactly: Load binds
	// this FlagSet into viper by name, with no dash/underscore translation.
	fs.String("listen_addr", "0.0.0.0:8000", "address the master listens on")
	fs.Int("worker_count", 1, "number of worker processes to keep alive")
	fs.Int("max_conns", 1024, "maximum connections held open per worker")
	fs.String("keepalive_timeout", "75s", "idle keep-alive timeout per connection")
	fs.String("worker_timeout", "2s", "heartbeat timeout setting (not read by the supervisor, which uses a fixed 2s)")
	fs.Bool("traceback_body", false, "include error text in 500 response bodies")
	fs.String("access_log_path", "", "file to write access log entries to")
	fs.String("error_log_path", "", "file to write error log entries to")
	fs.String("control_dir", "", "control directory parent path (not applied: the control directory is always under the OS temp dir)")

	cluster := fs.String("cluster", "feather", "cluster name, used to namespace the control directory")
	configFile := fs.String("config", "", "path to a TOML or YAML configuration file")

	// pflag's FlagSet.Parse intentionally ignores an unknown leading
	// subcommand token here; "ctl" is handled by main before this is called.
	_ = fs.Parse(args)

	return fs, cliOptions{cluster: *cluster, configFile: *configFile}
}
