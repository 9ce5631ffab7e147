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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var ctlSignals = map[string]syscall.Signal{
	"QUIT":  syscall.SIGQUIT,
	"TERM":  syscall.SIGTERM,
	"INT":   syscall.SIGINT,
	"HUP":   syscall.SIGHUP,
	"USR1":  syscall.SIGUSR1,
	"USR2":  syscall.SIGUSR2,
	"TTIN":  syscall.SIGTTIN,
	"TTOU":  syscall.SIGTTOU,
	"WINCH": syscall.SIGWINCH,
	"KILL":  syscall.SIGKILL,
}

// runCtl implements "feather ctl <signal> <control-dir>": it reads
// master.pid out of control-dir (the same directory ControlDir.Path names,
// see spec §6) and signals that process directly, the same job the
// original's standalone process-monitor script did by hand.
func runCtl(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: feather ctl <signal> <control-dir>")
	}

	sig, err := parseCtlSignal(args[0])
	if err != nil {
		return err
	}

	pid, err := readMasterPID(args[1])
	if err != nil {
		return err
	}

	return syscall.Kill(pid, sig)
}

func parseCtlSignal(name string) (syscall.Signal, error) {
	key := strings.TrimPrefix(strings.ToUpper(name), "SIG")
	if sig, ok := ctlSignals[key]; ok {
		return sig, nil
	}

	if n, err := strconv.Atoi(name); err == nil {
		return syscall.Signal(n), nil
	}

	return 0, fmt.Errorf("unrecognized signal %q", name)
}

func readMasterPID(controlDir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(controlDir, "master.pid"))
	if err != nil {
		return 0, fmt.Errorf("reading master.pid: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parsing master.pid: %w", err)
	}

	return pid, nil
}
