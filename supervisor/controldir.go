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

package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const (
	// EnvListenFD carries the inherited listening socket's FD number
	// across a re-exec.
	EnvListenFD = "FEATHER_LISTEN_FD"

	// EnvDepth disambiguates nested control directories across re-execs.
	EnvDepth = "FEATHER_DEPTH"

	// EnvDaemon marks that the double-fork daemonization step has already
	// run, so a re-exec'd master does not daemonize again.
	EnvDaemon = "DAEMON"

	// EnvReadyFD carries the write end of the master's readiness pipe
	// across a re-exec, set only for ordinary worker spawns (never for the
	// nested master of a SIGUSR2 binary upgrade).
	EnvReadyFD = "FEATHER_READY_FD"
)

// ControlDir is the on-disk directory a Supervisor uses for its PID files,
// readiness FIFO, and per-worker heartbeat files.
type ControlDir struct {
	Path  string
	Depth int
}

// NewControlDir creates "feather-<cluster>-<depth>" under the OS temp
// directory, reading the depth from EnvDepth (defaulting to 0 for a
// top-level invocation, and incrementing it for the benefit of a later
// re-exec).
func NewControlDir(cluster string) (*ControlDir, error) {
	depth := 0
	if v := os.Getenv(EnvDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			depth = n
		}
	}

	name := fmt.Sprintf("feather-%s-%d", cluster, depth)
	path := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	c := &ControlDir{Path: path, Depth: depth}

	if err := syscall.Mkfifo(c.notifyPath(), 0o644); err != nil && !os.IsExist(err) {
		return nil, err
	}

	lock, err := os.OpenFile(c.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	_ = lock.Close()

	return c, nil
}

// NextDepthEnv returns the FEATHER_DEPTH value a re-exec'd *master* should
// be started with (SIGUSR2 binary upgrade): it gets its own nested control
// directory, one level deeper than this one.
func (c *ControlDir) NextDepthEnv() string {
	return strconv.Itoa(c.Depth + 1)
}

// CurrentDepthEnv returns the FEATHER_DEPTH value an ordinary re-exec'd
// *worker* should be started with: workers share the master's control
// directory, so they must inherit this depth unchanged rather than bump it.
func (c *ControlDir) CurrentDepthEnv() string {
	return strconv.Itoa(c.Depth)
}

func (c *ControlDir) masterPIDPath() string { return filepath.Join(c.Path, "master.pid") }

func (c *ControlDir) workerPIDPath(wid int) string {
	return filepath.Join(c.Path, fmt.Sprintf("worker%d.pid", wid))
}

func (c *ControlDir) heartbeatPath(wid int) string {
	return filepath.Join(c.Path, fmt.Sprintf(".worker%d", wid))
}

func (c *ControlDir) notifyPath() string { return filepath.Join(c.Path, "notify") }

func (c *ControlDir) lockPath() string { return filepath.Join(c.Path, ".lock") }

// WriteMasterPID records the running master's PID.
func (c *ControlDir) WriteMasterPID() error {
	return os.WriteFile(c.masterPIDPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// WriteWorkerPID records one worker's PID under its worker id.
func (c *ControlDir) WriteWorkerPID(wid, pid int) error {
	return os.WriteFile(c.workerPIDPath(wid), []byte(strconv.Itoa(pid)), 0o644)
}

// TouchHeartbeat creates (or updates the mtime of) a worker's heartbeat
// file. The supervisor compares this timestamp against WorkerTimeout to
// detect a hung worker.
func (c *ControlDir) TouchHeartbeat(wid int) error {
	p := c.heartbeatPath(wid)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	now := currentTime()
	return os.Chtimes(p, now, now)
}

// HeartbeatAge returns how long it has been since wid last touched its
// heartbeat file.
func (c *ControlDir) HeartbeatAge(wid int) (float64, error) {
	info, err := os.Stat(c.heartbeatPath(wid))
	if err != nil {
		return 0, err
	}
	return currentTime().Sub(info.ModTime()).Seconds(), nil
}

// Remove deletes the whole control directory tree.
func (c *ControlDir) Remove() error {
	return os.RemoveAll(c.Path)
}
