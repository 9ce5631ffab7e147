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
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// WorkerTimeout bounds how long a worker may go without touching its
// heartbeat file before the master considers it hung and kills it.
const WorkerTimeout = 2 * time.Second

// worker tracks one running child process.
type worker struct {
	wid     int
	pid     int
	cmd     *exec.Cmd
	timer   *time.Timer
	stopped bool
	mu      sync.Mutex
}

func (w *worker) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// reExecCommand builds an *exec.Cmd that re-launches the current binary
// with listenerFile inherited as an extra file descriptor, used both for
// ordinary worker spawning and for the SIGUSR2 binary-upgrade new master.
// readyWriter is the write end of the readiness pipe, inherited as a second
// extra file so the child can report back via SignalReady; it is nil for
// newMaster's nested re-exec, which isn't an ordinary worker and has no
// readiness report to make.
func reExecCommand(listenerFile, readyWriter *os.File, depthEnv string) *exec.Cmd {
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.ExtraFiles = []*os.File{listenerFile}

	cmd.Env = append(os.Environ(),
		EnvListenFD+"=3",
		EnvDepth+"="+depthEnv,
		EnvDaemon+"=yes",
	)

	if readyWriter != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, readyWriter)
		cmd.Env = append(cmd.Env, EnvReadyFD+"=4")
	}

	return cmd
}

// spawnWorker re-execs the current binary with EnvListenFD set to the
// listening socket's inherited descriptor, standing in for fork() in the
// original: Go processes cannot fork and continue running Go code safely,
// so each worker is a fresh process image instead of a copied one. Unlike
// newMaster's SIGUSR2 upgrade, a worker is not a nested master: it must
// inherit the current depth unchanged so its control directory (and thus
// its heartbeat file) resolves to the same one the master already opened.
func (s *Supervisor) spawnWorker(wid int) (*worker, error) {
	cmd := reExecCommand(s.listenerFile, s.readinessWriter, s.controlDir.CurrentDepthEnv())
	cmd.Env = append(cmd.Env, workerIDEnv+"="+strconv.Itoa(wid))

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	_ = s.controlDir.WriteWorkerPID(wid, cmd.Process.Pid)
	_ = s.controlDir.TouchHeartbeat(wid)

	w := &worker{wid: wid, pid: cmd.Process.Pid, cmd: cmd}
	s.armHealthMonitor(w)

	go s.reap(w)

	return w, nil
}

// workerIDEnv carries the chosen worker id across the re-exec so the child
// knows which heartbeat file to touch.
const workerIDEnv = "FEATHER_WORKER_ID"

// armHealthMonitor schedules the periodic heartbeat-staleness check for w,
// re-arming itself on every check, matching health_monitor's
// self-rescheduling Timer in the original.
func (s *Supervisor) armHealthMonitor(w *worker) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.timer = time.AfterFunc(WorkerTimeout, func() {
		s.checkWorkerHealth(w)
	})
	w.mu.Unlock()
}

func (s *Supervisor) checkWorkerHealth(w *worker) {
	age, err := s.controlDir.HeartbeatAge(w.wid)
	if err != nil || age > WorkerTimeout.Seconds() {
		_ = syscall.Kill(w.pid, syscall.SIGKILL)
		s.workerExited(w.pid)
		return
	}
	s.armHealthMonitor(w)
}

func (s *Supervisor) reap(w *worker) {
	_ = w.cmd.Wait()
	s.workerExited(w.pid)
}
