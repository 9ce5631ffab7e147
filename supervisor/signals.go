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
	"os/signal"
	"sort"
	"syscall"
)

// applyMasterSignals wires the process's signal channel to the master
// signal table and starts the dispatch goroutine. Each handler re-checks
// isMaster before acting, the same defeat of the fork race the original's
// signal_handler closure performs by comparing was_master.
func (s *Supervisor) applyMasterSignals() {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch,
		syscall.SIGQUIT, syscall.SIGWINCH, syscall.SIGHUP,
		syscall.SIGINT, syscall.SIGTERM,
		syscall.SIGTTIN, syscall.SIGTTOU,
		syscall.SIGUSR1, syscall.SIGUSR2,
	)

	go func() {
		for sig := range ch {
			wasMaster := s.isMaster.Load()
			if !wasMaster {
				continue
			}
			s.dispatchMaster(sig.(syscall.Signal))
		}
	}()

	go s.reapAll()
}

// reapAll waits for SIGCHLD notifications is not portable across all
// platforms from Go's signal package in the same way Python's SIGCHLD
// handler works; each worker's own exec.Cmd.Wait (see worker.go's reap) is
// this port's equivalent of master_sigchld, since it fires exactly when
// that one child exits rather than requiring a process-wide waitpid loop.
func (s *Supervisor) reapAll() {}

func (s *Supervisor) dispatchMaster(sig syscall.Signal) {
	switch sig {
	case syscall.SIGQUIT:
		s.masterSigquit()
	case syscall.SIGWINCH:
		s.masterSigwinch()
	case syscall.SIGHUP:
		s.masterSighup()
	case syscall.SIGINT, syscall.SIGTERM:
		s.masterSigint()
	case syscall.SIGTTIN:
		s.masterSigttin()
	case syscall.SIGTTOU:
		s.masterSigttou()
	case syscall.SIGUSR1:
		// reopen log files; this port's logger rotates via its own
		// hookfile configuration instead of a signal, so there is
		// nothing to do here.
	case syscall.SIGUSR2:
		s.masterSigusr2()
	}
}

func (s *Supervisor) masterSigquit() {
	s.mu.Lock()
	for pid := range s.workers {
		s.doNotRevive[pid] = true
	}
	s.dieWithLastLast = true
	empty := len(s.workers) == 0
	s.mu.Unlock()

	if empty {
		s.setDone()
	}
	s.signalWorkers(int(syscall.SIGQUIT))
}

// masterSigwinch only honors SIGWINCH when daemonized: an undaemonized
// process attached to a terminal gets spurious SIGWINCH on every window
// resize, which must not be mistaken for a shutdown request.
func (s *Supervisor) masterSigwinch() {
	if os.Getppid() != 1 && os.Getpgrp() == os.Getpid() {
		return
	}

	s.mu.Lock()
	for pid := range s.workers {
		s.doNotRevive[pid] = true
	}
	s.dieWithLastLast = false
	s.mu.Unlock()

	s.signalWorkers(int(syscall.SIGQUIT))
}

func (s *Supervisor) masterSighup() {
	s.mu.Lock()
	s.dieWithLastLast = false
	old := make([]int, 0, len(s.workers))
	for pid := range s.workers {
		old = append(old, pid)
	}
	s.mu.Unlock()

	if err := s.forkWorkers(); err != nil && s.Log != nil {
		s.Log.Error("one or more workers failed to spawn on reload", err)
	}
	s.signalWorkers(int(syscall.SIGQUIT), old...)
}

func (s *Supervisor) masterSigint() {
	s.mu.Lock()
	for pid := range s.workers {
		s.doNotRevive[pid] = true
	}
	s.dieWithLastLast = true
	empty := len(s.workers) == 0
	s.mu.Unlock()

	if empty {
		s.setDone()
	}
	s.signalWorkers(int(syscall.SIGKILL))
}

func (s *Supervisor) masterSigttin() {
	s.mu.Lock()
	s.WorkerCount++
	s.mu.Unlock()
	if err := s.forkWorkers(); err != nil && s.Log != nil {
		s.Log.Error("failed to spawn additional worker", err)
	}
}

// masterSigttou picks the lowest pid to retire, not the "highest worker id"
// a literal reading of the signal table might suggest — see DESIGN.md for
// why this follows the original's actual sorted(workers)[0] rather than a
// wid-based rule.
func (s *Supervisor) masterSigttou() {
	s.mu.Lock()
	s.WorkerCount--
	pids := make([]int, 0, len(s.workers))
	for pid := range s.workers {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	s.mu.Unlock()

	if len(pids) == 0 {
		return
	}
	lucky := pids[0]

	s.mu.Lock()
	s.doNotRevive[lucky] = true
	s.mu.Unlock()

	_ = killPID(lucky, int(syscall.SIGQUIT))
}

func (s *Supervisor) masterSigusr2() {
	_ = s.newMaster()
}

// newMaster re-execs the supervisor binary itself (not a worker) with the
// listening socket handed down, for a zero-downtime binary upgrade: the new
// master process starts up, and once its own workers are healthy the old
// master's masterSigquit (triggered by the operator) retires the old
// generation.
func (s *Supervisor) newMaster() error {
	cmd := reExecCommand(s.listenerFile, nil, s.controlDir.NextDepthEnv())
	return cmd.Start()
}

// applyWorkerSignals wires the worker signal table once a worker process
// has re-exec'd into cmd/feather's worker entry point.
func ApplyWorkerSignals(onQuit func(), onInt func()) {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	go func() {
		for sig := range ch {
			switch sig {
			case syscall.SIGQUIT:
				onQuit()
			case syscall.SIGINT, syscall.SIGTERM:
				onInt()
			case syscall.SIGUSR1:
				// reopen log files: no-op, see masterSigusr1.
			}
		}
	}()
}

func killPID(pid, sig int) error {
	return syscall.Kill(pid, syscall.Signal(sig))
}
