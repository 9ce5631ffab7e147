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
	"strconv"
	"sync"

	"github.com/featherhq/feather/atomic"
	errpool "github.com/featherhq/feather/errors/pool"
	"github.com/featherhq/feather/logger"
)

// IsWorker reports whether the current process was re-exec'd by a
// Supervisor as a worker (EnvListenFD/FEATHER_WORKER_ID are set), as
// opposed to being the top-level master invocation.
func IsWorker() bool {
	return os.Getenv(EnvListenFD) != "" && os.Getenv(workerIDEnv) != ""
}

// WorkerID returns this process's worker id when IsWorker is true.
func WorkerID() (int, bool) {
	v := os.Getenv(workerIDEnv)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// ListenFD returns the inherited listening socket descriptor when IsWorker
// is true.
func ListenFD() (int, bool) {
	v := os.Getenv(EnvListenFD)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// Supervisor is the master process: it holds the listening socket, re-execs
// one worker process per configured slot, and reacts to signals the way the
// original's Monitor does.
type Supervisor struct {
	Cluster     string
	WorkerCount int
	Log         logger.Logger

	listenerFile *os.File
	controlDir   *ControlDir

	readinessReader *os.File
	readinessWriter *os.File

	mu              sync.Mutex
	workers         map[int]*worker
	nextWID         int
	doNotRevive     map[int]bool
	dieWithLastLast bool

	isMaster atomic.Value[bool]
	done     chan struct{}
	doneOnce sync.Once
}

// New builds a Supervisor that will serve listenerFile (a *os.File backing
// the listening socket, obtained from the net.Listener before Serve is
// called) to WorkerCount re-exec'd workers.
func New(cluster string, workerCount int, listenerFile *os.File, log logger.Logger) (*Supervisor, error) {
	cd, err := NewControlDir(cluster)
	if err != nil {
		return nil, err
	}

	readinessReader, readinessWriter, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		Cluster:         cluster,
		WorkerCount:     workerCount,
		Log:             log,
		listenerFile:    listenerFile,
		controlDir:      cd,
		readinessReader: readinessReader,
		readinessWriter: readinessWriter,
		workers:         make(map[int]*worker),
		doNotRevive:     make(map[int]bool),
		isMaster:        atomic.NewValueDefault[bool](true, true),
		done:            make(chan struct{}),
	}
	return s, nil
}

// Serve writes the master PID file, forks (re-execs) the configured number
// of workers, applies the master signal table, and blocks until Done fires.
func (s *Supervisor) Serve() error {
	if err := s.controlDir.WriteMasterPID(); err != nil {
		return err
	}

	s.applyMasterSignals()

	go s.watchReadiness()

	if err := s.forkWorkers(); err != nil {
		s.mu.Lock()
		alive := len(s.workers)
		s.mu.Unlock()

		if alive == 0 {
			return err
		}
		if s.Log != nil {
			s.Log.Error("one or more workers failed to spawn on startup", err)
		}
	}

	<-s.done
	return nil
}

// Done reports whether the master has fully wound down (every worker exited
// and die-with-last-worker was set, or SIGQUIT/SIGINT closed it directly).
func (s *Supervisor) Done() <-chan struct{} { return s.done }

func (s *Supervisor) setDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// forkWorkers spawns every currently-missing worker concurrently and
// returns their combined spawn errors (nil if every spawn succeeded). The
// workers are independent processes, so there is no ordering reason to
// serialize their re-exec; errpool.Pool collects whichever goroutines fail
// without the caller needing its own mutex around a slice.
func (s *Supervisor) forkWorkers() error {
	s.mu.Lock()
	missing := s.WorkerCount - len(s.workers)
	s.mu.Unlock()

	if missing <= 0 {
		return nil
	}

	errs := errpool.New()
	var wg sync.WaitGroup
	for i := 0; i < missing; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.forkOneWorker(); err != nil {
				errs.Add(err)
			}
		}()
	}
	wg.Wait()

	return errs.Error()
}

func (s *Supervisor) forkOneWorker() error {
	s.mu.Lock()
	wid := s.nextWID
	s.nextWID++
	s.mu.Unlock()

	w, err := s.spawnWorker(wid)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.workers[w.pid] = w
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) workerExited(pid int) {
	s.mu.Lock()
	w, ok := s.workers[pid]
	if ok {
		delete(s.workers, pid)
	}
	revive := !s.doNotRevive[pid]
	delete(s.doNotRevive, pid)
	dieWithLast := s.dieWithLastLast
	remaining := len(s.workers)
	s.mu.Unlock()

	if !ok {
		return
	}
	w.cancel()

	if revive {
		if err := s.forkOneWorker(); err != nil && s.Log != nil {
			s.Log.Error("failed to revive worker", err)
		}
		return
	}

	if dieWithLast && remaining == 0 {
		s.setDone()
	}
}

func (s *Supervisor) signalWorkers(sig int, pids ...int) {
	s.mu.Lock()
	targets := pids
	if len(targets) == 0 {
		for pid := range s.workers {
			targets = append(targets, pid)
		}
	}
	s.mu.Unlock()

	for _, pid := range targets {
		_ = killPID(pid, sig)
	}
}
