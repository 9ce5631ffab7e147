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
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strconv"
	"syscall"
)

// SignalReady tells the master that this worker's acceptor has started
// serving. It takes an advisory flock on the control directory's lock file,
// writes this worker's PID (4 bytes, little-endian) to the inherited
// readiness pipe, and releases the lock, so concurrently-starting workers
// don't interleave their writes. Called from a re-exec'd worker process that
// was not handed a readiness pipe (a nested master from a SIGUSR2 upgrade,
// or any process started outside of spawnWorker), it is a no-op.
func SignalReady(cluster string) error {
	fdStr := os.Getenv(EnvReadyFD)
	if fdStr == "" {
		return nil
	}
	fdNum, err := strconv.Atoi(fdStr)
	if err != nil {
		return err
	}

	cd, err := NewControlDir(cluster)
	if err != nil {
		return err
	}

	lock, err := os.OpenFile(cd.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer lock.Close()

	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)

	pipe := os.NewFile(uintptr(fdNum), "readiness")
	defer pipe.Close()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(os.Getpid()))
	_, err = pipe.Write(buf[:])
	return err
}

// watchReadiness blocks until it has read one 4-byte PID report per original
// worker, then announces readiness over the notify FIFO. Workers revived
// later (SIGTTIN, a crash revive, a restart) still report through the same
// pipe via SignalReady, but by then nobody is reading it any more - matching
// the one-shot startup handshake the readiness protocol only ever promises
// once.
func (s *Supervisor) watchReadiness() {
	for i := 0; i < s.WorkerCount; i++ {
		var buf [4]byte
		if _, err := io.ReadFull(s.readinessReader, buf[:]); err != nil {
			if s.Log != nil {
				s.Log.Warning("readiness pipe closed before every worker reported", err)
			}
			return
		}
	}

	s.announceReady()
}

// announceReady opens the control directory's notify FIFO for a single
// non-blocking write. ENXIO means nothing has the read end open yet, which
// is an unremarkable race against whatever external process is watching for
// startup (systemd, a supervising shell) rather than a failure.
func (s *Supervisor) announceReady() {
	f, err := os.OpenFile(s.controlDir.notifyPath(), os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		if s.Log != nil {
			if errors.Is(err, syscall.ENXIO) {
				s.Log.Warning("notify FIFO has no reader", err)
			} else {
				s.Log.Error("failed to open notify FIFO", err)
			}
		}
		return
	}
	defer f.Close()

	if _, err := f.Write([]byte{0}); err != nil && s.Log != nil {
		s.Log.Warning("failed to write notify FIFO", err)
	}
}
