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

package accept

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/featherhq/feather/atomic"
	"github.com/featherhq/feather/conn"
	"github.com/featherhq/feather/handler"
	"github.com/featherhq/feather/logger"
	"github.com/featherhq/feather/runtime"

	fd "github.com/featherhq/feather/ioutils/fileDescriptor"
)

// Options configures an Acceptor.
type Options struct {
	MaxConns     int
	ConnOptions  conn.Options
	RaiseULimit  bool
}

// Acceptor owns one worker's listening socket and accept loop, bounding
// concurrently open descriptors with a semaphore and evicting idle
// connections under EMFILE pressure rather than crashing.
type Acceptor struct {
	listener runtime.Socket
	rt       runtime.WorkerRuntime
	handler  *handler.RequestHandler
	opt      Options
	log      logger.Logger

	sem       runtime.BoundedSemaphore
	openCount runtime.Counter

	mu          sync.Mutex
	killableSet map[*conn.Connection]struct{}

	shuttingDown atomic.Value[bool]
	ready        runtime.Event
	done         runtime.Event
}

// New builds an Acceptor over listener, not yet accepting. Call Serve to run
// the loop.
func New(listener runtime.Socket, rt runtime.WorkerRuntime, h *handler.RequestHandler, opt Options, log logger.Logger) *Acceptor {
	if opt.MaxConns <= 0 {
		opt.MaxConns = 1024
	}

	if opt.RaiseULimit {
		_, _, _ = fd.SystemFileDescriptor(opt.MaxConns * 2)
	}

	return &Acceptor{
		listener:     listener,
		rt:           rt,
		handler:      h,
		opt:          opt,
		log:          log,
		sem:          rt.NewBoundedSemaphore(opt.MaxConns),
		openCount:    rt.NewCounter(0),
		killableSet:  make(map[*conn.Connection]struct{}),
		shuttingDown: atomic.NewValueDefault[bool](false, false),
		ready:        rt.NewEvent(),
		done:         rt.NewEvent(),
	}
}

// Ready fires once the acceptor has entered its loop.
func (a *Acceptor) Ready() runtime.Event { return a.ready }

// Done fires once Shutdown has fully drained open connections.
func (a *Acceptor) Done() runtime.Event { return a.done }

// OpenCount returns the number of currently open connections owned by this
// acceptor.
func (a *Acceptor) OpenCount() int64 { return a.openCount.Value() }

// Serve runs the accept loop until Shutdown is called or a fatal error
// occurs.
func (a *Acceptor) Serve(ctx context.Context) error {
	a.ready.Set()

	for {
		if a.shuttingDown.Load() {
			a.cleanup()
			return nil
		}

		if err := a.sem.Acquire(ctx); err != nil {
			a.cleanup()
			return err
		}

		sock, _, err := a.listener.Accept(ctx)
		if err != nil {
			a.sem.Release()

			switch {
			case errors.Is(err, syscall.EMFILE):
				a.drainEviction()
				continue
			case errors.Is(err, syscall.ENFILE):
				a.rt.PauseFor(10 * time.Millisecond)
				continue
			case errors.Is(err, syscall.EINVAL), errors.Is(err, syscall.EBADF), errors.Is(err, net.ErrClosed):
				a.cleanup()
				return nil
			default:
				a.cleanup()
				return err
			}
		}

		a.openCount.Incr(1)
		c := conn.New(sock, a.rt, a.handler, a, a.opt.ConnOptions, a.log)
		a.track(c)

		a.rt.Spawn(func() {
			c.Run(ctx)
		})
	}
}

// Release is called by a Connection once it reaches Closed: it leaves the
// killable set and decrements open-count.
func (a *Acceptor) Release(c *conn.Connection) {
	a.untrack(c)
	a.openCount.Incr(-1)
	a.sem.Release()
}

func (a *Acceptor) track(c *conn.Connection) {
	a.mu.Lock()
	a.killableSet[c] = struct{}{}
	a.mu.Unlock()
}

func (a *Acceptor) untrack(c *conn.Connection) {
	a.mu.Lock()
	delete(a.killableSet, c)
	a.mu.Unlock()
}

// drainEviction force-closes every currently idle keep-alive connection to
// relieve descriptor pressure under EMFILE.
func (a *Acceptor) drainEviction() {
	a.mu.Lock()
	victims := make([]*conn.Connection, 0, len(a.killableSet))
	for c := range a.killableSet {
		victims = append(victims, c)
	}
	a.mu.Unlock()

	for _, c := range victims {
		c.Kill()
	}
}

// Shutdown requests the accept loop exit: it stops accepting new
// connections and wakes the task blocked in accept by closing the listening
// socket, which causes the next Accept to fail with EBADF/net.ErrClosed.
func (a *Acceptor) Shutdown() {
	a.shuttingDown.Store(true)
	_ = a.listener.Close()
}

func (a *Acceptor) cleanup() {
	a.drainEviction()
	for a.openCount.Value() > 0 {
		a.rt.PauseFor(5 * time.Millisecond)
	}
	a.done.Set()
}
