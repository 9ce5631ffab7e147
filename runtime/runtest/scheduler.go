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

// Package runtest is a deterministic runtime.WorkerRuntime for specs: it
// runs spawned tasks on real goroutines (Go has no single-threaded
// cooperative mode to fall back to) but replaces wall-clock waits with a
// manually advanced virtual clock, so Connection, Acceptor, and Supervisor
// specs never sleep or depend on real timing.
package runtest

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/featherhq/feather/runtime"
)

// Scheduler is a runtime.WorkerRuntime whose PauseFor/PauseUntil/Timer calls
// block on a virtual clock advanced only by calling Advance.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	done     chan struct{}
}

// New returns a Scheduler with its virtual clock set to start.
func New(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// Advance moves the virtual clock forward by d, waking any waiter whose
// deadline has now passed.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var remaining []*waiter
	for _, w := range s.waiters {
		if !w.deadline.After(s.now) {
			close(w.done)
		} else {
			remaining = append(remaining, w)
		}
	}
	s.waiters = remaining
	s.mu.Unlock()
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Scheduler) waitUntil(deadline time.Time) {
	s.mu.Lock()
	if !deadline.After(s.now) {
		s.mu.Unlock()
		return
	}
	w := &waiter{deadline: deadline, done: make(chan struct{})}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()
	<-w.done
}

func (s *Scheduler) Spawn(task func()) { go task() }

func (s *Scheduler) Pause() {}

func (s *Scheduler) PauseFor(d time.Duration) { s.waitUntil(s.Now().Add(d)) }

func (s *Scheduler) PauseUntil(deadline time.Time) { s.waitUntil(deadline) }

func (s *Scheduler) Pipe() (io.ReadWriteCloser, io.ReadWriteCloser, error) {
	a, b := net.Pipe()
	return pipeEnd{a}, pipeEnd{b}, nil
}

type pipeEnd struct{ net.Conn }

func (s *Scheduler) NewTimer(d time.Duration, fn func()) runtime.Timer {
	return &schedulerTimer{s: s, d: d, fn: fn}
}

type schedulerTimer struct {
	s       *Scheduler
	d       time.Duration
	fn      func()
	mu      sync.Mutex
	stopped bool
}

func (t *schedulerTimer) Start() {
	go func() {
		t.s.waitUntil(t.s.Now().Add(t.d))
		t.mu.Lock()
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			t.fn()
		}
	}()
}

func (t *schedulerTimer) Cancel() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (s *Scheduler) NewEvent() runtime.Event { return newEvent() }

func (s *Scheduler) NewLock() runtime.Lock { return &lock{} }

func (s *Scheduler) NewBoundedSemaphore(n int) runtime.BoundedSemaphore {
	return newSemaphore(n)
}

func (s *Scheduler) NewCounter(initial int64) runtime.Counter {
	return &counter{v: initial}
}

func (s *Scheduler) WrapSocket(conn net.Conn) runtime.Socket {
	return &socket{Conn: conn}
}

func (s *Scheduler) Listen(network, address string) (runtime.Socket, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln}, nil
}

func (s *Scheduler) WrapListener(ln net.Listener) runtime.Socket {
	return &listener{ln: ln}
}

func (s *Scheduler) ResetPoller() {}

func (s *Scheduler) SetIgnoreInterrupts(ignore bool) {}

type event struct {
	mu sync.Mutex
	ch chan struct{}
}

func newEvent() *event { return &event{ch: make(chan struct{})} }

func (e *event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.ch:
	default:
		close(e.ch)
	}
}

func (e *event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.ch:
		e.ch = make(chan struct{})
	default:
	}
}

func (e *event) IsSet() bool {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (e *event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type lock struct{ mu sync.Mutex }

func (l *lock) Lock()          { l.mu.Lock() }
func (l *lock) Unlock()        { l.mu.Unlock() }
func (l *lock) TryLock() bool  { return l.mu.TryLock() }

type semaphore struct{ ch chan struct{} }

func newSemaphore(n int) *semaphore { return &semaphore{ch: make(chan struct{}, n)} }

func (s *semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *semaphore) Release() {
	select {
	case <-s.ch:
	default:
	}
}

type counter struct {
	mu sync.Mutex
	v  int64
}

func (c *counter) Incr(delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v += delta
	return c.v
}

func (c *counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

type socket struct{ net.Conn }

func (s *socket) Accept(ctx context.Context) (runtime.Socket, net.Addr, error) {
	return nil, nil, net.ErrClosed
}

func (s *socket) Recv(ctx context.Context, buf []byte) (int, error) {
	return s.Conn.Read(buf)
}

func (s *socket) SendAll(ctx context.Context, data []byte) error {
	for len(data) > 0 {
		n, err := s.Conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (s *socket) SetTimeout(d time.Duration) {}

type listener struct{ ln net.Listener }

func (l *listener) Accept(ctx context.Context) (runtime.Socket, net.Addr, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, nil, err
	}
	return &socket{Conn: conn}, conn.RemoteAddr(), nil
}

func (l *listener) Recv(ctx context.Context, buf []byte) (int, error)   { return 0, net.ErrClosed }
func (l *listener) SendAll(ctx context.Context, data []byte) error      { return net.ErrClosed }
func (l *listener) Close() error                                       { return l.ln.Close() }
func (l *listener) SetTimeout(d time.Duration)                         {}
func (l *listener) LocalAddr() net.Addr                                { return l.ln.Addr() }
func (l *listener) RemoteAddr() net.Addr                               { return nil }
