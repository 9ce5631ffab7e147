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

package runtime

import (
	"context"
	"io"
	"net"
	"os"
	stdruntime "runtime"
	"sync"
	"time"

	"github.com/featherhq/feather/atomic"
)

// Goroutine is the production WorkerRuntime: Spawn starts a real goroutine,
// Pause* uses real timers, and WrapSocket/Listen use the real net package.
// Cooperative yielding comes for free from goroutine preemption, so this
// implementation is a thin, direct mapping rather than a scheduler of its
// own.
type Goroutine struct {
	ignoreInterrupts atomic.Value[bool]
}

// NewGoroutine returns a WorkerRuntime backed by real goroutines and OS
// primitives.
func NewGoroutine() *Goroutine {
	return &Goroutine{ignoreInterrupts: atomic.NewValueDefault[bool](false, false)}
}

func (g *Goroutine) Spawn(task func()) { go task() }

func (g *Goroutine) Pause() { runtimeGosched() }

func (g *Goroutine) PauseFor(d time.Duration) { time.Sleep(d) }

func (g *Goroutine) PauseUntil(deadline time.Time) {
	if d := time.Until(deadline); d > 0 {
		time.Sleep(d)
	}
}

func (g *Goroutine) Pipe() (io.ReadWriteCloser, io.ReadWriteCloser, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return r, w, nil
}

func (g *Goroutine) NewTimer(d time.Duration, fn func()) Timer {
	return &goroutineTimer{d: d, fn: fn}
}

func (g *Goroutine) NewEvent() Event { return newGoroutineEvent() }

func (g *Goroutine) NewLock() Lock { return &goroutineLock{} }

func (g *Goroutine) NewBoundedSemaphore(n int) BoundedSemaphore {
	return newGoroutineSemaphore(n)
}

func (g *Goroutine) NewCounter(initial int64) Counter {
	return &goroutineCounter{v: initial}
}

func (g *Goroutine) WrapSocket(conn net.Conn) Socket {
	return &goroutineSocket{Conn: conn}
}

func (g *Goroutine) Listen(network, address string) (Socket, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	return &goroutineListener{ln: ln}, nil
}

func (g *Goroutine) WrapListener(ln net.Listener) Socket {
	return &goroutineListener{ln: ln}
}

func (g *Goroutine) ResetPoller() {
	// the Go runtime's netpoller is rebuilt automatically by the runtime
	// after fork+exec; there is nothing to reset by hand here.
}

func (g *Goroutine) SetIgnoreInterrupts(ignore bool) {
	g.ignoreInterrupts.Store(ignore)
}

type goroutineTimer struct {
	d      time.Duration
	fn     func()
	mu     sync.Mutex
	timer  *time.Timer
	cancel bool
}

func (t *goroutineTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel {
		return
	}
	t.timer = time.AfterFunc(t.d, t.fn)
}

func (t *goroutineTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

type goroutineEvent struct {
	mu sync.Mutex
	ch chan struct{}
}

func newGoroutineEvent() *goroutineEvent {
	return &goroutineEvent{ch: make(chan struct{})}
}

func (e *goroutineEvent) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.ch:
	default:
		close(e.ch)
	}
}

func (e *goroutineEvent) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.ch:
		e.ch = make(chan struct{})
	default:
	}
}

func (e *goroutineEvent) IsSet() bool {
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

func (e *goroutineEvent) Wait(ctx context.Context) error {
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

type goroutineLock struct{ mu sync.Mutex }

func (l *goroutineLock) Lock()   { l.mu.Lock() }
func (l *goroutineLock) Unlock() { l.mu.Unlock() }
func (l *goroutineLock) TryLock() bool {
	return l.mu.TryLock()
}

type goroutineSemaphore struct{ ch chan struct{} }

func newGoroutineSemaphore(n int) *goroutineSemaphore {
	return &goroutineSemaphore{ch: make(chan struct{}, n)}
}

func (s *goroutineSemaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *goroutineSemaphore) TryAcquire() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *goroutineSemaphore) Release() {
	select {
	case <-s.ch:
	default:
	}
}

type goroutineCounter struct {
	mu sync.Mutex
	v  int64
}

func (c *goroutineCounter) Incr(delta int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v += delta
	return c.v
}

func (c *goroutineCounter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

type goroutineSocket struct{ net.Conn }

func (s *goroutineSocket) Accept(ctx context.Context) (Socket, net.Addr, error) {
	return nil, nil, net.ErrClosed
}

func (s *goroutineSocket) Recv(ctx context.Context, buf []byte) (int, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.Conn.SetReadDeadline(dl)
	}
	return s.Conn.Read(buf)
}

func (s *goroutineSocket) SendAll(ctx context.Context, data []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.Conn.SetWriteDeadline(dl)
	}
	for len(data) > 0 {
		n, err := s.Conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (s *goroutineSocket) SetTimeout(d time.Duration) {
	_ = s.Conn.SetDeadline(time.Now().Add(d))
}

type goroutineListener struct{ ln net.Listener }

func (l *goroutineListener) Accept(ctx context.Context) (Socket, net.Addr, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, nil, err
	}
	return &goroutineSocket{Conn: conn}, conn.RemoteAddr(), nil
}

func (l *goroutineListener) Recv(ctx context.Context, buf []byte) (int, error) {
	return 0, net.ErrClosed
}

func (l *goroutineListener) SendAll(ctx context.Context, data []byte) error {
	return net.ErrClosed
}

func (l *goroutineListener) Close() error { return l.ln.Close() }

func (l *goroutineListener) SetTimeout(d time.Duration) {}

func (l *goroutineListener) LocalAddr() net.Addr  { return l.ln.Addr() }
func (l *goroutineListener) RemoteAddr() net.Addr { return nil }

func runtimeGosched() { stdruntime.Gosched() }
