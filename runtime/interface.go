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
	"time"
)

// Timer fires fn once after its delay elapses, unless canceled first.
type Timer interface {
	Start()
	Cancel()
}

// Event is a one-shot, re-armable gate: goroutines calling Wait block until
// Set is called, and Clear rearms it.
type Event interface {
	Set()
	Clear()
	IsSet() bool
	Wait(ctx context.Context) error
}

// Lock is a plain mutual-exclusion lock with a non-blocking TryLock.
type Lock interface {
	Lock()
	Unlock()
	TryLock() bool
}

// BoundedSemaphore caps concurrent holders at the count given to
// NewBoundedSemaphore.
type BoundedSemaphore interface {
	Acquire(ctx context.Context) error
	TryAcquire() bool
	Release()
}

// Counter is a simple atomic counter, used for open-connection and
// open-descriptor bookkeeping.
type Counter interface {
	Incr(delta int64) int64
	Value() int64
}

// Socket wraps a net.Conn with cooperative, context-cancelable operations so
// an Acceptor or Connection never blocks the whole process on one peer.
type Socket interface {
	Accept(ctx context.Context) (Socket, net.Addr, error)
	Recv(ctx context.Context, buf []byte) (int, error)
	SendAll(ctx context.Context, data []byte) error
	Close() error
	SetTimeout(d time.Duration)
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// WorkerRuntime is the scheduler abstraction every other package in this
// module is built against: spawn/pause primitives, synchronization
// primitives, and cooperative sockets. A production WorkerRuntime is
// goroutine-backed (see Goroutine); a deterministic one drives tests without
// real sleeps, sockets, or OS processes (see the runtime/runtest package).
type WorkerRuntime interface {
	Spawn(task func())

	Pause()
	PauseFor(d time.Duration)
	PauseUntil(deadline time.Time)

	Pipe() (io.ReadWriteCloser, io.ReadWriteCloser, error)

	NewTimer(d time.Duration, fn func()) Timer
	NewEvent() Event
	NewLock() Lock
	NewBoundedSemaphore(n int) BoundedSemaphore
	NewCounter(initial int64) Counter

	WrapSocket(conn net.Conn) Socket
	Listen(network, address string) (Socket, error)

	// WrapListener adapts an already-open net.Listener (an inherited
	// listening socket, for a re-exec'd worker) into a Socket whose Accept
	// cooperates with this runtime, the same way Listen's own return value
	// does for a freshly created listener.
	WrapListener(ln net.Listener) Socket

	// ResetPoller rebuilds any OS-level poller state; called in a freshly
	// forked child before it resumes cooperative scheduling.
	ResetPoller()

	// SetIgnoreInterrupts makes cooperative syscalls retry on EINTR instead
	// of failing, matching the behavior daemonized workers need.
	SetIgnoreInterrupts(ignore bool)
}
