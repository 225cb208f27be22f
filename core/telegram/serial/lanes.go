// Package serial runs update handlers in per-session FIFO lanes: updates of
// one session execute one at a time in arrival order while different
// sessions proceed concurrently.
package serial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/metrics"
	"github.com/m3rciful/exchangebot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when a job is submitted after Close.
	ErrQueueClosed = errors.New("serial: lanes closed")
	// ErrQueueFull indicates the session lane is saturated and the job was not accepted.
	ErrQueueFull = errors.New("serial: lane full")
)

// Options controls lane limits.
type Options struct {
	// QueueSize bounds the jobs waiting in a single lane.
	QueueSize int
	// MaxDuration is logged as a slow-job warning threshold.
	MaxDuration time.Duration
}

type job struct {
	ctx  context.Context
	name string
	run  func() error
}

type lane struct {
	queue []job
}

// Lanes schedules jobs keyed by session id.
type Lanes struct {
	opts Options

	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool

	wg      sync.WaitGroup
	pending atomic.Int64
	errs    atomic.Uint64
}

// New returns Lanes with defaults applied to zero options.
func New(opts Options) *Lanes {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 15 * time.Second
	}
	return &Lanes{
		opts:  opts,
		lanes: make(map[int64]*lane),
	}
}

// Submit appends run to the lane of key. The lane goroutine starts on
// demand and exits once its queue drains.
func (l *Lanes) Submit(ctx context.Context, key int64, name string, run func() error) error {
	if run == nil {
		return errors.New("serial: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrQueueClosed
	}
	ln, ok := l.lanes[key]
	if ok && len(ln.queue) >= l.opts.QueueSize {
		return ErrQueueFull
	}
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln
		l.wg.Add(1)
		go l.drain(key, ln)
	}
	ln.queue = append(ln.queue, job{ctx: ctx, name: name, run: run})
	l.pending.Add(1)
	metrics.LanePending.Inc()
	return nil
}

// Pending returns the number of queued jobs across all lanes.
func (l *Lanes) Pending() int64 {
	return l.pending.Load()
}

// ErrorCount returns the number of jobs that returned an error or panicked.
func (l *Lanes) ErrorCount() uint64 {
	return l.errs.Load()
}

// Close rejects new jobs and waits until every queued job has run.
func (l *Lanes) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Lanes) drain(key int64, ln *lane) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		if len(ln.queue) == 0 {
			delete(l.lanes, key)
			l.mu.Unlock()
			return
		}
		j := ln.queue[0]
		ln.queue[0] = job{}
		ln.queue = ln.queue[1:]
		l.mu.Unlock()

		l.execute(j)
		l.pending.Add(-1)
		metrics.LanePending.Dec()
	}
}

func (l *Lanes) execute(j job) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("serial: panic: %v", r)
				logger.Error(j.ctx, "tg.serial", "job.panic",
					slog.String("handler", j.name),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return j.run()
	}()
	elapsed := time.Since(start)

	if err != nil {
		l.errs.Add(1)
		logger.Error(j.ctx, "tg.serial", "job.fail",
			slog.String("status", "fail"),
			slog.String("handler", j.name),
			slog.String("err_kind", netutil.Classify(err)),
			slog.Duration("duration", elapsed),
			logger.Err(err),
		)
		return
	}
	if elapsed > l.opts.MaxDuration {
		logger.Warn(j.ctx, "tg.serial", "job.slow",
			slog.String("handler", j.name),
			slog.Duration("duration", elapsed),
		)
	}
}
