package reconciler

import (
	"context"
	"sync"
	"time"
)

// Ticker is the part of time.Ticker a Task uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds the ticker a Task waits on.
type TickerFactory func(interval time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(interval time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(interval)}
}

// TickFunc runs once per attempt. Returning true ends the task.
type TickFunc func(ctx context.Context, attempt int) (done bool)

// ExpireFunc runs once when the attempt counter passes the bound.
type ExpireFunc func(ctx context.Context, attempts int)

// Task calls tick at a fixed interval until tick reports done, the attempt
// bound is exceeded, or Stop is called. A task runs at most once.
type Task struct {
	interval    time.Duration
	maxAttempts int
	tick        TickFunc
	expire      ExpireFunc
	newTicker   TickerFactory

	mu       sync.Mutex
	attempts int
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewTask(interval time.Duration, maxAttempts int, tick TickFunc, expire ExpireFunc, newTicker TickerFactory) *Task {
	if newTicker == nil {
		newTicker = NewStdTicker
	}
	return &Task{
		interval:    interval,
		maxAttempts: maxAttempts,
		tick:        tick,
		expire:      expire,
		newTicker:   newTicker,
		done:        make(chan struct{}),
	}
}

// Start launches the loop. It is a no-op if the task was already started or
// stopped.
func (t *Task) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started || t.stopped {
		return false
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	ticker := t.newTicker(t.interval)
	go t.run(ctx, ticker)
	return true
}

func (t *Task) run(ctx context.Context, ticker Ticker) {
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		n := t.nextAttempt()
		if n > t.maxAttempts {
			if t.expire != nil {
				t.expire(ctx, n)
			}
			return
		}
		if t.tick(ctx, n) {
			return
		}
	}
}

func (t *Task) nextAttempt() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts++
	return t.attempts
}

// Stop cancels the loop and blocks until it has exited, so no tick runs
// after Stop returns. A tick already in progress finishes with a cancelled
// context. Stop must not be called from inside tick or expire.
func (t *Task) Stop() {
	t.mu.Lock()
	t.stopped = true
	started, cancel := t.started, t.cancel
	t.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-t.done
}

func (t *Task) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Running reports whether the loop is live.
func (t *Task) Running() bool {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Done is closed when a started loop exits.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
