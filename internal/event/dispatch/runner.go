package dispatch

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// ErrTimeout marks a handler that returned after its deadline passed.
var ErrTimeout = errors.New("handler deadline exceeded")

// Outcome classifies one handler run.
type Outcome uint8

const (
	// OutcomeOK is a handler that returned nil in time.
	OutcomeOK Outcome = iota
	// OutcomeFailed is a handler that returned an error in time.
	OutcomeFailed
	// OutcomeTimedOut is a handler that returned after its deadline.
	OutcomeTimedOut
	// OutcomePanicked is a handler that panicked.
	OutcomePanicked
	// OutcomeSkipped is a handler never started because ctx was done.
	OutcomeSkipped

	outcomeCount
)

var outcomeNames = [outcomeCount]string{"ok", "failed", "timed_out", "panicked", "skipped"}

func (o Outcome) String() string {
	if o < outcomeCount {
		return outcomeNames[o]
	}
	return "unknown"
}

// Outcomes lists every outcome in declaration order.
func Outcomes() []Outcome {
	out := make([]Outcome, outcomeCount)
	for i := range out {
		out[i] = Outcome(i)
	}
	return out
}

// Report describes one handler run.
type Report struct {
	Outcome Outcome
	// Err is the handler's error, ErrTimeout, or the ctx error of a
	// skipped run.
	Err error
	// Panic and Stack are set for OutcomePanicked.
	Panic any
	Stack []byte
	// Elapsed is the time spent inside the handler.
	Elapsed time.Duration
}

// PanicHandler observes recovered panics. subject is the value passed to
// Run.
type PanicHandler func(subject, value any, stack []byte)

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each run. Zero disables the bound. Handlers only stop
// early if they watch ctx.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithPanicHandler sets the function told about recovered panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(r *Runner) {
		r.onPanic = h
	}
}

// Runner executes handlers and keeps a tally of their outcomes. It is safe
// for concurrent use.
type Runner struct {
	timeout time.Duration
	onPanic PanicHandler

	counts [outcomeCount]atomic.Uint64
	busyNs atomic.Int64
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calls fn once and records the outcome.
func (r *Runner) Run(ctx context.Context, subject any, fn func(context.Context) error) Report {
	rep := r.run(ctx, subject, fn)
	r.counts[rep.Outcome].Add(1)
	r.busyNs.Add(int64(rep.Elapsed))
	return rep
}

func (r *Runner) run(ctx context.Context, subject any, fn func(context.Context) error) (rep Report) {
	if err := ctx.Err(); err != nil {
		return Report{Outcome: OutcomeSkipped, Err: err}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if v := recover(); v != nil {
			stack := debug.Stack()
			r.reportPanic(subject, v, stack)
			rep = Report{Outcome: OutcomePanicked, Panic: v, Stack: stack}
		}
		rep.Elapsed = elapsed
	}()

	err := fn(ctx)
	if r.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if err == nil {
			err = ErrTimeout
		}
		return Report{Outcome: OutcomeTimedOut, Err: err}
	}
	if err != nil {
		return Report{Outcome: OutcomeFailed, Err: err}
	}
	return Report{Outcome: OutcomeOK}
}

func (r *Runner) reportPanic(subject, value any, stack []byte) {
	if r.onPanic == nil {
		return
	}
	defer func() { _ = recover() }()
	r.onPanic(subject, value, stack)
}

// Tally is a snapshot of a runner's counters.
type Tally struct {
	counts [outcomeCount]uint64
	// Busy is the total time spent inside handlers.
	Busy time.Duration
}

// Count returns the number of runs with outcome o.
func (t Tally) Count(o Outcome) uint64 {
	if o >= outcomeCount {
		return 0
	}
	return t.counts[o]
}

// Runs returns the number of Run calls.
func (t Tally) Runs() uint64 {
	var n uint64
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Tally returns a snapshot of the counters.
func (r *Runner) Tally() Tally {
	var t Tally
	for i := range r.counts {
		t.counts[i] = r.counts[i].Load()
	}
	t.Busy = time.Duration(r.busyNs.Load())
	return t
}

// ResetTally zeroes the counters.
func (r *Runner) ResetTally() {
	for i := range r.counts {
		r.counts[i].Store(0)
	}
	r.busyNs.Store(0)
}
