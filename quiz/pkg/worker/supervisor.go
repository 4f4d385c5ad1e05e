// Package worker runs answer evaluations on a background goroutine and
// supervises it: one request in flight, newest request wins, a timeout per
// call and transparent restarts after crashes.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryantinsley/flashcards/quiz/pkg/evaluation"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxCrashes = 3
)

var (
	// ErrTimeout marks an outcome whose call outlived the timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrCancelled is returned for requests dropped by Cancel.
	ErrCancelled = errors.New("evaluation cancelled")
	// ErrSuperseded marks a request replaced by a newer submission before
	// its result arrived.
	ErrSuperseded = errors.New("evaluation superseded by a newer request")
	// ErrWorkerCrashed is surfaced once restarts keep failing immediately.
	ErrWorkerCrashed = errors.New("evaluation worker keeps crashing")
	// ErrStopped is returned for submissions after Close.
	ErrStopped = errors.New("evaluation worker stopped")
)

// Evaluator performs one evaluation call and returns the raw reply.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) (string, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, req evaluation.Request) (string, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, req evaluation.Request) (string, error) {
	return f(ctx, req)
}

// State is the supervisor's view of its current background goroutine.
type State int

const (
	StateIdle State = iota
	StateBusy
	StateCrashed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateCrashed:
		return "crashed"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Result is what a background goroutine posts after one call.
type Result struct {
	RequestID uint64
	Raw       string
	Err       error
}

// Event is a message from a background goroutine. Exited is set when the
// goroutine has terminated; Result is meaningful otherwise.
type Event struct {
	Generation int
	Result     Result
	Exited     bool
}

type flight struct {
	req     evaluation.Request
	started time.Time
}

// Supervisor owns the evaluation goroutine. Its methods are meant to be
// called from a single goroutine, normally the UI loop, which must also
// feed every value received from Events back through Handle.
type Supervisor struct {
	eval       Evaluator
	timeout    time.Duration
	maxCrashes int
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	gen      int
	work     chan evaluation.Request // nil when no goroutine is running
	state    State
	inflight *flight             // request inside the current goroutine
	queued   *evaluation.Request // waits for the goroutine to free up
	active   uint64              // the only request whose result is applied

	restarts int
	crashes  int // consecutive crashes since the last completed call
	closed   bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTimeout sets how long a call may run before it times out.
func WithTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxCrashes sets how many consecutive crashes are absorbed before the
// active request fails with ErrWorkerCrashed.
func WithMaxCrashes(n int) Option {
	return func(s *Supervisor) {
		if n >= 0 {
			s.maxCrashes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a supervisor for eval. No goroutine runs until Start or the
// first Submit.
func New(eval Evaluator, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		eval:       eval,
		timeout:    DefaultTimeout,
		maxCrashes: DefaultMaxCrashes,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan Event, 16),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the channel every background goroutine reports on. It is
// closed after Close once all goroutines have exited.
func (s *Supervisor) Events() <-chan Event { return s.events }

// State returns the current state.
func (s *Supervisor) State() State { return s.state }

// Restarts returns how many times a crashed goroutine has been replaced.
func (s *Supervisor) Restarts() int { return s.restarts }

// Generation identifies the current background goroutine.
func (s *Supervisor) Generation() int { return s.gen }

// Active returns the id of the request whose result will be applied, or 0.
func (s *Supervisor) Active() uint64 { return s.active }

// Timeout returns the per-call timeout.
func (s *Supervisor) Timeout() time.Duration { return s.timeout }

// Start spawns the background goroutine ahead of the first submission.
func (s *Supervisor) Start() {
	if s.closed || s.work != nil {
		return
	}
	s.spawn()
}

// Submit makes req the active request and returns its pending outcome.
//
// If the goroutine is busy the request waits in a single-slot queue,
// replacing anything already queued. Whatever was active before is
// superseded and its result will be dropped.
func (s *Supervisor) Submit(req evaluation.Request, now time.Time) evaluation.Outcome {
	if s.closed {
		return evaluation.Failed(req, ErrStopped)
	}

	if s.active != 0 {
		s.logger.Debug("superseding evaluation",
			zap.Uint64("previous", s.active),
			zap.Uint64("request", req.ID))
	}
	s.active = req.ID

	if s.work == nil {
		s.spawn()
	}
	if s.inflight == nil {
		s.queued = nil
		s.dispatch(req, now)
	} else {
		s.queued = &req
	}
	return evaluation.Pending(req)
}

// Cancel drops the active request. A goroutine still working on it is
// retired so the next submission starts at once. It returns the id that
// was cancelled.
func (s *Supervisor) Cancel() (uint64, bool) {
	if s.active == 0 {
		return 0, false
	}
	id := s.active
	s.active = 0
	s.queued = nil

	if s.inflight != nil {
		s.retire("cancelled")
		s.spawn()
	}
	s.logger.Info("evaluation cancelled", zap.Uint64("request", id))
	return id, true
}

// Handle applies an event read from Events. It returns the terminal outcome
// of the active request when the event settles it.
func (s *Supervisor) Handle(ev Event, now time.Time) (evaluation.Outcome, bool) {
	if s.closed {
		return evaluation.Outcome{}, false
	}
	if ev.Generation != s.gen {
		s.logger.Debug("discarding event from retired worker",
			zap.Int("generation", ev.Generation),
			zap.Uint64("request", ev.Result.RequestID),
			zap.Bool("exited", ev.Exited))
		return evaluation.Outcome{}, false
	}
	if ev.Exited {
		return s.crashed(now)
	}
	return s.finished(ev.Result, now)
}

// CheckTimeout times out the call in flight if it has run longer than the
// timeout at now. The goroutine running it is retired and any queued
// request starts on a fresh one.
func (s *Supervisor) CheckTimeout(now time.Time) (evaluation.Outcome, bool) {
	if s.inflight == nil || now.Sub(s.inflight.started) <= s.timeout {
		return evaluation.Outcome{}, false
	}

	req := s.inflight.req
	s.logger.Warn("evaluation timed out",
		zap.Uint64("request", req.ID),
		zap.Duration("timeout", s.timeout))

	s.retire("timed out")
	s.spawn()

	var out evaluation.Outcome
	applied := req.ID == s.active
	if applied {
		s.active = 0
		out = evaluation.TimedOut(req)
		out.Err = ErrTimeout
	}
	s.dispatchQueued(now)
	return out, applied
}

// Elapsed returns how long the active request has been running.
func (s *Supervisor) Elapsed(now time.Time) time.Duration {
	if s.inflight == nil || s.inflight.req.ID != s.active {
		return 0
	}
	return now.Sub(s.inflight.started)
}

// Close stops the supervisor. Calls in flight see their context cancelled.
// Events is closed once every goroutine has returned.
func (s *Supervisor) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	close(s.done)
	if s.work != nil {
		close(s.work)
		s.work = nil
	}
	s.inflight = nil
	s.queued = nil
	s.active = 0
	s.state = StateStopped

	go func() {
		s.wg.Wait()
		close(s.events)
	}()
}

func (s *Supervisor) finished(res Result, now time.Time) (evaluation.Outcome, bool) {
	if s.inflight == nil || s.inflight.req.ID != res.RequestID {
		s.logger.Warn("unexpected result from worker", zap.Uint64("request", res.RequestID))
		return evaluation.Outcome{}, false
	}

	req := s.inflight.req
	s.inflight = nil
	s.state = StateIdle
	s.crashes = 0

	var out evaluation.Outcome
	applied := req.ID == s.active
	if applied {
		s.active = 0
		out = s.settle(req, res)
	} else {
		s.logger.Debug("discarding stale result", zap.Uint64("request", req.ID))
	}
	s.dispatchQueued(now)
	return out, applied
}

func (s *Supervisor) settle(req evaluation.Request, res Result) evaluation.Outcome {
	if res.Err != nil {
		s.logger.Warn("evaluation failed", zap.Uint64("request", req.ID), zap.Error(res.Err))
		return evaluation.Failed(req, res.Err)
	}
	judgment, err := evaluation.ParseResponse(res.Raw)
	if err != nil {
		s.logger.Warn("unparseable evaluation",
			zap.Uint64("request", req.ID),
			zap.Error(err),
			zap.String("raw", res.Raw))
		return evaluation.Failed(req, err)
	}
	s.logger.Info("evaluation complete",
		zap.Uint64("request", req.ID),
		zap.Float64("score", judgment.CorrectnessScore))
	return evaluation.Succeeded(req, judgment)
}

func (s *Supervisor) crashed(now time.Time) (evaluation.Outcome, bool) {
	s.restarts++
	s.crashes++
	s.work = nil
	s.state = StateCrashed

	lost := s.inflight
	s.inflight = nil
	next := s.queued
	s.queued = nil
	if next == nil && lost != nil && lost.req.ID == s.active {
		next = &lost.req
	}

	s.logger.Warn("evaluation worker exited unexpectedly",
		zap.Int("generation", s.gen),
		zap.Int("restarts", s.restarts),
		zap.Int("consecutive", s.crashes))

	if next == nil {
		return evaluation.Outcome{}, false
	}
	if s.crashes > s.maxCrashes {
		s.active = 0
		s.logger.Error("giving up on evaluation after repeated crashes", zap.Uint64("request", next.ID))
		return evaluation.Failed(*next, ErrWorkerCrashed), true
	}

	s.spawn()
	s.dispatch(*next, now)
	return evaluation.Outcome{}, false
}

func (s *Supervisor) dispatchQueued(now time.Time) {
	if s.queued == nil || s.work == nil {
		return
	}
	req := *s.queued
	s.queued = nil
	s.dispatch(req, now)
}

func (s *Supervisor) dispatch(req evaluation.Request, now time.Time) {
	s.inflight = &flight{req: req, started: now}
	s.state = StateBusy
	s.work <- req
	s.logger.Debug("evaluation dispatched",
		zap.Uint64("request", req.ID),
		zap.Int("slot", req.Slot),
		zap.Int("generation", s.gen))
}

func (s *Supervisor) spawn() {
	s.gen++
	work := make(chan evaluation.Request, 1)
	s.work = work
	s.state = StateIdle

	s.wg.Add(1)
	go s.run(s.gen, work)
	s.logger.Debug("evaluation worker started", zap.Int("generation", s.gen))
}

// retire abandons the current goroutine. It finishes its call, posts a
// result that Handle drops, and exits.
func (s *Supervisor) retire(reason string) {
	if s.work != nil {
		close(s.work)
		s.work = nil
	}
	s.inflight = nil
	s.logger.Info("evaluation worker retired",
		zap.Int("generation", s.gen),
		zap.String("reason", reason))
}

func (s *Supervisor) run(gen int, work <-chan evaluation.Request) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("evaluation worker panicked", zap.Int("generation", gen), zap.Any("panic", r))
		}
		select {
		case s.events <- Event{Generation: gen, Exited: true}:
		case <-s.done:
		}
	}()

	for req := range work {
		ctx, cancel := context.WithTimeout(s.ctx, 2*s.timeout)
		raw, err := s.eval.Evaluate(ctx, req)
		cancel()

		select {
		case s.events <- Event{Generation: gen, Result: Result{RequestID: req.ID, Raw: raw, Err: err}}:
		case <-s.done:
			return
		}
	}
}
