package reactive

import (
	"log/slog"
	"sync"
)

// Mode selects when a Scheduler re-runs notified effects.
type Mode int

const (
	// Immediate re-runs effects before the notifying call returns,
	// unless a Batch is open.
	Immediate Mode = iota

	// Deferred queues effects until Flush is called.
	Deferred
)

// String returns the mode name used in configuration files.
func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "immediate":
		return Immediate, true
	case "deferred":
		return Deferred, true
	default:
		return Immediate, false
	}
}

// DefaultRunBudget is the default maximum number of effect runs per Flush.
// It stops effects that keep re-triggering each other from spinning forever.
const DefaultRunBudget = 1000

// Scheduler queues and runs dirty effects.
type Scheduler struct {
	mode   Mode
	budget int
	logger *slog.Logger

	mu         sync.Mutex
	pending    []*Effect
	batchDepth int
	flushing   bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunBudget sets the maximum number of effect runs per Flush.
// Effects past the budget stay queued for the next Flush. In Immediate
// mode that is the next notification of any queued effect. Zero disables
// the limit.
func WithRunBudget(n int) SchedulerOption {
	return func(s *Scheduler) {
		s.budget = n
	}
}

// WithSchedulerLogger sets the logger used for budget warnings and
// debug output. Default: slog.Default().
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler in the given mode.
func NewScheduler(mode Mode, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		mode:   mode,
		budget: DefaultRunBudget,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the scheduler's mode.
func (s *Scheduler) Mode() Mode {
	return s.mode
}

// Pending returns the number of queued effects.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// schedule queues an effect and, in Immediate mode outside a batch or
// flush, drains the queue right away.
func (s *Scheduler) schedule(e *Effect) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	drain := s.mode == Immediate && s.batchDepth == 0 && !s.flushing
	s.mu.Unlock()

	if drain {
		s.Flush()
	}
}

// drainIdle flushes queued effects in Immediate mode when no batch or
// flush is open.
func (s *Scheduler) drainIdle() {
	s.mu.Lock()
	drain := s.mode == Immediate && s.batchDepth == 0 && !s.flushing && len(s.pending) > 0
	s.mu.Unlock()

	if drain {
		s.Flush()
	}
}

// runNow runs an effect outside the queue, used for the first run of a new
// effect. Effects it notifies are drained afterwards in Immediate mode.
func (s *Scheduler) runNow(e *Effect) {
	s.mu.Lock()
	nested := s.flushing
	s.flushing = true
	s.mu.Unlock()

	func() {
		if !nested {
			defer func() {
				s.mu.Lock()
				s.flushing = false
				s.mu.Unlock()
			}()
		}
		e.run()
	}()

	if nested {
		return
	}

	s.drainIdle()
}

// Flush runs queued effects until the queue is empty or the run budget is
// spent. Effects queued while flushing are run in the same Flush.
// A Flush that starts while another is in progress returns 0; the active
// flush drains the queue. Returns the number of effects run.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return 0
	}
	s.flushing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	ran := 0
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return ran
		}
		if s.budget > 0 && ran >= s.budget {
			left := len(s.pending)
			s.mu.Unlock()
			s.logger.Warn("reactive: effect run budget exceeded, deferring remaining effects",
				"budget", s.budget,
				"deferred", left,
			)
			return ran
		}
		e := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.mu.Unlock()

		if !e.pending.Load() || e.disposed.Load() {
			continue
		}
		e.run()
		ran++
	}
}

// Batch runs fn and holds back Immediate re-runs until the outermost batch
// returns, so an effect notified several times inside fn runs once.
// Batches nest. In Deferred mode Batch only groups; Flush is still manual.
func (s *Scheduler) Batch(fn func()) {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batchDepth--
		drain := s.batchDepth == 0 && s.mode == Immediate && !s.flushing
		s.mu.Unlock()
		if drain {
			s.Flush()
		}
	}()

	fn()
}
