package reactive

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", Immediate, true},
		{"immediate", Immediate, true},
		{"deferred", Deferred, true},
		{"eager", Immediate, false},
	}

	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if Deferred.String() != "deferred" {
		t.Errorf("Deferred.String() = %q", Deferred.String())
	}
}

func TestBatchCoalescesReruns(t *testing.T) {
	sched := NewScheduler(Immediate)
	a := NewDependency()
	b := NewDependency()

	e := NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		a.Depend(ctx)
		b.Depend(ctx)
		return nil
	})

	sched.Batch(func() {
		a.Changed()
		b.Changed()
		if e.Runs() != 1 {
			t.Errorf("effect should not run inside a batch, got %d runs", e.Runs())
		}
	})

	if e.Runs() != 2 {
		t.Errorf("expected one re-run after batch, got %d runs", e.Runs())
	}
}

func TestNestedBatch(t *testing.T) {
	sched := NewScheduler(Immediate)
	d := NewDependency()

	e := NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		d.Depend(ctx)
		return nil
	})

	sched.Batch(func() {
		sched.Batch(func() {
			d.Changed()
		})
		if e.Runs() != 1 {
			t.Errorf("inner batch should not flush, got %d runs", e.Runs())
		}
	})

	if e.Runs() != 2 {
		t.Errorf("outer batch should flush, got %d runs", e.Runs())
	}
}

func TestRunBudgetDefersRunawayEffects(t *testing.T) {
	sched := NewScheduler(Deferred, WithRunBudget(3))
	d := NewDependency()

	// Each run re-notifies its own dependency, so it never settles.
	e := NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		d.Depend(ctx)
		d.Changed()
		return nil
	})

	if n := sched.Flush(); n != 3 {
		t.Errorf("expected Flush to stop at budget 3, ran %d", n)
	}
	if sched.Pending() != 1 {
		t.Errorf("expected runaway effect to stay queued, got %d pending", sched.Pending())
	}
	e.Dispose()
	sched.Flush()
	if sched.Pending() != 0 {
		t.Errorf("disposed effect should drain, got %d pending", sched.Pending())
	}
}

func TestEffectCascadeImmediate(t *testing.T) {
	sched := NewScheduler(Immediate)
	source := NewDependency()
	derived := NewDependency()

	NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		if source.Depend(ctx) {
			derived.Changed()
		}
		return nil
	})
	consumer := NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		derived.Depend(ctx)
		return nil
	})

	source.Changed()
	if consumer.Runs() != 2 {
		t.Errorf("cascaded change should re-run consumer, got %d runs", consumer.Runs())
	}
}

func TestRunBudgetImmediateDrainsOnNextNotify(t *testing.T) {
	sched := NewScheduler(Immediate, WithRunBudget(2))
	key := NewDependency()
	self := NewDependency()

	runs := 0
	e := NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		runs++
		key.Depend(ctx)
		self.Depend(ctx)
		if runs <= 3 {
			self.Changed()
		}
		return nil
	})

	if e.Runs() != 3 || sched.Pending() != 1 {
		t.Fatalf("expected budget to leave the effect queued after 3 runs, got runs=%d pending=%d",
			e.Runs(), sched.Pending())
	}

	key.Changed()
	if e.Runs() != 4 {
		t.Errorf("queued effect should re-run when notified again, got %d runs", e.Runs())
	}
	if sched.Pending() != 0 {
		t.Errorf("queue should be empty, got %d pending", sched.Pending())
	}

	// Registrations were restored by the re-run.
	key.Changed()
	if e.Runs() != 5 {
		t.Errorf("effect should keep tracking after recovery, got %d runs", e.Runs())
	}
}

func TestSchedulerLoggerReceivesBudgetWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sched := NewScheduler(Deferred, WithRunBudget(1), WithSchedulerLogger(logger))
	d := NewDependency()

	e := NewEffect(context.Background(), sched, func(ctx context.Context) Cleanup {
		d.Depend(ctx)
		d.Changed()
		return nil
	})
	defer e.Dispose()

	sched.Flush()
	out := buf.String()
	if !strings.Contains(out, "budget exceeded") || !strings.Contains(out, "budget=1") {
		t.Errorf("budget warning not logged: %q", out)
	}

	// A nil logger keeps the current one.
	if NewScheduler(Immediate, WithSchedulerLogger(nil)).logger == nil {
		t.Error("nil logger should be ignored")
	}
}
