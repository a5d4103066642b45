package store

import (
	"context"
	"testing"

	"github.com/vango-dev/templatestore/pkg/reactive"
)

func TestEffectObservesNewValue(t *testing.T) {
	st := New()
	sched := reactive.NewScheduler(reactive.Immediate)
	ctx := context.Background()

	var seen []any
	reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		seen = append(seen, st.Get(ctx, "card1", "tvguide->expanded"))
		return nil
	})

	st.Set(ctx, "card1", "tvguide->expanded", true)
	st.Set(ctx, "card1", "tvguide->expanded", true)
	st.Set(ctx, "card1", "tvguide->expanded", false)

	want := []any{nil, true, false}
	if len(seen) != len(want) {
		t.Fatalf("expected %d runs, got %d (%v)", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("run %d saw %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestEffectDeferredFlush(t *testing.T) {
	st := New()
	sched := reactive.NewScheduler(reactive.Deferred)
	ctx := context.Background()

	var last any
	e := reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		last = st.Get(ctx, nil, "counter->value")
		return nil
	})

	st.Set(ctx, nil, "counter->value", 1)
	st.Set(ctx, nil, "counter->value", 2)
	if e.Runs() != 1 {
		t.Errorf("deferred effect ran before Flush: %d runs", e.Runs())
	}

	sched.Flush()
	if e.Runs() != 2 {
		t.Errorf("expected one coalesced re-run, got %d runs", e.Runs())
	}
	if last != 2 {
		t.Errorf("re-run should see the latest value, got %v", last)
	}
}

func TestReactiveUnsetEffectSeesAbsence(t *testing.T) {
	st := New()
	sched := reactive.NewScheduler(reactive.Immediate)
	ctx := context.Background()

	st.Set(ctx, "id", "p", "v")

	var present []bool
	reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		_, ok := st.Lookup(ctx, "id", "p")
		present = append(present, ok)
		return nil
	})

	st.Unset(ctx, "id", "p", Reactive(true))
	if len(present) != 2 || present[1] {
		t.Fatalf("expected re-run to see the key as absent, got %v", present)
	}

	// The re-run registered on a fresh tracker, so re-creating the key
	// reaches it.
	st.Set(ctx, "id", "p", "back")
	if len(present) != 3 || !present[2] {
		t.Errorf("expected re-run after re-creation, got %v", present)
	}
}

func TestEffectsOnlyRerunForTheirKey(t *testing.T) {
	st := New()
	sched := reactive.NewScheduler(reactive.Immediate)
	ctx := context.Background()

	title := reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		st.Get(ctx, "doc", "editor->title")
		return nil
	})
	body := reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		st.Get(ctx, "doc", "editor->body")
		return nil
	})

	st.Set(ctx, "doc", "editor->title", "Draft")

	if title.Runs() != 2 {
		t.Errorf("title effect should re-run, got %d runs", title.Runs())
	}
	if body.Runs() != 1 {
		t.Errorf("body effect should not re-run, got %d runs", body.Runs())
	}
}

func TestBatchedSets(t *testing.T) {
	st := New()
	sched := reactive.NewScheduler(reactive.Immediate)
	ctx := context.Background()

	e := reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		st.Get(ctx, "form", "first")
		st.Get(ctx, "form", "last")
		return nil
	})

	sched.Batch(func() {
		st.Set(ctx, "form", "first", "Ada")
		st.Set(ctx, "form", "last", "Lovelace")
	})

	if e.Runs() != 2 {
		t.Errorf("batched sets should cause one re-run, got %d runs", e.Runs())
	}
}

func TestEffectPastRunBudgetSeesLaterSet(t *testing.T) {
	st := New()
	sched := reactive.NewScheduler(reactive.Immediate, reactive.WithRunBudget(2))
	ctx := context.Background()
	loop := reactive.NewDependency()

	var seen []any
	reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
		seen = append(seen, st.Get(ctx, "card", "p"))
		loop.Depend(ctx)
		if len(seen) <= 3 {
			loop.Changed()
		}
		return nil
	})

	st.Set(ctx, "card", "p", "new")

	if len(seen) != 4 || seen[3] != "new" {
		t.Errorf("effect should re-run with the new value, saw %v", seen)
	}
	if n := st.DependentCount("card", "p"); n != 1 {
		t.Errorf("dependents = %d, want 1", n)
	}
}
