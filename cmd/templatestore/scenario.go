package main

import (
	"context"
	"fmt"
	"io"

	"github.com/vango-dev/templatestore/pkg/reactive"
	"github.com/vango-dev/templatestore/pkg/store"
)

const (
	propExpanded = "tvguide->expanded"
	propSelected = "tvguide->selected"
)

// card is a data context identified by its _id.
type card struct {
	ID    string
	Title string
}

func (c card) StoreID() string { return c.ID }

// scenario wires consumers for a few cards and drives them with a scripted
// producer, printing every re-run.
type scenario struct {
	out   io.Writer
	st    *store.Store
	sched *reactive.Scheduler
	cards []card

	effects []*reactive.Effect
}

func newScenario(out io.Writer, st *store.Store, sched *reactive.Scheduler) *scenario {
	return &scenario{
		out:   out,
		st:    st,
		sched: sched,
		cards: []card{
			{ID: "a1", Title: "Morning News"},
			{ID: "b2", Title: "Late Movie"},
		},
	}
}

// mount creates one consumer per card plus a session-wide consumer.
func (s *scenario) mount(ctx context.Context) {
	for _, c := range s.cards {
		c := c
		e := reactive.NewEffect(ctx, s.sched, func(ctx context.Context) reactive.Cleanup {
			expanded, _ := store.GetAs[bool](ctx, s.st, c, propExpanded)
			fmt.Fprintf(s.out, "[%s] %q expanded=%v\n", c.ID, c.Title, expanded)
			return nil
		}, reactive.EffectName("card-"+c.ID))
		s.effects = append(s.effects, e)
	}

	e := reactive.NewEffect(ctx, s.sched, func(ctx context.Context) reactive.Cleanup {
		selected := s.st.Get(ctx, nil, propSelected)
		fmt.Fprintf(s.out, "[session] selected=%v\n", selected)
		return nil
	}, reactive.EffectName("session"))
	s.effects = append(s.effects, e)
}

// step prints a heading, runs fn and flushes deferred re-runs.
func (s *scenario) step(title string, fn func()) {
	fmt.Fprintf(s.out, "\n-- %s\n", title)
	fn()
	if s.sched.Mode() == reactive.Deferred {
		s.sched.Flush()
	}
}

// run executes the scripted producer.
func (s *scenario) run(ctx context.Context) {
	a, b := s.cards[0], s.cards[1]

	s.step("mount consumers", func() { s.mount(ctx) })

	s.step("expand card a1 (only a1 re-runs)", func() {
		s.st.Set(ctx, a, propExpanded, true)
	})
	s.step("expand card a1 again (no change, nothing re-runs)", func() {
		s.st.Set(ctx, a, propExpanded, true)
	})
	s.step("force re-run of card b2", func() {
		s.st.Set(ctx, b, propExpanded, store.Rerun)
	})
	s.step("select a broadcast session-wide", func() {
		s.st.Set(ctx, nil, propSelected, map[string]any{"card": a.ID, "slot": 20})
	})
	s.step("select the same broadcast (deep-equal, nothing re-runs)", func() {
		s.st.Set(ctx, nil, propSelected, map[string]any{"card": a.ID, "slot": 20})
	})
	s.step("expand card b2 silently", func() {
		s.st.Set(ctx, b, propExpanded, true, store.NonReactive())
	})
	s.step("batch: collapse both cards", func() {
		s.sched.Batch(func() {
			s.st.Set(ctx, a, propExpanded, false)
			s.st.Set(ctx, b, propExpanded, false)
		})
	})
	s.step("unset the selection reactively", func() {
		s.st.Unset(ctx, nil, propSelected, store.Reactive(true))
	})
	s.step("unset every expanded flag silently", func() {
		n := s.st.UnsetAll(ctx, propExpanded)
		fmt.Fprintf(s.out, "removed %d keys\n", n)
	})
}

// seed stores a starting value for every key the consumers read.
func (s *scenario) seed(ctx context.Context) {
	for _, c := range s.cards {
		s.st.Set(ctx, c, propExpanded, false)
	}
	s.st.Set(ctx, nil, propSelected, map[string]any{"card": s.cards[0].ID, "slot": 0})
	if s.sched.Mode() == reactive.Deferred {
		s.sched.Flush()
	}
}

// dispose stops all consumers.
func (s *scenario) dispose() {
	for _, e := range s.effects {
		e.Dispose()
	}
	s.effects = nil
}
