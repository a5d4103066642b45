// Package reactive provides the dependency-tracking primitives that the
// template store builds on.
//
// A Dependency is a per-key tracker: computations register themselves with
// Depend while they run, and Changed schedules every registered computation
// to re-run and clears the registrations. Re-runs register again, so each
// notification round starts from an empty set.
//
// The currently running computation is passed explicitly through a
// context.Context:
//
//	sched := reactive.NewScheduler(reactive.Immediate)
//	reactive.NewEffect(ctx, sched, func(ctx context.Context) reactive.Cleanup {
//	    title := st.Get(ctx, doc, "editor->title")
//	    fmt.Println("title is", title)
//	    return nil
//	})
//
// Effects are run by a Scheduler. In Immediate mode a notification re-runs
// effects before Changed returns; in Deferred mode they queue until Flush.
package reactive
