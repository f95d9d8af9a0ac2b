// Package scheduler decides which entry is presented, which entries wait, and
// when the presentation surface rolls back to the host UI.
//
// All Scheduler methods mutate state and must run on the dispatcher's
// execution context. Kit wraps a Scheduler for callers on other goroutines:
// mutations are posted onto the dispatcher and queries read an atomically
// published Snapshot.
//
// At most one entry is active at a time. Replacing the active entry is always
// modelled as an exit of the old entry followed by activation of the new one.
// Exit animations are performed by the Surface, which reports back through a
// completion; that completion is the only point at which the scheduler resumes
// after handing work to the surface.
package scheduler
