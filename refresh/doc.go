// Package refresh schedules access-token renewal.
//
// # Scheduling model
//
// A [Scheduler] runs a function once after a delay and hands back a [Handle] that can cancel
// it. The session owns at most one live handle and always cancels the previous one before
// scheduling the next, so the renewal chain is a sequence of single-shot tasks rather than a
// ticker.
//
// [TimerScheduler] is backed by time.AfterFunc. [ManualScheduler] keeps tasks against a manual
// clock and runs them only when [ManualScheduler.Advance] passes their deadline, which makes
// renewal deterministic in tests and tools.
//
// # What this package must NOT do
//
//   - Decode tokens or talk to the network.
//   - Import goAuthClient, api, or session.
package refresh
