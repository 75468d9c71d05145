// Package simulator implements the basal reconciliation engine for the
// Tandem pump family.
//
// The pump reports state changes, not intervals. A basal segment's
// duration is only known once the next segment starts, temp basals arrive
// as a start/stop bracket around the scheduled segments they override, and
// midnight is marked by a synthetic new-day event. The Simulator consumes
// decoded records one at a time, keeps the single open basal segment
// pending, and emits finalized canonical records once their duration is
// resolved.
//
// # State
//
// The engine's only long-lived state is:
//   - the pending basal segment (at most one)
//   - the last emitted basal, copied into the next record's Previous
//   - an armed temp-basal bracket (a start not yet bound to a segment)
//   - the pending suspend context for the next resume
//
// Temp-basal brackets move through explicit phases; see Phase for the
// transition table.
//
// # Determinism
//
// Every operation is a synchronous function of the current state and one
// input. There is no I/O and no goroutine. One Simulator handles exactly
// one device session; it is not safe for concurrent use.
//
// # Data quality
//
// Irregularities are annotations, not errors:
//   - basal/unknown-duration: a plain basal was still open at FinalBasal
//   - tandem/basal/fabricated-from-new-day: a segment was split at midnight
//   - tandem/basal/temp-without-rate-change: a temp started without the
//     pump ever reporting a temp rate
//
// Only caller-programming mistakes are errors; see SequenceError.
package simulator
