// Package loop owns position estimation along a closed reference path.
//
// Responsibilities: building the reference loop and its arc-length
// table, matching noisy marker observations to path indices,
// disambiguating near-tied matches, accumulating lap progress, and
// enforcing exactly 0% at every lap start.
// Key types: ClosedPath, CandidateSet, TrackerState, Tracker, Result.
//
// Dependency rule: loop depends only on config and gonum. No I/O,
// logging or SQL is allowed in this package; diagnostics are returned
// to the caller as Result fields.
//
// A ClosedPath is read-only after construction and may be shared by any
// number of goroutines. A TrackerState belongs to a single recording and
// must be advanced one frame at a time in capture order.
package loop
