// Package session runs the lap tracker over whole recordings.
//
// A recording is an ordered slice of frames from one capture. The runner
// owns one TrackerState per recording, splits the per-frame results into
// laps and summarises each lap. Several recordings may be analysed in
// parallel against the same reference path; they never share state.
//
// Dependency rule: session imports loop, monitoring and timeutil. It does
// no file or database I/O.
package session
