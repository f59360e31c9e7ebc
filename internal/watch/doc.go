// Package watch reruns the pipeline whenever the source tree changes.
//
// Filesystem events from fsnotify and optional periodic resync ticks feed a Debouncer. A single
// worker consumes its batches, so runs never overlap and at most one follow-up waits behind the
// current run.
package watch
