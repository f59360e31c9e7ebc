// Package workspace guards and prepares the output root of a run.
//
// Every destructive operation is preceded by Evaluate with the safety checks: the target is
// never the source, never nested with it in either direction, and never a system-critical
// path. Directories the tool created carry a marker file; a populated target without the
// marker requires confirmation before it is cleaned.
//
// SafeRemove deletes a tree without following symbolic links: a link inside the target is
// removed as a link and whatever it points at is left alone.
package workspace
