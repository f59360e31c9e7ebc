// Package pipeline runs one docstage build: it turns a source tree into a normalized output
// tree plus manifest.json.
//
// Process is the only entry point. Stages run strictly in order and each one finishes before
// the next begins; only the per-file loop inside StageConvertFiles fans out. All run state
// travels in a RunContext, so concurrent runs over different trees do not interfere.
package pipeline
