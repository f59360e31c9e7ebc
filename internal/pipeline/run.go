package pipeline

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/metrics"
	"git.home.luguber.info/inful/docstage/internal/refs"
	"git.home.luguber.info/inful/docstage/internal/registry"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

// Stage names one phase of a run.
type Stage string

const (
	StagePreflight       Stage = "preflight"
	StageConfigCascade   Stage = "config_cascade"
	StageClean           Stage = "clean"
	StageCopyAssets      Stage = "copy_assets"
	StageDiscover        Stage = "discover"
	StageConvertFiles    Stage = "convert_files"
	StageFixupReferences Stage = "fixup_references"
	StageWriteManifest   Stage = "write_manifest"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StagePreflight,
	StageConfigCascade,
	StageClean,
	StageCopyAssets,
	StageDiscover,
	StageConvertFiles,
	StageFixupReferences,
	StageWriteManifest,
}

// Options are the caller's switches for one run.
type Options struct {
	// AssumeYes answers the ownership confirmation with yes.
	AssumeYes bool
	// Force replaces an unmanaged output root without asking.
	Force bool
	// DryRun computes everything and mutates nothing.
	DryRun bool
	// Concurrency limits the per-file loop; zero means GOMAXPROCS.
	Concurrency int
	// Interactive allows prompting on Stdin/Stdout.
	Interactive bool
	// Prompt overrides the default terminal prompt.
	Prompt workspace.Prompt
	// Links are convenience symlinks created after the clean.
	Links []workspace.Link
	// Precedence decides duplicate component names.
	Precedence registry.Precedence
}

// RunContext carries everything one run needs.
type RunContext struct {
	ID         string
	Source     string
	OutputRoot string
	Options    Options
	Recorder   metrics.Recorder
	Stdin      io.Reader
	Stdout     io.Writer
}

// NewRunContext creates a run context with a fresh ID and process stdio.
func NewRunContext(source, outputRoot string, opts Options) *RunContext {
	return &RunContext{
		ID:         uuid.NewString(),
		Source:     source,
		OutputRoot: outputRoot,
		Options:    opts,
		Recorder:   metrics.NoopRecorder{},
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
	}
}

func (rc *RunContext) withDefaults() *RunContext {
	out := *rc
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Recorder == nil {
		out.Recorder = metrics.NoopRecorder{}
	}
	if out.Options.Concurrency <= 0 {
		out.Options.Concurrency = runtime.GOMAXPROCS(0)
	}
	if out.Options.Precedence == "" {
		out.Options.Precedence = registry.PrecedenceLastWins
	}
	if out.Stdin == nil {
		out.Stdin = os.Stdin
	}
	if out.Stdout == nil {
		out.Stdout = io.Discard
	}
	return &out
}

// Status represents the outcome of a run.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusWarning  Status = "warning"
	StatusFailed   Status = "failed"
	StatusAborted  Status = "aborted"
	StatusCanceled Status = "canceled"
)

// Result describes a finished run.
type Result struct {
	RunID  string
	Status Status
	// Manifest is what was (or, in a dry run, would have been) written.
	Manifest *manifest.Manifest
	// Conversions maps changed source paths to their final paths.
	Conversions refs.ConversionMap
	Partials    refs.Stats

	Documents        int
	FilesCopied      int
	AssetsCopied     int
	ComponentsCopied int
	Skipped          int
	Warnings         int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
