package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/docstage/internal/classify"
	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/metrics"
	"git.home.luguber.info/inful/docstage/internal/patterns"
	"git.home.luguber.info/inful/docstage/internal/refs"
	"git.home.luguber.info/inful/docstage/internal/registry"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

// processor holds the state shared between the stages of one run. Fields are written by
// exactly one stage and read-only afterwards.
type processor struct {
	rc  *RunContext
	res *Result

	source string
	out    string

	cascade  *config.Cascade
	master   config.MasterConfig
	exclude  *patterns.Matcher
	unlisted *patterns.Matcher
	hidden   *patterns.Matcher

	components *registry.Components
	css        []registry.Asset
	classifier *classify.Classifier

	mgr      *workspace.Manager
	docs     []manifest.Doc
	warnings atomic.Int64
}

// Process runs every stage against rc. It returns the result together with the first fatal
// error; a declined confirmation yields workspace.ErrAborted with nothing mutated.
func Process(ctx context.Context, rc *RunContext) (*Result, error) {
	rc = rc.withDefaults()
	p := &processor{
		rc:         rc,
		classifier: classify.New(),
		res: &Result{
			RunID:       rc.ID,
			StartTime:   time.Now(),
			Conversions: refs.ConversionMap{},
		},
	}

	slog.Info("Run started",
		logfields.RunID(rc.ID),
		logfields.Path(rc.Source),
		logfields.Target(rc.OutputRoot),
		slog.Bool("dry_run", rc.Options.DryRun))

	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StagePreflight, p.preflight},
		{StageConfigCascade, p.loadConfig},
		{StageClean, p.clean},
		{StageCopyAssets, p.copyAssets},
		{StageDiscover, p.discover},
		{StageConvertFiles, p.convertFiles},
		{StageFixupReferences, p.fixupReferences},
		{StageWriteManifest, p.writeManifest},
	}

	var err error
	for _, s := range steps {
		if err = p.runStage(ctx, s.stage, s.fn); err != nil {
			break
		}
	}
	p.finish(ctx, err)
	return p.res, err
}

func (p *processor) runStage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	name := string(stage)
	if err := ctx.Err(); err != nil {
		p.rc.Recorder.IncStageResult(name, metrics.ResultCanceled)
		return err
	}

	start := time.Now()
	before := p.warnings.Load()
	err := fn(ctx)
	elapsed := time.Since(start)
	p.rc.Recorder.ObserveStageDuration(name, elapsed)

	attrs := []any{
		logfields.RunID(p.rc.ID),
		logfields.Stage(name),
		logfields.DurationMS(float64(elapsed.Microseconds()) / 1000),
	}
	switch {
	case err == nil && p.warnings.Load() > before:
		p.rc.Recorder.IncStageResult(name, metrics.ResultWarning)
		slog.Info("Stage completed with warnings", append(attrs, logfields.Count(int(p.warnings.Load()-before)))...)
	case err == nil:
		p.rc.Recorder.IncStageResult(name, metrics.ResultSuccess)
		slog.Debug("Stage completed", attrs...)
	case stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded):
		p.rc.Recorder.IncStageResult(name, metrics.ResultCanceled)
		slog.Info("Stage canceled", attrs...)
	case errors.HasCategory(err, errors.CategoryAborted):
		p.rc.Recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		p.rc.Recorder.IncStageResult(name, metrics.ResultFatal)
		slog.Error("Stage failed", append(attrs, logfields.Error(err))...)
	}
	return err
}

func (p *processor) finish(ctx context.Context, err error) {
	p.res.EndTime = time.Now()
	p.res.Duration = p.res.EndTime.Sub(p.res.StartTime)
	p.res.Warnings = int(p.warnings.Load())

	var outcome metrics.RunOutcome
	switch {
	case err == nil && p.res.Warnings > 0:
		p.res.Status, outcome = StatusWarning, metrics.OutcomeWarning
	case err == nil:
		p.res.Status, outcome = StatusSuccess, metrics.OutcomeSuccess
	case errors.HasCategory(err, errors.CategoryAborted):
		p.res.Status, outcome = StatusAborted, metrics.OutcomeAborted
	case ctx.Err() != nil:
		p.res.Status, outcome = StatusCanceled, metrics.OutcomeCanceled
	default:
		p.res.Status, outcome = StatusFailed, metrics.OutcomeFailed
	}
	p.rc.Recorder.IncRunOutcome(outcome)
	p.rc.Recorder.ObserveRunDuration(p.res.Duration)

	slog.Info("Run finished",
		logfields.RunID(p.rc.ID),
		slog.String("status", string(p.res.Status)),
		slog.Int("documents", p.res.Documents),
		slog.Int("warnings", p.res.Warnings),
		logfields.DurationMS(float64(p.res.Duration.Microseconds())/1000))
}

// warn records a recoverable failure that the caller has not logged yet.
func (p *processor) warn(stage Stage, msg string, attrs ...any) {
	p.countWarning(stage)
	slog.Warn(msg, attrs...)
}

// countWarning records a recoverable failure already logged by a lower layer.
func (p *processor) countWarning(stage Stage) {
	p.warnings.Add(1)
	p.rc.Recorder.IncWarnings(string(stage))
}

func (p *processor) excluded(rel string) bool {
	return p.exclude.Matches(rel)
}
