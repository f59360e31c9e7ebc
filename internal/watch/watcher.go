package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/metrics"
	"git.home.luguber.info/inful/docstage/internal/notify"
	"git.home.luguber.info/inful/docstage/internal/pipeline"
)

// Options configure a watch session.
type Options struct {
	Source     string
	OutputRoot string
	Run        pipeline.Options

	Debounce DebouncerConfig
	// Resync triggers a run on a fixed interval even without filesystem events; zero disables it.
	Resync time.Duration

	// MetricsAddr, when set, serves /metrics from Registry.
	MetricsAddr string
	Registry    *prom.Registry
	Recorder    metrics.Recorder

	// Publisher receives an event after every successful run. Watch closes it on return.
	Publisher notify.Publisher
}

type processFunc func(context.Context, *pipeline.RunContext) (*pipeline.Result, error)

// Watcher rebuilds the output root whenever the source tree changes.
type Watcher struct {
	opts      Options
	source    string
	output    string
	debouncer *Debouncer
	process   processFunc

	mu         sync.Mutex
	lastRun    *pipeline.Result
	listenAddr string
}

// New validates opts and prepares a watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Source == "" || opts.OutputRoot == "" {
		return nil, errors.ValidationError("source and output root are required").Build()
	}
	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve source").Build()
	}
	output, err := filepath.Abs(opts.OutputRoot)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve output root").Build()
	}
	d, err := NewDebouncer(opts.Debounce)
	if err != nil {
		return nil, err
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.Discard{}
	}
	return &Watcher{opts: opts, source: source, output: output, debouncer: d, process: pipeline.Process}, nil
}

// LastResult returns the result of the most recent run, or nil.
func (w *Watcher) LastResult() *pipeline.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}

// ListenAddr is the bound metrics address once the listener is up, or "".
func (w *Watcher) ListenAddr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listenAddr
}

// Run performs an initial run and then rebuilds on change until ctx is done. It returns early
// only when a run is aborted or refused for safety reasons, since no later change can fix that.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.opts.Publisher.Close()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to create filesystem watcher").Build()
	}
	defer func() { _ = fw.Close() }()
	w.addDirsRecursive(fw, w.source)

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go w.debouncer.Run(ctx)
	<-w.debouncer.Ready()

	stopScheduler, err := w.startScheduler()
	if err != nil {
		return err
	}
	defer stopScheduler()

	stopServer, err := w.startMetricsServer()
	if err != nil {
		return err
	}
	defer stopServer()

	fatal := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, fatal)
	}()

	w.debouncer.Request("initial")
	slog.Info("Watching for changes", logfields.Path(w.source), logfields.Target(w.output))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopping")
			return nil
		case err := <-fatal:
			return err
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) worker(ctx context.Context, fatal chan<- error) {
	for batch := range w.debouncer.Batches() {
		if ctx.Err() != nil {
			return
		}
		slog.Debug("Starting run",
			logfields.Reason(batch.LastReason),
			logfields.Count(batch.Count),
			slog.String("cause", batch.Cause))

		if err := w.runOnce(ctx); err != nil {
			select {
			case fatal <- err:
			default:
			}
			return
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) error {
	rc := pipeline.NewRunContext(w.source, w.output, w.opts.Run)
	rc.Recorder = w.opts.Recorder

	res, err := w.process(ctx, rc)
	if res != nil {
		w.mu.Lock()
		w.lastRun = res
		w.mu.Unlock()
	}
	switch {
	case err == nil:
		w.publish(ctx, res)
		return nil
	case ctx.Err() != nil:
		return nil
	case errors.HasCategory(err, errors.CategoryAborted), errors.HasCategory(err, errors.CategorySafety):
		return err
	default:
		slog.Error("Run failed; waiting for the next change", logfields.RunID(rc.ID), logfields.Error(err))
		return nil
	}
}

func (w *Watcher) publish(ctx context.Context, res *pipeline.Result) {
	if res == nil {
		return
	}
	ev := notify.Event{
		RunID:      res.RunID,
		Status:     string(res.Status),
		Source:     w.source,
		OutputRoot: w.output,
		Documents:  res.Documents,
		Warnings:   res.Warnings,
		DurationMS: res.Duration.Milliseconds(),
		Timestamp:  res.EndTime.UTC(),
	}
	if res.Manifest != nil {
		if h, err := res.Manifest.Hash(); err == nil {
			ev.ManifestHash = h
		}
	}
	if err := w.opts.Publisher.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish run event", logfields.RunID(res.RunID), logfields.Error(err))
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), logfields.Event(ev.Op.String()))
	w.debouncer.Request(ev.Op.String())
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != w.source && (w.ignored(p) || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			slog.Warn("Failed to watch directory", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// ignored reports paths whose changes never trigger a run.
func (w *Watcher) ignored(p string) bool {
	if p == w.output || strings.HasPrefix(p, w.output+string(filepath.Separator)) {
		return true
	}
	return IgnoredName(filepath.Base(p))
}

// IgnoredName reports dotfiles and editor temp or swap files.
func IgnoredName(base string) bool {
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}

func (w *Watcher) startScheduler() (func(), error) {
	if w.opts.Resync <= 0 {
		return func() {}, nil
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.Resync),
		gocron.NewTask(w.debouncer.Request, "resync"),
		gocron.WithName("resync"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to schedule resync").
			WithContext("interval", w.opts.Resync.String()).
			Build()
	}
	s.Start()
	slog.Info("Periodic resync enabled", slog.Duration("interval", w.opts.Resync))

	return func() {
		if err := s.Shutdown(); err != nil {
			slog.Warn("Scheduler shutdown error", logfields.Error(err))
		}
	}, nil
}

func (w *Watcher) startMetricsServer() (func(), error) {
	if w.opts.MetricsAddr == "" {
		return func() {}, nil
	}
	ln, err := net.Listen("tcp", w.opts.MetricsAddr)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to listen for metrics").
			WithContext("addr", w.opts.MetricsAddr).
			Build()
	}

	srv := &http.Server{Handler: metrics.NewServeMux(w.opts.Registry), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server error", logfields.Error(err))
		}
	}()
	w.mu.Lock()
	w.listenAddr = ln.Addr().String()
	w.mu.Unlock()
	slog.Info("Metrics listening", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("Metrics server shutdown error", logfields.Error(err))
		}
	}, nil
}
