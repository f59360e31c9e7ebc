package watch

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/metrics"
	"git.home.luguber.info/inful/docstage/internal/notify"
	"git.home.luguber.info/inful/docstage/internal/pipeline"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *recordingPublisher) snapshot() ([]notify.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...), p.closed
}

func newTestWatcher(t *testing.T, opts Options) (*Watcher, string) {
	t.Helper()
	src := t.TempDir()
	opts.Source = src
	opts.OutputRoot = filepath.Join(t.TempDir(), "out")
	if opts.Debounce == (DebouncerConfig{}) {
		opts.Debounce = DebouncerConfig{QuietWindow: 50 * time.Millisecond, MaxDelay: time.Second}
	}
	w, err := New(opts)
	require.NoError(t, err)
	return w, src
}

func successfulRun(calls *atomic.Int32) processFunc {
	return func(_ context.Context, rc *pipeline.RunContext) (*pipeline.Result, error) {
		calls.Add(1)
		return &pipeline.Result{
			RunID:     rc.ID,
			Status:    pipeline.StatusSuccess,
			Documents: 1,
			Manifest:  &manifest.Manifest{Docs: []manifest.Doc{{Slug: "a", Source: "a.md"}}},
			EndTime:   time.Now(),
		}, nil
	}
}

func runWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestNew_RequiresPaths(t *testing.T) {
	_, err := New(Options{Source: "docs"})
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestWatcher_RunsOnStartAndOnChange(t *testing.T) {
	pub := &recordingPublisher{}
	w, src := newTestWatcher(t, Options{Publisher: pub})
	var calls atomic.Int32
	w.process = successfulRun(&calls)

	cancel, done := runWatcher(t, w)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A\n"), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	// New directories are watched as they appear.
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0o750))
	require.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.md"), []byte("# B\n"), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 4 }, 2*time.Second, 10*time.Millisecond)

	// Dotfiles and editor swap files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(src, ".hidden"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md.swp"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(4), calls.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}

	events, closed := pub.snapshot()
	require.True(t, closed)
	require.Len(t, events, 4)
	require.Equal(t, "success", events[0].Status)
	require.NotEmpty(t, events[0].ManifestHash)
	require.NotNil(t, w.LastResult())
}

func TestWatcher_SingleFlight(t *testing.T) {
	w, src := newTestWatcher(t, Options{})

	var (
		calls    atomic.Int32
		active   atomic.Int32
		overlaps atomic.Int32
	)
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	w.process = func(_ context.Context, rc *pipeline.RunContext) (*pipeline.Result, error) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer active.Add(-1)
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release
		}
		return &pipeline.Result{RunID: rc.ID, Status: pipeline.StatusSuccess}, nil
	}

	_, done := runWatcher(t, w)
	<-started

	// Several separate bursts while the first run is blocked.
	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(src, "f.md"), []byte{byte('a' + i)}, 0o600))
		time.Sleep(120 * time.Millisecond)
	}
	close(release)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(2), calls.Load())
	require.Zero(t, overlaps.Load())

	select {
	case err := <-done:
		t.Fatalf("watch returned early: %v", err)
	default:
	}
}

func TestWatcher_StopsWhenAborted(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})
	w.process = func(context.Context, *pipeline.RunContext) (*pipeline.Result, error) {
		return &pipeline.Result{Status: pipeline.StatusAborted}, workspace.ErrAborted
	}

	_, done := runWatcher(t, w)
	select {
	case err := <-done:
		require.ErrorIs(t, err, workspace.ErrAborted)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop after abort")
	}
}

func TestWatcher_FailedRunKeepsWatching(t *testing.T) {
	pub := &recordingPublisher{}
	w, src := newTestWatcher(t, Options{Publisher: pub})
	var calls atomic.Int32
	w.process = func(context.Context, *pipeline.RunContext) (*pipeline.Result, error) {
		calls.Add(1)
		return &pipeline.Result{Status: pipeline.StatusFailed}, errors.ValidationError("bad config").Build()
	}

	_, _ = runWatcher(t, w)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(src, "docstage.yaml"), []byte("x: 1\n"), 0o600))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	events, _ := pub.snapshot()
	require.Empty(t, events)
}

func TestWatcher_PeriodicResync(t *testing.T) {
	w, _ := newTestWatcher(t, Options{Resync: 100 * time.Millisecond})
	var calls atomic.Int32
	w.process = successfulRun(&calls)

	_, _ = runWatcher(t, w)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_MetricsListener(t *testing.T) {
	reg := prom.NewRegistry()
	w, _ := newTestWatcher(t, Options{MetricsAddr: "127.0.0.1:0", Registry: reg, Recorder: metrics.NewPrometheusRecorder(reg)})
	var calls atomic.Int32
	w.process = successfulRun(&calls)

	cancel, done := runWatcher(t, w)
	require.Eventually(t, func() bool { return w.ListenAddr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + w.ListenAddr() + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cancel()
	require.NoError(t, <-done)
	_, err = http.Get("http://" + w.ListenAddr() + "/healthz")
	require.Error(t, err)
}

func TestWatcher_IgnoresOutputRoot(t *testing.T) {
	w, _ := newTestWatcher(t, Options{})
	require.True(t, w.ignored(w.output))
	require.True(t, w.ignored(filepath.Join(w.output, "a.md")))
	require.False(t, w.ignored(w.output+"-other"))
	require.False(t, w.ignored(filepath.Join(w.source, "a.md")))
}

func TestIgnoredName(t *testing.T) {
	cases := map[string]bool{
		"page.md":     false,
		".DS_Store":   true,
		".#page.md":   true,
		"page.md~":    true,
		"page.md.swp": true,
		"page.md.swx": true,
		"#page.md#":   true,
		"draft.tmp":   true,
		"Thumbs.db":   true,
		"README":      false,
	}
	for name, want := range cases {
		require.Equal(t, want, IgnoredName(name), name)
	}
}
