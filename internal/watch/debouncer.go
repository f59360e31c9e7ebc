package watch

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
)

const (
	DefaultQuietWindow = 300 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// DebouncerConfig tunes change coalescing.
type DebouncerConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration
}

// Batch is one coalesced burst of change requests.
type Batch struct {
	Count      int
	FirstAt    time.Time
	LastAt     time.Time
	LastReason string
	// Cause is "quiet" or "max_delay".
	Cause string
}

type request struct {
	reason string
	at     time.Time
}

// Debouncer coalesces bursts of change requests into batches:
//   - a batch is emitted once no request arrived for QuietWindow
//   - a burst is never postponed past MaxDelay
//   - at most one batch waits while the consumer is busy
type Debouncer struct {
	cfg      DebouncerConfig
	requests chan request
	out      chan Batch
	ready    chan struct{}

	pending bool
	batch   Batch
}

// NewDebouncer validates cfg; zero durations take the defaults.
func NewDebouncer(cfg DebouncerConfig) (*Debouncer, error) {
	if cfg.QuietWindow == 0 {
		cfg.QuietWindow = DefaultQuietWindow
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.QuietWindow < 0 {
		return nil, errors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay < cfg.QuietWindow {
		return nil, errors.ValidationError("max delay must not be shorter than the quiet window").
			WithContext("quiet_window", cfg.QuietWindow.String()).
			WithContext("max_delay", cfg.MaxDelay.String()).
			Build()
	}
	return &Debouncer{
		cfg:      cfg,
		requests: make(chan request, 64),
		out:      make(chan Batch, 1),
		ready:    make(chan struct{}),
	}, nil
}

// Request records a change. It never blocks; when the queue is full the request is folded into
// the burst already pending.
func (d *Debouncer) Request(reason string) {
	select {
	case d.requests <- request{reason: reason, at: time.Now()}:
	default:
	}
}

// Batches delivers coalesced bursts. The channel is closed when Run returns.
func (d *Debouncer) Batches() <-chan Batch { return d.out }

// Ready is closed once Run is consuming requests.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Run processes requests until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	defer close(d.out)

	quietTimer := stoppedTimer()
	maxTimer := stoppedTimer()
	var quietC, maxC <-chan time.Time

	close(d.ready)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.requests:
			first := !d.pending
			d.onRequest(req)
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if first {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}
		case <-quietC:
			d.emit("quiet")
			quietC, maxC = nil, nil
			maxTimer.Stop()
		case <-maxC:
			d.emit("max_delay")
			quietC, maxC = nil, nil
			quietTimer.Stop()
		}
	}
}

func (d *Debouncer) onRequest(req request) {
	if !d.pending {
		d.pending = true
		d.batch = Batch{FirstAt: req.at}
	}
	d.batch.Count++
	d.batch.LastAt = req.at
	d.batch.LastReason = req.reason
}

func (d *Debouncer) emit(cause string) {
	if !d.pending {
		return
	}
	b := d.batch
	b.Cause = cause
	d.pending = false

	select {
	case d.out <- b:
	default:
		// A batch is already queued and will observe these changes when it runs.
		slog.Debug("Follow-up run already queued", logfields.Count(b.Count), logfields.Reason(b.LastReason))
	}
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	t.Stop()
	t.Reset(after)
}
