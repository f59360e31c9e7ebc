package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docstage/internal/metrics"
	"git.home.luguber.info/inful/docstage/internal/notify"
	"git.home.luguber.info/inful/docstage/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	RunFlags `embed:""`

	QuietWindow time.Duration `name:"quiet-window" default:"300ms" env:"DOCSTAGE_QUIET_WINDOW" help:"Wait this long after the last change before running."`
	MaxDelay    time.Duration `name:"max-delay" default:"5s" env:"DOCSTAGE_MAX_DELAY" help:"Never postpone a run longer than this."`
	Resync      time.Duration `name:"resync" env:"DOCSTAGE_RESYNC" help:"Also rerun on this interval (0 disables)."`
	MetricsAddr string        `name:"metrics-addr" env:"DOCSTAGE_METRICS_ADDR" help:"Serve Prometheus metrics on this address, e.g. :9090."`

	NATSURL      string `name:"nats-url" env:"DOCSTAGE_NATS_URL" help:"Publish a run event to this NATS server after every successful run."`
	NATSSubject  string `name:"nats-subject" default:"docstage.runs" env:"DOCSTAGE_NATS_SUBJECT" help:"Subject for run events."`
	NATSKVBucket string `name:"nats-kv-bucket" env:"DOCSTAGE_NATS_KV_BUCKET" help:"Also store the latest run event in this JetStream KV bucket."`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source, output, opts, err := w.resolve(root.stdin(), root.stdout())
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	var publisher notify.Publisher = notify.Discard{}
	ncfg := notify.Config{URL: w.NATSURL, Subject: w.NATSSubject, KVBucket: w.NATSKVBucket}
	if ncfg.Enabled() {
		client, err := notify.NewClient(ctx, ncfg)
		if err != nil {
			return err
		}
		publisher = client
	}

	watcher, err := watch.New(watch.Options{
		Source:      source,
		OutputRoot:  output,
		Run:         opts,
		Debounce:    watch.DebouncerConfig{QuietWindow: w.QuietWindow, MaxDelay: w.MaxDelay},
		Resync:      w.Resync,
		MetricsAddr: w.MetricsAddr,
		Registry:    reg,
		Recorder:    recorder,
		Publisher:   publisher,
	})
	if err != nil {
		publisher.Close()
		return err
	}
	err = watcher.Run(ctx)
	printSummary(root.stdout(), watcher.LastResult(), output)
	return err
}
