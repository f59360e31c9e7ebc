// Package notify publishes run notifications over NATS.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/retry"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "docstage.runs"

// latestKey holds the most recent event in the optional KV bucket.
const latestKey = "latest"

// Event describes a finished run.
type Event struct {
	RunID        string    `json:"run_id"`
	Status       string    `json:"status"`
	Source       string    `json:"source"`
	OutputRoot   string    `json:"output_root"`
	Documents    int       `json:"documents"`
	Warnings     int       `json:"warnings"`
	ManifestHash string    `json:"manifest_hash,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher sends run events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Config selects the NATS server and subject.
type Config struct {
	URL     string
	Subject string
	// KVBucket, when set, also stores the latest event under the key "latest".
	KVBucket string
	// Retry governs transient publish failures; the zero value uses retry.DefaultPolicy.
	Retry retry.Policy
}

// Enabled reports whether a server URL was configured.
func (c Config) Enabled() bool { return c.URL != "" }

// Client publishes events on a NATS subject.
type Client struct {
	conn    *nats.Conn
	kv      jetstream.KeyValue
	subject string
	retry   retry.Policy
}

// NewClient connects to the configured server. It fails fast when the server is unreachable.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.ConfigError("nats url is required").Build()
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("docstage"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", cfg.URL).
			Build()
	}

	policy := cfg.Retry
	if policy.Validate() != nil {
		policy = retry.DefaultPolicy()
	}
	c := &Client{conn: conn, subject: subject, retry: policy}
	if cfg.KVBucket != "" {
		if err := c.initKV(ctx, cfg.KVBucket); err != nil {
			conn.Close()
			return nil, err
		}
	}

	slog.Info("NATS notifications enabled",
		slog.String("url", cfg.URL),
		logfields.Subject(subject),
		slog.String("kv_bucket", cfg.KVBucket))
	return c, nil
}

func (c *Client) initKV(ctx context.Context, bucket string) error {
	js, err := jetstream.New(c.conn)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to create JetStream context").Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Latest docstage run",
			History:     1,
		})
		if err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "failed to create KV bucket").
				WithContext("bucket", bucket).
				Build()
		}
		slog.Info("Created KV bucket for run notifications", slog.String("bucket", bucket))
	}
	c.kv = kv
	return nil
}

// Publish sends ev and waits for the server to acknowledge the flush. Transient failures are
// retried according to the client's policy.
func (c *Client) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal run event").Build()
	}

	if err := retry.Do(ctx, c.retry, "notify.publish", func(ctx context.Context) error {
		return c.send(ctx, data)
	}); err != nil {
		return err
	}
	slog.Debug("Published run event", logfields.RunID(ev.RunID), logfields.Subject(c.subject))
	return nil
}

func (c *Client) send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.conn.Publish(c.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish run event").
			WithContext("subject", c.subject).
			Retryable().
			Build()
	}
	if err := c.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to flush run event").Retryable().Build()
	}
	if c.kv != nil {
		if _, err := c.kv.Put(ctx, latestKey, data); err != nil {
			return errors.WrapError(err, errors.CategoryNetwork, "failed to store latest run").Retryable().Build()
		}
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
func (Discard) Close()                               {}
