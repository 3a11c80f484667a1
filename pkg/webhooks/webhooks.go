package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/conduit/pkg/audit"
	"github.com/platinummonkey/conduit/pkg/httputil"
	"github.com/platinummonkey/conduit/pkg/observability"
)

// Endpoint is a webhook receiver.
type Endpoint struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
	// Events limits delivery to these event types. Empty means all.
	Events []audit.EventType `yaml:"events"`
}

func (e Endpoint) wants(t audit.EventType) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, want := range e.Events {
		if want == t {
			return true
		}
	}
	return false
}

// Config configures a Notifier.
type Config struct {
	Endpoints []Endpoint
	Retry     RetryConfig
	// QueueSize bounds the events waiting for delivery; more are dropped.
	QueueSize int
	Timeout   time.Duration
	// RequestsPerMinute limits deliveries per endpoint. Zero means 100.
	RequestsPerMinute int
}

// Notifier posts audit events to webhook endpoints.
type Notifier struct {
	endpoints []Endpoint
	retry     *RetryPolicy
	client    *http.Client
	limiter   *httputil.RateLimiter
	queue     chan *audit.Event
	closed    atomic.Bool
	dropped   atomic.Int64
	log       logrus.FieldLogger
	sleep     func(context.Context, time.Duration) error
}

// New creates a notifier. It delivers nothing until Run.
func New(cfg Config, log logrus.FieldLogger) (*Notifier, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("at least one webhook endpoint is required")
	}
	for _, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return nil, errors.New("webhook endpoint URL is required")
		}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 100
	}
	if log == nil {
		log = logrus.New()
	}
	return &Notifier{
		endpoints: cfg.Endpoints,
		retry:     NewRetryPolicy(cfg.Retry),
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter: httputil.NewRateLimiter(httputil.RateLimitConfig{
			RequestsPerWindow: cfg.RequestsPerMinute,
			WindowDuration:    time.Minute,
		}),
		queue: make(chan *audit.Event, cfg.QueueSize),
		log:   log,
		sleep: sleepCtx,
	}, nil
}

// Log queues the event. It never blocks; a full queue drops the event.
func (n *Notifier) Log(_ context.Context, e *audit.Event) error {
	if n.closed.Load() {
		return nil
	}
	select {
	case n.queue <- e:
		return nil
	default:
		n.dropped.Add(1)
		return fmt.Errorf("webhook queue full, dropped %s", e.Type)
	}
}

// Dropped returns how many events were dropped because the queue was full.
func (n *Notifier) Dropped() int64 { return n.dropped.Load() }

// Run delivers queued events until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case e := <-n.queue:
			n.dispatch(ctx, e, true)
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops accepting events and makes one attempt at each event still
// queued.
func (n *Notifier) Close() error {
	if n.closed.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()
	for {
		select {
		case e := <-n.queue:
			n.dispatch(ctx, e, false)
		default:
			return nil
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, e *audit.Event, retry bool) {
	defer observability.RecoverPanic(n.log, "webhooks")

	body, err := json.Marshal(e)
	if err != nil {
		n.log.WithError(err).Warn("Failed to encode webhook event")
		return
	}
	for _, ep := range n.endpoints {
		if !ep.wants(e.Type) {
			continue
		}
		if err := n.deliver(ctx, ep, e, body, retry); err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"url":   ep.URL,
				"event": e.Type,
			}).Warn("Webhook delivery failed")
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, ep Endpoint, e *audit.Event, body []byte, retry bool) error {
	for attempt := 1; ; attempt++ {
		err := n.send(ctx, ep, e, body)
		if err == nil {
			return nil
		}
		if !retry || !n.retry.ShouldRetry(attempt, err) {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		if serr := n.sleep(ctx, n.retry.NextRetryDelay(attempt)); serr != nil {
			return err
		}
	}
}

func (n *Notifier) send(ctx context.Context, ep Endpoint, e *audit.Event, body []byte) error {
	if !n.limiter.Allow(ep.URL) {
		return fmt.Errorf("rate limit exceeded for %s", ep.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Conduit-Event", string(e.Type))
	req.Header.Set("X-Conduit-Event-ID", e.ID)
	if ep.Secret != "" {
		req.Header.Set("X-Conduit-Signature", sign(body, ep.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// VerifySignature verifies the webhook signature
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(sign(payload, secret)), []byte(signature))
}

// sign generates the HMAC-SHA256 signature header value
func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
