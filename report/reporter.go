package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/faultline/httpclient"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/logstore"
	"github.com/kbukum/faultline/resilience"
	"github.com/kbukum/faultline/storage"
)

const fingerprintPrefix = "report:"

// Payload is the body POSTed to the collector.
type Payload struct {
	Fingerprint string         `json:"fingerprint"`
	ReportedAt  time.Time      `json:"reportedAt"`
	Entry       logstore.Entry `json:"error"`
}

type dedupeRecord struct {
	ReportedAt time.Time `json:"reportedAt"`
	EntryID    string    `json:"entryId"`
}

// Reporter sends error entries to the collector.
type Reporter struct {
	cfg    Config
	client *httpclient.Client
	seen   storage.Store
	signer *signer
	log    *logger.Logger
	now    func() time.Time
	hc     *http.Client
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Reporter) { r.log = l }
}

// WithClock replaces the time source for dedupe windows and token claims.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Reporter) { r.hc = hc }
}

// New creates a Reporter. seen holds dedupe fingerprints; nil uses memory.
func New(cfg Config, seen storage.Store, opts ...Option) (*Reporter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Reporter{cfg: cfg, seen: seen, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("report")
	}
	if r.seen == nil {
		r.seen = storage.NewMemory()
	}
	if cfg.SigningKey != "" {
		r.signer = &signer{key: []byte(cfg.SigningKey), issuer: cfg.Issuer, audience: cfg.Audience, ttl: cfg.TokenTTL, now: r.now}
	}

	cb := resilience.DefaultCircuitBreakerConfig("report")
	cb.MaxFailures = cfg.MaxFailures
	cb.Cooldown = cfg.Cooldown
	cb.OnStateChange = func(name string, from, to resilience.State) {
		r.log.Warn("collector circuit changed state", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
	}
	rl := resilience.DefaultRateLimiterConfig("report")
	rl.Rate = cfg.Rate
	rl.Burst = cfg.Burst

	var copts []httpclient.Option
	if r.hc != nil {
		copts = append(copts, httpclient.WithHTTPClient(r.hc))
	}
	hcfg := httpclient.Config{
		BaseURL: cfg.Endpoint,
		Timeout: cfg.Timeout,
		Headers: map[string]string{"User-Agent": "faultline-reporter"},
		TLS:     &cfg.TLS,
		Breaker: &cb,
		Limiter: &rl,
	}
	if cfg.APIKey != "" {
		hcfg.Auth = httpclient.APIKey(cfg.APIKeyHeader, cfg.APIKey)
	}
	client, err := httpclient.New(hcfg, copts...)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	r.client = client
	return r, nil
}

// Report sends e unless an identical error was reported within the dedupe
// window. It blocks on the rate limiter until ctx is done.
func (r *Reporter) Report(ctx context.Context, e logstore.Entry) error {
	fp := Fingerprint(e)
	if r.recentlyReported(ctx, fp) {
		r.log.Debug("skipping duplicate report", logger.Fields(logger.FieldEntryID, e.ID, "fingerprint", fp))
		return nil
	}

	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   r.cfg.Path,
		Body:   Payload{Fingerprint: fp, ReportedAt: r.now().UTC(), Entry: e},
	}
	if r.signer != nil {
		token, err := r.signer.sign(e.SessionID, fp)
		if err != nil {
			return err
		}
		req.Auth = httpclient.BearerAuth(token)
	}

	if _, err := r.client.Do(ctx, req); err != nil {
		return fmt.Errorf("report: send %s: %w", e.ID, err)
	}

	rec := dedupeRecord{ReportedAt: r.now().UTC(), EntryID: e.ID}
	if err := r.remember(ctx, fp, rec); err != nil {
		r.log.Warn("failed to store report fingerprint", logger.ErrorFields("remember", err))
	}
	r.log.Debug("reported error", logger.Fields(logger.FieldEntryID, e.ID, "fingerprint", fp))
	return nil
}

// CircuitState exposes the collector breaker state for health reporting.
func (r *Reporter) CircuitState() resilience.State {
	return r.client.CircuitState()
}

func (r *Reporter) recentlyReported(ctx context.Context, fp string) bool {
	var rec dedupeRecord
	if err := storage.GetJSON(ctx, r.seen, fingerprintPrefix+fp, &rec); err != nil {
		if !stderrors.Is(err, storage.ErrNotFound) {
			r.log.Warn("failed to read report fingerprint", logger.ErrorFields("dedupe", err))
		}
		return false
	}
	// Stores without TTL support keep stale records; the age check covers them.
	return r.now().Sub(rec.ReportedAt) < r.cfg.DedupeTTL
}

func (r *Reporter) remember(ctx context.Context, fp string, rec dedupeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return storage.SetWithTTL(ctx, r.seen, fingerprintPrefix+fp, data, r.cfg.DedupeTTL)
}

// Fingerprint identifies errors that are the same for reporting purposes.
func Fingerprint(e logstore.Entry) string {
	h := sha256.New()
	for _, part := range []string{e.Context.Component, e.Context.Action, string(e.Kind), strings.TrimSpace(e.Message)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

var _ logstore.Reporter = (*Reporter)(nil)
