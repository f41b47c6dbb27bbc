// Package lifecycle deactivates stale and dead listings and restores listings
// that were deactivated by mistake.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/job-curator/internal/circuitbreaker"
	"github.com/job-curator/internal/types"
)

// DefaultUserAgent identifies liveness probes to the probed sites
const DefaultUserAgent = "job-curator-liveness/1.0 (+https://github.com/job-curator)"

// ErrNotAttempted marks results where no request reached the host
var ErrNotAttempted = errors.New("probe not attempted")

// ProberConfig configures outbound probes
type ProberConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	HostRPS      float64
}

// DefaultProberConfig returns the standard probe settings
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		UserAgent:    DefaultUserAgent,
		Timeout:      12 * time.Second,
		MaxBodyBytes: 2 << 20,
		HostRPS:      0.5,
	}
}

// ProbeResult classifies one listing URL
type ProbeResult struct {
	Verdict    types.ProbeVerdict
	Reason     string
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Prober issues liveness probes against listing URLs
type Prober struct {
	client   *http.Client
	cfg      ProberConfig
	limiter  *HostLimiter
	breakers *circuitbreaker.Registry
}

// NewProber creates a prober. A nil registry gets a per-host breaker registry
// with default settings.
func NewProber(cfg ProberConfig, breakers *circuitbreaker.Registry) *Prober {
	defaults := DefaultProberConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if breakers == nil {
		breakers = circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig("probe"))
	}

	return &Prober{
		client:   &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		limiter:  NewHostLimiter(cfg.HostRPS, 1),
		breakers: breakers,
	}
}

// Breakers exposes the per-host circuit breakers
func (p *Prober) Breakers() *circuitbreaker.Registry {
	return p.breakers
}

// Probe classifies rawURL. Only unambiguous evidence yields an expired
// verdict; everything uncertain is unknown.
func (p *Prober) Probe(ctx context.Context, rawURL string) ProbeResult {
	start := time.Now()

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		if err == nil {
			err = fmt.Errorf("not an absolute http url: %q", rawURL)
		}
		err = fmt.Errorf("%w: %w", ErrNotAttempted, err)
		return ProbeResult{Verdict: types.VerdictUnknown, Err: err, Duration: time.Since(start)}
	}

	var result ProbeResult
	breaker := p.breakers.Get(u.Hostname())
	err = breaker.Execute(ctx, func() bool {
		if waitErr := p.limiter.Wait(ctx, u.Hostname()); waitErr != nil {
			result = ProbeResult{Verdict: types.VerdictUnknown, Err: fmt.Errorf("%w: %w", ErrNotAttempted, waitErr)}
			return false
		}
		result = p.probe(ctx, u.String())
		return tripsBreaker(result)
	})
	if err != nil {
		result = ProbeResult{Verdict: types.VerdictUnknown, Err: fmt.Errorf("%w: %w", ErrNotAttempted, err)}
	}

	result.Duration = time.Since(start)
	return result
}

// tripsBreaker reports whether the outcome says the host is struggling
func tripsBreaker(r ProbeResult) bool {
	if r.StatusCode >= 500 {
		return true
	}
	return r.Err != nil && isTimeout(r.Err)
}

func (p *Prober) probe(ctx context.Context, target string) ProbeResult {
	resp, err := p.do(ctx, http.MethodHead, target)
	if err != nil {
		return classifyTransportError(err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusMethodNotAllowed:
		return p.probeBody(ctx, target)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return p.probeBody(ctx, target)
	default:
		return classifyStatus(resp.StatusCode)
	}
}

// probeBody fetches the page and scans its visible text for closed phrases
func (p *Prober) probeBody(ctx context.Context, target string) ProbeResult {
	resp, err := p.do(ctx, http.MethodGet, target)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, p.cfg.MaxBodyBytes))
	if err != nil {
		return ProbeResult{Verdict: types.VerdictUnknown, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse listing html: %w", err)}
	}
	doc.Find("script, style, noscript, template").Remove()

	if _, closed := containsClosedPhrase(doc.Text()); closed {
		return ProbeResult{Verdict: types.VerdictExpired, Reason: types.ReasonClosedText, StatusCode: resp.StatusCode}
	}
	return ProbeResult{Verdict: types.VerdictValid, StatusCode: resp.StatusCode}
}

func (p *Prober) do(ctx context.Context, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	return p.client.Do(req)
}

// classifyStatus maps a non-2xx status to a verdict
func classifyStatus(code int) ProbeResult {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return ProbeResult{Verdict: types.VerdictExpired, Reason: types.ReasonBrokenURL, StatusCode: code}
	default:
		// 403 is usually bot blocking and 5xx is transient
		return ProbeResult{Verdict: types.VerdictUnknown, StatusCode: code}
	}
}

// classifyTransportError expires only on a missing host or a refused
// connection. Timeouts and everything else are inconclusive.
func classifyTransportError(err error) ProbeResult {
	if isTimeout(err) {
		return ProbeResult{Verdict: types.VerdictUnknown, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return ProbeResult{Verdict: types.VerdictExpired, Reason: types.ReasonConnectionFailed, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ProbeResult{Verdict: types.VerdictExpired, Reason: types.ReasonConnectionFailed, Err: err}
	}

	return ProbeResult{Verdict: types.VerdictUnknown, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
