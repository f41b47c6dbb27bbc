package lifecycle

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-curator/internal/circuitbreaker"
	"github.com/job-curator/internal/types"
)

func testProber(timeout time.Duration) *Prober {
	return NewProber(ProberConfig{
		UserAgent: "curator-test/1.0",
		Timeout:   timeout,
	}, nil)
}

func statusServer(t *testing.T, head, get int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(head)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(get)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const openListing = `<html><head><title>Rust Engineer</title></head>
<body><h1>Rust Engineer</h1><p>We are hiring. Apply below.</p></body></html>`

func TestProbe_StatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		head       int
		get        int
		body       string
		verdict    types.ProbeVerdict
		reason     string
		statusCode int
	}{
		{name: "gone", head: http.StatusGone, verdict: types.VerdictExpired, reason: types.ReasonBrokenURL, statusCode: 410},
		{name: "not found", head: http.StatusNotFound, verdict: types.VerdictExpired, reason: types.ReasonBrokenURL, statusCode: 404},
		{name: "server error keeps record", head: http.StatusServiceUnavailable, verdict: types.VerdictUnknown, statusCode: 503},
		{name: "forbidden keeps record", head: http.StatusForbidden, verdict: types.VerdictUnknown, statusCode: 403},
		{name: "teapot is inconclusive", head: http.StatusTeapot, verdict: types.VerdictUnknown, statusCode: 418},
		{name: "open listing", head: http.StatusOK, get: http.StatusOK, body: openListing, verdict: types.VerdictValid, statusCode: 200},
		{
			name: "closed text",
			head: http.StatusOK,
			get:  http.StatusOK,
			body: `<html><body><div class="notice">This   position has been
				FILLED. Thanks for your interest.</div></body></html>`,
			verdict:    types.VerdictExpired,
			reason:     types.ReasonClosedText,
			statusCode: 200,
		},
		{
			name:       "phrase inside script is ignored",
			head:       http.StatusOK,
			get:        http.StatusOK,
			body:       `<html><body><p>Apply now</p><script>var msg = "job not found";</script></body></html>`,
			verdict:    types.VerdictValid,
			statusCode: 200,
		},
		{name: "head not allowed falls back to get", head: http.StatusMethodNotAllowed, get: http.StatusOK, body: openListing, verdict: types.VerdictValid, statusCode: 200},
		{name: "get gone after head ok", head: http.StatusOK, get: http.StatusGone, verdict: types.VerdictExpired, reason: types.ReasonBrokenURL, statusCode: 410},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := statusServer(t, tt.head, tt.get, tt.body)

			result := testProber(2*time.Second).Probe(context.Background(), server.URL+"/jobs/1")

			assert.Equal(t, tt.verdict, result.Verdict)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Equal(t, tt.statusCode, result.StatusCode)
		})
	}
}

func TestProbe_SendsUserAgent(t *testing.T) {
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.UserAgent())
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	testProber(time.Second).Probe(context.Background(), server.URL)
	assert.Equal(t, "curator-test/1.0", agent.Load())
}

func TestProbe_TimeoutIsInconclusive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	result := testProber(50*time.Millisecond).Probe(context.Background(), server.URL)

	assert.Equal(t, types.VerdictUnknown, result.Verdict)
	assert.Empty(t, result.Reason)
	require.Error(t, result.Err)
	assert.False(t, errors.Is(result.Err, ErrNotAttempted))
}

func TestProbe_ConnectionRefusedExpires(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	result := testProber(time.Second).Probe(context.Background(), target)

	assert.Equal(t, types.VerdictExpired, result.Verdict)
	assert.Equal(t, types.ReasonConnectionFailed, result.Reason)
}

func TestProbe_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://example.com/job", "/relative/path"} {
		result := testProber(time.Second).Probe(context.Background(), raw)
		assert.Equal(t, types.VerdictUnknown, result.Verdict, raw)
		assert.ErrorIs(t, result.Err, ErrNotAttempted, raw)
	}
}

func TestProbe_CircuitOpensOnRepeatedServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	prober := testProber(time.Second)
	for i := 0; i < 3; i++ {
		result := prober.Probe(context.Background(), server.URL)
		assert.Equal(t, types.VerdictUnknown, result.Verdict)
	}

	result := prober.Probe(context.Background(), server.URL)
	assert.Equal(t, types.VerdictUnknown, result.Verdict)
	assert.ErrorIs(t, result.Err, ErrNotAttempted)
	assert.ErrorIs(t, result.Err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(3), hits.Load())

	stats := prober.Breakers().Stats()
	require.Len(t, stats, 1)
}

func TestClassifyTransportError(t *testing.T) {
	dnsErr := &url.Error{
		Op:  "Head",
		URL: "https://gone.example",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "gone.example", IsNotFound: true}},
	}
	result := classifyTransportError(dnsErr)
	assert.Equal(t, types.VerdictExpired, result.Verdict)
	assert.Equal(t, types.ReasonConnectionFailed, result.Reason)

	tempDNS := &url.Error{
		Op:  "Head",
		URL: "https://flaky.example",
		Err: &net.DNSError{Err: "server misbehaving", Name: "flaky.example", IsTemporary: true},
	}
	assert.Equal(t, types.VerdictUnknown, classifyTransportError(tempDNS).Verdict)

	assert.Equal(t, types.VerdictUnknown, classifyTransportError(context.DeadlineExceeded).Verdict)
	assert.Equal(t, types.VerdictUnknown, classifyTransportError(errors.New("tls: handshake failure")).Verdict)
}

func TestContainsClosedPhrase(t *testing.T) {
	phrase, ok := containsClosedPhrase("Sorry!\n  We are NO LONGER accepting\tapplications.")
	assert.True(t, ok)
	assert.Equal(t, "no longer accepting applications", phrase)

	_, ok = containsClosedPhrase("Applications close soon. This job expires in 3 days.")
	assert.False(t, ok)

	phrases := ClosedPhrases()
	phrases[0] = "mutated"
	assert.NotEqual(t, "mutated", ClosedPhrases()[0])
}

func TestHostLimiter(t *testing.T) {
	limiter := NewHostLimiter(0, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	}

	strict := NewHostLimiter(0.001, 1)
	require.NoError(t, strict.Wait(context.Background(), "example.com"))
	// a different host has its own budget
	require.NoError(t, strict.Wait(context.Background(), "other.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, strict.Wait(ctx, "example.com"))
}
