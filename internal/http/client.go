package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is a desktop browser string; some archive mirrors reject
// unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// ErrReadTimeout is returned by a body read once the server stopped sending
// for longer than the client timeout.
var ErrReadTimeout = errors.New("read timeout")

// BreakerSettings configures the per-host circuit breaker.
type BreakerSettings struct {
	// MinRequests is the number of requests observed before the breaker
	// may open.
	MinRequests uint32

	// FailureRatio opens the breaker once this share of requests failed.
	FailureRatio float64

	// Cooldown is how long an open breaker rejects requests.
	Cooldown time.Duration
}

// Client wraps HTTP operations with archive-specific configuration.
//
// Client provides:
//   - Configured User-Agent and "Connection: close" headers
//   - Connect and read timeouts
//   - Streaming GET via Open
//   - Optional rate limiting and circuit breaking
//
// A Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter

	// timeout bounds dialing, waiting for response headers, and each gap
	// between body reads. It is not a deadline for the whole transfer.
	timeout time.Duration
	proxy   func(*http.Request) (*url.URL, error)

	breaker  *BreakerSettings
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the connect and read timeout of each request. A body
// that keeps delivering bytes is never cut off, however long it takes.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit limits the client to rps requests per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker enables a circuit breaker per archive host.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = &s
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its transport is used
// as is, so WithProxy and the connect timeout do not apply; the read timeout
// still does.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Proxy modes accepted by WithProxy.
const (
	ProxyNone   = "none"
	ProxySystem = "system"
	ProxyManual = "manual"
)

// WithProxy selects how requests reach the archive: ProxyNone connects
// directly, ProxySystem honours HTTP_PROXY and friends, ProxyManual sends
// everything through address:port.
func WithProxy(mode, address string, port int) Option {
	return func(c *Client) {
		switch mode {
		case ProxyNone:
			c.proxy = nil
		case ProxyManual:
			if address == "" {
				return
			}
			host := address
			if port > 0 {
				host = fmt.Sprintf("%s:%d", address, port)
			}
			c.proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: host})
		default:
			c.proxy = http.ProxyFromEnvironment
		}
	}
}

// NewClient creates a new HTTP client configured for the archive.
//
// The client is configured with:
//   - 10 second connect and read timeout
//   - DefaultUserAgent
//   - proxy settings from the environment
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: DefaultUserAgent,
		timeout:   10 * time.Second,
		proxy:     http.ProxyFromEnvironment,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: c.transport()}
	}
	return c
}

func (c *Client) transport() *http.Transport {
	dialer := &net.Dialer{Timeout: c.timeout, KeepAlive: 30 * time.Second}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = c.proxy
	t.DialContext = dialer.DialContext
	t.TLSHandshakeTimeout = c.timeout
	t.ResponseHeaderTimeout = c.timeout
	return t
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Open performs a GET request and returns the response body for streaming.
//
// Returns an error if:
//   - The rate limiter wait is cancelled
//   - The host's circuit breaker is open
//   - The request fails or times out
//   - The response status is not 200 OK (as *StatusError)
//
// Reading the returned body fails with ErrReadTimeout once no bytes arrive
// for the client timeout. The body also reports the Content-Length through
// a Size method, -1 when unknown. The caller must close the returned body.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	do := func() (*http.Response, error) {
		return c.do(ctx, rawURL)
	}

	var (
		resp *http.Response
		err  error
	)
	if cb := c.breakerFor(rawURL); cb != nil {
		resp, err = cb.Execute(do)
	} else {
		resp, err = do()
	}
	if err != nil {
		cancel()
		return nil, err
	}
	return newIdleBody(resp, c.timeout, cancel), nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Connection", "close")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}

	return resp, nil
}

// breakerFor returns the circuit breaker for the URL's host, or nil when
// breaking is disabled.
func (c *Client) breakerFor(rawURL string) *gobreaker.CircuitBreaker[*http.Response] {
	if c.breaker == nil {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[u.Host]; ok {
		return cb
	}

	settings := *c.breaker
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        u.Host,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
		},
		// A 4xx means the host answered; only transport errors and 5xx
		// count against it.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if se, ok := err.(*StatusError); ok {
				return se.Code < 500
			}
			return false
		},
	})
	c.breakers[u.Host] = cb
	return cb
}

// idleBody cancels its request when no Read completes within timeout.
type idleBody struct {
	body    io.ReadCloser
	size    int64
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	expired atomic.Bool
}

func newIdleBody(resp *http.Response, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{body: resp.Body, size: resp.ContentLength, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		cancel()
	})
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if b.expired.Load() {
		return n, fmt.Errorf("%w: no data for %s", ErrReadTimeout, b.timeout)
	}
	b.timer.Reset(b.timeout)
	return n, err
}

// Size returns the Content-Length of the response, or -1 when unknown.
func (b *idleBody) Size() int64 {
	return b.size
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel()
	return err
}
