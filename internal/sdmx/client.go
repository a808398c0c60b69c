// Package sdmx fetches and flattens SDMX 2.1 structure-specific data messages.
package sdmx

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// DefaultBaseURL is the IMF external SDMX 2.1 data endpoint.
const DefaultBaseURL = "https://api.imf.org/external/sdmx/2.1/data/"

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nomad_sdmx_requests_total",
		Help: "SDMX data requests by outcome",
	},
	[]string{"status"},
)

// Query selects a slice of an SDMX dataflow.
type Query struct {
	Dataflow    string
	Key         string
	StartPeriod string
	EndPeriod   string
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL          string
	HTTPTimeout      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	Logger           *zap.Logger
}

type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	log              *zap.Logger
}

// NewClient returns a client for the given options. A single attempt is made
// per request unless RetryMaxAttempts is raised.
func NewClient(opt Options) *Client {
	if opt.HTTPTimeout <= 0 {
		opt.HTTPTimeout = 30 * time.Second
	}
	if opt.RetryMaxAttempts <= 0 {
		opt.RetryMaxAttempts = 1
	}
	if opt.RetryBaseDelay <= 0 {
		opt.RetryBaseDelay = 500 * time.Millisecond
	}
	if opt.RetryMaxDelay <= 0 {
		opt.RetryMaxDelay = 4 * time.Second
	}
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Client{
		httpClient:       &http.Client{Timeout: opt.HTTPTimeout},
		baseURL:          opt.BaseURL,
		retryMaxAttempts: opt.RetryMaxAttempts,
		retryBaseDelay:   opt.RetryBaseDelay,
		retryMaxDelay:    opt.RetryMaxDelay,
		log:              opt.Logger,
	}
}

// URL builds the request URL for q.
func (c *Client) URL(q Query) string {
	params := url.Values{}
	if q.StartPeriod != "" {
		params.Set("startPeriod", q.StartPeriod)
	}
	if q.EndPeriod != "" {
		params.Set("endPeriod", q.EndPeriod)
	}
	params.Set("dimensionAtObservation", "TIME_PERIOD")
	params.Set("detail", "dataonly")
	params.Set("includeHistory", "false")
	return strings.TrimRight(c.baseURL, "/") + "/" + q.Dataflow + "/" + q.Key + "?" + params.Encode()
}

// Fetch downloads and flattens the observations selected by q. A response
// without any Series yields no observations and no error.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Observation, error) {
	if q.Dataflow == "" || q.Key == "" {
		return nil, errors.New("sdmx query needs a dataflow and a key")
	}
	endpoint := c.URL(q)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	obs, err := Parse(bytes.NewReader(body))
	if err != nil {
		requestsTotal.WithLabelValues("malformed").Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues("ok").Inc()
	c.log.Debug("sdmx fetch",
		zap.String("dataflow", q.Dataflow),
		zap.String("key", q.Key),
		zap.Int("observations", len(obs)),
	)
	return obs, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	maxAttempts := c.retryMaxAttempts
	backoff := c.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/xml")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if isRetryableNetErr(err) && attempt < maxAttempts {
				lastErr = err
				if err := sleepCtx(ctx, capDelay(withJitter(backoff), c.retryMaxDelay)); err != nil {
					return nil, err
				}
				backoff *= 2
				continue
			}
			return nil, &UnreachableError{Host: req.URL.Host, Err: err}
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			RequestID:  resp.Header.Get("X-Request-Id"),
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == maxAttempts {
			return nil, classifyAPIError(apiErr, resp)
		}
		lastErr = apiErr
		wait := capDelay(withJitter(backoff), c.retryMaxDelay)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		c.log.Warn("sdmx request failed, retrying",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

// errorMessage extracts the first text node of an SDMX error message, or a
// trimmed prefix of the raw body.
func errorMessage(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	inText := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "Text" || t.Name.Local == "ErrorMessage"
		case xml.CharData:
			if s := strings.TrimSpace(string(t)); inText && s != "" {
				return s
			}
		case xml.EndElement:
			inText = false
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}

func capDelay(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
