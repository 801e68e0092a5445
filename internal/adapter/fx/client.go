// Package fx is a client for Frankfurter-style exchange rate services.
package fx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/txpipeline/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.frankfurter.dev/v1"
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3

	latestPath = "latest"
)

// Config holds Client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client implements usecase.RateService.
type Client struct {
	baseURL         string
	http            *http.Client
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          zerolog.Logger
}

type ratesResponse struct {
	Rates map[string]decimal.NullDecimal `json:"rates"`
}

// statusError carries a non-success HTTP status.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d", domain.ErrRateServiceStatus, e.code)
}

func (e *statusError) Unwrap() error { return domain.ErrRateServiceStatus }

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient(cfg.Timeout)
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		http:            cfg.HTTPClient,
		maxRetries:      cfg.MaxRetries,
		initialInterval: 200 * time.Millisecond,
		maxInterval:     2 * time.Second,
		logger:          cfg.Logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Rate returns the rate converting one unit of currency into reference on
// date, or the latest rate when date is null. A response without the
// reference rate, or with a null one, yields a null rate and no error.
func (c *Client) Rate(ctx context.Context, currency, reference string, date sql.NullString) (decimal.NullDecimal, error) {
	path := latestPath
	if date.Valid && date.String != "" {
		path = date.String
	}

	q := url.Values{}
	q.Set("from", strings.ToUpper(currency))
	q.Set("to", strings.ToUpper(reference))
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(path), q.Encode())

	var resp ratesResponse
	if err := c.retry(ctx, func() error {
		return c.get(ctx, endpoint, &resp)
	}); err != nil {
		return decimal.NullDecimal{}, err
	}

	// Absent and null rates are both unavailable.
	rate := resp.Rates[strings.ToUpper(reference)]
	if !rate.Valid {
		return decimal.NullDecimal{}, nil
	}
	return rate, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out *ratesResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRateServiceUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &statusError{code: res.StatusCode}
	}

	*out = ratesResponse{}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRateServiceResponse, err)
	}
	return nil
}

// retry re-runs operation on network errors and 5xx statuses; 4xx and
// malformed responses fail immediately.
func (c *Client) retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = 0

	retryCount := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > c.maxRetries {
			return backoff.Permanent(err)
		}

		c.logger.Warn().Err(err).Int("retry", retryCount).Msg("rate service request failed, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return errors.Is(err, domain.ErrRateServiceUnavailable)
}
