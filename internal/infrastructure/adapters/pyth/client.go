// Package pyth fetches native token prices from the Pyth Hermes HTTP API for
// oracle fee mode.
package pyth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	domainerrors "github.com/solbridge/bridge_service/internal/domain/errors"
	"github.com/solbridge/bridge_service/pkg/metrics"
)

const (
	defaultBaseURL = "https://hermes.pyth.network"
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
)

// Config represents Pyth client configuration
type Config struct {
	BaseURL         string
	PriceFeedID     string
	Timeout         time.Duration
	Staleness       time.Duration
	RequestsPerSec  int
}

// Client fetches price updates from Hermes.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	logger         *zap.Logger
}

// NewClient creates a new Hermes price client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Staleness == 0 {
		config.Staleness = 60 * time.Second
	}
	if config.RequestsPerSec == 0 {
		config.RequestsPerSec = 10
	}

	cbSettings := gobreaker.Settings{
		Name:        "PythHermes",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Pyth circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
		logger:         logger,
	}
}

type priceUpdate struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// LatestPrice returns the USD price of the configured feed and its publish
// time. Quotes older than the staleness window are rejected.
func (c *Client) LatestPrice(ctx context.Context) (decimal.Decimal, time.Time, error) {
	endpoint := fmt.Sprintf("/v2/updates/price/latest?ids[]=%s", c.config.PriceFeedID)

	var update priceUpdate
	if err := c.doRequest(ctx, endpoint, &update); err != nil {
		metrics.OracleRequestsTotal.WithLabelValues("error").Inc()
		return decimal.Zero, time.Time{}, domainerrors.Wrap(domainerrors.ErrOracleUnavailable, err.Error())
	}

	if len(update.Parsed) == 0 {
		metrics.OracleRequestsTotal.WithLabelValues("empty").Inc()
		return decimal.Zero, time.Time{}, domainerrors.ErrOracleUnavailable
	}

	quote := update.Parsed[0].Price
	publishedAt := time.Unix(quote.PublishTime, 0)
	if time.Since(publishedAt) > c.config.Staleness {
		metrics.OracleRequestsTotal.WithLabelValues("stale").Inc()
		return decimal.Zero, publishedAt, domainerrors.ErrStalePrice
	}

	raw, err := decimal.NewFromString(quote.Price)
	if err != nil {
		return decimal.Zero, publishedAt, fmt.Errorf("invalid price %q: %w", quote.Price, err)
	}

	// Hermes returns a fixed-point integer with an exponent.
	price := raw.Shift(quote.Expo)
	metrics.OracleRequestsTotal.WithLabelValues("ok").Inc()
	return price, publishedAt, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, response interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doRequestInternal(ctx, endpoint, response)
	})
	return err
}

func (c *Client) doRequestInternal(ctx context.Context, endpoint string, response interface{}) error {
	fullURL := c.config.BaseURL + endpoint

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}

		// Retry on 5xx
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
		}

		if response != nil && len(body) > 0 {
			if err := json.Unmarshal(body, response); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}
