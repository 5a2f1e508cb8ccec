package kakao

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cb "github.com/zerodice0/readzone/pkg/circuit_breaker"
	"github.com/zerodice0/readzone/readzone/internal/errs"
)

const (
	searchPath     = "/v3/search/book"
	maxPageSize    = 50
	maxPage        = 50
	maxBodyBytes   = 4 << 20
	defaultTimeout = 5 * time.Second
)

type Config struct {
	BaseURL string
	APIKey  string
	RPS     float64
	Timeout time.Duration
}

// Client talks to the Kakao book search API. Every failure is returned as *errs.Error.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	breaker cb.CircuitBreaker
	log     *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = max(1, int(cfg.RPS))
	}
	return &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, burst),
		breaker: cb.New(cb.Settings{
			Window:           20,
			OpenTimeout:      30 * time.Second,
			FailureRatio:     0.5,
			RecoveryRequests: 2,
		}),
		log: log.Named("kakao"),
	}
}

// get runs one logical request: breaker, then at most two attempts when the first fails on the network.
func (c *Client) get(ctx context.Context, q url.Values) ([]byte, error) {
	var (
		body   []byte
		reqErr error
	)
	err := c.breaker.Call(func() error {
		for attempt := 1; attempt <= 2; attempt++ {
			body, reqErr = c.do(ctx, q)
			if errs.TypeOf(reqErr) != errs.NetworkError || ctx.Err() != nil {
				break
			}
			c.log.Warn("kakao network error, retrying", zap.Int("attempt", attempt), zap.Error(reqErr))
		}
		if isUpstreamFailure(reqErr) {
			return reqErr
		}
		return nil
	})
	if errors.Is(err, cb.ErrOpen) {
		return nil, errs.Wrap(err, errs.ServerError, "book search provider temporarily unavailable")
	}
	return body, reqErr
}

func isUpstreamFailure(err error) bool {
	switch errs.TypeOf(err) {
	case errs.ServerError, errs.Timeout, errs.NetworkError:
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, q url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Wrap(err, errs.Timeout, "book search provider timed out")
		}
		return nil, errs.Wrap(err, errs.RateLimitExceeded, "outbound rate limit exceeded")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.UnknownError, "create request")
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Wrap(err, errs.Timeout, "book search provider timed out")
		}
		return nil, errs.Wrap(err, errs.NetworkError, "book search provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.Wrap(err, errs.Timeout, "book search provider timed out")
		}
		return nil, errs.Wrap(err, errs.NetworkError, "read provider response")
	}
	c.log.Debug("kakao request",
		zap.String("query", q.Get("query")),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	if !gjson.ValidBytes(body) {
		return nil, errs.New(errs.ServerError, "malformed provider response")
	}
	return body, nil
}

func statusError(code int, body []byte) error {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = http.StatusText(code)
	}
	cause := fmt.Errorf("kakao status %d: %s", code, msg)
	switch {
	case code == http.StatusBadRequest:
		return errs.Wrap(cause, errs.InvalidParams, msg)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errs.Wrap(cause, errs.Unauthorized, "book search provider rejected credentials")
	case code == http.StatusTooManyRequests:
		return errs.Wrap(cause, errs.RateLimitExceeded, "book search provider rate limit exceeded")
	case code >= http.StatusInternalServerError:
		return errs.Wrap(cause, errs.ServerError, "book search provider error")
	}
	return errs.Wrap(cause, errs.UnknownError, msg)
}
