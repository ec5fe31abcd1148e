package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/nimasrn/ride-settlement/pkg/logger"
	"github.com/nimasrn/ride-settlement/pkg/prom"
	"github.com/valyala/fasthttp"
)

type Config struct {
	Providers               []ProviderConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	ReadBufferSize          int
	WriteBufferSize         int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	EvaluationInterval      time.Duration
}

type ProviderConfig struct {
	Name   string
	URL    string
	Weight int // 1-100
}

// Client captures payments against a pool of HTTP processors, routing each
// call to the best scoring provider and failing over on transport errors.
type Client struct {
	config    *Config
	providers []*Provider
	mu        sync.RWMutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

var _ Gateway = (*Client)(nil)

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if config.HealthCheckInterval <= 0 {
		config.HealthCheckInterval = 30 * time.Second
	}
	if config.EvaluationInterval <= 0 {
		config.EvaluationInterval = 30 * time.Second
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}

	c := &Client{
		config:    config,
		providers: make([]*Provider, 0, len(config.Providers)),
		stopCh:    make(chan struct{}),
	}

	for _, pc := range config.Providers {
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: time.Minute,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		}
		c.providers = append(c.providers, NewProvider(pc.Name, pc.URL, pc.Weight, httpClient))
		logger.Info("payment provider registered", "name", pc.Name, "url", pc.URL, "weight", pc.Weight)
	}

	c.wg.Add(2)
	go c.healthChecker()
	go c.evaluator()

	return c, nil
}

func (c *Client) Name() string { return "http" }

// SelectBestProvider picks the available provider with the highest score.
func (c *Client) SelectBestProvider() (*Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Provider
	var bestScore float64
	for _, p := range c.providers {
		score := p.Score()
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	if best == nil {
		return nil, ErrNoAvailableProviders
	}
	return best, nil
}

// Capture submits the charge. A decline is a response, not an error; errors
// mean the outcome is unknown and the capture may be retried with the same
// reference.
func (c *Client) Capture(ctx context.Context, req *CaptureRequest) (*CaptureResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capture: %w", err)
	}

	var resp CaptureResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/api/v1/payments/capture", body, &resp); err != nil {
		return nil, err
	}
	logger.Info("payment captured", "reference", req.Reference, "payment_id", req.PaymentID, "status", string(resp.Status), "provider", resp.Provider)
	return &resp, nil
}

func (c *Client) Status(ctx context.Context, transactionID string) (*CaptureResponse, error) {
	var resp CaptureResponse
	if err := c.call(ctx, fasthttp.MethodGet, "/api/v1/payments/"+url.PathEscape(transactionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, body []byte, out *CaptureResponse) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		provider, err := c.SelectBestProvider()
		if err != nil {
			lastErr = err
			continue
		}

		start := time.Now()
		raw, err := c.doRequest(ctx, provider, method, path, body)
		elapsed := time.Since(start)
		prom.ObserveGatewayDuration(provider.name, elapsed)

		if err != nil {
			provider.metrics.RecordFailure()
			c.checkCircuitBreaker(provider)
			logger.Warn("payment provider call failed", "provider", provider.name, "path", path, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		provider.metrics.RecordSuccess(elapsed.Milliseconds())

		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to unmarshal gateway response: %w", err)
		}
		if out.Provider == "" {
			out.Provider = provider.name
		}
		return nil
	}
	return fmt.Errorf("gateway call failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, provider *Provider, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK && code != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", code, resp.Body())
	}
	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) checkCircuitBreaker(provider *Provider) {
	fails := provider.metrics.ConsecutiveFails.Load()
	if fails < int32(c.config.CircuitBreakerThreshold) {
		return
	}
	provider.openCircuit(c.config.CircuitBreakerTimeout)
	logger.Warn("circuit breaker opened", "provider", provider.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
}

func (c *Client) snapshot() []*Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Provider(nil), c.providers...)
}

func (c *Client) healthChecker() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performHealthChecks()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	for _, p := range c.snapshot() {
		healthy := c.checkProviderHealth(ctx, p)
		p.lastHealthCheck.Store(time.Now().Unix())

		old := p.GetState()
		next := old
		switch {
		case !healthy:
			next = StateUnhealthy
		case old == StateUnhealthy || old == StateDegraded:
			next = StateHealthy
		}
		if next != old {
			p.SetState(next)
			logger.Info("payment provider state changed", "provider", p.name, "old_state", old.String(), "new_state", next.String())
		}
	}
}

func (c *Client) checkProviderHealth(ctx context.Context, p *Provider) bool {
	raw, err := c.doRequest(ctx, p, fasthttp.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &health); err != nil {
		return false
	}
	return health.Status == "healthy"
}

func (c *Client) evaluator() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.EvaluationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evaluateProviders()
		case <-c.stopCh:
			return
		}
	}
}

// evaluateProviders degrades slow or flaky providers and restores them once
// they recover. Open circuits are left to expire on their own.
func (c *Client) evaluateProviders() {
	for _, p := range c.snapshot() {
		state := p.GetState()
		if state == StateCircuitOpen {
			continue
		}
		rate := p.metrics.SuccessRate()
		avg := p.metrics.AvgLatencyMs()

		switch {
		case (rate < 0.8 || avg > 5000) && state != StateDegraded:
			p.SetState(StateDegraded)
			logger.Warn("payment provider degraded", "provider", p.name, "success_rate", rate, "avg_latency_ms", avg)
		case rate > 0.95 && avg < 2000 && state == StateDegraded:
			p.SetState(StateHealthy)
			logger.Info("payment provider recovered", "provider", p.name)
		}
	}
}

type ProviderStats struct {
	Name             string  `json:"name"`
	URL              string  `json:"url"`
	State            string  `json:"state"`
	Score            float64 `json:"score"`
	Captures         int64   `json:"captures"`
	Succeeded        int64   `json:"succeeded"`
	Errored          int64   `json:"errored"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	P95LatencyMs     int64   `json:"p95_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

// GetProviderStats returns per-provider statistics, best score first.
func (c *Client) GetProviderStats() []ProviderStats {
	providers := c.snapshot()
	stats := make([]ProviderStats, 0, len(providers))
	for _, p := range providers {
		stats = append(stats, ProviderStats{
			Name:             p.name,
			URL:              p.url,
			State:            p.GetState().String(),
			Score:            p.Score(),
			Captures:         p.metrics.Captures.Load(),
			Succeeded:        p.metrics.Succeeded.Load(),
			Errored:          p.metrics.Errored.Load(),
			SuccessRate:      p.metrics.SuccessRate(),
			AvgLatencyMs:     p.metrics.AvgLatencyMs(),
			P95LatencyMs:     p.metrics.P95LatencyMs(),
			ConsecutiveFails: p.metrics.ConsecutiveFails.Load(),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Score > stats[j].Score })
	return stats
}

func (c *Client) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	logger.Info("payment gateway client closed")
	return nil
}
