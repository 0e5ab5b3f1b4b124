package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ugc_producer/internal/domain"
)

const ProviderID = "sora"

// Config holds vendor client configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	PollInterval      time.Duration
	RequestsPerMinute int
	EstimateCents     int64
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// Client drives one production job against the video generation API: submit,
// then poll until the job completes, fails, or the caller's deadline passes.
// Only the submit call is retried; once a job is accepted the vendor owns it
// and a second submission would double-charge.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	pollInterval   time.Duration
	estimateCents  int64
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		pollInterval:   cfg.PollInterval,
		estimateCents:  cfg.EstimateCents,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:         logger.With("pipeline", ProviderID),
	}
}

// EstimateCost returns a conservative upper bound on the cost of one
// production, checked against the daily cap before the job is submitted.
func (c *Client) EstimateCost(ch *domain.Channel) int64 {
	return c.estimateCents
}

// Produce runs one production job to completion. The returned error is a
// *domain.ProductionError carrying any non-refundable partial cost the vendor
// reports for a failed job.
func (c *Client) Produce(ctx context.Context, ch *domain.Channel) (*domain.Artifact, error) {
	job, err := c.submitJob(ctx, ch)
	if err != nil {
		return nil, &domain.ProductionError{Stage: "submit", Err: err}
	}

	c.logger.Info("production job submitted",
		"channel_id", ch.ID,
		"job_id", job.ID,
	)

	return c.awaitJob(ctx, ch, job.ID)
}

func (c *Client) submitJob(ctx context.Context, ch *domain.Channel) (*jobResponse, error) {
	req := submitRequest{
		ChannelID:  ch.ID,
		Platform:   string(ch.Platform),
		Username:   ch.Username,
		TemplateID: ch.TemplateID,
	}

	var resp *jobResponse
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err = c.doSubmit(ctx, req)
		if err == nil {
			return resp, nil
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("submit failed, retrying",
			"channel_id", ch.ID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

func (c *Client) awaitJob(ctx context.Context, ch *domain.Channel, jobID string) (*domain.Artifact, error) {
	for {
		select {
		case <-ctx.Done():
			// The job may still complete on the vendor side; the lease TTL
			// covers the window until the channel is safe to retry.
			return nil, &domain.ProductionError{Stage: "render", Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}

		job, err := c.getJob(ctx, jobID)
		if err != nil {
			// Poll failures are transient as long as the deadline holds.
			c.logger.Warn("status poll failed",
				"job_id", jobID,
				"error", err,
			)
			continue
		}

		switch job.Status {
		case jobStatusCompleted:
			return &domain.Artifact{
				Reference:  job.VideoURL,
				CostCents:  job.CostCents,
				ProducedAt: time.Now().UTC(),
			}, nil
		case jobStatusFailed:
			return nil, &domain.ProductionError{
				Stage:            job.FailedStage,
				PartialCostCents: job.PartialCostCents,
				Err:              errors.New(job.Error),
			}
		default:
			c.logger.Debug("job in progress",
				"job_id", jobID,
				"status", job.Status,
			)
		}
	}
}

func (c *Client) doSubmit(ctx context.Context, req submitRequest) (*jobResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/videos", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.doRequest(httpReq)
}

func (c *Client) getJob(ctx context.Context, jobID string) (*jobResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/videos/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.doRequest(httpReq)
}

func (c *Client) doRequest(req *http.Request) (*jobResponse, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &job, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}
