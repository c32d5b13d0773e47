package falclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultQueueEndpoint is the fal queue base URL
	DefaultQueueEndpoint = "https://queue.fal.run"
	// DefaultPollInterval is the delay between status polls
	DefaultPollInterval = 10 * time.Second
	// DefaultMaxAttempts bounds the poll loop (~5 minutes at the default interval)
	DefaultMaxAttempts = 30
)

// Operation labels used when wrapping failures at the job boundary
const (
	opGenerateVideo = "generating video"
	opGenerateImage = "generating image"
)

// Config holds fal queue client configuration
type Config struct {
	QueueEndpoint  string        // base URL, defaults to DefaultQueueEndpoint
	APIKey         string        // fal API key, required
	PollInterval   time.Duration // delay between status polls
	MaxAttempts    int           // poll attempt cap, 0 disables the cap
	RequestTimeout time.Duration // per-request HTTP timeout, 0 means no timeout
	Logger         *slog.Logger
}

// Client submits generation jobs to the fal queue API, polls them to
// completion and downloads the result asset to disk. One job per call;
// concurrent calls are independent and share no mutable state.
type Client struct {
	queueEndpoint string
	apiKey        string
	pollInterval  time.Duration
	maxAttempts   int
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a new fal queue client
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: fal API key is required", ErrValidation)
	}

	endpoint := cfg.QueueEndpoint
	if endpoint == "" {
		endpoint = DefaultQueueEndpoint
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		queueEndpoint: endpoint,
		apiKey:        cfg.APIKey,
		pollInterval:  interval,
		maxAttempts:   cfg.MaxAttempts,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:        logger,
	}, nil
}

// VideoRequest describes a text-to-video generation job
type VideoRequest struct {
	Prompt    string
	Duration  float64 // seconds, omitted from the payload when zero
	SaveAt    string  // destination file path for the rendered video
	ModelName string
}

// VideoResult is returned on successful video generation
type VideoResult struct {
	Status    string `json:"status"`
	VideoPath string `json:"video_path"`
}

// ImageRequest describes an image-to-image transformation job
type ImageRequest struct {
	ImageURL  string
	Prompt    string
	SaveAt    string
	ModelName string
}

// ImageResult is returned on successful image generation
type ImageResult struct {
	Status    string `json:"status"`
	ImageURL  string `json:"image_url"`
	ImagePath string `json:"image_path"`
}

// Submission holds the two resource locators returned by the queue on submit
type Submission struct {
	StatusURL   string
	ResponseURL string
}

// Wire-level response shapes
type queueSubmission struct {
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueStatus struct {
	Status *string `json:"status"`
}

type videoResponse struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

type imageResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// GenerateVideo submits a text-to-video job, polls it to completion and
// writes the rendered video to req.SaveAt. Any failure is wrapped once into
// a *JobError carrying the original cause.
func (c *Client) GenerateVideo(ctx context.Context, req *VideoRequest) (*VideoResult, error) {
	payload := map[string]interface{}{
		"prompt": req.Prompt,
	}
	if req.Duration > 0 {
		payload["duration"] = req.Duration
	}

	if _, err := c.runJob(ctx, req.ModelName, payload, extractVideoURL, req.SaveAt); err != nil {
		return nil, newJobError(opGenerateVideo, err)
	}

	return &VideoResult{Status: "success", VideoPath: req.SaveAt}, nil
}

// GenerateImage submits an image-to-image job, polls it to completion and
// writes the first result image to req.SaveAt. Input is validated before
// any network call is made.
func (c *Client) GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if req.ImageURL == "" {
		return nil, newJobError(opGenerateImage, fmt.Errorf("%w: image_url is required", ErrValidation))
	}
	if req.SaveAt == "" {
		return nil, newJobError(opGenerateImage, fmt.Errorf("%w: save_at is required", ErrValidation))
	}
	if req.Prompt == "" {
		return nil, newJobError(opGenerateImage, fmt.Errorf("%w: prompt is required", ErrValidation))
	}

	payload := map[string]interface{}{
		"image_url": req.ImageURL,
		"prompt":    req.Prompt,
	}

	assetURL, err := c.runJob(ctx, req.ModelName, payload, extractImageURL, req.SaveAt)
	if err != nil {
		return nil, newJobError(opGenerateImage, err)
	}

	return &ImageResult{Status: "success", ImageURL: assetURL, ImagePath: req.SaveAt}, nil
}

// runJob composes submit -> pollUntilDone -> fetchAndStore. The extractor
// parametrizes the result shape so both job types share one poll loop.
func (c *Client) runJob(ctx context.Context, model string, payload map[string]interface{}, extract func([]byte) (string, error), saveAt string) (string, error) {
	sub, err := c.submit(ctx, model, payload)
	if err != nil {
		return "", err
	}

	assetURL, err := c.pollUntilDone(ctx, sub, extract)
	if err != nil {
		return "", err
	}

	if err := c.fetchAndStore(ctx, assetURL, saveAt); err != nil {
		return "", err
	}

	return assetURL, nil
}

// submit POSTs the job payload to the queue and returns the status/response
// locators. A response missing either locator is a protocol error.
func (c *Client) submit(ctx context.Context, model string, payload map[string]interface{}) (*Submission, error) {
	endpoint := c.queueEndpoint + "/" + model

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	c.logger.Info("Submitting job to fal queue",
		slog.String("model", model),
		slog.String("endpoint", endpoint),
	)

	respBody, err := c.doRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var sub queueSubmission
	if err := json.Unmarshal(respBody, &sub); err != nil {
		return nil, fmt.Errorf("%w: malformed submission body: %v", ErrProtocol, err)
	}

	if sub.StatusURL == "" || sub.ResponseURL == "" {
		return nil, fmt.Errorf("%w: submission response missing 'status_url' or 'response_url'", ErrProtocol)
	}

	return &Submission{StatusURL: sub.StatusURL, ResponseURL: sub.ResponseURL}, nil
}

// pollUntilDone GETs the status locator on the configured interval until the
// job completes, then fetches the result once and runs the extractor on it.
// With a non-zero attempt cap the loop fails with ErrTimeout after exactly
// maxAttempts polls.
func (c *Client) pollUntilDone(ctx context.Context, sub *Submission, extract func([]byte) (string, error)) (string, error) {
	for attempt := 0; ; attempt++ {
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			return "", fmt.Errorf("%w: job still pending after %d polls", ErrTimeout, attempt)
		}

		statusBody, err := c.doRequest(ctx, http.MethodGet, sub.StatusURL, nil)
		if err != nil {
			return "", err
		}

		var st queueStatus
		if err := json.Unmarshal(statusBody, &st); err != nil {
			return "", fmt.Errorf("%w: malformed status body: %v", ErrProtocol, err)
		}
		if st.Status == nil {
			return "", fmt.Errorf("%w: status response missing 'status'", ErrProtocol)
		}

		status := Status(*st.Status)

		c.logger.Debug("Polled job status",
			slog.String("status", string(status)),
			slog.Int("attempt", attempt+1),
		)

		switch {
		case status.IsPending():
			if err := c.wait(ctx); err != nil {
				return "", err
			}

		case status == StatusCompleted:
			resultBody, err := c.doRequest(ctx, http.MethodGet, sub.ResponseURL, nil)
			if err != nil {
				return "", err
			}
			return extract(resultBody)

		default:
			return "", fmt.Errorf("%w: unknown job status %q", ErrProtocol, status)
		}
	}
}

// wait sleeps for one poll interval, returning early if ctx is canceled.
// This is the suspension point callers can layer an abort signal over.
func (c *Client) wait(ctx context.Context) error {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchAndStore downloads the asset bytes and streams them to dest,
// overwriting any existing file.
func (c *Client) fetchAndStore(ctx context.Context, assetURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: asset fetch returned status %d", ErrNetwork, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	c.logger.Info("Asset stored",
		slog.String("path", dest),
	)

	return nil
}

// doRequest performs an authorized request against the queue API and returns
// the response body. Transport failures map to ErrNetwork, non-2xx responses
// to ErrProtocol.
func (c *Client) doRequest(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req.Header.Set("authorization", "Key "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: queue service returned status %d", ErrProtocol, resp.StatusCode)
	}

	return respBody, nil
}

// extractVideoURL pulls the single video URL out of a completed job response
func extractVideoURL(body []byte) (string, error) {
	var res videoResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("%w: malformed result body: %v", ErrProtocol, err)
	}

	if res.Video.URL == "" {
		return "", fmt.Errorf("%w: result carries no video url", ErrEmptyResult)
	}

	return res.Video.URL, nil
}

// extractImageURL pulls the first image URL out of a completed job response
func extractImageURL(body []byte) (string, error) {
	var res imageResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("%w: malformed result body: %v", ErrProtocol, err)
	}

	if len(res.Images) == 0 {
		return "", fmt.Errorf("%w: result carries no images", ErrEmptyResult)
	}
	if res.Images[0].URL == "" {
		return "", fmt.Errorf("%w: first image entry has an empty url", ErrEmptyResult)
	}

	return res.Images[0].URL, nil
}
