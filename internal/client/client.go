// Package client is a typed HTTP client for the pledge API. It unwraps the
// server's response envelope and maps error payloads onto typed errors the
// kiosk UI can branch on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Student is a roster entry as served by the API.
type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Grade      string `json:"grade"`
	PledgeCode string `json:"pledgeCode"`
}

// Pledge is one pledge text keyed by its short code.
type Pledge struct {
	ID         string `json:"id"`
	PledgeCode string `json:"pledgeCode"`
	PledgeText string `json:"pledgeText"`
}

// Submission carries everything needed for one video upload.
type Submission struct {
	StudentID string
	Name      string
	Grade     string
	Celebrity string
	Filename  string
	MIME      string
	Data      []byte
}

// UploadResult echoes what the server stored.
type UploadResult struct {
	Filename string `json:"filename"`
	VideoRef string `json:"videoRef"`
}

// APIError is a typed error decoded from the server's error envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsConflict reports whether err is a duplicate-submission rejection.
func IsConflict(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusConflict
}

// IsTransient reports whether the failure is worth retrying: server faults
// are, client mistakes are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Status >= http.StatusInternalServerError
	}
	// Network-level failures never produced an envelope.
	return true
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// Config tunes the client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	HealthAttempts int
	HealthBackoff  time.Duration
}

// Client talks to one pledge API server.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *zap.Logger
	healthAttempts int
	healthBackoff  time.Duration
}

// New builds a client. Zero-value config fields fall back to sane defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HealthAttempts <= 0 {
		cfg.HealthAttempts = 5
	}
	if cfg.HealthBackoff <= 0 {
		cfg.HealthBackoff = 500 * time.Millisecond
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		logger:         logger,
		healthAttempts: cfg.HealthAttempts,
		healthBackoff:  cfg.HealthBackoff,
	}
}

// ListNotSubmitted fetches roster entries still awaiting a video, optionally
// restricted to one grade.
func (c *Client) ListNotSubmitted(ctx context.Context, grade string) ([]Student, error) {
	path := "/api/users"
	if grade != "" {
		path = "/api/users/grade/" + url.PathEscape(grade)
	}
	var students []Student
	if err := c.getJSON(ctx, path, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// PledgeByCode fetches the pledge text for a short code. An unknown code
// returns a not-found APIError.
func (c *Client) PledgeByCode(ctx context.Context, code string) (*Pledge, error) {
	var pledge Pledge
	if err := c.getJSON(ctx, "/api/pledges/"+url.PathEscape(code), &pledge); err != nil {
		return nil, err
	}
	return &pledge, nil
}

// UploadVideo posts one recording as multipart form data.
func (c *Client) UploadVideo(ctx context.Context, sub Submission) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := []struct{ key, value string }{
		{"name", sub.Name},
		{"grade", sub.Grade},
		{"celebrity", sub.Celebrity},
		{"studentId", sub.StudentID},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.key, f.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.key, err)
		}
	}

	filename := sub.Filename
	if filename == "" {
		filename = "pledge.webm"
	}
	part, err := writer.CreateFormFile("video", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(sub.Data); err != nil {
		return nil, fmt.Errorf("write video data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/videos", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	c.logger.Info("video uploaded",
		zap.String("student_id", sub.StudentID),
		zap.String("filename", result.Filename),
	)
	return &result, nil
}

// Health probes the server with bounded retries and doubling backoff, so the
// kiosk can wait out a server that is still starting.
func (c *Client) Health(ctx context.Context) error {
	var lastErr error
	backoff := c.healthBackoff
	for attempt := 1; attempt <= c.healthAttempts; attempt++ {
		err := c.healthOnce(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("health check failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == c.healthAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("server unhealthy after %d attempts: %w", c.healthAttempts, lastErr)
}

func (c *Client) healthOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// do executes the request and unwraps the envelope. Error payloads win over
// the data payload regardless of status code.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		env.Error.Status = resp.StatusCode
		return env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}
