package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/types"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeThrottled = "throttled"
)

// Client talks to the recall HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Submit posts one event and returns its outcome.
func (c *Client) Submit(ctx context.Context, e model.StudyEvent) (string, error) {
	body, err := json.Marshal(types.FromModel(e))
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/revlog", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post revlog: %w", err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted, nil
	case http.StatusOK:
		return outcomeDuplicate, nil
	case http.StatusTooManyRequests:
		return outcomeThrottled, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}
}

// Retention fetches the report for nextDayStart.
func (c *Client) Retention(ctx context.Context, nextDayStart int64) (types.Retention, error) {
	url := c.baseURL + "/retention?next_day_start=" + strconv.FormatInt(nextDayStart, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return types.Retention{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return types.Retention{}, fmt.Errorf("get retention: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return types.Retention{}, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	var out types.Retention
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Retention{}, fmt.Errorf("decode retention: %w", err)
	}
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
