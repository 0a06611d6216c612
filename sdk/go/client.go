// Package miopssdk is a minimal Go client for the Miops HTTP API.
package miopssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Miops HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Client-side views of the API models (partial).
type ClientRecord struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	ManagerID      string  `json:"manager_id"`
	Label          string  `json:"label,omitempty"`
	Classification string  `json:"cs_classification"`
	Status         string  `json:"status"`
	MonthlyValue   float64 `json:"monthly_value"`
}

type TrackingRecord struct {
	ClientID        string  `json:"client_id"`
	ManagerID       string  `json:"manager_id"`
	LastMovedAt     string  `json:"last_moved_at"`
	Justification   *string `json:"justification,omitempty"`
	JustificationAt *string `json:"justification_at,omitempty"`
}

type WorkflowItem struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

type WorkflowState struct {
	Item      *WorkflowItem `json:"item,omitempty"`
	Remaining int           `json:"remaining"`
}

type ManagerStats struct {
	ManagerID           string `json:"manager_id"`
	ManagerName         string `json:"manager_name"`
	Otimo               int    `json:"otimo"`
	Bom                 int    `json:"bom"`
	Medio               int    `json:"medio"`
	Ruim                int    `json:"ruim"`
	Unlabeled           int    `json:"unlabeled"`
	Total               int    `json:"total"`
	ChurnsThisMonth     int    `json:"churns_this_month"`
	DocumentedYesterday bool   `json:"documented_yesterday"`
	HealthScore         int    `json:"health_score"`
}

type Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts"`
	Type     string `json:"type"`
	Table    string `json:"table"`
	EntityID string `json:"entity_id,omitempty"`
	ActorID  string `json:"actor_id"`
	Payload  string `json:"payload_json"`
}

// ChangePage wraps the change feed response.
type ChangePage struct {
	Events []Event `json:"events"`
	Cursor int64   `json:"cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// SetLabel sets a client's label.
func (c *Client) SetLabel(ctx context.Context, clientID, label string) (ClientRecord, error) {
	var resp ClientRecord
	endpoint := fmt.Sprintf("v1/clients/%s/label", url.PathEscape(clientID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"label": label}, &resp)
	return resp, err
}

// MarkMoved records a pipeline card move.
func (c *Client) MarkMoved(ctx context.Context, clientID string) (TrackingRecord, error) {
	var resp TrackingRecord
	endpoint := fmt.Sprintf("v1/clients/%s/moves", url.PathEscape(clientID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// WorkflowCurrent returns the item currently shown to the caller.
func (c *Client) WorkflowCurrent(ctx context.Context) (WorkflowState, error) {
	var resp WorkflowState
	err := c.do(ctx, http.MethodGet, "v1/workflow/current", nil, &resp)
	return resp, err
}

// WorkflowJustify files a justification for the shown item.
func (c *Client) WorkflowJustify(ctx context.Context, text string) (WorkflowState, error) {
	var resp WorkflowState
	err := c.do(ctx, http.MethodPost, "v1/workflow/justify", map[string]any{"text": text}, &resp)
	return resp, err
}

// WorkflowDismiss dismisses the shown item for this session.
func (c *Client) WorkflowDismiss(ctx context.Context) (WorkflowState, error) {
	var resp WorkflowState
	err := c.do(ctx, http.MethodPost, "v1/workflow/dismiss", nil, &resp)
	return resp, err
}

// ManagerReport returns the per-manager summary.
func (c *Client) ManagerReport(ctx context.Context) ([]ManagerStats, error) {
	var resp []ManagerStats
	err := c.do(ctx, http.MethodGet, "v1/reports/managers", nil, &resp)
	return resp, err
}

// Changes polls the change feed after the given cursor.
func (c *Client) Changes(ctx context.Context, after int64, limit int) (ChangePage, error) {
	endpoint := fmt.Sprintf("v1/changes?cursor=%d", after)
	if limit > 0 {
		endpoint = fmt.Sprintf("%s&limit=%d", endpoint, limit)
	}
	var resp ChangePage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
