package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voice-agent-dashboard/internal/calls"
)

// Config controls the platform client. APIKey is a single shared secret read
// from process configuration, never from the caller.
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each request. Defaults to 15s.
	Timeout time.Duration

	// HTTPClient is optional; tests inject httptest clients here.
	HTTPClient *http.Client
}

// Client talks to the voice-agent platform. Every call is attempted once;
// there is no retry.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	hc      *http.Client
}

const maxErrorBody = 2048

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("platform: base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("platform: api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: base, apiKey: cfg.APIKey, timeout: cfg.Timeout, hc: hc}, nil
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
	Status  string `json:"status,omitempty"`
}

// CreateAgent registers a new agent and returns the platform's agent id.
func (c *Client) CreateAgent(ctx context.Context, doc Document) (string, error) {
	var out createAgentResponse
	if err := c.do(ctx, "create_agent", http.MethodPost, "/v2/agent", nil, doc, &out); err != nil {
		return "", err
	}
	if out.AgentID == "" {
		return "", &Error{Op: "create_agent", Err: fmt.Errorf("%w: missing agent_id", ErrMalformed)}
	}
	return out.AgentID, nil
}

// GetAgent reads the editable fields of an agent.
func (c *Client) GetAgent(ctx context.Context, externalID string) (AgentView, error) {
	if externalID == "" {
		return AgentView{}, errors.New("platform: external id required")
	}
	var out agentResponse
	if err := c.do(ctx, "get_agent", http.MethodGet, "/v2/agent/"+url.PathEscape(externalID), nil, nil, &out); err != nil {
		return AgentView{}, err
	}
	return out.view(), nil
}

// UpdateAgent replaces the agent configuration with doc.
func (c *Client) UpdateAgent(ctx context.Context, externalID string, doc Document) error {
	if externalID == "" {
		return errors.New("platform: external id required")
	}
	return c.do(ctx, "update_agent", http.MethodPut, "/v2/agent/"+url.PathEscape(externalID), nil, doc, nil)
}

// DeleteAgent removes an agent at the platform.
func (c *Client) DeleteAgent(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("platform: external id required")
	}
	return c.do(ctx, "delete_agent", http.MethodDelete, "/v2/agent/"+url.PathEscape(externalID), nil, nil, nil)
}

type callRequest struct {
	AgentID              string `json:"agent_id"`
	RecipientPhoneNumber string `json:"recipient_phone_number"`
}

// InitiateCall asks the platform to originate an outbound call. Only the HTTP
// accept is awaited.
func (c *Client) InitiateCall(ctx context.Context, externalID, phoneNumber string) error {
	if externalID == "" {
		return errors.New("platform: external id required")
	}
	return c.do(ctx, "initiate_call", http.MethodPost, "/call", nil, callRequest{
		AgentID:              externalID,
		RecipientPhoneNumber: phoneNumber,
	}, nil)
}

// ListExecutions fetches one page of an agent's call executions. page is 1-based.
func (c *Client) ListExecutions(ctx context.Context, externalID string, page, pageSize int) (calls.Page, error) {
	if externalID == "" {
		return calls.Page{}, errors.New("platform: external id required")
	}
	q := url.Values{}
	q.Set("page_number", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var out pageWire
	path := "/v2/agent/" + url.PathEscape(externalID) + "/executions"
	if err := c.do(ctx, "list_executions", http.MethodGet, path, q, nil, &out); err != nil {
		return calls.Page{}, err
	}
	p := out.page()
	if p.PageNumber == 0 {
		p.PageNumber = page
	}
	if p.PageSize == 0 {
		p.PageSize = pageSize
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := encodeJSON(body)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}
