// Package remote implements the Retell REST client behind the sync engine's
// AgentService interface. It manages the two remote resource kinds (LLM and
// agent) and nothing else: no call-time behavior, no live sessions.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/voicelayer/retellsync/internal/core"
)

const (
	defaultBaseURL = "https://api.retellai.com"
	defaultTimeout = 30 * time.Second
)

// ClientConfig holds the resolved credentials and tuning for one workspace.
type ClientConfig struct {
	APIKey  string
	BaseURL string        // defaults to the public Retell endpoint
	Timeout time.Duration // bounds every request; defaults to 30s
}

// Client is the Retell API client. All calls are bounded by the configured
// timeout; cancellation mid-call follows the context contract.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ core.AgentService = (*Client)(nil)

// NewClient creates a Retell client for one workspace's credentials.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// CreateLLM creates the remote LLM resource and returns its minted id.
func (c *Client) CreateLLM(ctx context.Context, payload core.RemoteLLMPayload) (core.LLMID, error) {
	var out struct {
		LLMID string `json:"llm_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-retell-llm", payload, &out); err != nil {
		return "", err
	}
	if out.LLMID == "" {
		return "", &Error{Kind: KindAPI, Message: "create-retell-llm response carried no llm_id"}
	}
	return core.LLMID(out.LLMID), nil
}

func (c *Client) UpdateLLM(ctx context.Context, id core.LLMID, payload core.RemoteLLMPayload) error {
	return c.do(ctx, http.MethodPatch, "/update-retell-llm/"+string(id), payload, nil)
}

func (c *Client) GetLLM(ctx context.Context, id core.LLMID) (*core.RemoteLLMPayload, error) {
	var out core.RemoteLLMPayload
	if err := c.do(ctx, http.MethodGet, "/get-retell-llm/"+string(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteLLM(ctx context.Context, id core.LLMID) error {
	return c.do(ctx, http.MethodDelete, "/delete-retell-llm/"+string(id), nil, nil)
}

// CreateAgent creates the remote agent resource and returns its minted id.
func (c *Client) CreateAgent(ctx context.Context, payload core.RemoteAgentPayload) (core.AgentID, error) {
	var out struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-agent", payload, &out); err != nil {
		return "", err
	}
	if out.AgentID == "" {
		return "", &Error{Kind: KindAPI, Message: "create-agent response carried no agent_id"}
	}
	return core.AgentID(out.AgentID), nil
}

func (c *Client) UpdateAgent(ctx context.Context, id core.AgentID, payload core.RemoteAgentPayload) error {
	return c.do(ctx, http.MethodPatch, "/update-agent/"+string(id), payload, nil)
}

func (c *Client) GetAgent(ctx context.Context, id core.AgentID) (*core.RemoteAgentPayload, error) {
	var out core.RemoteAgentPayload
	if err := c.do(ctx, http.MethodGet, "/get-agent/"+string(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAgent(ctx context.Context, id core.AgentID) error {
	return c.do(ctx, http.MethodDelete, "/delete-agent/"+string(id), nil, nil)
}

// do runs one request: marshal body, bearer auth, decode response. Any
// non-2xx status maps to a typed *Error; transport failures map to
// KindConnection.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindConnection, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("retell api call")

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindConnection, Message: "reading response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Kind: KindAPI, Status: resp.StatusCode, Message: "decoding response: " + err.Error(), Err: err}
		}
	}
	return nil
}

// errorMessage extracts the service's error message from a failure body,
// falling back to the HTTP status text.
func errorMessage(body []byte, status int) string {
	for _, field := range []string{"error_message", "message", "error"} {
		if msg := gjson.GetBytes(body, field).String(); msg != "" {
			return msg
		}
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) < 200 {
		return trimmed
	}
	return http.StatusText(status)
}
