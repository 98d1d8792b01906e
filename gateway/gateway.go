// Package gateway sends chat-completion requests to the configured model
// endpoint, either directly or through a relay, and maps failures onto a
// typed error taxonomy. Retry policy belongs to the caller: the gateway
// issues exactly one request per Send.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-price-analyzer/config"
	"github.com/aluiziolira/go-price-analyzer/models"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 1 << 20

// Client issues chat-completion requests.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	Metrics    *Metrics
}

// NewClient builds a gateway client configured from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway config: %w", err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		Metrics: NewMetrics(),
	}, nil
}

// SetTransport replaces the HTTP transport. Used by tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the provider's standard chat payload.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// relayRequest is the first-party relay payload; the relay injects the
// bearer header itself.
type relayRequest struct {
	APIKey      string    `json:"apiKey"`
	Messages    []message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage models.Usage `json:"usage"`
}

// Send issues a single POST for the envelope and returns the first
// choice's message content. The envelope is never mutated.
func (c *Client) Send(ctx context.Context, env models.RequestEnvelope) (string, models.Usage, error) {
	if err := config.ValidateAPIKey(c.cfg.APIKey); err != nil {
		c.Metrics.IncError("configuration")
		return "", models.Usage{}, ErrConfiguration{Reason: err.Error()}
	}
	if strings.TrimSpace(env.SystemPrompt) == "" || strings.TrimSpace(env.UserPrompt) == "" {
		c.Metrics.IncError("configuration")
		return "", models.Usage{}, ErrConfiguration{Reason: "envelope prompts cannot be empty"}
	}

	target, body, err := c.encodeRequest(env)
	if err != nil {
		return "", models.Usage{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", models.Usage{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.RelayURL == "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.Metrics.IncRequest("started")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.Metrics.ObserveDuration(time.Since(start))
	if err != nil {
		wrapped := ErrTransport{Err: err}
		c.Metrics.IncError(errorTypeLabel(wrapped))
		return "", models.Usage{}, wrapped
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		wrapped := ErrTransport{Err: fmt.Errorf("read response: %w", err)}
		c.Metrics.IncError(errorTypeLabel(wrapped))
		return "", models.Usage{}, wrapped
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mapped := statusError(resp.StatusCode, upstreamDetail(raw))
		c.Metrics.IncError(errorTypeLabel(mapped))
		return "", models.Usage{}, mapped
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		wrapped := ErrTransport{Err: fmt.Errorf("malformed upstream response: %w", err)}
		c.Metrics.IncError(errorTypeLabel(wrapped))
		return "", models.Usage{}, wrapped
	}
	if len(decoded.Choices) == 0 {
		wrapped := ErrTransport{Err: fmt.Errorf("upstream response has no choices")}
		c.Metrics.IncError(errorTypeLabel(wrapped))
		return "", models.Usage{}, wrapped
	}

	c.Metrics.IncRequest("completed")
	c.Metrics.AddTokens(decoded.Usage.PromptTokens, decoded.Usage.CompletionTokens)
	slog.Debug("model call completed",
		slog.String("model", env.Model),
		slog.Int("total_tokens", decoded.Usage.TotalTokens),
		slog.Int("response_length", len(decoded.Choices[0].Message.Content)),
	)

	return decoded.Choices[0].Message.Content, decoded.Usage, nil
}

// TestConnection issues a minimal request so the user can verify the key
// and endpoint. Unlike batch calls, any failure here is surfaced directly.
func (c *Client) TestConnection(ctx context.Context) error {
	env := models.RequestEnvelope{
		SystemPrompt: "You are a connectivity probe.",
		UserPrompt:   `Connection test. Reply with "OK".`,
		Model:        c.cfg.Model,
		Temperature:  c.cfg.Temperature,
		MaxTokens:    16,
	}
	_, _, err := c.Send(ctx, env)
	return err
}

func (c *Client) encodeRequest(env models.RequestEnvelope) (string, []byte, error) {
	messages := []message{
		{Role: "system", Content: env.SystemPrompt},
		{Role: "user", Content: env.UserPrompt},
	}

	if c.cfg.RelayURL != "" {
		body, err := json.Marshal(relayRequest{
			APIKey:      c.cfg.APIKey,
			Messages:    messages,
			Model:       env.Model,
			Temperature: env.Temperature,
			MaxTokens:   env.MaxTokens,
		})
		return c.cfg.RelayURL, body, err
	}

	body, err := json.Marshal(chatRequest{
		Model:       env.Model,
		Messages:    messages,
		Temperature: env.Temperature,
		MaxTokens:   env.MaxTokens,
	})
	return c.cfg.Endpoint, body, err
}

// upstreamDetail extracts the provider's error message when the body is
// the documented {"error": {"message": ...}} shape, falling back to the
// raw body text.
func upstreamDetail(raw []byte) string {
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}

	// Relay failures use a flat {error, code, details} body.
	var relayBody struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &relayBody); err == nil && relayBody.Error != "" {
		if relayBody.Details != "" {
			return relayBody.Error + ": " + relayBody.Details
		}
		return relayBody.Error
	}

	return strings.TrimSpace(string(raw))
}
