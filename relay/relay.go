// Package relay implements the first-party forwarding endpoint: it adds
// permissive CORS headers, injects the caller-supplied bearer key, and
// mirrors the upstream's status codes so the gateway behaves identically
// with or without it.
package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aluiziolira/go-price-analyzer/config"
)

// maxBodyBytes caps request and upstream bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the structured failure body.
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// chatRequest is the relay's inbound payload.
type chatRequest struct {
	APIKey      string          `json:"apiKey"`
	Messages    json.RawMessage `json:"messages"`
	Model       string          `json:"model"`
	Temperature *float64        `json:"temperature"`
	MaxTokens   *int            `json:"maxTokens"`
}

// upstreamRequest is the provider payload built from the inbound one.
type upstreamRequest struct {
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

// Handler forwards chat requests to the configured upstream.
type Handler struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewHandler builds the relay handler.
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// SetTransport replaces the upstream HTTP transport. Used by tests.
func (h *Handler) SetTransport(rt http.RoundTripper) {
	h.httpClient.Transport = rt
}

// Router wires the relay routes with CORS handling.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	r.Post("/api/chat", h.handleChat)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"error":          "Method not allowed",
			"allowedMethods": []string{http.MethodPost},
		})
	})
	return r
}

// cors sets permissive cross-origin headers; that is the relay's entire
// reason to exist.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Failed to read request body", Code: "JSON_PARSE_ERROR", Details: err.Error(),
		})
		return
	}

	var inbound chatRequest
	if err := json.Unmarshal(body, &inbound); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid JSON in request body", Code: "JSON_PARSE_ERROR", Details: err.Error(),
		})
		return
	}

	if inbound.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "API key is required", Code: "MISSING_API_KEY",
		})
		return
	}
	if !strings.HasPrefix(inbound.APIKey, config.KeyPrefix) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid API key format", Code: "INVALID_API_KEY",
		})
		return
	}
	if len(inbound.Messages) == 0 || string(inbound.Messages) == "null" || string(inbound.Messages) == "[]" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Messages array is required", Code: "MISSING_MESSAGES",
		})
		return
	}

	outbound := upstreamRequest{
		Model:       h.cfg.Model,
		Messages:    inbound.Messages,
		MaxTokens:   h.cfg.MaxTokens,
		Temperature: h.cfg.Temperature,
	}
	if inbound.Model != "" {
		outbound.Model = inbound.Model
	}
	if inbound.MaxTokens != nil {
		outbound.MaxTokens = *inbound.MaxTokens
	}
	if inbound.Temperature != nil {
		outbound.Temperature = *inbound.Temperature
	}

	payload, err := json.Marshal(outbound)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Internal server error", Code: "INTERNAL_ERROR", Details: err.Error(),
		})
		return
	}

	upstreamReq, err := http.NewRequestWithContext(req.Context(), http.MethodPost, h.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Internal server error", Code: "INTERNAL_ERROR", Details: err.Error(),
		})
		return
	}
	upstreamReq.Header.Set("Content-Type", "application/json")
	upstreamReq.Header.Set("Authorization", "Bearer "+inbound.APIKey)

	start := time.Now()
	resp, err := h.httpClient.Do(upstreamReq)
	if err != nil {
		slog.Error("upstream connection failed", slog.Any("error", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: "Failed to connect to upstream API", Code: "CONNECTION_ERROR", Details: err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	upstreamBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: "Failed to read upstream response", Code: "CONNECTION_ERROR", Details: err.Error(),
		})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.mirrorUpstreamError(w, resp.StatusCode, upstreamBody)
		return
	}

	slog.Debug("relayed model call",
		slog.String("model", outbound.Model),
		slog.Duration("duration", time.Since(start)),
	)

	// Success: return the upstream JSON verbatim.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(upstreamBody)
}

// mirrorUpstreamError maps upstream failures onto the documented status
// codes, carrying the provider's message as details.
func (h *Handler) mirrorUpstreamError(w http.ResponseWriter, status int, body []byte) {
	details := "Unknown error"
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		details = decoded.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "Invalid API key", Code: "INVALID_API_KEY", Details: details,
		})
	case http.StatusTooManyRequests:
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: "Upstream rate limit exceeded", Code: "RATE_LIMIT", Details: details,
		})
	case http.StatusBadRequest:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Invalid request to upstream API", Code: "BAD_REQUEST", Details: details,
		})
	default:
		writeJSON(w, status, errorResponse{
			Error: "Upstream API error", Code: "UPSTREAM_ERROR", Details: details,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("write response failed", slog.Any("error", err))
	}
}
