package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/harborins/concierge/agent/contract"
)

const maxToolResponseBytes = 2 << 20

// HTTPGatewayConfig configures the remote tool-subsystem client.
type HTTPGatewayConfig struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// HTTPGatewayOption customizes an HTTPGateway.
type HTTPGatewayOption func(*HTTPGateway)

func WithHTTPClient(client *http.Client) HTTPGatewayOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// HTTPGateway reaches the tool subsystem over HTTP: one POST per
// operation, JSON argument map in, JSON payload or typed error out.
type HTTPGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ contractx.ToolGateway = (*HTTPGateway)(nil)

type toolErrorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewHTTPGateway builds the remote client.
func NewHTTPGateway(cfg HTTPGatewayConfig, opts ...HTTPGatewayOption) (*HTTPGateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tool gateway base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tool gateway url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	g := &HTTPGateway{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Call invokes POST {base}/tools/{operation}. HTTP status codes map onto
// the four-way taxonomy: 404 not_found, 400/422 invalid_request,
// 503 unavailable, other 5xx and transport errors transient.
func (g *HTTPGateway) Call(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	if err := ValidateArgs(operation, args); err != nil {
		return nil, err
	}

	body, err := json.Marshal(args)
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrInvalidRequest, operation,
			fmt.Errorf("marshal args: %w", err))
	}

	endpoint := g.baseURL + "/tools/" + url.PathEscape(operation)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrInvalidRequest, operation,
			fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, contractx.NewToolError(contractx.ToolErrTransient, operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxToolResponseBytes))
	if err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrTransient, operation,
			fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(operation, resp.StatusCode, raw)
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, contractx.NewToolError(contractx.ToolErrTransient, operation,
			fmt.Errorf("decode payload: %w", err))
	}
	return payload, nil
}

func classifyStatus(operation string, status int, raw []byte) *contractx.ToolError {
	cause := fmt.Errorf("status %d", status)
	var body toolErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		cause = fmt.Errorf("status %d: %s", status, body.Error.Message)
	}

	// A kind reported by the subsystem itself wins over the status map.
	switch contractx.ToolErrorKind(body.Error.Kind) {
	case contractx.ToolErrTransient, contractx.ToolErrNotFound,
		contractx.ToolErrInvalidRequest, contractx.ToolErrUnavailable:
		return contractx.NewToolError(contractx.ToolErrorKind(body.Error.Kind), operation, cause)
	}

	switch {
	case status == http.StatusNotFound:
		return contractx.NewToolError(contractx.ToolErrNotFound, operation, cause)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return contractx.NewToolError(contractx.ToolErrInvalidRequest, operation, cause)
	case status == http.StatusServiceUnavailable:
		return contractx.NewToolError(contractx.ToolErrUnavailable, operation, cause)
	case status >= http.StatusInternalServerError || status == http.StatusTooManyRequests:
		return contractx.NewToolError(contractx.ToolErrTransient, operation, cause)
	default:
		// Unclassified; the invoker grants it the retry budget.
		return contractx.NewToolError(contractx.ToolErrTransient, operation, cause)
	}
}
