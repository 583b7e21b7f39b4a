package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/greenstudio/greenstudio/internal/model"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	proxyName           = "proxy"
	defaultProxyTimeout = 60 * time.Second
	maxBodySize         = 1 << 20 // 1 MB
	generatePath        = "/api/generate"
)

// GenerateRequest is the wire body of the generation endpoint.
type GenerateRequest struct {
	Prompt            string       `json:"prompt"`
	SystemInstruction string       `json:"systemInstruction,omitempty"`
	History           []model.Turn `json:"history,omitempty"`
}

// GenerateResponse is the wire reply of the generation endpoint.
type GenerateResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ProxyClient calls a remote generation endpoint, such as `greenstudio serve`.
type ProxyClient struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	logger   *zap.Logger
}

// NewProxyClient creates a client for baseURL. The generate path is appended
// unless baseURL already ends with it.
func NewProxyClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ProxyClient {
	if timeout <= 0 {
		timeout = defaultProxyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(endpoint, generatePath) {
		endpoint += generatePath
	}
	return &ProxyClient{
		endpoint: endpoint,
		timeout:  timeout,
		http:     &http.Client{},
		logger:   logger,
	}
}

// Generate posts the prompt and returns the generated text.
func (c *ProxyClient) Generate(ctx context.Context, prompt, systemInstruction string, history []model.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := sonic.Marshal(GenerateRequest{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		History:           history,
	})
	if err != nil {
		return "", &ProviderError{Provider: proxyName, Message: "encoding request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: proxyName, Message: "creating request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "greenstudio/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: proxyName, Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &ProviderError{Provider: proxyName, Message: "reading response", Err: err}
	}

	var out GenerateResponse
	decodeErr := sonic.Unmarshal(body, &out)

	c.logger.Debug("proxy generate",
		zap.String("endpoint", c.endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return "", &ProviderError{Provider: proxyName, Message: msg}
	}
	if decodeErr != nil {
		return "", &ProviderError{Provider: proxyName, Message: "malformed response", Err: decodeErr}
	}
	if out.Error != "" {
		return "", &ProviderError{Provider: proxyName, Message: out.Error}
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", &ProviderError{Provider: proxyName, Message: "empty response text"}
	}
	return out.Text, nil
}
