package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config holds settings for the remote OCR service.
type Config struct {
	Endpoint string
	APIToken string
	Timeout  time.Duration
}

// HTTPClient calls a remote OCR service over HTTP. One request recognizes
// one page; the per-call timeout bounds how long a slow service can stall a
// pipeline worker.
type HTTPClient struct {
	config     *Config
	httpClient *http.Client
}

// NewHTTPClient creates a client for the configured OCR endpoint.
func NewHTTPClient(cfg *Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type recognizeRequest struct {
	Document string `json:"document"` // base64 of the original document bytes
	Page     int    `json:"page"`
}

type recognizeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		Text string `json:"text"`
	} `json:"data"`
}

// RecognizePage posts the document and page number to the OCR service and
// returns the recognized text.
func (c *HTTPClient) RecognizePage(ctx context.Context, document []byte, page int) (string, error) {
	reqBody := recognizeRequest{
		Document: base64.StdEncoding.EncodeToString(document),
		Page:     page,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/ocr/page", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service returned %d: %s", resp.StatusCode, string(body))
	}

	var result recognizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	if result.Code != 0 {
		return "", fmt.Errorf("OCR service error: %s", result.Message)
	}
	return result.Data.Text, nil
}
