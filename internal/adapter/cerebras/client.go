// Package cerebras asks a hosted LLM for a wildfire risk assessment through
// the OpenAI-compatible chat completions API.
package cerebras

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/firms-fire-service/internal/domain"
)

const systemPrompt = `You are a real-time wildfire risk assessment AI.

Return ONLY valid JSON:
{
  "risk_level": "LOW | MEDIUM | HIGH | EXTREME",
  "spread_probability_12h": number between 0 and 1,
  "primary_risk_factors": [strings],
  "recommended_actions": [strings]
}`

const (
	temperature         = 0.2
	maxCompletionTokens = 400
)

// Client implements domain.RiskAnalyzer.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a risk analysis client.
func NewClient(apiKey, baseURL, model string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// AnalyzeFire sends the fire context as the user message and returns the
// model's reply verbatim.
func (c *Client) AnalyzeFire(ctx context.Context, fc domain.FireContext) (string, error) {
	userContent, err := json.Marshal(fc)
	if err != nil {
		return "", fmt.Errorf("encode fire context: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
		Temperature:         temperature,
		MaxCompletionTokens: maxCompletionTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("cerebras API error: status %d: %s", resp.StatusCode, snippet)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("cerebras returned no choices")
	}

	c.logger.Debug("risk analysis complete",
		"model", c.model,
		"prompt_tokens", decoded.Usage.PromptTokens,
		"completion_tokens", decoded.Usage.CompletionTokens,
	)
	return decoded.Choices[0].Message.Content, nil
}

// Chat completions wire types.

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string    `json:"model"`
	Messages            []message `json:"messages"`
	Temperature         float64   `json:"temperature"`
	MaxCompletionTokens int       `json:"max_completion_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
