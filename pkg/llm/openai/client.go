// Package openai implements llm.Provider for any OpenAI-compatible
// chat-completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tourgen/pkg/config"
	"tourgen/pkg/llm"
	"tourgen/pkg/model"
	"tourgen/pkg/request"
)

// Client implements llm.Provider for any OpenAI-compatible API.
type Client struct {
	rc          *request.Client
	apiKey      string
	baseURL     string
	modelName   string
	maxTokens   int
	temperature float32
}

// Request follows the standard OpenAI Chat Completions format.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response follows the standard Chat Completions response format.
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new OpenAI client.
func NewClient(cfg config.ProviderConfig, maxTokens int, temperature float32, rc *request.Client) (*Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &Client{
		rc:          rc,
		apiKey:      cfg.Key,
		baseURL:     baseURL,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
	}, nil
}

func (c *Client) Info() model.ModelInfo {
	return model.ModelInfo{Provider: "openai", Model: c.modelName}
}

// Complete sends the prompt pair and returns the model's text.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("api key is missing")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}

	var messages []Message
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, Message{Role: "user", Content: req.User})

	oreq := Request{
		Model:       c.modelName,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temp,
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}

	respBody, err := c.rc.PostWithHeaders(ctx, c.baseURL+"/chat/completions", body, headers)
	if err != nil {
		return "", err
	}

	var oresp Response
	if err := json.Unmarshal(respBody, &oresp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if oresp.Error != nil {
		return "", fmt.Errorf("openai api error: %s (%s)", oresp.Error.Message, oresp.Error.Type)
	}
	if len(oresp.Choices) == 0 {
		return "", fmt.Errorf("api returned no choices")
	}
	return oresp.Choices[0].Message.Content, nil
}

// HealthCheck verifies the configured model is available for the key.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("api key is missing")
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}
	respBody, err := c.rc.GetWithHeaders(ctx, c.baseURL+"/models", headers, "")
	if err != nil {
		return fmt.Errorf("failed to fetch models: %w", err)
	}

	var mresp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &mresp); err != nil {
		return fmt.Errorf("failed to parse models response: %w", err)
	}

	var available []string
	for _, m := range mresp.Data {
		if m.ID == c.modelName {
			return nil
		}
		available = append(available, m.ID)
	}
	return fmt.Errorf("model %q not found, available: %v", c.modelName, available)
}
