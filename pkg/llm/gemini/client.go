// Package gemini implements llm.Provider for Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"tourgen/pkg/config"
	"tourgen/pkg/llm"
	"tourgen/pkg/model"
	"tourgen/pkg/tracker"
)

// Client implements llm.Provider for Google Gemini.
type Client struct {
	genaiClient *genai.Client
	modelName   string
	maxTokens   int
	temperature float32
	tracker     *tracker.Tracker
}

// NewClient creates a new Gemini client.
func NewClient(cfg config.ProviderConfig, maxTokens int, temperature float32, t *tracker.Tracker) (*Client, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("gemini api key is missing")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		genaiClient: client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		tracker:     t,
	}, nil
}

func (c *Client) Info() model.ModelInfo {
	return model.ModelInfo{Provider: "gemini", Model: c.modelName}
}

// Complete sends the prompt pair and returns the model's text.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp > 0 {
		cfg.Temperature = &temp
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.modelName, genai.Text(req.User), cfg)
	if err != nil {
		if c.tracker != nil {
			c.tracker.TrackAPIFailure("gemini")
		}
		return "", fmt.Errorf("generate content error: %w", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		if c.tracker != nil {
			c.tracker.TrackAPIFailure("gemini")
		}
		return "", err
	}

	if c.tracker != nil {
		c.tracker.TrackAPISuccess("gemini")
	}
	return text, nil
}

// HealthCheck verifies the configured model is available for the key.
func (c *Client) HealthCheck(ctx context.Context) error {
	name := c.modelName
	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}

	_, err := c.genaiClient.Models.Get(ctx, name, nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", c.modelName)
		return nil
	}

	// List what the key can actually reach to make the failure actionable.
	var available []string
	iter, listErr := c.genaiClient.Models.List(ctx, nil)
	if listErr == nil {
		for {
			m, nextErr := iter.Next(ctx)
			if nextErr == iterator.Done {
				break
			}
			if nextErr != nil {
				break
			}
			if strings.Contains(strings.ToLower(m.Name), "gemini") {
				available = append(available, m.Name)
			}
		}
	}
	return fmt.Errorf("model %q not available: %w (available: %v)", c.modelName, err, available)
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response")
	}
	return sb.String(), nil
}
