// Package gemini prompts Gemini models through Vertex AI OpenAI compatible endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/projpool/projpool/internal/apperrors"
)

const (
	DefaultLocation = "us-central1"

	modelPublisher = "google/"
)

type Config struct {
	ProjectID string
	Location  string
	ModelID   string

	// OAuth access token sent as bearer token
	APIKey string

	// Endpoint override. Vertex AI endpoint of the project if empty.
	BaseURL string
}

// Configured reports whether enough settings are given to call the model
func (c Config) Configured() bool {
	return c.ProjectID != "" && c.ModelID != "" && c.APIKey != ""
}

type Client struct {
	client *openai.Client
	model  string
}

// New returns client. Client is disabled when config is not complete:
// every call returns apperrors.ErrAssistNotConfigured.
func New(cfg Config) *Client {
	if !cfg.Configured() {
		return &Client{}
	}

	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = vertexBaseURL(cfg.ProjectID, cfg.Location)
	}

	model := cfg.ModelID
	if !strings.Contains(model, "/") {
		model = modelPublisher + model
	}

	c := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &Client{client: &c, model: model}
}

func vertexBaseURL(projectID string, location string) string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1beta1/projects/%s/locations/%s/endpoints/openapi/",
		location, projectID, location,
	)
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Model name requests are sent with
func (c *Client) Model() string {
	if !c.Enabled() {
		return ""
	}
	return c.model
}

// Describe sends prompt as single user message and returns the model answer
func (c *Client) Describe(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", apperrors.ErrAssistNotConfigured
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("gemini: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
