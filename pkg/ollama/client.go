package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/docintake/pkg/client"
	"github.com/menta2k/docintake/pkg/types"
)

// DefaultModel is the vision model used when none is configured
const DefaultModel = "qwen2.5vl:7b"

// Client asks an Ollama vision model for a document crop
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}

	// Create base URL from the provided URL (removing path like /api/chat)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: 300 * time.Second,
	}, nil
}

// SetTimeout overrides the per-request timeout applied when the context has no deadline
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// DetectCrop implements client.Backend
func (c *Client) DetectCrop(ctx context.Context, req types.DetectionRequest) (*types.DetectionResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	streamFalse := false
	chatReq := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: client.Prompt(req),
				Images:  []api.ImageData{api.ImageData(req.ImageBytes)},
			},
		},
		Stream:  &streamFalse,
		Format:  json.RawMessage(`"json"`),
		Options: modelOptions(c.model),
	}

	var responseContent string
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama chat error: %v", types.ErrDetectionTransport, err)
	}

	if strings.TrimSpace(responseContent) == "" {
		return nil, fmt.Errorf("%w: empty response from ollama", types.ErrDetectionTransport)
	}

	return client.ParseModelResponse(responseContent)
}

// modelOptions sets model-specific parameters. Detection wants
// deterministic output, so temperature stays low everywhere.
func modelOptions(model string) map[string]any {
	options := map[string]any{
		"temperature": 0.1,
	}

	modelLower := strings.ToLower(model)
	if strings.Contains(modelLower, "minicpm-v4") ||
		strings.Contains(modelLower, "minicpm-v-4") ||
		strings.Contains(modelLower, "minicpmv4") {
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}
	return options
}
