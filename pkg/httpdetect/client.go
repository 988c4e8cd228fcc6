// Package httpdetect talks to a document detection service over JSON/HTTP.
//
// The service receives the downscaled page image together with the
// original pixel size and answers with a percentage crop rectangle,
// a clockwise rotation and a confidence.
package httpdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/docintake/pkg/types"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 1 << 20

// Request is the wire shape sent to the service. ImageBytes is base64
// encoded by encoding/json.
type Request struct {
	ImageBytes     []byte `json:"imageBytes"`
	ImageType      string `json:"imageType"`
	OriginalWidth  int    `json:"originalWidth"`
	OriginalHeight int    `json:"originalHeight"`
}

// Client calls the detection endpoint
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint URL. token, when set,
// is sent as a bearer token.
func NewClient(endpoint, token string) (*Client, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("invalid endpoint %q: only http and https are supported", endpoint)
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// SetTimeout overrides the HTTP client timeout
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// DetectCrop implements client.Backend
func (c *Client) DetectCrop(ctx context.Context, req types.DetectionRequest) (*types.DetectionResponse, error) {
	payload, err := json.Marshal(Request{
		ImageBytes:     req.ImageBytes,
		ImageType:      req.ImageType,
		OriginalWidth:  req.OriginalWidth,
		OriginalHeight: req.OriginalHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDetectionTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", types.ErrDetectionTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned status %d: %s", types.ErrDetectionTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out types.DetectionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", types.ErrDetectionTransport, err)
	}
	return &out, nil
}
