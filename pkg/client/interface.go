package client

import (
	"context"

	"github.com/menta2k/docintake/pkg/types"
)

// Backend proposes a crop rectangle and rotation for a downscaled page
// image. Implementations return an error for transport or service-side
// failures; the payload is validated by the caller.
type Backend interface {
	DetectCrop(ctx context.Context, req types.DetectionRequest) (*types.DetectionResponse, error)
}

// BackendFunc adapts a function to the Backend interface
type BackendFunc func(ctx context.Context, req types.DetectionRequest) (*types.DetectionResponse, error)

// DetectCrop calls f(ctx, req)
func (f BackendFunc) DetectCrop(ctx context.Context, req types.DetectionRequest) (*types.DetectionResponse, error) {
	return f(ctx, req)
}
