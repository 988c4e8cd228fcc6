package types

import "errors"

var (
	// ErrDecode means the bytes could not be interpreted as a raster image
	ErrDecode = errors.New("decode error")

	// ErrEncode means a drawing surface or output buffer could not be produced
	ErrEncode = errors.New("encode error")

	// ErrValidation means a malformed crop rectangle or edit parameter
	ErrValidation = errors.New("validation error")

	// ErrDetectionTransport means the detection service could not be reached
	// or answered with a service-side failure
	ErrDetectionTransport = errors.New("detection transport error")

	// ErrBusy means an operation is already in flight for the target
	ErrBusy = errors.New("operation in progress")

	// ErrNotRaster means the asset is not a raster image
	ErrNotRaster = errors.New("asset is not a raster image")

	// ErrAssetNotFound means the referenced asset is no longer in the list
	ErrAssetNotFound = errors.New("asset not found")
)
