// Package intake ties the intake pipeline together around one asset list.
//
// A Session owns the list and the components acting on it: the transform
// engine, a detector, the significance filter, the batch processor and the
// preview manager. Interactive edits and batches go through the session so
// they never overlap on the same asset.
package intake

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/menta2k/docintake/pkg/batch"
	"github.com/menta2k/docintake/pkg/preview"
	"github.com/menta2k/docintake/pkg/significance"
	"github.com/menta2k/docintake/pkg/transform"
	"github.com/menta2k/docintake/pkg/types"
)

// Outcome is the result of a single-asset auto-crop
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeSkipped
	OutcomeNotDetected
	// OutcomeFailed means a crop was detected but could not be applied
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "Applied"
	case OutcomeSkipped:
		return "Skipped"
	case OutcomeNotDetected:
		return "NotDetected"
	case OutcomeFailed:
		return "Failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Session is the pipeline context for one asset list. It is safe for
// concurrent use. Preview handles are released as soon as the list
// changes, whichever path changed it.
type Session struct {
	list     *AssetList
	engine   *transform.Engine
	detector batch.Detector
	filter   significance.Filter
	batch    *batch.Processor
	previews *preview.Manager
	logger   *log.Logger

	mu       sync.Mutex
	busy     map[string]bool
	batching bool
}

// NewSession creates a session over an empty list
func NewSession(detector batch.Detector, engine *transform.Engine) *Session {
	if engine == nil {
		engine = transform.New()
	}
	s := &Session{
		list:     NewAssetList(),
		engine:   engine,
		detector: detector,
		filter:   significance.Default(),
		batch:    batch.NewProcessor(detector, engine),
		previews: preview.NewManager(),
		busy:     make(map[string]bool),
	}
	s.list.SetObserver(s.previews.Invalidate)
	return s
}

// SetFilter replaces the significance filter. A running batch keeps the
// filter it started with.
func (s *Session) SetFilter(filter significance.Filter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
}

// SetLogger sets the logger for the session and its components
func (s *Session) SetLogger(logger *log.Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
	s.previews.SetLogger(logger)
}

func (s *Session) currentFilter() significance.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Batch exposes the batch processor for status queries
func (s *Session) Batch() *batch.Processor {
	return s.batch
}

// Assets returns a snapshot of the asset list
func (s *Session) Assets() []types.Asset {
	return s.list.Assets()
}

// Identity returns the current list identity
func (s *Session) Identity() string {
	return s.list.Identity()
}

// Add appends assets to the list
func (s *Session) Add(assets ...types.Asset) error {
	return s.mutate(func() error {
		s.list.Add(assets...)
		return nil
	})
}

// Insert places an asset at index i
func (s *Session) Insert(i int, asset types.Asset) error {
	return s.mutate(func() error { return s.list.Insert(i, asset) })
}

// Remove deletes the asset at index i
func (s *Session) Remove(i int) error {
	return s.mutate(func() error {
		_, err := s.list.Remove(i)
		return err
	})
}

// Move relocates the asset at from to index to
func (s *Session) Move(from, to int) error {
	return s.mutate(func() error { return s.list.Move(from, to) })
}

// mutate runs a structural list change unless a batch is running
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batching {
		return fmt.Errorf("%w: batch running", types.ErrBusy)
	}
	return fn()
}

// AutoCrop detects a crop for the asset at index i and applies it when it
// is significant. A failed detection is an outcome, not an error. Errors
// come from the busy guard or a missing asset (OutcomeNotDetected), or from
// rendering and replacing a detected crop (OutcomeFailed).
func (s *Session) AutoCrop(ctx context.Context, i int) (Outcome, types.DetectionResult, error) {
	asset, release, err := s.acquire(i)
	if err != nil {
		return OutcomeNotDetected, types.DetectionResult{}, err
	}
	defer release()

	result := s.detector.Detect(ctx, asset)
	if !result.Success {
		s.logf("%s: no crop detected: %s", asset.Name, result.Message)
		return OutcomeNotDetected, result, nil
	}
	if !s.currentFilter().IsSignificant(result.CropRect) {
		s.logf("%s: crop not significant", asset.Name)
		return OutcomeSkipped, result, nil
	}

	cropped, err := s.engine.Crop(asset, result.CropRect)
	if err != nil {
		return OutcomeFailed, result, fmt.Errorf("auto-crop: %w", err)
	}
	if err := s.list.ReplaceByID(asset.ID, cropped); err != nil {
		return OutcomeFailed, result, err
	}
	return OutcomeApplied, result, nil
}

// Crop applies rect to the asset at index i
func (s *Session) Crop(i int, rect types.CropRect) (types.Asset, error) {
	return s.edit(i, func(a types.Asset) (types.Asset, error) {
		return s.engine.Crop(a, rect)
	})
}

// Rotate90 rotates the asset at index i clockwise by a quarter turn
func (s *Session) Rotate90(i int) (types.Asset, error) {
	return s.edit(i, s.engine.Rotate90)
}

// ComposeEdit applies a manual edit to the asset at index i
func (s *Session) ComposeEdit(i int, edit transform.Edit) (types.Asset, error) {
	return s.edit(i, func(a types.Asset) (types.Asset, error) {
		return s.engine.ComposeEdit(a, edit)
	})
}

func (s *Session) edit(i int, fn func(types.Asset) (types.Asset, error)) (types.Asset, error) {
	asset, release, err := s.acquire(i)
	if err != nil {
		return types.Asset{}, err
	}
	defer release()

	out, err := fn(asset)
	if err != nil {
		return types.Asset{}, fmt.Errorf("edit: %w", err)
	}
	if err := s.list.ReplaceByID(asset.ID, out); err != nil {
		return types.Asset{}, err
	}
	return out, nil
}

// acquire marks the asset at index i busy and returns it with the release func
func (s *Session) acquire(i int) (types.Asset, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batching {
		return types.Asset{}, nil, fmt.Errorf("%w: batch running", types.ErrBusy)
	}
	asset, err := s.list.Get(i)
	if err != nil {
		return types.Asset{}, nil, err
	}
	if !asset.IsRaster() {
		return types.Asset{}, nil, fmt.Errorf("%s: %w", asset.Name, types.ErrNotRaster)
	}
	if s.busy[asset.ID] {
		return types.Asset{}, nil, fmt.Errorf("%w: %s", types.ErrBusy, asset.Name)
	}
	s.busy[asset.ID] = true

	return asset, func() {
		s.mu.Lock()
		delete(s.busy, asset.ID)
		s.mu.Unlock()
	}, nil
}

// RunBatch auto-crops every raster asset in list order. It fails with
// types.ErrBusy while another batch or any interactive edit is in flight.
func (s *Session) RunBatch(ctx context.Context, onProgress func(types.Progress)) (types.BatchSummary, error) {
	s.mu.Lock()
	if s.batching {
		s.mu.Unlock()
		return types.BatchSummary{}, fmt.Errorf("%w: batch running", types.ErrBusy)
	}
	if len(s.busy) > 0 {
		s.mu.Unlock()
		return types.BatchSummary{}, fmt.Errorf("%w: %d edits in flight", types.ErrBusy, len(s.busy))
	}
	s.batching = true
	s.batch.SetFilter(s.filter)
	s.batch.SetLogger(s.logger)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batching = false
		s.mu.Unlock()
	}()

	s.batch.SetProgressCallback(onProgress)
	return s.batch.Run(ctx, s.list)
}

// Previews returns display handles for the current list. Handles of an
// earlier list state are already released by the time the list changed.
func (s *Session) Previews() []*preview.Handle {
	return s.previews.Sync(s.list)
}

// Close releases every preview handle
func (s *Session) Close() {
	s.previews.Close()
}

func (s *Session) logf(format string, args ...any) {
	s.mu.Lock()
	logger := s.logger
	s.mu.Unlock()
	if logger != nil {
		logger.Printf(format, args...)
	}
}
