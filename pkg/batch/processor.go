// Package batch drives sequential auto-crop over a list of assets.
//
// Each raster asset is analysed, filtered for significance and, when the
// proposed crop is worth it, replaced by its cropped version. Items are
// processed strictly one after another. Failures are counted, never
// raised, and replacements already made are kept when later items fail.
package batch

import (
	"context"
	"log"
	"sync"

	"github.com/menta2k/docintake/pkg/significance"
	"github.com/menta2k/docintake/pkg/types"
)

// Detector proposes a crop for an asset
type Detector interface {
	Detect(ctx context.Context, asset types.Asset) types.DetectionResult
}

// Cropper renders a crop into a replacement asset
type Cropper interface {
	Crop(asset types.Asset, rect types.CropRect) (types.Asset, error)
}

// Store is the asset list the batch runs over. The processor only ever
// replaces assets by index.
type Store interface {
	Len() int
	At(i int) types.Asset
	Replace(i int, asset types.Asset) error
}

// Processor runs auto-crop batches
type Processor struct {
	detector Detector
	cropper  Cropper
	filter   significance.Filter
	logger   *log.Logger

	onProgress func(types.Progress)
	onItem     func(types.BatchItem)

	mu       sync.Mutex
	state    types.BatchState
	progress types.Progress
	items    []types.BatchItem
	summary  types.BatchSummary
}

// NewProcessor creates a batch processor with the default significance filter
func NewProcessor(detector Detector, cropper Cropper) *Processor {
	return &Processor{
		detector: detector,
		cropper:  cropper,
		filter:   significance.Default(),
		state:    types.BatchIdle,
	}
}

// SetFilter replaces the significance filter
func (p *Processor) SetFilter(filter significance.Filter) {
	p.filter = filter
}

// SetLogger sets the logger for per-item outcomes; nil disables logging
func (p *Processor) SetLogger(logger *log.Logger) {
	p.logger = logger
}

// SetProgressCallback sets the function called after each eligible item
func (p *Processor) SetProgressCallback(callback func(types.Progress)) {
	p.onProgress = callback
}

// SetItemCallback sets the function called on every item status change
func (p *Processor) SetItemCallback(callback func(types.BatchItem)) {
	p.onItem = callback
}

// State returns the whole-batch state
func (p *Processor) State() types.BatchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Progress returns the last (current, total) signal
func (p *Processor) Progress() types.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Items returns a snapshot of the per-item statuses of the current or last batch
func (p *Processor) Items() []types.BatchItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.BatchItem, len(p.items))
	copy(out, p.items)
	return out
}

// Summary returns the summary of the last completed batch
func (p *Processor) Summary() types.BatchSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}

// Run processes every raster asset in store and returns the summary.
// Non-raster assets are left alone and not counted. The only error is
// types.ErrBusy when a batch is already running.
func (p *Processor) Run(ctx context.Context, store Store) (types.BatchSummary, error) {
	p.mu.Lock()
	if p.state == types.BatchRunning {
		p.mu.Unlock()
		return types.BatchSummary{}, types.ErrBusy
	}
	p.items = p.eligibleItems(store)
	p.progress = types.Progress{Current: 0, Total: len(p.items)}
	p.summary = types.BatchSummary{}
	p.state = types.BatchRunning
	p.mu.Unlock()

	var summary types.BatchSummary
	total := len(p.items)

	for n := 0; n < total; n++ {
		switch p.processItem(ctx, store, n) {
		case types.ItemApplied:
			summary.SuccessCount++
		case types.ItemSkipped:
			summary.SkipCount++
		default:
			summary.ErrorCount++
		}

		progress := types.Progress{Current: n + 1, Total: total}
		p.mu.Lock()
		p.progress = progress
		p.mu.Unlock()
		if p.onProgress != nil {
			p.onProgress(progress)
		}
	}

	p.mu.Lock()
	p.summary = summary
	p.state = types.BatchCompleted
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Printf("batch complete: %d applied, %d skipped, %d failed",
			summary.SuccessCount, summary.SkipCount, summary.ErrorCount)
	}
	return summary, nil
}

func (p *Processor) eligibleItems(store Store) []types.BatchItem {
	var items []types.BatchItem
	for i := 0; i < store.Len(); i++ {
		asset := store.At(i)
		if !asset.IsRaster() {
			continue
		}
		items = append(items, types.BatchItem{
			Index:   i,
			AssetID: asset.ID,
			Name:    asset.Name,
			Status:  types.ItemPending,
		})
	}
	return items
}

// processItem runs one item to a terminal status
func (p *Processor) processItem(ctx context.Context, store Store, n int) types.ItemStatus {
	p.setStatus(n, types.ItemAnalyzing)
	item := p.item(n)
	asset := store.At(item.Index)

	result := p.detector.Detect(ctx, asset)
	if !result.Success {
		p.logf("%s: detection failed: %s", asset.Name, result.Message)
		return p.setStatus(n, types.ItemFailed)
	}

	if !p.filter.IsSignificant(result.CropRect) {
		p.logf("%s: crop not significant, skipped", asset.Name)
		return p.setStatus(n, types.ItemSkipped)
	}

	p.setStatus(n, types.ItemApplying)
	cropped, err := p.cropper.Crop(asset, result.CropRect)
	if err != nil {
		p.logf("%s: crop failed: %v", asset.Name, err)
		return p.setStatus(n, types.ItemFailed)
	}
	if err := store.Replace(item.Index, cropped); err != nil {
		p.logf("%s: replace failed: %v", asset.Name, err)
		return p.setStatus(n, types.ItemFailed)
	}

	p.mu.Lock()
	p.items[n].AssetID = cropped.ID
	p.mu.Unlock()
	p.logf("%s: applied crop %.1f,%.1f %.1fx%.1f rot=%d (confidence %.2f)", asset.Name,
		result.CropRect.X, result.CropRect.Y, result.CropRect.Width, result.CropRect.Height,
		result.CropRect.Rotation, result.Confidence)
	return p.setStatus(n, types.ItemApplied)
}

func (p *Processor) item(n int) types.BatchItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items[n]
}

func (p *Processor) setStatus(n int, status types.ItemStatus) types.ItemStatus {
	p.mu.Lock()
	p.items[n].Status = status
	item := p.items[n]
	p.mu.Unlock()

	if p.onItem != nil {
		p.onItem(item)
	}
	return status
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
