// Package docintake normalizes scanned document images on intake.
//
// Users attach page images and PDFs. Page images are cropped, rotated,
// flipped and zoomed, either manually or by auto-crop: a detection
// backend proposes a crop rectangle and rotation, a significance filter
// drops no-op proposals, and the transform engine renders the rest.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/menta2k/docintake"
//		"github.com/menta2k/docintake/pkg/types"
//	)
//
//	func main() {
//		// Offline page detector, default thresholds
//		session := docintake.NewLocal()
//		defer session.Close()
//
//		asset, err := docintake.LoadAsset("scan.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := session.Add(asset); err != nil {
//			log.Fatal(err)
//		}
//
//		summary, err := session.RunBatch(context.Background(), func(p types.Progress) {
//			log.Printf("%d/%d", p.Current, p.Total)
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("applied=%d skipped=%d failed=%d",
//			summary.SuccessCount, summary.SkipCount, summary.ErrorCount)
//	}
//
// The package consists of these main components:
//
// 1. Transform (pkg/transform): crop, rotate and compose edits
// 2. Detection (pkg/detection): analysis copy, backend call, fail-closed validation
// 3. Backends (pkg/httpdetect, pkg/ollama, pkg/llamacpp, pkg/vision)
// 4. Batch (pkg/batch): sequential auto-crop with progress and summary
// 5. Intake (pkg/intake): asset list, busy guard, previews
package docintake

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/menta2k/docintake/internal/config"
	"github.com/menta2k/docintake/pkg/analyzer"
	"github.com/menta2k/docintake/pkg/batch"
	"github.com/menta2k/docintake/pkg/client"
	"github.com/menta2k/docintake/pkg/detection"
	"github.com/menta2k/docintake/pkg/httpdetect"
	"github.com/menta2k/docintake/pkg/intake"
	"github.com/menta2k/docintake/pkg/llamacpp"
	"github.com/menta2k/docintake/pkg/ollama"
	"github.com/menta2k/docintake/pkg/processing"
	"github.com/menta2k/docintake/pkg/significance"
	"github.com/menta2k/docintake/pkg/transform"
	"github.com/menta2k/docintake/pkg/types"
	"github.com/menta2k/docintake/pkg/vision"
)

// Version of the docintake library
const Version = "1.0.0"

// Options tunes a session
type Options struct {
	Detection detection.Config
	Transform transform.Config
	Filter    significance.Filter
	Logger    *log.Logger
}

// DefaultOptions returns the default session options
func DefaultOptions() Options {
	return Options{
		Detection: detection.DefaultConfig(),
		Transform: transform.DefaultConfig(),
		Filter:    significance.Default(),
	}
}

// OptionsFromConfig maps an application config onto session options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Detection: detection.Config{
			MaxDimension:  cfg.Detector.MaxDimension,
			Quality:       cfg.Detector.Quality,
			MinConfidence: cfg.Detector.MinConfidence,
			MaxAssetBytes: cfg.Detector.MaxAssetBytes,
		},
		Transform: transform.Config{
			LossyQuality:   cfg.Transform.LossyQuality,
			LosslessFormat: processing.LosslessFormat(cfg.Transform.LosslessFormat),
		},
		Filter: significance.Filter{
			EdgeThreshold: cfg.Significance.EdgeThreshold,
			SpanThreshold: cfg.Significance.SpanThreshold,
		},
	}
}

// NewBackend creates the detection backend named by cfg.Backend
func NewBackend(cfg config.DetectorConfig) (client.Backend, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Backend {
	case config.BackendLocal, "":
		return vision.New(), nil
	case config.BackendHTTP:
		c, err := httpdetect.NewClient(cfg.URL, cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create detection client: %w", err)
		}
		c.SetTimeout(timeout)
		return c, nil
	case config.BackendOllama:
		url := cfg.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		c, err := ollama.NewClient(url, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		c.SetTimeout(timeout)
		return c, nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		c.SetTimeout(timeout)
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend: %s (use http, ollama, llamacpp or local)", cfg.Backend)
}

// NewDetector wraps a backend in a detection client
func NewDetector(backend client.Backend, opts Options) *detection.Client {
	d := detection.NewClientWithConfig(backend, opts.Detection)
	d.SetLogger(opts.Logger)
	return d
}

// NewSession creates a session around any detector
func NewSession(detector batch.Detector, opts Options) *intake.Session {
	s := intake.NewSession(detector, transform.NewWithConfig(opts.Transform))
	s.SetFilter(opts.Filter)
	s.SetLogger(opts.Logger)
	return s
}

// New creates a session that detects crops with backend
func New(backend client.Backend, opts Options) *intake.Session {
	return NewSession(NewDetector(backend, opts), opts)
}

// NewLocal creates a session using the offline page detector
func NewLocal() *intake.Session {
	return New(vision.New(), DefaultOptions())
}

// NewFromConfig creates a session from an application config
func NewFromConfig(cfg *config.Config, logger *log.Logger) (*intake.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	backend, err := NewBackend(cfg.Detector)
	if err != nil {
		return nil, err
	}
	opts := OptionsFromConfig(cfg)
	opts.Logger = logger
	return New(backend, opts), nil
}

// LoadAsset loads an asset from a file path or an http(s) URL
func LoadAsset(source string) (types.Asset, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return processing.NewProcessor().LoadAssetFromURL(source)
	}
	return analyzer.New().LoadAsset(source)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
