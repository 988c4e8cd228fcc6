package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/menta2k/docintake"
	"github.com/menta2k/docintake/internal/config"
	"github.com/menta2k/docintake/internal/utils"
	"github.com/menta2k/docintake/pkg/analyzer"
	"github.com/menta2k/docintake/pkg/batch"
	"github.com/menta2k/docintake/pkg/detection"
	"github.com/menta2k/docintake/pkg/processing"
	"github.com/menta2k/docintake/pkg/types"
)

// detectionCall is one recorded detector call
type detectionCall struct {
	source types.Asset
	result types.DetectionResult
}

// recorder keeps every detection in call order. The batch analyses each
// eligible item exactly once, in item order, so calls[n] belongs to item n.
type recorder struct {
	inner batch.Detector

	mu    sync.Mutex
	calls []detectionCall
}

func (r *recorder) Detect(ctx context.Context, asset types.Asset) types.DetectionResult {
	result := r.inner.Detect(ctx, asset)
	r.mu.Lock()
	r.calls = append(r.calls, detectionCall{source: asset, result: result})
	r.mu.Unlock()
	return result
}

func (r *recorder) call(n int) (detectionCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 0 || n >= len(r.calls) {
		return detectionCall{}, false
	}
	return r.calls[n], true
}

// reportEntry is one line of the JSON report
type reportEntry struct {
	Input  string                 `json:"input"`
	Output string                 `json:"output,omitempty"`
	Status string                 `json:"status"`
	Result *types.DetectionResult `json:"result,omitempty"`
}

func main() {
	var configPath, in, outDir, backend, url, model, token string
	var debug bool

	flag.StringVar(&configPath, "config", "", "config file (default "+config.GetConfigPath()+" when present)")
	flag.StringVar(&in, "in", "", "input file, directory or URL; more inputs may follow as arguments")
	flag.StringVar(&outDir, "out", "", "output directory (overrides config)")
	flag.StringVar(&backend, "backend", "", "detector backend: http|ollama|llamacpp|local (overrides config)")
	flag.StringVar(&url, "url", "", "detector URL (overrides config)")
	flag.StringVar(&model, "model", "", "model name for ollama/llamacpp (overrides config)")
	flag.StringVar(&token, "token", "", "bearer token for the http backend (overrides config)")
	flag.BoolVar(&debug, "debug", false, "write debug overlays with the detected crop")
	flag.Parse()

	inputs := flag.Args()
	if in != "" {
		inputs = append([]string{in}, inputs...)
	}
	if len(inputs) == 0 {
		log.Fatalf("usage: %s -in scan.jpg|dir|URL [more inputs] [-backend http|ollama|llamacpp|local] [-url server_url] [-out outdir] [-debug]", filepath.Base(os.Args[0]))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, outDir, backend, url, model, token)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	assets, err := loadInputs(inputs)
	if err != nil {
		log.Fatal(err)
	}
	if len(assets) == 0 {
		log.Fatal("no input assets found")
	}

	detectorBackend, err := docintake.NewBackend(cfg.Detector)
	if err != nil {
		log.Fatal(err)
	}
	logger := log.Default()
	opts := docintake.OptionsFromConfig(cfg)
	opts.Logger = logger

	rec := &recorder{inner: docintake.NewDetector(detectorBackend, opts)}
	session := docintake.NewSession(rec, opts)
	defer session.Close()

	if err := session.Add(assets...); err != nil {
		log.Fatal(err)
	}

	log.Printf("docintake %s: %d assets, backend %s", docintake.GetVersion(), len(assets), cfg.Detector.Backend)
	summary, err := session.RunBatch(context.Background(), func(p types.Progress) {
		log.Printf("progress %d/%d", p.Current, p.Total)
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		log.Fatal(err)
	}

	report := writeOutputs(session.Batch().Items(), session.Assets(), rec, cfg, debug)
	js, _ := json.MarshalIndent(report, "", "  ")
	reportPath := filepath.Join(cfg.Output.OutputDir, "report.json")
	if err := os.WriteFile(reportPath, js, 0o644); err != nil {
		log.Printf("report save failed: %v", err)
	} else {
		log.Printf("wrote %s", reportPath)
	}

	log.Printf("done: %d applied, %d skipped, %d failed",
		summary.SuccessCount, summary.SkipCount, summary.ErrorCount)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.GetConfigPath()
		if _, err := os.Stat(path); err != nil {
			return config.Default(), nil
		}
	}
	return config.LoadFromFile(path)
}

func applyFlags(cfg *config.Config, outDir, backend, url, model, token string) {
	if outDir != "" {
		cfg.Output.OutputDir = outDir
	}
	if backend != "" {
		cfg.Detector.Backend = backend
	}
	if url != "" {
		cfg.Detector.URL = url
	}
	if model != "" {
		cfg.Detector.Model = model
	}
	if token != "" {
		cfg.Detector.Token = token
	}
}

// loadInputs expands directories and loads every file or URL, logging
// non-raster and unreadable inputs
func loadInputs(inputs []string) ([]types.Asset, error) {
	inspector := analyzer.New()
	var assets []types.Asset

	for _, input := range inputs {
		sources := []string{input}
		if utils.DirExists(input) {
			files, err := utils.ListAssetFiles(input)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", input, err)
			}
			sources = files
		}

		for _, src := range sources {
			asset, err := docintake.LoadAsset(src)
			if err != nil {
				log.Printf("skip %s: %v", src, err)
				continue
			}
			info, err := inspector.Inspect(asset)
			switch {
			case err != nil:
				log.Printf("%s: %v", src, err)
			case !info.Raster:
				log.Printf("%s: %s (%s), not a raster image, left as is", src, info.MimeType, utils.FormatFileSize(info.Size))
			default:
				log.Printf("%s: %dx%d %s (%s)", src, info.Width, info.Height, info.Format, utils.FormatFileSize(info.Size))
			}
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

func writeOutputs(items []types.BatchItem, assets []types.Asset, rec *recorder, cfg *config.Config, debug bool) []reportEntry {
	processor := processing.NewProcessor()
	var report []reportEntry

	for n, item := range items {
		entry := reportEntry{Input: item.Name, Status: item.Status.String()}

		call, ok := rec.call(n)
		if ok {
			entry.Result = &call.result
		}

		if item.Status == types.ItemApplied {
			out := assets[item.Index]
			path := utils.GenerateOutputFilename(out, cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix)
			if err := utils.WriteAsset(out, path); err != nil {
				log.Printf("save %s failed: %v", path, err)
			} else {
				log.Printf("wrote %s", path)
				entry.Output = path
			}
		}

		if debug && ok && call.result.Success {
			writeOverlay(processor, call.source, call.result, cfg)
		}
		report = append(report, entry)
	}
	return report
}

func writeOverlay(processor *processing.Processor, original types.Asset, result types.DetectionResult, cfg *config.Config) {
	img, err := processor.DecodeAsset(original)
	if err != nil {
		log.Printf("debug overlay %s failed: %v", original.Name, err)
		return
	}
	data, mimeType, err := processor.EncodeLossless(processor.CreateDebugOverlay(img, result.CropRect), processing.LosslessPNG)
	if err != nil {
		log.Printf("debug overlay %s failed: %v", original.Name, err)
		return
	}
	overlay := types.NewAsset(original.Name, mimeType, data)
	path := utils.GenerateOutputFilename(overlay, cfg.Output.OutputDir, cfg.Output.Prefix, "_debug")
	if err := utils.WriteAsset(overlay, path); err != nil {
		log.Printf("debug save %s failed: %v", path, err)
		return
	}
	log.Printf("wrote %s (%s)", path, detection.String(result))
}
