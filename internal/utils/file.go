package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/docintake/pkg/types"
)

var assetExts = []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp", "pdf"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsAssetFile checks if a file has an extension the intake accepts
func IsAssetFile(filename string) bool {
	ext := GetFileExtension(filename)
	for _, assetExt := range assetExts {
		if ext == assetExt {
			return true
		}
	}
	return false
}

// ExtensionForMime returns the file extension written for a mime type
func ExtensionForMime(mimeType string) string {
	switch mimeType {
	case types.MimeJPEG, "image/jpg":
		return "jpg"
	case types.MimePNG:
		return "png"
	case types.MimeWebP:
		return "webp"
	case types.MimeGIF:
		return "gif"
	case types.MimeBMP:
		return "bmp"
	case types.MimeTIFF:
		return "tiff"
	case types.MimePDF:
		return "pdf"
	}
	return ""
}

// GenerateOutputFilename builds an output path for an asset. The extension
// follows the asset's mime type, since a crop may turn a PNG into a JPEG.
func GenerateOutputFilename(asset types.Asset, outputDir, prefix, suffix string) string {
	baseName := filepath.Base(asset.Name)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	format := ExtensionForMime(asset.MimeType)
	if format == "" {
		format = GetFileExtension(asset.Name)
		if format == "" {
			format = "bin"
		}
	}

	outputName := fmt.Sprintf("%s%s%s.%s", prefix, SanitizeFilename(nameWithoutExt), suffix, format)
	return filepath.Join(outputDir, outputName)
}

// WriteAsset writes the asset bytes to path, creating parent directories
func WriteAsset(asset types.Asset, path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, asset.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ListAssetFiles recursively lists all accepted files in a directory, in
// lexical order
func ListAssetFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && IsAssetFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	// Replace invalid characters with underscores
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	result = strings.Trim(result, " .")

	return result
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
