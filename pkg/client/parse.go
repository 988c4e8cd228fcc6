package client

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/docintake/pkg/types"
)

// CropPrompt is the instruction sent to vision-model backends. The two
// %d verbs receive the original width and height.
const CropPrompt = `You are a document page locator for scanned intake documents.

The image is a downscaled copy of a %dx%d pixel original.

Return JSON only:
{
  "success": true,
  "cropX": 0.0,
  "cropY": 0.0,
  "cropWidth": 100.0,
  "cropHeight": 100.0,
  "rotation": 0,
  "confidence": 0.0,
  "documentType": "string",
  "message": "short neutral sentence"
}

HARD RULES
- cropX, cropY, cropWidth, cropHeight are PERCENTAGES of the image size in [0,100] (NOT pixels).
- cropX + cropWidth <= 100 and cropY + cropHeight <= 100.
- The rectangle must tightly enclose the document page and exclude table, background and fingers.
- rotation is the clockwise rotation in degrees (0, 90, 180 or 270) that makes the text upright.
- confidence is in [0,1].
- documentType is one word such as receipt, invoice, letter, id_card, form, photo.
- If no document is visible, return {"success": false, "message": "no document found"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Prompt renders CropPrompt for the request
func Prompt(req types.DetectionRequest) string {
	return fmt.Sprintf(CropPrompt, req.OriginalWidth, req.OriginalHeight)
}

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseModelResponse extracts the detection payload from free-form model
// output. Unlike a strict service, models wrap JSON in fences and prose,
// so the text is sanitised first. A reply without usable JSON is an error.
func ParseModelResponse(raw string) (*types.DetectionResponse, error) {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("%w: model returned non-JSON response", types.ErrDetectionTransport)
	}

	var resp types.DetectionResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse model response: %v", types.ErrDetectionTransport, err)
	}
	return &resp, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
