package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/yok-tottii/EzS2T-Context/internal/aiclient"
	"github.com/yok-tottii/EzS2T-Context/internal/config"
	"github.com/yok-tottii/EzS2T-Context/internal/screenshot"
)

// Record holds the screen analysis for one recording session.
// Success distinguishes a real analysis from the failure placeholders:
// a failed record still carries displayable fields so downstream code
// never branches on nil.
type Record struct {
	Success               bool
	OverallContext        string
	FocusArea             string
	ContextualInformation string
	Err                   string
}

// FailureRecord returns the fixed placeholder record used when the screen
// could not be captured or analyzed
func FailureRecord(reason string) Record {
	return Record{
		Success:               false,
		OverallContext:        "Unknown",
		FocusArea:             "Unknown",
		ContextualInformation: "Failed to analyze screen.",
		Err:                   reason,
	}
}

const analysisPrompt = `Analyze this screenshot and respond with a JSON object containing exactly these fields:
{
  "overall_context": "one sentence describing what the user is doing overall",
  "focus_area": "what the user appears to be focused on right now",
  "contextual_information": "concrete details visible on screen useful for interpreting dictated speech: names, terms, code identifiers, topics"
}
Respond with only the JSON object, no other text.`

// analysisResponse mirrors the JSON the model is asked to produce
type analysisResponse struct {
	OverallContext        string `json:"overall_context"`
	FocusArea             string `json:"focus_area"`
	ContextualInformation string `json:"contextual_information"`
}

// Analyzer sends screenshots to a multimodal chat API
type Analyzer struct {
	service config.ServiceConfig
}

// NewAnalyzer creates an analyzer for the configured vision service
func NewAnalyzer(service config.ServiceConfig) *Analyzer {
	return &Analyzer{service: service}
}

// Analyze submits a PNG screenshot and returns the parsed analysis.
// It never returns an error: any failure produces the placeholder record
// so the session can always proceed with or without screen context.
func (a *Analyzer) Analyze(ctx context.Context, pngData []byte) Record {
	client, err := aiclient.NewChat(a.service)
	if err != nil {
		return FailureRecord(err.Error())
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)

	req := openai.ChatCompletionRequest{
		Model: a.service.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: analysisPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return FailureRecord(err.Error())
	}

	if len(resp.Choices) == 0 {
		return FailureRecord("empty response from vision API")
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// parseAnalysis extracts the JSON analysis from a model reply.
// Models routinely wrap JSON in markdown fences despite instructions.
func parseAnalysis(content string) Record {
	cleaned := StripCodeFence(content)

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return FailureRecord("invalid analysis format: " + err.Error())
	}

	if parsed.OverallContext == "" && parsed.FocusArea == "" && parsed.ContextualInformation == "" {
		return FailureRecord("analysis response was empty")
	}

	return Record{
		Success:               true,
		OverallContext:        parsed.OverallContext,
		FocusArea:             parsed.FocusArea,
		ContextualInformation: parsed.ContextualInformation,
	}
}

// ScreenAnalyzer couples screen capture with the API analyzer
type ScreenAnalyzer struct {
	analyzer *Analyzer
	maxWidth int
}

// NewScreenAnalyzer creates the full capture-and-analyze pipeline
func NewScreenAnalyzer(service config.ServiceConfig) *ScreenAnalyzer {
	return &ScreenAnalyzer{
		analyzer: NewAnalyzer(service),
		maxWidth: service.MaxWidth,
	}
}

// AnalyzeScreen captures the main display, downsizes it and submits it for
// analysis. Like Analyze it never fails: capture or encode problems yield
// the placeholder record.
func (s *ScreenAnalyzer) AnalyzeScreen(ctx context.Context) Record {
	img, err := screenshot.Capture()
	if err != nil {
		return FailureRecord(err.Error())
	}

	img = screenshot.Resize(img, s.maxWidth)

	pngData, err := screenshot.EncodePNG(img)
	if err != nil {
		return FailureRecord(err.Error())
	}

	return s.analyzer.Analyze(ctx, pngData)
}

// StripCodeFence removes a surrounding markdown code fence if present
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)

	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Drop the opening fence line (``` or ```json)
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}

	// Drop the closing fence
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	return strings.TrimSpace(trimmed)
}
