package enhance

import (
	"context"
	"strings"
	"testing"

	"github.com/yok-tottii/EzS2T-Context/internal/config"
	"github.com/yok-tottii/EzS2T-Context/internal/vision"
)

func testService() config.ServiceConfig {
	return config.ServiceConfig{
		Provider:  "groq",
		Model:     "llama-3.3-70b-versatile",
		APIKeyEnv: "ENHANCE_TEST_UNSET_KEY",
	}
}

func TestEnhanceFallsBackWithoutKey(t *testing.T) {
	e := NewEnhancer(testService())

	screen := vision.Record{Success: true, OverallContext: "Coding", FocusArea: "editor", ContextualInformation: "Go files"}

	// APIキーがない場合は元のテキストをそのまま返す
	result := e.Enhance(context.Background(), "raw transcript text", screen)

	if result != "raw transcript text" {
		t.Errorf("Expected verbatim fallback, got %q", result)
	}
}

func TestEnhanceEmptyTranscript(t *testing.T) {
	e := NewEnhancer(testService())

	result := e.Enhance(context.Background(), "", vision.FailureRecord("no screen"))

	if result != "" {
		t.Errorf("Expected empty result for empty transcript, got %q", result)
	}
}

func TestBuildPrompt(t *testing.T) {
	screen := vision.Record{
		Success:               true,
		OverallContext:        "Reviewing a pull request",
		FocusArea:             "diff view",
		ContextualInformation: "function renameUser in auth.go",
	}

	prompt := BuildPrompt("rename the user function", screen)

	if !strings.Contains(prompt, "Reviewing a pull request") {
		t.Error("Expected prompt to contain overall context")
	}

	if !strings.Contains(prompt, "diff view") {
		t.Error("Expected prompt to contain focus area")
	}

	if !strings.Contains(prompt, "function renameUser in auth.go") {
		t.Error("Expected prompt to contain contextual information")
	}

	if !strings.Contains(prompt, "rename the user function") {
		t.Error("Expected prompt to contain the raw transcript")
	}
}

func TestBuildPromptSubstitutesMissingFields(t *testing.T) {
	prompt := BuildPrompt("hello world", vision.Record{})

	if !strings.Contains(prompt, "N/A") {
		t.Error("Expected N/A substitution for missing context fields")
	}

	if !strings.Contains(prompt, "hello world") {
		t.Error("Expected prompt to contain the transcript")
	}
}
