package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/yok-tottii/EzS2T-Context/internal/aiclient"
	"github.com/yok-tottii/EzS2T-Context/internal/config"
	"github.com/yok-tottii/EzS2T-Context/internal/vision"
)

const systemPrompt = `You clean up dictated speech transcripts. Using the screen context, fix recognition errors, correct technical terms and names, add punctuation, and remove filler words. Preserve the speaker's meaning and language. Output only the corrected transcript, nothing else.`

// Enhancer rewrites raw transcripts using screen context
type Enhancer struct {
	service config.ServiceConfig
}

// NewEnhancer creates an enhancer for the configured service
func NewEnhancer(service config.ServiceConfig) *Enhancer {
	return &Enhancer{service: service}
}

// Enhance corrects the transcript using the screen analysis.
// On any failure the raw transcript is returned verbatim: a rough
// transcript beats losing the user's dictation.
func (e *Enhancer) Enhance(ctx context.Context, transcript string, screen vision.Record) string {
	if strings.TrimSpace(transcript) == "" {
		return transcript
	}

	client, err := aiclient.NewChat(e.service)
	if err != nil {
		return transcript
	}

	req := openai.ChatCompletionRequest{
		Model: e.service.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(transcript, screen),
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return transcript
	}

	if len(resp.Choices) == 0 {
		return transcript
	}

	enhanced := strings.TrimSpace(resp.Choices[0].Message.Content)
	if enhanced == "" {
		return transcript
	}

	return enhanced
}

// BuildPrompt assembles the user message. Missing context fields are
// replaced with N/A so the prompt shape stays constant.
func BuildPrompt(transcript string, screen vision.Record) string {
	return fmt.Sprintf(
		"Screen context:\n- Overall: %s\n- Focus: %s\n- Details: %s\n\nRaw transcript:\n%s",
		orNA(screen.OverallContext),
		orNA(screen.FocusArea),
		orNA(screen.ContextualInformation),
		transcript,
	)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
