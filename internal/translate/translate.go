package translate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"

	"github.com/yok-tottii/EzS2T-Context/internal/aiclient"
	"github.com/yok-tottii/EzS2T-Context/internal/config"
)

// Translator translates selected text via a chat completion API
type Translator struct {
	service config.ServiceConfig
}

// NewTranslator creates a translator for the configured service
func NewTranslator(service config.ServiceConfig) *Translator {
	return &Translator{service: service}
}

// ContainsHan reports whether the text contains any Han (CJK ideograph) character
func ContainsHan(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// TargetLanguage picks the translation target based on the source text.
// Text containing Han characters goes to ZhTo, everything else to OtherTo.
func (t *Translator) TargetLanguage(text string) string {
	if ContainsHan(text) {
		return t.service.ZhTo
	}
	return t.service.OtherTo
}

// Translate translates the text into the routed target language.
// On any failure the original text is returned so nothing the user
// selected is ever lost.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	client, err := aiclient.NewChat(t.service)
	if err != nil {
		return text
	}

	target := t.TargetLanguage(text)

	req := openai.ChatCompletionRequest{
		Model: t.service.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You are a translator. Translate the user's text into %s. Preserve formatting and tone. Output only the translation, nothing else.",
					target,
				),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return text
	}

	if len(resp.Choices) == 0 {
		return text
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return text
	}

	return translated
}
