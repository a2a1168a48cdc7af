package aiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/yok-tottii/EzS2T-Context/internal/config"
)

// Provider base URLs. Every provider exposes an OpenAI-compatible API,
// so a single client library covers all of them.
const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	googleBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// Timeouts per request kind. Audio uploads finish quickly; chat completions
// over long prompts can take much longer.
const (
	AudioTimeout = 60 * time.Second
	ChatTimeout  = 120 * time.Second
)

// New builds an API client for the given service configuration.
// The API key is resolved from the environment at call time.
func New(svc config.ServiceConfig, timeout time.Duration) (*openai.Client, error) {
	apiKey, err := svc.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(apiKey)
	switch svc.Provider {
	case "openai":
		// デフォルトのURLをそのまま使用
	case "groq":
		clientConfig.BaseURL = groqBaseURL
	case "google":
		clientConfig.BaseURL = googleBaseURL
	default:
		return nil, fmt.Errorf("unknown provider: %s", svc.Provider)
	}

	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return openai.NewClientWithConfig(clientConfig), nil
}

// NewAudio builds a client with the audio upload timeout
func NewAudio(svc config.ServiceConfig) (*openai.Client, error) {
	return New(svc, AudioTimeout)
}

// NewChat builds a client with the chat completion timeout
func NewChat(svc config.ServiceConfig) (*openai.Client, error) {
	return New(svc, ChatTimeout)
}
