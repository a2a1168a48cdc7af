package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/yok-tottii/EzS2T-Context/internal/aiclient"
	"github.com/yok-tottii/EzS2T-Context/internal/config"
)

// MinChunkSeconds is the shortest audio worth uploading. Anything under
// half a second is silence or a key tap and only wastes an API call.
const MinChunkSeconds = 0.5

// Transcriber sends recorded PCM chunks to a cloud speech recognition API
type Transcriber struct {
	service    config.ServiceConfig
	sampleRate int
	channels   int
	tempDir    string
}

// NewTranscriber creates a transcriber for the configured ASR service
func NewTranscriber(service config.ServiceConfig, sampleRate, channels int) *Transcriber {
	return &Transcriber{
		service:    service,
		sampleRate: sampleRate,
		channels:   channels,
		tempDir:    os.TempDir(),
	}
}

// TooShort reports whether the chunk is below the minimum upload length
func (t *Transcriber) TooShort(samples []int16) bool {
	minSamples := int(MinChunkSeconds * float64(t.sampleRate) * float64(t.channels))
	return len(samples) < minSamples
}

// Transcribe uploads one PCM chunk and returns the recognized text.
// Chunks below the minimum length return empty text without an API call.
func (t *Transcriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	if t.TooShort(samples) {
		return "", nil
	}

	client, err := aiclient.NewAudio(t.service)
	if err != nil {
		return "", fmt.Errorf("failed to create ASR client: %w", err)
	}

	// APIはファイルアップロードを要求するため、一時WAVファイルを経由する
	wavPath, err := t.writeTempWav(samples)
	if err != nil {
		return "", err
	}
	defer os.Remove(wavPath)

	req := openai.AudioRequest{
		Model:    t.service.Model,
		FilePath: wavPath,
	}
	if t.service.Language != "" && t.service.Language != "auto" {
		req.Language = t.service.Language
	}

	resp, err := client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// writeTempWav encodes the PCM samples as a 16-bit WAV file in the temp directory
func (t *Transcriber) writeTempWav(samples []int16) (string, error) {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	wavPath := filepath.Join(t.tempDir, fmt.Sprintf("ezs2t-chunk-%s.wav", id))

	file, err := os.Create(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp wav: %w", err)
	}

	enc := wav.NewEncoder(file, t.sampleRate, 16, t.channels, 1)

	intBuf := make([]int, len(samples))
	for i, v := range samples {
		intBuf[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: t.channels, SampleRate: t.sampleRate},
		Data:           intBuf,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		file.Close()
		os.Remove(wavPath)
		return "", fmt.Errorf("failed to write wav data: %w", err)
	}

	if err := enc.Close(); err != nil {
		file.Close()
		os.Remove(wavPath)
		return "", fmt.Errorf("failed to finalize wav: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(wavPath)
		return "", fmt.Errorf("failed to close wav file: %w", err)
	}

	return wavPath, nil
}
