package asr

import (
	"context"
	"os"
	"testing"

	"github.com/go-audio/wav"

	"github.com/yok-tottii/EzS2T-Context/internal/config"
)

func testService() config.ServiceConfig {
	return config.ServiceConfig{
		Provider:  "groq",
		Model:     "whisper-large-v3",
		APIKeyEnv: "ASR_TEST_KEY",
		Language:  "auto",
	}
}

func TestTooShort(t *testing.T) {
	tr := NewTranscriber(testService(), 16000, 1)

	// 0.5s at 16kHz mono = 8000 samples
	if !tr.TooShort(make([]int16, 7999)) {
		t.Error("Expected 7999 samples to be too short")
	}

	if tr.TooShort(make([]int16, 8000)) {
		t.Error("Expected 8000 samples to pass the minimum")
	}

	if !tr.TooShort(nil) {
		t.Error("Expected empty chunk to be too short")
	}
}

func TestTranscribeSkipsShortChunk(t *testing.T) {
	// No API key in the environment: a short chunk must not reach the client
	tr := NewTranscriber(testService(), 16000, 1)

	text, err := tr.Transcribe(context.Background(), make([]int16, 100))
	if err != nil {
		t.Fatalf("Expected no error for short chunk, got: %v", err)
	}

	if text != "" {
		t.Errorf("Expected empty text for short chunk, got %q", text)
	}
}

func TestTranscribeMissingKey(t *testing.T) {
	tr := NewTranscriber(testService(), 16000, 1)

	// Long enough to attempt an upload, but the key env is unset
	_, err := tr.Transcribe(context.Background(), make([]int16, 16000))
	if err == nil {
		t.Error("Expected error when API key is missing")
	}
}

func TestWriteTempWav(t *testing.T) {
	tr := NewTranscriber(testService(), 16000, 1)
	tr.tempDir = t.TempDir()

	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	wavPath, err := tr.writeTempWav(samples)
	if err != nil {
		t.Fatalf("writeTempWav failed: %v", err)
	}
	defer os.Remove(wavPath)

	file, err := os.Open(wavPath)
	if err != nil {
		t.Fatalf("Failed to open wav file: %v", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode wav: %v", err)
	}

	if dec.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", dec.SampleRate)
	}

	if int(dec.BitDepth) != 16 {
		t.Errorf("Expected 16-bit samples, got %d", dec.BitDepth)
	}

	if len(buf.Data) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(buf.Data))
	}

	for i := 0; i < len(samples); i += 1111 {
		if int16(buf.Data[i]) != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], buf.Data[i])
		}
	}
}
