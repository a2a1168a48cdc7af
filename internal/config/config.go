package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config holds application configuration
type Config struct {
	Hotkeys            HotkeysConfig   `json:"hotkeys"`
	Recording          RecordingConfig `json:"recording"`
	ASRService         ServiceConfig   `json:"asr_service"`
	VisionService      ServiceConfig   `json:"vision_service"`
	EnhancementService ServiceConfig   `json:"enhancement_service"`
	TranslationService ServiceConfig   `json:"translation_service"`
	Output             OutputConfig    `json:"output"`
	AudioDeviceID      int             `json:"audio_device_id"`
	UILanguage         string          `json:"ui_language"`      // "ja" or "en"
	PasteSplitSize     int             `json:"paste_split_size"` // characters
	mu                 sync.RWMutex
}

// HotkeysConfig holds the two global hotkey bindings
type HotkeysConfig struct {
	ToggleRecording HotkeyConfig `json:"toggle_recording"`
	ProcessText     HotkeyConfig `json:"process_text"`
}

// HotkeyConfig holds a single hotkey combination
type HotkeyConfig struct {
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Cmd   bool   `json:"cmd"`
	Key   string `json:"key"` // e.g., "Space"
}

// RecordingConfig holds microphone capture settings
type RecordingConfig struct {
	CountdownSeconds     int `json:"countdown_seconds"`      // auto-stop countdown
	RealtimeChunkSeconds int `json:"realtime_chunk_seconds"` // chunk length sent to ASR mid-session
	SampleRate           int `json:"sample_rate"`
}

// ServiceConfig identifies a cloud API endpoint plus per-service options.
// The API key itself is never stored in the config file; APIKeyEnv names
// the environment variable to read it from.
type ServiceConfig struct {
	Provider  string `json:"provider"` // "groq", "openai", "google"
	Model     string `json:"model"`
	APIKeyEnv string `json:"api_key_env"`
	// ASR only
	Language string `json:"language,omitempty"` // "auto" or a language code
	// Vision only
	MaxWidth int `json:"max_width,omitempty"` // screenshot downscale limit in pixels
	// Translation only
	ZhTo    string `json:"zh_to,omitempty"`    // target when source contains Han characters
	OtherTo string `json:"other_to,omitempty"` // target otherwise
}

// OutputConfig controls where finished transcripts go besides the clipboard
type OutputConfig struct {
	SaveToFile bool   `json:"save_to_file"`
	FilePath   string `json:"filepath"`
}

// ResolveAPIKey reads the API key from the environment variable named by
// APIKeyEnv. An unset or empty variable is a configuration error.
func (s ServiceConfig) ResolveAPIKey() (string, error) {
	if s.APIKeyEnv == "" {
		return "", fmt.Errorf("api_key_env is not set for provider %s", s.Provider)
	}
	key := strings.TrimSpace(os.Getenv(s.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", s.APIKeyEnv)
	}
	return key, nil
}

// validProviders are the endpoints the client layer knows how to talk to
var validProviders = map[string]bool{
	"groq":   true,
	"openai": true,
	"google": true,
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Hotkeys: HotkeysConfig{
			ToggleRecording: HotkeyConfig{
				Ctrl: true,
				Alt:  true,
				Key:  "Space",
			},
			ProcessText: HotkeyConfig{
				Ctrl: true,
				Alt:  true,
				Key:  "T",
			},
		},
		Recording: RecordingConfig{
			CountdownSeconds:     60,
			RealtimeChunkSeconds: 30,
			SampleRate:           16000,
		},
		ASRService: ServiceConfig{
			Provider:  "groq",
			Model:     "whisper-large-v3",
			APIKeyEnv: "GROQ_API_KEY",
			Language:  "auto",
		},
		VisionService: ServiceConfig{
			Provider:  "groq",
			Model:     "meta-llama/llama-4-scout-17b-16e-instruct",
			APIKeyEnv: "GROQ_API_KEY",
			MaxWidth:  1512,
		},
		EnhancementService: ServiceConfig{
			Provider:  "groq",
			Model:     "llama-3.3-70b-versatile",
			APIKeyEnv: "GROQ_API_KEY",
		},
		TranslationService: ServiceConfig{
			Provider:  "groq",
			Model:     "llama-3.3-70b-versatile",
			APIKeyEnv: "GROQ_API_KEY",
			ZhTo:      "English",
			OtherTo:   "Chinese",
		},
		Output: OutputConfig{
			SaveToFile: true,
			FilePath:   "~/Documents/transcriptions.md",
		},
		AudioDeviceID:  -1, // -1 means use system default device
		UILanguage:     "ja",
		PasteSplitSize: 500,
	}
}

// Load loads configuration from the specified path
func Load(path string) (*Config, error) {
	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON over the defaults so missing fields keep sane values
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// ホットキー設定の検証と修正
	if config.Hotkeys.ToggleRecording.Key == "" {
		config.Hotkeys.ToggleRecording.Key = "Space" // デフォルト値で補完
	}
	if config.Hotkeys.ProcessText.Key == "" {
		config.Hotkeys.ProcessText.Key = "T"
	}

	return config, nil
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, "Library", "Application Support", "EzS2T-Context", "config.json")
}

// Update updates configuration fields
func (c *Config) Update(updates map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Apply updates
	for key, value := range updates {
		switch key {
		case "audio_device_id":
			if v, ok := value.(float64); ok {
				c.AudioDeviceID = int(v)
			}
		case "ui_language":
			if v, ok := value.(string); ok {
				if v != "ja" && v != "en" {
					return fmt.Errorf("invalid ui_language: %s", v)
				}
				c.UILanguage = v
			}
		case "paste_split_size":
			if v, ok := value.(float64); ok {
				c.PasteSplitSize = int(v)
			}
		case "recording":
			if v, ok := value.(map[string]interface{}); ok {
				if sec, ok := v["countdown_seconds"].(float64); ok {
					c.Recording.CountdownSeconds = int(sec)
				}
				if sec, ok := v["realtime_chunk_seconds"].(float64); ok {
					c.Recording.RealtimeChunkSeconds = int(sec)
				}
				if rate, ok := v["sample_rate"].(float64); ok {
					c.Recording.SampleRate = int(rate)
				}
			}
		case "output":
			if v, ok := value.(map[string]interface{}); ok {
				if save, ok := v["save_to_file"].(bool); ok {
					c.Output.SaveToFile = save
				}
				if path, ok := v["filepath"].(string); ok {
					c.Output.FilePath = path
				}
			}
		case "asr_service":
			if v, ok := value.(map[string]interface{}); ok {
				applyServiceUpdate(&c.ASRService, v)
			}
		case "vision_service":
			if v, ok := value.(map[string]interface{}); ok {
				applyServiceUpdate(&c.VisionService, v)
			}
		case "enhancement_service":
			if v, ok := value.(map[string]interface{}); ok {
				applyServiceUpdate(&c.EnhancementService, v)
			}
		case "translation_service":
			if v, ok := value.(map[string]interface{}); ok {
				applyServiceUpdate(&c.TranslationService, v)
			}
		case "hotkeys":
			if v, ok := value.(map[string]interface{}); ok {
				if toggle, ok := v["toggle_recording"].(map[string]interface{}); ok {
					applyHotkeyUpdate(&c.Hotkeys.ToggleRecording, toggle)
				}
				if process, ok := v["process_text"].(map[string]interface{}); ok {
					applyHotkeyUpdate(&c.Hotkeys.ProcessText, process)
				}
			}
		}
	}

	return nil
}

func applyServiceUpdate(s *ServiceConfig, v map[string]interface{}) {
	if provider, ok := v["provider"].(string); ok {
		s.Provider = provider
	}
	if model, ok := v["model"].(string); ok {
		s.Model = model
	}
	if env, ok := v["api_key_env"].(string); ok {
		s.APIKeyEnv = env
	}
	if lang, ok := v["language"].(string); ok {
		s.Language = lang
	}
	if width, ok := v["max_width"].(float64); ok {
		s.MaxWidth = int(width)
	}
	if to, ok := v["zh_to"].(string); ok {
		s.ZhTo = to
	}
	if to, ok := v["other_to"].(string); ok {
		s.OtherTo = to
	}
}

func applyHotkeyUpdate(h *HotkeyConfig, v map[string]interface{}) {
	// HotkeyConfigの各フィールドを更新
	if ctrl, ok := v["ctrl"].(bool); ok {
		h.Ctrl = ctrl
	}
	if shift, ok := v["shift"].(bool); ok {
		h.Shift = shift
	}
	if alt, ok := v["alt"].(bool); ok {
		h.Alt = alt
	}
	if cmd, ok := v["cmd"].(bool); ok {
		h.Cmd = cmd
	}
	if key, ok := v["key"].(string); ok {
		h.Key = key
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Hotkeys:            c.Hotkeys,
		Recording:          c.Recording,
		ASRService:         c.ASRService,
		VisionService:      c.VisionService,
		EnhancementService: c.EnhancementService,
		TranslationService: c.TranslationService,
		Output:             c.Output,
		AudioDeviceID:      c.AudioDeviceID,
		UILanguage:         c.UILanguage,
		PasteSplitSize:     c.PasteSplitSize,
	}
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	// Return absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// GetOutputPath returns the expanded transcript file path
func (c *Config) GetOutputPath() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ExpandPath(c.Output.FilePath)
}

// validateService checks the fields common to all cloud services
func validateService(name string, s ServiceConfig) error {
	if !validProviders[s.Provider] {
		return fmt.Errorf("invalid %s provider: %s (must be 'groq', 'openai' or 'google')", name, s.Provider)
	}
	if s.Model == "" {
		return fmt.Errorf("%s model cannot be empty", name)
	}
	if s.APIKeyEnv == "" {
		return fmt.Errorf("%s api_key_env cannot be empty", name)
	}
	return nil
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Validate UI language
	if c.UILanguage != "ja" && c.UILanguage != "en" {
		return fmt.Errorf("invalid ui_language: %s (must be 'ja' or 'en')", c.UILanguage)
	}

	// Validate countdown
	if c.Recording.CountdownSeconds <= 0 || c.Recording.CountdownSeconds > 300 {
		return fmt.Errorf("invalid countdown_seconds: %d (must be between 1 and 300 seconds)", c.Recording.CountdownSeconds)
	}

	// Validate chunk length
	if c.Recording.RealtimeChunkSeconds <= 0 || c.Recording.RealtimeChunkSeconds > c.Recording.CountdownSeconds {
		return fmt.Errorf("invalid realtime_chunk_seconds: %d (must be between 1 and countdown_seconds)", c.Recording.RealtimeChunkSeconds)
	}

	// Validate sample rate
	if c.Recording.SampleRate != 16000 && c.Recording.SampleRate != 44100 && c.Recording.SampleRate != 48000 {
		return fmt.Errorf("invalid sample_rate: %d (must be 16000, 44100 or 48000)", c.Recording.SampleRate)
	}

	// Validate paste split size
	if c.PasteSplitSize <= 0 || c.PasteSplitSize > 10000 {
		return fmt.Errorf("invalid paste_split_size: %d (must be between 1 and 10000 characters)", c.PasteSplitSize)
	}

	// Validate the four cloud services
	if err := validateService("asr_service", c.ASRService); err != nil {
		return err
	}
	if c.ASRService.Language == "" {
		return fmt.Errorf("asr_service language cannot be empty (use 'auto' for detection)")
	}
	if err := validateService("vision_service", c.VisionService); err != nil {
		return err
	}
	if c.VisionService.MaxWidth <= 0 {
		return fmt.Errorf("invalid vision_service max_width: %d", c.VisionService.MaxWidth)
	}
	if err := validateService("enhancement_service", c.EnhancementService); err != nil {
		return err
	}
	if err := validateService("translation_service", c.TranslationService); err != nil {
		return err
	}
	if c.TranslationService.ZhTo == "" || c.TranslationService.OtherTo == "" {
		return fmt.Errorf("translation_service targets cannot be empty")
	}

	// Output path may stay empty when save_to_file is off
	if c.Output.SaveToFile && c.Output.FilePath == "" {
		return fmt.Errorf("output filepath cannot be empty when save_to_file is enabled")
	}

	return nil
}

// ResolveAPIKeys checks that every configured service can obtain its key.
// Called at startup so a missing key fails fast instead of mid-session.
func (c *Config) ResolveAPIKeys() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	services := []struct {
		name string
		svc  ServiceConfig
	}{
		{"asr_service", c.ASRService},
		{"vision_service", c.VisionService},
		{"enhancement_service", c.EnhancementService},
		{"translation_service", c.TranslationService},
	}
	for _, s := range services {
		if _, err := s.svc.ResolveAPIKey(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
