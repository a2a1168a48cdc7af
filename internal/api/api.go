package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yok-tottii/EzS2T-Context/internal/audio"
	"github.com/yok-tottii/EzS2T-Context/internal/config"
	"github.com/yok-tottii/EzS2T-Context/internal/hotkey"
	"github.com/yok-tottii/EzS2T-Context/internal/permissions"
	"github.com/yok-tottii/EzS2T-Context/internal/wizard"
)

// Handler manages API endpoints
type Handler struct {
	config          *config.Config
	wizard          *wizard.SetupWizard
	audioDriver     audio.AudioDriver
	permChecker     *permissions.PermissionChecker
	onHotkeyChanged func() error // Callback to reload hotkeys in main app
}

// New creates a new API handler
func New(cfg *config.Config, wiz *wizard.SetupWizard, onHotkeyChanged func() error) *Handler {
	return &Handler{
		config:          cfg,
		wizard:          wiz,
		audioDriver:     nil, // Will be set later via SetAudioDriver
		permChecker:     permissions.NewPermissionChecker(),
		onHotkeyChanged: onHotkeyChanged,
	}
}

// SetAudioDriver sets the audio driver instance
// This is called after the audio driver is initialized in main.go
func (h *Handler) SetAudioDriver(driver audio.AudioDriver) {
	h.audioDriver = driver
}

// RegisterRoutes registers all API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/hotkey/validate", h.handleHotkeyValidate)
	mux.HandleFunc("/api/hotkey/register", h.handleHotkeyRegister)
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/apikeys", h.handleAPIKeys)
	mux.HandleFunc("/api/permissions", h.handlePermissions)
}

// handleSettings handles GET and PUT /api/settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w, r)
	case http.MethodPut:
		h.putSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getSettings returns the current configuration
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.config)
}

// putSettings updates the configuration
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.config.Update(updates); err != nil {
		http.Error(w, fmt.Sprintf("Failed to update config: %v", err), http.StatusBadRequest)
		return
	}

	// Save to file
	configPath := config.GetConfigPath()
	if err := h.config.Save(configPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save config: %v", err), http.StatusInternalServerError)
		return
	}

	// 初回設定完了フラグを立てる
	if h.wizard != nil {
		if err := h.wizard.MarkSetupCompleted(); err != nil {
			// エラーログのみ、設定保存は成功しているので処理を継続
			fmt.Printf("Warning: Failed to mark setup completed: %v\n", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
	})
}

// hotkeyRequest identifies one of the two application bindings and its new value
type hotkeyRequest struct {
	Name   string              `json:"name"` // "toggle_recording" or "process_text"
	Hotkey config.HotkeyConfig `json:"hotkey"`
}

// handleHotkeyValidate handles POST /api/hotkey/validate
func (h *Handler) handleHotkeyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request hotkeyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	candidate := hotkey.FromConfig(request.Hotkey)

	// 既知のシステムショートカットとの競合チェック
	conflicts := hotkey.CheckConflicts(candidate.Modifiers, candidate.Key)

	conflictNames := []string{}
	for _, c := range conflicts {
		conflictNames = append(conflictNames, c.Name)
	}

	// もう一方のアプリ内バインディングとの衝突チェック
	other := h.otherBinding(request.Name)
	if hotkey.Same(candidate, hotkey.FromConfig(other)) {
		conflictNames = append(conflictNames, "Application hotkey")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"conflicts": conflictNames,
	})
}

// otherBinding returns the binding the request is NOT changing
func (h *Handler) otherBinding(name string) config.HotkeyConfig {
	if name == "process_text" {
		return h.config.Hotkeys.ToggleRecording
	}
	return h.config.Hotkeys.ProcessText
}

// handleHotkeyRegister handles POST /api/hotkey/register
func (h *Handler) handleHotkeyRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request hotkeyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if request.Name != "toggle_recording" && request.Name != "process_text" {
		http.Error(w, "Unknown hotkey name", http.StatusBadRequest)
		return
	}

	hk := request.Hotkey

	// Validate hotkey configuration
	if hk.Key == "" {
		http.Error(w, "Key cannot be empty", http.StatusBadRequest)
		return
	}

	// Check if at least one modifier is set (recommended for safety)
	if !hk.Ctrl && !hk.Shift && !hk.Alt && !hk.Cmd {
		http.Error(w, "At least one modifier key (Ctrl/Shift/Alt/Cmd) is recommended", http.StatusBadRequest)
		return
	}

	// 2つのバインディングが同じ組み合わせになってはいけない
	if hotkey.Same(hotkey.FromConfig(hk), hotkey.FromConfig(h.otherBinding(request.Name))) {
		http.Error(w, "Hotkey collides with the other application binding", http.StatusBadRequest)
		return
	}

	// Update config
	if request.Name == "toggle_recording" {
		h.config.Hotkeys.ToggleRecording = hk
	} else {
		h.config.Hotkeys.ProcessText = hk
	}

	// Save to file
	configPath := config.GetConfigPath()
	if err := h.config.Save(configPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save config: %v", err), http.StatusInternalServerError)
		return
	}

	// Reload hotkeys in the running application
	if h.onHotkeyChanged != nil {
		if err := h.onHotkeyChanged(); err != nil {
			// Log warning but don't fail the request (config is already saved)
			fmt.Printf("Warning: Failed to reload hotkey: %v\n", err)
			// Return partial success response
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "partial",
				"message": fmt.Sprintf("Hotkey saved but reload failed: %v. Please restart the application.", err),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Hotkey registered and applied successfully",
	})
}

// Device represents an audio device
type Device struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// convertAudioDevices converts audio.Device slice to api.Device slice
func convertAudioDevices(audioDevices []audio.Device) []Device {
	devices := make([]Device, 0, len(audioDevices))
	for _, dev := range audioDevices {
		devices = append(devices, Device{
			ID:        dev.ID,
			Name:      dev.Name,
			IsDefault: dev.IsDefault,
		})
	}
	return devices
}

// handleDevices handles GET /api/devices
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var devices []Device

	// Get actual devices from audio driver
	if h.audioDriver != nil {
		audioDevices, err := h.audioDriver.ListDevices()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list audio devices: %v", err), http.StatusInternalServerError)
			return
		}
		devices = convertAudioDevices(audioDevices)
	} else {
		// AudioDriver not initialized - create a temporary driver to list devices
		// This allows users to see and select devices even before granting microphone permission
		tempDriver, err := audio.NewPortAudioDriver()
		if err != nil {
			// If we can't create a driver, return system default only
			devices = []Device{
				{ID: -1, Name: "システムデフォルト", IsDefault: true},
			}
		} else {
			defer tempDriver.Close()
			audioDevices, err := tempDriver.ListDevices()
			if err != nil {
				// If we can't list devices, return system default only
				devices = []Device{
					{ID: -1, Name: "システムデフォルト", IsDefault: true},
				}
			} else {
				devices = convertAudioDevices(audioDevices)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"devices": devices,
	})
}

// APIKeyStatus reports whether one service's API key environment variable is set
type APIKeyStatus struct {
	Service   string `json:"service"`
	EnvName   string `json:"env_name"`
	Available bool   `json:"available"`
}

// handleAPIKeys handles GET /api/apikeys
// Keys live in environment variables; the UI only needs to know whether
// each one resolves, never the value itself.
func (h *Handler) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	services := []struct {
		name string
		svc  config.ServiceConfig
	}{
		{"asr", h.config.ASRService},
		{"vision", h.config.VisionService},
		{"enhancement", h.config.EnhancementService},
		{"translation", h.config.TranslationService},
	}

	statuses := make([]APIKeyStatus, 0, len(services))
	for _, s := range services {
		_, err := s.svc.ResolveAPIKey()
		statuses = append(statuses, APIKeyStatus{
			Service:   s.name,
			EnvName:   s.svc.APIKeyEnv,
			Available: err == nil,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"keys": statuses,
	})
}

// Permission represents a system permission status
type Permission struct {
	Granted bool `json:"granted"`
}

// handlePermissions handles GET /api/permissions
func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.permChecker.CheckAllPermissions()

	permissions := make(map[string]Permission, len(status))
	for name, granted := range status {
		permissions[name] = Permission{Granted: granted}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(permissions)
}
