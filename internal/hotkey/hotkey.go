package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/EzS2T-Context/internal/config"
)

// Event represents a hotkey activation. Both application hotkeys act as
// taps: every press emits one event, key release is ignored.
type Event struct{}

// Config holds hotkey configuration
type Config struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
}

// Manager manages global hotkey registration and events
type Manager struct {
	hk        *hotkey.Hotkey
	config    Config
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates a new hotkey manager with default configuration
// Default: Ctrl+Option+Space
func New() *Manager {
	return &Manager{
		config: Config{
			Modifiers: []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModOption},
			Key:       hotkey.KeySpace,
		},
		eventChan: make(chan Event, 10),
		stopChan:  make(chan struct{}),
	}
}

// Register registers the hotkey with the system
func (m *Manager) Register(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hotkey is already running, call Close() first")
	}

	m.config = config

	// Recreate channels (they may have been closed by a previous Close())
	m.stopChan = make(chan struct{})
	m.eventChan = make(chan Event, 10)

	// Create hotkey instance
	hk := hotkey.New(m.config.Modifiers, m.config.Key)

	// Register the hotkey
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	m.hk = hk
	m.running = true

	// Start listening in a goroutine
	m.wg.Add(1)
	go m.listen()

	return nil
}

// RegisterDefault registers the default hotkey (Ctrl+Option+Space)
func (m *Manager) RegisterDefault() error {
	return m.Register(m.config)
}

// listen monitors hotkey events and sends them to the event channel
func (m *Manager) listen() {
	defer m.wg.Done()

	for {
		select {
		case <-m.hk.Keydown():
			m.eventChan <- Event{}

		case <-m.hk.Keyup():
			// タップ動作なのでキー解放は無視

		case <-m.stopChan:
			return
		}
	}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	return m.eventChan
}

// Close unregisters the hotkey and stops listening
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	var unregisterErr error

	// Signal the listener to stop
	close(m.stopChan)

	// Wait for the listener goroutine to finish
	m.wg.Wait()

	// Unregister the hotkey
	// 注意: エラーが発生しても続行し、必ずクリーンアップを実行する
	if m.hk != nil {
		if err := m.hk.Unregister(); err != nil {
			unregisterErr = fmt.Errorf("failed to unregister hotkey: %w", err)
		}
	}

	// Close event channel to notify consumers of shutdown
	if m.eventChan != nil {
		close(m.eventChan)
		m.eventChan = nil
	}

	// 必ず running フラグを false にセット
	// これにより、Unregister() が失敗しても次の Register() が可能になる
	m.running = false

	return unregisterErr
}

// IsRunning returns whether the hotkey is currently registered and running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetConfig returns a deep copy of the current hotkey configuration
// to prevent callers from modifying the Manager's internal state
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Create a shallow copy of the config struct
	configCopy := m.config

	// Deep copy the Modifiers slice to prevent caller from mutating it
	if m.config.Modifiers != nil {
		configCopy.Modifiers = make([]hotkey.Modifier, len(m.config.Modifiers))
		copy(configCopy.Modifiers, m.config.Modifiers)
	}

	return configCopy
}

// FromConfig converts a config file hotkey binding into a registrable Config
func FromConfig(hkConfig config.HotkeyConfig) Config {
	return Config{
		Modifiers: ModifiersFromConfig(hkConfig),
		Key:       KeyFromString(hkConfig.Key),
	}
}

// ModifiersFromConfig converts config flags to golang.design/x/hotkey modifiers
func ModifiersFromConfig(hkConfig config.HotkeyConfig) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if hkConfig.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if hkConfig.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if hkConfig.Alt {
		mods = append(mods, hotkey.ModOption)
	}
	if hkConfig.Cmd {
		mods = append(mods, hotkey.ModCmd)
	}
	return mods
}

// KeyFromString converts a key name from the config file to a key code
func KeyFromString(keyStr string) hotkey.Key {
	keyMap := map[string]hotkey.Key{
		"Space":  hotkey.KeySpace,
		"A":      hotkey.KeyA,
		"B":      hotkey.KeyB,
		"C":      hotkey.KeyC,
		"D":      hotkey.KeyD,
		"E":      hotkey.KeyE,
		"F":      hotkey.KeyF,
		"G":      hotkey.KeyG,
		"H":      hotkey.KeyH,
		"I":      hotkey.KeyI,
		"J":      hotkey.KeyJ,
		"K":      hotkey.KeyK,
		"L":      hotkey.KeyL,
		"M":      hotkey.KeyM,
		"N":      hotkey.KeyN,
		"O":      hotkey.KeyO,
		"P":      hotkey.KeyP,
		"Q":      hotkey.KeyQ,
		"R":      hotkey.KeyR,
		"S":      hotkey.KeyS,
		"T":      hotkey.KeyT,
		"U":      hotkey.KeyU,
		"V":      hotkey.KeyV,
		"W":      hotkey.KeyW,
		"X":      hotkey.KeyX,
		"Y":      hotkey.KeyY,
		"Z":      hotkey.KeyZ,
		"0":      hotkey.Key0,
		"1":      hotkey.Key1,
		"2":      hotkey.Key2,
		"3":      hotkey.Key3,
		"4":      hotkey.Key4,
		"5":      hotkey.Key5,
		"6":      hotkey.Key6,
		"7":      hotkey.Key7,
		"8":      hotkey.Key8,
		"9":      hotkey.Key9,
		"Escape": hotkey.KeyEscape,
		"Return": hotkey.KeyReturn,
		"Tab":    hotkey.KeyTab,
	}

	if key, ok := keyMap[keyStr]; ok {
		return key
	}

	// デフォルトはSpace
	return hotkey.KeySpace
}
