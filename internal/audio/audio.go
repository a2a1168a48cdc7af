package audio

// Device represents an audio input device
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// Config holds audio configuration
type Config struct {
	DeviceID     int
	SampleRate   int
	Channels     int
	Latency      LatencyMode
	ChunkSeconds int
}

// DefaultConfig returns the default audio configuration
// Sample rate: 16kHz (speech recognition standard)
// Channels: 1 (mono)
// Latency: HighStability
func DefaultConfig() Config {
	return Config{
		DeviceID:     -1, // -1 means use default device
		SampleRate:   16000,
		Channels:     1,
		Latency:      HighStability,
		ChunkSeconds: 30,
	}
}

// ChunkSamples returns the number of samples per realtime chunk
func (c Config) ChunkSamples() int {
	return c.ChunkSeconds * c.SampleRate * c.Channels
}

// AudioDriver is the interface for audio input.
// Recording delivers fixed-length PCM chunks through the onChunk callback
// while the session is running; StopRecording returns the remainder that
// never filled a whole chunk.
type AudioDriver interface {
	// ListDevices returns a list of available audio input devices
	ListDevices() ([]Device, error)

	// Initialize initializes the audio driver with the given configuration
	Initialize(config Config) error

	// StartRecording starts recording audio. onChunk is invoked from the
	// audio callback each time a full chunk of samples accumulates; it must
	// not block.
	StartRecording(onChunk func([]int16)) error

	// StopRecording stops recording and returns the trailing samples that
	// did not fill a complete chunk
	StopRecording() ([]int16, error)

	// IsRecording returns whether recording is currently active
	IsRecording() bool

	// Close releases all resources
	Close() error
}
