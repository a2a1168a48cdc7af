package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yok-tottii/EzS2T-Context/internal/audio"
	"github.com/yok-tottii/EzS2T-Context/internal/logger"
	"github.com/yok-tottii/EzS2T-Context/internal/vision"
)

// State represents the session state
type State int

const (
	// StateIdle means no recording is in progress
	StateIdle State = iota
	// StateRecording means a recording session is active
	StateRecording
	// StateProcessing means recording stopped and results are being assembled
	StateProcessing
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Default join timeouts. Transcription chunks have mostly finished by the
// time the user stops talking; the vision call may still be in flight and
// gets longer.
const (
	defaultTranscriptionJoinTimeout = 5 * time.Second
	defaultVisionJoinTimeout        = 10 * time.Second
)

// queueCapacity bounds the chunk queue. Chunks that would overflow it are
// dropped with a warning, so neither the audio callback nor the session
// stop ever blocks on a slow transcription backend.
const queueCapacity = 32

// Transcriber converts one PCM chunk into text
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16) (string, error)
}

// ScreenAnalyzer produces the screen context record for a session
type ScreenAnalyzer interface {
	AnalyzeScreen(ctx context.Context) vision.Record
}

// Enhancer rewrites a transcript using screen context
type Enhancer interface {
	Enhance(ctx context.Context, transcript string, screen vision.Record) string
}

// Result is the outcome of one completed session
type Result struct {
	Text       string
	Empty      bool
	ScreenUsed bool
}

// Deps collects everything the session manager drives
type Deps struct {
	Audio       audio.AudioDriver
	Transcriber Transcriber
	Screen      ScreenAnalyzer
	Enhancer    Enhancer
	Logger      *logger.Logger

	CountdownSeconds int

	// Join timeouts for the two workers at stop. Zero means the default.
	TranscriptionJoinTimeout time.Duration
	VisionJoinTimeout        time.Duration

	// OnTick reports remaining seconds once per second while recording
	OnTick func(remaining int)
	// OnState reports state transitions
	OnState func(state State)
	// OnResult delivers the finished session outcome
	OnResult func(result Result)
}

// Manager orchestrates one recording session at a time: chunked audio to
// the transcriber, one screenshot to the analyzer, then the merge.
type Manager struct {
	deps Deps

	mu    sync.Mutex
	state State

	queue             chan []int16
	fragments         []string
	fragMu            sync.Mutex
	transcriptionDone chan struct{}

	visionRecord vision.Record
	visionDone   chan struct{}

	countdownStop chan struct{}
}

// NewManager creates a session manager
func NewManager(deps Deps) *Manager {
	if deps.TranscriptionJoinTimeout <= 0 {
		deps.TranscriptionJoinTimeout = defaultTranscriptionJoinTimeout
	}
	if deps.VisionJoinTimeout <= 0 {
		deps.VisionJoinTimeout = defaultVisionJoinTimeout
	}
	return &Manager{
		deps:  deps,
		state: StateIdle,
	}
}

// State returns the current session state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Toggle starts a session when idle and stops it when recording.
// This is the handler for the recording hotkey.
func (m *Manager) Toggle() error {
	m.mu.Lock()
	switch m.state {
	case StateIdle:
		m.mu.Unlock()
		return m.start()
	case StateRecording:
		m.mu.Unlock()
		m.stop(false)
		return nil
	default:
		m.mu.Unlock()
		return fmt.Errorf("session is still processing")
	}
}

// start begins a new recording session
func (m *Manager) start() error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("session already active")
	}

	m.queue = make(chan []int16, queueCapacity)
	m.fragments = nil
	m.transcriptionDone = make(chan struct{})
	m.visionDone = make(chan struct{})
	m.countdownStop = make(chan struct{})
	m.visionRecord = vision.FailureRecord("analysis not finished")
	m.state = StateRecording
	queue := m.queue
	m.mu.Unlock()

	if err := m.deps.Audio.StartRecording(m.enqueueChunk); err != nil {
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("failed to start recording: %w", err)
	}

	// キューはバッファ付きなので、ワーカー起動前に届いたチャンクも失われない
	go m.transcriptionWorker(queue)
	go m.visionWorker()

	m.notifyState(StateRecording)
	m.deps.Logger.Info("録音セッション開始")

	go m.countdown()

	return nil
}

// enqueueChunk is called from the audio callback with each full chunk.
// The queue is sized so this never blocks the audio thread.
func (m *Manager) enqueueChunk(chunk []int16) {
	select {
	case m.queue <- chunk:
	default:
		m.deps.Logger.Warn("チャンクキューが満杯のためチャンクを破棄")
	}
}

// countdown auto-stops the session when the configured limit is reached
func (m *Manager) countdown() {
	remaining := m.deps.CountdownSeconds
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			remaining--
			if m.deps.OnTick != nil {
				m.deps.OnTick(remaining)
			}
			if remaining <= 0 {
				m.deps.Logger.Warn("録音が%d秒に達したため自動停止", m.deps.CountdownSeconds)
				m.stop(true)
				return
			}
		case <-m.countdownStop:
			return
		}
	}
}

// stop ends the recording and assembles the result asynchronously
func (m *Manager) stop(auto bool) {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	m.state = StateProcessing
	m.mu.Unlock()

	if !auto {
		close(m.countdownStop)
	}

	m.notifyState(StateProcessing)
	m.deps.Logger.Info("録音セッション停止 (auto=%v)", auto)

	go m.finish()
}

// finish drains the audio, joins the workers and merges the results
func (m *Manager) finish() {
	remainder, err := m.deps.Audio.StopRecording()
	if err != nil {
		m.deps.Logger.Error("録音停止エラー: %v", err)
	} else if len(remainder) > 0 {
		select {
		case m.queue <- remainder:
		default:
			m.deps.Logger.Warn("チャンクキューが満杯のため端数チャンクを破棄")
		}
	}

	// クローズが終端シグナル。キューが満杯でもここでブロックしない。
	// StopRecording が戻った後はオーディオコールバックは呼ばれない。
	close(m.queue)

	// Bounded joins: a hung API call must not wedge the session forever.
	select {
	case <-m.transcriptionDone:
	case <-time.After(m.deps.TranscriptionJoinTimeout):
		m.deps.Logger.Warn("文字起こしの完了待ちがタイムアウト")
	}

	visionReady := false
	select {
	case <-m.visionDone:
		visionReady = true
	case <-time.After(m.deps.VisionJoinTimeout):
		m.deps.Logger.Warn("画面解析の完了待ちがタイムアウト")
	}

	m.fragMu.Lock()
	transcript := strings.TrimSpace(strings.Join(m.fragments, " "))
	m.fragMu.Unlock()

	result := m.merge(transcript, visionReady)

	m.mu.Lock()
	m.state = StateIdle
	m.mu.Unlock()
	m.notifyState(StateIdle)

	if m.deps.OnResult != nil {
		m.deps.OnResult(result)
	}
}

// merge applies the output policy: no speech means no output, screen
// context upgrades the transcript through enhancement, anything else
// passes the transcript through verbatim.
func (m *Manager) merge(transcript string, visionReady bool) Result {
	if transcript == "" {
		m.deps.Logger.Warn("文字起こし結果が空です")
		return Result{Empty: true}
	}

	m.mu.Lock()
	screen := m.visionRecord
	m.mu.Unlock()

	if !visionReady || !screen.Success {
		m.deps.Logger.Info("画面コンテキストなしで完了 (visionReady=%v, success=%v)", visionReady, screen.Success)
		return Result{Text: transcript}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	enhanced := m.deps.Enhancer.Enhance(ctx, transcript, screen)
	return Result{Text: enhanced, ScreenUsed: true}
}

// transcriptionWorker drains the chunk queue until it is closed
func (m *Manager) transcriptionWorker(queue chan []int16) {
	defer close(m.transcriptionDone)

	for chunk := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		text, err := m.deps.Transcriber.Transcribe(ctx, chunk)
		cancel()

		if err != nil {
			m.deps.Logger.Error("チャンクの文字起こしに失敗: %v", err)
			continue
		}

		if text == "" {
			continue
		}

		m.fragMu.Lock()
		m.fragments = append(m.fragments, text)
		m.fragMu.Unlock()
	}
}

// visionWorker captures and analyzes the screen once per session
func (m *Manager) visionWorker() {
	defer close(m.visionDone)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	record := m.deps.Screen.AnalyzeScreen(ctx)

	m.mu.Lock()
	m.visionRecord = record
	m.mu.Unlock()

	if record.Success {
		m.deps.Logger.Info("画面解析完了")
	} else {
		m.deps.Logger.Warn("画面解析失敗: %s", record.Err)
	}
}

func (m *Manager) notifyState(state State) {
	if m.deps.OnState != nil {
		m.deps.OnState(state)
	}
}
