package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yok-tottii/EzS2T-Context/internal/audio"
	"github.com/yok-tottii/EzS2T-Context/internal/logger"
	"github.com/yok-tottii/EzS2T-Context/internal/vision"
)

// fakeAudio implements audio.AudioDriver without hardware
type fakeAudio struct {
	mu        sync.Mutex
	onChunk   func([]int16)
	recording bool
	remainder []int16
	startErr  error
}

func (f *fakeAudio) ListDevices() ([]audio.Device, error) { return nil, nil }
func (f *fakeAudio) Initialize(config audio.Config) error { return nil }
func (f *fakeAudio) Close() error                         { return nil }

func (f *fakeAudio) StartRecording(onChunk func([]int16)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChunk = onChunk
	f.recording = true
	return nil
}

func (f *fakeAudio) StopRecording() ([]int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recording = false
	return f.remainder, nil
}

func (f *fakeAudio) IsRecording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *fakeAudio) emit(chunk []int16) {
	f.mu.Lock()
	onChunk := f.onChunk
	f.mu.Unlock()
	if onChunk != nil {
		onChunk(chunk)
	}
}

// fakeTranscriber returns one canned text per chunk based on its length
type fakeTranscriber struct {
	mu    sync.Mutex
	texts map[int]string
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if text, ok := f.texts[len(samples)]; ok {
		return text, nil
	}
	return "", nil
}

// blockingTranscriber parks every Transcribe call until release is closed
type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingTranscriber() *blockingTranscriber {
	return &blockingTranscriber{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return "", nil
}

type fakeScreen struct {
	record vision.Record
	delay  time.Duration
}

func (f *fakeScreen) AnalyzeScreen(ctx context.Context) vision.Record {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.record
}

type fakeEnhancer struct {
	mu     sync.Mutex
	called bool
}

func (f *fakeEnhancer) Enhance(ctx context.Context, transcript string, screen vision.Record) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	return "enhanced: " + transcript
}

func (f *fakeEnhancer) wasCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{
		LogDir:        t.TempDir(),
		Level:         logger.DEBUG,
		RetentionDays: 1,
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func successRecord() vision.Record {
	return vision.Record{
		Success:               true,
		OverallContext:        "code editor",
		FocusArea:             "test file",
		ContextualInformation: "Go source",
	}
}

func waitForResult(t *testing.T, results chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for session result")
		return Result{}
	}
}

func TestToggleRecordsAndEnhances(t *testing.T) {
	driver := &fakeAudio{}
	transcriber := &fakeTranscriber{texts: map[int]string{
		10: "hello",
		20: "world",
	}}
	enhancer := &fakeEnhancer{}
	results := make(chan Result, 1)

	m := NewManager(Deps{
		Audio:            driver,
		Transcriber:      transcriber,
		Screen:           &fakeScreen{record: successRecord()},
		Enhancer:         enhancer,
		Logger:           testLogger(t),
		CountdownSeconds: 60,
		OnResult:         func(r Result) { results <- r },
	})

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}
	if m.State() != StateRecording {
		t.Errorf("state after start = %v, want %v", m.State(), StateRecording)
	}

	driver.emit(make([]int16, 10))
	driver.emit(make([]int16, 20))

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (stop) failed: %v", err)
	}

	result := waitForResult(t, results)
	if result.Empty {
		t.Fatal("result should not be empty")
	}
	if result.Text != "enhanced: hello world" {
		t.Errorf("result text = %q, want %q", result.Text, "enhanced: hello world")
	}
	if !result.ScreenUsed {
		t.Error("ScreenUsed should be true when vision succeeded")
	}
	if !enhancer.wasCalled() {
		t.Error("enhancer should have been called")
	}
	if m.State() != StateIdle {
		t.Errorf("state after result = %v, want %v", m.State(), StateIdle)
	}
}

func TestNoSpeechProducesEmptyResult(t *testing.T) {
	driver := &fakeAudio{}
	enhancer := &fakeEnhancer{}
	results := make(chan Result, 1)

	m := NewManager(Deps{
		Audio:            driver,
		Transcriber:      &fakeTranscriber{},
		Screen:           &fakeScreen{record: successRecord()},
		Enhancer:         enhancer,
		Logger:           testLogger(t),
		CountdownSeconds: 60,
		OnResult:         func(r Result) { results <- r },
	})

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}
	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (stop) failed: %v", err)
	}

	result := waitForResult(t, results)
	if !result.Empty {
		t.Error("result should be empty when nothing was transcribed")
	}
	if result.Text != "" {
		t.Errorf("result text = %q, want empty", result.Text)
	}
	if enhancer.wasCalled() {
		t.Error("enhancer must not run without a transcript")
	}
}

func TestVisionFailureFallsBackToVerbatim(t *testing.T) {
	driver := &fakeAudio{remainder: make([]int16, 10)}
	transcriber := &fakeTranscriber{texts: map[int]string{10: "raw transcript"}}
	enhancer := &fakeEnhancer{}
	results := make(chan Result, 1)

	m := NewManager(Deps{
		Audio:            driver,
		Transcriber:      transcriber,
		Screen:           &fakeScreen{record: vision.FailureRecord("capture failed")},
		Enhancer:         enhancer,
		Logger:           testLogger(t),
		CountdownSeconds: 60,
		OnResult:         func(r Result) { results <- r },
	})

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}
	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (stop) failed: %v", err)
	}

	result := waitForResult(t, results)
	if result.Text != "raw transcript" {
		t.Errorf("result text = %q, want verbatim transcript", result.Text)
	}
	if result.ScreenUsed {
		t.Error("ScreenUsed should be false when vision failed")
	}
	if enhancer.wasCalled() {
		t.Error("enhancer must not run without screen context")
	}
}

func TestVisionTimeoutFallsBackToVerbatim(t *testing.T) {
	// 画面解析が完了待ちのタイムアウトを超えた場合、解析結果は成功で
	// あっても読まれず、文字起こしをそのまま返す
	driver := &fakeAudio{remainder: make([]int16, 10)}
	transcriber := &fakeTranscriber{texts: map[int]string{10: "raw transcript"}}
	enhancer := &fakeEnhancer{}
	results := make(chan Result, 1)

	m := NewManager(Deps{
		Audio:             driver,
		Transcriber:       transcriber,
		Screen:            &fakeScreen{record: successRecord(), delay: 500 * time.Millisecond},
		Enhancer:          enhancer,
		Logger:            testLogger(t),
		CountdownSeconds:  60,
		VisionJoinTimeout: 50 * time.Millisecond,
		OnResult:          func(r Result) { results <- r },
	})

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}
	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (stop) failed: %v", err)
	}

	result := waitForResult(t, results)
	if result.Text != "raw transcript" {
		t.Errorf("result text = %q, want verbatim transcript", result.Text)
	}
	if result.ScreenUsed {
		t.Error("ScreenUsed should be false when vision timed out")
	}
	if enhancer.wasCalled() {
		t.Error("enhancer must not run when vision timed out")
	}
}

func TestStopDoesNotBlockOnFullQueue(t *testing.T) {
	// ASR が詰まってキューが満杯でも、停止は完了待ちのタイムアウト内で
	// 結果を返す。あふれたチャンクと端数は警告つきで破棄される。
	driver := &fakeAudio{remainder: make([]int16, 7)}
	transcriber := newBlockingTranscriber()
	results := make(chan Result, 1)

	m := NewManager(Deps{
		Audio:                    driver,
		Transcriber:              transcriber,
		Screen:                   &fakeScreen{record: vision.FailureRecord("none")},
		Enhancer:                 &fakeEnhancer{},
		Logger:                   testLogger(t),
		CountdownSeconds:         60,
		TranscriptionJoinTimeout: 100 * time.Millisecond,
		VisionJoinTimeout:        100 * time.Millisecond,
		OnResult:                 func(r Result) { results <- r },
	})
	defer close(transcriber.release)

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}

	// ワーカーが Transcribe で停止してからキューを容量以上まで埋める
	driver.emit(make([]int16, 10))
	select {
	case <-transcriber.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transcriber to start")
	}
	for i := 0; i < queueCapacity+1; i++ {
		driver.emit(make([]int16, 10))
	}

	start := time.Now()
	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (stop) failed: %v", err)
	}

	result := waitForResult(t, results)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stop took %v, want bounded by the join timeouts", elapsed)
	}
	if !result.Empty {
		t.Errorf("result = %+v, want empty with the worker stuck", result)
	}
	if m.State() != StateIdle {
		t.Errorf("state after stop = %v, want %v", m.State(), StateIdle)
	}
}

func TestRemainderIsTranscribed(t *testing.T) {
	// 停止時の端数サンプルも文字起こしに回ることを確認する
	driver := &fakeAudio{remainder: make([]int16, 7)}
	transcriber := &fakeTranscriber{texts: map[int]string{
		10: "first",
		7:  "trailing",
	}}
	results := make(chan Result, 1)

	m := NewManager(Deps{
		Audio:            driver,
		Transcriber:      transcriber,
		Screen:           &fakeScreen{record: vision.FailureRecord("none")},
		Enhancer:         &fakeEnhancer{},
		Logger:           testLogger(t),
		CountdownSeconds: 60,
		OnResult:         func(r Result) { results <- r },
	})

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}
	driver.emit(make([]int16, 10))
	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (stop) failed: %v", err)
	}

	result := waitForResult(t, results)
	if result.Text != "first trailing" {
		t.Errorf("result text = %q, want %q", result.Text, "first trailing")
	}
}

func TestCountdownAutoStops(t *testing.T) {
	driver := &fakeAudio{remainder: make([]int16, 5)}
	transcriber := &fakeTranscriber{texts: map[int]string{5: "cut off"}}
	results := make(chan Result, 1)
	var ticks []int
	var tickMu sync.Mutex

	m := NewManager(Deps{
		Audio:            driver,
		Transcriber:      transcriber,
		Screen:           &fakeScreen{record: vision.FailureRecord("none")},
		Enhancer:         &fakeEnhancer{},
		Logger:           testLogger(t),
		CountdownSeconds: 1,
		OnTick: func(remaining int) {
			tickMu.Lock()
			ticks = append(ticks, remaining)
			tickMu.Unlock()
		},
		OnResult: func(r Result) { results <- r },
	})

	if err := m.Toggle(); err != nil {
		t.Fatalf("Toggle (start) failed: %v", err)
	}

	result := waitForResult(t, results)
	if result.Text != "cut off" {
		t.Errorf("result text = %q, want %q", result.Text, "cut off")
	}
	if m.State() != StateIdle {
		t.Errorf("state after auto-stop = %v, want %v", m.State(), StateIdle)
	}

	tickMu.Lock()
	defer tickMu.Unlock()
	if len(ticks) == 0 || ticks[len(ticks)-1] != 0 {
		t.Errorf("ticks = %v, want final tick of 0", ticks)
	}
}

func TestStartFailureLeavesIdle(t *testing.T) {
	driver := &fakeAudio{startErr: fmt.Errorf("device busy")}

	m := NewManager(Deps{
		Audio:            driver,
		Transcriber:      &fakeTranscriber{},
		Screen:           &fakeScreen{record: successRecord()},
		Enhancer:         &fakeEnhancer{},
		Logger:           testLogger(t),
		CountdownSeconds: 60,
	})

	if err := m.Toggle(); err == nil {
		t.Fatal("Toggle should fail when the driver cannot start")
	}
	if m.State() != StateIdle {
		t.Errorf("state after failed start = %v, want %v", m.State(), StateIdle)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "idle",
		StateRecording:  "recording",
		StateProcessing: "processing",
		State(99):       "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
