package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yok-tottii/EzS2T-Context/internal/api"
	"github.com/yok-tottii/EzS2T-Context/internal/asr"
	"github.com/yok-tottii/EzS2T-Context/internal/audio"
	"github.com/yok-tottii/EzS2T-Context/internal/clipboard"
	"github.com/yok-tottii/EzS2T-Context/internal/config"
	"github.com/yok-tottii/EzS2T-Context/internal/enhance"
	"github.com/yok-tottii/EzS2T-Context/internal/hotkey"
	"github.com/yok-tottii/EzS2T-Context/internal/i18n"
	"github.com/yok-tottii/EzS2T-Context/internal/logger"
	"github.com/yok-tottii/EzS2T-Context/internal/notification"
	"github.com/yok-tottii/EzS2T-Context/internal/output"
	"github.com/yok-tottii/EzS2T-Context/internal/permissions"
	"github.com/yok-tottii/EzS2T-Context/internal/server"
	"github.com/yok-tottii/EzS2T-Context/internal/session"
	"github.com/yok-tottii/EzS2T-Context/internal/translate"
	"github.com/yok-tottii/EzS2T-Context/internal/tray"
	"github.com/yok-tottii/EzS2T-Context/internal/vision"
	"github.com/yok-tottii/EzS2T-Context/internal/wizard"
)

const version = "0.1.0"

// App holds all application state
type App struct {
	logger       *logger.Logger
	config       *config.Config
	trayMgr      *tray.Manager
	httpServer   *server.Server
	apiHandler   *api.Handler
	toggleHotkey *hotkey.Manager
	processHotkey *hotkey.Manager
	audioDriver  audio.AudioDriver
	audioConfig  audio.Config
	session      *session.Manager
	translator   *translate.Translator
	clipboard    *clipboard.Manager
	outputWriter *output.Writer
	notifier     *notification.NotificationManager
	wizard       *wizard.SetupWizard

	micGranted    bool
	accGranted    bool
	screenGranted bool
	isFirstRun    bool
}

func init() {
	// macOSのCGO呼び出しにはメインスレッドが必要
	runtime.LockOSThread()
}

func main() {
	app := &App{}

	// .envファイルがあればAPIキー環境変数を取り込む（無ければ無視）
	godotenv.Load()

	// ロガーの初期化
	loggerConfig := logger.DefaultConfig()
	var err error
	app.logger, err = logger.New(loggerConfig)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer app.logger.Close()

	app.logger.Info("EzS2T-Context v%s 起動", version)

	// 設定ファイルの読み込み
	configPath := config.GetConfigPath()
	app.config, err = config.Load(configPath)
	if err != nil {
		app.logger.Error("設定ファイルの読み込みに失敗: %v", err)
		log.Fatalf("設定ファイルの読み込みに失敗: %v", err)
	}
	app.logger.Info("設定ファイルを読み込みました: %s", configPath)

	if err := app.config.Validate(); err != nil {
		app.logger.Error("設定ファイルの検証に失敗: %v", err)
		log.Fatalf("設定ファイルの検証に失敗: %v", err)
	}

	// APIキーはすべて起動時に解決できなければならない
	if err := app.config.ResolveAPIKeys(); err != nil {
		app.logger.Error("APIキーの解決に失敗: %v", err)
		log.Fatalf("APIキーの解決に失敗: %v\n環境変数を設定するか .env ファイルを用意してください", err)
	}

	// UI言語の設定
	translator := i18n.NewTranslator(i18n.Language(app.config.UILanguage))
	translator.LoadDefaults()
	i18n.GlobalTranslator = translator

	// セットアップウィザード初期化
	app.wizard, err = wizard.NewSetupWizard()
	if err != nil {
		app.logger.Error("セットアップウィザード初期化エラー: %v", err)
	}

	// 初回起動判定
	app.isFirstRun = app.wizard != nil && app.wizard.ShouldShowWizard()

	// Clipboard Managerの初期化
	clipConfig := clipboard.DefaultConfig()
	clipConfig.SplitSize = app.config.PasteSplitSize
	app.clipboard = clipboard.NewManager(clipConfig)
	app.logger.Info("Clipboard Manager初期化完了")

	// 通知・翻訳・出力の初期化
	app.notifier = notification.NewNotificationManager("EzS2T-Context")
	app.translator = translate.NewTranslator(app.config.TranslationService)
	app.outputWriter = output.NewWriter(app.config.Output)

	// HTTPサーバーの初期化
	app.httpServer = server.New(server.DefaultConfig())
	app.apiHandler = api.New(app.config, app.wizard, app.ReloadHotkeys)

	// APIルートを登録
	app.apiHandler.RegisterRoutes(app.httpServer.GetMux())
	app.logger.Info("APIルート登録完了")

	// システムトレイマネージャーの作成
	app.trayMgr = tray.NewManager(tray.Config{
		OnReady:        app.onReady,
		OnSettings:     app.handleOpenSettings,
		OnAbout:        app.handleAbout,
		OnDeviceChange: app.handleDeviceChange,
		OnQuit:         app.handleQuit,
	})

	app.logger.Info("systray初期化開始")

	// systray.Run()を呼び出し - これはブロッキング呼び出し
	app.trayMgr.Run()
}

// onReady は systray が初期化完了後に呼ばれる
func (a *App) onReady() {
	a.logger.Info("systray初期化完了 - アプリケーション初期化開始")

	// 権限チェック
	permChecker := permissions.NewPermissionChecker()
	perms := permChecker.CheckAllPermissions()

	a.micGranted = perms["microphone"]
	a.accGranted = perms["accessibility"]
	a.screenGranted = perms["screen_recording"]

	if a.micGranted {
		a.logger.Info("マイク権限: 許可済み")
	} else {
		a.logger.Warn("マイク権限: 未許可 - 録音機能が無効化されます")
		a.notifier.MicrophonePermissionDenied()
	}

	if a.accGranted {
		a.logger.Info("アクセシビリティ権限: 許可済み")
	} else {
		a.logger.Warn("アクセシビリティ権限: 未許可 - ホットキーと貼り付け機能が無効化されます")
		a.notifier.AccessibilityPermissionDenied()
	}

	if a.screenGranted {
		a.logger.Info("画面収録権限: 許可済み")
	} else {
		// 画面コンテキストなしでも文字起こしは動くので警告に留める
		a.logger.Warn("画面収録権限: 未許可 - 画面コンテキスト解析が無効化されます")
		a.notifier.ScreenRecordingPermissionDenied()
	}

	// オーディオドライバの初期化（マイク権限がある場合のみ）
	if a.micGranted {
		var err error
		a.audioDriver, err = audio.NewPortAudioDriver()
		if err != nil {
			a.logger.Error("PortAudioドライバの作成に失敗: %v", err)
		} else {
			a.audioConfig = audio.DefaultConfig()
			a.audioConfig.SampleRate = a.config.Recording.SampleRate
			a.audioConfig.ChunkSeconds = a.config.Recording.RealtimeChunkSeconds
			// 設定ファイルのデバイスIDを反映（-1の場合はシステムデフォルト）
			a.audioConfig.DeviceID = a.config.AudioDeviceID
			a.logger.Info("設定からオーディオデバイスIDを適用: %d", a.config.AudioDeviceID)
			if err := a.audioDriver.Initialize(a.audioConfig); err != nil {
				a.logger.Error("オーディオドライバの初期化に失敗: %v", err)
			} else {
				a.logger.Info("オーディオドライバ初期化完了")
				// API HandlerにAudioDriverを設定
				a.apiHandler.SetAudioDriver(a.audioDriver)
				a.updateDeviceMenu()
			}
		}
	}

	// 録音セッションマネージャーの構築
	if a.audioDriver != nil {
		a.session = session.NewManager(session.Deps{
			Audio:            a.audioDriver,
			Transcriber:      asr.NewTranscriber(a.config.ASRService, a.audioConfig.SampleRate, a.audioConfig.Channels),
			Screen:           vision.NewScreenAnalyzer(a.config.VisionService),
			Enhancer:         enhance.NewEnhancer(a.config.EnhancementService),
			Logger:           a.logger,
			CountdownSeconds: a.config.Recording.CountdownSeconds,
			OnTick:           a.handleCountdownTick,
			OnState:          a.handleSessionState,
			OnResult:         a.handleSessionResult,
		})
		a.logger.Info("録音セッションマネージャー初期化完了")
	}

	// ホットキーの登録（アクセシビリティ権限がある場合のみ）
	if a.accGranted {
		if err := a.registerHotkeys(a.config); err != nil {
			a.logger.Error("ホットキーの登録に失敗: %v", err)
			a.trayMgr.ShowError(fmt.Sprintf("ホットキーの登録に失敗: %v", err))
		}
	}

	// 初回起動時は自動的にセットアップ画面を開く
	if a.isFirstRun && a.wizard != nil {
		a.logger.Info("初回起動検出 - セットアップ画面を開きます")
		a.handleOpenSettings()
		// MarkSetupCompleted()はAPIハンドラで設定保存時に呼ばれる
	}

	a.logger.Info("アプリケーション初期化完了")

	// HTTPサーバーを起動
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("HTTPサーバーの起動に失敗: %v", err)
		a.trayMgr.ShowError("設定画面の起動に失敗しました")
	}

	// シグナルハンドリングを設定（Ctrl+Cでの適切な終了処理）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.logger.Info("終了シグナルを受信しました")
		a.handleQuit()
		a.trayMgr.Quit() // systray.Quit()を呼び出してsystray.Run()を終了
	}()

	// ターミナルに設定画面URLを常に表示
	fmt.Println("\n" + "==========================================================")
	fmt.Println("[起動] EzS2T-Context が起動しました")
	fmt.Println("==========================================================")
	fmt.Printf("[設定] 設定画面URL: %s\n", a.httpServer.URL())
	fmt.Printf("[操作] メニューバーのアイコンをクリックしてメニューを開けます\n")

	if a.toggleHotkey != nil {
		cfg := a.toggleHotkey.GetConfig()
		fmt.Printf("[設定] 録音ホットキー: %s\n", hotkey.FormatHotkey(cfg.Modifiers, cfg.Key))
	}
	if a.processHotkey != nil {
		cfg := a.processHotkey.GetConfig()
		fmt.Printf("[設定] 翻訳ホットキー: %s\n", hotkey.FormatHotkey(cfg.Modifiers, cfg.Key))
	}

	fmt.Printf("[終了] Ctrl+C またはメニューから「終了」\n")
	fmt.Println("==========================================================" + "\n")
}

// registerHotkeys は2つのホットキーを登録してイベントループを起動する
func (a *App) registerHotkeys(cfg *config.Config) error {
	toggleConfig := hotkey.FromConfig(cfg.Hotkeys.ToggleRecording)
	processConfig := hotkey.FromConfig(cfg.Hotkeys.ProcessText)

	if hotkey.Same(toggleConfig, processConfig) {
		return fmt.Errorf("recording and translation hotkeys are identical")
	}

	a.toggleHotkey = hotkey.New()
	if err := a.toggleHotkey.Register(toggleConfig); err != nil {
		return fmt.Errorf("failed to register recording hotkey: %w", err)
	}

	a.processHotkey = hotkey.New()
	if err := a.processHotkey.Register(processConfig); err != nil {
		a.toggleHotkey.Close()
		return fmt.Errorf("failed to register translation hotkey: %w", err)
	}

	go a.toggleEventLoop(a.toggleHotkey.Events())
	go a.processEventLoop(a.processHotkey.Events())

	a.logger.Info("ホットキー登録完了: 録音=%s, 翻訳=%s",
		hotkey.FormatHotkey(toggleConfig.Modifiers, toggleConfig.Key),
		hotkey.FormatHotkey(processConfig.Modifiers, processConfig.Key))

	return nil
}

// toggleEventLoop は録音トグルホットキーのイベントを処理する
func (a *App) toggleEventLoop(events <-chan hotkey.Event) {
	a.logger.Info("録音ホットキーイベントループ開始")

	for range events {
		if a.session == nil {
			a.logger.Warn("ホットキー押下検出しましたが、録音セッションが初期化されていません")
			a.trayMgr.ShowError(i18n.T("error.mic_permission_denied"))
			continue
		}

		if err := a.session.Toggle(); err != nil {
			a.logger.Warn("録音トグル失敗: %v", err)
		}
	}

	a.logger.Info("録音ホットキーイベントループ終了")
}

// processEventLoop は選択テキスト翻訳ホットキーのイベントを処理する
func (a *App) processEventLoop(events <-chan hotkey.Event) {
	a.logger.Info("翻訳ホットキーイベントループ開始")

	for range events {
		a.handleProcessText()
	}

	a.logger.Info("翻訳ホットキーイベントループ終了")
}

// handleProcessText は選択中のテキストを翻訳してその場で置き換える
func (a *App) handleProcessText() {
	if !a.accGranted {
		a.logger.Warn("翻訳: アクセシビリティ権限がありません")
		a.trayMgr.ShowError(i18n.T("error.accessibility_permission_denied"))
		return
	}

	a.logger.Info("選択テキスト翻訳開始")
	a.trayMgr.SetState(tray.StateTranslating)
	defer a.trayMgr.SetState(tray.StateIdle)

	text, err := a.clipboard.CopySelection()
	if err != nil {
		a.logger.Warn("選択テキストの取得に失敗: %v", err)
		a.notifier.TranslationFailed("テキストが選択されていません")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	translated := a.translator.Translate(ctx, text)

	if err := a.clipboard.SafePasteWithSplit(translated); err != nil {
		a.logger.Error("翻訳結果の貼り付けに失敗: %v", err)
		a.notifier.TranslationFailed(err.Error())
		return
	}

	a.logger.Info("翻訳完了 (%d文字 -> %d文字)", len(text), len(translated))
	a.notifier.TranslationComplete()
}

// handleCountdownTick は録音中の残り秒数を反映する
func (a *App) handleCountdownTick(remaining int) {
	a.trayMgr.SetCountdown(remaining)
	if remaining == 0 {
		a.notifier.RecordingTimeExceeded(a.config.Recording.CountdownSeconds)
	}
}

// handleSessionState はセッション状態をトレイ表示に反映する
func (a *App) handleSessionState(state session.State) {
	switch state {
	case session.StateRecording:
		a.trayMgr.SetState(tray.StateRecording)
		a.notifier.RecordingStarted()
	case session.StateProcessing:
		a.trayMgr.SetState(tray.StateProcessing)
	case session.StateIdle:
		a.trayMgr.SetState(tray.StateIdle)
	}
}

// handleSessionResult はセッション完了時の出力を処理する
func (a *App) handleSessionResult(result session.Result) {
	if result.Empty {
		a.logger.Info("音声が検出されなかったため出力しません")
		a.notifier.NoSpeechDetected()
		return
	}

	a.logger.Info("セッション結果受信: %d文字 (画面コンテキスト=%v)", len(result.Text), result.ScreenUsed)

	if err := a.outputWriter.Deliver(result.Text); err != nil {
		// クリップボードには入っているのでエラーでも通知は成功扱い
		a.logger.Error("結果の書き出しに失敗: %v", err)
		a.trayMgr.ShowError(fmt.Sprintf("ファイル保存に失敗: %v", err))
	}

	a.notifier.TranscriptionComplete()
}

// handleDeviceChange は入力デバイスの切り替えを処理する
func (a *App) handleDeviceChange(deviceID int) {
	a.logger.Info("入力デバイス変更要求: %d", deviceID)

	if a.audioDriver == nil {
		a.logger.Warn("デバイス変更: オーディオドライバが初期化されていません")
		return
	}

	if a.session != nil && a.session.State() != session.StateIdle {
		a.logger.Warn("デバイス変更: 録音中のため変更できません")
		a.trayMgr.ShowError("録音中はデバイスを変更できません")
		return
	}

	a.audioConfig.DeviceID = deviceID
	if err := a.audioDriver.Initialize(a.audioConfig); err != nil {
		a.logger.Error("デバイス変更: ドライバの再初期化に失敗: %v", err)
		a.trayMgr.ShowError(fmt.Sprintf("デバイスの切り替えに失敗: %v", err))
		return
	}

	// 設定ファイルに保存
	a.config.AudioDeviceID = deviceID
	if err := a.config.Save(config.GetConfigPath()); err != nil {
		a.logger.Error("デバイス変更: 設定の保存に失敗: %v", err)
	}

	a.updateDeviceMenu()
	a.logger.Info("入力デバイス変更完了: %d", deviceID)
}

// updateDeviceMenu はトレイのデバイスサブメニューを最新化する
func (a *App) updateDeviceMenu() {
	if a.audioDriver == nil {
		return
	}

	devices, err := a.audioDriver.ListDevices()
	if err != nil {
		a.logger.Warn("デバイス一覧の取得に失敗: %v", err)
		return
	}

	menuDevices := make([]tray.Device, 0, len(devices))
	for _, dev := range devices {
		menuDevices = append(menuDevices, tray.Device{
			ID:        dev.ID,
			Name:      dev.Name,
			IsDefault: dev.IsDefault,
			IsCurrent: dev.ID == a.config.AudioDeviceID,
		})
	}
	a.trayMgr.UpdateDeviceMenu(menuDevices)
}

// handleOpenSettings は設定画面を開く
func (a *App) handleOpenSettings() {
	a.logger.Info("設定画面を開く要求")

	// サーバーが起動していない場合はエラー
	if !a.httpServer.IsRunning() {
		a.logger.Error("HTTPサーバーが起動していません")
		a.trayMgr.ShowError("設定画面が利用できません。アプリケーションを再起動してください。")
		return
	}

	// ブラウザで設定画面を開く
	url := a.httpServer.URL()
	a.logger.Info("ブラウザを開きます: %s", url)

	// goroutineで非同期実行
	go func() {
		cmd := exec.Command("open", url)
		if err := cmd.Run(); err != nil {
			a.logger.Error("ブラウザの起動に失敗: %v", err)
			a.trayMgr.ShowError(fmt.Sprintf("ブラウザの起動に失敗: %v", err))

			// フォールバック: ターミナルにURLを表示
			fmt.Printf("\n[警告] ブラウザが自動で開きませんでした\n")
			fmt.Printf("[情報] 設定画面URL: %s\n", url)
			fmt.Printf("[ヒント] 上記URLをブラウザで開いてください\n\n")
		}
	}()
}

// handleAbout はバージョン情報を表示
func (a *App) handleAbout() {
	a.logger.Info("バージョン情報表示要求")

	// バージョン情報をダイアログで表示
	info := []string{
		"EzS2T-Context",
		"",
		fmt.Sprintf("Version: %s", version),
		"",
		"画面コンテキスト対応クラウド音声入力アプリケーション",
		"",
		"Copyright © 2026 yoktotti",
		"MIT License",
	}

	dialogText := strings.Join(info, "\\n")
	script := fmt.Sprintf(`display dialog "%s" buttons {"OK"} default button "OK" with title "バージョン情報"`, dialogText)

	// goroutineで非同期実行（UIブロックを防ぐ）
	go exec.Command("osascript", "-e", script).Run()
}

// handleQuit はアプリケーションを終了
func (a *App) handleQuit() {
	a.logger.Info("終了要求")

	// HTTPサーバーを停止
	if a.httpServer != nil && a.httpServer.IsRunning() {
		if err := a.httpServer.Stop(); err != nil {
			a.logger.Error("HTTPサーバーの停止に失敗: %v", err)
		}
	}

	// ホットキーマネージャーをクローズ
	if a.toggleHotkey != nil {
		a.toggleHotkey.Close()
	}
	if a.processHotkey != nil {
		a.processHotkey.Close()
	}

	// オーディオドライバをクローズ
	if a.audioDriver != nil {
		a.audioDriver.Close()
	}

	a.logger.Info("アプリケーション終了")
}

// ReloadHotkeys は設定ファイルから読み込んだ内容で、両ホットキーを再登録する
func (a *App) ReloadHotkeys() error {
	a.logger.Info("ホットキー再登録要求")

	// 権限チェック
	if !a.accGranted {
		a.logger.Warn("ホットキー再登録: アクセシビリティ権限がありません")
		return fmt.Errorf("accessibility permission not granted")
	}

	// 設定ファイルを再読み込み（最新の設定を取得）
	configPath := config.GetConfigPath()
	freshConfig, err := config.Load(configPath)
	if err != nil {
		a.logger.Error("設定ファイルの再読み込みに失敗: %v", err)
		return fmt.Errorf("failed to reload config: %w", err)
	}

	// 既存の設定をバックアップ（ロールバック用）
	oldConfig := a.config

	// 既存のホットキーを解除
	if a.toggleHotkey != nil && a.toggleHotkey.IsRunning() {
		if err := a.toggleHotkey.Close(); err != nil {
			a.logger.Error("録音ホットキー解除に失敗: %v", err)
			return fmt.Errorf("failed to unregister recording hotkey: %w", err)
		}
	}
	if a.processHotkey != nil && a.processHotkey.IsRunning() {
		if err := a.processHotkey.Close(); err != nil {
			a.logger.Error("翻訳ホットキー解除に失敗: %v", err)
			return fmt.Errorf("failed to unregister translation hotkey: %w", err)
		}
	}

	// イベントループが完全に終了するまで待機
	time.Sleep(200 * time.Millisecond)

	// 新しいホットキーを登録
	if err := a.registerHotkeys(freshConfig); err != nil {
		a.logger.Error("新しいホットキー登録に失敗: %v", err)

		// ロールバック: 旧ホットキーを再登録
		a.logger.Warn("ロールバック: 旧ホットキーを再登録します")
		if rollbackErr := a.registerHotkeys(oldConfig); rollbackErr != nil {
			a.logger.Error("ロールバック失敗: %v", rollbackErr)
			a.trayMgr.ShowError("ホットキーの登録に失敗しました。アプリケーションを再起動してください。")
			return fmt.Errorf("failed to register new hotkeys and rollback failed: %w, rollback error: %v", err, rollbackErr)
		}
		a.logger.Info("ロールバック完了")
		return fmt.Errorf("failed to register new hotkeys: %w", err)
	}

	// アプリケーションの設定を更新
	a.config = freshConfig

	a.logger.Info("ホットキー再登録完了")
	a.trayMgr.ShowNotification("ホットキー変更", "新しいホットキーを適用しました")

	return nil
}
