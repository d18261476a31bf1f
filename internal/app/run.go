package app

import (
	"fmt"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"yashubustudio/mbtidash/mbti"
)

const (
	fyneAppID    = "yashubustudio.mbtidash"
	logLineLimit = 300
)

// Run loads the configuration at configPath (empty for ./config.json) and
// starts the desktop dashboard. It returns when the window is closed.
func Run(configPath string) error {
	a := fyneapp.NewWithID(fyneAppID)

	cfg, err := mbti.LoadConfig(configPath)
	if err != nil {
		win := a.NewWindow("MBTI 国別ダッシュボード")
		showFatalError(win, fmt.Errorf("設定の読み込みに失敗しました: %w", err))
		return err
	}

	logBind := binding.NewString()
	sink := newLogSink(logBind, logLineLimit)
	sink.start()
	defer sink.stop()
	logger := newLogger(sink, cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	loader := mbti.NewLoader(mbti.LoaderOptions{Columns: cfg.Columns, Logger: logger})
	svc, err := mbti.NewService(cfg, loader, logger)
	if err != nil {
		win := a.NewWindow("MBTI 国別ダッシュボード")
		showFatalError(win, fmt.Errorf("初期化に失敗しました: %w", err))
		return err
	}
	defer svc.Close()

	u := buildUI(a, svc, logger, sink, logBind, configPath)
	logger.Info("dashboard started", zap.String("data", cfg.DataPath))
	u.restartWatch()
	u.refresh("", "")
	u.w.ShowAndRun()
	return nil
}

func showFatalError(win fyne.Window, err error) {
	win.SetContent(widget.NewLabel(err.Error()))
	win.Resize(fyne.NewSize(640, 240))
	dialog.ShowError(err, win)
	win.ShowAndRun()
}
