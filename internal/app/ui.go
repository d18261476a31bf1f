package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"yashubustudio/mbtidash/internal/chart"
	"yashubustudio/mbtidash/internal/report"
	"yashubustudio/mbtidash/mbti"
)

const (
	barMaxWidth  float32 = 360
	barHeight    float32 = 18
	barLabelSize float32 = 140
)

var (
	barColor       = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	referenceColor = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

type uiState struct {
	service    *mbti.Service
	logger     *zap.Logger
	configPath string
	sink       *logSink

	ctx    context.Context
	cancel context.CancelFunc

	w          fyne.Window
	statusBind binding.String
	logBind    binding.String
	summary    *widget.Label
	typeSel    *widget.Select
	targetSel  *widget.Select

	avgTbl *widget.Table
	topTbl *widget.Table
	cmpTbl *widget.Table

	avgBars *fyne.Container
	topBars *fyne.Container
	cmpBars *fyne.Container

	reloadBtn *widget.Button
	exportBtn *widget.Button
	chartBtn  *widget.Button
	loadBtn   *widget.Button

	mu       sync.Mutex
	snap     *mbti.Snapshot
	avgView  gridView
	topView  gridView
	cmpView  gridView
	updating bool
}

func buildUI(a fyne.App, svc *mbti.Service, logger *zap.Logger, sink *logSink, logBind binding.String, configPath string) *uiState {
	u := &uiState{service: svc, logger: logger, sink: sink, logBind: logBind, configPath: configPath}
	u.ctx, u.cancel = context.WithCancel(context.Background())
	u.w = a.NewWindow("MBTI 国別ダッシュボード")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("準備完了")

	logEntry := widget.NewEntryWithData(u.logBind)
	logEntry.MultiLine = true
	logEntry.Wrapping = fyne.TextWrapWord
	logEntry.SetPlaceHolder("処理ログ")
	logEntry.Disable()

	u.summary = widget.NewLabel(summaryText(nil))
	u.summary.Wrapping = fyne.TextWrapWord

	u.typeSel = widget.NewSelect(nil, func(string) { u.onSelectionChanged() })
	u.typeSel.PlaceHolder = "タイプを選択"
	u.targetSel = widget.NewSelect(nil, func(string) { u.onTargetChanged() })
	u.targetSel.PlaceHolder = "比較する国を選択"

	u.reloadBtn = widget.NewButtonWithIcon("再読込", theme.ViewRefreshIcon(), func() { u.onReload() })
	u.exportBtn = widget.NewButtonWithIcon("Excel出力", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.chartBtn = widget.NewButtonWithIcon("グラフ出力", theme.MediaPhotoIcon(), func() { u.onExportCharts() })
	u.loadBtn = widget.NewButtonWithIcon("データ読込", theme.FolderOpenIcon(), func() { u.onLoadFile() })
	settingsBtn := widget.NewButtonWithIcon("設定", theme.SettingsIcon(), func() { u.openSettings() })

	u.avgTbl = u.newGrid(func() gridView { return u.avgView })
	u.topTbl = u.newGrid(func() gridView { return u.topView })
	u.cmpTbl = u.newGrid(func() gridView { return u.cmpView })
	u.avgBars = container.NewVBox()
	u.topBars = container.NewVBox()
	u.cmpBars = container.NewVBox()

	tabs := container.NewAppTabs(
		container.NewTabItem("全体平均", container.NewHSplit(u.avgTbl, container.NewVScroll(u.avgBars))),
		container.NewTabItem("タイプ別ランキング", container.NewHSplit(u.topTbl, container.NewVScroll(u.topBars))),
		container.NewTabItem("国別比較", container.NewHSplit(u.cmpTbl, container.NewVScroll(u.cmpBars))),
	)

	controlRow1 := container.NewGridWithColumns(3, u.reloadBtn, u.loadBtn, settingsBtn)
	controlRow2 := container.NewGridWithColumns(2, u.exportBtn, u.chartBtn)
	left := container.NewVBox(
		widget.NewLabelWithStyle("タイプ", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.typeSel,
		widget.NewLabelWithStyle("比較対象", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.targetSel,
		controlRow1,
		controlRow2,
		widget.NewSeparator(),
		widget.NewLabelWithData(u.statusBind),
		widget.NewLabelWithStyle("概要", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.summary,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("ログ", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	leftPane := container.NewBorder(left, nil, nil, nil, logEntry)

	split := container.NewHSplit(leftPane, tabs)
	split.Offset = 0.3

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	u.w.SetOnClosed(func() {
		u.cancel()
	})
	return u
}

func (u *uiState) newGrid(view func() gridView) *widget.Table {
	return widget.NewTable(
		func() (int, int) {
			u.mu.Lock()
			g := view()
			u.mu.Unlock()
			cols := len(g.columns)
			if cols == 0 {
				cols = 1
			}
			return len(g.rows) + 1, cols
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			u.mu.Lock()
			g := view()
			u.mu.Unlock()
			if id.Row == 0 {
				title := ""
				if id.Col < len(g.columns) {
					title = g.columns[id.Col].Title
				}
				lbl.SetText(title)
				lbl.Alignment = fyne.TextAlignCenter
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				return
			}
			lbl.TextStyle = fyne.TextStyle{}
			lbl.Alignment = fyne.TextAlignLeading
			if id.Col > 0 {
				lbl.Alignment = fyne.TextAlignTrailing
			}
			lbl.SetText(g.cell(id.Row-1, id.Col))
		},
	)
}

func applyColumnWidths(tbl *widget.Table, g gridView) {
	for i, col := range g.columns {
		tbl.SetColumnWidth(i, col.Width)
	}
	tbl.SetRowHeight(0, 32)
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		for _, btn := range []*widget.Button{u.reloadBtn, u.exportBtn, u.chartBtn, u.loadBtn} {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
	})
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) currentSnapshot() *mbti.Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snap
}

// refresh recomputes every view off the UI goroutine.
func (u *uiState) refresh(code mbti.TypeCode, target string) {
	u.setBusy(true)
	u.setStatus("集計中...")
	go func() {
		defer u.setBusy(false)
		snap, err := u.service.Snapshot(code, target)
		if err != nil && errors.Is(err, mbti.ErrUnknownType) && code != "" {
			// The selected type vanished after a reload.
			snap, err = u.service.Snapshot("", target)
		}
		if err != nil && errors.Is(err, mbti.ErrCountryNotFound) && target != "" {
			snap, err = u.service.Snapshot(code, "")
		}
		if err != nil {
			u.logger.Error("refresh failed", zap.Error(err))
			u.setStatus("エラー")
			fyne.Do(func() {
				u.applySnapshot(nil)
				dialog.ShowError(err, u.w)
			})
			return
		}
		u.setStatus(fmt.Sprintf("更新済み (%s)", snap.Source.ModTime.Format("2006-01-02 15:04:05")))
		fyne.Do(func() { u.applySnapshot(snap) })
	}()
}

func (u *uiState) applySnapshot(snap *mbti.Snapshot) {
	f := u.service.Formatter()
	u.mu.Lock()
	u.snap = snap
	if snap == nil {
		u.avgView, u.topView, u.cmpView = gridView{}, gridView{}, gridView{}
	} else {
		u.avgView = averageView(snap.Averages, f)
		u.topView = topView(snap.SelectedType, snap.Top, f)
		u.cmpView = compareView(snap.Comparison, f)
	}
	avgGrid, topGrid, cmpGrid := u.avgView, u.topView, u.cmpView
	u.updating = true
	u.mu.Unlock()

	if snap != nil {
		u.typeSel.Options = typeOptions(snap.Types)
		u.typeSel.SetSelected(string(snap.SelectedType))
		u.targetSel.Options = snap.Countries
		u.targetSel.SetSelected(snap.Target)
		u.typeSel.Refresh()
		u.targetSel.Refresh()
	}
	u.summary.SetText(summaryText(snap))

	u.mu.Lock()
	u.updating = false
	u.mu.Unlock()

	applyColumnWidths(u.avgTbl, avgGrid)
	applyColumnWidths(u.topTbl, topGrid)
	applyColumnWidths(u.cmpTbl, cmpGrid)
	u.avgTbl.Refresh()
	u.topTbl.Refresh()
	u.cmpTbl.Refresh()

	if snap == nil {
		setBars(u.avgBars, nil, f)
		setBars(u.topBars, nil, f)
		u.cmpBars.Objects = nil
		u.cmpBars.Refresh()
		return
	}
	setBars(u.avgBars, averageBars(snap.Averages), f)
	setBars(u.topBars, topBars(snap.Top), f)
	u.setComparisonBars(snap)
}

func setBars(box *fyne.Container, bars []bar, f *mbti.PercentFormatter) {
	largest := largestValue(bars)
	objects := make([]fyne.CanvasObject, 0, len(bars))
	for _, b := range bars {
		objects = append(objects, barRow(b.Label, b.Value, largest, barColor, f))
	}
	box.Objects = objects
	box.Refresh()
}

func barRow(label string, value, largest float64, c color.Color, f *mbti.PercentFormatter) fyne.CanvasObject {
	name := widget.NewLabel(label)
	name.Truncation = fyne.TextTruncateEllipsis
	nameBox := container.NewGridWrap(fyne.NewSize(barLabelSize, barHeight+16), name)
	rect := canvas.NewRectangle(c)
	rect.SetMinSize(fyne.NewSize(barLength(value, largest, barMaxWidth), barHeight))
	return container.NewHBox(nameBox, container.NewCenter(rect), widget.NewLabel(f.Format(value)))
}

func (u *uiState) setComparisonBars(snap *mbti.Snapshot) {
	if snap.Comparison == nil {
		msg := "比較データがありません"
		if snap.ReferenceMissing {
			msg = fmt.Sprintf("基準国 %s がデータにありません", snap.Reference)
		}
		u.cmpBars.Objects = []fyne.CanvasObject{widget.NewLabel(msg)}
		u.cmpBars.Refresh()
		return
	}
	f := u.service.Formatter()
	var largest float64
	for _, e := range snap.Comparison.Entries {
		largest = max(largest, e.Reference, e.Target)
	}
	legend := container.NewHBox(
		swatch(referenceColor), widget.NewLabel(snap.Comparison.Reference),
		swatch(barColor), widget.NewLabel(snap.Comparison.Target),
	)
	objects := []fyne.CanvasObject{legend}
	for _, e := range snap.Comparison.Entries {
		objects = append(objects,
			barRow(string(e.Type), e.Reference, largest, referenceColor, f),
			barRow("", e.Target, largest, barColor, f),
		)
	}
	u.cmpBars.Objects = objects
	u.cmpBars.Refresh()
}

func swatch(c color.Color) fyne.CanvasObject {
	rect := canvas.NewRectangle(c)
	rect.SetMinSize(fyne.NewSize(barHeight, barHeight))
	return container.NewCenter(rect)
}

func (u *uiState) selection() (mbti.TypeCode, string) {
	return mbti.TypeCode(u.typeSel.Selected), u.targetSel.Selected
}

func (u *uiState) isUpdating() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.updating
}

func (u *uiState) onSelectionChanged() {
	if u.isUpdating() {
		return
	}
	code, target := u.selection()
	u.refresh(code, target)
}

func (u *uiState) onTargetChanged() {
	if u.isUpdating() {
		return
	}
	code, target := u.selection()
	cfg := u.service.Config()
	if target != "" && target != cfg.LastTarget {
		cfg.LastTarget = target
		u.applyConfig(cfg)
	}
	u.refresh(code, target)
}

func (u *uiState) onReload() {
	code, target := u.selection()
	u.setBusy(true)
	go func() {
		defer u.setBusy(false)
		if _, err := u.service.Reload(); err != nil {
			u.logger.Error("reload failed", zap.Error(err))
			u.setStatus("エラー")
			fyne.Do(func() {
				u.applySnapshot(nil)
				dialog.ShowError(err, u.w)
			})
			return
		}
		u.logger.Info("dataset reloaded")
		u.refresh(code, target)
	}()
}

// applyConfig installs cfg in the service and persists it.
func (u *uiState) applyConfig(cfg mbti.Config) bool {
	if err := u.service.UpdateConfig(cfg); err != nil {
		dialog.ShowError(err, u.w)
		return false
	}
	if err := mbti.SaveConfig(u.configPath, u.service.Config()); err != nil {
		u.logger.Warn("save config failed", zap.Error(err))
	}
	return true
}

func (u *uiState) onExport() {
	snap := u.currentSnapshot()
	if snap == nil {
		dialog.ShowInformation("情報", "出力データがありません", u.w)
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := report.WriteWorkbookTo(uc, report.FromSnapshot(snap)); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info("workbook exported", zap.String("path", uc.URI().Path()))
	}, u.w)
	fd.SetFileName("mbti.xlsx")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".xlsx"}))
	fd.Show()
}

func (u *uiState) onExportCharts() {
	snap := u.currentSnapshot()
	if snap == nil {
		dialog.ShowInformation("情報", "出力データがありません", u.w)
		return
	}
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		paths, err := chart.WriteAll(dir.Path(), snap, chart.DefaultSize)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info("charts exported", zap.Int("files", len(paths)), zap.String("dir", dir.Path()))
	}, u.w)
	fd.Show()
}

func (u *uiState) onLoadFile() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		cfg := u.service.Config()
		cfg.DataPath = path
		cfg.LastTarget = ""
		if !u.applyConfig(cfg) {
			return
		}
		u.logger.Info("dataset selected", zap.String("path", path))
		u.restartWatch()
		u.refresh("", "")
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".tsv"}))
	fd.Show()
}

func (u *uiState) openSettings() {
	cfg := u.service.Config()

	refEntry := widget.NewEntry()
	refEntry.SetText(cfg.ReferenceCountry)
	defaultEntry := widget.NewEntry()
	defaultEntry.SetText(cfg.DefaultTarget)
	topNSel := widget.NewSelect([]string{"5", "10", "20", "50"}, nil)
	topNSel.SetSelected(strconv.Itoa(cfg.TopN))
	commonSel := widget.NewSelect([]string{"1", "2", "3", "4", "5"}, nil)
	commonSel.SetSelected(strconv.Itoa(cfg.MostCommon))
	localeEntry := widget.NewEntry()
	localeEntry.SetText(cfg.Locale)
	watchCheck := widget.NewCheck("ファイル変更を監視する", nil)
	watchCheck.SetChecked(cfg.Watch)

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "基準国", Widget: refEntry},
		{Text: "既定の比較国", Widget: defaultEntry},
		{Text: "ランキング件数", Widget: topNSel},
		{Text: "最多タイプ数", Widget: commonSel},
		{Text: "ロケール", Widget: localeEntry},
		{Text: "自動再読込", Widget: watchCheck},
	}}

	dialog.NewCustomConfirm("設定", "OK", "キャンセル", form, func(ok bool) {
		if !ok {
			return
		}
		newCfg := cfg
		newCfg.ReferenceCountry = strings.TrimSpace(refEntry.Text)
		newCfg.DefaultTarget = strings.TrimSpace(defaultEntry.Text)
		if v, err := strconv.Atoi(topNSel.Selected); err == nil {
			newCfg.TopN = v
		}
		if v, err := strconv.Atoi(commonSel.Selected); err == nil {
			newCfg.MostCommon = v
		}
		newCfg.Locale = strings.TrimSpace(localeEntry.Text)
		newCfg.Watch = watchCheck.Checked
		if !u.applyConfig(newCfg) {
			return
		}
		u.logger.Info("settings updated")
		u.restartWatch()
		code, target := u.selection()
		u.refresh(code, target)
	}, u.w).Show()
}

// restartWatch re-arms the file watcher for the configured dataset.
func (u *uiState) restartWatch() {
	_ = u.service.Close()
	if !u.service.Config().Watch {
		return
	}
	err := u.service.Watch(u.ctx, func(_ *mbti.Table, err error) {
		if err != nil {
			u.setStatus("エラー")
			fyne.Do(func() { u.applySnapshot(nil) })
			return
		}
		fyne.Do(func() {
			code, target := u.selection()
			u.refresh(code, target)
		})
	})
	if err != nil {
		u.logger.Warn("watch disabled", zap.Error(err))
	}
}
