package ui

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/stremio-downloads/internal/model"
)

// RowActions are the callbacks a DownloadRow invokes
type RowActions struct {
	OnOpen   func(f model.DisplayFile)
	OnReveal func(f model.DisplayFile)
	OnDelete func(f model.DisplayFile)
}

// DownloadRow renders one file: name, status, progress and actions
type DownloadRow struct {
	widget.BaseWidget

	file    model.DisplayFile
	actions RowActions

	titleLabel   *widget.Label
	detailLabel  *widget.Label
	statusLabel  *widget.Label
	percentLabel *widget.Label
	progressBar  *widget.ProgressBar
	playBtn      *widget.Button
	revealBtn    *widget.Button
	deleteBtn    *widget.Button
}

// NewDownloadRow creates a row for f
func NewDownloadRow(f model.DisplayFile, actions RowActions) *DownloadRow {
	r := &DownloadRow{actions: actions}
	r.ExtendBaseWidget(r)
	r.createUI()
	r.SetFile(f)
	return r
}

// rowKey identifies the file a row shows. Directory-only files have no ID.
func rowKey(f model.DisplayFile) string {
	if f.ID != "" {
		return f.ID
	}
	return "dir:" + f.Name
}

func (r *DownloadRow) createUI() {
	r.titleLabel = widget.NewLabel("")
	r.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis

	r.detailLabel = widget.NewLabel("")
	r.detailLabel.TextStyle = fyne.TextStyle{Monospace: true}
	r.detailLabel.Truncation = fyne.TextTruncateEllipsis

	r.statusLabel = widget.NewLabel("")
	r.statusLabel.Alignment = fyne.TextAlignTrailing
	r.percentLabel = widget.NewLabel("")
	r.percentLabel.Alignment = fyne.TextAlignTrailing

	r.progressBar = widget.NewProgressBar()
	r.progressBar.TextFormatter = func() string { return "" }

	r.playBtn = widget.NewButton(IconPlay, func() {
		if r.actions.OnOpen != nil {
			r.actions.OnOpen(r.file)
		}
	})
	r.revealBtn = widget.NewButton(IconFolder, func() {
		if r.actions.OnReveal != nil {
			r.actions.OnReveal(r.file)
		}
	})
	r.deleteBtn = widget.NewButton(IconDelete, func() {
		if r.actions.OnDelete != nil {
			r.actions.OnDelete(r.file)
		}
	})
	r.deleteBtn.Importance = widget.DangerImportance
}

// SetFile updates the row with new data
func (r *DownloadRow) SetFile(f model.DisplayFile) {
	r.file = f

	r.titleLabel.SetText(f.Name)
	r.detailLabel.SetText(detailText(f))

	r.statusLabel.Importance = statusImportance(f.Status)
	r.statusLabel.SetText(statusText(f))

	if f.Status == model.StatusCompleted {
		r.percentLabel.SetText("")
	} else {
		r.percentLabel.SetText(fmt.Sprintf(ProgressLabelFormat, f.Percent()))
	}
	r.progressBar.SetValue(float64(f.Percent()) / 100)

	if f.Status == model.StatusCompleted {
		r.playBtn.Enable()
		r.revealBtn.Enable()
	} else {
		r.playBtn.Disable()
		r.revealBtn.Disable()
	}
	r.Refresh()
}

// File returns the file currently shown
func (r *DownloadRow) File() model.DisplayFile {
	return r.file
}

// CreateRenderer creates the widget renderer
func (r *DownloadRow) CreateRenderer() fyne.WidgetRenderer {
	fixedWidth := func(w float32, obj fyne.CanvasObject) fyne.CanvasObject {
		spacer := canvas.NewRectangle(color.Transparent)
		spacer.SetMinSize(fyne.NewSize(w, obj.MinSize().Height))
		return container.NewStack(spacer, obj)
	}

	info := container.NewVBox(
		fixedWidth(StatusLabelWidth, r.statusLabel),
		fixedWidth(PercentLabelWidth, r.percentLabel),
	)
	actions := container.NewHBox(r.playBtn, r.revealBtn, r.deleteBtn)
	right := container.NewBorder(nil, nil, nil, actions, info)
	text := container.NewVBox(r.titleLabel, r.detailLabel)

	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(RowMinWidth, 0))

	body := container.NewVBox(
		container.NewBorder(nil, nil, nil, right, text),
		r.progressBar,
		widget.NewSeparator(),
	)
	return widget.NewSimpleRenderer(container.NewStack(spacer, body))
}

// statusText returns the short status shown on the right of a row
func statusText(f model.DisplayFile) string {
	switch f.Status {
	case model.StatusFailed:
		return IconError + " " + f.Status.String()
	case model.StatusDownloading:
		return IconPlay + " " + f.Status.String()
	case model.StatusQueued:
		return IconQueued + " " + f.Status.String()
	case model.StatusPaused:
		return IconPaused + " " + f.Status.String()
	default:
		return f.Status.String()
	}
}

// detailText returns the secondary line: size or progress, playback position
// and the error of a failed download.
func detailText(f model.DisplayFile) string {
	var text string
	switch f.Status {
	case model.StatusCompleted:
		text = f.HumanSize()
	case model.StatusFailed:
		return f.Error
	default:
		text = f.HumanProgress()
	}
	if f.CurrentTime != nil && *f.CurrentTime > 0 {
		text += MiddleDotSeparator + "watched " + formatPosition(*f.CurrentTime)
	}
	return text
}

// formatPosition renders seconds as h:mm:ss or m:ss
func formatPosition(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
