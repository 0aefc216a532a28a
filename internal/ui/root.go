package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/ytget/stremio-downloads/internal/config"
	"github.com/ytget/stremio-downloads/internal/dirhandle"
	"github.com/ytget/stremio-downloads/internal/download"
	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/model"
	"github.com/ytget/stremio-downloads/internal/platform"
)

// RootUI represents the main UI structure
type RootUI struct {
	ctx         context.Context
	window      fyne.Window
	app         fyne.App
	downloadSvc download.Downloader
	settings    *config.Settings
	log         *zap.Logger

	nameEntry   *widget.Entry
	urlEntry    *widget.Entry
	addBtn      *widget.Button
	folderLabel *widget.Label
	series      *SeriesList

	// Notification panel
	notificationContainer *fyne.Container
	notificationLabel     *widget.Label

	mu       sync.Mutex
	statuses map[string]model.Status // last seen status per record, nil before the first update
}

// NewRootUI creates and initializes the main UI
func NewRootUI(ctx context.Context, window fyne.Window, app fyne.App, downloadSvc download.Downloader, settings *config.Settings) *RootUI {
	ui := &RootUI{
		ctx:         ctx,
		window:      window,
		app:         app,
		downloadSvc: downloadSvc,
		settings:    settings,
		log:         logging.Named("ui"),
	}

	ui.setupUI()
	ui.downloadSvc.SetUpdateCallback(ui.onDownloadsUpdate)
	return ui
}

// setupUI creates and arranges all UI components
func (ui *RootUI) setupUI() {
	ui.nameEntry = widget.NewEntry()
	ui.nameEntry.SetPlaceHolder("File name, e.g. Show - S01E01.mp4")

	ui.urlEntry = widget.NewEntry()
	ui.urlEntry.SetPlaceHolder("Stream or playlist URL")
	ui.urlEntry.Validator = validateURL
	ui.urlEntry.OnSubmitted = func(string) { ui.onAddClick() }

	ui.addBtn = widget.NewButton("Download", ui.onAddClick)
	ui.addBtn.Importance = widget.HighImportance

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	ui.folderLabel = widget.NewLabel("")
	ui.folderLabel.Truncation = fyne.TextTruncateEllipsis
	folderBtn := widget.NewButton(IconFolder+" Choose folder", ui.onChooseFolder)
	ui.updateFolderLabel()

	inputs := container.NewGridWithColumns(2, ui.nameEntry, ui.urlEntry)
	topPanel := container.NewBorder(nil, nil, settingsBtn, ui.addBtn, inputs)
	folderRow := container.NewBorder(nil, nil, nil, folderBtn, ui.folderLabel)

	ui.notificationLabel = widget.NewLabel("")
	ui.notificationLabel.Wrapping = fyne.TextWrapWord
	ui.notificationContainer = container.NewPadded(ui.notificationLabel)
	ui.notificationContainer.Hide()

	ui.series = NewSeriesList(RowActions{
		OnOpen:   ui.onOpenFile,
		OnReveal: ui.onRevealFile,
		OnDelete: ui.onDelete,
	})

	content := container.NewBorder(
		container.NewVBox(topPanel, folderRow, ui.notificationContainer),
		nil,
		nil,
		nil,
		ui.series.Container(),
	)
	ui.window.SetContent(content)
}

// validateURL accepts empty input and http(s) URLs
func validateURL(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parsed, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// checkAddInput validates the add form and returns the notice to show when
// it is incomplete. A playlist URL needs no file name; a name given with one
// becomes the series name.
func checkAddInput(name, rawURL string) (playlist bool, notice string) {
	if rawURL == "" {
		return false, "Enter a stream URL"
	}
	if err := validateURL(rawURL); err != nil {
		return false, "Invalid URL: " + err.Error()
	}
	if platform.IsPlaylistURL(rawURL) {
		return true, ""
	}
	if name == "" {
		return false, "Enter a file name and a stream URL"
	}
	return false, ""
}

// onAddClick handles the download button click
func (ui *RootUI) onAddClick() {
	name := strings.TrimSpace(ui.nameEntry.Text)
	rawURL := strings.TrimSpace(ui.urlEntry.Text)
	playlist, notice := checkAddInput(name, rawURL)
	if notice != "" {
		ui.showNotification(notice)
		return
	}

	go func() {
		if playlist {
			recs, err := ui.downloadSvc.AddPlaylist(ui.ctx, name, rawURL)
			if err != nil {
				ui.log.Error("add playlist", zap.String("url", rawURL), zap.Int("added", len(recs)), zap.Error(err))
				ui.showNotification("Could not add playlist: " + err.Error())
				return
			}
			ui.log.Info("playlist added", zap.Int("entries", len(recs)))
		} else {
			rec, err := ui.downloadSvc.AddDownload(ui.ctx, name, rawURL)
			if err != nil {
				ui.log.Error("add download", zap.String("file", name), zap.Error(err))
				ui.showNotification("Could not add download: " + err.Error())
				return
			}
			ui.log.Info("download added", zap.String("id", rec.ID), zap.String("status", rec.Status.String()))
		}
		fyne.Do(func() {
			ui.nameEntry.SetText("")
			ui.urlEntry.SetText("")
		})
		if ui.downloadSvc.DirectoryName() == "" {
			ui.showNotification("Queued. Choose a download folder to start.")
			return
		}
		ui.hideNotification()
	}()
}

// onChooseFolder shows the folder picker. The picker blocks, so it runs off
// the UI goroutine.
func (ui *RootUI) onChooseFolder() {
	go func() {
		name, err := ui.downloadSvc.SelectDirectory(ui.ctx)
		switch {
		case err == nil:
			ui.log.Info("download folder chosen", zap.String("dir", name))
			ui.hideNotification()
		case errors.Is(err, dirhandle.ErrAborted):
			return
		case errors.Is(err, dirhandle.ErrPermissionDenied):
			ui.showNotification("Permission to write to that folder was denied")
		default:
			ui.log.Error("choose folder", zap.Error(err))
			ui.showNotification("Could not use that folder: " + err.Error())
		}
		fyne.Do(ui.updateFolderLabel)
	}()
}

func (ui *RootUI) updateFolderLabel() {
	if name := ui.downloadSvc.DirectoryName(); name != "" {
		ui.folderLabel.SetText("Saving to " + name)
		return
	}
	ui.folderLabel.SetText("No download folder selected")
}

// showNotification displays a message in the panel under the inputs
func (ui *RootUI) showNotification(message string) {
	fyne.Do(func() {
		ui.notificationLabel.SetText(message)
		ui.notificationContainer.Show()
	})
}

// hideNotification hides the notification panel
func (ui *RootUI) hideNotification() {
	fyne.Do(ui.notificationContainer.Hide)
}

// onShowSettings shows the settings dialog
func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.window, func() {
		ui.downloadSvc.SetGroupSeparator(ui.settings.GetGroupSeparator())
	}).Show()
}

// onOpenFile opens a downloaded file with the default application
func (ui *RootUI) onOpenFile(f model.DisplayFile) {
	path, ok := ui.downloadSvc.FilePath(f.Name)
	if !ok {
		ui.showNotification("File path not available")
		return
	}
	if err := platform.OpenFileWithDefaultApp(path); err != nil {
		ui.log.Warn("open file", zap.String("path", path), zap.Error(err))
		ui.showNotification("Error opening file: " + err.Error())
	}
}

// onRevealFile reveals a downloaded file in the system file manager
func (ui *RootUI) onRevealFile(f model.DisplayFile) {
	path, ok := ui.downloadSvc.FilePath(f.Name)
	if !ok {
		ui.showNotification("File path not available")
		return
	}
	if err := platform.OpenFileInManager(path); err != nil {
		ui.log.Warn("reveal file", zap.String("path", path), zap.Error(err))
		ui.showNotification("Error opening file: " + err.Error())
	}
}

// onDelete asks for confirmation, then deletes the record and its file
func (ui *RootUI) onDelete(f model.DisplayFile) {
	dialog.ShowConfirm("Delete download", fmt.Sprintf("Delete %q from disk?", f.Name), func(ok bool) {
		if !ok {
			return
		}
		go ui.deleteFile(f)
	}, ui.window)
}

func (ui *RootUI) deleteFile(f model.DisplayFile) {
	var err error
	if f.ID != "" {
		err = ui.downloadSvc.DeleteDownload(ui.ctx, f.ID)
	} else {
		err = ui.downloadSvc.DeleteFile(ui.ctx, f.Name)
	}
	switch {
	case err == nil:
	case errors.Is(err, download.ErrFileRemoval):
		ui.showNotification(fmt.Sprintf("%s was removed from the list but the file could not be deleted", f.Name))
	default:
		ui.log.Error("delete download", zap.String("file", f.Name), zap.Error(err))
		ui.showNotification("Could not delete: " + err.Error())
	}
}

// onDownloadsUpdate handles list updates from the download service
func (ui *RootUI) onDownloadsUpdate(files []model.DisplayFile) {
	finished := ui.trackStatuses(files)
	groups := ui.downloadSvc.GroupedDownloads()

	fyne.Do(func() {
		ui.series.Update(groups)
		ui.updateFolderLabel()
	})

	if !ui.settings.GetNotifyOnFinish() {
		return
	}
	for _, f := range finished {
		ui.sendFinishedNotification(f)
	}
}

// trackStatuses records the status of every record and returns those that
// reached a terminal state since the previous update.
func (ui *RootUI) trackStatuses(files []model.DisplayFile) []model.DisplayFile {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	finished := finishedSince(ui.statuses, files)
	next := make(map[string]model.Status, len(files))
	for _, f := range files {
		if f.ID != "" {
			next[f.ID] = f.Status
		}
	}
	ui.statuses = next
	return finished
}

// finishedSince returns the records of files that are finished now but were
// active in prev. A nil prev means nothing has been seen yet.
func finishedSince(prev map[string]model.Status, files []model.DisplayFile) []model.DisplayFile {
	if prev == nil {
		return nil
	}
	var out []model.DisplayFile
	for _, f := range files {
		if f.ID == "" || !f.Status.IsFinished() {
			continue
		}
		if before, ok := prev[f.ID]; ok && before.IsActive() {
			out = append(out, f)
		}
	}
	return out
}

// sendFinishedNotification sends a system notification for a finished download
func (ui *RootUI) sendFinishedNotification(f model.DisplayFile) {
	title := "Download completed"
	content := f.Name
	if f.Status == model.StatusFailed {
		title = "Download failed"
		if f.Error != "" {
			content = f.Name + MiddleDotSeparator + f.Error
		}
	}
	ui.app.SendNotification(fyne.NewNotification(title, content))
}
