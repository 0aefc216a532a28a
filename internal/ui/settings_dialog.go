package ui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/stremio-downloads/internal/config"
)

// SubtitleLanguageOptions are the SubDL language codes offered in settings
var SubtitleLanguageOptions = []string{"EN", "AR", "DE", "ES", "FR", "IT", "NL", "PL", "PT", "RU", "TR"}

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	settings *config.Settings
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	onSaved  func()

	// UI components
	subDLKeyEntry  *widget.Entry
	languageSelect *widget.Select
	separatorEntry *widget.Entry
	intervalEntry  *widget.Entry
	useHandleCheck *widget.Check
	notifyCheck    *widget.Check
}

// NewSettingsDialog creates a new settings dialog. onSaved runs after the
// settings were written.
func NewSettingsDialog(settings *config.Settings, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		window:   window,
		onSaved:  onSaved,
	}
	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	sd.subDLKeyEntry = widget.NewPasswordEntry()
	sd.subDLKeyEntry.SetPlaceHolder("SubDL API key (optional)")

	sd.languageSelect = widget.NewSelect(SubtitleLanguageOptions, nil)

	sd.separatorEntry = widget.NewEntry()
	sd.separatorEntry.SetPlaceHolder(config.DefaultGroupSeparator)

	sd.intervalEntry = widget.NewEntry()
	sd.intervalEntry.SetPlaceHolder(strconv.Itoa(config.DefaultProgressIntervalMs))
	sd.intervalEntry.Validator = func(s string) error {
		if s == "" {
			return nil
		}
		_, err := strconv.Atoi(s)
		return err
	}

	sd.useHandleCheck = widget.NewCheck("Ask for a download folder", nil)
	sd.notifyCheck = widget.NewCheck("Notify when a download finishes", nil)

	form := widget.NewForm(
		widget.NewFormItem("SubDL key", sd.subDLKeyEntry),
		widget.NewFormItem("Subtitles", sd.languageSelect),
		widget.NewFormItem("Series separator", sd.separatorEntry),
		widget.NewFormItem("Progress interval (ms)", sd.intervalEntry),
	)

	content := container.NewVBox(
		form,
		widget.NewSeparator(),
		sd.useHandleCheck,
		sd.notifyCheck,
	)

	sd.dialog = dialog.NewCustomConfirm("Settings", "Save", "Cancel", content, sd.onSave, sd.window)
	sd.dialog.Resize(fyne.NewSize(SettingsDialogWidth, SettingsDialogHeight))
}

// loadCurrentSettings loads current settings into the UI
func (sd *SettingsDialog) loadCurrentSettings() {
	sd.subDLKeyEntry.SetText(sd.settings.GetSubDLAPIKey())
	sd.languageSelect.SetSelected(sd.settings.GetSubtitleLanguage())
	sd.separatorEntry.SetText(sd.settings.GetGroupSeparator())
	sd.intervalEntry.SetText(strconv.Itoa(int(sd.settings.GetProgressInterval().Milliseconds())))
	sd.useHandleCheck.SetChecked(sd.settings.GetUseDirectoryHandle())
	sd.notifyCheck.SetChecked(sd.settings.GetNotifyOnFinish())
}

// onSave handles saving the settings
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	sd.settings.SetSubDLAPIKey(sd.subDLKeyEntry.Text)
	if sd.languageSelect.Selected != "" {
		sd.settings.SetSubtitleLanguage(sd.languageSelect.Selected)
	}
	sd.settings.SetGroupSeparator(sd.separatorEntry.Text)
	if ms, err := strconv.Atoi(sd.intervalEntry.Text); err == nil {
		sd.settings.SetProgressInterval(ms)
	}
	sd.settings.SetUseDirectoryHandle(sd.useHandleCheck.Checked)
	sd.settings.SetNotifyOnFinish(sd.notifyCheck.Checked)

	if sd.onSaved != nil {
		sd.onSaved()
	}
}
