package config

import (
	"time"

	"fyne.io/fyne/v2"

	"github.com/ytget/stremio-downloads/internal/model"
)

// Settings keys for Fyne preferences
const (
	KeySubDLAPIKey        = "subdl_api_key"
	KeySubtitleLanguage   = "subtitle_language"
	KeyUseDirectoryHandle = "use_directory_handle"
	KeyGroupSeparator     = "group_separator"
	KeyProgressInterval   = "progress_interval_ms"
	KeyNotifyOnFinish     = "notify_on_finish"
)

// Default values
const (
	DefaultSubtitleLanguage   = "EN"
	DefaultUseDirectoryHandle = true
	DefaultGroupSeparator     = model.DefaultGroupSeparator
	DefaultProgressIntervalMs = 1000
	DefaultNotifyOnFinish     = true

	MinProgressIntervalMs = 250
	MaxProgressIntervalMs = 10000
)

// Settings manages user configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetSubDLAPIKey returns the SubDL key passed to the worker with each download
func (s *Settings) GetSubDLAPIKey() string {
	return s.app.Preferences().String(KeySubDLAPIKey)
}

// SetSubDLAPIKey sets the SubDL key
func (s *Settings) SetSubDLAPIKey(key string) {
	s.app.Preferences().SetString(KeySubDLAPIKey, key)
}

// GetSubtitleLanguage returns the preferred subtitle language code
func (s *Settings) GetSubtitleLanguage() string {
	return s.app.Preferences().StringWithFallback(KeySubtitleLanguage, DefaultSubtitleLanguage)
}

// SetSubtitleLanguage sets the preferred subtitle language code
func (s *Settings) SetSubtitleLanguage(lang string) {
	if lang == "" {
		lang = DefaultSubtitleLanguage
	}
	s.app.Preferences().SetString(KeySubtitleLanguage, lang)
}

// GetUseDirectoryHandle reports whether downloads go to a user-chosen directory.
// When false the platform Downloads directory is adopted.
func (s *Settings) GetUseDirectoryHandle() bool {
	return s.app.Preferences().BoolWithFallback(KeyUseDirectoryHandle, DefaultUseDirectoryHandle)
}

// SetUseDirectoryHandle sets the directory handle preference
func (s *Settings) SetUseDirectoryHandle(use bool) {
	s.app.Preferences().SetBool(KeyUseDirectoryHandle, use)
}

// GetGroupSeparator returns the separator splitting series name from episode
func (s *Settings) GetGroupSeparator() string {
	sep := s.app.Preferences().String(KeyGroupSeparator)
	if sep == "" {
		return DefaultGroupSeparator
	}
	return sep
}

// SetGroupSeparator sets the series separator. Empty restores the default.
func (s *Settings) SetGroupSeparator(sep string) {
	if sep == "" {
		sep = DefaultGroupSeparator
	}
	s.app.Preferences().SetString(KeyGroupSeparator, sep)
}

// GetProgressInterval returns how often the worker persists progress
func (s *Settings) GetProgressInterval() time.Duration {
	ms := s.app.Preferences().Int(KeyProgressInterval)
	if ms <= 0 {
		ms = DefaultProgressIntervalMs
	}
	return time.Duration(clampInterval(ms)) * time.Millisecond
}

// SetProgressInterval sets the progress persistence interval in milliseconds
func (s *Settings) SetProgressInterval(ms int) {
	s.app.Preferences().SetInt(KeyProgressInterval, clampInterval(ms))
}

func clampInterval(ms int) int {
	if ms < MinProgressIntervalMs {
		return MinProgressIntervalMs
	}
	if ms > MaxProgressIntervalMs {
		return MaxProgressIntervalMs
	}
	return ms
}

// GetNotifyOnFinish returns whether to show a notification on completed or failed downloads
func (s *Settings) GetNotifyOnFinish() bool {
	return s.app.Preferences().BoolWithFallback(KeyNotifyOnFinish, DefaultNotifyOnFinish)
}

// SetNotifyOnFinish sets whether to notify on finished downloads
func (s *Settings) SetNotifyOnFinish(notify bool) {
	s.app.Preferences().SetBool(KeyNotifyOnFinish, notify)
}
