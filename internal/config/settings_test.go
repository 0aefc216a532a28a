package config

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
)

func TestNewSettings(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.app != app {
		t.Error("Settings app reference should match provided app")
	}
}

func TestSubDLAPIKey(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if key := settings.GetSubDLAPIKey(); key != "" {
		t.Errorf("Expected empty default key, got %q", key)
	}

	settings.SetSubDLAPIKey("secret")
	if key := settings.GetSubDLAPIKey(); key != "secret" {
		t.Errorf("Expected key 'secret', got %q", key)
	}
}

func TestSubtitleLanguage(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if lang := settings.GetSubtitleLanguage(); lang != DefaultSubtitleLanguage {
		t.Errorf("Expected default language %s, got %s", DefaultSubtitleLanguage, lang)
	}

	settings.SetSubtitleLanguage("FR")
	if lang := settings.GetSubtitleLanguage(); lang != "FR" {
		t.Errorf("Expected language FR, got %s", lang)
	}

	settings.SetSubtitleLanguage("")
	if lang := settings.GetSubtitleLanguage(); lang != DefaultSubtitleLanguage {
		t.Errorf("Empty language should restore default, got %s", lang)
	}
}

func TestUseDirectoryHandle(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if !settings.GetUseDirectoryHandle() {
		t.Error("Directory handle should be used by default")
	}

	settings.SetUseDirectoryHandle(false)
	if settings.GetUseDirectoryHandle() {
		t.Error("Expected directory handle preference to be false")
	}
}

func TestGroupSeparator(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if sep := settings.GetGroupSeparator(); sep != " - " {
		t.Errorf("Expected default separator ' - ', got %q", sep)
	}

	settings.SetGroupSeparator(".")
	if sep := settings.GetGroupSeparator(); sep != "." {
		t.Errorf("Expected separator '.', got %q", sep)
	}

	settings.SetGroupSeparator("")
	if sep := settings.GetGroupSeparator(); sep != DefaultGroupSeparator {
		t.Errorf("Empty separator should restore default, got %q", sep)
	}
}

func TestProgressInterval(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if got := settings.GetProgressInterval(); got != time.Second {
		t.Errorf("Expected default interval 1s, got %v", got)
	}

	tests := []struct {
		set      int
		expected time.Duration
	}{
		{500, 500 * time.Millisecond},
		{10, MinProgressIntervalMs * time.Millisecond},
		{60000, MaxProgressIntervalMs * time.Millisecond},
	}
	for _, tt := range tests {
		settings.SetProgressInterval(tt.set)
		if got := settings.GetProgressInterval(); got != tt.expected {
			t.Errorf("SetProgressInterval(%d): got %v, expected %v", tt.set, got, tt.expected)
		}
	}
}

func TestNotifyOnFinish(t *testing.T) {
	settings := NewSettings(test.NewApp())

	if !settings.GetNotifyOnFinish() {
		t.Error("Notifications should be enabled by default")
	}
	settings.SetNotifyOnFinish(false)
	if settings.GetNotifyOnFinish() {
		t.Error("Expected notifications to be disabled")
	}
}
