package ui

import (
	"errors"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"

	"github.com/ytget/stremio-downloads/internal/dirhandle"
	"github.com/ytget/stremio-downloads/internal/model"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"   ", false},
		{"https://cdn.example.com/v.mp4", false},
		{"http://127.0.0.1:11470/stream", false},
		{"ftp://example.com/v.mp4", true},
		{"example.com/v.mp4", true},
		{"https://", true},
	}

	for _, tt := range tests {
		err := validateURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateURL(%q) error = %v, expected error %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestCheckAddInput(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		playlist bool
		wantErr  bool
	}{
		{name: "Show - S01E01.mp4", url: "https://cdn.example.com/v.mp4"},
		{name: "", url: "https://cdn.example.com/v.mp4", wantErr: true},
		{name: "Show - S01E01.mp4", url: "", wantErr: true},
		{name: "Show - S01E01.mp4", url: "ftp://example.com/v.mp4", wantErr: true},
		{name: "", url: "https://www.youtube.com/playlist?list=PL9", playlist: true},
		{name: "My Show", url: "https://www.youtube.com/watch?v=abc&list=PL9", playlist: true},
	}

	for _, tt := range tests {
		playlist, notice := checkAddInput(tt.name, tt.url)
		if (notice != "") != tt.wantErr {
			t.Errorf("checkAddInput(%q, %q) notice = %q, expected notice %v", tt.name, tt.url, notice, tt.wantErr)
		}
		if playlist != tt.playlist {
			t.Errorf("checkAddInput(%q, %q) playlist = %v, expected %v", tt.name, tt.url, playlist, tt.playlist)
		}
	}
}

func TestFinishedSince(t *testing.T) {
	files := []model.DisplayFile{
		{ID: "a", Status: model.StatusCompleted},
		{ID: "b", Status: model.StatusFailed},
		{ID: "c", Status: model.StatusCompleted},
		{ID: "d", Status: model.StatusDownloading},
		{Name: "old.mp4", Status: model.StatusCompleted, Source: model.SourceDirectory},
	}

	if got := finishedSince(nil, files); len(got) != 0 {
		t.Errorf("finishedSince(nil) = %v, expected nothing on first update", got)
	}

	prev := map[string]model.Status{
		"a": model.StatusDownloading,
		"b": model.StatusQueued,
		"c": model.StatusCompleted,
		"d": model.StatusQueued,
	}
	got := finishedSince(prev, files)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("finishedSince() = %v, expected records a and b", got)
	}
}

func TestTrackStatuses(t *testing.T) {
	ui := &RootUI{}

	if got := ui.trackStatuses([]model.DisplayFile{{ID: "a", Status: model.StatusQueued}}); len(got) != 0 {
		t.Errorf("first update reported %v", got)
	}
	if got := ui.trackStatuses([]model.DisplayFile{{ID: "a", Status: model.StatusDownloading}}); len(got) != 0 {
		t.Errorf("progress update reported %v", got)
	}
	got := ui.trackStatuses([]model.DisplayFile{{ID: "a", Status: model.StatusCompleted}})
	if len(got) != 1 {
		t.Fatalf("completion reported %d files, expected 1", len(got))
	}
	if got := ui.trackStatuses([]model.DisplayFile{{ID: "a", Status: model.StatusCompleted}}); len(got) != 0 {
		t.Errorf("repeated completion reported %v", got)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		status   model.Status
		expected string
	}{
		{model.StatusQueued, IconQueued + " queued"},
		{model.StatusDownloading, IconPlay + " downloading"},
		{model.StatusFailed, IconError + " failed"},
		{model.StatusPaused, IconPaused + " paused"},
		{model.StatusCompleted, "completed"},
	}

	for _, tt := range tests {
		if got := statusText(model.DisplayFile{Status: tt.status}); got != tt.expected {
			t.Errorf("statusText(%s) = %q, expected %q", tt.status, got, tt.expected)
		}
	}
}

func TestDetailText(t *testing.T) {
	pos := 754.0
	tests := []struct {
		name     string
		file     model.DisplayFile
		expected string
	}{
		{"failed shows error", model.DisplayFile{Status: model.StatusFailed, Error: "boom"}, "boom"},
		{"completed shows size", model.DisplayFile{Status: model.StatusCompleted, Size: 1000}, "1.0 kB"},
		{"downloading shows progress", model.DisplayFile{Status: model.StatusDownloading, Downloaded: 500, Total: 1000}, "500 B / 1.0 kB"},
		{"watched position", model.DisplayFile{Status: model.StatusCompleted, Size: 1000, CurrentTime: &pos}, "1.0 kB · watched 12:34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detailText(tt.file); got != tt.expected {
				t.Errorf("detailText() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestFormatPosition(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00"},
		{59.6, "1:00"},
		{754, "12:34"},
		{3725, "1:02:05"},
	}

	for _, tt := range tests {
		if got := formatPosition(tt.seconds); got != tt.expected {
			t.Errorf("formatPosition(%v) = %q, expected %q", tt.seconds, got, tt.expected)
		}
	}
}

func TestHandleFromURI(t *testing.T) {
	if _, err := handleFromURI(nil, nil); !errors.Is(err, dirhandle.ErrAborted) {
		t.Errorf("dismissed dialog error = %v, expected ErrAborted", err)
	}

	boom := errors.New("boom")
	if _, err := handleFromURI(nil, boom); !errors.Is(err, boom) {
		t.Errorf("dialog error = %v, expected %v", err, boom)
	}

	dir := t.TempDir()
	h, err := handleFromURI(storage.NewFileURI(dir), nil)
	if err != nil {
		t.Fatalf("handleFromURI() error = %v", err)
	}
	if h.Name() != filepath.Base(dir) {
		t.Errorf("Name() = %q, expected %q", h.Name(), filepath.Base(dir))
	}
}

func TestDownloadRowButtons(t *testing.T) {
	test.NewApp()

	var opened []string
	row := NewDownloadRow(model.DisplayFile{ID: "a", Name: "a.mp4", Status: model.StatusDownloading, Downloaded: 25, Total: 100}, RowActions{
		OnOpen: func(f model.DisplayFile) { opened = append(opened, f.Name) },
	})

	if !row.playBtn.Disabled() {
		t.Error("play should be disabled while downloading")
	}
	if row.percentLabel.Text != "25%" {
		t.Errorf("percent label = %q, expected 25%%", row.percentLabel.Text)
	}

	row.SetFile(model.DisplayFile{ID: "a", Name: "a.mp4", Status: model.StatusCompleted, Downloaded: 100, Total: 100, Size: 100})
	if row.playBtn.Disabled() {
		t.Error("play should be enabled once completed")
	}
	if row.progressBar.Value != 1 {
		t.Errorf("progress = %v, expected 1", row.progressBar.Value)
	}

	test.Tap(row.playBtn)
	if len(opened) != 1 || opened[0] != "a.mp4" {
		t.Errorf("opened = %v, expected [a.mp4]", opened)
	}
}

func TestSeriesListReusesRows(t *testing.T) {
	test.NewApp()

	list := NewSeriesList(RowActions{})
	list.Update(nil)
	if len(list.box.Objects) != 1 || list.box.Objects[0] != list.empty {
		t.Fatal("empty list should show the placeholder")
	}

	ep1 := model.DisplayFile{ID: "1", Name: "Show - S01E01.mp4", Status: model.StatusDownloading, Total: 10}
	ep2 := model.DisplayFile{ID: "2", Name: "Show - S01E02.mp4", Status: model.StatusQueued}
	list.Update([]model.SeriesGroup{{Name: "Show", Files: []model.DisplayFile{ep1, ep2}}})

	group := list.groups["Show"]
	if group == nil || len(group.rows) != 2 {
		t.Fatalf("expected group Show with 2 rows, got %+v", group)
	}
	first := group.rows["1"]

	ep1.Status = model.StatusCompleted
	list.Update([]model.SeriesGroup{{Name: "Show", Files: []model.DisplayFile{ep1}}})

	if list.groups["Show"] != group {
		t.Error("group view should be reused")
	}
	if group.rows["1"] != first {
		t.Error("row should be reused")
	}
	if _, ok := group.rows["2"]; ok {
		t.Error("row of removed file should be dropped")
	}
	if group.summary.Text != "1/1" {
		t.Errorf("summary = %q, expected 1/1", group.summary.Text)
	}
}

func TestRowKey(t *testing.T) {
	if got := rowKey(model.DisplayFile{ID: "abc", Name: "x.mp4"}); got != "abc" {
		t.Errorf("rowKey(record) = %q", got)
	}
	if got := rowKey(model.DisplayFile{Name: "x.mp4"}); got != "dir:x.mp4" {
		t.Errorf("rowKey(directory) = %q", got)
	}
}
