package model

import (
	"testing"
	"time"
)

func TestDownloadID(t *testing.T) {
	id1 := DownloadID("https://cdn/ep1")
	id2 := DownloadID("https://cdn/ep1")
	id3 := DownloadID("https://cdn/ep2")

	if id1 != id2 {
		t.Errorf("Expected identical ids for the same URL, got %s and %s", id1, id2)
	}
	if id1 == id3 {
		t.Error("Expected different ids for different URLs")
	}
	if len(id1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d for %s", len(id1), id1)
	}
}

func TestSubtitleFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Show - S01E01.mp4", "Show - S01E01.srt"},
		{"movie.mkv", "movie.srt"},
		{"noext", "noext.srt"},
		{"archive.tar.gz", "archive.tar.srt"},
	}

	for _, test := range tests {
		result := SubtitleFileName(test.input)
		if result != test.expected {
			t.Errorf("SubtitleFileName(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestDownloadRecord_Percent(t *testing.T) {
	tests := []struct {
		record   DownloadRecord
		expected int
	}{
		{DownloadRecord{Status: StatusQueued}, 0},
		{DownloadRecord{Status: StatusDownloading, Downloaded: 50, Total: 200}, 25},
		{DownloadRecord{Status: StatusDownloading, Downloaded: 300, Total: 200}, 100},
		{DownloadRecord{Status: StatusCompleted, Downloaded: 10, Total: 0}, 100},
	}

	for _, test := range tests {
		result := test.record.Percent()
		if result != test.expected {
			t.Errorf("Percent() for %+v = %d, expected %d", test.record, result, test.expected)
		}
	}
}

func TestFromRecordAndDirEntry(t *testing.T) {
	now := time.Now()
	rec := DownloadRecord{
		ID:         "abc",
		FileName:   "Show - S01E01.mp4",
		StreamURL:  "https://cdn/ep1",
		Status:     StatusCompleted,
		Downloaded: 100,
		Total:      100,
		UpdatedAt:  now,
	}
	f := FromRecord(rec)
	if f.Source != SourceRecord || f.ID != "abc" || f.Size != 100 {
		t.Errorf("Unexpected display file from record: %+v", f)
	}

	d := FromDirEntry(DirEntry{Name: "old.mp4", Size: 2048, ModTime: now})
	if d.Source != SourceDirectory || d.Status != StatusCompleted || d.ID != "" {
		t.Errorf("Unexpected display file from dir entry: %+v", d)
	}
	if d.HumanSize() != "2.0 kB" {
		t.Errorf("HumanSize() = %s, expected 2.0 kB", d.HumanSize())
	}
}
