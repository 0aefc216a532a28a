package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytget/stremio-downloads/internal/model"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "playlist page",
			url:      "https://www.youtube.com/playlist?list=PL123",
			expected: "PL123",
		},
		{
			name:     "watch URL with trailing parameters",
			url:      "https://www.youtube.com/watch?v=abc&list=PL123&index=2",
			expected: "PL123",
		},
		{
			name:     "plain video",
			url:      "https://www.youtube.com/watch?v=abc",
			expected: "",
		},
		{
			name:     "empty list parameter",
			url:      "https://www.youtube.com/playlist?list=",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPlaylistID(tt.url); got != tt.expected {
				t.Errorf("ExtractPlaylistID(%q) = %q, expected %q", tt.url, got, tt.expected)
			}
			if got := IsPlaylistURL(tt.url); got != (tt.expected != "") {
				t.Errorf("IsPlaylistURL(%q) = %v", tt.url, got)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "Show: Part 1/2", expected: "Show_ Part 1_2"},
		{in: `a*b?c"d<e>f|g\h`, expected: "a_b_c_d_e_f_g_h"},
		{in: "  trailing dots...  ", expected: "trailing dots"},
		{in: "tab\there", expected: "tabhere"},
		{in: "", expected: ""},
	}

	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.expected {
			t.Errorf("SanitizeFileName(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestPlaylistParserExpand(t *testing.T) {
	var gotID string
	p := NewPlaylistParser()
	p.list = func(_ context.Context, id string) ([]playlistItem, error) {
		gotID = id
		return []playlistItem{
			{VideoID: "v1", Title: "Pilot: Part 1"},
			{VideoID: "", Title: "deleted video"},
			{VideoID: "v3", Title: ""},
		}, nil
	}

	entries, err := p.Expand(context.Background(), "My Show", "https://www.youtube.com/watch?v=v1&list=PL9")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if gotID != "PL9" {
		t.Errorf("listed playlist %q, expected PL9", gotID)
	}

	expected := []model.PlaylistEntry{
		{FileName: "My Show - 01 Pilot_ Part 1.mp4", StreamURL: "https://www.youtube.com/watch?v=v1"},
		{FileName: "My Show - 03 v3.mp4", StreamURL: "https://www.youtube.com/watch?v=v3"},
	}
	if len(entries) != len(expected) {
		t.Fatalf("Expand() returned %d entries, expected %d", len(entries), len(expected))
	}
	for i := range expected {
		if entries[i] != expected[i] {
			t.Errorf("entry %d = %+v, expected %+v", i, entries[i], expected[i])
		}
	}
}

func TestPlaylistParserExpandDefaultsSeriesToPlaylistID(t *testing.T) {
	p := NewPlaylistParser()
	p.list = func(context.Context, string) ([]playlistItem, error) {
		return []playlistItem{{VideoID: "v1", Title: "One"}}, nil
	}

	entries, err := p.Expand(context.Background(), "  ", "https://www.youtube.com/playlist?list=PL9")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(entries) != 1 || entries[0].FileName != "PL9 - 01 One.mp4" {
		t.Errorf("Expand() = %+v", entries)
	}
}

func TestPlaylistParserExpandErrors(t *testing.T) {
	listErr := errors.New("offline")
	p := NewPlaylistParser()
	p.SetTimeout(time.Second)
	p.list = func(ctx context.Context, _ string) ([]playlistItem, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("listing runs without a deadline")
		}
		return nil, listErr
	}

	if _, err := p.Expand(context.Background(), "Show", "https://www.youtube.com/watch?v=abc"); !errors.Is(err, ErrNotPlaylist) {
		t.Errorf("Expand() error = %v, expected ErrNotPlaylist", err)
	}
	if _, err := p.Expand(context.Background(), "Show", "https://www.youtube.com/playlist?list=PL9"); !errors.Is(err, listErr) {
		t.Errorf("Expand() error = %v, expected %v", err, listErr)
	}
}
