package download

import (
	"testing"

	"github.com/ytget/stremio-downloads/internal/model"
)

func files(names ...string) []model.DisplayFile {
	out := make([]model.DisplayFile, len(names))
	for i, n := range names {
		out[i] = model.DisplayFile{Name: n}
	}
	return out
}

func TestGroupDownloads(t *testing.T) {
	tests := []struct {
		name     string
		files    []model.DisplayFile
		sep      string
		expected map[string]int
		order    []string
	}{
		{
			name:     "default separator",
			files:    files("Show - S01E01.mp4", "Show - S01E02.mp4", "Other - S02E01.mkv"),
			expected: map[string]int{"Show": 2, "Other": 1},
			order:    []string{"Show", "Other"},
		},
		{
			name:     "dot separator",
			files:    files("Show.S01E01.mp4"),
			sep:      ".",
			expected: map[string]int{"Show": 1},
			order:    []string{"Show"},
		},
		{
			name:     "no separator uses name without extension",
			files:    files("Movie.mp4", "Movie.mp4"),
			expected: map[string]int{"Movie": 2},
			order:    []string{"Movie"},
		},
		{
			name:     "leading separator is not a series",
			files:    files(" - Extra.mp4"),
			expected: map[string]int{" - Extra": 1},
			order:    []string{" - Extra"},
		},
		{
			name:     "only the first separator is considered",
			files:    files(" - Extra - Part 1.mp4", "Show - Extra - Part 1.mp4"),
			expected: map[string]int{" - Extra - Part 1": 1, "Show": 1},
			order:    []string{" - Extra - Part 1", "Show"},
		},
		{
			name:     "empty",
			files:    nil,
			expected: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := GroupDownloads(tt.files, tt.sep)
			if len(groups) != len(tt.expected) {
				t.Fatalf("GroupDownloads() returned %d groups, expected %d", len(groups), len(tt.expected))
			}
			for i, g := range groups {
				if g.Name != tt.order[i] {
					t.Errorf("group %d = %q, expected %q", i, g.Name, tt.order[i])
				}
				if len(g.Files) != tt.expected[g.Name] {
					t.Errorf("group %q has %d files, expected %d", g.Name, len(g.Files), tt.expected[g.Name])
				}
			}
		})
	}
}
