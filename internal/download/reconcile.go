package download

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ytget/stremio-downloads/internal/model"
)

// subtitleExts are companion files never listed on their own.
var subtitleExts = map[string]bool{
	".srt": true,
	".vtt": true,
}

// Reconcile merges download records with a directory scan into the display
// list. Each name appears once. A record always wins over a directory entry
// of the same name; of two records with the same name the most recently
// updated one is kept. Playback positions are attached by stream URL.
//
// Records come first in the given order, then directory-only files by name.
func Reconcile(records []model.DownloadRecord, scan []model.DirEntry, progress map[string]float64) []model.DisplayFile {
	byName := make(map[string]int, len(records))
	out := make([]model.DisplayFile, 0, len(records)+len(scan))

	for _, r := range records {
		f := model.FromRecord(r)
		if t, ok := progress[r.StreamURL]; ok {
			f.CurrentTime = &t
		}
		if i, ok := byName[r.FileName]; ok {
			if r.UpdatedAt.After(out[i].UpdatedAt) {
				out[i] = f
			}
			continue
		}
		byName[r.FileName] = len(out)
		out = append(out, f)
	}

	extra := make([]model.DisplayFile, 0, len(scan))
	seen := make(map[string]bool, len(scan))
	for _, e := range scan {
		if _, ok := byName[e.Name]; ok || seen[e.Name] {
			continue
		}
		if subtitleExts[strings.ToLower(filepath.Ext(e.Name))] {
			continue
		}
		seen[e.Name] = true
		extra = append(extra, model.FromDirEntry(e))
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })

	return append(out, extra...)
}
