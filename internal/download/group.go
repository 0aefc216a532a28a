package download

import (
	"path/filepath"
	"strings"

	"github.com/ytget/stremio-downloads/internal/model"
)

// GroupDownloads partitions files by the text before sep in their name,
// keeping the order in which groups first appear. A name without the
// separator forms its own group named after the file without extension.
func GroupDownloads(files []model.DisplayFile, sep string) []model.SeriesGroup {
	if sep == "" {
		sep = model.DefaultGroupSeparator
	}

	index := make(map[string]int)
	var groups []model.SeriesGroup
	for _, f := range files {
		name := seriesName(f.Name, sep)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, model.SeriesGroup{Name: name})
		}
		groups[i].Files = append(groups[i].Files, f)
	}
	return groups
}

func seriesName(fileName, sep string) string {
	if i := strings.Index(fileName, sep); i > 0 {
		return strings.TrimSpace(fileName[:i])
	}
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
