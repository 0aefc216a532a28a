package download

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/stremio-downloads/internal/model"
)

func rec(name, url string, status model.Status, updated time.Time) model.DownloadRecord {
	return model.DownloadRecord{
		ID:        model.DownloadID(url),
		FileName:  name,
		StreamURL: url,
		Status:    status,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestReconcileRecordWinsOverScan(t *testing.T) {
	now := time.Now()
	records := []model.DownloadRecord{rec("X", "https://cdn/x", model.StatusDownloading, now)}
	scan := []model.DirEntry{{Name: "X", Size: 10}, {Name: "Y", Size: 20}}

	files := Reconcile(records, scan, nil)
	require.Len(t, files, 2)

	assert.Equal(t, "X", files[0].Name)
	assert.Equal(t, model.SourceRecord, files[0].Source)
	assert.Equal(t, model.StatusDownloading, files[0].Status)

	assert.Equal(t, "Y", files[1].Name)
	assert.Equal(t, model.SourceDirectory, files[1].Source)
	assert.Equal(t, model.StatusCompleted, files[1].Status)
	assert.Equal(t, int64(20), files[1].Size)
}

func TestReconcileCompletedRecordAlsoWins(t *testing.T) {
	r := rec("X", "https://cdn/x", model.StatusCompleted, time.Now())
	r.Total, r.Downloaded = 10, 10

	files := Reconcile([]model.DownloadRecord{r}, []model.DirEntry{{Name: "X", Size: 10}}, nil)
	require.Len(t, files, 1)
	assert.Equal(t, model.SourceRecord, files[0].Source)
}

func TestReconcileDuplicateRecordNames(t *testing.T) {
	old := time.Now()
	records := []model.DownloadRecord{
		rec("X", "https://cdn/old", model.StatusFailed, old),
		rec("X", "https://cdn/new", model.StatusQueued, old.Add(time.Minute)),
	}
	files := Reconcile(records, nil, nil)
	require.Len(t, files, 1)
	assert.Equal(t, "https://cdn/new", files[0].StreamURL)
}

func TestReconcileSkipsSubtitlesAndAttachesProgress(t *testing.T) {
	records := []model.DownloadRecord{rec("Movie.mp4", "https://cdn/m", model.StatusCompleted, time.Now())}
	scan := []model.DirEntry{
		{Name: "Movie.mp4"},
		{Name: "Movie.srt"},
		{Name: "Other.VTT"},
		{Name: "B.mkv"},
		{Name: "A.mkv"},
	}
	progress := map[string]float64{"https://cdn/m": 93.5}

	files := Reconcile(records, scan, progress)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"Movie.mp4", "A.mkv", "B.mkv"}, names(files))

	require.NotNil(t, files[0].CurrentTime)
	assert.Equal(t, 93.5, *files[0].CurrentTime)
	assert.Nil(t, files[1].CurrentTime)
}

func TestReconcileEmpty(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil, nil))
}

func names(files []model.DisplayFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}
