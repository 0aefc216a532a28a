package model

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// SubtitleExt is the extension of the companion subtitle file written next to a video
const SubtitleExt = ".srt"

// DownloadRecord is the persisted state of one content stream
type DownloadRecord struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	StreamURL  string    `json:"streamUrl"`
	Total      int64     `json:"total"`
	Downloaded int64     `json:"downloaded"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DownloadID derives the record identity from the stream URL.
// The same URL always yields the same id.
func DownloadID(streamURL string) string {
	sum := sha256.Sum256([]byte(streamURL))
	return hex.EncodeToString(sum[:])
}

// SubtitleFileName returns the companion subtitle name for a video file name
func SubtitleFileName(fileName string) string {
	ext := filepath.Ext(fileName)
	return strings.TrimSuffix(fileName, ext) + SubtitleExt
}

// Percent returns progress in the 0..100 range, 0 while the total is unknown
func (d DownloadRecord) Percent() int {
	if d.Status == StatusCompleted {
		return 100
	}
	if d.Total <= 0 {
		return 0
	}
	p := int(d.Downloaded * 100 / d.Total)
	if p > 100 {
		p = 100
	}
	return p
}

// PlaylistEntry is one video of an expanded playlist, ready to be added as a download.
type PlaylistEntry struct {
	FileName  string
	StreamURL string
}
