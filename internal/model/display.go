package model

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Source tells where a DisplayFile came from
type Source string

const (
	SourceRecord    Source = "record"
	SourceDirectory Source = "directory"
)

// DisplayFile is the read-model rendered by the UI. It is derived from download
// records and a directory scan and is never persisted.
type DisplayFile struct {
	ID          string
	Name        string
	StreamURL   string
	Status      Status
	Downloaded  int64
	Total       int64
	Size        int64
	Error       string
	CurrentTime *float64 // playback position in seconds, nil if never played
	Source      Source
	UpdatedAt   time.Time
}

// DirEntry is one file found while scanning the download directory
type DirEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FromRecord builds a DisplayFile from a persisted record
func FromRecord(r DownloadRecord) DisplayFile {
	size := r.Downloaded
	if r.Status == StatusCompleted && r.Total > size {
		size = r.Total
	}
	return DisplayFile{
		ID:         r.ID,
		Name:       r.FileName,
		StreamURL:  r.StreamURL,
		Status:     r.Status,
		Downloaded: r.Downloaded,
		Total:      r.Total,
		Size:       size,
		Error:      r.Error,
		Source:     SourceRecord,
		UpdatedAt:  r.UpdatedAt,
	}
}

// FromDirEntry builds a DisplayFile for a file left on disk by an earlier session
func FromDirEntry(e DirEntry) DisplayFile {
	return DisplayFile{
		Name:       e.Name,
		Status:     StatusCompleted,
		Downloaded: e.Size,
		Total:      e.Size,
		Size:       e.Size,
		Source:     SourceDirectory,
		UpdatedAt:  e.ModTime,
	}
}

// Percent returns progress in the 0..100 range
func (f DisplayFile) Percent() int {
	if f.Status == StatusCompleted {
		return 100
	}
	if f.Total <= 0 {
		return 0
	}
	p := int(f.Downloaded * 100 / f.Total)
	if p > 100 {
		p = 100
	}
	return p
}

// HumanSize returns the size in human readable form, e.g. "1.2 GB"
func (f DisplayFile) HumanSize() string {
	if f.Size <= 0 {
		return "—"
	}
	return humanize.Bytes(uint64(f.Size))
}

// HumanProgress returns "downloaded / total" in human readable form
func (f DisplayFile) HumanProgress() string {
	if f.Total <= 0 {
		return humanize.Bytes(uint64(max(f.Downloaded, 0)))
	}
	return humanize.Bytes(uint64(f.Downloaded)) + " / " + humanize.Bytes(uint64(f.Total))
}
