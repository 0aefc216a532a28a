package model

// Status represents the lifecycle state of a download record
type Status string

const (
	// StatusQueued means the record exists but the worker has not started it
	StatusQueued Status = "queued"

	// StatusDownloading means the worker is streaming bytes to disk
	StatusDownloading Status = "downloading"

	// StatusCompleted means every byte has been written
	StatusCompleted Status = "completed"

	// StatusFailed means the worker reported an error; Error is populated
	StatusFailed Status = "failed"

	// StatusPaused is accepted by storage but no transition currently produces it
	StatusPaused Status = "paused"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusDownloading, StatusCompleted, StatusFailed, StatusPaused:
		return true
	}
	return false
}

// IsActive returns true if the worker still owns the record
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusDownloading
}

// IsFinished returns true if the record reached a terminal state (completed or failed)
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed
}
