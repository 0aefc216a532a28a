package download

// Package download coordinates the download manager. Service creates records
// through the repository, dispatches work to the background worker, reacts to
// worker events and directory changes, and keeps the reconciled list of files
// that the UI renders. The repository stays the single source of truth: events
// only trigger a re-read.
