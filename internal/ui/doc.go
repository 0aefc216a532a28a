package ui

// Package ui contains the Fyne-based desktop user interface for the application.
// It renders downloads grouped by series, lets the user choose the download
// directory and wires row actions to the download service.
