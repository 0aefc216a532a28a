package worker

// Package worker is the background side of the download manager. It receives
// commands over a channel, streams queued downloads into the selected
// directory one at a time and reports every persisted step as an event.
// The repository is the only state shared with the UI side; events carry no
// authoritative data.
