package model

// Package model defines domain data structures shared by the orchestrator, the
// worker and the UI: download records, status enums, the derived display view,
// series groups and the messages exchanged with the background worker.
