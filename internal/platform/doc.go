package platform

// Package platform contains OS integration glue: well-known directories,
// directory creation and opening files or folders with the system tools.
