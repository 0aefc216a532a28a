package config

// Package config holds user settings stored in fyne preferences, process
// settings read from the environment and the optional worker options file.
