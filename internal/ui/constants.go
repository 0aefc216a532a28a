package ui

// UI-wide constants to avoid magic numbers/strings scattered across the codebase.

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconPlay     = "▶"
	IconFolder   = "📁"
	IconError    = "❌"
	IconQueued   = "⏳"
	IconPaused   = "⏸"
	IconDelete   = "🗑"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	ProgressLabelFormat = "%d%%"
	GroupSummaryFormat  = "%d/%d"
)

// Layout sizing
const (
	StatusLabelWidth  float32 = 110
	PercentLabelWidth float32 = 48

	RowMinWidth float32 = 420

	WindowWidth  float32 = 820
	WindowHeight float32 = 600

	SettingsDialogWidth  float32 = 460
	SettingsDialogHeight float32 = 380
)

