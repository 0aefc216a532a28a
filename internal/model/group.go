package model

// DefaultGroupSeparator splits "Series - S01E01.mp4" into series and episode
const DefaultGroupSeparator = " - "

// SeriesGroup is a set of files sharing the text before the group separator
type SeriesGroup struct {
	Name  string
	Files []DisplayFile
}

// Progress returns overall progress of the group as percentage
func (g SeriesGroup) Progress() int {
	if len(g.Files) == 0 {
		return 0
	}
	sum := 0
	for _, f := range g.Files {
		sum += f.Percent()
	}
	return sum / len(g.Files)
}

// Completed returns the number of completed files in the group
func (g SeriesGroup) Completed() int {
	n := 0
	for _, f := range g.Files {
		if f.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// HasErrors checks if any file in the group has failed
func (g SeriesGroup) HasErrors() bool {
	for _, f := range g.Files {
		if f.Status == StatusFailed {
			return true
		}
	}
	return false
}
