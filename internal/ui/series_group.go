package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/stremio-downloads/internal/model"
)

// SeriesGroupView shows one series: a header with overall progress and a row
// per episode. Rows are reused across updates so widget state survives.
type SeriesGroupView struct {
	name    string
	actions RowActions

	header   *widget.Label
	summary  *widget.Label
	progress *widget.ProgressBar
	rowsBox  *fyne.Container
	rows     map[string]*DownloadRow

	container *fyne.Container
}

// NewSeriesGroupView creates an empty group view
func NewSeriesGroupView(name string, actions RowActions) *SeriesGroupView {
	g := &SeriesGroupView{
		name:    name,
		actions: actions,
		rows:    make(map[string]*DownloadRow),
	}

	g.header = widget.NewLabel(name)
	g.header.TextStyle = fyne.TextStyle{Bold: true}
	g.header.Truncation = fyne.TextTruncateEllipsis
	g.summary = widget.NewLabel("")
	g.summary.Alignment = fyne.TextAlignTrailing
	g.progress = widget.NewProgressBar()
	g.rowsBox = container.NewVBox()

	top := container.NewBorder(nil, nil, nil, g.summary, g.header)
	g.container = container.NewVBox(top, g.progress, container.NewPadded(g.rowsBox))
	return g
}

// Update renders group. Rows of files that left the group are dropped.
func (g *SeriesGroupView) Update(group model.SeriesGroup) {
	g.summary.Importance = widget.MediumImportance
	if group.HasErrors() {
		g.summary.Importance = widget.DangerImportance
	}
	g.summary.SetText(fmt.Sprintf(GroupSummaryFormat, group.Completed(), len(group.Files)))
	g.progress.SetValue(float64(group.Progress()) / 100)

	seen := make(map[string]struct{}, len(group.Files))
	objects := make([]fyne.CanvasObject, 0, len(group.Files))
	for _, f := range group.Files {
		key := rowKey(f)
		seen[key] = struct{}{}
		row, ok := g.rows[key]
		if ok {
			row.SetFile(f)
		} else {
			row = NewDownloadRow(f, g.actions)
			g.rows[key] = row
		}
		objects = append(objects, row)
	}
	for key := range g.rows {
		if _, ok := seen[key]; !ok {
			delete(g.rows, key)
		}
	}

	g.rowsBox.Objects = objects
	g.rowsBox.Refresh()
}

// Container returns the group's canvas object
func (g *SeriesGroupView) Container() fyne.CanvasObject {
	return g.container
}

// SeriesList is the scrollable list of all series groups
type SeriesList struct {
	actions RowActions
	groups  map[string]*SeriesGroupView
	box     *fyne.Container
	empty   *widget.Label
	scroll  *container.Scroll
}

// NewSeriesList creates an empty list
func NewSeriesList(actions RowActions) *SeriesList {
	l := &SeriesList{
		actions: actions,
		groups:  make(map[string]*SeriesGroupView),
		box:     container.NewVBox(),
		empty:   widget.NewLabel("No downloads yet"),
	}
	l.empty.Alignment = fyne.TextAlignCenter
	l.box.Add(l.empty)
	l.scroll = container.NewVScroll(l.box)
	return l
}

// Update replaces the shown groups, keeping their order
func (l *SeriesList) Update(groups []model.SeriesGroup) {
	if len(groups) == 0 {
		l.groups = make(map[string]*SeriesGroupView)
		l.box.Objects = []fyne.CanvasObject{l.empty}
		l.box.Refresh()
		return
	}

	next := make(map[string]*SeriesGroupView, len(groups))
	objects := make([]fyne.CanvasObject, 0, len(groups))
	for _, group := range groups {
		view, ok := l.groups[group.Name]
		if !ok {
			view = NewSeriesGroupView(group.Name, l.actions)
		}
		view.Update(group)
		next[group.Name] = view
		objects = append(objects, view.Container())
	}
	l.groups = next
	l.box.Objects = objects
	l.box.Refresh()
}

// Container returns the scrollable canvas object
func (l *SeriesList) Container() fyne.CanvasObject {
	return l.scroll
}
