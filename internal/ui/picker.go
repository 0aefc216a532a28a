package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"github.com/ytget/stremio-downloads/internal/dirhandle"
)

// FolderPicker shows the Fyne folder dialog. PickDirectory blocks until the
// dialog is closed, so it must not be called from the UI goroutine.
type FolderPicker struct {
	window fyne.Window
}

// NewFolderPicker returns a picker that opens its dialog on window
func NewFolderPicker(window fyne.Window) *FolderPicker {
	return &FolderPicker{window: window}
}

// PickDirectory implements dirhandle.Picker
func (p *FolderPicker) PickDirectory(ctx context.Context) (dirhandle.Handle, error) {
	type result struct {
		h   dirhandle.Handle
		err error
	}
	done := make(chan result, 1)

	fyne.Do(func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			h, err := handleFromURI(uri, err)
			done <- result{h: h, err: err}
		}, p.window)
	})

	select {
	case r := <-done:
		return r.h, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handleFromURI converts the folder dialog result. A dismissed dialog reports
// neither a URI nor an error.
func handleFromURI(uri fyne.URI, err error) (dirhandle.Handle, error) {
	if err != nil {
		return nil, err
	}
	if uri == nil {
		return nil, dirhandle.ErrAborted
	}
	return dirhandle.NewLocalHandle(uri.Path())
}
