package repository

import "github.com/ytget/stremio-downloads/internal/kvstore"

// Object store names.
const (
	StoreDownloads = "downloads"
	StoreHandles   = "fileSystemHandles"
	StoreProgress  = "progress"
)

// SchemaVersion is bumped whenever a store's key contract changes.
// Version 4 moved downloads to an in-line "id" key.
const SchemaVersion = 4

// Schema returns the database layout shared by the app and the worker.
func Schema() kvstore.Schema {
	return kvstore.Schema{
		Version: SchemaVersion,
		Stores: []kvstore.StoreSpec{
			{Name: StoreDownloads, KeyPath: "id"},
			{Name: StoreHandles},
			{Name: StoreProgress, KeyPath: "id"},
		},
	}
}
