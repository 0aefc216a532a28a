package model

import (
	"encoding/json"
	"fmt"
)

// Wire names of the messages exchanged between the UI side and the worker
const (
	TypeDownloadVideo      = "DOWNLOAD_VIDEO"
	TypeSetDirectoryHandle = "SET_DIRECTORY_HANDLE"
	TypeDownloadProgress   = "DOWNLOAD_PROGRESS"
)

// WorkerCommand is a message sent from the UI side to the background worker.
// The set of implementations is closed: DownloadVideo and SetDirectoryHandle.
type WorkerCommand interface {
	Type() string
	workerCommand()
}

// WorkerEvent is a message sent from the background worker to the UI side.
// The only implementation is DownloadProgress.
type WorkerEvent interface {
	Type() string
	workerEvent()
}

// DirectoryRef is the serializable form of a directory handle. Only the
// reference crosses the boundary; the receiver re-opens and re-validates it.
type DirectoryRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DownloadVideo asks the worker to fetch Download.StreamURL into the configured
// directory under Download.FileName
type DownloadVideo struct {
	Download    DownloadRecord `json:"download"`
	SubDLAPIKey string         `json:"subDlApiKey,omitempty"`
}

// SetDirectoryHandle tells the worker which directory to write to
type SetDirectoryHandle struct {
	Handle DirectoryRef `json:"handle"`
}

// DownloadProgress is an opaque trigger: the receiver must re-read the
// repository instead of trusting these fields.
type DownloadProgress struct {
	ID     string `json:"id,omitempty"`
	Status Status `json:"status,omitempty"`
}

func (DownloadVideo) Type() string      { return TypeDownloadVideo }
func (SetDirectoryHandle) Type() string { return TypeSetDirectoryHandle }
func (DownloadProgress) Type() string   { return TypeDownloadProgress }

func (DownloadVideo) workerCommand()      {}
func (SetDirectoryHandle) workerCommand() {}
func (DownloadProgress) workerEvent()     {}

type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// MarshalMessage encodes a command or event with its wire type tag
func MarshalMessage(msg interface{ Type() string }) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	return json.Marshal(envelope{Type: msg.Type(), Body: body})
}

// UnmarshalCommand decodes a tagged worker command
func UnmarshalCommand(data []byte) (WorkerCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeDownloadVideo:
		var cmd DownloadVideo
		if err := json.Unmarshal(env.Body, &cmd); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return cmd, nil
	case TypeSetDirectoryHandle:
		var cmd SetDirectoryHandle
		if err := json.Unmarshal(env.Body, &cmd); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("unknown worker command %q", env.Type)
	}
}

// UnmarshalEvent decodes a tagged worker event
func UnmarshalEvent(data []byte) (WorkerEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeDownloadProgress:
		var ev DownloadProgress
		if err := json.Unmarshal(env.Body, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown worker event %q", env.Type)
	}
}
