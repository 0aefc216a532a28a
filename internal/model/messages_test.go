package model

import "testing"

func TestMessageRoundTrip(t *testing.T) {
	cmd := DownloadVideo{
		Download:    DownloadRecord{ID: "id1", FileName: "a.mp4", StreamURL: "https://cdn/a", Status: StatusQueued},
		SubDLAPIKey: "key",
	}
	data, err := MarshalMessage(cmd)
	if err != nil {
		t.Fatalf("MarshalMessage: %v", err)
	}

	decoded, err := UnmarshalCommand(data)
	if err != nil {
		t.Fatalf("UnmarshalCommand: %v", err)
	}
	dv, ok := decoded.(DownloadVideo)
	if !ok {
		t.Fatalf("Expected DownloadVideo, got %T", decoded)
	}
	if dv.Download.ID != "id1" || dv.SubDLAPIKey != "key" {
		t.Errorf("Unexpected decoded command: %+v", dv)
	}

	evData, err := MarshalMessage(DownloadProgress{ID: "id1", Status: StatusDownloading})
	if err != nil {
		t.Fatalf("MarshalMessage: %v", err)
	}
	ev, err := UnmarshalEvent(evData)
	if err != nil {
		t.Fatalf("UnmarshalEvent: %v", err)
	}
	if ev.Type() != TypeDownloadProgress {
		t.Errorf("Expected %s, got %s", TypeDownloadProgress, ev.Type())
	}
}

func TestUnmarshalCommand_Unknown(t *testing.T) {
	if _, err := UnmarshalCommand([]byte(`{"type":"NOPE","body":{}}`)); err == nil {
		t.Error("Expected error for unknown command type")
	}
	if _, err := UnmarshalEvent([]byte(`{"type":"DOWNLOAD_VIDEO","body":{}}`)); err == nil {
		t.Error("Expected error for command decoded as event")
	}
}
