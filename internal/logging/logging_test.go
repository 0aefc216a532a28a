package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLBeforeInitIsUsable(t *testing.T) {
	// Must not panic before Init.
	L().Info("before init", String("k", "v"))
	Named("test").Debug("named")
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Named("worker").Info("download finished", String("id", "abc"), Int64("bytes", 42))
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"logger":"worker"`, `"id":"abc"`, `"bytes":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %s, got %s", want, out)
		}
	}

	SetLevel("error")
	Named("worker").Info("suppressed")
	_ = Sync()
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "suppressed") {
		t.Error("expected info entry to be suppressed at error level")
	}
	SetLevel("info")
}
