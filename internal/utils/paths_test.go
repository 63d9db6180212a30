package utils

import (
	"path/filepath"
	"testing"
)

func TestCheckRoot(t *testing.T) {
	if NewPaths("").CheckRoot() {
		t.Error("an empty root must not pass the check")
	}
	if NewPaths(filepath.Join(t.TempDir(), "missing")).CheckRoot() {
		t.Error("a missing directory must not pass the check")
	}
	if !NewPaths(t.TempDir()).CheckRoot() {
		t.Error("an existing directory must pass the check")
	}
}

func TestServicePaths(t *testing.T) {
	p := NewPaths(filepath.Join("opt", "aism"))

	if got := p.ServiceDir("tts"); got != filepath.Join("opt", "aism", "services", "tts") {
		t.Errorf("unexpected service dir: %s", got)
	}
	if got := p.ConfigFile(); got != filepath.Join("opt", "aism", "aism.json") {
		t.Errorf("unexpected config file: %s", got)
	}
	if got := p.LogFile(); got != filepath.Join("opt", "aism", "logs", "aism.log") {
		t.Errorf("unexpected log file: %s", got)
	}
}
