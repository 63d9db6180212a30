package orchestrator

import "os"

// writeExecutable creates a small executable file for candidate-discovery
// tests. The contents never run; only existence matters.
func writeExecutable(path string) error {
	return os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755)
}
