package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteChunks writes one fake audio file per payload under dir, named in
// recording order (chunk-000.webm, chunk-001.webm, ...). The fake speech
// service keys its canned text on the file contents, so each payload doubles
// as the lookup key.
func WriteChunks(t testing.TB, dir string, payloads ...string) []string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", dir, err)
	}
	paths := make([]string, 0, len(payloads))
	for i, payload := range payloads {
		path := filepath.Join(dir, fmt.Sprintf("chunk-%03d.webm", i))
		if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}
