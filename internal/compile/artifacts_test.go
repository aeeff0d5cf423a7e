package compile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o666); err != nil {
			tb.Fatalf("got %q err", err)
		}
	}
}

func TestCollectArtifacts(t *testing.T) {
	t.Run("reads all three files", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"example.js":   "var Module;",
			"example.wasm": "\x00asm",
			"example.data": "blob",
		})

		got, err := CollectArtifacts(&CollectParams{Dir: dir, FileBaseName: "example", RequireData: true})
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		if got.Generated != "var Module;" {
			t.Errorf("got %q Generated", got.Generated)
		}
		if string(got.Payload) != "\x00asm" {
			t.Errorf("got %q Payload", got.Payload)
		}
		if string(got.Data) != "blob" {
			t.Errorf("got %q Data", got.Data)
		}
	})

	t.Run("substitutes empty data when the file is absent", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"example.js":   "var Module;",
			"example.wasm": "\x00asm",
		})

		got, err := CollectArtifacts(&CollectParams{Dir: dir, FileBaseName: "example"})
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		if got.Data == nil || len(got.Data) != 0 {
			t.Fatalf("got %#v Data, want empty non-nil", got.Data)
		}
	})

	t.Run("fails when required data is absent", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"example.js":   "var Module;",
			"example.wasm": "\x00asm",
		})

		_, err := CollectArtifacts(&CollectParams{Dir: dir, FileBaseName: "example", RequireData: true})
		if !errors.Is(err, ErrMissingData) {
			t.Fatalf("got %v err, want %v", err, ErrMissingData)
		}
	})

	for _, missing := range []string{"example.js", "example.wasm"} {
		t.Run("fails without "+missing, func(t *testing.T) {
			dir := t.TempDir()
			files := map[string]string{
				"example.js":   "var Module;",
				"example.wasm": "\x00asm",
			}
			delete(files, missing)
			writeFiles(t, dir, files)

			_, err := CollectArtifacts(&CollectParams{Dir: dir, FileBaseName: "example"})
			readErr := (*ArtifactReadError)(nil)
			if !errors.As(err, &readErr) {
				t.Fatalf("got %v err, want *ArtifactReadError", err)
			}
			if got, want := readErr.Path, filepath.Join(dir, missing); got != want {
				t.Fatalf("got %s Path, want %s", got, want)
			}
		})
	}
}
