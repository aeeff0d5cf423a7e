package applog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("json handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("info", "json", &buf)
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		logger.Info("compiled", "source", "example.cpp")

		var record map[string]any
		if err = json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("got %q err, output %q", err, buf.String())
		}
		if got := record["source"]; got != "example.cpp" {
			t.Fatalf("got %v source, want %q", got, "example.cpp")
		}
	})

	t.Run("text handler filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("warn", "text", &buf)
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		logger.Info("hidden")
		logger.Warn("shown")

		if strings.Contains(buf.String(), "hidden") {
			t.Fatalf("didn't want %q in output %q", "hidden", buf.String())
		}
		if !strings.Contains(buf.String(), "msg=shown") {
			t.Fatalf("got %q output, want msg=shown", buf.String())
		}
	})

	t.Run("defaults", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("", "", &buf)
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		logger.Debug("hidden")
		logger.Info("shown")
		if got := buf.String(); strings.Contains(got, "hidden") || !strings.Contains(got, "msg=shown") {
			t.Fatalf("got %q output", got)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New("verbose", "text", &bytes.Buffer{})
		if !errors.Is(err, ErrInvalidLevel) {
			t.Fatalf("got %v err, want ErrInvalidLevel", err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New("info", "yaml", &bytes.Buffer{})
		if !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("got %v err, want ErrInvalidFormat", err)
		}
	})
}
