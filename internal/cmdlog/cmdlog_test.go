package cmdlog

import (
	"errors"
	"io"
	"os"
	"testing"

	"xpurge/internal/logging"
)

func TestRunPassesErrorThrough(t *testing.T) {
	logging.SetOutput(io.Discard)
	defer logging.SetOutput(os.Stdout)

	want := errors.New("boom")
	if got := Run("test", func() error { return want }); !errors.Is(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := Run("test", func() error { return nil }); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
