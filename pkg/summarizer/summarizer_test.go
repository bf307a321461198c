package summarizer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/framesource/pkg/mocks"
)

func sampleSummary() *Summary {
	s := NewBuilder().
		WithSource(SourceInfo{
			Path:       "clips/abstract.mp4",
			Container:  "mp4",
			Codec:      "avc1",
			Backend:    "ffmpeg",
			Width:      1280,
			Height:     720,
			FrameCount: 300,
			DurationMs: 10000,
		}).
		WithPlayback(PlaybackInfo{
			Ticks:           301,
			FramesShown:     298,
			FramesSkipped:   2,
			LastTimestampMs: 9966,
			ActualFPS:       59.8,
			EndOfStream:     true,
		}).
		WithSettings(Settings{
			TargetFPS:    60,
			CanvasWidth:  640,
			CanvasHeight: 480,
			DecodePolicy: "skip",
			Backend:      "auto",
		}).
		Build()
	s.GeneratedAt = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return s
}

func TestMarkdownFormatter_Format(t *testing.T) {
	out := NewMarkdownFormatter().Format(sampleSummary())

	checks := []string{
		"# ",
		"2024-01-15 10:30:00",
		"clips/abstract.mp4",
		"1280x720",
		"10000 ms",
		"| 298 |",
		"| 2 |",
		"9966 ms",
		"59.8",
		"640x480",
		"skip",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestMarkdownFormatter_EscapesPipes(t *testing.T) {
	s := sampleSummary()
	s.Source.Path = "a|b.mp4"
	s.Source.Backend = ""

	out := NewMarkdownFormatter().Format(s)
	if !strings.Contains(out, `a\|b.mp4`) {
		t.Errorf("expected escaped pipe:\n%s", out)
	}
	if !strings.Contains(out, "| - |") {
		t.Errorf("expected placeholder for empty value:\n%s", out)
	}
}

func TestFormatFunc(t *testing.T) {
	f := FormatFunc(func(s *Summary) string { return s.Source.Path })
	if got := f.Format(sampleSummary()); got != "clips/abstract.mp4" {
		t.Errorf("unexpected %q", got)
	}
}

func TestLine(t *testing.T) {
	out := Line.Format(sampleSummary())
	for _, want := range []string{"clips/abstract.mp4", "298", "9966"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\n") {
		t.Errorf("expected a single line, got %q", out)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "report" }), fs)

	path := filepath.Join("out", "summary.md")
	if err := w.Write(path, sampleSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ok := fs.GetFile(path)
	if !ok || string(data) != "report" {
		t.Fatalf("unexpected file content %q", data)
	}
	if exists, _ := fs.Exists("out"); !exists {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error { return errors.New("disk full") }
	w := NewWriter(NewMarkdownFormatter(), fs)

	if err := w.Write("summary.md", sampleSummary()); err == nil {
		t.Fatal("expected error")
	}
}
