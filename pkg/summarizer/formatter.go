package summarizer

import "github.com/ideamans/go-l10n"

// Formatter renders a Summary.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc adapts a plain function to Formatter.
type FormatFunc func(summary *Summary) string

// Format calls f.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// Line is a single-line Formatter for terminal output.
var Line Formatter = FormatFunc(func(s *Summary) string {
	return l10n.F("%s: %d frames shown, %d skipped, last at %d ms",
		s.Source.Path, s.Playback.FramesShown, s.Playback.FramesSkipped, s.Playback.LastTimestampMs)
})
