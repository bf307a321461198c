package summarizer

import (
	"fmt"
	"strings"

	"github.com/ideamans/go-l10n"
)

// MarkdownFormatter renders a Summary as Markdown tables.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Playback Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", l10n.T("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05"))

	section(&b, l10n.T("Source"), [][2]string{
		{l10n.T("File"), s.Source.Path},
		{l10n.T("Container"), s.Source.Container},
		{l10n.T("Codec"), s.Source.Codec},
		{l10n.T("Backend"), s.Source.Backend},
		{l10n.T("Size"), fmt.Sprintf("%dx%d", s.Source.Width, s.Source.Height)},
		{l10n.T("Frames"), fmt.Sprintf("%d", s.Source.FrameCount)},
		{l10n.T("Duration"), fmt.Sprintf("%d ms", s.Source.DurationMs)},
	})

	end := l10n.T("Yes")
	if !s.Playback.EndOfStream {
		end = l10n.T("No")
	}
	rows := [][2]string{
		{l10n.T("Ticks"), fmt.Sprintf("%d", s.Playback.Ticks)},
		{l10n.T("Frames Shown"), fmt.Sprintf("%d", s.Playback.FramesShown)},
		{l10n.T("Frames Skipped"), fmt.Sprintf("%d", s.Playback.FramesSkipped)},
		{l10n.T("Last Timestamp"), fmt.Sprintf("%d ms", s.Playback.LastTimestampMs)},
		{l10n.T("Actual FPS"), fmt.Sprintf("%.1f", s.Playback.ActualFPS)},
		{l10n.T("End of Stream"), end},
	}
	if s.Playback.Interrupted {
		rows = append(rows, [2]string{l10n.T("Interrupted"), l10n.T("Yes")})
	}
	section(&b, l10n.T("Results"), rows)

	target := l10n.T("Unlimited")
	if s.Settings.TargetFPS > 0 {
		target = fmt.Sprintf("%.1f", s.Settings.TargetFPS)
	}
	section(&b, l10n.T("Settings"), [][2]string{
		{l10n.T("Target FPS"), target},
		{l10n.T("Canvas Size"), fmt.Sprintf("%dx%d", s.Settings.CanvasWidth, s.Settings.CanvasHeight)},
		{l10n.T("Decode Policy"), s.Settings.DecodePolicy},
		{l10n.T("Backend"), s.Settings.Backend},
	})

	return b.String()
}

func section(b *strings.Builder, title string, rows [][2]string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "| %s | %s |\n", l10n.T("Item"), l10n.T("Value"))
	b.WriteString("|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", r[0], escape(r[1]))
	}
	b.WriteString("\n")
}

func escape(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
