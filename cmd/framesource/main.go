// Package main provides the CLI entry point for framesource.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framesource/pkg/adapters/filesink"
	"github.com/user/framesource/pkg/adapters/ggrenderer"
	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/adapters/nullsink"
	"github.com/user/framesource/pkg/adapters/osfilesystem"
	"github.com/user/framesource/pkg/completion"
	"github.com/user/framesource/pkg/config"
	"github.com/user/framesource/pkg/framesource"
	"github.com/user/framesource/pkg/lifecycle"
	"github.com/user/framesource/pkg/player"
	"github.com/user/framesource/pkg/ports"
	"github.com/user/framesource/pkg/summarizer"
	"github.com/user/framesource/pkg/supervisor"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framesource",
		Usage:   l10n.T("Play video files headlessly and report decoded frames"),
		Version: version,
		Commands: []*cli.Command{
			playCommand(),
			probeCommand(),
			versionCommand(),
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
	}
}

func decodeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "policy", Usage: l10n.T("Corrupt frame policy (skip, fail)"), Category: l10n.T("Decoding")},
		&cli.StringFlag{Name: "backend", Usage: l10n.T("Decoder backend (auto, native, ffmpeg)"), Category: l10n.T("Decoding")},
		&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to ffmpeg executable"), EnvVars: []string{"FFMPEG_PATH"}, Category: l10n.T("Decoding")},
	}
}

func playCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},
		&cli.Float64Flag{Name: "fps", Usage: l10n.T("Target frame rate (default: 60)"), Category: l10n.T("Playback")},
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Canvas width (default: 640)"), Category: l10n.T("Playback")},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Canvas height (default: 480)"), Category: l10n.T("Playback")},
		&cli.IntFlag{Name: "max-frames", Usage: l10n.T("Stop after this many ticks (0 = until end of stream)"), Category: l10n.T("Playback")},
		&cli.DurationFlag{Name: "timeout", Usage: l10n.T("Abort playback after this duration"), Category: l10n.T("Playback")},
		&cli.StringFlag{Name: "snapshot-dir", Usage: l10n.T("Directory for canvas snapshots"), Category: l10n.T("Debug")},
		&cli.IntFlag{Name: "snapshot-every", Usage: l10n.T("Save every Nth canvas (default: 30)"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "summary", Usage: l10n.T("Write a Markdown playback summary to this file"), Category: l10n.T("Debug")},
	}
	flags = append(flags, decodeFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a video file on a headless canvas"),
		ArgsUsage: "FILE",
		Flags:     flags,
		Action:    runPlay,
	}
}

func probeCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{Name: "count", Usage: l10n.T("Decode every frame and count them")},
	}
	flags = append(flags, decodeFlags()...)
	flags = append(flags, loggingFlags()...)

	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show stream information of a video file"),
		ArgsUsage: "FILE",
		Flags:     flags,
		Action:    runProbe,
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("framesource version %s", version))
			return nil
		},
	}
}

func newLogger(c *cli.Context, level string) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}

// buildConfig layers the config file and then explicit flags over Defaults.
func buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.Args().Len() > 0 {
		cfg.Source = c.Args().First()
	}
	if c.IsSet("fps") {
		cfg.FPS = c.Float64("fps")
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.IsSet("max-frames") {
		cfg.MaxFrames = c.Int("max-frames")
	}
	if c.IsSet("timeout") {
		cfg.TimeoutMs = int(c.Duration("timeout").Milliseconds())
	}
	if c.IsSet("policy") {
		cfg.Decode.Policy = c.String("policy")
	}
	if c.IsSet("backend") {
		cfg.Decode.Backend = c.String("backend")
	}
	if c.IsSet("ffmpeg") {
		cfg.Decode.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("snapshot-dir") {
		cfg.Snapshot.Dir = c.String("snapshot-dir")
	}
	if c.IsSet("snapshot-every") {
		cfg.Snapshot.Every = c.Int("snapshot-every")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	return cfg, cfg.Validate()
}

func runPlay(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	log := newLogger(c, cfg.LogLevel)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink
	if cfg.Snapshot.Dir != "" {
		if err := fs.MkdirAll(cfg.Snapshot.Dir); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
		sink = filesink.New(cfg.Snapshot.Dir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	srcOpts, err := cfg.ToSourceOptions(fs, log)
	if err != nil {
		return err
	}

	signalDone := completion.New()
	sketch := player.New(cfg.ToPlayerOptions(), player.SourceOpener(srcOpts), renderer, sink, signalDone, log)
	driver := lifecycle.NewDriver(cfg.ToDriverOptions(log))
	sup := supervisor.New(driver, signalDone, supervisor.Options{Timeout: cfg.Timeout(), Logger: log})

	log.Info("Playing %s at %.1f fps", cfg.Source, cfg.FPS)
	res, err := sup.Run(ctx, sketch)
	summary := sketch.Summary()
	log.Info("Playback finished: %d ticks, %d frames, %.1f fps", res.Ticks, summary.FramesShown, res.ActualFPS())
	report := buildSummary(cfg, summary, res)
	if path := c.String("summary"); path != "" {
		if werr := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs).Write(path, report); werr != nil {
			log.Error("Failed to write summary: %v", werr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, summarizer.Line.Format(report))
	return nil
}

func buildSummary(cfg config.Config, s player.Summary, res lifecycle.Result) *summarizer.Summary {
	return summarizer.NewBuilder().
		WithSource(summarizer.SourceInfo{
			Path:       cfg.Source,
			Container:  s.Container,
			Codec:      s.Codec,
			Backend:    s.Backend,
			Width:      s.Width,
			Height:     s.Height,
			FrameCount: s.FrameCount,
			DurationMs: s.DurationMs,
		}).
		WithPlayback(summarizer.PlaybackInfo{
			Ticks:           res.Ticks,
			FramesShown:     s.FramesShown,
			FramesSkipped:   s.FramesSkipped,
			LastTimestampMs: s.LastTimestampMs,
			ActualFPS:       res.ActualFPS(),
			EndOfStream:     s.EndOfStream,
			Interrupted:     res.Interrupted,
		}).
		WithSettings(summarizer.Settings{
			TargetFPS:    cfg.FPS,
			CanvasWidth:  cfg.Width,
			CanvasHeight: cfg.Height,
			DecodePolicy: cfg.Decode.Policy,
			Backend:      cfg.Decode.Backend,
		}).
		Build()
}

func runProbe(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit(l10n.T("A video file argument is required"), 2)
	}
	path := c.Args().First()

	cfg := config.Defaults()
	cfg.Source = path
	if c.IsSet("policy") {
		cfg.Decode.Policy = c.String("policy")
	}
	if c.IsSet("backend") {
		cfg.Decode.Backend = c.String("backend")
	}
	if c.IsSet("ffmpeg") {
		cfg.Decode.FFmpegPath = c.String("ffmpeg")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	log := newLogger(c, "warn")
	opts, err := cfg.ToSourceOptions(osfilesystem.New(), log)
	if err != nil {
		return err
	}

	src, err := framesource.Open(path, opts)
	if err != nil {
		return err
	}
	defer src.Close()

	info := src.Info()
	backend := src.Backend()
	w := c.App.Writer
	fmt.Fprintf(w, "%-12s %s\n", l10n.T("Container")+":", info.Container)
	fmt.Fprintf(w, "%-12s %s (%s)\n", l10n.T("Codec")+":", backend.Codec, info.Codec)
	fmt.Fprintf(w, "%-12s %s\n", l10n.T("Backend")+":", backend.Backend)
	fmt.Fprintf(w, "%-12s %dx%d\n", l10n.T("Size")+":", info.Width, info.Height)
	fmt.Fprintf(w, "%-12s %d\n", l10n.T("Frames")+":", info.FrameCount)
	fmt.Fprintf(w, "%-12s %d ms\n", l10n.T("Duration")+":", info.DurationMs)
	fmt.Fprintf(w, "%-12s %.3f\n", l10n.T("Frame rate")+":", info.FrameRate)

	if c.Bool("count") {
		for {
			_, ok, err := src.Read()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
		stats := src.Stats()
		fmt.Fprintf(w, "%-12s %d (%s %d)\n", l10n.T("Decoded")+":", stats.Delivered, l10n.T("skipped"), stats.Skipped)
	}
	return nil
}
