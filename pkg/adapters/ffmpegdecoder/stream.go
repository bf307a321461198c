package ffmpegdecoder

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/ports"
)

// ErrNoPicture is the cause of a DecodeError for a sample ffmpeg produced no
// picture for.
var ErrNoPicture = errors.New("ffmpegdecoder: no picture decoded for sample")

// Options configures a Stream.
type Options struct {
	// FFmpegPath overrides the ffmpeg lookup.
	FFmpegPath string
	Logger     ports.Logger
}

// Stream implements ports.FrameStream on top of an ffmpeg child process.
//
// ffmpeg writes two outputs of the same decoded pictures: raw RGBA on stdout
// and a framecrc listing on stderr that carries each picture's pts. Pictures
// are matched to container samples by pts; a sample with no matching
// picture is reported as a *ports.DecodeError.
type Stream struct {
	demux  ports.Demuxer
	info   ports.StreamInfo
	logger ports.Logger

	cmd     *exec.Cmd
	stdout  io.ReadCloser
	pts     *ptsQueue
	scanned chan struct{}

	pending []ports.Timing // samples not yet matched, by presentation time
	gaps    []ports.Timing // unmatched samples to report before held
	held    *ports.VideoFrame

	index    int
	lastDur  int
	finished bool
	exited   bool

	closeOnce sync.Once
	closeErr  error
}

// Start launches ffmpeg on path. The demuxer must describe the same file and
// is owned by the returned Stream once Start succeeds.
func Start(path string, demux ports.Demuxer, opts Options) (*Stream, error) {
	info := demux.Info()
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: ffmpeg backend needs frame dimensions", ports.ErrUnsupportedFormat)
	}

	ffmpegPath, err := FindFFmpeg(opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrUnsupportedFormat, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	pending, err := presentationOrder(demux)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-v", "error",
		"-nostdin",
		"-copyts",
		"-i", path,
		"-map", "0:v:0", "-fps_mode", "passthrough",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-flush_packets", "1", "pipe:1",
		"-map", "0:v:0", "-fps_mode", "passthrough",
		"-f", "framecrc", "-flush_packets", "1", "pipe:2",
	}

	s := &Stream{
		demux:   demux,
		info:    info,
		logger:  log,
		pts:     newPtsQueue(),
		scanned: make(chan struct{}),
		pending: pending,
	}
	s.cmd = exec.Command(ffmpegPath, args...)
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stdout: %v", ports.ErrIO, err)
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg stderr: %v", ports.ErrIO, err)
	}
	s.stdout = stdout

	log.Debug("Starting ffmpeg: %s", strings.Join(append([]string{ffmpegPath}, args...), " "))
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ports.ErrIO, err)
	}
	go func() {
		defer close(s.scanned)
		s.pts.scan(stderr)
	}()
	return s, nil
}

// presentationOrder collects the timing of every sample sorted by
// presentation time. Samples an edit list puts before zero are never shown
// and are left out.
func presentationOrder(demux ports.Demuxer) ([]ports.Timing, error) {
	var timeline []ports.Timing
	if tl, ok := demux.(ports.Timeline); ok {
		timeline = tl.Timeline()
	} else {
		for {
			sample, err := demux.NextSample()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%w: index samples: %v", ports.ErrIO, err)
			}
			timeline = append(timeline, ports.Timing{
				Number:      sample.Number,
				TimestampMs: sample.TimestampMs,
				DurationMs:  sample.DurationMs,
			})
		}
	}

	shown := make([]ports.Timing, 0, len(timeline))
	for _, t := range timeline {
		if t.TimestampMs >= 0 {
			shown = append(shown, t)
		}
	}
	slices.SortStableFunc(shown, func(a, b ports.Timing) int {
		return a.TimestampMs - b.TimestampMs
	})
	return shown, nil
}

// Info returns the stream description from the demuxer.
func (s *Stream) Info() ports.StreamInfo {
	return s.info
}

// Next returns the next decoded frame, a *ports.DecodeError for a sample
// ffmpeg skipped, or io.EOF once ffmpeg has exited cleanly and every sample
// is accounted for. A failed or truncated ffmpeg run is an ErrIO error.
func (s *Stream) Next() (ports.VideoFrame, error) {
	if len(s.gaps) > 0 {
		gap := s.gaps[0]
		s.gaps = s.gaps[1:]
		return ports.VideoFrame{}, &ports.DecodeError{Number: gap.Number, TimestampMs: gap.TimestampMs, Err: ErrNoPicture}
	}
	if s.held != nil {
		frame := *s.held
		s.held = nil
		return frame, nil
	}
	if s.finished {
		return ports.VideoFrame{}, io.EOF
	}

	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	if _, err := io.ReadFull(s.stdout, img.Pix); err != nil {
		s.finished = true
		switch {
		case errors.Is(err, io.EOF):
			if werr := s.wait(); werr != nil {
				return ports.VideoFrame{}, werr
			}
			// Whatever was never matched has no picture.
			s.gaps, s.pending = s.pending, nil
			return s.Next()
		case errors.Is(err, io.ErrUnexpectedEOF):
			if werr := s.wait(); werr != nil {
				return ports.VideoFrame{}, werr
			}
			return ports.VideoFrame{}, fmt.Errorf("%w: ffmpeg output ended inside a frame", ports.ErrIO)
		default:
			return ports.VideoFrame{}, fmt.Errorf("%w: read ffmpeg output: %v", ports.ErrIO, err)
		}
	}

	ptsMs, ok := s.pts.pop()
	if !ok {
		s.finished = true
		if werr := s.wait(); werr != nil {
			return ports.VideoFrame{}, werr
		}
		return ports.VideoFrame{}, fmt.Errorf("%w: ffmpeg reported no timestamp for frame %d", ports.ErrIO, s.index)
	}

	frame := s.match(ptsMs)
	frame.Image = img
	frame.Index = s.index
	s.index++

	if len(s.gaps) > 0 {
		s.held = &frame
		return s.Next()
	}
	return frame, nil
}

// match consumes the pending sample shown at ptsMs. Earlier pending samples
// become gaps. A picture with no sample keeps ffmpeg's timestamp.
func (s *Stream) match(ptsMs int) ports.VideoFrame {
	for len(s.pending) > 0 && s.pending[0].TimestampMs < ptsMs-tolerance(s.pending[0]) {
		s.gaps = append(s.gaps, s.pending[0])
		s.pending = s.pending[1:]
	}
	if len(s.pending) > 0 && abs(s.pending[0].TimestampMs-ptsMs) <= tolerance(s.pending[0]) {
		t := s.pending[0]
		s.pending = s.pending[1:]
		s.lastDur = t.DurationMs
		return ports.VideoFrame{TimestampMs: t.TimestampMs, DurationMs: t.DurationMs}
	}
	return ports.VideoFrame{TimestampMs: ptsMs, DurationMs: s.lastDur}
}

// tolerance absorbs rounding between ffmpeg's output timebase and the
// container timescale.
func tolerance(t ports.Timing) int {
	return max(1, t.DurationMs/2)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// wait reaps ffmpeg after its stdout has closed. A non-zero exit becomes an
// ErrIO error carrying ffmpeg's own message.
func (s *Stream) wait() error {
	s.exited = true
	<-s.scanned
	err := s.cmd.Wait()
	if err == nil {
		return nil
	}
	msg := s.pts.messages()
	s.logger.Warn("ffmpeg exited: %s", strings.TrimSpace(fmt.Sprintf("%v %s", err, msg)))
	return fmt.Errorf("%w: ffmpeg: %v %s", ports.ErrIO, err, msg)
}

// Close stops ffmpeg and closes the demuxer. It is safe to call repeatedly.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.finished = true
		s.gaps, s.pending, s.held = nil, nil, nil
		if !s.exited {
			s.exited = true
			if s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
			_ = s.stdout.Close()
			<-s.scanned
			_ = s.cmd.Wait()
		}
		s.closeErr = s.demux.Close()
	})
	return s.closeErr
}

// ptsQueue collects the framecrc listing ffmpeg writes to stderr. Lines that
// are not part of the listing are kept as ffmpeg's error output.
type ptsQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []int
	closed bool
	other  strings.Builder

	tbNum, tbDen int64
}

func newPtsQueue() *ptsQueue {
	q := &ptsQueue{tbNum: 1, tbDen: 1000}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *ptsQueue) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		q.line(sc.Text())
	}
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// line handles one line such as "#tb 0: 1/1000" or
// "0,         33,         33,       33,    12288, 0x5f3a21c4".
func (q *ptsQueue) line(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if strings.HasPrefix(text, "#") {
		var stream int
		var num, den int64
		if n, _ := fmt.Sscanf(text, "#tb %d: %d/%d", &stream, &num, &den); n == 3 && stream == 0 && den > 0 {
			q.tbNum, q.tbDen = num, den
		}
		return
	}

	fields := strings.Split(text, ",")
	if len(fields) == 6 && strings.TrimSpace(fields[0]) == "0" {
		var pts int64
		if _, err := fmt.Sscan(strings.TrimSpace(fields[2]), &pts); err == nil {
			q.items = append(q.items, int(pts*1000*q.tbNum/q.tbDen))
			q.cond.Broadcast()
			return
		}
	}
	q.other.WriteString(text)
	q.other.WriteByte('\n')
}

// pop blocks until the next pts is listed. It returns false once ffmpeg has
// closed stderr with nothing left.
func (q *ptsQueue) pop() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return 0, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

func (q *ptsQueue) messages() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return strings.TrimSpace(q.other.String())
}

var _ ports.FrameStream = (*Stream)(nil)
