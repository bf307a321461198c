// Package framesource opens a video file and delivers its decoded frames one
// at a time to a pulling caller.
//
// A Source is used from one reader goroutine. Close may be called from any
// goroutine; Read and Close are serialized and a closed Source fails every
// further Read with ErrClosed.
package framesource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/user/framesource/pkg/adapters/codecdetect"
	"github.com/user/framesource/pkg/adapters/ivfdemux"
	"github.com/user/framesource/pkg/adapters/mp4demux"
	"github.com/user/framesource/pkg/adapters/smartdecoder"
	"github.com/user/framesource/pkg/ports"
)

// Errors reported by Open and Read. Match them with errors.Is.
var (
	ErrResourceNotFound  = ports.ErrResourceNotFound
	ErrUnsupportedFormat = ports.ErrUnsupportedFormat
	ErrIO                = ports.ErrIO
	ErrDecode            = ports.ErrDecode
	ErrClosed            = ports.ErrClosed
)

// DecodeError reports a frame that could not be decoded.
type DecodeError = ports.DecodeError

// Stats counts what a session has done so far.
type Stats struct {
	Delivered int
	Skipped   int
}

// Source is an open decoding session over one video file.
type Source struct {
	path    string
	logger  ports.Logger
	mode    DecodePolicy
	info    ports.StreamInfo
	backend smartdecoder.Info

	mu        sync.Mutex
	stream    ports.FrameStream
	closed    bool
	ended     bool
	delivered int
	skipped   int
	lastTs    int
}

// Open starts a decoding session on path. Nothing opened along the way is
// left open when Open fails.
func Open(path string, opts Options) (*Source, error) {
	opts = opts.withDefaults()
	log := opts.Logger.WithComponent("framesource")
	log.Debug("Opening %s", path)

	f, err := opts.FileSystem.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}

	demux, err := newDemuxer(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	stream, backend, err := smartdecoder.NewStream(path, demux, smartdecoder.Options{
		Backend:    opts.Backend,
		FFmpegPath: opts.FFmpegPath,
		Logger:     opts.Logger.WithComponent("decoder"),
	})
	if err != nil {
		demux.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Source{
		path:    path,
		logger:  log,
		mode:    opts.Policy,
		info:    stream.Info(),
		backend: backend,
		stream:  stream,
	}
	log.Info("Opened %s: %s/%s %dx%d, %d frames", path, s.info.Container, s.info.Codec, s.info.Width, s.info.Height, s.info.FrameCount)
	log.Debug("Using %s backend for codec %s", backend.Backend, backend.Codec)
	return s, nil
}

// newDemuxer sniffs the container and hands f to the matching demuxer. On
// error f is still owned by the caller.
func newDemuxer(f ports.File) (ports.Demuxer, error) {
	container, err := codecdetect.DetectContainer(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	switch container {
	case ports.ContainerMP4:
		return mp4demux.New(f)
	case ports.ContainerIVF:
		return ivfdemux.New(f)
	default:
		return nil, fmt.Errorf("%w: unrecognized container", ErrUnsupportedFormat)
	}
}

// Read returns the next frame. At end of stream it returns ok == false with
// a nil error, on this and every later call. A frame that fails to decode is
// skipped or returned as a *DecodeError depending on the decode policy.
func (s *Source) Read() (frame ports.VideoFrame, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.VideoFrame{}, false, ErrClosed
	}
	if s.ended {
		return ports.VideoFrame{}, false, nil
	}

	for {
		frame, err = s.stream.Next()
		if err == io.EOF {
			s.ended = true
			s.logger.Info("End of stream after %d frames", s.delivered)
			return ports.VideoFrame{}, false, nil
		}

		var decErr *DecodeError
		if errors.As(err, &decErr) {
			if s.mode == DecodeFailFast {
				return ports.VideoFrame{}, false, err
			}
			s.skipped++
			s.logger.Warn("Skipping undecodable frame %d at %d ms: %s", decErr.Number, decErr.TimestampMs, decErr.Err)
			continue
		}
		if err != nil {
			// The stream cannot be resumed after a read failure.
			s.ended = true
			if !errors.Is(err, ErrIO) {
				err = fmt.Errorf("%w: %v", ErrIO, err)
			}
			return ports.VideoFrame{}, false, err
		}

		if frame.TimestampMs < s.lastTs {
			s.logger.Warn("Timestamp %d ms went backwards, using %d ms", frame.TimestampMs, s.lastTs)
			frame.TimestampMs = s.lastTs
		}
		frame.Index = s.delivered
		s.delivered++
		s.lastTs = frame.TimestampMs
		return frame, true, nil
	}
}

// Close ends the session and releases the decoder and the file. Calling it
// again is a no-op.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.stream.Close()
	s.stream = nil
	s.logger.Debug("Session closed")
	return err
}

// Path returns the path the session was opened with.
func (s *Source) Path() string {
	return s.path
}

// Info describes the video track being decoded.
func (s *Source) Info() ports.StreamInfo {
	return s.info
}

// Backend reports the codec and the decoder backend in use.
func (s *Source) Backend() smartdecoder.Info {
	return s.backend
}

// Position returns the timestamp in milliseconds of the last delivered
// frame, 0 before the first one.
func (s *Source) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTs
}

// Stats returns delivery counters.
func (s *Source) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Delivered: s.delivered, Skipped: s.skipped}
}

// Ended reports whether end of stream has been reached.
func (s *Source) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
