// Package smartdecoder picks a decoding backend for the codec of a demuxed
// video track and wraps it as a ports.FrameStream.
package smartdecoder

import (
	"errors"
	"fmt"

	"github.com/user/framesource/pkg/adapters/av1decoder"
	"github.com/user/framesource/pkg/adapters/codecdetect"
	"github.com/user/framesource/pkg/adapters/ffmpegdecoder"
	"github.com/user/framesource/pkg/adapters/imagedecoder"
	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/ports"
)

// Codec represents the video codec type (re-exported from codecdetect).
type Codec = codecdetect.Codec

// Backend names a decoding backend.
type Backend string

const (
	// BackendAuto decodes natively when possible and falls back to ffmpeg.
	BackendAuto Backend = "auto"
	// BackendNative restricts decoding to in-process decoders.
	BackendNative Backend = "native"
	// BackendFFmpeg decodes every codec through an ffmpeg process.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom is reported when AV1 is decoded by the cgo libaom binding.
	BackendLibaom Backend = "libaom"
)

// ParseBackend validates a backend name. The empty string means auto.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendNative, BackendFFmpeg:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("unknown decoder backend %q (want auto, native or ffmpeg)", s)
	}
}

// Info contains information about the selected decoder.
type Info struct {
	// Codec is the detected codec.
	Codec Codec
	// Backend is the decoding backend being used.
	Backend Backend
}

// Options configures backend selection.
type Options struct {
	Backend Backend
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	Logger     ports.Logger
}

// NewStream selects a backend for the track described by demux. path must
// name the same file; the ffmpeg backend reads it directly.
//
// On success the returned stream owns demux. On failure demux is left open
// for the caller to close.
//
// The selection flow:
//   - MJPEG and PNG: in-process image decoder
//   - AV1: libaom when built with the aom tag
//   - anything else (or BackendFFmpeg): ffmpeg process
func NewStream(path string, demux ports.Demuxer, opts Options) (ports.FrameStream, Info, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendAuto
	}

	codec := codecdetect.FromStreamInfo(demux.Info())
	info := Info{Codec: codec}

	if backend != BackendFFmpeg {
		dec, used, err := nativeDecoder(codec)
		if err == nil {
			info.Backend = used
			return NewSampleStream(demux, dec, log), info, nil
		}
		if backend == BackendNative {
			return nil, info, err
		}
	}

	s, err := ffmpegdecoder.Start(path, demux, ffmpegdecoder.Options{
		FFmpegPath: opts.FFmpegPath,
		Logger:     log,
	})
	if err != nil {
		if errors.Is(err, ffmpegdecoder.ErrFFmpegNotFound) || errors.Is(err, ports.ErrUnsupportedFormat) {
			return nil, info, fmt.Errorf("%w: no decoder for codec %s (%s)", ports.ErrUnsupportedFormat, describe(codec, demux.Info()), err)
		}
		return nil, info, err
	}
	info.Backend = BackendFFmpeg
	return s, info, nil
}

func nativeDecoder(codec Codec) (ports.SampleDecoder, Backend, error) {
	switch {
	case codec.Native():
		d, err := imagedecoder.New(codec)
		if err != nil {
			return nil, "", err
		}
		return d, BackendNative, nil
	case codec == codecdetect.CodecAV1 && av1decoder.Available():
		d, err := av1decoder.New()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ports.ErrUnsupportedFormat, err)
		}
		return d, BackendLibaom, nil
	default:
		return nil, "", fmt.Errorf("%w: no in-process decoder for codec %s", ports.ErrUnsupportedFormat, codec)
	}
}

func describe(codec Codec, info ports.StreamInfo) string {
	if codec == codecdetect.CodecUnknown && info.Codec != "" {
		return fmt.Sprintf("%q", info.Codec)
	}
	return string(codec)
}

// IsFFmpegAvailable reports whether the ffmpeg backend can be used.
func IsFFmpegAvailable(custom string) bool {
	return ffmpegdecoder.IsAvailable(custom)
}
