package framesource

import (
	"fmt"

	"github.com/user/framesource/pkg/adapters/logger"
	"github.com/user/framesource/pkg/adapters/osfilesystem"
	"github.com/user/framesource/pkg/adapters/smartdecoder"
	"github.com/user/framesource/pkg/ports"
)

// DecodePolicy selects what Read does with a frame that cannot be decoded.
type DecodePolicy int

const (
	// DecodeSkip drops the frame, logs a warning and reads on.
	DecodeSkip DecodePolicy = iota
	// DecodeFailFast returns a *DecodeError from Read. The session stays
	// open and the next Read continues after the bad frame.
	DecodeFailFast
)

func (p DecodePolicy) String() string {
	switch p {
	case DecodeSkip:
		return "skip"
	case DecodeFailFast:
		return "fail"
	default:
		return fmt.Sprintf("DecodePolicy(%d)", int(p))
	}
}

// ParseDecodePolicy parses "skip" or "fail". The empty string means skip.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch s {
	case "", "skip":
		return DecodeSkip, nil
	case "fail", "fail-fast":
		return DecodeFailFast, nil
	default:
		return DecodeSkip, fmt.Errorf("unknown decode policy %q (want skip or fail)", s)
	}
}

// Options configures Open. The zero value is usable.
type Options struct {
	Policy DecodePolicy

	// Backend selects the decoder backend; empty means auto.
	Backend smartdecoder.Backend

	// FFmpegPath overrides the ffmpeg lookup for the ffmpeg backend.
	FFmpegPath string

	// FileSystem defaults to the OS file system.
	FileSystem ports.FileSystem

	// Logger defaults to a no-op logger.
	Logger ports.Logger
}

func (o Options) withDefaults() Options {
	if o.FileSystem == nil {
		o.FileSystem = osfilesystem.New()
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoop()
	}
	if o.Backend == "" {
		o.Backend = smartdecoder.BackendAuto
	}
	return o
}
