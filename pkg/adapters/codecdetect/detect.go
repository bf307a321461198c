// Package codecdetect identifies media containers and maps container codec
// tags to the codecs the decoders understand.
package codecdetect

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/framesource/pkg/ports"
)

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP8     Codec = "vp8"
	CodecVP9     Codec = "vp9"
	CodecMJPEG   Codec = "mjpeg"
	CodecPNG     Codec = "png"
	CodecUnknown Codec = "unknown"
)

// Native reports whether the codec is decoded in-process without external tools.
func (c Codec) Native() bool {
	return c == CodecMJPEG || c == CodecPNG
}

// mp4TopLevel lists box types that may open an ISO BMFF file.
var mp4TopLevel = map[string]bool{
	"ftyp": true,
	"styp": true,
	"moov": true,
	"moof": true,
	"mdat": true,
	"free": true,
	"skip": true,
	"wide": true,
}

// DetectContainer sniffs the container format from the first bytes of r
// and rewinds r to the start.
func DetectContainer(r io.ReadSeeker) (ports.Container, error) {
	head := make([]byte, 8)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ports.ContainerUnknown, fmt.Errorf("read header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return ports.ContainerUnknown, fmt.Errorf("seek: %w", err)
	}
	return DetectFromBytes(head[:n]), nil
}

// DetectFromBytes sniffs the container format from a file prefix.
func DetectFromBytes(head []byte) ports.Container {
	if len(head) >= 4 && string(head[:4]) == "DKIF" {
		return ports.ContainerIVF
	}
	if len(head) >= 8 && mp4TopLevel[string(head[4:8])] {
		return ports.ContainerMP4
	}
	return ports.ContainerUnknown
}

// FromSampleEntry maps an MP4 visual sample entry type to a codec.
func FromSampleEntry(entry string) Codec {
	switch entry {
	case "avc1", "avc3":
		return CodecH264
	case "hvc1", "hev1":
		return CodecHEVC
	case "av01":
		return CodecAV1
	case "vp08":
		return CodecVP8
	case "vp09":
		return CodecVP9
	case "jpeg", "mjpa", "mjp2":
		return CodecMJPEG
	case "png ":
		return CodecPNG
	default:
		return CodecUnknown
	}
}

// FromFourCC maps an IVF FourCC to a codec.
func FromFourCC(fourcc string) Codec {
	switch fourcc {
	case "VP80":
		return CodecVP8
	case "VP90":
		return CodecVP9
	case "AV01":
		return CodecAV1
	case "H264", "avc1":
		return CodecH264
	case "MJPG":
		return CodecMJPEG
	default:
		return CodecUnknown
	}
}

// FromStreamInfo maps the codec tag of a stream to a codec.
func FromStreamInfo(info ports.StreamInfo) Codec {
	switch info.Container {
	case ports.ContainerIVF:
		return FromFourCC(info.Codec)
	case ports.ContainerMP4:
		return FromSampleEntry(info.Codec)
	default:
		return CodecUnknown
	}
}
