package framesource

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/framesource/pkg/adapters/smartdecoder"
	"github.com/user/framesource/pkg/mediatest"
	"github.com/user/framesource/pkg/mocks"
	"github.com/user/framesource/pkg/ports"
)

func jpegMP4(t *testing.T, timestamps ...int) []byte {
	t.Helper()
	samples, err := mediatest.JPEGClip(64, 48, timestamps...)
	require.NoError(t, err)
	data, err := mediatest.BuildMP4("jpeg", 64, 48, samples)
	require.NoError(t, err)
	return data
}

func openMem(t *testing.T, data []byte, opts Options) (*Source, *mocks.FileSystem) {
	t.Helper()
	fsys := mocks.NewFileSystem()
	require.NoError(t, fsys.WriteFile("clip", data))
	opts.FileSystem = fsys
	s, err := Open("clip", opts)
	require.NoError(t, err)
	return s, fsys
}

func TestReadThreeFramesThenEnd(t *testing.T) {
	s, fsys := openMem(t, jpegMP4(t, 0, 33, 66), Options{})

	info := s.Info()
	assert.Equal(t, ports.ContainerMP4, info.Container)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 48, info.Height)
	assert.Equal(t, 3, info.FrameCount)
	assert.Equal(t, "clip", s.Path())
	assert.Equal(t, smartdecoder.BackendNative, s.Backend().Backend)

	for i, want := range []int{0, 33, 66} {
		frame, ok, err := s.Read()
		require.NoError(t, err)
		require.True(t, ok, "frame %d", i)
		assert.Equal(t, want, frame.TimestampMs)
		assert.Equal(t, i, frame.Index)
		assert.Equal(t, 64, frame.Image.Bounds().Dx())
		assert.Equal(t, 48, frame.Image.Bounds().Dy())
		assert.Len(t, frame.Image.Pix, 64*48*4)
		assert.Equal(t, want, s.Position())
	}

	for i := 0; i < 2; i++ {
		_, ok, err := s.Read()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.True(t, s.Ended())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, fsys.OpenHandles())

	_, ok, err := s.Read()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFramesAreDistinct(t *testing.T) {
	s, _ := openMem(t, jpegMP4(t, 0, 40), Options{})
	defer s.Close()

	first, ok, err := s.Read()
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := s.Read()
	require.NoError(t, err)
	require.True(t, ok)

	assert.NotSame(t, first.Image, second.Image)
	assert.NotEqual(t, first.Image.Pix, second.Image.Pix)
}

func TestCloseIsIdempotent(t *testing.T) {
	s, fsys := openMem(t, jpegMP4(t, 0), Options{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, fsys.OpenHandles())
}

func TestCloseBeforeEnd(t *testing.T) {
	s, fsys := openMem(t, jpegMP4(t, 0, 33, 66), Options{})

	_, ok, err := s.Read()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, fsys.OpenHandles())
	_, _, err = s.Read()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenMissingFile(t *testing.T) {
	fsys := mocks.NewFileSystem()
	_, err := Open("nope.mp4", Options{FileSystem: fsys})
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.Equal(t, 0, fsys.OpenHandles())
}

func TestOpenMissingFileOnDisk(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mp4"), Options{})
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestOpenFailureIsIO(t *testing.T) {
	fsys := mocks.NewFileSystem()
	fsys.OpenFunc = func(path string) (ports.File, error) {
		return nil, os.ErrPermission
	}
	_, err := Open("locked.mp4", Options{FileSystem: fsys})
	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrResourceNotFound)
}

func TestOpenUnknownContainer(t *testing.T) {
	fsys := mocks.NewFileSystem()
	require.NoError(t, fsys.WriteFile("notes.txt", []byte("this is not a video file")))

	_, err := Open("notes.txt", Options{FileSystem: fsys})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, 1, fsys.OpenCount())
	assert.Equal(t, 0, fsys.OpenHandles())
}

func TestOpenTruncatedMP4ReleasesFile(t *testing.T) {
	data := jpegMP4(t, 0, 33)
	fsys := mocks.NewFileSystem()
	require.NoError(t, fsys.WriteFile("cut.mp4", data[:40]))

	_, err := Open("cut.mp4", Options{FileSystem: fsys})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, 0, fsys.OpenHandles())
}

func TestOpenUnsupportedCodecNativeOnly(t *testing.T) {
	data := mediatest.BuildIVF("VP80", 16, 16, []mediatest.Sample{{Data: []byte{1, 2, 3}}})
	fsys := mocks.NewFileSystem()
	require.NoError(t, fsys.WriteFile("clip.ivf", data))

	_, err := Open("clip.ivf", Options{FileSystem: fsys, Backend: smartdecoder.BackendNative})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, 0, fsys.OpenHandles())
}

func corruptIVF(t *testing.T) []byte {
	t.Helper()
	good, err := mediatest.JPEGClip(16, 16, 0, 40)
	require.NoError(t, err)
	return mediatest.BuildIVF("MJPG", 16, 16, []mediatest.Sample{
		{Data: good[0].Data, TimestampMs: 0},
		{Data: []byte("not a jpeg"), TimestampMs: 40},
		{Data: good[1].Data, TimestampMs: 80},
	})
}

func TestCorruptFrameSkipped(t *testing.T) {
	log := &mocks.Logger{}
	s, _ := openMem(t, corruptIVF(t), Options{Logger: log})
	defer s.Close()

	var got []int
	for {
		frame, ok, err := s.Read()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, frame.TimestampMs)
	}

	assert.Equal(t, []int{0, 80}, got)
	assert.Equal(t, Stats{Delivered: 2, Skipped: 1}, s.Stats())
	assert.True(t, log.Contains(ports.LevelWarn, "Skipping undecodable frame 2"))
}

func TestCorruptFrameFailFast(t *testing.T) {
	s, _ := openMem(t, corruptIVF(t), Options{Policy: DecodeFailFast})
	defer s.Close()

	frame, ok, err := s.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, frame.TimestampMs)

	_, ok, err = s.Read()
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrDecode)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 2, decErr.Number)
	assert.Equal(t, 40, decErr.TimestampMs)

	// The session stays usable past the bad frame.
	frame, ok, err = s.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 80, frame.TimestampMs)
	assert.Equal(t, 1, frame.Index)

	_, ok, err = s.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

// ffmpegClip writes a 4x2 avc1 clip at 0/33/66 ms and a shell script that
// stands in for ffmpeg.
func ffmpegClip(t *testing.T, script string) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir := t.TempDir()
	samples, err := mediatest.JPEGClip(4, 2, 0, 33, 66)
	require.NoError(t, err)
	data, err := mediatest.BuildMP4("avc1", 4, 2, samples)
	require.NoError(t, err)
	clip := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(clip, data, 0644))
	ffmpeg := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(ffmpeg, []byte("#!/bin/sh\n"+script), 0755))
	return clip, ffmpeg
}

const ffmpegSkipsMiddleFrame = `echo "#tb 0: 1/1000" >&2
head -c 32 /dev/zero
echo "0,          0,          0,       33,       32, 0x00000000" >&2
head -c 32 /dev/zero
echo "0,         66,         66,       33,       32, 0x00000000" >&2
`

func TestFFmpegFailureIsNotEndOfStream(t *testing.T) {
	clip, ffmpeg := ffmpegClip(t, `echo "Invalid data found when processing input" >&2
exit 1
`)
	s, err := Open(clip, Options{Backend: smartdecoder.BackendFFmpeg, FFmpegPath: ffmpeg})
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Read()
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "Invalid data")
	assert.True(t, s.Ended())
}

func TestFFmpegDroppedFrameFailFast(t *testing.T) {
	clip, ffmpeg := ffmpegClip(t, ffmpegSkipsMiddleFrame)
	s, err := Open(clip, Options{Backend: smartdecoder.BackendFFmpeg, FFmpegPath: ffmpeg, Policy: DecodeFailFast})
	require.NoError(t, err)
	defer s.Close()

	frame, ok, err := s.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, frame.TimestampMs)

	_, ok, err = s.Read()
	assert.False(t, ok)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 2, decErr.Number)
	assert.Equal(t, 33, decErr.TimestampMs)

	frame, ok, err = s.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 66, frame.TimestampMs)
	assert.Equal(t, 1, frame.Index)

	_, ok, err = s.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFFmpegDroppedFrameSkipped(t *testing.T) {
	clip, ffmpeg := ffmpegClip(t, ffmpegSkipsMiddleFrame)
	log := &mocks.Logger{}
	s, err := Open(clip, Options{Backend: smartdecoder.BackendFFmpeg, FFmpegPath: ffmpeg, Logger: log})
	require.NoError(t, err)
	defer s.Close()

	var timestamps []int
	for {
		frame, ok, err := s.Read()
		require.NoError(t, err)
		if !ok {
			break
		}
		timestamps = append(timestamps, frame.TimestampMs)
	}
	assert.Equal(t, []int{0, 66}, timestamps)
	assert.Equal(t, Stats{Delivered: 2, Skipped: 1}, s.Stats())
	assert.True(t, log.Contains(ports.LevelWarn, "Skipping undecodable frame 2"))
}

func TestReadPNGWithResize(t *testing.T) {
	small, err := mediatest.EncodePNG(mediatest.SolidImage(8, 8, color.RGBA{255, 0, 0, 255}))
	require.NoError(t, err)
	full, err := mediatest.EncodePNG(mediatest.SolidImage(16, 16, color.RGBA{0, 0, 255, 255}))
	require.NoError(t, err)

	data, err := mediatest.BuildMP4("png ", 16, 16, []mediatest.Sample{
		{Data: full, TimestampMs: 0},
		{Data: small, TimestampMs: 50},
	})
	require.NoError(t, err)
	s, _ := openMem(t, data, Options{})
	defer s.Close()

	assert.Equal(t, "png ", s.Info().Codec)
	for _, want := range []color.RGBA{{0, 0, 255, 255}, {255, 0, 0, 255}} {
		frame, ok, err := s.Read()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 16, frame.Image.Bounds().Dx())
		got := frame.Image.RGBAAt(8, 8)
		assert.InDelta(t, want.R, got.R, 2)
		assert.InDelta(t, want.G, got.G, 2)
		assert.InDelta(t, want.B, got.B, 2)
	}
}

func TestBackwardTimestampIsClamped(t *testing.T) {
	samples, err := mediatest.JPEGClip(16, 16, 0, 100, 50)
	require.NoError(t, err)
	s, _ := openMem(t, mediatest.BuildIVF("MJPG", 16, 16, samples), Options{})
	defer s.Close()

	var got []int
	for {
		frame, ok, err := s.Read()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, frame.TimestampMs)
	}
	assert.Equal(t, []int{0, 100, 100}, got)
}

func TestConcurrentCloseAndRead(t *testing.T) {
	timestamps := make([]int, 30)
	for i := range timestamps {
		timestamps[i] = i * 33
	}
	s, fsys := openMem(t, jpegMP4(t, timestamps...), Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			_, ok, err := s.Read()
			if err != nil {
				if !errors.Is(err, ErrClosed) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !ok {
				return
			}
		}
	}()

	require.NoError(t, s.Close())
	wg.Wait()
	assert.Equal(t, 0, fsys.OpenHandles())
}

func TestParseDecodePolicy(t *testing.T) {
	p, err := ParseDecodePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, DecodeFailFast, p)

	p, err = ParseDecodePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DecodeSkip, p)

	_, err = ParseDecodePolicy("retry")
	assert.Error(t, err)
}
