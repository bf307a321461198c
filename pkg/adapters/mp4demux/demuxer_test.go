package mp4demux

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/user/framesource/pkg/mediatest"
	"github.com/user/framesource/pkg/ports"
)

func buildClip(t *testing.T, timestamps ...int) []byte {
	t.Helper()
	samples, err := mediatest.JPEGClip(64, 48, timestamps...)
	if err != nil {
		t.Fatalf("JPEGClip failed: %v", err)
	}
	data, err := mediatest.BuildMP4("jpeg", 64, 48, samples)
	if err != nil {
		t.Fatalf("BuildMP4 failed: %v", err)
	}
	return data
}

func TestDemuxerFragmented(t *testing.T) {
	d, err := New(bytes.NewReader(buildClip(t, 0, 33, 66)))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	info := d.Info()
	if info.Container != ports.ContainerMP4 {
		t.Errorf("expected mp4 container, got %q", info.Container)
	}
	if info.Codec != "jpeg" {
		t.Errorf("expected jpeg sample entry, got %q", info.Codec)
	}
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", info.Width, info.Height)
	}
	if info.FrameCount != 3 {
		t.Errorf("expected 3 frames, got %d", info.FrameCount)
	}
	if info.DurationMs != 99 {
		t.Errorf("expected 99 ms duration, got %d", info.DurationMs)
	}

	want := []int{0, 33, 66}
	for i, ts := range want {
		s, err := d.NextSample()
		if err != nil {
			t.Fatalf("NextSample %d failed: %v", i, err)
		}
		if s.TimestampMs != ts {
			t.Errorf("sample %d: expected %d ms, got %d", i, ts, s.TimestampMs)
		}
		if s.Number != i+1 {
			t.Errorf("sample %d: expected number %d, got %d", i, i+1, s.Number)
		}
		if len(s.Data) == 0 {
			t.Errorf("sample %d has no data", i)
		}
		if !s.IsKeyframe {
			t.Errorf("sample %d should be a keyframe", i)
		}
	}

	for i := 0; i < 2; i++ {
		if _, err := d.NextSample(); err != io.EOF {
			t.Fatalf("expected io.EOF, got %v", err)
		}
	}
}

func TestDemuxerRejectsGarbage(t *testing.T) {
	_, err := New(bytes.NewReader([]byte("\x00\x00\x00\x10ftypgarbage-garbage")))
	if !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

type closeCounter struct {
	*bytes.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestDemuxerCloseClosesReader(t *testing.T) {
	r := &closeCounter{Reader: bytes.NewReader(buildClip(t, 0, 40))}
	d, err := New(r)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if r.closed != 1 {
		t.Errorf("expected reader closed once, got %d", r.closed)
	}
}

func buildProgressive(t *testing.T, samples []mediatest.Sample, opts mediatest.ProgressiveOptions) []byte {
	t.Helper()
	data, err := mediatest.BuildProgressiveMP4("jpeg", 64, 48, samples, opts)
	if err != nil {
		t.Fatalf("BuildProgressiveMP4 failed: %v", err)
	}
	return data
}

func TestDemuxerProgressive(t *testing.T) {
	tests := []struct {
		name string
		opts mediatest.ProgressiveOptions
	}{
		{"one sample per chunk", mediatest.ProgressiveOptions{}},
		{"two samples per chunk", mediatest.ProgressiveOptions{SamplesPerChunk: 2, Keyframes: []uint32{1, 3}}},
		{"co64", mediatest.ProgressiveOptions{SamplesPerChunk: 3, Co64: true, Keyframes: []uint32{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := mediatest.JPEGClip(64, 48, 0, 33, 66)
			if err != nil {
				t.Fatalf("JPEGClip failed: %v", err)
			}
			d, err := New(bytes.NewReader(buildProgressive(t, samples, tt.opts)))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer d.Close()

			info := d.Info()
			if info.Codec != "jpeg" || info.FrameCount != 3 || info.DurationMs != 99 {
				t.Errorf("unexpected info %+v", info)
			}

			for i, want := range []int{0, 33, 66} {
				s, err := d.NextSample()
				if err != nil {
					t.Fatalf("NextSample %d failed: %v", i, err)
				}
				if s.TimestampMs != want {
					t.Errorf("sample %d: expected %d ms, got %d", i, want, s.TimestampMs)
				}
				if !bytes.Equal(s.Data, samples[i].Data) {
					t.Errorf("sample %d: payload does not match what was written", i)
				}
				wantKey := true
				if len(tt.opts.Keyframes) > 0 {
					wantKey = false
					for _, k := range tt.opts.Keyframes {
						if int(k) == i+1 {
							wantKey = true
						}
					}
				}
				if s.IsKeyframe != wantKey {
					t.Errorf("sample %d: expected keyframe=%v", i, wantKey)
				}
			}
			if _, err := d.NextSample(); err != io.EOF {
				t.Fatalf("expected io.EOF, got %v", err)
			}
		})
	}
}

func TestDemuxerCompositionOffsetsAndEditList(t *testing.T) {
	// Decode order A, C, B with display order A, B, C; the edit list removes
	// the initial composition delay.
	samples, err := mediatest.JPEGClip(64, 48, 0, 33, 66)
	if err != nil {
		t.Fatalf("JPEGClip failed: %v", err)
	}
	samples[0].CompositionOffsetMs = 33
	samples[1].CompositionOffsetMs = 66
	samples[2].CompositionOffsetMs = 0

	d, err := New(bytes.NewReader(buildProgressive(t, samples, mediatest.ProgressiveOptions{EditMediaTimeMs: 33})))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	want := []int{0, 66, 33}
	timeline := d.Timeline()
	if len(timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(timeline))
	}
	for i, ts := range want {
		if timeline[i].TimestampMs != ts || timeline[i].Number != i+1 || timeline[i].DurationMs != 33 {
			t.Errorf("timeline %d: unexpected %+v", i, timeline[i])
		}
		s, err := d.NextSample()
		if err != nil {
			t.Fatalf("NextSample %d failed: %v", i, err)
		}
		if s.TimestampMs != ts {
			t.Errorf("sample %d: expected %d ms, got %d", i, ts, s.TimestampMs)
		}
	}
	if got := d.Info().DurationMs; got != 99 {
		t.Errorf("expected 99 ms duration, got %d", got)
	}
}
