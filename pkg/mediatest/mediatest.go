// Package mediatest builds small media files for tests.
package mediatest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Sample is one encoded picture placed at a timestamp. TimestampMs is the
// decode time; CompositionOffsetMs is only written by BuildProgressiveMP4.
type Sample struct {
	Data                []byte
	TimestampMs         int
	DurationMs          int
	CompositionOffsetMs int
}

// TestImage creates a gradient image that differs per frame number.
func TestImage(width, height, frameNum int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x*255/width + frameNum*10) % 256)
			g := uint8((y*255/height + frameNum*5) % 256)
			b := uint8((x + y + frameNum*3) % 256)
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// SolidImage creates an image filled with one color.
func SolidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// EncodeJPEG encodes img at high quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// JPEGClip returns one JPEG sample per timestamp. Durations run to the next
// timestamp; the last sample reuses the previous duration.
func JPEGClip(width, height int, timestampsMs ...int) ([]Sample, error) {
	samples := make([]Sample, 0, len(timestampsMs))
	for i, ts := range timestampsMs {
		data, err := EncodeJPEG(TestImage(width, height, i))
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{Data: data, TimestampMs: ts})
	}
	fillDurations(samples)
	return samples, nil
}

func fillDurations(samples []Sample) {
	for i := range samples {
		if samples[i].DurationMs > 0 {
			continue
		}
		switch {
		case i+1 < len(samples):
			samples[i].DurationMs = samples[i+1].TimestampMs - samples[i].TimestampMs
		case i > 0:
			samples[i].DurationMs = samples[i-1].DurationMs
		default:
			samples[i].DurationMs = 33
		}
	}
}

// BuildMP4 writes a fragmented MP4 with one video track using a millisecond
// timescale. sampleEntry is the four-character sample entry type, e.g.
// "jpeg" or "png ".
func BuildMP4(sampleEntry string, width, height int, samples []Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	fillDurations(samples)

	const timescale = 1000
	const trackID = 1

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")
	trak := init.Moov.Trak

	entry := mp4.CreateVisualSampleEntryBox(sampleEntry, uint16(width), uint16(height), nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)
	trak.Tkhd.Width = mp4.Fixed32(uint32(width) << 16)
	trak.Tkhd.Height = mp4.Fixed32(uint32(height) << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}
	for _, s := range samples {
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: mp4.SyncSampleFlags,
				Size:  uint32(len(s.Data)),
				Dur:   uint32(s.DurationMs),
			},
			DecodeTime: uint64(s.TimestampMs),
			Data:       s.Data,
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

// ProgressiveOptions controls the sample table BuildProgressiveMP4 writes.
type ProgressiveOptions struct {
	// SamplesPerChunk groups samples into chunks; 0 means one per chunk.
	SamplesPerChunk int
	// Co64 writes 64-bit chunk offsets instead of stco.
	Co64 bool
	// Keyframes lists 1-based sync sample numbers. Empty omits stss, which
	// makes every sample a sync sample.
	Keyframes []uint32
	// EditMediaTimeMs adds an edit list starting presentation at this media
	// time. Zero writes no edit list.
	EditMediaTimeMs int
}

// BuildProgressiveMP4 writes a non-fragmented MP4 (ftyp, moov, mdat) with one
// video track using a millisecond timescale. Samples are laid out in mdat in
// order and addressed through stsc and stco/co64.
func BuildProgressiveMP4(sampleEntry string, width, height int, samples []Sample, opts ProgressiveOptions) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	fillDurations(samples)

	perChunk := opts.SamplesPerChunk
	if perChunk <= 0 {
		perChunk = 1
	}

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(1000, "video", "en")
	trak := init.Moov.Trak
	trak.Tkhd.Width = mp4.Fixed32(uint32(width) << 16)
	trak.Tkhd.Height = mp4.Fixed32(uint32(height) << 16)

	oldStbl := trak.Mdia.Minf.Stbl
	oldStbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox(sampleEntry, uint16(width), uint16(height), nil))

	stts := &mp4.SttsBox{}
	stsz := &mp4.StszBox{SampleNumber: uint32(len(samples))}
	var counts []uint32
	var offsets []int32
	hasCto := false
	var payload bytes.Buffer
	for _, smp := range samples {
		stts.SampleCount = append(stts.SampleCount, 1)
		stts.SampleTimeDelta = append(stts.SampleTimeDelta, uint32(smp.DurationMs))
		stsz.SampleSize = append(stsz.SampleSize, uint32(len(smp.Data)))
		counts = append(counts, 1)
		offsets = append(offsets, int32(smp.CompositionOffsetMs))
		if smp.CompositionOffsetMs != 0 {
			hasCto = true
		}
		payload.Write(smp.Data)
	}

	stsc := &mp4.StscBox{}
	fullChunks := len(samples) / perChunk
	rest := len(samples) % perChunk
	if fullChunks > 0 {
		if err := stsc.AddEntry(1, uint32(perChunk), 1); err != nil {
			return nil, fmt.Errorf("stsc: %w", err)
		}
	}
	if rest > 0 {
		if err := stsc.AddEntry(uint32(fullChunks+1), uint32(rest), 1); err != nil {
			return nil, fmt.Errorf("stsc: %w", err)
		}
	}
	nChunks := fullChunks
	if rest > 0 {
		nChunks++
	}

	stbl := &mp4.StblBox{}
	stbl.AddChild(oldStbl.Stsd)
	stbl.AddChild(stts)
	if hasCto {
		ctts := &mp4.CttsBox{}
		if err := ctts.AddSampleCountsAndOffset(counts, offsets); err != nil {
			return nil, fmt.Errorf("ctts: %w", err)
		}
		stbl.AddChild(ctts)
	}
	if len(opts.Keyframes) > 0 {
		stbl.AddChild(&mp4.StssBox{SampleNumber: opts.Keyframes})
	}
	stbl.AddChild(stsc)
	stbl.AddChild(stsz)
	stco := &mp4.StcoBox{ChunkOffset: make([]uint32, nChunks)}
	co64 := &mp4.Co64Box{ChunkOffset: make([]uint64, nChunks)}
	if opts.Co64 {
		stbl.AddChild(co64)
	} else {
		stbl.AddChild(stco)
	}

	minf := trak.Mdia.Minf
	for i, child := range minf.Children {
		if child == mp4.Box(oldStbl) {
			minf.Children[i] = stbl
		}
	}
	minf.Stbl = stbl

	if opts.EditMediaTimeMs > 0 {
		var total uint64
		for _, smp := range samples {
			total += uint64(smp.DurationMs)
		}
		edts := &mp4.EdtsBox{}
		edts.AddChild(&mp4.ElstBox{Entries: []mp4.ElstEntry{{
			SegmentDuration:  total - uint64(opts.EditMediaTimeMs),
			MediaTime:        int64(opts.EditMediaTimeMs),
			MediaRateInteger: 1,
		}}})
		trak.AddChild(edts)
	}

	// Progressive files carry no mvex.
	moov := &mp4.MoovBox{}
	for _, child := range init.Moov.Children {
		if child.Type() != "mvex" {
			moov.AddChild(child)
		}
	}

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	base := ftyp.Size() + moov.Size() + 8
	offset := base
	for i, smp := range samples {
		if i%perChunk == 0 {
			chunk := i / perChunk
			stco.ChunkOffset[chunk] = uint32(offset)
			co64.ChunkOffset[chunk] = offset
		}
		offset += uint64(len(smp.Data))
	}

	var buf bytes.Buffer
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	mdatHeader := make([]byte, 8)
	binary.BigEndian.PutUint32(mdatHeader[0:4], uint32(8+payload.Len()))
	copy(mdatHeader[4:8], "mdat")
	buf.Write(mdatHeader)
	buf.Write(payload.Bytes())
	return buf.Bytes(), nil
}

// BuildIVF writes an IVF file with a millisecond timebase.
func BuildIVF(fourcc string, width, height int, samples []Sample) []byte {
	var buf bytes.Buffer
	header := make([]byte, 32)
	copy(header[0:4], "DKIF")
	binary.LittleEndian.PutUint16(header[4:6], 0)
	binary.LittleEndian.PutUint16(header[6:8], 32)
	copy(header[8:12], fourcc)
	binary.LittleEndian.PutUint16(header[12:14], uint16(width))
	binary.LittleEndian.PutUint16(header[14:16], uint16(height))
	binary.LittleEndian.PutUint32(header[16:20], 1000) // rate
	binary.LittleEndian.PutUint32(header[20:24], 1)    // scale
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(samples)))
	buf.Write(header)

	for _, s := range samples {
		frameHeader := make([]byte, 12)
		binary.LittleEndian.PutUint32(frameHeader[0:4], uint32(len(s.Data)))
		binary.LittleEndian.PutUint64(frameHeader[4:12], uint64(s.TimestampMs))
		buf.Write(frameHeader)
		buf.Write(s.Data)
	}
	return buf.Bytes()
}
