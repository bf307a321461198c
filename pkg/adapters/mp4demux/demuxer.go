// Package mp4demux reads the first video track of a progressive or
// fragmented MP4 file sample by sample.
package mp4demux

import (
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framesource/pkg/ports"
)

var errNoVideoTrack = errors.New("no video track found")

// sampleRef locates one sample. Progressive files keep only the offset and
// read the payload on demand; fragmented files carry the payload.
type sampleRef struct {
	number     int
	offset     uint64
	size       uint32
	data       []byte
	inline     bool
	decodeTime uint64
	cto        int32
	dur        uint32
	keyframe   bool
}

// Demuxer implements ports.Demuxer for MP4 files. Sample timestamps are
// presentation times: decode time plus composition offset, shifted by the
// first entry of the track's edit list.
type Demuxer struct {
	reader    io.ReadSeeker
	info      ports.StreamInfo
	timescale uint32
	samples   []sampleRef
	next      int

	mediaStart int64 // track ticks the edit list skips
	emptyMs    int   // leading empty edits
}

// New parses the MP4 structure from reader. When reader is an io.Closer it
// is closed by Close.
func New(reader io.ReadSeeker) (*Demuxer, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: decode mp4: %v", ports.ErrUnsupportedFormat, err)
	}

	d := &Demuxer{reader: reader, timescale: 1000}
	if mp4File.IsFragmented() {
		err = d.indexFragmented(mp4File)
	} else {
		err = d.indexProgressive(mp4File)
	}
	if err != nil {
		return nil, err
	}

	d.info.Container = ports.ContainerMP4
	d.info.FrameCount = len(d.samples)
	for _, ref := range d.samples {
		d.info.DurationMs = max(d.info.DurationMs, d.presentationMs(ref)+d.toMs(uint64(ref.dur)))
	}
	if d.info.DurationMs > 0 {
		d.info.FrameRate = float64(len(d.samples)) * 1000 / float64(d.info.DurationMs)
	}
	return d, nil
}

// Info returns the track description.
func (d *Demuxer) Info() ports.StreamInfo {
	return d.info
}

// NextSample returns the next sample in decode order, or io.EOF.
func (d *Demuxer) NextSample() (ports.Sample, error) {
	if d.next >= len(d.samples) {
		return ports.Sample{}, io.EOF
	}
	ref := d.samples[d.next]
	d.next++

	data := ref.data
	if !ref.inline {
		var err error
		data, err = d.readAt(ref.offset, ref.size)
		if err != nil {
			return ports.Sample{}, fmt.Errorf("%w: sample %d: %v", ports.ErrIO, ref.number, err)
		}
	}

	return ports.Sample{
		Data:        data,
		TimestampMs: d.presentationMs(ref),
		DurationMs:  d.toMs(uint64(ref.dur)),
		IsKeyframe:  ref.keyframe,
		Number:      ref.number,
	}, nil
}

// Timeline returns the timing of every sample in decode order.
func (d *Demuxer) Timeline() []ports.Timing {
	timeline := make([]ports.Timing, len(d.samples))
	for i, ref := range d.samples {
		timeline[i] = ports.Timing{
			Number:      ref.number,
			TimestampMs: d.presentationMs(ref),
			DurationMs:  d.toMs(uint64(ref.dur)),
		}
	}
	return timeline
}

// Close releases the reader.
func (d *Demuxer) Close() error {
	d.samples = nil
	if c, ok := d.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Demuxer) toMs(t uint64) int {
	return int(t * 1000 / uint64(d.timescale))
}

func (d *Demuxer) ticksToMs(t int64) int {
	return int(t * 1000 / int64(d.timescale))
}

func (d *Demuxer) presentationMs(ref sampleRef) int {
	return d.ticksToMs(int64(ref.decodeTime)+int64(ref.cto)-d.mediaStart) + d.emptyMs
}

func (d *Demuxer) readAt(offset uint64, size uint32) ([]byte, error) {
	if _, err := d.reader.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(d.reader, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}

// describeTrack fills codec, dimensions, timescale and the edit list shift
// from the track boxes.
func (d *Demuxer) describeTrack(trak *mp4.TrakBox, moov *mp4.MoovBox) {
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		d.timescale = trak.Mdia.Mdhd.Timescale
	}
	movieTimescale := uint32(1000)
	if moov.Mvhd != nil && moov.Mvhd.Timescale != 0 {
		movieTimescale = moov.Mvhd.Timescale
	}
	d.applyEditList(trak, movieTimescale)
	if trak.Tkhd != nil {
		d.info.Width = int(trak.Tkhd.Width >> 16)
		d.info.Height = int(trak.Tkhd.Height >> 16)
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		d.info.Codec = child.Type()
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok && vse.Width > 0 && vse.Height > 0 {
			d.info.Width = int(vse.Width)
			d.info.Height = int(vse.Height)
		}
		break
	}
}

// applyEditList reads the first edit list: empty edits delay the track and
// the first media edit says where presentation starts.
func (d *Demuxer) applyEditList(trak *mp4.TrakBox, movieTimescale uint32) {
	if trak.Edts == nil || len(trak.Edts.Elst) == 0 {
		return
	}
	var empty uint64
	for _, entry := range trak.Edts.Elst[0].Entries {
		if entry.MediaTime < 0 {
			empty += entry.SegmentDuration
			continue
		}
		d.mediaStart = entry.MediaTime
		break
	}
	d.emptyMs = int(empty * 1000 / uint64(movieTimescale))
}

// findVideoTrack returns the first track with a video handler.
func findVideoTrack(traks []*mp4.TrakBox) *mp4.TrakBox {
	for _, trak := range traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

func (d *Demuxer) indexProgressive(mp4File *mp4.File) error {
	if mp4File.Moov == nil {
		return fmt.Errorf("%w: no moov box found", ports.ErrUnsupportedFormat)
	}
	trak := findVideoTrack(mp4File.Moov.Traks)
	if trak == nil {
		return fmt.Errorf("%w: %v", ports.ErrUnsupportedFormat, errNoVideoTrack)
	}
	d.describeTrack(trak, mp4File.Moov)

	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return fmt.Errorf("%w: no sample table found", ports.ErrUnsupportedFormat)
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return fmt.Errorf("%w: missing stsz or stsc box", ports.ErrUnsupportedFormat)
	}

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	sampleCount := stbl.Stsz.SampleNumber
	d.samples = make([]sampleRef, 0, sampleCount)
	for nr := uint32(1); nr <= sampleCount; nr++ {
		offset, err := sampleOffset(stbl, nr)
		if err != nil {
			return fmt.Errorf("%w: sample %d: %v", ports.ErrUnsupportedFormat, nr, err)
		}

		var decodeTime uint64
		var dur uint32
		if stbl.Stts != nil {
			decodeTime, dur = stbl.Stts.GetDecodeTime(nr)
		}
		var cto int32
		if stbl.Ctts != nil {
			cto = stbl.Ctts.GetCompositionTimeOffset(nr)
		}

		d.samples = append(d.samples, sampleRef{
			number:     int(nr),
			offset:     offset,
			size:       stbl.Stsz.GetSampleSize(int(nr)),
			decodeTime: decodeTime,
			cto:        cto,
			dur:        dur,
			keyframe:   syncSamples[nr] || len(syncSamples) == 0,
		})
	}
	return nil
}

// sampleOffset resolves the file offset of a sample through stsc and stco/co64.
func sampleOffset(stbl *mp4.StblBox, sampleNr uint32) (uint64, error) {
	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return offset, nil
}

func (d *Demuxer) indexFragmented(mp4File *mp4.File) error {
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return fmt.Errorf("%w: no init segment found", ports.ErrUnsupportedFormat)
	}
	moov := mp4File.Init.Moov
	trak := findVideoTrack(moov.Traks)
	if trak == nil {
		return fmt.Errorf("%w: %v", ports.ErrUnsupportedFormat, errNoVideoTrack)
	}
	d.describeTrack(trak, moov)
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	number := 0
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}

				var baseDecodeTime uint64
				if traf.Tfdt != nil {
					baseDecodeTime = traf.Tfdt.BaseMediaDecodeTime()
				}

				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("%w: get samples: %v", ports.ErrUnsupportedFormat, err)
				}

				currentTime := baseDecodeTime
				for _, sample := range samples {
					number++
					d.samples = append(d.samples, sampleRef{
						number:     number,
						size:       uint32(len(sample.Data)),
						data:       sample.Data,
						inline:     true,
						decodeTime: currentTime,
						cto:        sample.CompositionTimeOffset,
						dur:        sample.Dur,
						keyframe:   sample.Flags == mp4.SyncSampleFlags,
					})
					currentTime += uint64(sample.Dur)
				}
			}
		}
	}
	return nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
