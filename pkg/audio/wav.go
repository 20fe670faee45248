package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotMono is returned when a decoded file has more than one channel.
// CutForge operates on mono PCM only; conversion is an upstream concern.
var ErrNotMono = errors.New("audio: file is not mono")

// DecodeWAV reads a complete WAV stream and returns its samples normalized
// to [-1.0, 1.0]. Only mono PCM input is accepted.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("audio: not a valid WAV file")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: read pcm: %w", err)
	}
	if pcm.Format.NumChannels != 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrNotMono, pcm.Format.NumChannels)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float64(v) / scale
	}

	return &Buffer{Samples: samples, SampleRate: pcm.Format.SampleRate}, nil
}

// LoadWAV opens and decodes a WAV file from disk.
func LoadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// EncodeWAV writes b as 16-bit mono PCM WAV to w.
// Samples outside [-1.0, 1.0] are clamped.
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	enc := wav.NewEncoder(w, b.SampleRate, 16, 1, 1)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		data[i] = int(s * 32767)
	}

	pcm := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("audio: write pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	return nil
}

// EncodeWAVBytes encodes b as 16-bit mono PCM WAV into memory. Intended for
// uploads to HTTP transcription APIs.
func EncodeWAVBytes(b *Buffer) ([]byte, error) {
	ws := &memWriteSeeker{}
	if err := EncodeWAV(ws, b); err != nil {
		return nil, err
	}
	return ws.data, nil
}

// memWriteSeeker is a minimal in-memory io.WriteSeeker. The WAV encoder
// seeks backwards to patch chunk sizes, which bytes.Buffer cannot do.
type memWriteSeeker struct {
	data []byte
	pos  int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.data) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int
	switch whence {
	case io.SeekStart:
		abs = int(offset)
	case io.SeekCurrent:
		abs = m.pos + int(offset)
	case io.SeekEnd:
		abs = len(m.data) + int(offset)
	default:
		return 0, errors.New("audio: invalid seek whence")
	}
	if abs < 0 {
		return 0, errors.New("audio: negative seek position")
	}
	m.pos = abs
	return int64(abs), nil
}

// SaveWAV encodes b to a WAV file at path, creating or truncating it.
func SaveWAV(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}
	defer f.Close()
	return EncodeWAV(f, b)
}
