package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// WAVHeader is the canonical 44-byte PCM WAV header
type WAVHeader struct {
	// RIFF Header
	ChunkID   [4]byte // "RIFF"
	ChunkSize uint32
	Format    [4]byte // "WAVE"

	// fmt sub-chunk
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16  // 1 = Mono, 2 = Stereo
	SampleRate    uint32  // 16000, 44100, etc.
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16  // NumChannels * BitsPerSample/8
	BitsPerSample uint16  // 8, 16, etc.

	// data sub-chunk
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // NumSamples * NumChannels * BitsPerSample/8
}

// ReadHeader reads and validates the header of a PCM WAV file
func ReadHeader(path string) (*WAVHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	var h WAVHeader
	if err := binary.Read(file, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(h.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(h.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if h.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", h.AudioFormat)
	}

	return &h, nil
}

// IsWAV reports whether path is a PCM WAV file
func IsWAV(path string) bool {
	_, err := ReadHeader(path)
	return err == nil
}

// Duration returns the length of a PCM WAV file in seconds
func Duration(path string) (float64, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return 0, err
	}

	frameSize := int64(h.NumChannels) * int64(h.BitsPerSample) / 8
	if frameSize == 0 || h.SampleRate == 0 {
		return 0, fmt.Errorf("invalid WAV header: zero frame size or sample rate")
	}

	numSamples := int64(h.Subchunk2Size) / frameSize
	return float64(numSamples) / float64(h.SampleRate), nil
}

// WriteWAV writes raw PCM samples with a WAV header
func WriteWAV(path string, data []byte, sampleRate uint32, channels uint16, bitsPerSample uint16) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	dataSize := uint32(len(data))
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(channels) * uint32(bitsPerSample) / 8,
		BlockAlign:    channels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(file, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}

	return nil
}
