// Package wavio provides PCM WAV encoding and decoding for the audiobook
// pipeline.
//
// The pipeline only ever handles uncompressed PCM produced by the synthesis
// service, so the codec deliberately supports format tag 1 (PCM) and nothing
// else. RIFF chunks other than "fmt " and "data" are skipped.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// RIFF framing constants.
const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkSize    = 16
	pcmFormatTag    = 1

	bitsPerByte = 8

	filePermissions = 0o600
)

// Static errors.
var (
	// ErrNotRIFF indicates the data does not start with a RIFF/WAVE header.
	ErrNotRIFF = errors.New("not a RIFF WAVE file")
	// ErrTruncated indicates the data ends before a declared chunk does.
	ErrTruncated = errors.New("truncated WAV data")
	// ErrUnsupportedFormat indicates a non-PCM format tag.
	ErrUnsupportedFormat = errors.New("unsupported WAV format, expected PCM")
	// ErrMissingDataChunk indicates no "data" chunk was found.
	ErrMissingDataChunk = errors.New("missing WAV data chunk")
	// ErrInvalidClip indicates a clip with zero sample rate or channels.
	ErrInvalidClip = errors.New("invalid clip parameters")
)

// Clip holds one decoded PCM audio clip. Data contains raw interleaved
// sample frames without any RIFF framing.
type Clip struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Data          []byte
}

// BlockAlign returns the size in bytes of one sample frame.
func (c *Clip) BlockAlign() int {
	return c.Channels * c.BitsPerSample / bitsPerByte
}

// Samples returns the number of sample frames in the clip.
func (c *Clip) Samples() int {
	align := c.BlockAlign()
	if align == 0 {
		return 0
	}

	return len(c.Data) / align
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}

	return float64(c.Samples()) / float64(c.SampleRate)
}

// Append concatenates another clip's sample data onto this clip. The caller
// is responsible for ensuring both clips share sample rate, channel count,
// and bit depth.
func (c *Clip) Append(other *Clip) {
	c.Data = append(c.Data, other.Data...)
}

// AppendSilence appends zero-valued samples worth the given number of
// seconds. Fractional sample counts are truncated, matching the behavior of
// sizing silence as int(pause * sample_rate).
func (c *Clip) AppendSilence(seconds float64) {
	if seconds <= 0 {
		return
	}

	sampleCount := int(seconds * float64(c.SampleRate))
	if sampleCount <= 0 {
		return
	}

	c.Data = append(c.Data, make([]byte, sampleCount*c.BlockAlign())...)
}

// Decode parses a RIFF WAVE byte stream into a Clip.
func Decode(raw []byte) (*Clip, error) {
	if len(raw) < riffHeaderSize {
		return nil, ErrNotRIFF
	}

	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, ErrNotRIFF
	}

	clip := &Clip{
		SampleRate:    0,
		Channels:      0,
		BitsPerSample: 0,
		Data:          nil,
	}

	sawFormat := false
	offset := riffHeaderSize

	for offset+chunkHeaderSize <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + chunkHeaderSize

		if body+chunkLen > len(raw) {
			return nil, fmt.Errorf("%w: chunk %q", ErrTruncated, chunkID)
		}

		switch chunkID {
		case "fmt ":
			formatErr := parseFormatChunk(raw[body:body+chunkLen], clip)
			if formatErr != nil {
				return nil, formatErr
			}

			sawFormat = true
		case "data":
			// Cap the slice at the chunk so later appends reallocate
			// instead of scribbling over the rest of the source buffer.
			clip.Data = raw[body : body+chunkLen : body+chunkLen]
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		offset = body + chunkLen + chunkLen%2
	}

	if !sawFormat || clip.Data == nil {
		return nil, ErrMissingDataChunk
	}

	return clip, nil
}

// Encode serializes the clip into a complete RIFF WAVE byte stream.
func (c *Clip) Encode() ([]byte, error) {
	if c.SampleRate <= 0 || c.Channels <= 0 || c.BitsPerSample <= 0 {
		return nil, ErrInvalidClip
	}

	blockAlign := c.BlockAlign()
	byteRate := c.SampleRate * blockAlign
	dataSize := len(c.Data)
	riffSize := 4 + (chunkHeaderSize + fmtChunkSize) + (chunkHeaderSize + dataSize)

	out := make([]byte, 0, chunkHeaderSize+riffSize)
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(riffSize))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, fmtChunkSize)
	out = binary.LittleEndian.AppendUint16(out, pcmFormatTag)
	out = binary.LittleEndian.AppendUint16(out, uint16(c.Channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(c.SampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(c.BitsPerSample))

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataSize))
	out = append(out, c.Data...)

	return out, nil
}

// ReadFile reads and decodes a WAV file from disk.
func ReadFile(path string) (*Clip, error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", readErr)
	}

	clip, decodeErr := Decode(raw)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, decodeErr)
	}

	return clip, nil
}

// WriteFile encodes the clip and writes it to disk.
func WriteFile(path string, clip *Clip) error {
	encoded, encodeErr := clip.Encode()
	if encodeErr != nil {
		return encodeErr
	}

	writeErr := os.WriteFile(path, encoded, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write WAV file: %w", writeErr)
	}

	return nil
}

func parseFormatChunk(body []byte, clip *Clip) error {
	if len(body) < fmtChunkSize {
		return fmt.Errorf("%w: fmt chunk", ErrTruncated)
	}

	formatTag := binary.LittleEndian.Uint16(body[0:2])
	if formatTag != pcmFormatTag {
		return fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, formatTag)
	}

	clip.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
	clip.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
	clip.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))

	return nil
}
