// Package wavio_test tests the PCM WAV codec.
package wavio_test

import (
	"path/filepath"
	"testing"

	"github.com/book-expert/audiobook-studio/internal/wavio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestClip(t *testing.T, sampleRate, frames int) *wavio.Clip {
	t.Helper()

	clip := &wavio.Clip{
		SampleRate:    sampleRate,
		Channels:      1,
		BitsPerSample: 16,
		Data:          make([]byte, frames*2),
	}

	for i := range clip.Data {
		clip.Data[i] = byte(i % 251)
	}

	return clip
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	original := makeTestClip(t, 16000, 1600)

	encoded, err := original.Encode()
	require.NoError(t, err)

	decoded, err := wavio.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.SampleRate, decoded.SampleRate)
	assert.Equal(t, original.Channels, decoded.Channels)
	assert.Equal(t, original.BitsPerSample, decoded.BitsPerSample)
	assert.Equal(t, original.Data, decoded.Data)
}

func TestReadWriteFileRoundTrip(t *testing.T) {
	t.Parallel()

	original := makeTestClip(t, 24000, 480)
	path := filepath.Join(t.TempDir(), "clip.wav")

	err := wavio.WriteFile(path, original)
	require.NoError(t, err)

	loaded, err := wavio.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, original.SampleRate, loaded.SampleRate)
	assert.Equal(t, original.Data, loaded.Data)
}

func TestDecode_RejectsNonRIFF(t *testing.T) {
	t.Parallel()

	_, err := wavio.Decode([]byte("this is definitely not a wav file"))
	require.ErrorIs(t, err, wavio.ErrNotRIFF)

	_, err = wavio.Decode([]byte("RIF"))
	require.ErrorIs(t, err, wavio.ErrNotRIFF)
}

func TestDecode_RejectsTruncatedChunk(t *testing.T) {
	t.Parallel()

	clip := makeTestClip(t, 16000, 100)

	encoded, err := clip.Encode()
	require.NoError(t, err)

	_, err = wavio.Decode(encoded[:len(encoded)-10])
	require.ErrorIs(t, err, wavio.ErrTruncated)
}

func TestDecode_RejectsNonPCM(t *testing.T) {
	t.Parallel()

	clip := makeTestClip(t, 16000, 100)

	encoded, err := clip.Encode()
	require.NoError(t, err)

	// Format tag lives two bytes into the fmt chunk body at offset 20.
	encoded[20] = 3

	_, err = wavio.Decode(encoded)
	require.ErrorIs(t, err, wavio.ErrUnsupportedFormat)
}

func TestDecode_RejectsMissingDataChunk(t *testing.T) {
	t.Parallel()

	clip := makeTestClip(t, 16000, 0)

	encoded, err := clip.Encode()
	require.NoError(t, err)

	// Header plus fmt chunk only.
	_, err = wavio.Decode(encoded[:36])
	require.ErrorIs(t, err, wavio.ErrMissingDataChunk)
}

func TestEncode_RejectsInvalidClip(t *testing.T) {
	t.Parallel()

	clip := &wavio.Clip{
		SampleRate:    0,
		Channels:      1,
		BitsPerSample: 16,
		Data:          nil,
	}

	_, err := clip.Encode()
	require.ErrorIs(t, err, wavio.ErrInvalidClip)
}

func TestAppendSilence(t *testing.T) {
	t.Parallel()

	clip := makeTestClip(t, 16000, 100)
	before := clip.Samples()

	clip.AppendSilence(0.5)
	assert.Equal(t, before+8000, clip.Samples())

	clip.AppendSilence(0)
	assert.Equal(t, before+8000, clip.Samples())

	clip.AppendSilence(-1.0)
	assert.Equal(t, before+8000, clip.Samples())

	clip.AppendSilence(1.0)
	assert.Equal(t, before+24000, clip.Samples())
}

func TestAppend(t *testing.T) {
	t.Parallel()

	first := makeTestClip(t, 16000, 100)
	second := makeTestClip(t, 16000, 50)

	first.Append(second)
	assert.Equal(t, 150, first.Samples())
}

func TestDuration(t *testing.T) {
	t.Parallel()

	clip := makeTestClip(t, 16000, 8000)
	assert.InEpsilon(t, 0.5, clip.Duration(), 0.0001)

	empty := &wavio.Clip{
		SampleRate:    0,
		Channels:      0,
		BitsPerSample: 0,
		Data:          nil,
	}
	assert.Zero(t, empty.Duration())
}
