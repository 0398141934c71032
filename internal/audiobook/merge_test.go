package audiobook_test

import (
	"path/filepath"
	"testing"

	"github.com/book-expert/audiobook-studio/internal/audiobook"
	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/wavio"
	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mergeFixture is a project store plus a merger writing into a temp output
// directory.
type mergeFixture struct {
	store     *project.Store
	merger    *audiobook.Merger
	outputDir string
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	store := project.NewStore(t.TempDir(), testLogger)
	outputDir := t.TempDir()

	return &mergeFixture{
		store:     store,
		merger:    audiobook.NewMerger(store, outputDir, testLogger),
		outputDir: outputDir,
	}
}

// writeClip persists a mono 16-bit clip with the given frame count and a
// recognizable first byte.
func (f *mergeFixture) writeClip(
	t *testing.T,
	projectName, fileName string,
	sampleRate, frames int,
	marker byte,
) {
	t.Helper()

	clip := &wavio.Clip{
		SampleRate:    sampleRate,
		Channels:      1,
		BitsPerSample: 16,
		Data:          make([]byte, frames*2),
	}
	clip.Data[0] = marker

	err := wavio.WriteFile(f.store.ArtifactPath(projectName, fileName), clip)
	require.NoError(t, err)
}

func generatedLine(fileName string, pause float64) project.LineRecord {
	return project.LineRecord{
		FileName: fileName,
		Speaker:  "Narrator",
		Text:     "text",
		Voice:    "narrator.wav",
		Pause:    pause,
		Params:   nil,
	}
}

func TestMerge_ConcatenatesInLedgerOrderWithSilence(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.store.EnsureExists("novel")
	require.NoError(t, err)

	ledger := []project.LineRecord{
		generatedLine("novel_001.wav", 0.5),
		generatedLine("novel_002.wav", 1.0),
	}
	require.NoError(t, fixture.store.SaveLedger("novel", ledger))

	fixture.writeClip(t, "novel", "novel_001.wav", testSampleRate, 1000, 'A')
	fixture.writeClip(t, "novel", "novel_002.wav", testSampleRate, 2000, 'B')

	outputName, err := fixture.merger.Merge("novel", ledger)
	require.NoError(t, err)
	assert.Equal(t, "novel_merged.wav", outputName)

	merged, err := wavio.ReadFile(filepath.Join(fixture.outputDir, outputName))
	require.NoError(t, err)

	// 1000 frames + 0.5s silence + 2000 frames + 1.0s silence.
	expectedFrames := 1000 + testSampleRate/2 + 2000 + testSampleRate
	assert.Equal(t, expectedFrames, merged.Samples())
	assert.Equal(t, testSampleRate, merged.SampleRate)

	// First clip leads, second clip follows its silence gap.
	assert.Equal(t, byte('A'), merged.Data[0])
	assert.Equal(t, byte('B'), merged.Data[(1000+testSampleRate/2)*2])
}

func TestMerge_PauseOverridesAdjustSilenceOnly(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.store.EnsureExists("novel")
	require.NoError(t, err)

	ledger := []project.LineRecord{
		generatedLine("novel_001.wav", 0.5),
		generatedLine("novel_002.wav", 0.5),
	}
	require.NoError(t, fixture.store.SaveLedger("novel", ledger))

	fixture.writeClip(t, "novel", "novel_001.wav", testSampleRate, 100, 'A')
	fixture.writeClip(t, "novel", "novel_002.wav", testSampleRate, 100, 'B')

	// Overrides listed in reverse order must not change merge order.
	overrides := []project.LineRecord{
		generatedLine("novel_002.wav", 0.25),
		generatedLine("novel_001.wav", 0),
	}

	outputName, err := fixture.merger.Merge("novel", overrides)
	require.NoError(t, err)

	merged, err := wavio.ReadFile(filepath.Join(fixture.outputDir, outputName))
	require.NoError(t, err)

	expectedFrames := 100 + 0 + 100 + testSampleRate/4
	assert.Equal(t, expectedFrames, merged.Samples())
	assert.Equal(t, byte('A'), merged.Data[0])
	assert.Equal(t, byte('B'), merged.Data[100*2])
}

func TestMerge_SkipsMissingFiles(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.store.EnsureExists("novel")
	require.NoError(t, err)

	ledger := []project.LineRecord{
		generatedLine("novel_001.wav", 0),
		generatedLine("novel_002.wav", 0),
	}
	require.NoError(t, fixture.store.SaveLedger("novel", ledger))

	// Only the second file exists on disk.
	fixture.writeClip(t, "novel", "novel_002.wav", testSampleRate, 500, 'B')

	outputName, err := fixture.merger.Merge("novel", ledger)
	require.NoError(t, err)

	merged, err := wavio.ReadFile(filepath.Join(fixture.outputDir, outputName))
	require.NoError(t, err)
	assert.Equal(t, 500, merged.Samples())
	assert.Equal(t, byte('B'), merged.Data[0])
}

func TestMerge_SampleRateMismatch(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.store.EnsureExists("novel")
	require.NoError(t, err)

	ledger := []project.LineRecord{
		generatedLine("novel_001.wav", 0),
		generatedLine("novel_002.wav", 0),
	}
	require.NoError(t, fixture.store.SaveLedger("novel", ledger))

	fixture.writeClip(t, "novel", "novel_001.wav", 16000, 100, 'A')
	fixture.writeClip(t, "novel", "novel_002.wav", 24000, 100, 'B')

	_, err = fixture.merger.Merge("novel", ledger)
	require.ErrorIs(t, err, audiobook.ErrSampleRateMismatch)
}

func TestMerge_ChannelOrBitDepthMismatch(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.store.EnsureExists("novel")
	require.NoError(t, err)

	ledger := []project.LineRecord{
		generatedLine("novel_001.wav", 0),
		generatedLine("novel_002.wav", 0),
	}
	require.NoError(t, fixture.store.SaveLedger("novel", ledger))

	fixture.writeClip(t, "novel", "novel_001.wav", testSampleRate, 100, 'A')

	// Same rate, but stereo instead of mono.
	stereo := &wavio.Clip{
		SampleRate:    testSampleRate,
		Channels:      2,
		BitsPerSample: 16,
		Data:          make([]byte, 100*4),
	}
	err = wavio.WriteFile(fixture.store.ArtifactPath("novel", "novel_002.wav"), stereo)
	require.NoError(t, err)

	_, err = fixture.merger.Merge("novel", ledger)
	require.ErrorIs(t, err, audiobook.ErrFormatMismatch)
}

func TestMerge_EmptyInputs(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.merger.Merge("novel", nil)
	require.ErrorIs(t, err, audiobook.ErrNoSpeakerLines)

	_, err = fixture.merger.Merge("", []project.LineRecord{generatedLine("x.wav", 0)})
	require.ErrorIs(t, err, project.ErrProjectNameEmpty)

	// Lines supplied but the project has no ledger.
	_, err = fixture.merger.Merge(
		"novel",
		[]project.LineRecord{generatedLine("x.wav", 0)},
	)
	require.ErrorIs(t, err, audiobook.ErrProjectEmpty)
}

func TestMerge_NoReadableAudio(t *testing.T) {
	t.Parallel()

	fixture := newMergeFixture(t)

	_, err := fixture.store.EnsureExists("novel")
	require.NoError(t, err)

	ledger := []project.LineRecord{
		generatedLine("novel_001.wav", 0.5),
	}
	require.NoError(t, fixture.store.SaveLedger("novel", ledger))

	_, err = fixture.merger.Merge("novel", ledger)
	require.ErrorIs(t, err, audiobook.ErrNoValidAudio)
}
