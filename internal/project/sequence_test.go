package project_test

import (
	"testing"

	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/stretchr/testify/assert"
)

func generated(fileName string) project.LineRecord {
	return project.LineRecord{
		FileName: fileName,
		Speaker:  "Narrator",
		Text:     "text",
		Voice:    "narrator.wav",
		Pause:    project.DefaultPause,
		Params:   nil,
	}
}

func TestArtifactName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "novel_001.wav", project.ArtifactName("novel", 1))
	assert.Equal(t, "novel_042.wav", project.ArtifactName("novel", 42))
	assert.Equal(t, "novel_1000.wav", project.ArtifactName("novel", 1000))
}

func TestNextSequence_EmptyLedger(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, project.NextSequence(nil, "novel"))
	assert.Equal(t, 1, project.NextSequence([]project.LineRecord{}, "novel"))
}

func TestNextSequence_MonotonicOverGaps(t *testing.T) {
	t.Parallel()

	ledger := []project.LineRecord{
		generated("novel_001.wav"),
		generated("novel_007.wav"),
		generated("novel_003.wav"),
	}

	// Gaps left by deletions are never reused.
	assert.Equal(t, 8, project.NextSequence(ledger, "novel"))
}

func TestNextSequence_IgnoresForeignAndUngenerated(t *testing.T) {
	t.Parallel()

	ledger := []project.LineRecord{
		generated("other_009.wav"),
		generated(""),
		generated("novel_002.wav"),
	}

	assert.Equal(t, 3, project.NextSequence(ledger, "novel"))
}

func TestNextSequence_ProjectNameWithRegexMetacharacters(t *testing.T) {
	t.Parallel()

	ledger := []project.LineRecord{
		generated("my.book_004.wav"),
	}

	assert.Equal(t, 5, project.NextSequence(ledger, "my.book"))
	assert.Equal(t, 1, project.NextSequence(ledger, "myxbook"))
}
