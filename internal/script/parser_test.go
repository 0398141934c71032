// Package script_test tests script parsing and word-boundary chunking.
package script_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxChars = 300

func TestParseSingleVoice(t *testing.T) {
	t.Parallel()

	scriptText := "First line.\n\n  Second line.  \n"

	records := script.ParseSingleVoice(scriptText, "narrator.wav", testMaxChars)
	require.Len(t, records, 2)

	assert.Equal(t, script.SingleVoiceSpeaker, records[0].Speaker)
	assert.Equal(t, "First line.", records[0].Text)
	assert.Equal(t, "narrator.wav", records[0].Voice)
	assert.InEpsilon(t, project.DefaultPause, records[0].Pause, 0.0001)
	assert.Empty(t, records[0].FileName)

	assert.Equal(t, "Second line.", records[1].Text)
}

func TestParseSingleVoice_ChunksLongLines(t *testing.T) {
	t.Parallel()

	longLine := strings.TrimSpace(strings.Repeat("word ", 100))
	records := script.ParseSingleVoice(longLine, "narrator.wav", testMaxChars)

	require.Greater(t, len(records), 1)

	for _, record := range records {
		assert.LessOrEqual(t, len(record.Text), testMaxChars)
		assert.Equal(t, script.SingleVoiceSpeaker, record.Speaker)
	}
}

func TestParseSingleVoice_EmptyScript(t *testing.T) {
	t.Parallel()

	assert.Empty(t, script.ParseSingleVoice("", "narrator.wav", testMaxChars))
	assert.Empty(t, script.ParseSingleVoice("\n\n  \n", "narrator.wav", testMaxChars))
}

func TestParseMultiSpeaker(t *testing.T) {
	t.Parallel()

	scriptText := strings.Join([]string{
		"[Narrator] It was a dark and stormy night.",
		"[ALICE] Hello there.",
		"this line has no speaker tag",
		"[Bob 2] A numbered speaker.",
		"",
	}, "\n")

	voiceMap := map[string]string{
		"Narrator": "narrator.wav",
		"Alice":    "alice.wav",
	}

	records := script.ParseMultiSpeaker(scriptText, voiceMap, testMaxChars)
	require.Len(t, records, 3)

	assert.Equal(t, "Narrator", records[0].Speaker)
	assert.Equal(t, "It was a dark and stormy night.", records[0].Text)
	assert.Equal(t, "narrator.wav", records[0].Voice)

	// The tag is case-normalized before voice lookup.
	assert.Equal(t, "ALICE", records[1].Speaker)
	assert.Equal(t, "alice.wav", records[1].Voice)

	// An unmapped speaker parses but carries no voice.
	assert.Equal(t, "Bob 2", records[2].Speaker)
	assert.Empty(t, records[2].Voice)
	assert.False(t, records[2].HasVoice())
}

func TestParseMultiSpeaker_SkipsUntaggedLines(t *testing.T) {
	t.Parallel()

	scriptText := "no tags here\nstill none\n"

	records := script.ParseMultiSpeaker(scriptText, nil, testMaxChars)
	assert.Empty(t, records)
}

func TestDetectSpeakers(t *testing.T) {
	t.Parallel()

	scriptText := strings.Join([]string{
		"[Narrator] one",
		"[ALICE] two",
		"[alice] three",
		"[Bob] four",
		"not a tagged line",
	}, "\n")

	speakers := script.DetectSpeakers(scriptText)
	assert.Equal(t, []string{"Alice", "Bob", "Narrator"}, speakers)
}

func TestDetectSpeakers_EmptyScript(t *testing.T) {
	t.Parallel()

	assert.Empty(t, script.DetectSpeakers(""))
	assert.Empty(t, script.DetectSpeakers("no tags at all"))
}

func TestNormalizeSpeaker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Narrator", script.NormalizeSpeaker("NARRATOR"))
	assert.Equal(t, "Narrator", script.NormalizeSpeaker("narrator"))
	assert.Equal(t, "Bob 2", script.NormalizeSpeaker("BOB 2"))
	assert.Empty(t, script.NormalizeSpeaker(""))
}

func TestSplitPreservingWords_ShortTextUnchanged(t *testing.T) {
	t.Parallel()

	chunks := script.SplitPreservingWords("short text", 50)
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestSplitPreservingWords_CutsOnWordBoundaries(t *testing.T) {
	t.Parallel()

	text := "one two three four five six seven eight nine ten"

	chunks := script.SplitPreservingWords(text, 20)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 20)
		assert.NotEmpty(t, chunk)
		assert.Equal(t, strings.TrimSpace(chunk), chunk)
	}

	// No word is lost or split across chunks.
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplitPreservingWords_HardCutsOversizedWord(t *testing.T) {
	t.Parallel()

	word := strings.Repeat("a", 25)

	chunks := script.SplitPreservingWords(word, 10)
	assert.Equal(t, []string{
		strings.Repeat("a", 10),
		strings.Repeat("a", 10),
		strings.Repeat("a", 5),
	}, chunks)
}

func TestSplitPreservingWords_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	// Space-free CJK text: three bytes per rune, no word boundaries.
	text := "ab " + strings.Repeat("日本語の長い文章", 10)

	chunks := script.SplitPreservingWords(text, 10)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %q is not valid UTF-8", chunk)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}

	// No rune is lost or duplicated across chunks.
	assert.Equal(
		t,
		strings.ReplaceAll(text, " ", ""),
		strings.ReplaceAll(strings.Join(chunks, ""), " ", ""),
	)
}

func TestSplitPreservingWords_MultiByteFitsWithinLimit(t *testing.T) {
	t.Parallel()

	// 300 runes of CJK exceed 300 bytes but fit the rune limit whole.
	text := strings.Repeat("語", 300)

	chunks := script.SplitPreservingWords(text, 300)
	assert.Equal(t, []string{text}, chunks)
}

func TestSplitPreservingWords_EmptyText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, script.SplitPreservingWords("", 10))
	assert.Empty(t, script.SplitPreservingWords("   ", 10))
}
