// Package script turns freeform script text into ordered, speaker-tagged
// line records ready for synthesis.
//
// Multi-speaker scripts use one line per utterance in the form
// "[Speaker] text"; single-voice scripts are plain lines. Lines longer than
// the model character limit are split on word boundaries so every record
// fits within one synthesis call.
package script

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/book-expert/audiobook-studio/internal/project"
)

// SingleVoiceSpeaker is the display name assigned to every line parsed in
// single-voice mode.
const SingleVoiceSpeaker = "Single voice"

// Speaker tags are letters, digits, and spaces inside square brackets at the
// start of a line.
var (
	speakerLinePattern = regexp.MustCompile(`^\s*\[([A-Za-z0-9\s]+)\]\s*(.*)`)
	speakerTagPattern  = regexp.MustCompile(`(?m)^\s*\[([A-Za-z0-9\s]+)\]`)
)

// ParseSingleVoice parses a script in single-voice mode: every non-empty
// line becomes one or more records with the same speaker and voice, chunked
// to maxChars on word boundaries.
func ParseSingleVoice(scriptText, voice string, maxChars int) []project.LineRecord {
	var records []project.LineRecord

	for _, line := range strings.Split(scriptText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, chunk := range SplitPreservingWords(line, maxChars) {
			records = append(records, newRecord(SingleVoiceSpeaker, chunk, voice))
		}
	}

	return records
}

// ParseMultiSpeaker parses a script in multi-speaker mode. Each non-empty
// line must match "[Speaker] text"; lines that do not match are silently
// skipped. The tag is case-normalized before lookup in the voice map, and an
// unmapped speaker yields a record without a voice, which blocks generation
// for that line later rather than failing the parse.
func ParseMultiSpeaker(
	scriptText string,
	voiceMap map[string]string,
	maxChars int,
) []project.LineRecord {
	var records []project.LineRecord

	for _, line := range strings.Split(scriptText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := speakerLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		speaker := strings.TrimSpace(match[1])
		text := strings.TrimSpace(match[2])
		voice := voiceMap[NormalizeSpeaker(speaker)]

		for _, chunk := range SplitPreservingWords(text, maxChars) {
			records = append(records, newRecord(speaker, chunk, voice))
		}
	}

	return records
}

// DetectSpeakers scans the script for speaker tags and returns the sorted
// set of case-normalized speaker names, so the caller can build a
// speaker-to-voice assignment before parsing.
func DetectSpeakers(scriptText string) []string {
	seen := make(map[string]struct{})

	for _, match := range speakerTagPattern.FindAllStringSubmatch(scriptText, -1) {
		normalized := NormalizeSpeaker(strings.TrimSpace(match[1]))
		if normalized != "" {
			seen[normalized] = struct{}{}
		}
	}

	speakers := make([]string, 0, len(seen))
	for speaker := range seen {
		speakers = append(speakers, speaker)
	}

	sort.Strings(speakers)

	return speakers
}

// NormalizeSpeaker capitalizes a speaker tag: first rune upper, the rest
// lower, so "NARRATOR" and "narrator" name the same speaker.
func NormalizeSpeaker(tag string) string {
	if tag == "" {
		return ""
	}

	runes := []rune(strings.ToLower(tag))
	runes[0] = unicode.ToUpper(runes[0])

	return string(runes)
}

// SplitPreservingWords splits text into chunks of at most maxLength
// characters, cutting at the last space within each window. The limit
// counts runes, not bytes, so multi-byte scripts are never cut mid-rune. A
// single word longer than maxLength is hard-cut at the limit. Chunks are
// trimmed and empty chunks are dropped, so no chunk has length zero and no
// non-whitespace character is ever lost.
func SplitPreservingWords(text string, maxLength int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	if len(runes) <= maxLength {
		return []string{string(runes)}
	}

	var chunks []string

	for len(runes) > maxLength {
		splitIndex := lastSpace(runes[:maxLength])
		if splitIndex == -1 {
			splitIndex = maxLength
		}

		chunk := strings.TrimSpace(string(runes[:splitIndex]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		runes = []rune(strings.TrimSpace(string(runes[splitIndex:])))
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}

// lastSpace returns the index of the last space rune in the window, or -1.
func lastSpace(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == ' ' {
			return i
		}
	}

	return -1
}

func newRecord(speaker, text, voice string) project.LineRecord {
	return project.LineRecord{
		FileName: "",
		Speaker:  speaker,
		Text:     text,
		Voice:    voice,
		Pause:    project.DefaultPause,
		Params:   nil,
	}
}
