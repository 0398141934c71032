// Package project manages named audiobook projects: their on-disk
// directories, the metadata ledger of generated line records, and the
// numeric sequencing of generated audio filenames.
package project

import (
	"encoding/json"
	"fmt"

	"github.com/book-expert/audiobook-studio/internal/synthesis"
)

// DefaultPause is the silence inserted after a line during merge when the
// script does not specify one, in seconds.
const DefaultPause = 0.5

// UnknownSpeaker is the display name assigned when a ledger entry carries
// no speaker.
const UnknownSpeaker = "Unknown"

// LineRecord is one script line, or one word-wrap chunk of one, together
// with its generated artifact. The ledger is an ordered sequence of these;
// ledger order defines merge order and is never re-sorted.
type LineRecord struct {
	// FileName is the generated audio artifact within the project
	// directory. Empty until generation succeeds for this line.
	FileName string `json:"file_name,omitempty"`

	// Speaker is the display name parsed from the script tag.
	Speaker string `json:"speaker"`

	// Text is the synthesizable content, bounded by the model character
	// limit.
	Text string `json:"text"`

	// Voice identifies the reference clip in the voice library. Empty
	// means not yet assigned, which blocks generation for this line.
	Voice string `json:"voice,omitempty"`

	// Pause is the silence to insert after this line during merge, in
	// seconds.
	Pause float64 `json:"pause"`

	// Params is the generation parameter bundle that produced FileName.
	Params *synthesis.Params `json:"params,omitempty"`
}

// UnmarshalJSON decodes a ledger entry, defaulting an absent speaker to
// UnknownSpeaker and an absent pause to DefaultPause. Legacy and hand-edited
// ledgers omit these keys; an explicit value, including a zero pause, is
// kept as written.
func (r *LineRecord) UnmarshalJSON(data []byte) error {
	type alias LineRecord

	entry := alias{
		FileName: "",
		Speaker:  UnknownSpeaker,
		Text:     "",
		Voice:    "",
		Pause:    DefaultPause,
		Params:   nil,
	}

	unmarshalErr := json.Unmarshal(data, &entry)
	if unmarshalErr != nil {
		return fmt.Errorf("failed to unmarshal line record: %w", unmarshalErr)
	}

	*r = LineRecord(entry)

	return nil
}

// HasVoice reports whether a voice has been assigned to this line.
func (r *LineRecord) HasVoice() bool {
	return r.Voice != ""
}

// Generated reports whether a persisted audio artifact exists for this line.
func (r *LineRecord) Generated() bool {
	return r.FileName != ""
}
