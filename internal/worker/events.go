package worker

import (
	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/events"
)

// ScriptSubmittedEvent is a request to parse a script and generate audio for
// every line. Exactly one of SingleVoice or VoiceMap selects the parse mode:
// a non-empty SingleVoice reads the script as plain lines, otherwise lines
// must carry "[Speaker]" tags resolved through VoiceMap.
type ScriptSubmittedEvent struct {
	Header      events.EventHeader `json:"header"`
	Project     string             `json:"project"`
	Language    string             `json:"language"`
	Script      string             `json:"script"`
	SingleVoice string             `json:"single_voice,omitempty"`
	VoiceMap    map[string]string  `json:"voice_map,omitempty"`
	Params      synthesis.Params   `json:"params"`
}

// LinesGeneratedEvent is the reply to a ScriptSubmittedEvent, summarizing
// the batch outcome.
type LinesGeneratedEvent struct {
	Header    events.EventHeader `json:"header"`
	Project   string             `json:"project"`
	Generated int                `json:"generated"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Error     string             `json:"error,omitempty"`
}

// MergeRequestedEvent is a request to merge a project's clips into one
// audiobook. PauseOverrides adjusts per-line pauses by file name without
// rewriting the ledger.
type MergeRequestedEvent struct {
	Header         events.EventHeader `json:"header"`
	Project        string             `json:"project"`
	PauseOverrides map[string]float64 `json:"pause_overrides,omitempty"`
}

// AudiobookMergedEvent is the reply to a MergeRequestedEvent. AudiobookKey
// identifies the merged file in the object store bucket for download.
type AudiobookMergedEvent struct {
	Header       events.EventHeader `json:"header"`
	Project      string             `json:"project"`
	OutputFile   string             `json:"output_file,omitempty"`
	AudiobookKey string             `json:"audiobook_key,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Regeneration actions accepted by RegenerateLineEvent.
const (
	RegenActionGenerate = "generate"
	RegenActionCommit   = "commit"
	RegenActionDiscard  = "discard"
)

// RegenerateLineEvent drives the candidate workflow for one generated line,
// addressed by its artifact file name. A "generate" action produces a
// candidate clip and uploads it for preview; "commit" replaces the original
// with the candidate and updates the ledger; "discard" deletes the
// candidate and keeps the original. Text, Voice, Language, and Params are
// required for "generate"; "commit" reuses Text and Voice for the ledger
// update.
type RegenerateLineEvent struct {
	Header   events.EventHeader `json:"header"`
	Project  string             `json:"project"`
	FileName string             `json:"file_name"`
	Action   string             `json:"action"`
	Text     string             `json:"text,omitempty"`
	Voice    string             `json:"voice,omitempty"`
	Language string             `json:"language,omitempty"`
	Params   synthesis.Params   `json:"params"`
}

// LineRegeneratedEvent is the reply to a RegenerateLineEvent. State reports
// the workflow state after the action; CandidateKey identifies the preview
// clip in the object store bucket after a successful "generate".
type LineRegeneratedEvent struct {
	Header       events.EventHeader `json:"header"`
	Project      string             `json:"project"`
	FileName     string             `json:"file_name"`
	State        string             `json:"state"`
	CandidateKey string             `json:"candidate_key,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Studio administration commands accepted by StudioCommandEvent.
const (
	CommandListProjects   = "list_projects"
	CommandDeleteProject  = "delete_project"
	CommandCleanupProject = "cleanup_project"
	CommandDetectSpeakers = "detect_speakers"
	CommandListVoices     = "list_voices"
)

// StudioCommandEvent is a project-management request: listing or deleting
// projects, cleaning up leftover temp artifacts, detecting the speakers of
// a script before voice assignment, or listing the voice library.
type StudioCommandEvent struct {
	Header  events.EventHeader `json:"header"`
	Command string             `json:"command"`
	Project string             `json:"project,omitempty"`
	Script  string             `json:"script,omitempty"`
}

// StudioStatusEvent is the reply to a StudioCommandEvent; only the fields
// relevant to the command are populated.
type StudioStatusEvent struct {
	Header   events.EventHeader `json:"header"`
	Command  string             `json:"command"`
	Project  string             `json:"project,omitempty"`
	Projects []string           `json:"projects,omitempty"`
	Speakers []string           `json:"speakers,omitempty"`
	Voices   []string           `json:"voices,omitempty"`
	Removed  int                `json:"removed,omitempty"`
	Error    string             `json:"error,omitempty"`
}
