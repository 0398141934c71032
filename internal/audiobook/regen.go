package audiobook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/google/uuid"
)

// Static errors.
var (
	// ErrRegenerationInFlight indicates a regeneration was triggered while
	// one is already running for the same line.
	ErrRegenerationInFlight = errors.New("regeneration already in flight for this line")
	// ErrNoCandidate indicates a commit or discard without a previewable
	// candidate.
	ErrNoCandidate = errors.New("no candidate to commit or discard")
	// ErrVoiceNotSet indicates a regeneration without an assigned voice.
	ErrVoiceNotSet = errors.New("voice must be set before regenerating")
)

// RegenState is the per-line regeneration state.
type RegenState int

// Regeneration states. A line is Idle until a candidate is requested,
// Generating while the synthesis call runs, and Previewable once a candidate
// clip exists; commit and discard both return it to Idle.
const (
	RegenIdle RegenState = iota
	RegenGenerating
	RegenPreviewable
)

// String returns the state name for logs and errors.
func (s RegenState) String() string {
	switch s {
	case RegenIdle:
		return "idle"
	case RegenGenerating:
		return "generating"
	case RegenPreviewable:
		return "previewable"
	default:
		return "unknown"
	}
}

// Regeneration is the candidate-accept-or-reject workflow for one generated
// line. The candidate lives at a temp path distinct from the original, so
// the original stays intact and playable until an explicit commit. Each
// regeneration uses a unique temp name, so concurrent regenerations of
// different lines are independent.
type Regeneration struct {
	gen          *Generator
	projectName  string
	originalFile string

	mu              sync.Mutex
	state           RegenState
	candidatePath   string
	candidateParams synthesis.Params
}

// NewRegeneration creates the regeneration workflow for one line, addressed
// by the file name of its existing artifact.
func (g *Generator) NewRegeneration(projectName, originalFile string) *Regeneration {
	return &Regeneration{
		gen:             g,
		projectName:     projectName,
		originalFile:    originalFile,
		mu:              sync.Mutex{},
		state:           RegenIdle,
		candidatePath:   "",
		candidateParams: synthesis.Params{},
	}
}

// State returns the current workflow state.
func (r *Regeneration) State() RegenState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// CandidatePath returns the temp path of the previewable candidate, or an
// empty string when no candidate exists.
func (r *Regeneration) CandidatePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.candidatePath
}

// Generate produces a candidate replacement clip at a temp path. It rejects
// re-triggering while a regeneration is in flight, and requires a voice and
// a supported language; a rejected or failed call leaves the workflow Idle
// and the original artifact untouched.
func (r *Regeneration) Generate(
	ctx context.Context,
	text, voice, language string,
	params synthesis.Params,
) error {
	startErr := r.start(voice, language, params)
	if startErr != nil {
		return startErr
	}

	tempName := project.TempFilePrefix + uuid.NewString() + "_" + r.originalFile
	tempPath := r.gen.store.ArtifactPath(r.projectName, tempName)

	genErr := r.synthesizeCandidate(ctx, text, voice, language, tempPath, params)
	if genErr != nil {
		r.mu.Lock()
		r.state = RegenIdle
		r.mu.Unlock()

		return genErr
	}

	r.mu.Lock()
	r.candidatePath = tempPath
	r.candidateParams = params
	r.state = RegenPreviewable
	r.mu.Unlock()

	return nil
}

// Commit atomically replaces the original artifact with the candidate and
// updates the ledger entry's text, voice, and params. The workflow returns
// to Idle with the transient candidate state cleared.
func (r *Regeneration) Commit(newText, newVoice string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RegenPreviewable {
		return fmt.Errorf("%w: state is %s", ErrNoCandidate, r.state)
	}

	originalPath := r.gen.store.ArtifactPath(r.projectName, r.originalFile)

	renameErr := os.Rename(r.candidatePath, originalPath)
	if renameErr != nil {
		return fmt.Errorf("failed to replace original artifact: %w", renameErr)
	}

	committedParams := r.candidateParams

	updateErr := r.gen.store.UpdateEntry(
		r.projectName,
		r.originalFile,
		newText,
		newVoice,
		&committedParams,
	)
	if updateErr != nil {
		return fmt.Errorf("failed to update ledger entry: %w", updateErr)
	}

	r.clearLocked()

	return nil
}

// Discard deletes the candidate temp file and keeps the original. Removal
// is best-effort: a leftover temp file is mopped up by the store's temp
// cleanup on the next project load.
func (r *Regeneration) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RegenPreviewable {
		return fmt.Errorf("%w: state is %s", ErrNoCandidate, r.state)
	}

	removeErr := os.Remove(r.candidatePath)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		r.gen.log.Warn(
			"Failed to remove candidate %q: %v",
			r.candidatePath,
			removeErr,
		)
	}

	r.clearLocked()

	return nil
}

func (r *Regeneration) start(voice, language string, params synthesis.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RegenIdle {
		return fmt.Errorf("%w: state is %s", ErrRegenerationInFlight, r.state)
	}

	if voice == "" {
		return ErrVoiceNotSet
	}

	languageErr := synthesis.ValidateLanguage(language)
	if languageErr != nil {
		return languageErr
	}

	paramsErr := params.Validate()
	if paramsErr != nil {
		return paramsErr
	}

	r.state = RegenGenerating

	return nil
}

func (r *Regeneration) synthesizeCandidate(
	ctx context.Context,
	text, voice, language, tempPath string,
	params synthesis.Params,
) error {
	voicePath, resolveErr := r.gen.library.Resolve(voice)
	if resolveErr != nil {
		return resolveErr
	}

	return r.gen.generateAndPersist(ctx, text, voicePath, tempPath, language, params)
}

func (r *Regeneration) clearLocked() {
	r.state = RegenIdle
	r.candidatePath = ""
	r.candidateParams = synthesis.Params{}
}
