// Package audiobook orchestrates the assembly pipeline: bulk line
// generation against the synthesis service, the per-line regeneration
// workflow, and the final merge of a project's clips into one audiobook
// file.
package audiobook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/book-expert/audiobook-studio/internal/core"
	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/audiobook-studio/internal/voices"
	"github.com/book-expert/logger"
)

const artifactPermissions = 0o600

// Static errors.
var (
	// ErrNoLines indicates a generation request without any parsed lines.
	ErrNoLines = errors.New("no lines to generate")
)

// Log formats.
const (
	logFmtSkippingVoiceless = "Skipping line %q: no voice assigned"
	logFmtLineFailed        = "Failed to generate line %q: %v"
	logFmtLineGenerated     = "Generated %s for line %q"
	logFmtBatchDone         = "Batch for project %q done: %d generated, %d skipped, %d failed"
	logFmtProjectCreated    = "Created new project: %s"
)

// Generator produces per-line audio artifacts by invoking the synthesis
// service and recording successes in the project ledger.
type Generator struct {
	synth   core.Synthesizer
	store   *project.Store
	library *voices.Library
	workers int
	timeout time.Duration
	log     *logger.Logger
}

// NewGenerator creates a generator. The worker count bounds how many
// synthesis calls run concurrently during bulk generation; the timeout
// applies to each individual call.
func NewGenerator(
	synth core.Synthesizer,
	store *project.Store,
	library *voices.Library,
	workers int,
	timeout time.Duration,
	log *logger.Logger,
) *Generator {
	if workers < 1 {
		workers = 1
	}

	return &Generator{
		synth:   synth,
		store:   store,
		library: library,
		workers: workers,
		timeout: timeout,
		log:     log,
	}
}

// Store returns the project store the generator writes to.
func (g *Generator) Store() *project.Store {
	return g.store
}

// BatchResult summarizes one bulk generation run.
type BatchResult struct {
	Generated int
	Skipped   int
	Failed    int
}

// target is one line scheduled for generation, with its filename allocated
// up front so parallel synthesis cannot produce colliding names.
type target struct {
	index     int
	fileName  string
	voicePath string
}

// GenerateLines synthesizes every line that has an assigned voice and
// appends one ledger entry per success, in line order. Sequence numbers are
// allocated once at batch start and incremented locally. One failing line
// never aborts the batch: failures are logged and counted, and the ledger
// receives no entry for them. Lines without a voice are skipped with a
// warning. On success the corresponding input record's FileName is set in
// place.
func (g *Generator) GenerateLines(
	ctx context.Context,
	projectName, language string,
	lines []project.LineRecord,
	params synthesis.Params,
) (BatchResult, error) {
	result := BatchResult{Generated: 0, Skipped: 0, Failed: 0}

	if len(lines) == 0 {
		return result, ErrNoLines
	}

	languageErr := synthesis.ValidateLanguage(language)
	if languageErr != nil {
		return result, languageErr
	}

	paramsErr := params.Validate()
	if paramsErr != nil {
		return result, paramsErr
	}

	created, ensureErr := g.store.EnsureExists(projectName)
	if ensureErr != nil {
		return result, ensureErr
	}

	if created {
		g.log.Info(logFmtProjectCreated, projectName)
	}

	targets, skipped := g.planBatch(projectName, lines)
	result.Skipped = skipped

	failures := g.runBatch(ctx, projectName, language, lines, targets, params)

	newEntries := make([]project.LineRecord, 0, len(targets))

	for i, tgt := range targets {
		if failures[i] != nil {
			g.log.Error(logFmtLineFailed, preview(lines[tgt.index].Text), failures[i])

			result.Failed++

			continue
		}

		lines[tgt.index].FileName = tgt.fileName

		entry := lines[tgt.index]
		entryParams := params
		entry.Params = &entryParams

		newEntries = append(newEntries, entry)
		result.Generated++

		g.log.Info(logFmtLineGenerated, tgt.fileName, preview(entry.Text))
	}

	appendErr := g.store.AppendEntries(projectName, newEntries)
	if appendErr != nil {
		return result, fmt.Errorf("failed to persist ledger entries: %w", appendErr)
	}

	g.log.Info(
		logFmtBatchDone,
		projectName,
		result.Generated,
		result.Skipped,
		result.Failed,
	)

	return result, nil
}

// planBatch allocates output filenames for every line that can be
// generated. Allocation happens exactly once per batch, against the ledger
// as it stands at batch start.
func (g *Generator) planBatch(
	projectName string,
	lines []project.LineRecord,
) ([]target, int) {
	ledger := g.store.LoadLedger(projectName)
	sequence := project.NextSequence(ledger, projectName)

	var targets []target

	skipped := 0

	for i := range lines {
		if !lines[i].HasVoice() {
			g.log.Warn(logFmtSkippingVoiceless, preview(lines[i].Text))

			skipped++

			continue
		}

		targets = append(targets, target{
			index:     i,
			fileName:  project.ArtifactName(projectName, sequence),
			voicePath: "",
		})
		sequence++
	}

	return targets, skipped
}

// runBatch dispatches the planned targets to a bounded worker pool and
// returns one error slot per target.
func (g *Generator) runBatch(
	ctx context.Context,
	projectName, language string,
	lines []project.LineRecord,
	targets []target,
	params synthesis.Params,
) []error {
	failures := make([]error, len(targets))
	pool := make(chan struct{}, g.workers)

	var waitGroup sync.WaitGroup

	for i := range targets {
		waitGroup.Add(1)

		go func(slot int) {
			defer waitGroup.Done()

			pool <- struct{}{}

			defer func() { <-pool }()

			tgt := targets[slot]
			line := lines[tgt.index]

			voicePath, resolveErr := g.library.Resolve(line.Voice)
			if resolveErr != nil {
				failures[slot] = resolveErr

				return
			}

			outputPath := g.store.ArtifactPath(projectName, tgt.fileName)
			failures[slot] = g.generateAndPersist(
				ctx,
				line.Text,
				voicePath,
				outputPath,
				language,
				params,
			)
		}(i)
	}

	waitGroup.Wait()

	return failures
}

// generateAndPersist runs one synthesis call and writes the returned WAV to
// the output path. On any failure nothing is persisted for the line; the
// caller decides whether to skip it or surface the error.
func (g *Generator) generateAndPersist(
	ctx context.Context,
	text, voicePath, outputPath, language string,
	params synthesis.Params,
) error {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := synthesis.Request{
		Text:           text,
		Language:       language,
		SpeakerRefPath: voicePath,
		Params:         params,
	}

	audioData, speechErr := g.synth.GenerateSpeech(callCtx, req)
	if speechErr != nil {
		return fmt.Errorf("failed to generate speech: %w", speechErr)
	}

	writeErr := os.WriteFile(outputPath, audioData, artifactPermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	return nil
}

const previewLength = 20

// preview shortens line text for log messages.
func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}

	return text[:previewLength] + "..."
}
