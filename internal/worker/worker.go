// Package worker provides the NATS job surface of the audiobook studio:
// the front end submits script-generation, merge, line-regeneration, and
// project-management jobs as JSON events and receives replies on the same
// request.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/audiobook-studio/internal/audiobook"
	"github.com/book-expert/audiobook-studio/internal/core"
	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/script"
	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/audiobook-studio/internal/voices"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Job timeouts. Generation covers a whole batch of synthesis calls, so its
// budget is far larger than the others.
const (
	generateJobTimeout = 30 * time.Minute
	mergeJobTimeout    = 5 * time.Minute
	regenJobTimeout    = 5 * time.Minute
)

// Static errors.
var (
	// ErrNoVoicesConfigured indicates a script submission with neither a
	// single voice nor a speaker voice map.
	ErrNoVoicesConfigured = errors.New("no single voice or voice map configured")
	// ErrUnknownRegenAction indicates a regeneration event with an action
	// other than generate, commit, or discard.
	ErrUnknownRegenAction = errors.New("unknown regeneration action")
	// ErrUnknownStudioCommand indicates a studio command the worker does
	// not implement.
	ErrUnknownStudioCommand = errors.New("unknown studio command")
)

// Subjects names the NATS subjects the worker listens on.
type Subjects struct {
	ScriptSubmitted string
	MergeRequested  string
	RegenerateLine  string
	StudioAdmin     string
}

// NatsWorker listens for studio jobs on the configured subjects and runs
// them through the audiobook pipeline. Active regeneration workflows are
// held in memory between the generate and commit/discard requests, keyed by
// project and file name.
type NatsWorker struct {
	natsConnection *nats.Conn
	subjects       Subjects
	generator      *audiobook.Generator
	merger         *audiobook.Merger
	library        *voices.Library
	blobs          core.ObjectStore
	outputDir      string
	log            *logger.Logger

	regenMu sync.Mutex
	regens  map[string]*audiobook.Regeneration
}

// NewNatsWorker creates a worker over an established NATS connection.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subjects Subjects,
	generator *audiobook.Generator,
	merger *audiobook.Merger,
	library *voices.Library,
	blobs core.ObjectStore,
	outputDir string,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subjects:       subjects,
		generator:      generator,
		merger:         merger,
		library:        library,
		blobs:          blobs,
		outputDir:      outputDir,
		log:            log,
		regenMu:        sync.Mutex{},
		regens:         make(map[string]*audiobook.Regeneration),
	}
}

// Run subscribes to every job subject and blocks until the context is
// canceled, then drains the subscriptions.
func (w *NatsWorker) Run(ctx context.Context) error {
	subscriptions := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{w.subjects.ScriptSubmitted, w.handleScriptSubmitted},
		{w.subjects.MergeRequested, w.handleMergeRequested},
		{w.subjects.RegenerateLine, w.handleRegenerateLine},
		{w.subjects.StudioAdmin, w.handleStudioCommand},
	}

	active := make([]*nats.Subscription, 0, len(subscriptions))

	for _, entry := range subscriptions {
		sub, subscribeErr := w.natsConnection.Subscribe(entry.subject, entry.handler)
		if subscribeErr != nil {
			return fmt.Errorf(
				"failed to subscribe to subject %s: %w",
				entry.subject,
				subscribeErr,
			)
		}

		active = append(active, sub)
	}

	<-ctx.Done()

	for _, sub := range active {
		drainErr := sub.Drain()
		if drainErr != nil {
			return fmt.Errorf("failed to drain subscription: %w", drainErr)
		}
	}

	return nil
}

func (w *NatsWorker) handleScriptSubmitted(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), generateJobTimeout)
	defer cancel()

	var event ScriptSubmittedEvent

	unmarshalErr := json.Unmarshal(msg.Data, &event)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal script event: %v", unmarshalErr)

		return
	}

	reply := LinesGeneratedEvent{
		Header:    event.Header,
		Project:   event.Project,
		Generated: 0,
		Skipped:   0,
		Failed:    0,
		Error:     "",
	}

	result, jobErr := w.processScriptJob(ctx, &event)
	if jobErr != nil {
		w.log.Error(
			"Script job failed for workflow %s: %v",
			event.Header.WorkflowID,
			jobErr,
		)

		reply.Error = jobErr.Error()
	} else {
		reply.Generated = result.Generated
		reply.Skipped = result.Skipped
		reply.Failed = result.Failed
	}

	w.respond(msg, &reply, event.Header.WorkflowID)
}

func (w *NatsWorker) handleMergeRequested(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), mergeJobTimeout)
	defer cancel()

	var event MergeRequestedEvent

	unmarshalErr := json.Unmarshal(msg.Data, &event)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal merge event: %v", unmarshalErr)

		return
	}

	reply := AudiobookMergedEvent{
		Header:       event.Header,
		Project:      event.Project,
		OutputFile:   "",
		AudiobookKey: "",
		Error:        "",
	}

	outputFile, audiobookKey, jobErr := w.processMergeJob(ctx, &event)
	if jobErr != nil {
		w.log.Error(
			"Merge job failed for workflow %s: %v",
			event.Header.WorkflowID,
			jobErr,
		)

		reply.Error = jobErr.Error()
	} else {
		reply.OutputFile = outputFile
		reply.AudiobookKey = audiobookKey
	}

	w.respond(msg, &reply, event.Header.WorkflowID)
}

// processScriptJob parses the submitted script in the requested mode and
// runs bulk generation.
func (w *NatsWorker) processScriptJob(
	ctx context.Context,
	event *ScriptSubmittedEvent,
) (audiobook.BatchResult, error) {
	var lines []project.LineRecord

	switch {
	case event.SingleVoice != "":
		lines = script.ParseSingleVoice(
			event.Script,
			event.SingleVoice,
			synthesis.MaxChars,
		)
	case len(event.VoiceMap) > 0:
		lines = script.ParseMultiSpeaker(
			event.Script,
			event.VoiceMap,
			synthesis.MaxChars,
		)
	default:
		return audiobook.BatchResult{}, ErrNoVoicesConfigured
	}

	result, genErr := w.generator.GenerateLines(
		ctx,
		event.Project,
		event.Language,
		lines,
		event.Params,
	)
	if genErr != nil {
		return result, fmt.Errorf("failed to generate lines: %w", genErr)
	}

	return result, nil
}

// processMergeJob merges the project's clips and uploads the result to the
// object store for delivery, returning the output filename and the object
// key.
func (w *NatsWorker) processMergeJob(
	ctx context.Context,
	event *MergeRequestedEvent,
) (string, string, error) {
	overrides := w.generator.Store().LoadLedger(event.Project)

	for i := range overrides {
		pause, overridden := event.PauseOverrides[overrides[i].FileName]
		if overridden {
			overrides[i].Pause = pause
		}
	}

	outputFile, mergeErr := w.merger.Merge(event.Project, overrides)
	if mergeErr != nil {
		return "", "", fmt.Errorf("failed to merge project: %w", mergeErr)
	}

	mergedData, readErr := os.ReadFile(filepath.Join(w.outputDir, outputFile))
	if readErr != nil {
		return "", "", fmt.Errorf("failed to read merged audiobook: %w", readErr)
	}

	audiobookKey := uuid.NewString() + ".wav"

	uploadErr := w.blobs.Upload(ctx, audiobookKey, mergedData)
	if uploadErr != nil {
		return "", "", fmt.Errorf(
			"failed to upload audiobook for key '%s': %w",
			audiobookKey,
			uploadErr,
		)
	}

	return outputFile, audiobookKey, nil
}

func (w *NatsWorker) handleRegenerateLine(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), regenJobTimeout)
	defer cancel()

	var event RegenerateLineEvent

	unmarshalErr := json.Unmarshal(msg.Data, &event)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal regeneration event: %v", unmarshalErr)

		return
	}

	reply := LineRegeneratedEvent{
		Header:       event.Header,
		Project:      event.Project,
		FileName:     event.FileName,
		State:        "",
		CandidateKey: "",
		Error:        "",
	}

	candidateKey, jobErr := w.processRegenJob(ctx, &event)
	if jobErr != nil {
		w.log.Error(
			"Regeneration %s failed for workflow %s: %v",
			event.Action,
			event.Header.WorkflowID,
			jobErr,
		)

		reply.Error = jobErr.Error()
	}

	reply.State = w.regenState(event.Project, event.FileName)
	reply.CandidateKey = candidateKey

	w.respond(msg, &reply, event.Header.WorkflowID)
}

// processRegenJob dispatches one regeneration action. A successful generate
// uploads the candidate clip to the object store and returns its key so the
// front end can play the preview.
func (w *NatsWorker) processRegenJob(
	ctx context.Context,
	event *RegenerateLineEvent,
) (string, error) {
	regen := w.regenFor(event.Project, event.FileName)

	switch event.Action {
	case RegenActionGenerate:
		return w.generateCandidate(ctx, regen, event)
	case RegenActionCommit:
		commitErr := regen.Commit(event.Text, event.Voice)
		if commitErr != nil {
			return "", fmt.Errorf("failed to commit candidate: %w", commitErr)
		}

		w.dropRegen(event.Project, event.FileName)

		return "", nil
	case RegenActionDiscard:
		discardErr := regen.Discard()
		if discardErr != nil {
			return "", fmt.Errorf("failed to discard candidate: %w", discardErr)
		}

		w.dropRegen(event.Project, event.FileName)

		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRegenAction, event.Action)
	}
}

func (w *NatsWorker) generateCandidate(
	ctx context.Context,
	regen *audiobook.Regeneration,
	event *RegenerateLineEvent,
) (string, error) {
	genErr := regen.Generate(
		ctx,
		event.Text,
		event.Voice,
		event.Language,
		event.Params,
	)
	if genErr != nil {
		return "", fmt.Errorf("failed to generate candidate: %w", genErr)
	}

	candidateData, readErr := os.ReadFile(regen.CandidatePath())
	if readErr != nil {
		return "", fmt.Errorf("failed to read candidate clip: %w", readErr)
	}

	candidateKey := uuid.NewString() + ".wav"

	uploadErr := w.blobs.Upload(ctx, candidateKey, candidateData)
	if uploadErr != nil {
		return "", fmt.Errorf(
			"failed to upload candidate for key '%s': %w",
			candidateKey,
			uploadErr,
		)
	}

	return candidateKey, nil
}

// regenFor returns the regeneration workflow for one line, creating it on
// first use.
func (w *NatsWorker) regenFor(projectName, fileName string) *audiobook.Regeneration {
	key := projectName + "/" + fileName

	w.regenMu.Lock()
	defer w.regenMu.Unlock()

	regen, exists := w.regens[key]
	if !exists {
		regen = w.generator.NewRegeneration(projectName, fileName)
		w.regens[key] = regen
	}

	return regen
}

// regenState reports the workflow state for one line without creating a
// registry entry. Lines with no active workflow are idle.
func (w *NatsWorker) regenState(projectName, fileName string) string {
	w.regenMu.Lock()
	defer w.regenMu.Unlock()

	regen, exists := w.regens[projectName+"/"+fileName]
	if !exists {
		return audiobook.RegenIdle.String()
	}

	return regen.State().String()
}

func (w *NatsWorker) dropRegen(projectName, fileName string) {
	w.regenMu.Lock()
	defer w.regenMu.Unlock()

	delete(w.regens, projectName+"/"+fileName)
}

func (w *NatsWorker) handleStudioCommand(msg *nats.Msg) {
	var event StudioCommandEvent

	unmarshalErr := json.Unmarshal(msg.Data, &event)
	if unmarshalErr != nil {
		w.log.Error("Failed to unmarshal studio command: %v", unmarshalErr)

		return
	}

	reply := StudioStatusEvent{
		Header:   event.Header,
		Command:  event.Command,
		Project:  event.Project,
		Projects: nil,
		Speakers: nil,
		Voices:   nil,
		Removed:  0,
		Error:    "",
	}

	commandErr := w.processStudioCommand(&event, &reply)
	if commandErr != nil {
		w.log.Error(
			"Studio command %q failed for workflow %s: %v",
			event.Command,
			event.Header.WorkflowID,
			commandErr,
		)

		reply.Error = commandErr.Error()
	}

	w.respond(msg, &reply, event.Header.WorkflowID)
}

// processStudioCommand runs one project-management command, filling the
// reply fields the command produces.
func (w *NatsWorker) processStudioCommand(
	event *StudioCommandEvent,
	reply *StudioStatusEvent,
) error {
	switch event.Command {
	case CommandListProjects:
		projects, listErr := w.generator.Store().List()
		if listErr != nil {
			return fmt.Errorf("failed to list projects: %w", listErr)
		}

		reply.Projects = projects

		return nil
	case CommandDeleteProject:
		deleteErr := w.generator.Store().Delete(event.Project)
		if deleteErr != nil {
			return fmt.Errorf("failed to delete project: %w", deleteErr)
		}

		return nil
	case CommandCleanupProject:
		reply.Removed = w.generator.Store().CleanupTemp(event.Project)

		return nil
	case CommandDetectSpeakers:
		reply.Speakers = script.DetectSpeakers(event.Script)

		return nil
	case CommandListVoices:
		reply.Voices = w.library.List()

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStudioCommand, event.Command)
	}
}

func (w *NatsWorker) respond(msg *nats.Msg, reply any, workflowID string) {
	replyData, marshalErr := json.Marshal(reply)
	if marshalErr != nil {
		w.log.Error(
			"Failed to marshal reply for workflow %s: %v",
			workflowID,
			marshalErr,
		)

		return
	}

	respondErr := msg.Respond(replyData)
	if respondErr != nil {
		w.log.Error(
			"Failed to publish reply for workflow %s: %v",
			workflowID,
			respondErr,
		)
	}
}
