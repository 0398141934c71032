package audiobook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/wavio"
	"github.com/book-expert/logger"
)

// mergedNameFormat names the combined output file for one project.
const mergedNameFormat = "%s_merged.wav"

const outputDirPermissions = 0o750

// Static errors.
var (
	// ErrNoSpeakerLines indicates a merge request without any lines.
	ErrNoSpeakerLines = errors.New("no speaker lines available")
	// ErrProjectEmpty indicates a merge on a project whose ledger is empty
	// or missing.
	ErrProjectEmpty = errors.New("project is empty or metadata missing")
	// ErrNoValidAudio indicates that none of the ledger's clips could be
	// read.
	ErrNoValidAudio = errors.New("no valid audio found to merge")
	// ErrSampleRateMismatch indicates clips generated at different sample
	// rates, which the merge refuses to concatenate silently.
	ErrSampleRateMismatch = errors.New("sample rate mismatch between clips")
	// ErrFormatMismatch indicates clips with differing channel count or
	// bit depth, which cannot share one interleaved data stream.
	ErrFormatMismatch = errors.New("audio format mismatch between clips")
)

// Merger concatenates a project's generated clips, in ledger order, into a
// single audiobook file with per-line silence between clips.
type Merger struct {
	store     *project.Store
	outputDir string
	log       *logger.Logger
}

// NewMerger creates a merger that writes combined files to outputDir.
func NewMerger(store *project.Store, outputDir string, log *logger.Logger) *Merger {
	return &Merger{
		store:     store,
		outputDir: outputDir,
		log:       log,
	}
}

// Merge reads every generated clip of the project and concatenates them in
// ledger order, inserting each line's pause as silence. The overrides let
// the caller adjust pause durations without rewriting the ledger: they are
// keyed by file name and never change ordering. Missing files are skipped
// with a log message. The first readable clip's format is canonical; a
// later clip differing in sample rate, channel count, or bit depth is a
// configuration error. Returns the merged output filename.
func (m *Merger) Merge(
	projectName string,
	overrides []project.LineRecord,
) (string, error) {
	nameErr := project.ValidateName(projectName)
	if nameErr != nil {
		return "", nameErr
	}

	if len(overrides) == 0 {
		return "", ErrNoSpeakerLines
	}

	ledger := m.store.LoadLedger(projectName)
	if len(ledger) == 0 {
		return "", ErrProjectEmpty
	}

	pauses := make(map[string]float64, len(overrides))

	for _, line := range overrides {
		if line.Generated() {
			pauses[line.FileName] = line.Pause
		}
	}

	combined, assembleErr := m.assemble(projectName, ledger, pauses)
	if assembleErr != nil {
		return "", assembleErr
	}

	return m.writeMerged(projectName, combined)
}

// assemble walks the ledger in order and accumulates clip data plus
// per-line silence into one clip.
func (m *Merger) assemble(
	projectName string,
	ledger []project.LineRecord,
	pauses map[string]float64,
) (*wavio.Clip, error) {
	var combined *wavio.Clip

	for _, record := range ledger {
		if !record.Generated() {
			continue
		}

		path := m.store.ArtifactPath(projectName, record.FileName)

		_, statErr := os.Stat(path)
		if statErr != nil {
			m.log.Warn("Skipping missing file: %s", record.FileName)

			continue
		}

		clip, readErr := wavio.ReadFile(path)
		if readErr != nil {
			m.log.Error("Error processing %s: %v", record.FileName, readErr)

			continue
		}

		if combined == nil {
			combined = &wavio.Clip{
				SampleRate:    clip.SampleRate,
				Channels:      clip.Channels,
				BitsPerSample: clip.BitsPerSample,
				Data:          append([]byte(nil), clip.Data...),
			}
		} else {
			if clip.SampleRate != combined.SampleRate {
				return nil, fmt.Errorf(
					"%w: %s has %d Hz, expected %d Hz",
					ErrSampleRateMismatch,
					record.FileName,
					clip.SampleRate,
					combined.SampleRate,
				)
			}

			if clip.Channels != combined.Channels ||
				clip.BitsPerSample != combined.BitsPerSample {
				return nil, fmt.Errorf(
					"%w: %s has %d ch/%d bit, expected %d ch/%d bit",
					ErrFormatMismatch,
					record.FileName,
					clip.Channels,
					clip.BitsPerSample,
					combined.Channels,
					combined.BitsPerSample,
				)
			}

			combined.Append(clip)
		}

		pause, overridden := pauses[record.FileName]
		if !overridden {
			pause = record.Pause
		}

		combined.AppendSilence(pause)
	}

	if combined == nil {
		return nil, ErrNoValidAudio
	}

	return combined, nil
}

func (m *Merger) writeMerged(projectName string, combined *wavio.Clip) (string, error) {
	mkdirErr := os.MkdirAll(m.outputDir, outputDirPermissions)
	if mkdirErr != nil {
		return "", fmt.Errorf("failed to create output directory: %w", mkdirErr)
	}

	outputName := fmt.Sprintf(mergedNameFormat, projectName)
	outputPath := filepath.Join(m.outputDir, outputName)

	writeErr := wavio.WriteFile(outputPath, combined)
	if writeErr != nil {
		return "", fmt.Errorf("failed to write merged audiobook: %w", writeErr)
	}

	m.log.Info("Merged %q into %s", projectName, outputPath)

	return outputName, nil
}
