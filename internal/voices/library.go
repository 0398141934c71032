// Package voices manages the reference voice library: a flat directory of
// short audio clips used to condition synthesis toward a target voice.
package voices

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
)

// File extension constants for recognized reference clips.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

const invalidCharReplacement = "_"

// Static errors.
var (
	// ErrVoiceNameEmpty indicates a lookup without a voice name.
	ErrVoiceNameEmpty = errors.New("voice name cannot be empty")
	// ErrVoiceNotFound indicates the named clip is not in the library.
	ErrVoiceNotFound = errors.New("voice not found in library")
	// ErrVoiceNameInvalid indicates a voice name that would escape the
	// library directory.
	ErrVoiceNameInvalid = errors.New("voice name contains invalid characters")
)

// Library enumerates and resolves reference clips in a single directory.
type Library struct {
	dir string
	log *logger.Logger
}

// NewLibrary creates a library over the given directory.
func NewLibrary(dir string, log *logger.Logger) *Library {
	return &Library{
		dir: dir,
		log: log,
	}
}

// Dir returns the library directory.
func (l *Library) Dir() string {
	return l.dir
}

// List returns the file names of all reference clips in the library. A
// missing library directory is logged and yields an empty list, since an
// empty library is a normal state for a fresh installation.
func (l *Library) List() []string {
	entries, readErr := os.ReadDir(l.dir)
	if readErr != nil {
		l.log.Warn("Failed to read voice library %q: %v", l.dir, readErr)

		return nil
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() || !IsAudioFile(entry.Name()) {
			continue
		}

		names = append(names, entry.Name())
	}

	return names
}

// Resolve returns the absolute path of the named reference clip, verifying
// that the clip exists so generation fails fast on a stale assignment.
func (l *Library) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrVoiceNameEmpty
	}

	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrVoiceNameInvalid, name)
	}

	path := filepath.Join(l.dir, name)

	_, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", fmt.Errorf("%w: %q", ErrVoiceNotFound, name)
		}

		return "", fmt.Errorf("failed to stat voice %q: %w", name, statErr)
	}

	return path, nil
}

// IsAudioFile checks if a filename has a recognized audio extension.
func IsAudioFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// SanitizeFilename removes or replaces characters that are invalid in most
// filesystems, for uploaded reference clips named by the user.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}
