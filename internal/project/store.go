package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/logger"
)

// Ledger and artifact naming.
const (
	// MetadataFileName is the ledger file inside every project directory.
	MetadataFileName = "metadata.json"

	// TempFilePrefix marks transient candidate artifacts inside a project
	// directory. Files carrying it are removed by CleanupTemp.
	TempFilePrefix = "temp_"

	ledgerTempSuffix = ".tmp"

	filePermissions = 0o600
	dirPermissions  = 0o750

	ledgerIndent = "    "
)

// Static errors.
var (
	// ErrProjectNameEmpty indicates an operation without a project name.
	ErrProjectNameEmpty = errors.New("project name cannot be empty")
	// ErrProjectNameInvalid indicates a project name that would escape the
	// projects root.
	ErrProjectNameInvalid = errors.New("project name contains invalid characters")
)

// Store manages project directories under a single projects root and the
// metadata ledger inside each of them. It assumes a single active editor per
// project; concurrent sessions mutating the same ledger can race on
// read-modify-write.
type Store struct {
	root string
	log  *logger.Logger
}

// NewStore creates a store rooted at the given projects directory.
func NewStore(root string, log *logger.Logger) *Store {
	return &Store{
		root: root,
		log:  log,
	}
}

// Root returns the projects root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory of the named project.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// ArtifactPath returns the path of an audio artifact within a project.
func (s *Store) ArtifactPath(name, fileName string) string {
	return filepath.Join(s.root, name, fileName)
}

// ValidateName rejects empty names and names that would resolve outside the
// projects root.
func ValidateName(name string) error {
	if name == "" {
		return ErrProjectNameEmpty
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrProjectNameInvalid, name)
	}

	return nil
}

// EnsureExists creates the project directory if absent and reports whether
// it was newly created, so the caller can surface a one-time notification.
func (s *Store) EnsureExists(name string) (bool, error) {
	nameErr := ValidateName(name)
	if nameErr != nil {
		return false, nameErr
	}

	dir := s.Dir(name)

	_, statErr := os.Stat(dir)
	if statErr == nil {
		return false, nil
	}

	if !os.IsNotExist(statErr) {
		return false, fmt.Errorf("failed to stat project directory: %w", statErr)
	}

	mkdirErr := os.MkdirAll(dir, dirPermissions)
	if mkdirErr != nil {
		return false, fmt.Errorf("failed to create project directory: %w", mkdirErr)
	}

	return true, nil
}

// List enumerates existing project names. Any subdirectory of the projects
// root is a project. The root itself is created on first use.
func (s *Store) List() ([]string, error) {
	mkdirErr := os.MkdirAll(s.root, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create projects root: %w", mkdirErr)
	}

	entries, readErr := os.ReadDir(s.root)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read projects root: %w", readErr)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

// Delete removes the project directory and all artifacts inside it. This is
// irreversible and must be gated behind explicit confirmation upstream;
// failures are surfaced to the caller because deletion is a deliberate
// destructive action.
func (s *Store) Delete(name string) error {
	nameErr := ValidateName(name)
	if nameErr != nil {
		return nameErr
	}

	removeErr := os.RemoveAll(s.Dir(name))
	if removeErr != nil {
		return fmt.Errorf("failed to delete project %q: %w", name, removeErr)
	}

	return nil
}

// LoadLedger returns the ordered line records of the named project. A
// missing project, missing ledger, or unparsable ledger yields an empty
// sequence: corruption is logged, never raised, and the store self-heals by
// writing a fresh ledger on the next successful save.
func (s *Store) LoadLedger(name string) []LineRecord {
	nameErr := ValidateName(name)
	if nameErr != nil {
		return nil
	}

	raw, readErr := os.ReadFile(s.ledgerPath(name))
	if readErr != nil {
		if !os.IsNotExist(readErr) {
			s.log.Warn("Failed to read ledger for project %q: %v", name, readErr)
		}

		return nil
	}

	var records []LineRecord

	unmarshalErr := json.Unmarshal(raw, &records)
	if unmarshalErr != nil {
		s.log.Error(
			"Corrupt ledger for project %q, treating as empty: %v",
			name,
			unmarshalErr,
		)

		return nil
	}

	return records
}

// SaveLedger persists the full ordered ledger atomically: the JSON is
// written to a temp path and renamed into place so a failure never leaves a
// partially-written ledger behind.
func (s *Store) SaveLedger(name string, records []LineRecord) error {
	nameErr := ValidateName(name)
	if nameErr != nil {
		return nameErr
	}

	encoded, marshalErr := json.MarshalIndent(records, "", ledgerIndent)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal ledger: %w", marshalErr)
	}

	ledgerPath := s.ledgerPath(name)
	tempPath := ledgerPath + ledgerTempSuffix

	writeErr := os.WriteFile(tempPath, encoded, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write ledger temp file: %w", writeErr)
	}

	renameErr := os.Rename(tempPath, ledgerPath)
	if renameErr != nil {
		removeErr := os.Remove(tempPath)
		if removeErr != nil {
			s.log.Warn("Failed to remove ledger temp file: %v", removeErr)
		}

		return fmt.Errorf("failed to rename ledger into place: %w", renameErr)
	}

	return nil
}

// AppendEntries merges new records onto the end of the existing ledger and
// persists the result atomically.
func (s *Store) AppendEntries(name string, newRecords []LineRecord) error {
	if len(newRecords) == 0 {
		return nil
	}

	existing := s.LoadLedger(name)

	return s.SaveLedger(name, append(existing, newRecords...))
}

// UpdateEntry locates the ledger entry with the given file name and replaces
// its text, voice, and params in place, then persists. A file name with no
// matching entry is a no-op.
func (s *Store) UpdateEntry(
	name, fileName, newText, newVoice string,
	newParams *synthesis.Params,
) error {
	records := s.LoadLedger(name)

	updated := false

	for i := range records {
		if records[i].FileName == fileName {
			records[i].Text = newText
			records[i].Voice = newVoice
			records[i].Params = newParams
			updated = true

			break
		}
	}

	if !updated {
		return nil
	}

	return s.SaveLedger(name, records)
}

// CleanupTemp removes all temp-prefixed files in the project directory.
// Cleanup is best-effort: individual deletion failures are logged, never
// raised, and the number of removed files is returned.
func (s *Store) CleanupTemp(name string) int {
	nameErr := ValidateName(name)
	if nameErr != nil {
		return 0
	}

	entries, readErr := os.ReadDir(s.Dir(name))
	if readErr != nil {
		return 0
	}

	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), TempFilePrefix) {
			continue
		}

		removeErr := os.Remove(filepath.Join(s.Dir(name), entry.Name()))
		if removeErr != nil {
			s.log.Warn(
				"Failed to remove temp file %q in project %q: %v",
				entry.Name(),
				name,
				removeErr,
			)

			continue
		}

		removed++
	}

	if removed > 0 {
		s.log.Info("Cleaned up %d temporary files in project %q", removed, name)
	}

	return removed
}

func (s *Store) ledgerPath(name string) string {
	return filepath.Join(s.root, name, MetadataFileName)
}
