package project

import (
	"fmt"
	"regexp"
	"strconv"
)

// artifactNameFormat produces the per-line artifact name for one project and
// sequence number, e.g. "mybook_007.wav".
const artifactNameFormat = "%s_%03d.wav"

// ArtifactName builds the audio artifact filename for the given project and
// sequence number.
func ArtifactName(projectName string, sequence int) string {
	return fmt.Sprintf(artifactNameFormat, projectName, sequence)
}

// NextSequence derives the next safe numeric suffix for generated filenames
// in the project. It scans every file name in the ledger for the
// "{project}_<digits>" pattern and returns one more than the highest match,
// or 1 when nothing matches. Gaps left by deletions are expected and never
// reused, which keeps new filenames collision-free.
func NextSequence(ledger []LineRecord, projectName string) int {
	pattern := regexp.MustCompile(regexp.QuoteMeta(projectName) + `_(\d+)`)

	maxSeen := 0

	for _, record := range ledger {
		match := pattern.FindStringSubmatch(record.FileName)
		if match == nil {
			continue
		}

		num, convErr := strconv.Atoi(match[1])
		if convErr != nil {
			continue
		}

		if num > maxSeen {
			maxSeen = num
		}
	}

	return maxSeen + 1
}
