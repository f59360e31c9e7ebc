package workspace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
)

// MarkerName is written at the output root after every clean.
const MarkerName = ".docstage"

// ErrAborted is returned when the user declines the confirmation prompt.
var ErrAborted = errors.AbortedError("aborted by user; output root left untouched").Build()

// Prompt asks a yes/no question.
type Prompt func(question string) (bool, error)

// IsOwned reports whether target carries the marker file.
func IsOwned(target string) bool {
	info, err := os.Stat(filepath.Join(target, MarkerName))
	return err == nil && info.Mode().IsRegular()
}

// NeedsConfirmation reports whether target exists with content but without the marker.
func NeedsConfirmation(target string) (bool, error) {
	entries, err := os.ReadDir(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if info, statErr := os.Stat(target); statErr == nil && !info.IsDir() {
			return false, errors.SafetyError("output root exists and is not a directory").
				WithContext("path", target).Build()
		}
		return false, errors.WrapError(err, errors.CategoryFileSystem, "cannot inspect output root").
			WithContext("path", target).Fatal().Build()
	}
	return len(entries) > 0 && !IsOwned(target), nil
}

const markerBody = "# Managed by docstage. The contents of this directory are replaced on every run.\n"

// WriteMarker records ownership of target. The marker content is constant so repeated runs
// produce identical trees.
func WriteMarker(target string) error {
	if err := os.WriteFile(filepath.Join(target, MarkerName), []byte(markerBody), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write ownership marker").
			WithContext("path", target).Fatal().Build()
	}
	return nil
}

// StdPrompt asks on out and reads one line from in. Only y or yes, in any case, confirms.
func StdPrompt(in io.Reader, out io.Writer) Prompt {
	reader := bufio.NewReader(in)
	return func(question string) (bool, error) {
		if _, err := fmt.Fprintf(out, "%s [y/N]: ", question); err != nil {
			return false, err
		}
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}
