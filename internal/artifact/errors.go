package artifact

import (
	"fmt"
	"strings"
)

// MissingFilesError enumerates required artifact files that are absent from
// the bundle directory.
type MissingFilesError struct {
	Dir   string
	Files []string
}

func (e *MissingFilesError) Error() string {
	return fmt.Sprintf("missing artifact files in %s: %s", e.Dir, strings.Join(e.Files, ", "))
}

// InvalidResourceError wraps a decode or content failure for one artifact
// file.
type InvalidResourceError struct {
	File string
	Err  error
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("invalid artifact %s: %v", e.File, e.Err)
}

func (e *InvalidResourceError) Unwrap() error { return e.Err }

// ConfigMismatchError reports a fatal disagreement between the hard-coded
// regression feature list and a persisted artifact. It halts startup rather
// than surfacing per-request failures.
type ConfigMismatchError struct {
	Reason string
}

func (e *ConfigMismatchError) Error() string {
	return "artifact configuration mismatch: " + e.Reason
}
