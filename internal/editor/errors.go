package editor

import "fmt"

// ValidationError reports bad local input: an empty project name, a file
// path collision, or an action attempted in an illegal state. Validation
// failures are returned synchronously to the caller and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NotFoundError reports an unknown project or file id
type NotFoundError struct {
	Kind string // "project" or "file"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NetworkError wraps a transport failure from a remote call. Eligible for
// user-initiated retry; the store never retries it automatically.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ConflictError reports a stale save: the external store holds a newer
// version of the project than the one the client loaded.
type ConflictError struct {
	ProjectID     string
	LocalVersion  int64
	RemoteVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("project %s has version %d remotely but %d locally", e.ProjectID, e.RemoteVersion, e.LocalVersion)
}
