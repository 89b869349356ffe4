package gemini

import "fmt"

// UploadError wraps a transport or rejection failure while transmitting an
// artifact to the remote service. Uploads are single-attempt; the enclosing
// interaction fails visibly and the user retries by re-uploading.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload asset: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// AssetProcessingError reports that a remote asset never became usable,
// either a failed terminal state or an exhausted polling bound. State carries
// the service's own vocabulary as diagnostic detail.
type AssetProcessingError struct {
	Name  string
	State string
}

func (e *AssetProcessingError) Error() string {
	return fmt.Sprintf("remote asset %s did not become ready: state %s", e.Name, e.State)
}

// InferenceError wraps a failed remote model call (network, quota, malformed
// content). The session transcript is left untouched when it occurs.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return fmt.Sprintf("model call failed: %v", e.Err) }
func (e *InferenceError) Unwrap() error { return e.Err }
