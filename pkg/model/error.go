package model

// GenerationFailedError wraps a model collaborator failure
// (unreachable service, malformed response) observed mid-run. The
// engine surfaces it without retrying; retry policy belongs to the
// caller.
type GenerationFailedError struct {
	Err error
}

func (e *GenerationFailedError) Error() string {
	if e.Err == nil {
		return "generation failed"
	}

	return "generation failed: " + e.Err.Error()
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }
