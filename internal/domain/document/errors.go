package document

import (
	"errors"
	"fmt"
)

// Structural errors. Processing stops and no derived view is produced.
var (
	ErrMalformedJSON   = errors.New("document is not valid JSON")
	ErrNotAnObject     = errors.New("document root must be a JSON object")
	ErrMissingProfiles = errors.New("document must contain a \"profiles\" list")
	ErrMissingNatures  = errors.New("document must contain a \"natures\" list")
)

// ValidationError is the first schema violation found by a strict parse
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Reason)
}

// IsStructural reports whether err means the upload is unusable as a whole
func IsStructural(err error) bool {
	return errors.Is(err, ErrMalformedJSON) ||
		errors.Is(err, ErrNotAnObject) ||
		errors.Is(err, ErrMissingProfiles) ||
		errors.Is(err, ErrMissingNatures)
}
