package edumastery

import "errors"

var (
	// ErrUnknownFileType is returned when an assessment file cannot be
	// classified as schema, responses, or interventions from its name.
	ErrUnknownFileType = errors.New("edumastery: could not classify assessment file")
)
