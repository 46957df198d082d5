package cmd

import (
	"errors"
	"fmt"
	"strings"

	"vidflow/domain/failure"
	"vidflow/domain/media"
	"vidflow/domain/preset"
)

// ValidationError contains details about a validation failure with suggestions
type ValidationError struct {
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s\n\nTo fix this, run:\n  %s", e.Message, e.Suggestion)
	}
	return e.Message
}

// userError turns a taxonomy error into its user message, keeping the chain
type userError struct {
	err error
}

func (e *userError) Error() string { return failure.Message(e.err) }
func (e *userError) Unwrap() error { return e.err }

// explain returns err unchanged unless it belongs to the export taxonomy
func explain(err error) error {
	if err == nil || !failure.Known(err) {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &userError{err: err}
}

// parseSource validates a --source value before any resource is acquired
func parseSource(location string) (media.Origin, error) {
	origin, err := media.ParseOrigin(location)
	if err != nil {
		return media.Origin{}, &ValidationError{
			Message:    err.Error(),
			Suggestion: "vidflow export audio --source <file-or-url>",
		}
	}
	if err := origin.ValidateExtension(); err != nil {
		return media.Origin{}, &ValidationError{
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("convert the source to one of: %s", strings.Join(media.AllowedExtensions, ", ")),
		}
	}
	return origin, nil
}

// parsePreset validates a --preset value
func parsePreset(name string) (preset.ID, error) {
	id, err := preset.Parse(name)
	if err != nil {
		return preset.Off, &ValidationError{
			Message:    err.Error(),
			Suggestion: "vidflow presets",
		}
	}
	return id, nil
}
