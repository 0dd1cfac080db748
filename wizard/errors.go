package wizard

import (
	"errors"
	"fmt"

	"prowriter/generator"
)

var (
	// ErrConfiguration means a required credential is missing; never retried automatically.
	ErrConfiguration = errors.New("configuration error")
	// ErrGenerationFailed covers provider and network failures during generation.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrValidation is the parent of every synchronous rejection.
	ErrValidation = errors.New("validation error")

	ErrEmptyTopic        = fmt.Errorf("%w: topic is required", ErrValidation)
	ErrOutlineInProgress = fmt.Errorf("%w: an outline is already being generated", ErrValidation)
	ErrSectionNotFound   = fmt.Errorf("%w: section not found", ErrValidation)
	ErrSectionBusy       = fmt.Errorf("%w: section is already generating", ErrValidation)
	ErrEmptyTitle        = fmt.Errorf("%w: section title is empty", ErrValidation)
	ErrLastSection       = fmt.Errorf("%w: at least one section must remain", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: step transition not allowed", ErrValidation)
	ErrNothingToPreview  = fmt.Errorf("%w: no section has content yet", ErrValidation)
)

// classify converts a gateway error into the configuration / generation taxonomy.
func classify(err error) error {
	if errors.Is(err, generator.ErrMissingCredentials) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}
