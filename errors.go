package bridge

import (
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeMissingPayload        = "MISSING_PAYLOAD"
	ErrCodeReadinessTimeout      = "READINESS_TIMEOUT"
	ErrCodeCapabilityUnavailable = "CAPABILITY_UNAVAILABLE"
	ErrCodeTransientRace         = "TRANSIENT_RACE"
	ErrCodeImportFailed          = "IMPORT_FAILED"
	ErrCodeInvalidMessage        = "INVALID_MESSAGE"
	ErrCodeCommandPanic          = "COMMAND_PANIC"
)

var (
	ErrMissingPayload = apperrors.New("no workflow supplied", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeMissingPayload)
	ErrReadinessTimeout = apperrors.New("embedded application did not become ready", apperrors.CategoryExternal).
				WithTextCode(ErrCodeReadinessTimeout)
	ErrCapabilityUnavailable = apperrors.New("embedded application capability unavailable", apperrors.CategoryExternal).
					WithTextCode(ErrCodeCapabilityUnavailable)
	// ErrTransientRace lets a collaborator report the race with a structured
	// code instead of the error text.
	ErrTransientRace = apperrors.New("embedded application store not initialized", apperrors.CategoryExternal).
				WithTextCode(ErrCodeTransientRace)
	ErrImportFailed = apperrors.New("workflow import failed", apperrors.CategoryHandler).
			WithTextCode(ErrCodeImportFailed)
	ErrCommandPanic = apperrors.New("command handler panicked", apperrors.CategoryHandler).
			WithTextCode(ErrCodeCommandPanic)
)

// DefaultTransientSignatures are substrings of the error the editor's canvas
// accessor raises while its internal store is still uninitialized.
var DefaultTransientSignatures = []string{
	"no active Pinia",
}

func cloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode returns the text code carried by err, or "" for foreign errors.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasErrorCode reports whether err carries code.
func HasErrorCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// ErrorMessage is the human readable text placed in error events.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ge *apperrors.Error
	if stderrors.As(err, &ge) && strings.TrimSpace(ge.Message) != "" {
		return ge.Message
	}
	return err.Error()
}

// RaceClassifier decides which import failures are the editor's known
// initialization race. Everything else is fatal.
type RaceClassifier struct {
	Signatures []string
}

// IsTransient reports whether err is the known race. Matching is on the
// error text unless the error carries ErrCodeTransientRace.
func (c RaceClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if HasErrorCode(err, ErrCodeTransientRace) {
		return true
	}
	msg := err.Error()
	for _, sig := range c.Signatures {
		if sig != "" && strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func panicError(stage string, v any) *apperrors.Error {
	return cloneError(ErrCommandPanic, fmt.Sprintf("%s handler panicked: %v", stage, v), nil, map[string]any{
		"stage": stage,
	})
}
