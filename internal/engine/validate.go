package engine

import (
	"context"
	"unicode"

	"github.com/lazypower/mnemo/internal/apperr"
)

// Size limits for user supplied text.
const (
	maxNameChars = 200
	maxTypeChars = 64
)

// ValidateName rejects empty names and names with leading, trailing or
// repeated whitespace. field is used in the error message.
func ValidateName(field, value string) error {
	if value == "" {
		return apperr.BadInput("%s must not be empty", field)
	}
	if len([]rune(value)) > maxNameChars {
		return apperr.BadInput("%s must be at most %d characters", field, maxNameChars)
	}

	runes := []rune(value)
	if unicode.IsSpace(runes[0]) || unicode.IsSpace(runes[len(runes)-1]) {
		return apperr.New(apperr.UnnecessaryWhitespaces, "%s has leading or trailing whitespace", field)
	}
	for i := 1; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) && unicode.IsSpace(runes[i-1]) {
			return apperr.New(apperr.UnnecessaryWhitespaces, "%s contains repeated whitespace", field)
		}
	}
	return nil
}

// validTypeChar allows lowercase alphanumerics, hyphens and underscores.
func validTypeChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// validateExerciseType checks the exercise type slug, e.g. "translation" or
// "multiple-choice".
func validateExerciseType(t string) error {
	if t == "" {
		return apperr.BadInput("exercise type must not be empty")
	}
	if len(t) > maxTypeChars {
		return apperr.BadInput("exercise type must be at most %d characters", maxTypeChars)
	}
	for _, r := range t {
		if !validTypeChar(r) {
			return apperr.BadInput("exercise type %q may only contain a-z, 0-9, '-' and '_'", t)
		}
	}
	return nil
}

// CheckLabels verifies that every label id exists and belongs to ownerID.
func (e *Engine) CheckLabels(ctx context.Context, ownerID string, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}
	labels, err := e.DB.GetLabels(ctx, labelIDs)
	if err != nil {
		return err
	}
	found := make(map[string]string, len(labels))
	for _, l := range labels {
		found[l.ID] = l.CreatorID
	}
	for _, id := range labelIDs {
		creator, ok := found[id]
		if !ok {
			return apperr.Missing("label", id)
		}
		if creator != ownerID {
			return apperr.Forbidden("label %s belongs to another user", id)
		}
	}
	return nil
}
