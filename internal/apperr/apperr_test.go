package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrapped(t *testing.T) {
	base := Missing("note", "n1")
	wrapped := fmt.Errorf("resolve note: %w", base)

	assert.Equal(t, NotFound, CodeOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Conflict))
	assert.Equal(t, "note n1 not found", base.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.False(t, Is(nil, NotFound))
}

func TestExtensions(t *testing.T) {
	err := New(UnnecessaryWhitespaces, "label name %q has extra whitespace", " x")
	assert.Equal(t, map[string]interface{}{"code": "UNNECESSARY_WHITESPACES"}, err.Extensions())
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("unique constraint")
	err := Wrap(Conflict, cause, "label already exists")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "label already exists", err.Error())
}
