package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Run("plain error defaults to internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})

	t.Run("tagged error round-trips its kind", func(t *testing.T) {
		err := NotFoundProject("home")
		assert.Equal(t, KindProjectNotFound, KindOf(err))
	})

	t.Run("wrapped tagged error is still found via errors.As", func(t *testing.T) {
		err := fmt.Errorf("listing projects: %w", NotFoundProject("home"))
		assert.Equal(t, KindProjectNotFound, KindOf(err))
	})
}

func TestNotFoundMessages(t *testing.T) {
	assert.Equal(t, "Resource not found: project 'home'", NotFoundProject("home").Error())
	assert.Equal(t, "Resource not found: Package 'faa'", NotFoundPackage("faa").Error())
}

func TestWithSuggestions(t *testing.T) {
	err := New(KindModelCompilation, "compile failed").WithSuggestions("check syntax", "check references")
	require.Len(t, err.Suggestions, 2)
	assert.ElementsMatch(t, []string{"check syntax", "check references"}, SuggestionsOf(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindConnection, cause, "failed to open connection")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
