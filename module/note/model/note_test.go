package model

import (
	"errors"
	"strings"
	"testing"

	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeContent(t *testing.T) {
	got, err := NormalizeContent("  hello @alice \n")
	require.NoError(t, err)
	assert.Equal(t, "hello @alice", got)

	_, err = NormalizeContent("   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.Equal(t, "Note content is required", errs.ClientMessage(err, ""))

	_, err = NormalizeContent(strings.Repeat("a", MaxContentLength+1))
	assert.True(t, errors.Is(err, errs.ErrValidation))

	// limit counts characters, not bytes
	_, err = NormalizeContent(strings.Repeat("界", MaxContentLength))
	assert.NoError(t, err)
}
