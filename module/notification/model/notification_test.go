package model

import (
	"errors"
	"strings"
	"testing"

	"CollabNotes/tools/errs"

	"github.com/stretchr/testify/assert"
)

func TestNotificationValidate(t *testing.T) {
	n := &Notification{
		Recipient: "u2",
		Sender:    "u1",
		Candidate: "c1",
		Note:      "n1",
		Type:      TypeMention,
		Message:   MentionMessage("Alice", "Jane Doe"),
	}
	assert.NoError(t, n.Validate())
	assert.Equal(t, "Alice mentioned you in a note about Jane Doe", n.Message)

	long := *n
	long.Message = strings.Repeat("x", MaxMessageLength+1)
	assert.True(t, errors.Is(long.Validate(), errs.ErrValidation))

	badType := *n
	badType.Type = "reaction"
	assert.True(t, errors.Is(badType.Validate(), errs.ErrValidation))
}
