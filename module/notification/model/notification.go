package model

import (
	"fmt"
	"time"

	"CollabNotes/tools/errs"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// notifications collection field constants
const (
	NotificationFieldRecipient = "recipient"
	NotificationFieldIsRead    = "isRead"
	NotificationFieldCreatedAt = "createdAt"
)

// Type
const (
	TypeMention   = "mention"
	TypeNote      = "note"
	TypeCandidate = "candidate"
)

const MaxMessageLength = 500

type Notification struct {
	ID        string     `json:"id"`
	Recipient string     `json:"recipient"`
	Sender    string     `json:"sender"`
	Candidate string     `json:"candidateId"`
	Note      string     `json:"noteId"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (n *Notification) GetTableName() string {
	return "notifications"
}

func (n *Notification) Validate() error {
	err := validation.ValidateStruct(n,
		validation.Field(&n.Recipient, validation.Required),
		validation.Field(&n.Sender, validation.Required),
		validation.Field(&n.Type, validation.Required, validation.In(TypeMention, TypeNote, TypeCandidate)),
		validation.Field(&n.Message, validation.Required, validation.RuneLength(0, MaxMessageLength)),
	)
	if err != nil {
		return errs.ErrValidation.WrapMsg(err.Error())
	}
	return nil
}

// MentionMessage 被@时的提示文案
func MentionMessage(senderName, candidateName string) string {
	return fmt.Sprintf("%s mentioned you in a note about %s", senderName, candidateName)
}
