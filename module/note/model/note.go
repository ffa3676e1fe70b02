package model

import (
	"strings"
	"time"

	"CollabNotes/tools/errs"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// notes collection field constants
const (
	NoteFieldID            = "_id"
	NoteFieldCandidateID   = "candidateId"
	NoteFieldAuthor        = "author"
	NoteFieldContent       = "content"
	NoteFieldMentions      = "mentions"
	NoteFieldParentNote    = "parentNote"
	NoteFieldIsHighlighted = "isHighlighted"
	NoteFieldIsEdited      = "isEdited"
	NoteFieldEditedAt      = "editedAt"
	NoteFieldCreatedAt     = "createdAt"
	NoteFieldUpdatedAt     = "updatedAt"
)

const MaxContentLength = 10000

type Note struct {
	ID            string     `json:"id"`
	CandidateID   string     `json:"candidateId"`
	Author        string     `json:"author"`
	Content       string     `json:"content"`
	Mentions      []string   `json:"mentions"` // 解析顺序，允许重复
	ParentNote    string     `json:"parentNote,omitempty"`
	IsHighlighted bool       `json:"isHighlighted"`
	IsEdited      bool       `json:"isEdited"`
	EditedAt      *time.Time `json:"editedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (n *Note) GetTableName() string {
	return "notes"
}

// NormalizeContent 去掉两端空白后校验：必填、不超过 MaxContentLength 个字符
func NormalizeContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	err := validation.Validate(trimmed,
		validation.Required.Error("Note content is required"),
		validation.RuneLength(0, MaxContentLength).Error("Note content cannot exceed 10000 characters"),
	)
	if err != nil {
		return "", errs.ErrValidation.WrapMsg(err.Error())
	}
	return trimmed, nil
}
