package model

import "time"

// candidates collection field constants
const (
	CandidateFieldID     = "_id"
	CandidateFieldName   = "name"
	CandidateFieldStatus = "status"
)

// Candidate 协作线程的承载对象；房间 ID 即候选人 ID
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Position  string    `json:"position"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Candidate) GetTableName() string {
	return "candidates"
}
