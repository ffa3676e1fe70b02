package model

import (
	"time"
)

// users collection field constants
const (
	UserFieldID       = "_id"
	UserFieldName     = "name"
	UserFieldEmail    = "email"
	UserFieldRole     = "role"
	UserFieldIsActive = "isActive"
)

// Role
const (
	RoleAdmin     = "admin"
	RoleRecruiter = "recruiter"
	RoleHR        = "hr"
)

// User 目录中的用户主档；网关只读
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) GetTableName() string {
	return "users"
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name}
}

// Identity 连接的归属者，握手时解析，之后不变
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (i Identity) IsZero() bool { return i.ID == "" }
