package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent  UserRole = "student"
	RoleLecturer UserRole = "lecturer"
)

// User is a registered participant, keyed by the caller identity that
// registered it. Identity never changes once the record exists.
type User struct {
	Identity    string `json:"identity" gorm:"primaryKey;size:255"`
	DisplayName string `json:"display_name" gorm:"not null;size:100"`
	Bio         string `json:"bio" gorm:"type:text"`
	IsLecturer  bool   `json:"is_lecturer" gorm:"not null;default:false;index"`
	Extra       string `json:"extra" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Role() UserRole {
	if u.IsLecturer {
		return RoleLecturer
	}
	return RoleStudent
}
