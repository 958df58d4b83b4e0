package models

import (
	"time"
)

// Course is owned by exactly one lecturer. IDs are assigned sequentially
// starting at 1 and are never reused.
type Course struct {
	ID            uint   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title         string `json:"title" gorm:"not null;size:200"`
	Description   string `json:"description" gorm:"type:text"`
	OwnerIdentity string `json:"owner_identity" gorm:"not null;index;size:255"`

	CreatedAt time.Time `json:"created_at"`

	// Computed fields (not stored)
	ExamCount int `json:"exam_count" gorm:"-"`
}

func (Course) TableName() string {
	return "courses"
}

// Exam is a timed assessment scoped to a course. Index is the exam's position
// in the course's exam list at creation time.
type Exam struct {
	CourseID        uint   `json:"course_id" gorm:"primaryKey;autoIncrement:false"`
	Index           int    `json:"index" gorm:"column:exam_index;primaryKey;autoIncrement:false"`
	Title           string `json:"title" gorm:"not null;size:200"`
	DurationSeconds int64  `json:"duration_seconds" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exam) TableName() string {
	return "exams"
}

// ExamAddress is the deterministic handle external callers use to reach an exam.
type ExamAddress string

func (a ExamAddress) String() string {
	return string(a)
}
