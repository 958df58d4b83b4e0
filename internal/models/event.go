package models

import "time"

type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventCourseCreated  EventType = "course.created"
	EventExamCreated    EventType = "exam.created"
)

// RegistryEvent is published after a mutation has been committed.
type RegistryEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type UserRegisteredData struct {
	Identity   string `json:"identity"`
	IsLecturer bool   `json:"is_lecturer"`
	Created    bool   `json:"created"`
}

type CourseCreatedData struct {
	CourseID      uint   `json:"course_id"`
	Title         string `json:"title"`
	OwnerIdentity string `json:"owner_identity"`
}

type ExamCreatedData struct {
	CourseID        uint        `json:"course_id"`
	Index           int         `json:"index"`
	Title           string      `json:"title"`
	DurationSeconds int64       `json:"duration_seconds"`
	Address         ExamAddress `json:"address"`
}
