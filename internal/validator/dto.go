package validator

// RegisterUserRequest is the profile a caller registers under its own identity
type RegisterUserRequest struct {
	DisplayName string `json:"display_name" validate:"display_name"`
	Bio         string `json:"bio" validate:"profile_bio"`
	IsLecturer  bool   `json:"is_lecturer"`
	Extra       string `json:"extra" validate:"profile_extra"`
}

// CreateCourseRequest represents the request structure for creating courses
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"course_title"`
	Description string `json:"description" validate:"course_description"`
}

// CreateExamRequest represents the request structure for appending an exam to a course
type CreateExamRequest struct {
	Title           string `json:"title" validate:"exam_title"`
	DurationSeconds int64  `json:"duration_seconds" validate:"exam_duration"`
}
