package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type RegisterUserRequest = validator.RegisterUserRequest
type CreateCourseRequest = validator.CreateCourseRequest
type CreateExamRequest = validator.CreateExamRequest

type UserResponse struct {
	*models.User
	Role         models.UserRole `json:"role"`
	OwnedCourses int64           `json:"owned_courses"`
}

type CourseResponse struct {
	*models.Course
}

type CourseListResponse struct {
	Courses []*CourseResponse `json:"courses"`
	Total   uint              `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

type ExamResponse struct {
	*models.Exam
	Address models.ExamAddress `json:"address"`
}

// ===== SERVICES =====

// UserDirectory tracks registered participants and their role
type UserDirectory interface {
	// RegisterUser inserts or updates the profile of identity. It returns
	// only after the change is visible to authorization checks.
	RegisterUser(ctx context.Context, identity string, req *RegisterUserRequest) (*UserResponse, error)

	// IsLecturer is false for unknown identities.
	IsLecturer(ctx context.Context, identity string) (bool, error)

	GetUser(ctx context.Context, identity string) (*UserResponse, error)
	ListUsers(ctx context.Context, filters repositories.UserFilters) ([]*UserResponse, error)
}

// CourseExamRegistry owns courses and their exams
type CourseExamRegistry interface {
	CreateCourse(ctx context.Context, caller string, req *CreateCourseRequest) (*CourseResponse, error)
	CreateExam(ctx context.Context, caller string, courseID uint, req *CreateExamRequest) (*ExamResponse, error)
	GetExamAddress(ctx context.Context, courseID uint, index int) (models.ExamAddress, error)

	GetCourse(ctx context.Context, courseID uint) (*CourseResponse, error)
	ListCourses(ctx context.Context, filters repositories.CourseFilters) (*CourseListResponse, error)
	GetExam(ctx context.Context, courseID uint, index int) (*ExamResponse, error)
	ListExams(ctx context.Context, courseID uint) ([]*ExamResponse, error)
	CourseCount(ctx context.Context) (uint, error)

	// RegistryAddress is the identity every exam address is derived from.
	RegistryAddress() string
}

type ExportService interface {
	// ExportWorkbook writes an .xlsx snapshot of all courses and exams.
	ExportWorkbook(ctx context.Context, w io.Writer) error
}

type ServiceManager interface {
	Users() UserDirectory
	Registry() CourseExamRegistry
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
