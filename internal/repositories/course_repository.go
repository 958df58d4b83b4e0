package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-registry/internal/models"
)

type CourseFilters struct {
	OwnerIdentity *string
	Limit         int
	Offset        int
}

type CourseRepository interface {
	// Create stores a course. The caller assigns course.ID.
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	List(ctx context.Context, filters CourseFilters) ([]*models.Course, error)
	MaxID(ctx context.Context) (uint, error)
	CountByOwner(ctx context.Context, ownerIdentity string) (int64, error)
}

type ExamRepository interface {
	// Append stores an exam. The caller assigns exam.Index.
	Append(ctx context.Context, exam *models.Exam) error
	Get(ctx context.Context, courseID uint, index int) (*models.Exam, error)
	ListByCourse(ctx context.Context, courseID uint) ([]*models.Exam, error)
	CountByCourse(ctx context.Context, courseID uint) (int, error)
}
