package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-registry/internal/cache"
	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

// CoursePostgreSQL caches course rows by id. Owner, title and description
// never change after creation; the exam count is always read from the table.
type CoursePostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheHelper
}

func NewCoursePostgreSQL(db *gorm.DB, helper *cache.CacheHelper) repositories.CourseRepository {
	return &CoursePostgreSQL{db: db, cache: helper}
}

func (c *CoursePostgreSQL) Create(ctx context.Context, course *models.Course) error {
	if err := c.db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (c *CoursePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	key := fmt.Sprintf("id:%d", id)

	cached := c.cache != nil && c.cache.Get(ctx, key, &course) == nil
	if !cached {
		err := c.db.WithContext(ctx).First(&course, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repositories.NewNotFoundError("course", id)
			}
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		if c.cache != nil {
			if err := c.cache.Set(ctx, key, &course, cache.CourseCacheConfig.TTL); err != nil {
				slog.WarnContext(ctx, "Failed to cache course", "course_id", id, "error", err)
			}
		}
	}

	count, err := NewExamPostgreSQL(c.db, nil).CountByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	course.ExamCount = count

	return &course, nil
}

func (c *CoursePostgreSQL) List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, error) {
	query := c.db.WithContext(ctx).Model(&models.Course{})
	if filters.OwnerIdentity != nil {
		query = query.Where("owner_identity = ?", *filters.OwnerIdentity)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var courses []*models.Course
	if err := query.Order("id ASC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	var counts []struct {
		CourseID uint
		Count    int
	}
	err := c.db.WithContext(ctx).
		Model(&models.Exam{}).
		Select("course_id, COUNT(*) AS count").
		Group("course_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count exams: %w", err)
	}

	byCourse := make(map[uint]int, len(counts))
	for _, row := range counts {
		byCourse[row.CourseID] = row.Count
	}
	for _, course := range courses {
		course.ExamCount = byCourse[course.ID]
	}

	return courses, nil
}

func (c *CoursePostgreSQL) MaxID(ctx context.Context) (uint, error) {
	var id uint
	err := c.db.WithContext(ctx).
		Model(&models.Course{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max course id: %w", err)
	}
	return id, nil
}

func (c *CoursePostgreSQL) CountByOwner(ctx context.Context, ownerIdentity string) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("owner_identity = ?", ownerIdentity).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}
