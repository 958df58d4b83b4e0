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

type ExamPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheHelper
}

func NewExamPostgreSQL(db *gorm.DB, helper *cache.CacheHelper) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db, cache: helper}
}

func (e *ExamPostgreSQL) Append(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

// Get reads through the cache; exams are immutable once committed.
func (e *ExamPostgreSQL) Get(ctx context.Context, courseID uint, index int) (*models.Exam, error) {
	var exam models.Exam
	key := fmt.Sprintf("%d:%d", courseID, index)

	if e.cache != nil && e.cache.Get(ctx, key, &exam) == nil {
		return &exam, nil
	}

	err := e.db.WithContext(ctx).
		Where("course_id = ? AND exam_index = ?", courseID, index).
		First(&exam).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.NewNotFoundError("exam", key)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, &exam, cache.ExamCacheConfig.TTL); err != nil {
			slog.WarnContext(ctx, "Failed to cache exam", "course_id", courseID, "index", index, "error", err)
		}
	}

	return &exam, nil
}

func (e *ExamPostgreSQL) ListByCourse(ctx context.Context, courseID uint) ([]*models.Exam, error) {
	var exams []*models.Exam
	err := e.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("exam_index ASC").
		Find(&exams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (e *ExamPostgreSQL) CountByCourse(ctx context.Context, courseID uint) (int, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count exams: %w", err)
	}
	return int(count), nil
}
