package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

// requireLecturer reads the caller's role from the same transaction the
// mutation runs in.
func (s *registryService) requireLecturer(ctx context.Context, tx repositories.Repository, caller string) error {
	user, err := tx.User().GetByIdentity(ctx, caller)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewPermissionError(caller, nil, "course", "create", "caller is not registered")
		}
		return fmt.Errorf("failed to get caller: %w", err)
	}
	if !user.IsLecturer {
		return NewPermissionError(caller, nil, "course", "create", "caller is not a lecturer")
	}
	return nil
}

// countCourses is the number of courses matching filters, ignoring paging.
// Ids are dense, so the unfiltered count is the highest id.
func (s *registryService) countCourses(ctx context.Context, filters repositories.CourseFilters) (uint, error) {
	if filters.OwnerIdentity == nil {
		return s.repo.Course().MaxID(ctx)
	}
	n, err := s.repo.Course().CountByOwner(ctx, *filters.OwnerIdentity)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

func (s *registryService) getExam(ctx context.Context, courseID uint, index int) (*models.Exam, error) {
	if _, err := s.repo.Course().GetByID(ctx, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if index < 0 {
		return nil, ErrExamNotFound
	}

	exam, err := s.repo.Exam().Get(ctx, courseID, index)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *registryService) buildExamResponse(e *models.Exam) *ExamResponse {
	return &ExamResponse{Exam: e, Address: s.deriver.ExamAddress(e.CourseID, e.Index)}
}

// publishEvent reports a committed mutation. Failures are logged only: the
// state change has already been applied.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType models.EventType, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		logger.Error("Failed to publish event", "type", eventType, "error", err)
	}
}
