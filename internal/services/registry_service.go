package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/events"
	"github.com/SAP-F-2025/lms-registry/internal/ledger"
	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
	"github.com/SAP-F-2025/lms-registry/internal/validator"
)

type registryService struct {
	repo      repositories.Repository
	ledger    *ledger.Ledger
	deriver   *address.Deriver
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewRegistryService(repo repositories.Repository, l *ledger.Ledger, deriver *address.Deriver, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) CourseExamRegistry {
	return &registryService{
		repo:      repo,
		ledger:    l,
		deriver:   deriver,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

func (s *registryService) RegistryAddress() string {
	return s.deriver.Registry().String()
}

// ===== MUTATIONS =====

func (s *registryService) CreateCourse(ctx context.Context, caller string, req *CreateCourseRequest) (*CourseResponse, error) {
	s.logger.Info("Creating course", "caller", caller, "title", req.Title)

	var course *models.Course
	err := s.ledger.Submit(ctx, "create_course", func(ctx context.Context) error {
		course = nil
		return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if err := s.requireLecturer(ctx, tx, caller); err != nil {
				return err
			}
			if err := s.validator.Validate(req); err != nil {
				return NewValidationError(err)
			}

			maxID, err := tx.Course().MaxID(ctx)
			if err != nil {
				return fmt.Errorf("failed to get last course id: %w", err)
			}

			c := &models.Course{
				ID:            maxID + 1,
				Title:         req.Title,
				Description:   req.Description,
				OwnerIdentity: caller,
				CreatedAt:     time.Now().UTC(),
			}
			if err := tx.Course().Create(ctx, c); err != nil {
				return fmt.Errorf("failed to create course: %w", err)
			}
			course = c
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("Course creation failed", "caller", caller, "kind", KindOf(err), "error", err)
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, models.EventCourseCreated, models.CourseCreatedData{
		CourseID:      course.ID,
		Title:         course.Title,
		OwnerIdentity: course.OwnerIdentity,
	})

	s.logger.Info("Course created", "course_id", course.ID, "owner", caller)
	return &CourseResponse{Course: course}, nil
}

// CreateExam checks, in order: the course exists, the caller owns it, the
// request is valid.
func (s *registryService) CreateExam(ctx context.Context, caller string, courseID uint, req *CreateExamRequest) (*ExamResponse, error) {
	s.logger.Info("Creating exam", "caller", caller, "course_id", courseID, "title", req.Title)

	var exam *models.Exam
	err := s.ledger.Submit(ctx, "create_exam", func(ctx context.Context) error {
		exam = nil
		return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			course, err := tx.Course().GetByID(ctx, courseID)
			if err != nil {
				if repositories.IsNotFoundError(err) {
					return ErrCourseNotFound
				}
				return fmt.Errorf("failed to get course: %w", err)
			}
			if course.OwnerIdentity != caller {
				return NewPermissionError(caller, courseID, "course", "create exam in", "not course owner")
			}
			if err := s.validator.Validate(req); err != nil {
				return NewValidationError(err)
			}

			count, err := tx.Exam().CountByCourse(ctx, courseID)
			if err != nil {
				return fmt.Errorf("failed to count exams: %w", err)
			}

			e := &models.Exam{
				CourseID:        courseID,
				Index:           count,
				Title:           req.Title,
				DurationSeconds: req.DurationSeconds,
				CreatedAt:       time.Now().UTC(),
			}
			if err := tx.Exam().Append(ctx, e); err != nil {
				return fmt.Errorf("failed to append exam: %w", err)
			}
			exam = e
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("Exam creation failed", "caller", caller, "course_id", courseID, "kind", KindOf(err), "error", err)
		return nil, err
	}

	resp := s.buildExamResponse(exam)
	publishEvent(ctx, s.publisher, s.logger, models.EventExamCreated, models.ExamCreatedData{
		CourseID:        exam.CourseID,
		Index:           exam.Index,
		Title:           exam.Title,
		DurationSeconds: exam.DurationSeconds,
		Address:         resp.Address,
	})

	s.logger.Info("Exam created", "course_id", courseID, "exam_index", exam.Index, "address", resp.Address)
	return resp, nil
}

// ===== QUERIES =====

func (s *registryService) GetExamAddress(ctx context.Context, courseID uint, index int) (models.ExamAddress, error) {
	exam, err := s.getExam(ctx, courseID, index)
	if err != nil {
		return "", err
	}
	return s.deriver.ExamAddress(exam.CourseID, exam.Index), nil
}

func (s *registryService) GetExam(ctx context.Context, courseID uint, index int) (*ExamResponse, error) {
	exam, err := s.getExam(ctx, courseID, index)
	if err != nil {
		return nil, err
	}
	return s.buildExamResponse(exam), nil
}

func (s *registryService) GetCourse(ctx context.Context, courseID uint) (*CourseResponse, error) {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &CourseResponse{Course: course}, nil
}

func (s *registryService) ListCourses(ctx context.Context, filters repositories.CourseFilters) (*CourseListResponse, error) {
	courses, err := s.repo.Course().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	total, err := s.countCourses(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	resp := &CourseListResponse{
		Courses: make([]*CourseResponse, 0, len(courses)),
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}
	for _, c := range courses {
		resp.Courses = append(resp.Courses, &CourseResponse{Course: c})
	}
	return resp, nil
}

func (s *registryService) ListExams(ctx context.Context, courseID uint) ([]*ExamResponse, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}

	exams, err := s.repo.Exam().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	out := make([]*ExamResponse, 0, len(exams))
	for _, e := range exams {
		out = append(out, s.buildExamResponse(e))
	}
	return out, nil
}

// CourseCount equals the highest course id because ids are dense.
func (s *registryService) CourseCount(ctx context.Context) (uint, error) {
	n, err := s.repo.Course().MaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}
