package memory

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

type courseRepository struct {
	v *view
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.v.write(ctx, func(t *tables) error {
		if want := uint(len(t.courses)) + 1; course.ID != want {
			return fmt.Errorf("course id %d out of sequence, next is %d", course.ID, want)
		}
		cp := *course
		cp.ExamCount = 0
		t.courses = append(t.courses, &cp)
		return nil
	})
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	var course *models.Course
	r.v.read(func(t *tables) {
		if id == 0 || id > uint(len(t.courses)) {
			return
		}
		cp := *t.courses[id-1]
		cp.ExamCount = len(t.exams[id])
		course = &cp
	})
	if course == nil {
		return nil, repositories.NewNotFoundError("course", id)
	}
	return course, nil
}

func (r *courseRepository) List(ctx context.Context, filters repositories.CourseFilters) ([]*models.Course, error) {
	var courses []*models.Course
	r.v.read(func(t *tables) {
		courses = make([]*models.Course, 0, len(t.courses))
		for _, c := range t.courses {
			if filters.OwnerIdentity != nil && c.OwnerIdentity != *filters.OwnerIdentity {
				continue
			}
			cp := *c
			cp.ExamCount = len(t.exams[c.ID])
			courses = append(courses, &cp)
		}
	})
	return paginate(courses, filters.Offset, filters.Limit), nil
}

func (r *courseRepository) MaxID(ctx context.Context) (uint, error) {
	var id uint
	r.v.read(func(t *tables) {
		id = uint(len(t.courses))
	})
	return id, nil
}

func (r *courseRepository) CountByOwner(ctx context.Context, ownerIdentity string) (int64, error) {
	var n int64
	r.v.read(func(t *tables) {
		for _, c := range t.courses {
			if c.OwnerIdentity == ownerIdentity {
				n++
			}
		}
	})
	return n, nil
}

type examRepository struct {
	v *view
}

func (r *examRepository) Append(ctx context.Context, exam *models.Exam) error {
	return r.v.write(ctx, func(t *tables) error {
		if exam.CourseID == 0 || exam.CourseID > uint(len(t.courses)) {
			return repositories.NewNotFoundError("course", exam.CourseID)
		}
		old := t.exams[exam.CourseID]
		if exam.Index != len(old) {
			return fmt.Errorf("exam index %d out of sequence, next is %d", exam.Index, len(old))
		}
		// copy before append so the committed version's backing array is untouched
		list := make([]*models.Exam, len(old), len(old)+1)
		copy(list, old)
		cp := *exam
		t.exams[exam.CourseID] = append(list, &cp)
		return nil
	})
}

func (r *examRepository) Get(ctx context.Context, courseID uint, index int) (*models.Exam, error) {
	var exam *models.Exam
	r.v.read(func(t *tables) {
		list := t.exams[courseID]
		if index < 0 || index >= len(list) {
			return
		}
		cp := *list[index]
		exam = &cp
	})
	if exam == nil {
		return nil, repositories.NewNotFoundError("exam", fmt.Sprintf("%d/%d", courseID, index))
	}
	return exam, nil
}

func (r *examRepository) ListByCourse(ctx context.Context, courseID uint) ([]*models.Exam, error) {
	var exams []*models.Exam
	r.v.read(func(t *tables) {
		list := t.exams[courseID]
		exams = make([]*models.Exam, 0, len(list))
		for _, e := range list {
			cp := *e
			exams = append(exams, &cp)
		}
	})
	return exams, nil
}

func (r *examRepository) CountByCourse(ctx context.Context, courseID uint) (int, error) {
	var n int
	r.v.read(func(t *tables) {
		n = len(t.exams[courseID])
	})
	return n, nil
}
