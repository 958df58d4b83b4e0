package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/lms-registry/internal/address"
	"github.com/SAP-F-2025/lms-registry/internal/models"
	"github.com/SAP-F-2025/lms-registry/internal/repositories"
)

const (
	CoursesSheet = "Courses"
	ExamsSheet   = "Exams"
)

var (
	courseHeader = []interface{}{"Course ID", "Title", "Description", "Owner", "Exams", "Created At"}
	examHeader   = []interface{}{"Course ID", "Exam Index", "Title", "Duration (s)", "Address", "Created At"}
)

type exportService struct {
	repo    repositories.Repository
	deriver *address.Deriver
	logger  *slog.Logger
}

func NewExportService(repo repositories.Repository, deriver *address.Deriver, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, deriver: deriver, logger: logger}
}

// snapshot reads every course and its exams inside one transaction so the
// workbook reflects a single committed state.
func (s *exportService) snapshot(ctx context.Context) ([]*models.Course, map[uint][]*models.Exam, error) {
	var courses []*models.Course
	exams := make(map[uint][]*models.Exam)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		courses, err = tx.Course().List(ctx, repositories.CourseFilters{})
		if err != nil {
			return fmt.Errorf("failed to list courses: %w", err)
		}
		for _, c := range courses {
			list, err := tx.Exam().ListByCourse(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("failed to list exams of course %d: %w", c.ID, err)
			}
			exams[c.ID] = list
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return courses, exams, nil
}

func (s *exportService) ExportWorkbook(ctx context.Context, w io.Writer) error {
	courses, exams, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CoursesSheet); err != nil {
		return fmt.Errorf("failed to name courses sheet: %w", err)
	}
	if _, err := f.NewSheet(ExamsSheet); err != nil {
		return fmt.Errorf("failed to create exams sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, CoursesSheet, 1, courseHeader); err != nil {
		return err
	}
	if err := writeRow(f, ExamsSheet, 1, examHeader); err != nil {
		return err
	}
	for _, sheet := range []string{CoursesSheet, ExamsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}

	examRow := 2
	for i, c := range courses {
		if err := writeRow(f, CoursesSheet, i+2, []interface{}{
			c.ID, c.Title, c.Description, c.OwnerIdentity, c.ExamCount, c.CreatedAt.Format("2006-01-02 15:04:05"),
		}); err != nil {
			return err
		}

		for _, e := range exams[c.ID] {
			addr := s.deriver.ExamAddress(e.CourseID, e.Index)
			if err := writeRow(f, ExamsSheet, examRow, []interface{}{
				e.CourseID, e.Index, e.Title, e.DurationSeconds, addr.String(), e.CreatedAt.Format("2006-01-02 15:04:05"),
			}); err != nil {
				return err
			}
			examRow++
		}
	}

	if err := f.SetColWidth(ExamsSheet, "E", "E", 46); err != nil {
		return fmt.Errorf("failed to size address column: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Registry workbook exported", "courses", len(courses), "exams", examRow-2)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
